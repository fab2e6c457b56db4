package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/repository"
)

// PlaceService manages approved places with audited soft deletion.
type PlaceService interface {
	Create(ctx context.Context, session auth.Session, req dto.PlaceCreateRequest) (dto.PlaceResponse, error)
	Update(ctx context.Context, session auth.Session, id uint, req dto.PlaceUpdateRequest) (dto.PlaceResponse, error)
	SoftDelete(ctx context.Context, session auth.Session, id uint) error
	Restore(ctx context.Context, session auth.Session, id uint) (dto.PlaceResponse, error)
	Get(ctx context.Context, session auth.Session, id uint, includeInactive bool) (dto.PlaceResponse, error)
	List(ctx context.Context, session auth.Session, req dto.EntityListRequest) (dto.PlaceListResponse, error)
}

type placeService struct {
	store     auditedStore[models.Place]
	repo      repository.PlaceRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPlaceService constructs the place service.
func NewPlaceService(db *gorm.DB, repo repository.PlaceRepository, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) PlaceService {
	return &placeService{
		store:     newAuditedStore[models.Place](db, repo, audit, models.EntityPlace),
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "place_service").Logger(),
	}
}

func (s *placeService) Create(ctx context.Context, session auth.Session, req dto.PlaceCreateRequest) (dto.PlaceResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.PlaceResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.PlaceResponse{}, err
	}

	place := models.Place{Name: strings.TrimSpace(req.Name), Active: true}
	if err := s.store.insert(ctx, session, &place, nil); err != nil {
		s.logger.Error().Err(err).Msg("failed to create place")
		return dto.PlaceResponse{}, err
	}

	s.logger.Info().Uint("place_id", place.ID).Str("actor", session.ActorID()).Msg("place created")
	return dto.NewPlaceResponse(place), nil
}

func (s *placeService) Update(ctx context.Context, session auth.Session, id uint, req dto.PlaceUpdateRequest) (dto.PlaceResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.PlaceResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.PlaceResponse{}, err
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		changes["name"] = strings.TrimSpace(*req.Name)
	}

	place, err := s.store.update(ctx, session, id, changes)
	if err != nil {
		return dto.PlaceResponse{}, err
	}
	return dto.NewPlaceResponse(place), nil
}

func (s *placeService) SoftDelete(ctx context.Context, session auth.Session, id uint) error {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return err
	}
	if err := s.store.softDelete(ctx, session, id); err != nil {
		return err
	}

	s.logger.Info().Uint("place_id", id).Str("actor", session.ActorID()).Msg("place deactivated")
	return nil
}

func (s *placeService) Restore(ctx context.Context, session auth.Session, id uint) (dto.PlaceResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.PlaceResponse{}, err
	}

	place, err := s.store.restore(ctx, session, id)
	if err != nil {
		return dto.PlaceResponse{}, err
	}
	return dto.NewPlaceResponse(place), nil
}

func (s *placeService) Get(ctx context.Context, session auth.Session, id uint, includeInactive bool) (dto.PlaceResponse, error) {
	if err := authorize(session); err != nil {
		return dto.PlaceResponse{}, err
	}
	if !session.Principal.Role.IsStaff() {
		includeInactive = false
	}

	place, err := s.store.get(ctx, id, visibilityOf(includeInactive))
	if err != nil {
		return dto.PlaceResponse{}, err
	}
	return dto.NewPlaceResponse(place), nil
}

// List is open to every role so students can pick a place when reporting hours.
func (s *placeService) List(ctx context.Context, session auth.Session, req dto.EntityListRequest) (dto.PlaceListResponse, error) {
	if err := authorize(session); err != nil {
		return dto.PlaceListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.PlaceListResponse{}, err
	}
	includeInactive := req.IncludeInactive && session.Principal.Role.IsStaff()

	places, total, err := s.repo.List(ctx, visibilityOf(includeInactive), repository.EntityFilter{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.PlaceListResponse{}, err
	}

	items := make([]dto.PlaceResponse, 0, len(places))
	for _, place := range places {
		items = append(items, dto.NewPlaceResponse(place))
	}

	return dto.PlaceListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}
