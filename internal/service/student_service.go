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

// StudentService manages students with audited soft deletion.
type StudentService interface {
	Create(ctx context.Context, session auth.Session, req dto.StudentCreateRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, session auth.Session, id uint, req dto.StudentUpdateRequest) (dto.StudentResponse, error)
	SoftDelete(ctx context.Context, session auth.Session, id uint) error
	Restore(ctx context.Context, session auth.Session, id uint) (dto.StudentResponse, error)
	Get(ctx context.Context, session auth.Session, id uint, includeInactive bool) (dto.StudentResponse, error)
	List(ctx context.Context, session auth.Session, req dto.EntityListRequest) (dto.StudentListResponse, error)
}

type studentService struct {
	store     auditedStore[models.Student]
	repo      repository.StudentRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(db *gorm.DB, repo repository.StudentRepository, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		store:     newAuditedStore[models.Student](db, repo, audit, models.EntityStudent),
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) Create(ctx context.Context, session auth.Session, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.StudentResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		Name:    strings.TrimSpace(req.Name),
		Program: strings.TrimSpace(req.Program),
		Active:  true,
	}
	if err := s.store.insert(ctx, session, &student, nil); err != nil {
		s.logger.Error().Err(err).Msg("failed to create student")
		return dto.StudentResponse{}, err
	}

	s.logger.Info().Uint("student_id", student.ID).Str("actor", session.ActorID()).Msg("student created")
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, session auth.Session, id uint, req dto.StudentUpdateRequest) (dto.StudentResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.StudentResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		changes["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Program != nil {
		changes["program"] = strings.TrimSpace(*req.Program)
	}

	student, err := s.store.update(ctx, session, id, changes)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) SoftDelete(ctx context.Context, session auth.Session, id uint) error {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return err
	}
	if err := s.store.softDelete(ctx, session, id); err != nil {
		return err
	}

	s.logger.Info().Uint("student_id", id).Str("actor", session.ActorID()).Msg("student deactivated")
	return nil
}

func (s *studentService) Restore(ctx context.Context, session auth.Session, id uint) (dto.StudentResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.store.restore(ctx, session, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Get(ctx context.Context, session auth.Session, id uint, includeInactive bool) (dto.StudentResponse, error) {
	if err := authorize(session); err != nil {
		return dto.StudentResponse{}, err
	}
	if session.Principal.Role == models.RoleStudent {
		if session.Principal.StudentID == nil || *session.Principal.StudentID != id {
			return dto.StudentResponse{}, ErrForbidden
		}
		includeInactive = false
	}

	student, err := s.store.get(ctx, id, visibilityOf(includeInactive))
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) List(ctx context.Context, session auth.Session, req dto.EntityListRequest) (dto.StudentListResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment, models.RoleCompany); err != nil {
		return dto.StudentListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentListResponse{}, err
	}

	students, total, err := s.repo.List(ctx, visibilityOf(req.IncludeInactive), repository.EntityFilter{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.StudentListResponse{}, err
	}

	items := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		items = append(items, dto.NewStudentResponse(student))
	}

	return dto.StudentListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func visibilityOf(includeInactive bool) repository.Visibility {
	if includeInactive {
		return repository.IncludeInactive
	}
	return repository.ActiveOnly
}
