package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/repository"
)

// RecordService manages activity records, their validation and per-term status.
type RecordService interface {
	Create(ctx context.Context, session auth.Session, req dto.RecordCreateRequest) (dto.RecordResponse, error)
	Update(ctx context.Context, session auth.Session, id uint, req dto.RecordUpdateRequest) (dto.RecordResponse, error)
	SoftDelete(ctx context.Context, session auth.Session, id uint) error
	Restore(ctx context.Context, session auth.Session, id uint) (dto.RecordResponse, error)
	Validate(ctx context.Context, session auth.Session, id uint) (dto.RecordResponse, error)
	Get(ctx context.Context, session auth.Session, id uint, includeInactive bool) (dto.RecordResponse, error)
	List(ctx context.Context, session auth.Session, req dto.RecordListRequest) (dto.RecordListResponse, error)
	Status(ctx context.Context, session auth.Session, studentID uint, term string) (dto.StudentStatusResponse, error)
}

type recordService struct {
	store     auditedStore[models.ActivityRecord]
	records   repository.RecordRepository
	students  repository.StudentRepository
	places    repository.PlaceRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewRecordService constructs the activity record service.
func NewRecordService(
	db *gorm.DB,
	records repository.RecordRepository,
	students repository.StudentRepository,
	places repository.PlaceRepository,
	audit AuditRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) RecordService {
	return &recordService{
		store:     newAuditedStore[models.ActivityRecord](db, records, audit, models.EntityRecord),
		records:   records,
		students:  students,
		places:    places,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "record_service").Logger(),
	}
}

func (s *recordService) Create(ctx context.Context, session auth.Session, req dto.RecordCreateRequest) (dto.RecordResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment, models.RoleStudent); err != nil {
		return dto.RecordResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RecordResponse{}, err
	}
	if err := ownsStudent(session, req.StudentID); err != nil {
		return dto.RecordResponse{}, err
	}

	activity, err := s.cleanActivity(req.Activity)
	if err != nil {
		return dto.RecordResponse{}, err
	}
	date, err := parseActivityDate(req.Date)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	record := models.ActivityRecord{
		StudentID: req.StudentID,
		PlaceID:   req.PlaceID,
		Activity:  activity,
		Date:      date,
		Hours:     req.Hours,
		Term:      req.Term,
		Active:    true,
	}

	err = s.store.insert(ctx, session, &record, func(tx *gorm.DB) error {
		return s.requireActive(ctx, tx, req.StudentID, req.PlaceID)
	})
	if err != nil {
		return dto.RecordResponse{}, err
	}

	s.logger.Info().
		Uint("record_id", record.ID).
		Uint("student_id", record.StudentID).
		Float64("hours", record.Hours).
		Str("actor", session.ActorID()).
		Msg("activity record created")
	return dto.NewRecordResponse(record), nil
}

func (s *recordService) Update(ctx context.Context, session auth.Session, id uint, req dto.RecordUpdateRequest) (dto.RecordResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment, models.RoleStudent); err != nil {
		return dto.RecordResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RecordResponse{}, err
	}

	changes := map[string]interface{}{}
	if req.Activity != nil {
		activity, err := s.cleanActivity(*req.Activity)
		if err != nil {
			return dto.RecordResponse{}, err
		}
		changes["activity"] = activity
	}
	if req.Date != nil {
		date, err := parseActivityDate(*req.Date)
		if err != nil {
			return dto.RecordResponse{}, err
		}
		changes["date"] = date
	}
	if req.Hours != nil {
		changes["hours"] = *req.Hours
	}
	if req.Term != nil {
		changes["term"] = *req.Term
	}
	if req.PlaceID != nil {
		changes["place_id"] = *req.PlaceID
	}

	record, err := s.store.mutate(ctx, session, id, models.AuditUpdate, repository.ActiveOnly,
		func(tx *gorm.DB, repo repository.EntityRepository[models.ActivityRecord], current models.ActivityRecord) error {
			if err := ownsStudent(session, current.StudentID); err != nil {
				return err
			}
			if current.Validated {
				return ErrAlreadyValidated
			}
			if len(changes) == 0 {
				return errUnchanged
			}
			if req.PlaceID != nil && *req.PlaceID != current.PlaceID {
				if _, err := s.places.WithTx(tx).FindByID(ctx, *req.PlaceID, repository.ActiveOnly); err != nil {
					return referenceError(err)
				}
			}
			return repo.Update(ctx, id, changes)
		})
	if err != nil {
		return dto.RecordResponse{}, err
	}
	return dto.NewRecordResponse(record), nil
}

func (s *recordService) SoftDelete(ctx context.Context, session auth.Session, id uint) error {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return err
	}
	if err := s.store.softDelete(ctx, session, id); err != nil {
		return err
	}

	s.logger.Info().Uint("record_id", id).Str("actor", session.ActorID()).Msg("activity record deactivated")
	return nil
}

func (s *recordService) Restore(ctx context.Context, session auth.Session, id uint) (dto.RecordResponse, error) {
	if err := authorize(session, models.RoleAdmin, models.RoleDepartment); err != nil {
		return dto.RecordResponse{}, err
	}

	record, err := s.store.restore(ctx, session, id)
	if err != nil {
		return dto.RecordResponse{}, err
	}
	return dto.NewRecordResponse(record), nil
}

// Validate moves a pending record to validated, attributing it to the session's
// principal. The transition happens at most once.
func (s *recordService) Validate(ctx context.Context, session auth.Session, id uint) (dto.RecordResponse, error) {
	if err := authorize(session); err != nil {
		return dto.RecordResponse{}, err
	}
	if !session.Principal.Role.CanValidate() {
		return dto.RecordResponse{}, ErrForbidden
	}
	validatorID := session.ActorID()

	record, err := s.store.mutate(ctx, session, id, models.AuditValidate, repository.ActiveOnly,
		func(_ *gorm.DB, repo repository.EntityRepository[models.ActivityRecord], current models.ActivityRecord) error {
			if current.Validated {
				return ErrAlreadyValidated
			}
			changed, err := repo.UpdateIf(ctx, id,
				map[string]interface{}{"validated": false},
				map[string]interface{}{"validated": true, "validator_id": validatorID},
			)
			if err != nil {
				return err
			}
			if !changed {
				return ErrAlreadyValidated
			}
			return nil
		})
	if err != nil {
		return dto.RecordResponse{}, err
	}

	s.logger.Info().Uint("record_id", id).Str("validator", validatorID).Msg("activity record validated")
	return dto.NewRecordResponse(record), nil
}

func (s *recordService) Get(ctx context.Context, session auth.Session, id uint, includeInactive bool) (dto.RecordResponse, error) {
	if err := authorize(session); err != nil {
		return dto.RecordResponse{}, err
	}
	if !session.Principal.Role.IsStaff() {
		includeInactive = false
	}

	record, err := s.store.get(ctx, id, visibilityOf(includeInactive))
	if err != nil {
		return dto.RecordResponse{}, err
	}
	if session.Principal.Role == models.RoleStudent {
		if err := ownsStudent(session, record.StudentID); err != nil {
			return dto.RecordResponse{}, &NotFoundError{Entity: string(models.EntityRecord), ID: id}
		}
	}
	return dto.NewRecordResponse(record), nil
}

func (s *recordService) List(ctx context.Context, session auth.Session, req dto.RecordListRequest) (dto.RecordListResponse, error) {
	if err := authorize(session); err != nil {
		return dto.RecordListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RecordListResponse{}, err
	}

	filter := repository.EntityFilter{
		Equals:   map[string]interface{}{},
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	includeInactive := req.IncludeInactive && session.Principal.Role.IsStaff()

	if session.Principal.Role == models.RoleStudent {
		if session.Principal.StudentID == nil {
			return dto.RecordListResponse{}, ErrForbidden
		}
		filter.Equals["student_id"] = *session.Principal.StudentID
	} else if req.StudentID != nil {
		filter.Equals["student_id"] = *req.StudentID
	}
	if req.Term != "" {
		filter.Equals["term"] = req.Term
	}
	if req.PendingOnly {
		filter.Equals["validated"] = false
	}

	records, total, err := s.records.List(ctx, visibilityOf(includeInactive), filter)
	if err != nil {
		return dto.RecordListResponse{}, err
	}

	items := make([]dto.RecordResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewRecordResponse(record))
	}

	return dto.RecordListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// Status reports a student's total, validated and pending hours for a term.
func (s *recordService) Status(ctx context.Context, session auth.Session, studentID uint, term string) (dto.StudentStatusResponse, error) {
	if err := authorize(session); err != nil {
		return dto.StudentStatusResponse{}, err
	}
	if session.Principal.Role == models.RoleStudent {
		if err := ownsStudent(session, studentID); err != nil {
			return dto.StudentStatusResponse{}, err
		}
	}
	term = strings.TrimSpace(term)
	if err := s.validator.Var(term, "required,term"); err != nil {
		return dto.StudentStatusResponse{}, err
	}

	if _, err := s.students.FindByID(ctx, studentID, repository.IncludeInactive); err != nil {
		return dto.StudentStatusResponse{}, mapNotFound(models.EntityStudent, studentID, err)
	}

	summary, err := s.records.Summarize(ctx, studentID, term)
	if err != nil {
		return dto.StudentStatusResponse{}, err
	}

	return dto.StudentStatusResponse{
		StudentID:      studentID,
		Term:           term,
		TotalHours:     summary.Total,
		ValidatedHours: summary.Validated,
		PendingHours:   summary.Total - summary.Validated,
		Records:        summary.Records,
	}, nil
}

func (s *recordService) requireActive(ctx context.Context, tx *gorm.DB, studentID, placeID uint) error {
	if _, err := s.students.WithTx(tx).FindByID(ctx, studentID, repository.ActiveOnly); err != nil {
		return referenceError(err)
	}
	if _, err := s.places.WithTx(tx).FindByID(ctx, placeID, repository.ActiveOnly); err != nil {
		return referenceError(err)
	}
	return nil
}

func (s *recordService) cleanActivity(raw string) (string, error) {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(raw))
	if clean == "" {
		return "", fmt.Errorf("%w: activity must contain text", ErrInvalidInput)
	}
	return clean, nil
}

func ownsStudent(session auth.Session, studentID uint) error {
	if session.Principal.Role != models.RoleStudent {
		return nil
	}
	if session.Principal.StudentID == nil || *session.Principal.StudentID != studentID {
		return ErrForbidden
	}
	return nil
}

func referenceError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInactiveReference
	}
	return err
}

func parseActivityDate(value string) (datatypes.Date, error) {
	parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("%w: date must use YYYY-MM-DD", ErrInvalidInput)
	}
	return datatypes.Date(parsed), nil
}
