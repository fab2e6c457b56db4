package service

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/observability"
	"github.com/noah-isme/extension-hours-api/internal/repository"
)

//go:embed schemas/*.json
var snapshotSchemaFiles embed.FS

const schemaBaseURL = "https://schemas.extension-hours.local/"

// AuditChange describes one mutation to append to the audit trail.
type AuditChange struct {
	Operation  models.AuditOperation
	EntityType models.EntityType
	EntityID   uint
	ActorID    string
	Before     *models.Snapshot
	After      *models.Snapshot
}

// AuditRecorder appends entries inside the caller's transaction and announces
// them once that transaction has committed.
type AuditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, change AuditChange) (models.AuditEntry, error)
	Publish(ctx context.Context, entries ...models.AuditEntry)
}

// AuditService exposes the audit trail.
type AuditService interface {
	AuditRecorder
	History(ctx context.Context, entityType models.EntityType, entityID uint) ([]dto.AuditEntryResponse, error)
	List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error)
}

type auditService struct {
	repo        repository.AuditRepository
	schemas     map[models.EntityType]*jsonschema.Schema
	validator   *validator.Validate
	nats        *nats.Conn
	natsSubject string
	now         func() time.Time
	logger      zerolog.Logger
}

// NewAuditService constructs the audit service. natsConn may be nil, in which
// case committed entries are not broadcast.
func NewAuditService(repo repository.AuditRepository, validate *validator.Validate, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) (AuditService, error) {
	schemas, err := loadSnapshotSchemas()
	if err != nil {
		return nil, err
	}

	subject := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".audit"
	}

	return &auditService{
		repo:        repo,
		schemas:     schemas,
		validator:   validate,
		nats:        natsConn,
		natsSubject: subject,
		now:         time.Now,
		logger:      logger.With().Str("component", "audit_service").Logger(),
	}, nil
}

func loadSnapshotSchemas() (map[models.EntityType]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	schemas := make(map[models.EntityType]*jsonschema.Schema)
	for _, entityType := range []models.EntityType{models.EntityStudent, models.EntityPlace, models.EntityRecord} {
		name := fmt.Sprintf("%s.v1.json", entityType)
		data, err := snapshotSchemaFiles.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read snapshot schema %s: %w", name, err)
		}
		url := schemaBaseURL + name
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add snapshot schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile snapshot schema %s: %w", name, err)
		}
		schemas[entityType] = schema
	}

	return schemas, nil
}

func (s *auditService) Record(ctx context.Context, tx *gorm.DB, change AuditChange) (models.AuditEntry, error) {
	if err := s.check(change); err != nil {
		return models.AuditEntry{}, err
	}

	entry := models.AuditEntry{
		Timestamp:  s.now().UTC(),
		ActorID:    change.ActorID,
		Operation:  change.Operation,
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Before:     change.Before,
		After:      change.After,
	}

	if err := s.repo.WithTx(tx).Create(ctx, &entry); err != nil {
		s.logger.Error().Err(err).
			Str("op", string(change.Operation)).
			Str("entity_type", string(change.EntityType)).
			Uint("entity_id", change.EntityID).
			Msg("failed to persist audit entry")
		return models.AuditEntry{}, fmt.Errorf("persist audit entry: %w", err)
	}

	return entry, nil
}

func (s *auditService) check(change AuditChange) error {
	if !change.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidAuditEntry, change.Operation)
	}
	if !change.EntityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidAuditEntry, change.EntityType)
	}
	if change.EntityID == 0 {
		return fmt.Errorf("%w: entity id is required", ErrInvalidAuditEntry)
	}
	if strings.TrimSpace(change.ActorID) == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidAuditEntry)
	}

	switch change.Operation {
	case models.AuditCreate:
		if change.Before != nil || change.After == nil {
			return fmt.Errorf("%w: create needs only an after snapshot", ErrInvalidAuditEntry)
		}
	case models.AuditDelete:
		if change.Before == nil || change.After != nil {
			return fmt.Errorf("%w: delete needs only a before snapshot", ErrInvalidAuditEntry)
		}
	default:
		if change.Before == nil || change.After == nil {
			return fmt.Errorf("%w: %s needs both snapshots", ErrInvalidAuditEntry, change.Operation)
		}
	}

	for _, snapshot := range []*models.Snapshot{change.Before, change.After} {
		if snapshot == nil {
			continue
		}
		if err := s.validateSnapshot(change.EntityType, *snapshot); err != nil {
			return err
		}
	}

	return nil
}

func (s *auditService) validateSnapshot(entityType models.EntityType, snapshot models.Snapshot) error {
	if snapshot.Schema != models.SchemaFor(entityType) {
		return fmt.Errorf("%w: snapshot schema %q does not describe %s", ErrInvalidAuditEntry, snapshot.Schema, entityType)
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrInvalidAuditEntry, err)
	}
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("%w: decode snapshot: %v", ErrInvalidAuditEntry, err)
	}

	if err := s.schemas[entityType].Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAuditEntry, err)
	}
	return nil
}

func (s *auditService) Publish(ctx context.Context, entries ...models.AuditEntry) {
	for _, entry := range entries {
		if entry.ID == 0 {
			continue
		}
		observability.AuditEntries().WithLabelValues(string(entry.Operation), string(entry.EntityType)).Inc()

		if s.nats == nil || s.natsSubject == "" {
			continue
		}
		payload, err := json.Marshal(dto.NewAuditEntryResponse(entry))
		if err != nil {
			s.logger.Warn().Err(err).Uint("audit_id", entry.ID).Msg("failed to encode audit broadcast")
			continue
		}
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Uint("audit_id", entry.ID).Msg("failed to publish audit entry to nats")
		}
	}
}

func (s *auditService) History(ctx context.Context, entityType models.EntityType, entityID uint) ([]dto.AuditEntryResponse, error) {
	if !entityType.Valid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidAuditEntry, entityType)
	}

	entries, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditEntryResponse(entry))
	}
	return responses, nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuditListResponse{}, err
	}

	filter := repository.AuditFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		ActorID:    strings.TrimSpace(req.ActorID),
		Operation:  models.AuditOperation(req.Operation),
		EntityType: models.EntityType(req.EntityType),
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	responses := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditEntryResponse(entry))
	}

	return dto.AuditListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}
