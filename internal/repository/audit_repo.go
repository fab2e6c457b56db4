package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

// AuditFilter narrows audit trail queries.
type AuditFilter struct {
	Page       int
	PageSize   int
	ActorID    string
	Operation  models.AuditOperation
	EntityType models.EntityType
}

// AuditRepository appends and reads audit entries. Entries are append-only.
type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID uint) ([]models.AuditEntry, error)
	List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository constructs the audit repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	return &auditRepository{db: tx}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID uint) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEntry{})

	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}

	if filter.Operation != "" {
		query = query.Where("op = ?", filter.Operation)
	}

	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.AuditEntry
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
