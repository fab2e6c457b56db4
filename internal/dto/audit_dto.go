package dto

import (
	"time"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

// AuditListRequest filters the audit trail.
type AuditListRequest struct {
	ActorID    string `json:"actor_id" validate:"omitempty,max=255"`
	Operation  string `json:"op" validate:"omitempty,oneof=create update delete validate"`
	EntityType string `json:"entity_type" validate:"omitempty,oneof=student place record"`
	Page       int    `json:"page" validate:"omitempty,min=1"`
	PageSize   int    `json:"page_size" validate:"omitempty,min=1,max=200"`
}

// AuditEntryResponse represents one audit entry.
type AuditEntryResponse struct {
	ID         uint             `json:"id"`
	Timestamp  time.Time        `json:"ts"`
	ActorID    string           `json:"actor_id"`
	Operation  string           `json:"op"`
	EntityType string           `json:"entity_type"`
	EntityID   uint             `json:"entity_id"`
	Before     *models.Snapshot `json:"before"`
	After      *models.Snapshot `json:"after"`
}

// NewAuditEntryResponse maps an audit entry model.
func NewAuditEntryResponse(entry models.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         entry.ID,
		Timestamp:  entry.Timestamp,
		ActorID:    entry.ActorID,
		Operation:  string(entry.Operation),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		Before:     entry.Before,
		After:      entry.After,
	}
}

// AuditListResponse wraps a page of audit entries.
type AuditListResponse struct {
	Items      []AuditEntryResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}
