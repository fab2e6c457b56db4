package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AuditOperation enumerates the mutations recorded in the audit trail.
type AuditOperation string

const (
	AuditCreate   AuditOperation = "create"
	AuditUpdate   AuditOperation = "update"
	AuditDelete   AuditOperation = "delete"
	AuditValidate AuditOperation = "validate"
)

// Valid reports whether op is a known operation.
func (op AuditOperation) Valid() bool {
	switch op {
	case AuditCreate, AuditUpdate, AuditDelete, AuditValidate:
		return true
	default:
		return false
	}
}

// EntityType names an audited domain table.
type EntityType string

const (
	EntityStudent EntityType = "student"
	EntityPlace   EntityType = "place"
	EntityRecord  EntityType = "record"
)

// Valid reports whether t is an audited entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityStudent, EntityPlace, EntityRecord:
		return true
	default:
		return false
	}
}

// Entity is implemented by every audited, soft-deletable domain model.
type Entity interface {
	EntityType() EntityType
	GetID() uint
	IsActive() bool
	Snapshot() Snapshot
}

// Snapshot is a schema-tagged key/value document describing one row.
type Snapshot struct {
	Schema string            `json:"schema"`
	Fields datatypes.JSONMap `json:"fields"`
}

// SchemaFor returns the snapshot schema tag of an entity type.
func SchemaFor(t EntityType) string {
	return fmt.Sprintf("%s/v1", t)
}

// NewSnapshot builds a snapshot tagged with the current schema of t.
func NewSnapshot(t EntityType, fields datatypes.JSONMap) Snapshot {
	return Snapshot{Schema: SchemaFor(t), Fields: fields}
}

// AuditEntry is an immutable, append-only record of one mutation. Before is nil
// for creates and After is nil for deletes.
type AuditEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Timestamp  time.Time      `gorm:"column:ts;not null;index" json:"ts"`
	ActorID    string         `gorm:"size:255;not null;index" json:"actor_id"`
	Operation  AuditOperation `gorm:"column:op;size:16;not null" json:"op"`
	EntityType EntityType     `gorm:"size:32;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint           `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Before     *Snapshot      `gorm:"column:before_json;serializer:json" json:"before"`
	After      *Snapshot      `gorm:"column:after_json;serializer:json" json:"after"`
}

// TableName keeps the audit table name stable.
func (AuditEntry) TableName() string { return "audit" }
