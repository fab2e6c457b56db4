package models

import (
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the wire layout of activity dates.
const DateLayout = "2006-01-02"

// ActivityRecord is a block of hours a student reports at a place. Records start
// pending and move once to validated.
type ActivityRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	StudentID   uint           `gorm:"not null;index" json:"student_id"`
	PlaceID     uint           `gorm:"not null;index" json:"place_id"`
	Activity    string         `gorm:"size:1000;not null" json:"activity"`
	Date        datatypes.Date `gorm:"not null" json:"date"`
	Hours       float64        `gorm:"not null" json:"hours"`
	Term        string         `gorm:"size:16;not null;index" json:"term"`
	Validated   bool           `gorm:"not null;default:false" json:"validated"`
	ValidatorID *string        `gorm:"size:255" json:"validator_id,omitempty"`
	Active      bool           `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName keeps the short table name used by the audit trail.
func (ActivityRecord) TableName() string { return "records" }

// EntityType implements Entity.
func (ActivityRecord) EntityType() EntityType { return EntityRecord }

// GetID implements Entity.
func (r ActivityRecord) GetID() uint { return r.ID }

// IsActive implements Entity.
func (r ActivityRecord) IsActive() bool { return r.Active }

// DateString renders the activity date as YYYY-MM-DD.
func (r ActivityRecord) DateString() string {
	return time.Time(r.Date).Format(DateLayout)
}

// Snapshot implements Entity.
func (r ActivityRecord) Snapshot() Snapshot {
	var validator interface{}
	if r.ValidatorID != nil {
		validator = *r.ValidatorID
	}
	return NewSnapshot(EntityRecord, datatypes.JSONMap{
		"id":           r.ID,
		"student_id":   r.StudentID,
		"place_id":     r.PlaceID,
		"activity":     r.Activity,
		"date":         r.DateString(),
		"hours":        r.Hours,
		"term":         r.Term,
		"validated":    r.Validated,
		"validator_id": validator,
		"active":       r.Active,
	})
}
