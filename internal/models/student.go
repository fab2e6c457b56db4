package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student represents a learner accumulating extension hours.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Program   string    `gorm:"size:255;not null" json:"program"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityType implements Entity.
func (Student) EntityType() EntityType { return EntityStudent }

// GetID implements Entity.
func (s Student) GetID() uint { return s.ID }

// IsActive implements Entity.
func (s Student) IsActive() bool { return s.Active }

// Snapshot implements Entity.
func (s Student) Snapshot() Snapshot {
	return NewSnapshot(EntityStudent, datatypes.JSONMap{
		"id":      s.ID,
		"name":    s.Name,
		"program": s.Program,
		"active":  s.Active,
	})
}
