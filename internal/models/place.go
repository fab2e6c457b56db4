package models

import (
	"time"

	"gorm.io/datatypes"
)

// Place is an approved location where extension activities happen.
type Place struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityType implements Entity.
func (Place) EntityType() EntityType { return EntityPlace }

// GetID implements Entity.
func (p Place) GetID() uint { return p.ID }

// IsActive implements Entity.
func (p Place) IsActive() bool { return p.Active }

// Snapshot implements Entity.
func (p Place) Snapshot() Snapshot {
	return NewSnapshot(EntityPlace, datatypes.JSONMap{
		"id":     p.ID,
		"name":   p.Name,
		"active": p.Active,
	})
}
