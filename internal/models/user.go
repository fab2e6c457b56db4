package models

import "time"

// User is a local credential record. Users are never physically deleted.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:128;uniqueIndex;not null" json:"username"`
	Role         Role      `gorm:"size:32;not null" json:"role"`
	StudentID    *uint     `gorm:"index" json:"student_id,omitempty"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Salt         string    `gorm:"size:64;not null" json:"-"`
	Iterations   int       `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
