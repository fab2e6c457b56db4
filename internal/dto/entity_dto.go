package dto

import (
	"time"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

// StudentCreateRequest registers a student.
type StudentCreateRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Program string `json:"program" validate:"required,max=255"`
}

// StudentUpdateRequest changes student attributes. Nil fields are left untouched.
type StudentUpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Program *string `json:"program" validate:"omitempty,min=1,max=255"`
}

// StudentResponse represents a student.
type StudentResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Program   string    `json:"program"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStudentResponse maps a student model.
func NewStudentResponse(s models.Student) StudentResponse {
	return StudentResponse{
		ID:        s.ID,
		Name:      s.Name,
		Program:   s.Program,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// StudentListResponse wraps a page of students.
type StudentListResponse struct {
	Items      []StudentResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// PlaceCreateRequest registers a place.
type PlaceCreateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// PlaceUpdateRequest renames a place.
type PlaceUpdateRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
}

// PlaceResponse represents a place.
type PlaceResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlaceResponse maps a place model.
func NewPlaceResponse(p models.Place) PlaceResponse {
	return PlaceResponse{
		ID:        p.ID,
		Name:      p.Name,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// PlaceListResponse wraps a page of places.
type PlaceListResponse struct {
	Items      []PlaceResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// RecordCreateRequest reports a block of extension hours.
type RecordCreateRequest struct {
	StudentID uint    `json:"student_id" validate:"required,min=1"`
	PlaceID   uint    `json:"place_id" validate:"required,min=1"`
	Activity  string  `json:"activity" validate:"required,max=1000"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Hours     float64 `json:"hours" validate:"required,gt=0"`
	Term      string  `json:"term" validate:"required,term"`
}

// RecordUpdateRequest amends a pending record. Nil fields are left untouched.
type RecordUpdateRequest struct {
	PlaceID  *uint    `json:"place_id" validate:"omitempty,min=1"`
	Activity *string  `json:"activity" validate:"omitempty,min=1,max=1000"`
	Date     *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Hours    *float64 `json:"hours" validate:"omitempty,gt=0"`
	Term     *string  `json:"term" validate:"omitempty,term"`
}

// RecordListRequest filters activity records.
type RecordListRequest struct {
	StudentID       *uint  `json:"student_id"`
	Term            string `json:"term" validate:"omitempty,term"`
	PendingOnly     bool   `json:"pending_only"`
	IncludeInactive bool   `json:"include_inactive"`
	Page            int    `json:"page" validate:"omitempty,min=1"`
	PageSize        int    `json:"page_size" validate:"omitempty,min=1,max=200"`
}

// RecordResponse represents an activity record.
type RecordResponse struct {
	ID          uint      `json:"id"`
	StudentID   uint      `json:"student_id"`
	PlaceID     uint      `json:"place_id"`
	Activity    string    `json:"activity"`
	Date        string    `json:"date"`
	Hours       float64   `json:"hours"`
	Term        string    `json:"term"`
	Validated   bool      `json:"validated"`
	ValidatorID *string   `json:"validator_id,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRecordResponse maps an activity record model.
func NewRecordResponse(r models.ActivityRecord) RecordResponse {
	return RecordResponse{
		ID:          r.ID,
		StudentID:   r.StudentID,
		PlaceID:     r.PlaceID,
		Activity:    r.Activity,
		Date:        r.DateString(),
		Hours:       r.Hours,
		Term:        r.Term,
		Validated:   r.Validated,
		ValidatorID: r.ValidatorID,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// RecordListResponse wraps a page of records.
type RecordListResponse struct {
	Items      []RecordResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// StudentStatusResponse summarises a student's hours in one term.
type StudentStatusResponse struct {
	StudentID      uint    `json:"student_id"`
	Term           string  `json:"term"`
	TotalHours     float64 `json:"total_hours"`
	ValidatedHours float64 `json:"validated_hours"`
	PendingHours   float64 `json:"pending_hours"`
	Records        int64   `json:"records"`
}
