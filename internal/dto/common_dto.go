package dto

import (
	"math"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var termPattern = regexp.MustCompile(`^\d{4}-[12]$`)

// NewValidator returns the request validator with the API's custom tags registered.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("term", func(fl validator.FieldLevel) bool {
		return termPattern.MatchString(fl.Field().String())
	})
	return validate
}

// PaginationMeta describes pagination information for list endpoints.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives page counts from the request and total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page <= 0 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}

// EntityListRequest captures list filters shared by students and places.
type EntityListRequest struct {
	Search          string `json:"search"`
	IncludeInactive bool   `json:"include_inactive"`
	Page            int    `json:"page" validate:"omitempty,min=1"`
	PageSize        int    `json:"page_size" validate:"omitempty,min=1,max=200"`
}
