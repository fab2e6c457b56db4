package repository

import (
	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

// StudentRepository provides access to student rows.
type StudentRepository = EntityRepository[models.Student]

// PlaceRepository provides access to place rows.
type PlaceRepository = EntityRepository[models.Place]

// NewStudentRepository constructs a student repository searchable by name and program.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return NewEntityRepository[models.Student](db, "name", "program")
}

// NewPlaceRepository constructs a place repository searchable by name.
func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return NewEntityRepository[models.Place](db, "name")
}
