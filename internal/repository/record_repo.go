package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

// HoursSummary aggregates a student's active hours for one term.
type HoursSummary struct {
	Total     float64
	Validated float64
	Records   int64
}

// RecordRepository adds reporting queries to the activity record store.
type RecordRepository interface {
	EntityRepository[models.ActivityRecord]
	Summarize(ctx context.Context, studentID uint, term string) (HoursSummary, error)
}

type recordRepository struct {
	EntityRepository[models.ActivityRecord]
	db *gorm.DB
}

// NewRecordRepository constructs the activity record repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{
		EntityRepository: NewEntityRepository[models.ActivityRecord](db, "activity"),
		db:               db,
	}
}

func (r *recordRepository) Summarize(ctx context.Context, studentID uint, term string) (HoursSummary, error) {
	var row struct {
		Total     float64
		Validated float64
		Records   int64
	}
	err := r.db.WithContext(ctx).Model(&models.ActivityRecord{}).
		Select("COALESCE(SUM(hours), 0) AS total, "+
			"COALESCE(SUM(CASE WHEN validated THEN hours ELSE 0 END), 0) AS validated, "+
			"COUNT(*) AS records").
		Where("student_id = ? AND term = ? AND active = ?", studentID, term, true).
		Scan(&row).Error
	if err != nil {
		return HoursSummary{}, err
	}

	return HoursSummary{Total: row.Total, Validated: row.Validated, Records: row.Records}, nil
}
