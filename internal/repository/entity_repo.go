package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Visibility controls whether soft-deleted rows are returned.
type Visibility int

const (
	// ActiveOnly hides rows whose active flag is false.
	ActiveOnly Visibility = iota
	// IncludeInactive returns active and soft-deleted rows alike.
	IncludeInactive
)

// EntityFilter narrows entity list queries.
type EntityFilter struct {
	Search   string
	Equals   map[string]interface{}
	Page     int
	PageSize int
}

// EntityRepository is the shared persistence contract for the soft-deletable
// domain tables.
type EntityRepository[T any] interface {
	WithTx(tx *gorm.DB) EntityRepository[T]
	FindByID(ctx context.Context, id uint, visibility Visibility) (T, error)
	List(ctx context.Context, visibility Visibility, filter EntityFilter) ([]T, int64, error)
	Insert(ctx context.Context, entity *T) error
	Update(ctx context.Context, id uint, changes map[string]interface{}) error
	UpdateIf(ctx context.Context, id uint, guard, changes map[string]interface{}) (bool, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

type entityRepository[T any] struct {
	db            *gorm.DB
	searchColumns []string
}

// NewEntityRepository constructs a repository for T. Search terms match any of
// searchColumns case-insensitively.
func NewEntityRepository[T any](db *gorm.DB, searchColumns ...string) EntityRepository[T] {
	return &entityRepository[T]{db: db, searchColumns: searchColumns}
}

func (r *entityRepository[T]) WithTx(tx *gorm.DB) EntityRepository[T] {
	return &entityRepository[T]{db: tx, searchColumns: r.searchColumns}
}

func (r *entityRepository[T]) FindByID(ctx context.Context, id uint, visibility Visibility) (T, error) {
	var entity T
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if visibility == ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.First(&entity).Error; err != nil {
		var zero T
		return zero, err
	}

	return entity, nil
}

func (r *entityRepository[T]) List(ctx context.Context, visibility Visibility, filter EntityFilter) ([]T, int64, error) {
	query := r.db.WithContext(ctx).Model(new(T))
	if visibility == ActiveOnly {
		query = query.Where("active = ?", true)
	}

	for column, value := range filter.Equals {
		query = query.Where(column+" = ?", value)
	}

	if search := strings.TrimSpace(filter.Search); search != "" && len(r.searchColumns) > 0 {
		like := "%" + strings.ToLower(search) + "%"
		clauses := make([]string, 0, len(r.searchColumns))
		args := make([]interface{}, 0, len(r.searchColumns))
		for _, column := range r.searchColumns {
			clauses = append(clauses, "LOWER("+column+") LIKE ?")
			args = append(args, like)
		}
		query = query.Where(strings.Join(clauses, " OR "), args...)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var items []T
	if err := query.Order("id ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *entityRepository[T]) Insert(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *entityRepository[T]) Update(ctx context.Context, id uint, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// UpdateIf applies changes only while every guard column still holds its
// expected value, reporting whether a row changed.
func (r *entityRepository[T]) UpdateIf(ctx context.Context, id uint, guard, changes map[string]interface{}) (bool, error) {
	query := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id)
	for column, value := range guard {
		query = query.Where(column+" = ?", value)
	}

	result := query.Updates(changes)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *entityRepository[T]) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
