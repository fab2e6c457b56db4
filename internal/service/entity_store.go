package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/repository"
)

// errUnchanged short-circuits a mutation that would not alter the row.
var errUnchanged = errors.New("entity unchanged")

// auditedStore runs entity mutations and their audit entries in one transaction.
type auditedStore[T models.Entity] struct {
	db     *gorm.DB
	repo   repository.EntityRepository[T]
	audit  AuditRecorder
	entity models.EntityType
}

func newAuditedStore[T models.Entity](db *gorm.DB, repo repository.EntityRepository[T], audit AuditRecorder, entity models.EntityType) auditedStore[T] {
	return auditedStore[T]{db: db, repo: repo, audit: audit, entity: entity}
}

func (s auditedStore[T]) get(ctx context.Context, id uint, visibility repository.Visibility) (T, error) {
	entity, err := s.repo.FindByID(ctx, id, visibility)
	if err != nil {
		var zero T
		return zero, mapNotFound(s.entity, id, err)
	}
	return entity, nil
}

// insert writes entity and its create entry. check runs first inside the same
// transaction.
func (s auditedStore[T]) insert(ctx context.Context, session auth.Session, entity *T, check func(tx *gorm.DB) error) error {
	var entry models.AuditEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if check != nil {
			if err := check(tx); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Insert(ctx, entity); err != nil {
			return err
		}

		after := (*entity).Snapshot()
		recorded, err := s.audit.Record(ctx, tx, AuditChange{
			Operation:  models.AuditCreate,
			EntityType: s.entity,
			EntityID:   (*entity).GetID(),
			ActorID:    session.ActorID(),
			After:      &after,
		})
		if err != nil {
			return err
		}
		entry = recorded
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Publish(ctx, entry)
	return nil
}

// mutate loads the row visible under visibility, applies the change and appends
// an entry with the before snapshot and, unless the row was deleted, the after
// snapshot. Returning errUnchanged from apply skips the write and the entry.
func (s auditedStore[T]) mutate(
	ctx context.Context,
	session auth.Session,
	id uint,
	op models.AuditOperation,
	visibility repository.Visibility,
	apply func(tx *gorm.DB, repo repository.EntityRepository[T], current T) error,
) (T, error) {
	var (
		result T
		entry  models.AuditEntry
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, id, visibility)
		if err != nil {
			return mapNotFound(s.entity, id, err)
		}
		before := current.Snapshot()

		if err := apply(tx, repo, current); err != nil {
			if errors.Is(err, errUnchanged) {
				result = current
				return nil
			}
			return mapNotFound(s.entity, id, err)
		}

		updated, err := repo.FindByID(ctx, id, repository.IncludeInactive)
		if err != nil {
			return err
		}

		change := AuditChange{
			Operation:  op,
			EntityType: s.entity,
			EntityID:   id,
			ActorID:    session.ActorID(),
			Before:     &before,
		}
		if op != models.AuditDelete {
			after := updated.Snapshot()
			change.After = &after
		}

		recorded, err := s.audit.Record(ctx, tx, change)
		if err != nil {
			return err
		}
		entry = recorded
		result = updated
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	s.audit.Publish(ctx, entry)
	return result, nil
}

func (s auditedStore[T]) update(ctx context.Context, session auth.Session, id uint, changes map[string]interface{}) (T, error) {
	return s.mutate(ctx, session, id, models.AuditUpdate, repository.ActiveOnly,
		func(_ *gorm.DB, repo repository.EntityRepository[T], _ T) error {
			if len(changes) == 0 {
				return errUnchanged
			}
			return repo.Update(ctx, id, changes)
		})
}

func (s auditedStore[T]) softDelete(ctx context.Context, session auth.Session, id uint) error {
	_, err := s.mutate(ctx, session, id, models.AuditDelete, repository.ActiveOnly,
		func(_ *gorm.DB, repo repository.EntityRepository[T], _ T) error {
			return repo.SetActive(ctx, id, false)
		})
	return err
}

// restore reactivates a soft-deleted row. Restoring an active row is a no-op.
func (s auditedStore[T]) restore(ctx context.Context, session auth.Session, id uint) (T, error) {
	return s.mutate(ctx, session, id, models.AuditUpdate, repository.IncludeInactive,
		func(_ *gorm.DB, repo repository.EntityRepository[T], current T) error {
			if current.IsActive() {
				return errUnchanged
			}
			return repo.SetActive(ctx, id, true)
		})
}
