package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/models"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates the session's principal may not perform the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrAlreadyValidated indicates a record was validated before.
	ErrAlreadyValidated = errors.New("record already validated")
	// ErrInvalidInput indicates request data that passed tag validation but is unusable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInactiveReference indicates a record points at a missing or soft-deleted row.
	ErrInactiveReference = errors.New("referenced student or place is not active")
	// ErrUserNotFound indicates no local user matches the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrInvalidAuditEntry indicates an audit entry failed its shape or schema checks.
	ErrInvalidAuditEntry = errors.New("invalid audit entry")
	// ErrFederatedDisabled indicates federated login is not configured.
	ErrFederatedDisabled = errors.New("federated login is not configured")
)

// NotFoundError reports a missing or hidden entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func mapNotFound(entity models.EntityType, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: string(entity), ID: id}
	}
	return err
}

func authorize(session auth.Session, roles ...models.Role) error {
	if session.ID == "" || session.Principal.Identifier == "" {
		return ErrForbidden
	}
	if len(roles) > 0 && !session.Principal.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}
