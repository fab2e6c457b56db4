package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for each authentication failure reason. Match with errors.Is.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDomainRejected       = errors.New("email domain not allowed")
	ErrStateMismatch        = errors.New("oauth state mismatch")
	ErrProviderError        = errors.New("identity provider error")
	ErrUnrecognizedIdentity = errors.New("identity does not match a known role pattern")
	ErrSessionInvalid       = errors.New("session invalid or expired")
)

// AuthFailure reports why an authentication attempt did not produce a principal.
// Cause carries the underlying error for logs; it is never shown to end users.
type AuthFailure struct {
	Reason error
	Cause  error
}

// NewFailure builds a failure for reason, keeping cause for diagnostics.
func NewFailure(reason, cause error) *AuthFailure {
	return &AuthFailure{Reason: reason, Cause: cause}
}

func (f *AuthFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Cause)
	}
	return f.Reason.Error()
}

// Is matches the failure against its reason sentinel.
func (f *AuthFailure) Is(target error) bool {
	return f.Reason == target
}

// Unwrap exposes the underlying cause.
func (f *AuthFailure) Unwrap() error {
	return f.Cause
}

// Outcome returns a short label for the failure reason, suitable for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrDomainRejected):
		return "domain_rejected"
	case errors.Is(err, ErrStateMismatch):
		return "state_mismatch"
	case errors.Is(err, ErrProviderError):
		return "provider_error"
	case errors.Is(err, ErrUnrecognizedIdentity):
		return "unrecognized_identity"
	case errors.Is(err, ErrSessionInvalid):
		return "session_invalid"
	default:
		return "error"
	}
}

// Retryable reports whether the user can retry with corrected input or later.
// State mismatches are fatal to the attempt and require a fresh login.
func (f *AuthFailure) Retryable() bool {
	switch f.Reason {
	case ErrInvalidCredentials, ErrDomainRejected, ErrProviderError:
		return true
	default:
		return false
	}
}
