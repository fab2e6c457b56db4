package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

func TestSessionIssueAndParse(t *testing.T) {
	manager, err := NewSessionManager("secret", time.Hour, nil)
	require.NoError(t, err)

	studentID := uint(7)
	principal := Principal{
		Identifier:  "jua21001@uvg.edu.gt",
		Role:        models.RoleStudent,
		Source:      SourceFederated,
		DisplayName: "Juan",
		Email:       "jua21001@uvg.edu.gt",
		StudentID:   &studentID,
	}

	token, issued, err := manager.Issue(principal)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)
	require.True(t, issued.Active(time.Now()))

	parsed, err := manager.Parse(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, issued.ID, parsed.ID)
	require.Equal(t, principal, parsed.Principal)
	require.Equal(t, "jua21001@uvg.edu.gt", parsed.ActorID())
}

func TestSessionRejectsTamperedAndForeignTokens(t *testing.T) {
	manager, err := NewSessionManager("secret", time.Hour, nil)
	require.NoError(t, err)
	other, err := NewSessionManager("other-secret", time.Hour, nil)
	require.NoError(t, err)

	token, _, err := other.Issue(Principal{Identifier: "admin", Role: models.RoleAdmin, Source: SourceLocal})
	require.NoError(t, err)

	_, err = manager.Parse(context.Background(), token)
	require.ErrorIs(t, err, ErrSessionInvalid)

	_, err = manager.Parse(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionExpires(t *testing.T) {
	manager, err := NewSessionManager("secret", time.Hour, nil)
	require.NoError(t, err)

	token, _, err := manager.Issue(Principal{Identifier: "admin", Role: models.RoleAdmin, Source: SourceLocal})
	require.NoError(t, err)

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = manager.Parse(context.Background(), token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionRevoke(t *testing.T) {
	manager, err := NewSessionManager("secret", time.Hour, NewMemoryRevocationStore())
	require.NoError(t, err)

	token, session, err := manager.Issue(Principal{Identifier: "admin", Role: models.RoleAdmin, Source: SourceLocal})
	require.NoError(t, err)

	require.NoError(t, manager.Revoke(context.Background(), session))
	_, err = manager.Parse(context.Background(), token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestAuthFailureRetryable(t *testing.T) {
	require.True(t, NewFailure(ErrInvalidCredentials, nil).Retryable())
	require.False(t, NewFailure(ErrStateMismatch, nil).Retryable())
	require.False(t, NewFailure(ErrUnrecognizedIdentity, nil).Retryable())
	require.Equal(t, "invalid credentials", NewFailure(ErrInvalidCredentials, nil).Error())
}

func TestOutcomeLabels(t *testing.T) {
	require.Equal(t, "success", Outcome(nil))
	require.Equal(t, "domain_rejected", Outcome(NewFailure(ErrDomainRejected, nil)))
	require.Equal(t, "state_mismatch", Outcome(NewFailure(ErrStateMismatch, nil)))
	require.Equal(t, "error", Outcome(context.Canceled))
}
