package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

const sessionIssuer = "extension-hours-api"

// Session is the explicit per-interaction context carrying the authenticated
// principal. It is passed to every operation that needs the current actor.
type Session struct {
	ID        string
	Principal Principal
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ActorID identifies the session's principal in audit entries.
func (s Session) ActorID() string {
	return s.Principal.Identifier
}

// Active reports whether the session is populated and unexpired at now.
func (s Session) Active(now time.Time) bool {
	return s.ID != "" && s.Principal.Identifier != "" && now.Before(s.ExpiresAt)
}

type sessionClaims struct {
	Role          string `json:"role"`
	Source        string `json:"src"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	StudentID     *uint  `json:"sid,omitempty"`
	StudentNumber string `json:"snum,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session tokens.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
	now     func() time.Time
}

// NewSessionManager constructs a manager signing with secret (HS256).
func NewSessionManager(secret string, ttl time.Duration, revoked RevocationStore) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if revoked == nil {
		revoked = NewMemoryRevocationStore()
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}, nil
}

// Issue starts a new session for principal and returns its bearer token.
func (m *SessionManager) Issue(principal Principal) (string, Session, error) {
	now := m.now().UTC().Truncate(time.Second)
	session := Session{
		ID:        uuid.NewString(),
		Principal: principal,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := sessionClaims{
		Role:          string(principal.Role),
		Source:        string(principal.Source),
		Name:          principal.DisplayName,
		Email:         principal.Email,
		StudentID:     principal.StudentID,
		StudentNumber: principal.StudentNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   principal.Identifier,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session: %w", err)
	}
	return token, session, nil
}

// Parse verifies a bearer token and rebuilds its session. Expired, tampered and
// revoked tokens fail with ErrSessionInvalid.
func (m *SessionManager) Parse(ctx context.Context, token string) (Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, NewFailure(ErrSessionInvalid, err)
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok || claims.ID == "" || claims.Subject == "" {
		return Session{}, NewFailure(ErrSessionInvalid, errors.New("malformed session claims"))
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, NewFailure(ErrSessionInvalid, errors.New("session revoked"))
	}

	return Session{
		ID: claims.ID,
		Principal: Principal{
			Identifier:    claims.Subject,
			Role:          role,
			Source:        Source(claims.Source),
			DisplayName:   claims.Name,
			Email:         claims.Email,
			StudentID:     claims.StudentID,
			StudentNumber: claims.StudentNumber,
		},
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates the session until its natural expiry.
func (m *SessionManager) Revoke(ctx context.Context, session Session) error {
	if session.ID == "" {
		return nil
	}
	return m.revoked.Revoke(ctx, session.ID, session.ExpiresAt)
}
