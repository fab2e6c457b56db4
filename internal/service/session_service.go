package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
)

// SessionService issues, resolves and revokes sessions for local logins.
type SessionService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.SessionResponse, error)
	Resolve(ctx context.Context, token string) (auth.Session, error)
	Logout(ctx context.Context, session auth.Session) error
}

type sessionService struct {
	credentials CredentialService
	sessions    *auth.SessionManager
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(credentials CredentialService, sessions *auth.SessionManager, validate *validator.Validate, logger zerolog.Logger) SessionService {
	return &sessionService{
		credentials: credentials,
		sessions:    sessions,
		validator:   validate,
		logger:      logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) Login(ctx context.Context, req dto.LoginRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionResponse{}, err
	}

	principal, err := s.credentials.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	token, session, err := s.sessions.Issue(principal)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Str("principal", principal.Identifier).
		Str("role", principal.Role.String()).
		Str("session_id", session.ID).
		Msg("local login succeeded")
	return dto.NewSessionResponse(token, session), nil
}

func (s *sessionService) Resolve(ctx context.Context, token string) (auth.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Session{}, auth.NewFailure(auth.ErrSessionInvalid, nil)
	}
	return s.sessions.Parse(ctx, token)
}

func (s *sessionService) Logout(ctx context.Context, session auth.Session) error {
	if err := s.sessions.Revoke(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to revoke session")
		return err
	}
	s.logger.Info().Str("session_id", session.ID).Str("principal", session.ActorID()).Msg("session revoked")
	return nil
}
