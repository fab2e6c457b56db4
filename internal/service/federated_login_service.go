package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/observability"
)

// CallbackParams carries the provider redirect and the state bound to the browser.
type CallbackParams struct {
	Code             string
	State            string
	BoundState       string
	Error            string
	ErrorDescription string
}

// FederatedLoginService drives the Authorization Code + PKCE login end to end.
type FederatedLoginService interface {
	Enabled() bool
	Start(ctx context.Context) (dto.FederatedStartResponse, string, error)
	Callback(ctx context.Context, params CallbackParams) (dto.SessionResponse, error)
}

type federatedLoginService struct {
	flow     *auth.PKCEFlow
	states   auth.StateStore
	resolver *auth.IdentityResolver
	admins   auth.AdminAllowlist
	sessions *auth.SessionManager
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewFederatedLoginService constructs the service. A nil flow disables federated login.
func NewFederatedLoginService(flow *auth.PKCEFlow, states auth.StateStore, resolver *auth.IdentityResolver, admins auth.AdminAllowlist, sessions *auth.SessionManager, logger zerolog.Logger) FederatedLoginService {
	return &federatedLoginService{
		flow:     flow,
		states:   states,
		resolver: resolver,
		admins:   admins,
		sessions: sessions,
		tracer:   otel.Tracer("github.com/noah-isme/extension-hours-api/internal/service/federated_login"),
		logger:   logger.With().Str("component", "federated_login_service").Logger(),
	}
}

func (s *federatedLoginService) Enabled() bool {
	return s.flow != nil
}

// Start creates a login attempt and returns the provider URL plus the state token
// the caller must bind to the browser.
func (s *federatedLoginService) Start(ctx context.Context) (dto.FederatedStartResponse, string, error) {
	if !s.Enabled() {
		return dto.FederatedStartResponse{}, "", ErrFederatedDisabled
	}

	attempt, err := s.flow.Start()
	if err != nil {
		return dto.FederatedStartResponse{}, "", err
	}
	if err := s.states.Save(ctx, attempt.PKCE); err != nil {
		attempt.Fail()
		return dto.FederatedStartResponse{}, "", fmt.Errorf("save login attempt: %w", err)
	}

	s.logger.Debug().Bool("public_client", s.flow.PublicClient()).Msg("federated login started")
	return dto.FederatedStartResponse{
		AuthorizationURL: attempt.AuthorizationURL,
		ExpiresAt:        attempt.PKCE.ExpiresAt,
	}, attempt.PKCE.State, nil
}

func (s *federatedLoginService) Callback(ctx context.Context, params CallbackParams) (dto.SessionResponse, error) {
	if !s.Enabled() {
		return dto.SessionResponse{}, ErrFederatedDisabled
	}

	ctx, span := s.tracer.Start(ctx, "federated_login.callback")
	defer span.End()

	response, principal, err := s.callback(ctx, params)
	outcome := auth.Outcome(err)
	observability.AuthAttempts().WithLabelValues("federated", outcome).Inc()
	span.SetAttributes(attribute.String("auth.outcome", outcome))

	if err != nil {
		var failure *auth.AuthFailure
		event := s.logger.Warn()
		if !errors.As(err, &failure) {
			event = s.logger.Error()
		}
		event.Err(err).Str("outcome", outcome).Msg("federated login failed")
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Str("principal", principal.Identifier).
		Str("role", principal.Role.String()).
		Msg("federated login succeeded")
	return response, nil
}

func (s *federatedLoginService) callback(ctx context.Context, params CallbackParams) (dto.SessionResponse, auth.Principal, error) {
	bound := strings.TrimSpace(params.BoundState)
	if bound == "" {
		return dto.SessionResponse{}, auth.Principal{}, auth.NewFailure(auth.ErrStateMismatch, errors.New("no login attempt bound to this browser"))
	}

	stored, ok, err := s.states.Take(ctx, bound)
	if err != nil {
		return dto.SessionResponse{}, auth.Principal{}, err
	}
	if !ok {
		return dto.SessionResponse{}, auth.Principal{}, auth.NewFailure(auth.ErrStateMismatch, errors.New("login attempt expired or already used"))
	}
	attempt := s.flow.Resume(stored)

	if params.Error != "" {
		attempt.Fail()
		return dto.SessionResponse{}, auth.Principal{}, auth.NewFailure(auth.ErrProviderError,
			fmt.Errorf("provider returned %s: %s", params.Error, params.ErrorDescription))
	}

	result, err := s.flow.CompleteCallback(ctx, attempt, params.Code, params.State)
	if err != nil {
		return dto.SessionResponse{}, auth.Principal{}, err
	}

	claims := result.Claims
	if claims.Email == "" {
		profile, err := s.flow.FetchProfile(ctx, result.AccessToken)
		if err != nil {
			attempt.Fail()
			return dto.SessionResponse{}, auth.Principal{}, err
		}
		if claims.DisplayName == "" {
			claims.DisplayName = profile.DisplayName
		}
		claims.Email = profile.Email
	}

	principal, err := s.resolver.Resolve(claims, s.admins)
	if err != nil {
		attempt.Fail()
		return dto.SessionResponse{}, auth.Principal{}, err
	}

	token, session, err := s.sessions.Issue(principal)
	if err != nil {
		attempt.Fail()
		return dto.SessionResponse{}, auth.Principal{}, err
	}
	if err := attempt.Complete(); err != nil {
		return dto.SessionResponse{}, auth.Principal{}, err
	}

	return dto.NewSessionResponse(token, session), principal, nil
}
