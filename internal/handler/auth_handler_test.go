package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/handler"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/service"
)

type stubSessionService struct {
	loginErr  error
	loggedOut []string
}

func (s *stubSessionService) Login(_ context.Context, req dto.LoginRequest) (dto.SessionResponse, error) {
	if s.loginErr != nil {
		return dto.SessionResponse{}, s.loginErr
	}
	return dto.SessionResponse{Token: "token-" + req.Username, TokenType: "Bearer"}, nil
}

func (s *stubSessionService) Resolve(context.Context, string) (auth.Session, error) {
	return auth.Session{}, auth.NewFailure(auth.ErrSessionInvalid, nil)
}

func (s *stubSessionService) Logout(_ context.Context, session auth.Session) error {
	s.loggedOut = append(s.loggedOut, session.ID)
	return nil
}

type stubCredentialService struct {
	service.CredentialService
	createErr error
}

func (s *stubCredentialService) CreateUser(_ context.Context, _ auth.Session, req dto.CreateUserRequest) (dto.UserResponse, error) {
	if s.createErr != nil {
		return dto.UserResponse{}, s.createErr
	}
	return dto.UserResponse{ID: 5, Username: req.Username, Role: req.Role}, nil
}

type stubFederatedService struct {
	disabled    bool
	callbackErr error
	lastParams  service.CallbackParams
}

func (s *stubFederatedService) Enabled() bool { return !s.disabled }

func (s *stubFederatedService) Start(context.Context) (dto.FederatedStartResponse, string, error) {
	if s.disabled {
		return dto.FederatedStartResponse{}, "", service.ErrFederatedDisabled
	}
	return dto.FederatedStartResponse{
		AuthorizationURL: "https://login.example.com/authorize?state=state-123",
		ExpiresAt:        time.Now().Add(10 * time.Minute),
	}, "state-123", nil
}

func (s *stubFederatedService) Callback(_ context.Context, params service.CallbackParams) (dto.SessionResponse, error) {
	s.lastParams = params
	if s.callbackErr != nil {
		return dto.SessionResponse{}, s.callbackErr
	}
	return dto.SessionResponse{Token: "federated-token", TokenType: "Bearer"}, nil
}

func newAuthApp(sessions *stubSessionService, credentials *stubCredentialService, federated *stubFederatedService, session *auth.Session) *fiber.App {
	app := fiber.New()
	h := handler.NewAuthHandler(sessions, credentials, federated, handler.CookieConfig{}, testLogger())

	requireSession := func(c *fiber.Ctx) error {
		if session == nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return withSession(*session)(c)
	}
	h.Register(app.Group("/api/v1/auth"), requireSession, nil)
	h.RegisterUsers(app.Group("/api/v1/users", requireSession))
	return app
}

func TestLoginMapsInvalidCredentials(t *testing.T) {
	sessions := &stubSessionService{}
	app := newAuthApp(sessions, &stubCredentialService{}, &stubFederatedService{}, nil)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Username: "admin", Password: "1234"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	payload := decodeResponse(t, resp)
	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(payload.Data, &session))
	require.Equal(t, "token-admin", session.Token)

	sessions.loginErr = auth.NewFailure(auth.ErrInvalidCredentials, errors.New("hash mismatch"))
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Username: "admin", Password: "bad"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	payload = decodeResponse(t, resp)
	require.Equal(t, "invalid credentials", payload.Message)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Details, &details))
	require.Equal(t, "invalid_credentials", details["reason"])
	require.Equal(t, true, details["retryable"])
}

func TestLogoutAndMeUseSession(t *testing.T) {
	sessions := &stubSessionService{}
	current := sessionFor(models.RoleStudent, "estudiante")
	app := newAuthApp(sessions, &stubCredentialService{}, &stubFederatedService{}, &current)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	payload := decodeResponse(t, resp)
	require.Contains(t, string(payload.Data), `"identifier":"estudiante"`)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{current.ID}, sessions.loggedOut)

	anonymous := newAuthApp(sessions, &stubCredentialService{}, &stubFederatedService{}, nil)
	resp = doJSON(t, anonymous, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestFederatedStartBindsStateCookie(t *testing.T) {
	federated := &stubFederatedService{}
	app := newAuthApp(&stubSessionService{}, &stubCredentialService{}, federated, nil)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/auth/microsoft/start", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stateCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "ext_oauth_state" {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie)
	require.Equal(t, "state-123", stateCookie.Value)
	require.True(t, stateCookie.HttpOnly)

	redirect := doJSON(t, app, http.MethodGet, "/api/v1/auth/microsoft/start?redirect=true", nil)
	require.Equal(t, fiber.StatusFound, redirect.StatusCode)
	require.Contains(t, redirect.Header.Get("Location"), "login.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/microsoft/callback?code=abc&state=state-123", nil)
	req.AddCookie(&http.Cookie{Name: "ext_oauth_state", Value: "state-123"})
	callback, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, callback.StatusCode)
	require.Equal(t, "abc", federated.lastParams.Code)
	require.Equal(t, "state-123", federated.lastParams.BoundState)
}

func TestFederatedCallbackMapsFailures(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: auth.NewFailure(auth.ErrStateMismatch, nil), status: fiber.StatusUnauthorized},
		{err: auth.NewFailure(auth.ErrDomainRejected, errors.New("gmail.com")), status: fiber.StatusForbidden},
		{err: auth.NewFailure(auth.ErrUnrecognizedIdentity, nil), status: fiber.StatusForbidden},
		{err: auth.NewFailure(auth.ErrProviderError, errors.New("timeout")), status: fiber.StatusBadGateway},
	}

	for _, tc := range cases {
		federated := &stubFederatedService{callbackErr: tc.err}
		app := newAuthApp(&stubSessionService{}, &stubCredentialService{}, federated, nil)

		resp := doJSON(t, app, http.MethodGet, "/api/v1/auth/microsoft/callback?error=access_denied", nil)
		require.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		require.Equal(t, "access_denied", federated.lastParams.Error)
		require.Empty(t, federated.lastParams.BoundState)
	}

	app := newAuthApp(&stubSessionService{}, &stubCredentialService{}, &stubFederatedService{disabled: true}, nil)
	resp := doJSON(t, app, http.MethodGet, "/api/v1/auth/microsoft/start", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateUserMapsConflicts(t *testing.T) {
	admin := sessionFor(models.RoleAdmin, "admin")
	credentials := &stubCredentialService{}
	app := newAuthApp(&stubSessionService{}, credentials, &stubFederatedService{}, &admin)

	body := dto.CreateUserRequest{Username: "ana", Password: "secret", Role: "Student"}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	credentials.createErr = service.ErrUsernameTaken
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", body)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
