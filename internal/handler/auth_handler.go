package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/service"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

const stateCookieName = "ext_oauth_state"

// CookieConfig controls the cookie binding a browser to its federated login attempt.
type CookieConfig struct {
	Secure bool
	Path   string
}

// AuthHandler wires login, logout and account endpoints.
type AuthHandler struct {
	sessions    service.SessionService
	credentials service.CredentialService
	federated   service.FederatedLoginService
	cookie      CookieConfig
	logger      zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(sessions service.SessionService, credentials service.CredentialService, federated service.FederatedLoginService, cookie CookieConfig, logger zerolog.Logger) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/api/v1/auth"
	}
	return &AuthHandler{
		sessions:    sessions,
		credentials: credentials,
		federated:   federated,
		cookie:      cookie,
		logger:      logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches auth routes. Login and the federated legs are public; the rest
// run behind requireSession. limiter throttles credential and callback attempts.
func (h *AuthHandler) Register(router fiber.Router, requireSession, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("/login", limiter, h.login)
	router.Get("/microsoft/start", h.startFederated)
	router.Get("/microsoft/callback", limiter, h.federatedCallback)

	router.Post("/logout", requireSession, h.logout)
	router.Get("/me", requireSession, h.me)
	router.Post("/password", requireSession, limiter, h.changePassword)
}

// RegisterUsers attaches the admin user management routes.
func (h *AuthHandler) RegisterUsers(router fiber.Router) {
	router.Post("", h.createUser)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.sessions.Login(requestContext(c), payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to log in")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.sessions.Logout(requestContext(c), session); err != nil {
		return writeError(c, h.logger, err, "failed to log out")
	}

	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	return utils.SendSuccess(c, "session retrieved", fiber.Map{
		"principal":  dto.NewPrincipalResponse(session.Principal),
		"expires_at": session.ExpiresAt,
	})
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.credentials.ChangePassword(requestContext(c), session, payload); err != nil {
		return writeError(c, h.logger, err, "failed to change password")
	}

	return utils.SendSuccess(c, "password changed", nil)
}

func (h *AuthHandler) createUser(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.CreateUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.credentials.CreateUser(requestContext(c), session, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to create user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}

// startFederated begins a login attempt. Browsers pass redirect=true to be sent
// straight to the provider; API clients receive the URL as JSON.
func (h *AuthHandler) startFederated(c *fiber.Ctx) error {
	response, state, err := h.federated.Start(requestContext(c))
	if err != nil {
		return writeError(c, h.logger, err, "failed to start federated login")
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     h.cookie.Path,
		Expires:  response.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if parseQueryBool(c, "redirect") {
		return c.Redirect(response.AuthorizationURL, fiber.StatusFound)
	}
	return utils.SendSuccess(c, "federated login started", response)
}

func (h *AuthHandler) federatedCallback(c *fiber.Ctx) error {
	params := service.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		BoundState:       c.Cookies(stateCookieName),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	}

	// The attempt is single-use whatever the outcome.
	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	response, err := h.federated.Callback(requestContext(c), params)
	if err != nil {
		return writeError(c, h.logger, err, "failed to complete federated login")
	}

	return utils.SendSuccess(c, "login successful", response)
}
