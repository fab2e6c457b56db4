package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/middleware"
	"github.com/noah-isme/extension-hours-api/internal/service"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryBool(c *fiber.Ctx, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && parsed
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parsePaging(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, errors.New("invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return 0, 0, errors.New("invalid page size")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	} else if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// currentSession returns the request session; routes are mounted behind
// middleware.RequireSession so a miss means the handler was wired without it.
func currentSession(c *fiber.Ctx) (auth.Session, bool) {
	return middleware.SessionFromContext(c)
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// writeError maps domain and auth errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 with fallback as message.
func writeError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var notFound *service.NotFoundError
	var failure *auth.AuthFailure

	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInactiveReference), errors.Is(err, service.ErrInvalidAuditEntry):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &notFound):
		return utils.SendError(c, fiber.StatusNotFound, notFound.Entity+" not found")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrAlreadyValidated), errors.Is(err, service.ErrUsernameTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrFederatedDisabled):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.As(err, &failure):
		return writeAuthFailure(c, failure)
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func writeAuthFailure(c *fiber.Ctx, failure *auth.AuthFailure) error {
	details := fiber.Map{"reason": auth.Outcome(failure), "retryable": failure.Retryable()}

	switch {
	case errors.Is(failure, auth.ErrDomainRejected), errors.Is(failure, auth.ErrUnrecognizedIdentity):
		return utils.Fail(c, fiber.StatusForbidden, failure.Reason.Error(), details)
	case errors.Is(failure, auth.ErrProviderError):
		return utils.Fail(c, fiber.StatusBadGateway, "identity provider unavailable, please retry", details)
	default:
		return utils.Fail(c, fiber.StatusUnauthorized, failure.Reason.Error(), details)
	}
}
