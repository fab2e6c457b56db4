package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/service"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

// AuditHandler exposes the audit trail to staff.
type AuditHandler struct {
	audit  service.AuditService
	logger zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audit service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches audit routes to the router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:entity/:id", h.history)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.audit.List(requestContext(c), dto.AuditListRequest{
		ActorID:    c.Query("actor_id"),
		Operation:  c.Query("op"),
		EntityType: c.Query("entity_type"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to list audit entries")
	}

	return utils.OK(c, response.Items, "audit entries retrieved", response.Pagination)
}

func (h *AuditHandler) history(c *fiber.Ctx) error {
	entityType := models.EntityType(c.Params("entity"))
	if !entityType.Valid() {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown entity type")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	entries, err := h.audit.History(requestContext(c), entityType, id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to load audit history")
	}

	return utils.SendSuccess(c, "audit history retrieved", entries)
}
