package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/service"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

// RecordHandler wires activity record endpoints.
type RecordHandler struct {
	records service.RecordService
	logger  zerolog.Logger
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(records service.RecordService, logger zerolog.Logger) *RecordHandler {
	return &RecordHandler{
		records: records,
		logger:  logger.With().Str("component", "record_handler").Logger(),
	}
}

// Register attaches record routes to the router group.
func (h *RecordHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/restore", h.restore)
	router.Post("/:id/validate", h.validate)
}

func (h *RecordHandler) list(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.RecordListRequest{
		Term:            strings.TrimSpace(c.Query("term")),
		PendingOnly:     parseQueryBool(c, "pending"),
		IncludeInactive: parseQueryBool(c, "include_inactive"),
		Page:            page,
		PageSize:        pageSize,
	}
	if raw := strings.TrimSpace(c.Query("student_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
		}
		studentID := uint(parsed)
		req.StudentID = &studentID
	}

	response, err := h.records.List(requestContext(c), session, req)
	if err != nil {
		return writeError(c, h.logger, err, "failed to list records")
	}

	return utils.OK(c, response.Items, "records retrieved", response.Pagination)
}

func (h *RecordHandler) create(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.RecordCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.records.Create(requestContext(c), session, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to create record")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "record created", record)
}

func (h *RecordHandler) get(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	record, err := h.records.Get(requestContext(c), session, id, parseQueryBool(c, "include_inactive"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to fetch record")
	}

	return utils.SendSuccess(c, "record retrieved", record)
}

func (h *RecordHandler) update(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RecordUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.records.Update(requestContext(c), session, id, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to update record")
	}

	return utils.SendSuccess(c, "record updated", record)
}

func (h *RecordHandler) delete(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.records.SoftDelete(requestContext(c), session, id); err != nil {
		return writeError(c, h.logger, err, "failed to delete record")
	}

	return utils.SendSuccess(c, "record deleted", fiber.Map{"id": id})
}

func (h *RecordHandler) restore(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	record, err := h.records.Restore(requestContext(c), session, id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to restore record")
	}

	return utils.SendSuccess(c, "record restored", record)
}

func (h *RecordHandler) validate(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	record, err := h.records.Validate(requestContext(c), session, id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to validate record")
	}

	return utils.SendSuccess(c, "record validated", record)
}
