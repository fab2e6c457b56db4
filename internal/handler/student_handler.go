package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/service"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

// StudentHandler wires student endpoints.
type StudentHandler struct {
	students service.StudentService
	records  service.RecordService
	logger   zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, records service.RecordService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students: students,
		records:  records,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/restore", h.restore)
	router.Get("/:id/status", h.status)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.students.List(requestContext(c), session, dto.EntityListRequest{
		Search:          c.Query("search"),
		IncludeInactive: parseQueryBool(c, "include_inactive"),
		Page:            page,
		PageSize:        pageSize,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to list students")
	}

	return utils.OK(c, response.Items, "students retrieved", response.Pagination)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.students.Create(requestContext(c), session, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to create student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	student, err := h.students.Get(requestContext(c), session, id, parseQueryBool(c, "include_inactive"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to fetch student")
	}

	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.StudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.students.Update(requestContext(c), session, id, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to update student")
	}

	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.students.SoftDelete(requestContext(c), session, id); err != nil {
		return writeError(c, h.logger, err, "failed to delete student")
	}

	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *StudentHandler) restore(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	student, err := h.students.Restore(requestContext(c), session, id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to restore student")
	}

	return utils.SendSuccess(c, "student restored", student)
}

func (h *StudentHandler) status(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	status, err := h.records.Status(requestContext(c), session, id, c.Query("term"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to compute student status")
	}

	return utils.SendSuccess(c, "student status retrieved", status)
}
