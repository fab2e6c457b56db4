package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/service"
	"github.com/noah-isme/extension-hours-api/internal/utils"
)

// PlaceHandler wires place endpoints.
type PlaceHandler struct {
	places service.PlaceService
	logger zerolog.Logger
}

// NewPlaceHandler constructs the handler.
func NewPlaceHandler(places service.PlaceService, logger zerolog.Logger) *PlaceHandler {
	return &PlaceHandler{
		places: places,
		logger: logger.With().Str("component", "place_handler").Logger(),
	}
}

// Register attaches place routes to the router group.
func (h *PlaceHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/restore", h.restore)
}

func (h *PlaceHandler) list(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.places.List(requestContext(c), session, dto.EntityListRequest{
		Search:          c.Query("search"),
		IncludeInactive: parseQueryBool(c, "include_inactive"),
		Page:            page,
		PageSize:        pageSize,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to list places")
	}

	return utils.OK(c, response.Items, "places retrieved", response.Pagination)
}

func (h *PlaceHandler) create(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.PlaceCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	place, err := h.places.Create(requestContext(c), session, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to create place")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "place created", place)
}

func (h *PlaceHandler) get(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	place, err := h.places.Get(requestContext(c), session, id, parseQueryBool(c, "include_inactive"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to fetch place")
	}

	return utils.SendSuccess(c, "place retrieved", place)
}

func (h *PlaceHandler) update(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.PlaceUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	place, err := h.places.Update(requestContext(c), session, id, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to update place")
	}

	return utils.SendSuccess(c, "place updated", place)
}

func (h *PlaceHandler) delete(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.places.SoftDelete(requestContext(c), session, id); err != nil {
		return writeError(c, h.logger, err, "failed to delete place")
	}

	return utils.SendSuccess(c, "place deleted", fiber.Map{"id": id})
}

func (h *PlaceHandler) restore(c *fiber.Ctx) error {
	session, ok := currentSession(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	place, err := h.places.Restore(requestContext(c), session, id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to restore place")
	}

	return utils.SendSuccess(c, "place restored", place)
}
