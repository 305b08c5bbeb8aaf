package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/service"
	"github.com/noah-isme/aruna-lms-api/internal/utils"
)

// MaterialHandler manages learning material endpoints.
type MaterialHandler struct {
	service   service.MaterialService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMaterialHandler builds a material handler instance.
func NewMaterialHandler(service service.MaterialService, validate *validator.Validate, logger zerolog.Logger) *MaterialHandler {
	return &MaterialHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "material_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MaterialHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
}

func (h *MaterialHandler) list(c *fiber.Ctx) error {
	materials, err := h.service.List(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "materials retrieved", materials)
}

func (h *MaterialHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	material, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "material retrieved", material)
}

func (h *MaterialHandler) create(c *fiber.Ctx) error {
	payload := dto.MaterialCreateRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	material, err := h.service.Create(c.Context(), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "material created", material)
}

func (h *MaterialHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MaterialUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	material, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "material updated", material)
}

func (h *MaterialHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrMaterialNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "material not found")
	case errors.Is(err, service.ErrUnsupportedFileType):
		return utils.SendError(c, fiber.StatusBadRequest, "unsupported file type")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
