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

// AttachmentHandler manages material attachment endpoints.
type AttachmentHandler struct {
	service   service.AttachmentOrderService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAttachmentHandler builds an attachment handler instance.
func NewAttachmentHandler(service service.AttachmentOrderService, validate *validator.Validate, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "attachment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AttachmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.attach)
	router.Patch("/:id", h.move)
	router.Delete("/:id", h.detach)
}

func (h *AttachmentHandler) list(c *fiber.Ctx) error {
	ownerID, err := parseQueryUint(c, "owner_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.AttachmentFilter{
		OwnerType: c.Query("owner_type"),
		OwnerID:   ownerID,
	}

	attachments, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachments retrieved", attachments)
}

func (h *AttachmentHandler) attach(c *fiber.Ctx) error {
	var payload dto.AttachRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attachment, err := h.service.Attach(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "material attached", attachment)
}

func (h *AttachmentHandler) move(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MoveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attachment, err := h.service.Move(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachment updated", attachment)
}

func (h *AttachmentHandler) detach(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Detach(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "material detached", nil)
}

func (h *AttachmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAttachmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "attachment not found")
	case errors.Is(err, service.ErrDuplicateAttachment):
		return utils.SendError(c, fiber.StatusBadRequest, "material already attached")
	case errors.Is(err, service.ErrImmutableFieldChanged):
		return utils.SendError(c, fiber.StatusBadRequest, "owner and material references cannot change")
	case errors.Is(err, service.ErrUnknownOwnerType):
		return utils.SendError(c, fiber.StatusBadRequest, "unknown owner type")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
