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

// CourseHandler manages course completion endpoints.
type CourseHandler struct {
	service   service.CompletionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseHandler builds a course handler instance.
func NewCourseHandler(service service.CompletionService, validate *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Post("/:id/finish", h.finish)
}

func (h *CourseHandler) finish(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FinishCourseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	if err := h.service.FinishCourse(c.Context(), courseID, payload.UserID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course finished", nil)
}

func (h *CourseHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTraineeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "trainee not found")
	case errors.Is(err, service.ErrEnrollmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "active enrollment not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrCompletionRequirementsNotMet):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnsupportedEvaluationMode):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
