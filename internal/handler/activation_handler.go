package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/service"
	"github.com/classpulse/quiz-go-api/internal/utils"
)

// ActivationHandler exposes the professor-facing live toggle.
type ActivationHandler struct {
	service   service.ActivationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivationHandler builds an activation handler instance.
func NewActivationHandler(service service.ActivationService, validator *validator.Validate, logger zerolog.Logger) *ActivationHandler {
	return &ActivationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "activation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivationHandler) Register(router fiber.Router) {
	router.Post("/quizzes/:quizID/activation", h.toggle)
}

func (h *ActivationHandler) toggle(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	professorID := userIDFromContext(c)
	if professorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ActivationToggleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.service.Toggle(c.Context(), quizID, *payload.IsLiveActive, professorID)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("quiz_id", quizID).
		Bool("is_live_active", state.IsLiveActive).
		Int("notified_students", state.NotifiedStudents).
		Msg("quiz activation toggled")

	message := "quiz deactivated"
	if state.IsLiveActive {
		message = "quiz activated"
	}

	return utils.SendSuccess(c, message, state)
}

func (h *ActivationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrNotQuizOwner):
		return utils.SendError(c, fiber.StatusForbidden, "quiz belongs to another professor")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
