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

// SessionHandler manages the quiz attempt endpoints.
type SessionHandler struct {
	service   service.SessionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionHandler builds a session handler instance.
func NewSessionHandler(service service.SessionService, validator *validator.Validate, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("/quizzes/:quizID/sessions", h.start)
	router.Post("/sessions/:id/answers", h.submitAnswer)
	router.Post("/sessions/:id/navigate", h.navigate)
	router.Post("/sessions/:id/complete", h.complete)
	router.Get("/sessions/:id", h.state)
}

func (h *SessionHandler) start(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	session, err := h.service.Start(c.Context(), quizID, studentID, c.IP())
	if err != nil {
		return h.handleError(c, err)
	}

	message := "quiz session started"
	status := fiber.StatusCreated
	if session.Resumed {
		message = "quiz session resumed"
		status = fiber.StatusOK
	}

	requestLogger(h.logger, c).Info().
		Uint("quiz_id", quizID).
		Uint("student_id", studentID).
		Uint("submission_id", session.SubmissionID).
		Bool("resumed", session.Resumed).
		Msg("session start handled")

	return utils.SendSuccessWithStatus(c, status, message, session)
}

func (h *SessionHandler) submitAnswer(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.AnswerSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ack, err := h.service.SubmitAnswer(c.Context(), submissionID, studentID, payload.QuestionID, payload.OptionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer recorded", ack)
}

func (h *SessionHandler) navigate(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.NavigateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Navigate(c.Context(), submissionID, studentID, payload.QuestionID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question entered", fiber.Map{
		"submission_id": submissionID,
		"question_id":   payload.QuestionID,
	})
}

func (h *SessionHandler) complete(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	state, err := h.service.State(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}
	if state.StudentID != studentID {
		return utils.SendError(c, fiber.StatusForbidden, "submission belongs to another student")
	}

	result, err := h.service.Complete(c.Context(), submissionID)
	if err != nil {
		// Completing twice is not an error for the caller; the stored result
		// is returned either way.
		if errors.Is(err, service.ErrAlreadyCompleted) {
			return utils.SendSuccess(c, "submission already completed", result)
		}
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("submission_id", submissionID).
		Int("total_score", result.TotalScore).
		Int("max_score", result.MaxScore).
		Msg("submission completed")

	return utils.SendSuccess(c, "submission completed", result)
}

func (h *SessionHandler) state(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.service.State(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	role := userRoleFromContext(c)
	if state.StudentID != userIDFromContext(c) && role != "professor" && role != "admin" {
		return utils.SendError(c, fiber.StatusForbidden, "submission belongs to another student")
	}

	return utils.SendSuccess(c, "session state retrieved", state)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrOptionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "option not found")
	case errors.Is(err, service.ErrQuizNotLive):
		return utils.SendError(c, fiber.StatusForbidden, "quiz is not live")
	case errors.Is(err, service.ErrDeadlinePassed):
		return utils.SendError(c, fiber.StatusForbidden, "quiz deadline has passed")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, "student is not enrolled in this class")
	case errors.Is(err, service.ErrQuizTimeExpired):
		return utils.SendError(c, fiber.StatusForbidden, "quiz time has expired")
	case errors.Is(err, service.ErrNotSubmissionOwner):
		return utils.SendError(c, fiber.StatusForbidden, "submission belongs to another student")
	case errors.Is(err, service.ErrSubmissionCompleted):
		return utils.SendError(c, fiber.StatusForbidden, "submission is already completed")
	case errors.Is(err, service.ErrAlreadyCompleted):
		return utils.SendError(c, fiber.StatusConflict, "quiz already completed")
	case errors.Is(err, service.ErrQuestionNotInQuiz):
		return utils.SendError(c, fiber.StatusBadRequest, "question does not belong to this quiz")
	case errors.Is(err, service.ErrOptionNotInQuestion):
		return utils.SendError(c, fiber.StatusBadRequest, "option does not belong to this question")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
