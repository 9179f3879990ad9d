package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/handler"
	"github.com/classpulse/quiz-go-api/internal/service"
)

type mockActivationService struct {
	state           dto.ActivationStateResponse
	toggleErr       error
	lastQuizID      uint
	lastIsLive      bool
	lastProfessorID uint
}

func (m *mockActivationService) Toggle(_ context.Context, quizID uint, isLive bool, professorID uint) (dto.ActivationStateResponse, error) {
	m.lastQuizID = quizID
	m.lastIsLive = isLive
	m.lastProfessorID = professorID
	return m.state, m.toggleErr
}

func (m *mockActivationService) IsLive(context.Context, uint, bool) bool {
	return m.state.IsLiveActive
}

func activationTestApp(svc service.ActivationService, userID uint) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
			c.Locals("user_role", "professor")
		}
		return c.Next()
	})
	handler.NewActivationHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard)).Register(group)
	return app
}

func TestActivationHandler_ToggleOn(t *testing.T) {
	svc := &mockActivationService{state: dto.ActivationStateResponse{QuizID: 10, IsLiveActive: true, NotifiedStudents: 2}}
	app := activationTestApp(svc, 7)

	req := jsonRequest(t, http.MethodPost, "/api/v1/quizzes/10/activation", map[string]bool{"is_live_active": true})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(10), svc.lastQuizID)
	require.True(t, svc.lastIsLive)
	require.Equal(t, uint(7), svc.lastProfessorID)

	var response struct {
		Success bool                        `json:"success"`
		Data    dto.ActivationStateResponse `json:"data"`
		Message string                      `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "quiz activated", response.Message)
	require.Equal(t, 2, response.Data.NotifiedStudents)
}

func TestActivationHandler_ToggleOffMessage(t *testing.T) {
	svc := &mockActivationService{state: dto.ActivationStateResponse{QuizID: 10, IsLiveActive: false}}
	app := activationTestApp(svc, 7)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/quizzes/10/activation", map[string]bool{"is_live_active": false}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.False(t, svc.lastIsLive)

	var response struct {
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "quiz deactivated", response.Message)
}

func TestActivationHandler_MissingFlagFailsValidation(t *testing.T) {
	app := activationTestApp(&mockActivationService{}, 7)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/quizzes/10/activation", map[string]string{}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestActivationHandler_WrongOwner(t *testing.T) {
	svc := &mockActivationService{toggleErr: service.ErrNotQuizOwner}
	app := activationTestApp(svc, 9)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/quizzes/10/activation", map[string]bool{"is_live_active": true}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestActivationHandler_QuizNotFound(t *testing.T) {
	svc := &mockActivationService{toggleErr: service.ErrQuizNotFound}
	app := activationTestApp(svc, 7)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/quizzes/99/activation", map[string]bool{"is_live_active": true}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
