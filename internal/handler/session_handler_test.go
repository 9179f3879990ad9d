package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/handler"
	"github.com/classpulse/quiz-go-api/internal/service"
)

type mockSessionService struct {
	startResponse  dto.SessionStartResponse
	startErr       error
	ack            dto.AnswerAck
	ackErr         error
	navigateErr    error
	result         dto.SubmissionResultResponse
	completeErr    error
	state          dto.SessionStateResponse
	stateErr       error
	lastQuizID     uint
	lastStudentID  uint
	lastQuestionID uint
}

func (m *mockSessionService) Start(_ context.Context, quizID, studentID uint, _ string) (dto.SessionStartResponse, error) {
	m.lastQuizID = quizID
	m.lastStudentID = studentID
	return m.startResponse, m.startErr
}

func (m *mockSessionService) SubmitAnswer(_ context.Context, _, studentID, questionID, _ uint) (dto.AnswerAck, error) {
	m.lastStudentID = studentID
	m.lastQuestionID = questionID
	return m.ack, m.ackErr
}

func (m *mockSessionService) Navigate(_ context.Context, _, _, questionID uint) error {
	m.lastQuestionID = questionID
	return m.navigateErr
}

func (m *mockSessionService) Complete(_ context.Context, _ uint) (dto.SubmissionResultResponse, error) {
	return m.result, m.completeErr
}

func (m *mockSessionService) State(_ context.Context, _ uint) (dto.SessionStateResponse, error) {
	return m.state, m.stateErr
}

func (m *mockSessionService) RecordExpiredAnswer(context.Context, uint, uint, uint) {}
func (m *mockSessionService) CompleteExpired(context.Context, uint)                {}

func sessionTestApp(svc service.SessionService, userID uint, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	handler.NewSessionHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard)).Register(group)
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSessionHandler_StartCreated(t *testing.T) {
	svc := &mockSessionService{startResponse: dto.SessionStartResponse{SubmissionID: 5, QuizID: 10, QuestionCount: 2}}
	app := sessionTestApp(svc, 42, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/10/sessions", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, uint(10), svc.lastQuizID)
	require.Equal(t, uint(42), svc.lastStudentID)

	var response struct {
		Success bool                     `json:"success"`
		Data    dto.SessionStartResponse `json:"data"`
		Message string                   `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "quiz session started", response.Message)
	require.Equal(t, uint(5), response.Data.SubmissionID)
}

func TestSessionHandler_StartResumedReturnsOK(t *testing.T) {
	svc := &mockSessionService{startResponse: dto.SessionStartResponse{SubmissionID: 5, Resumed: true}}
	app := sessionTestApp(svc, 42, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/10/sessions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionHandler_StartErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"quiz missing", service.ErrQuizNotFound, fiber.StatusNotFound},
		{"not live", service.ErrQuizNotLive, fiber.StatusForbidden},
		{"deadline passed", service.ErrDeadlinePassed, fiber.StatusForbidden},
		{"not enrolled", service.ErrNotEnrolled, fiber.StatusForbidden},
		{"time expired", service.ErrQuizTimeExpired, fiber.StatusForbidden},
		{"already completed", service.ErrAlreadyCompleted, fiber.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSessionService{startErr: tc.err}
			app := sessionTestApp(svc, 42, "student")

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/10/sessions", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestSessionHandler_StartRequiresAuthentication(t *testing.T) {
	app := sessionTestApp(&mockSessionService{}, 0, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/10/sessions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionHandler_SubmitAnswer(t *testing.T) {
	svc := &mockSessionService{ack: dto.AnswerAck{SubmissionID: 5, QuestionID: 100, OptionID: 1000}}
	app := sessionTestApp(svc, 42, "student")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/5/answers", dto.AnswerSubmitRequest{QuestionID: 100, OptionID: 1000}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(100), svc.lastQuestionID)
}

func TestSessionHandler_SubmitAnswerValidation(t *testing.T) {
	app := sessionTestApp(&mockSessionService{}, 42, "student")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/5/answers", map[string]uint{"question_id": 100}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandler_SubmitAnswerWrongQuestion(t *testing.T) {
	svc := &mockSessionService{ackErr: service.ErrQuestionNotInQuiz}
	app := sessionTestApp(svc, 42, "student")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/5/answers", dto.AnswerSubmitRequest{QuestionID: 999, OptionID: 1}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandler_CompleteIsIdempotentForCaller(t *testing.T) {
	svc := &mockSessionService{
		state:       dto.SessionStateResponse{SubmissionID: 5, StudentID: 42},
		result:      dto.SubmissionResultResponse{SubmissionID: 5, TotalScore: 7, MaxScore: 10},
		completeErr: service.ErrAlreadyCompleted,
	}
	app := sessionTestApp(svc, 42, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/5/complete", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                         `json:"success"`
		Data    dto.SubmissionResultResponse `json:"data"`
		Message string                       `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, 7, response.Data.TotalScore)
}

func TestSessionHandler_CompleteRejectsWrongOwner(t *testing.T) {
	svc := &mockSessionService{state: dto.SessionStateResponse{SubmissionID: 5, StudentID: 77}}
	app := sessionTestApp(svc, 42, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/5/complete", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSessionHandler_StateVisibleToProfessor(t *testing.T) {
	svc := &mockSessionService{state: dto.SessionStateResponse{SubmissionID: 5, StudentID: 77}}

	studentApp := sessionTestApp(svc, 42, "student")
	resp, err := studentApp.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/5", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	professorApp := sessionTestApp(svc, 7, "professor")
	resp, err = professorApp.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/5", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionHandler_BadSubmissionIDParam(t *testing.T) {
	app := sessionTestApp(&mockSessionService{}, 42, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
