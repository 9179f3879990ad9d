package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/classpulse/quiz-go-api/internal/middleware"
	"github.com/classpulse/quiz-go-api/internal/service"
)

// LiveHandler wires the websocket upgrade for live quiz viewers.
type LiveHandler struct {
	hub    service.LiveHub
	logger zerolog.Logger
}

// NewLiveHandler builds a live handler instance.
func NewLiveHandler(hub service.LiveHub, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		hub:    hub,
		logger: logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register binds the live routes under the provided router group.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn.Locals("user_id"))
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	role := fmt.Sprint(conn.Locals("user_role"))
	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	rooms := viewerRooms(conn, userID, role)

	opts := service.LiveConnectionOptions{
		UserID:        userID,
		Role:          role,
		Rooms:         rooms,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Strs("rooms", rooms).Msg("live websocket connected")
	h.hub.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Msg("live websocket disconnected")
}

// viewerRooms resolves the rooms a connection subscribes to from its query
// parameters. Professors additionally join their own notification room so
// completion events reach their dashboard without an explicit subscription.
func viewerRooms(conn *websocket.Conn, userID, role string) []string {
	rooms := make([]string, 0, 3)

	if quizID := parseConnUint(conn, "quiz_id"); quizID > 0 {
		rooms = append(rooms, service.QuizRoom(quizID))
	}
	if classID := parseConnUint(conn, "class_id"); classID > 0 {
		rooms = append(rooms, service.ClassRoom(classID))
	}

	if role == "professor" {
		if id, err := strconv.ParseUint(userID, 10, 64); err == nil && id > 0 {
			rooms = append(rooms, service.ProfessorRoom(uint(id)))
		}
	}

	return rooms
}

func parseConnUint(conn *websocket.Conn, key string) uint {
	raw := strings.TrimSpace(conn.Query(key))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}
