package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/observability"
)

const liveSendBufferSize = 32

// LiveConnectionOptions wraps metadata extracted during the HTTP upgrade.
type LiveConnectionOptions struct {
	UserID        string
	Role          string
	Rooms         []string
	CorrelationID string
	Context       context.Context
}

// LiveHub is the in-process realization of the Broadcaster capability: a
// websocket hub with named rooms plus a best-effort Redis/NATS relay so peers
// on other nodes can mirror local fanout. Delivery is at-most-once with no
// replay; a viewer joining mid-session sees only what happens next.
type LiveHub interface {
	Broadcaster
	ServeConnection(conn *websocket.Conn, opts LiveConnectionOptions)
	Start(ctx context.Context)
}

type liveHub struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	nodeID      string

	mu    sync.RWMutex
	rooms map[string]map[*liveClient]struct{}
}

type liveClient struct {
	conn    *websocket.Conn
	send    chan dto.LiveEvent
	options LiveConnectionOptions
	closed  chan struct{}
	once    sync.Once
}

// relayEvent is the cross-node wire form. Source lets a node skip its own
// echoes; exactly one of Room or User is set.
type relayEvent struct {
	Source string        `json:"source"`
	Room   string        `json:"room,omitempty"`
	User   string        `json:"user,omitempty"`
	Event  dto.LiveEvent `json:"event"`
	SentAt time.Time     `json:"sent_at"`
}

// NewLiveHub creates the hub. Both redisClient and natsConn may be nil; the
// hub then only serves connections on this node.
func NewLiveHub(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) LiveHub {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":live"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".live"
	}

	return &liveHub{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "live_hub").Logger(),
		tracer:      otel.Tracer("github.com/classpulse/quiz-go-api/internal/service/live"),
		sanitizer:   bluemonday.StrictPolicy(),
		nodeID:      uuid.NewString(),
		rooms:       make(map[string]map[*liveClient]struct{}),
	}
}

func (h *liveHub) Start(ctx context.Context) {
	if h.redis != nil && h.redisStream != "" {
		go h.consumeRedis(ctx)
	}
	if h.nats != nil && h.natsSubject != "" {
		go h.consumeNATS(ctx)
	}
}

// PublishToRoom fans an event out to every local viewer of the room and
// relays it for other nodes. It never blocks on a slow consumer and never
// reports failure to the caller.
func (h *liveHub) PublishToRoom(room string, event dto.LiveEvent) {
	if event.Type == "" {
		return
	}
	event = h.sanitizeEvent(event)

	_, span := h.tracer.Start(context.Background(), "live.publish", trace.WithAttributes(
		attribute.String("live.room", room),
		attribute.String("live.event_type", event.Type),
	))
	defer span.End()

	h.deliverToRoom(room, event)
	go h.relay(relayEvent{Source: h.nodeID, Room: room, Event: event, SentAt: time.Now().UTC()})
}

// PublishToUser targets every connection belonging to one user identity.
func (h *liveHub) PublishToUser(userID string, event dto.LiveEvent) {
	if event.Type == "" || userID == "" {
		return
	}
	event = h.sanitizeEvent(event)

	_, span := h.tracer.Start(context.Background(), "live.publish_user", trace.WithAttributes(
		attribute.String("live.user_id", userID),
		attribute.String("live.event_type", event.Type),
	))
	defer span.End()

	h.deliverToRoom(UserRoom(userID), event)
	go h.relay(relayEvent{Source: h.nodeID, User: userID, Event: event, SentAt: time.Now().UTC()})
}

// ServeConnection registers the connection in its rooms (plus its personal
// user room) and pumps events to it until it drops. Blocks until disconnect.
func (h *liveHub) ServeConnection(conn *websocket.Conn, opts LiveConnectionOptions) {
	client := &liveClient{
		conn:    conn,
		send:    make(chan dto.LiveEvent, liveSendBufferSize),
		options: opts,
		closed:  make(chan struct{}),
	}

	h.register(client)
	observability.WebsocketConnections().Inc()
	defer func() {
		h.unregister(client)
		observability.WebsocketConnections().Dec()
	}()

	go client.writer(h.logger)
	client.reader()
}

func (h *liveHub) register(client *liveClient) {
	rooms := client.options.Rooms
	if client.options.UserID != "" {
		rooms = append(rooms, UserRoom(client.options.UserID))
	}
	client.options.Rooms = rooms

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*liveClient]struct{})
		}
		h.rooms[room][client] = struct{}{}
	}
	h.logger.Debug().Str("user_id", client.options.UserID).Strs("rooms", rooms).Msg("live viewer connected")
}

func (h *liveHub) unregister(client *liveClient) {
	h.mu.Lock()
	for _, room := range client.options.Rooms {
		if clients, ok := h.rooms[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	client.shutdown()
	h.logger.Debug().Str("user_id", client.options.UserID).Msg("live viewer disconnected")
}

func (h *liveHub) deliverToRoom(room string, event dto.LiveEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- event:
		default:
			// Slow consumer: the event is dropped, not queued. The durable
			// ledger is the only history.
			observability.LiveEventsDropped().Inc()
		}
	}
}

// sanitizeEvent scrubs viewer-visible free text (student display names come
// from the identity boundary, not from this service) before fanout.
func (h *liveHub) sanitizeEvent(event dto.LiveEvent) dto.LiveEvent {
	if event.Type != dto.EventLiveAnswerUpdate {
		return event
	}
	var payload dto.LiveAnswerPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return event
	}
	payload.StudentName = strings.TrimSpace(h.sanitizer.Sanitize(payload.StudentName))
	clean := dto.NewLiveEvent(event.Type, payload)
	if clean.Type == "" {
		return event
	}
	return clean
}

// relay mirrors an event to the other nodes. It always runs on its own
// goroutine so a degraded broker can never stall the publishing caller; the
// context timeout bounds how long that goroutine lives.
func (h *liveHub) relay(event relayEvent) {
	if h.redis == nil && h.nats == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to marshal relay event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if h.redis != nil && h.redisStream != "" {
		if err := h.redis.Publish(ctx, h.redisStream, payload).Err(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to relay live event via redis")
		}
	}
	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, payload); err != nil {
			h.logger.Warn().Err(err).Msg("failed to relay live event via nats")
		}
	}
}

func (h *liveHub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			h.logger.Error().Err(err).Msg("live redis subscription closed")
			return
		}
		h.handleRelay([]byte(msg.Payload))
	}
}

func (h *liveHub) consumeNATS(ctx context.Context) {
	sub, err := h.nats.QueueSubscribe(h.natsSubject, "quiz-live", func(msg *nats.Msg) {
		h.handleRelay(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to nats live subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain live nats subscription")
		}
	}()
}

func (h *liveHub) handleRelay(data []byte) {
	var event relayEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Warn().Err(err).Msg("invalid relay event")
		return
	}
	if event.Source == h.nodeID {
		return
	}

	switch {
	case event.Room != "":
		h.deliverToRoom(event.Room, event.Event)
	case event.User != "":
		h.deliverToRoom(UserRoom(event.User), event.Event)
	}
}

func (c *liveClient) writer(logger zerolog.Logger) {
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("live write failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// reader drains inbound frames; viewers do not send application messages, but
// reading is what surfaces close frames and keeps control handling alive.
func (c *liveClient) reader() {
	defer c.shutdown()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *liveClient) shutdown() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
