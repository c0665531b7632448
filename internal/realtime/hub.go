package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/metrics"
	"github.com/colonyops/okr/internal/service"
	"github.com/colonyops/okr/pkg/randid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 32
)

// Hub tracks websocket clients and pushes state changes to all of them.
type Hub struct {
	objectives *service.ObjectiveService
	progress   *service.ProgressService
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. m may be nil.
func NewHub(objectives *service.ObjectiveService, progress *service.ProgressService, m *metrics.Metrics, now func() time.Time, log zerolog.Logger) *Hub {
	return &Hub{
		objectives: objectives,
		progress:   progress,
		dispatcher: NewDispatcher(objectives, progress, now),
		metrics:    m,
		log:        log.With().Str("component", "ws-hub").Logger(),
		now:        now,
		clients:    map[*client]struct{}{},
	}
}

// RegisterBus subscribes the hub to state changes. Every objective or key
// result mutation re-sends the full objective list.
func (h *Hub) RegisterBus(bus *eventbus.EventBus) {
	objectives := func() { h.broadcastObjectives() }

	bus.SubscribeObjectiveCreated(func(eventbus.ObjectiveCreatedPayload) { objectives() })
	bus.SubscribeObjectiveUpdated(func(eventbus.ObjectiveUpdatedPayload) { objectives() })
	bus.SubscribeObjectiveDeleted(func(eventbus.ObjectiveDeletedPayload) { objectives() })
	bus.SubscribeKeyResultCreated(func(eventbus.KeyResultCreatedPayload) { objectives() })
	bus.SubscribeKeyResultUpdated(func(eventbus.KeyResultUpdatedPayload) { objectives() })
	bus.SubscribeKeyResultDeleted(func(eventbus.KeyResultDeletedPayload) { objectives() })
	bus.SubscribeKeyResultCheckedIn(func(eventbus.KeyResultCheckedInPayload) { objectives() })
	bus.SubscribeCommentAdded(func(eventbus.CommentAddedPayload) { objectives() })

	bus.SubscribeUserUpdated(func(eventbus.UserUpdatedPayload) {
		h.broadcast(TypeUsersUpdated, h.objectives.ListUsers())
	})

	bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		h.broadcast(TypeNotification, NotificationData{
			Level:       p.Level,
			Message:     p.Message,
			ObjectiveID: p.ObjectiveID,
			KeyResultID: p.KeyResultID,
		})
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:   randid.Generate(8),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	ctx := logging.WithClientID(context.Background(), c.id)

	h.add(c)
	h.log.Info().Ctx(ctx).Str("remote", r.RemoteAddr).Msg("client connected")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writePump(c)
	}()

	if reply, err := h.dispatcher.Handle(ctx, Envelope{Type: TypeGetInitialData}); err == nil {
		h.sendTo(c, *reply)
	}

	h.readPump(ctx, c)
	h.remove(c)
	h.log.Info().Ctx(ctx).Msg("client disconnected")
}

// Close disconnects every client and waits for their writers to stop.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected()
}

// remove unregisters c and closes its send queue. Safe to call twice.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		h.metrics.ClientDisconnected()
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Ctx(ctx).Err(err).Msg("read failed")
			}
			return
		}

		reply, err := h.dispatcher.Handle(ctx, env)
		if err != nil {
			h.log.Warn().Ctx(ctx).Err(err).Str("type", env.Type).Msg("request rejected")
			if frame, encErr := NewEnvelope(TypeError, ErrorData{Request: env.Type, Message: err.Error()}); encErr == nil {
				h.sendTo(c, frame)
			}
			continue
		}
		if reply != nil {
			h.sendTo(c, *reply)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) broadcastObjectives() {
	views, err := h.progress.Overview(service.ObjectiveFilter{IncludeArchived: true}, h.now())
	if err != nil {
		h.log.Error().Err(err).Msg("build objective overview")
		return
	}
	h.broadcast(TypeObjectivesUpdated, views)
}

func (h *Hub) broadcast(typ string, data any) {
	env, err := NewEnvelope(typ, data)
	if err != nil {
		h.log.Error().Err(err).Msg("encode broadcast")
		return
	}
	msg, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Msg("encode broadcast")
		return
	}

	var slow []*client
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn().Str("client_id", c.id).Msg("dropping slow client")
		h.remove(c)
	}
}

func (h *Hub) sendTo(c *client, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Msg("encode reply")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
