package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Session is one connected admin, registered with the hub. An interface
// so tests can observe delivery without a socket.
type Session interface {
	Deliver(topic Topic, payload []byte)
	Disconnect(reason string)
	Close()
	ID() string
	Subject() string
	TokenExpiry() time.Time
}

// StatusChecker answers whether an account is currently suspended. The
// authorizer satisfies this.
type StatusChecker interface {
	IsSuspended(ctx context.Context, sub string) bool
}

type published struct {
	topic   Topic
	payload []byte
}

// Hub maintains active sessions and fans published events out to the
// ones subscribed to each event's topic.
type Hub struct {
	clients map[Session]bool

	publish    chan published
	register   chan Session
	unregister chan Session

	mu sync.RWMutex

	status StatusChecker
	logger *slog.Logger

	// sweepEvery bounds how long a suspended or expired principal can
	// stay connected.
	sweepEvery time.Duration

	done chan struct{}
}

// New creates a hub. status may be nil, in which case the sweep only
// enforces token expiry.
func New(status StatusChecker, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[Session]bool),
		publish:    make(chan published, 256),
		register:   make(chan Session),
		unregister: make(chan Session),
		status:     status,
		logger:     logger,
		sweepEvery: 15 * time.Second,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop. Call in a goroutine.
func (h *Hub) Run() {
	h.logger.Info("realtime hub started")
	sweep := time.NewTicker(h.sweepEvery)
	defer sweep.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			h.logger.Info("session registered",
				slog.String("sessionID", client.ID()),
				slog.String("sub", client.Subject()),
				slog.Int("totalSessions", h.SessionCount()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

			h.logger.Info("session unregistered",
				slog.String("sessionID", client.ID()),
				slog.Int("totalSessions", h.SessionCount()))

		case event := <-h.publish:
			h.mu.RLock()
			for client := range h.clients {
				client.Deliver(event.topic, event.payload)
			}
			h.mu.RUnlock()

		case <-sweep.C:
			go h.sweepSessions()

		case <-h.done:
			h.logger.Info("realtime hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[Session]bool)
			h.mu.Unlock()
			return
		}
	}
}

// sweepSessions disconnects sessions whose principal is suspended or
// whose token has expired. Runs off the hub loop because the status
// check may hit the store.
func (h *Hub) sweepSessions() {
	h.mu.RLock()
	sessions := make([]Session, 0, len(h.clients))
	for client := range h.clients {
		sessions = append(sessions, client)
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	for _, session := range sessions {
		if !session.TokenExpiry().IsZero() && now.After(session.TokenExpiry()) {
			session.Disconnect("token expired")
			continue
		}
		if h.status != nil && h.status.IsSuspended(ctx, session.Subject()) {
			session.Disconnect("account suspended")
		}
	}
}

// Register adds a session to the hub.
func (h *Hub) Register(session Session) {
	h.register <- session
}

// Unregister removes a session from the hub.
func (h *Hub) Unregister(session Session) {
	h.unregister <- session
}

// Publish sends one event to every session subscribed to the topic.
// Delivery to one session on one topic preserves publish order.
func (h *Hub) Publish(topic Topic, eventType string, data any) {
	payload, err := json.Marshal(ServerEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to marshal event",
			slog.String("topic", string(topic)),
			slog.String("eventType", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.publish <- published{topic: topic, payload: payload}:
	case <-h.done:
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every session and stops the hub loop.
func (h *Hub) Shutdown() {
	close(h.done)
}
