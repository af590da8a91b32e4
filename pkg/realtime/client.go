package realtime

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// A connection silent for longer than this is disconnected
	heartbeatWait = 60 * time.Second

	// Send protocol pings with this period to keep intermediaries from
	// dropping an idle connection and to surface dead peers as write
	// errors
	pingPeriod = (heartbeatWait * 9) / 10

	// Maximum message size allowed from peer; clients only send small
	// control frames
	maxMessageSize = 512

	// Queued frames beyond this threshold push out the oldest
	// non-security frame
	maxQueued = 1024
)

// outFrame is one queued outbound frame. Protected frames (security
// alerts, protocol replies) are never dropped under backpressure.
type outFrame struct {
	protected bool
	payload   []byte
}

// Client is one WebSocket admin connection. It owns its subscription set
// and outbound queue; the hub never blocks on a slow client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	id  string
	sub string
	exp time.Time

	// heartbeat bounds client silence; only inbound frames extend it
	heartbeat time.Duration

	mu     sync.Mutex
	topics map[Topic]bool
	queue  []outFrame
	closed bool

	// notify wakes the write pump; capacity 1 so signals coalesce
	notify chan struct{}

	disconnectOnce sync.Once

	logger *slog.Logger
}

// NewClient creates a client for an authenticated connection. sub and
// exp come from the verified handshake token.
func NewClient(hub *Hub, conn *websocket.Conn, sub string, exp time.Time, logger *slog.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		id:        uuid.New().String(),
		sub:       sub,
		exp:       exp,
		heartbeat: heartbeatWait,
		topics:    make(map[Topic]bool),
		notify:    make(chan struct{}, 1),
		logger:    logger,
	}
}

// Start registers the client and begins its read and write pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump reads control frames from the connection. The read deadline
// is the heartbeat: only client frames extend it, so a connection that
// sends nothing (not even the periodic ping frame) is torn down once
// the window lapses. Protocol-level pongs do not count as liveness.
//
// The application ensures that there is at most one reader on a
// connection by executing all reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.heartbeat))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error",
					slog.String("sessionID", c.id),
					slog.String("error", err.Error()))
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat))

		frame, err := ParseClientFrame(data)
		if err != nil {
			c.logger.Warn("invalid frame",
				slog.String("sessionID", c.id),
				slog.String("error", err.Error()))
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame *ClientFrame) {
	switch {
	case frame.Type == "ping":
		payload, err := json.Marshal(ServerEvent{
			Type:      "pong",
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return
		}
		c.enqueue(outFrame{protected: true, payload: payload})

	case strings.HasPrefix(frame.Type, "subscribe:"):
		topic := Topic(strings.TrimPrefix(frame.Type, "subscribe:"))
		if !topic.Valid() {
			c.logger.Warn("subscribe to unknown topic",
				slog.String("sessionID", c.id),
				slog.String("topic", string(topic)))
			return
		}
		c.mu.Lock()
		c.topics[topic] = true
		c.mu.Unlock()

	case frame.Type == "unsubscribe":
		c.mu.Lock()
		delete(c.topics, Topic(frame.Channel))
		c.mu.Unlock()

	default:
		c.logger.Warn("unknown frame type",
			slog.String("sessionID", c.id),
			slog.String("frameType", frame.Type))
	}
}

// writePump drains the outbound queue to the connection and keeps the
// peer alive with pings.
//
// The application ensures that there is at most one writer to a
// connection by executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.notify:
			for {
				frame, ok, done := c.dequeue()
				if done {
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if !ok {
					break
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, frame.payload); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dequeue pops the next frame. done is true once the client is closed
// and the queue is drained.
func (c *Client) dequeue() (frame outFrame, ok, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return outFrame{}, false, c.closed
	}
	frame = c.queue[0]
	c.queue = c.queue[1:]
	return frame, true, false
}

// Deliver queues one published frame if this client is subscribed to
// the topic. Implements the hub Session interface.
func (c *Client) Deliver(topic Topic, payload []byte) {
	c.mu.Lock()
	subscribed := c.topics[topic]
	c.mu.Unlock()
	if !subscribed {
		return
	}
	c.enqueue(outFrame{protected: topic == TopicSecurity, payload: payload})
}

// enqueue appends a frame, evicting the oldest unprotected frame when
// the queue is at the threshold. A protected frame is always queued;
// an unprotected one is dropped when only protected frames remain.
func (c *Client) enqueue(frame outFrame) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if len(c.queue) >= maxQueued {
		evicted := false
		for i, queued := range c.queue {
			if !queued.protected {
				c.queue = append(c.queue[:i], c.queue[i+1:]...)
				evicted = true
				break
			}
		}
		if evicted {
			c.logger.Warn("send queue full, dropped oldest frame",
				slog.String("sessionID", c.id))
		} else if !frame.protected {
			c.mu.Unlock()
			c.logger.Warn("send queue full of protected frames, dropping incoming frame",
				slog.String("sessionID", c.id))
			return
		}
	}
	c.queue = append(c.queue, frame)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Disconnect tears the connection down. The read pump then unregisters
// the client from the hub. Safe to call more than once.
func (c *Client) Disconnect(reason string) {
	c.disconnectOnce.Do(func() {
		c.logger.Info("disconnecting session",
			slog.String("sessionID", c.id),
			slog.String("sub", c.sub),
			slog.String("reason", reason))
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
		c.conn.Close()
	})
}

// Close marks the client closed so the write pump drains and exits.
// Implements the hub Session interface.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// ID returns the session's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Subject returns the authenticated principal's subject.
func (c *Client) Subject() string {
	return c.sub
}

// TokenExpiry returns when the handshake token expires.
func (c *Client) TokenExpiry() time.Time {
	return c.exp
}
