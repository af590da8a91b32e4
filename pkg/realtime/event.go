// Package realtime fans published events out to subscribed admin
// connections over WebSocket. A single hub multiplexes all topics; each
// connection holds its own subscription set.
package realtime

import (
	"encoding/json"
	"time"
)

// Topic is a named stream a connection may subscribe to.
type Topic string

const (
	TopicMetrics       Topic = "metrics"
	TopicActivity      Topic = "activity"
	TopicNotifications Topic = "notifications"
	TopicSecurity      Topic = "security"
	TopicSystem        Topic = "system"
)

// Valid reports whether the topic belongs to the closed set.
func (t Topic) Valid() bool {
	switch t {
	case TopicMetrics, TopicActivity, TopicNotifications, TopicSecurity, TopicSystem:
		return true
	}
	return false
}

// Server-initiated event type names.
const (
	EventDashboardMetrics  = "dashboard:metrics"
	EventDashboardActivity = "dashboard:activity"
	EventNotificationNew   = "notification:new"
	EventSecurityAlert     = "security:alert"
	EventSystemHealth      = "system:health"
	EventSystemUpdate      = "system:update"
)

// ServerEvent is the shape of every server-to-client message.
type ServerEvent struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientFrame is what a connected client may send. Subscription requests
// arrive as type "subscribe:<topic>"; unsubscribes carry the channel
// separately.
type ClientFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}

// ParseClientFrame decodes one inbound frame.
func ParseClientFrame(data []byte) (*ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// Publisher is what the command, aggregation and security layers publish
// through.
type Publisher interface {
	Publish(topic Topic, eventType string, data any)
}
