package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

// mockSession implements the Session interface for testing
type mockSession struct {
	id     string
	sub    string
	exp    time.Time
	topics map[Topic]bool

	mu           sync.Mutex
	frames       [][]byte
	closed       bool
	disconnected string
}

func newMockSession(id string, topics ...Topic) *mockSession {
	set := make(map[Topic]bool)
	for _, t := range topics {
		set[t] = true
	}
	return &mockSession{id: id, sub: "admin-" + id, topics: set}
}

func (m *mockSession) Deliver(topic Topic, payload []byte) {
	if !m.topics[topic] {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.frames = append(m.frames, payload)
	}
}

func (m *mockSession) Disconnect(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = reason
}

func (m *mockSession) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockSession) ID() string             { return m.id }
func (m *mockSession) Subject() string        { return m.sub }
func (m *mockSession) TokenExpiry() time.Time { return m.exp }

func (m *mockSession) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *mockSession) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockSession) DisconnectReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}

// suspendedChecker reports the configured subjects as suspended.
type suspendedChecker struct {
	subs map[string]bool
}

func (s *suspendedChecker) IsSuspended(_ context.Context, sub string) bool {
	return s.subs[sub]
}

func newTestHub(status StatusChecker) *Hub {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
	return New(status, logger)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	session := newMockSession("s1", TopicMetrics)

	hub.Register(session)
	time.Sleep(10 * time.Millisecond)

	if count := hub.SessionCount(); count != 1 {
		t.Errorf("expected 1 session, got %d", count)
	}

	hub.Unregister(session)
	time.Sleep(10 * time.Millisecond)

	if count := hub.SessionCount(); count != 0 {
		t.Errorf("expected 0 sessions, got %d", count)
	}
	if !session.IsClosed() {
		t.Error("session should be closed after unregister")
	}
}

func TestHub_PublishReachesSubscribersOnly(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	metrics := newMockSession("s1", TopicMetrics)
	security := newMockSession("s2", TopicSecurity)
	both := newMockSession("s3", TopicMetrics, TopicSecurity)

	for _, s := range []*mockSession{metrics, security, both} {
		hub.Register(s)
	}
	time.Sleep(10 * time.Millisecond)

	hub.Publish(TopicMetrics, EventDashboardMetrics, map[string]int{"totalUsers": 42})
	time.Sleep(10 * time.Millisecond)

	if count := metrics.FrameCount(); count != 1 {
		t.Errorf("metrics subscriber: expected 1 frame, got %d", count)
	}
	if count := security.FrameCount(); count != 0 {
		t.Errorf("security-only subscriber: expected 0 frames, got %d", count)
	}
	if count := both.FrameCount(); count != 1 {
		t.Errorf("dual subscriber: expected 1 frame, got %d", count)
	}
}

func TestHub_EventShape(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	session := newMockSession("s1", TopicSecurity)
	hub.Register(session)
	time.Sleep(10 * time.Millisecond)

	hub.Publish(TopicSecurity, EventSecurityAlert, map[string]string{"subtype": "IP_SCAN"})
	time.Sleep(10 * time.Millisecond)

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(session.frames))
	}
	var event ServerEvent
	if err := json.Unmarshal(session.frames[0], &event); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if event.Type != EventSecurityAlert {
		t.Errorf("Type = %q, want %q", event.Type, EventSecurityAlert)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestHub_PublishOrderPerTopic(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	session := newMockSession("s1", TopicActivity)
	hub.Register(session)
	time.Sleep(10 * time.Millisecond)

	const n = 50
	for i := 0; i < n; i++ {
		hub.Publish(TopicActivity, EventDashboardActivity, map[string]int{"seq": i})
	}
	time.Sleep(50 * time.Millisecond)

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.frames) != n {
		t.Fatalf("expected %d frames, got %d", n, len(session.frames))
	}
	for i, raw := range session.frames {
		var event struct {
			Data struct {
				Seq int `json:"seq"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if event.Data.Seq != i {
			t.Fatalf("frame %d carries seq %d, order broken", i, event.Data.Seq)
		}
	}
}

func TestHub_SweepDisconnectsSuspended(t *testing.T) {
	checker := &suspendedChecker{subs: map[string]bool{"admin-s2": true}}
	hub := newTestHub(checker)
	hub.sweepEvery = 20 * time.Millisecond
	go hub.Run()
	defer hub.Shutdown()

	healthy := newMockSession("s1")
	suspended := newMockSession("s2")
	hub.Register(healthy)
	hub.Register(suspended)
	time.Sleep(60 * time.Millisecond)

	if reason := suspended.DisconnectReason(); reason == "" {
		t.Error("suspended session was not disconnected")
	}
	if reason := healthy.DisconnectReason(); reason != "" {
		t.Errorf("healthy session disconnected: %q", reason)
	}
}

func TestHub_SweepDisconnectsExpiredToken(t *testing.T) {
	hub := newTestHub(nil)
	hub.sweepEvery = 20 * time.Millisecond
	go hub.Run()
	defer hub.Shutdown()

	expired := newMockSession("s1")
	expired.exp = time.Now().Add(-time.Minute)
	hub.Register(expired)
	time.Sleep(60 * time.Millisecond)

	if reason := expired.DisconnectReason(); reason == "" {
		t.Error("expired session was not disconnected")
	}
}

func TestHub_Shutdown(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()

	sessions := []*mockSession{
		newMockSession("s1", TopicMetrics),
		newMockSession("s2", TopicMetrics),
	}
	for _, s := range sessions {
		hub.Register(s)
	}
	time.Sleep(10 * time.Millisecond)

	hub.Shutdown()
	time.Sleep(10 * time.Millisecond)

	for _, s := range sessions {
		if !s.IsClosed() {
			t.Errorf("session %s should be closed after shutdown", s.ID())
		}
	}
	if count := hub.SessionCount(); count != 0 {
		t.Errorf("expected 0 sessions after shutdown, got %d", count)
	}
}

// Test for race conditions - run with: go test -race
func TestHub_ConcurrentOperations(t *testing.T) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	var wg sync.WaitGroup
	const numGoroutines = 50

	wg.Add(numGoroutines * 3)
	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			s := newMockSession(fmt.Sprintf("s%d", idx), TopicMetrics)
			hub.Register(s)
			time.Sleep(time.Millisecond)
			hub.Unregister(s)
		}(i)

		go func() {
			defer wg.Done()
			hub.Publish(TopicMetrics, EventDashboardMetrics, nil)
		}()

		go func() {
			defer wg.Done()
			_ = hub.SessionCount()
		}()
	}
	wg.Wait()
}

func BenchmarkHub_Publish(b *testing.B) {
	hub := newTestHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	for i := 0; i < 100; i++ {
		hub.Register(newMockSession(fmt.Sprintf("s%d", i), TopicMetrics))
	}
	time.Sleep(50 * time.Millisecond)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Publish(TopicMetrics, EventDashboardMetrics, nil)
	}
}
