// Package security ingests authentication outcomes, maintains rolling
// failure windows, and raises suspicious events over the realtime
// channel and the event store.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/repo"
)

// knownIPLookback bounds how far back successful logins seed the
// known-address set for the new-location rule.
const knownIPLookback = 30 * 24 * time.Hour

type failWindow struct {
	times []time.Time
	// fired marks that this streak already produced a suspicious event.
	// It clears when the window empties or the user logs in.
	fired bool
}

type ipFail struct {
	at     time.Time
	userID string
}

type ipWindow struct {
	fails []ipFail
	fired bool
}

// Monitor evaluates authentication events against the active security
// policy. Counter maps are mutated only under the mutex, which is never
// held across store or publish calls.
type Monitor struct {
	events    *repo.SecurityEvents
	policies  *repo.Policies
	publisher realtime.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	userFails   map[string]*failWindow
	ipFails     map[string]*ipWindow
	lockedUntil map[string]time.Time
}

// NewMonitor creates a monitor. publisher may be nil in batch contexts.
func NewMonitor(events *repo.SecurityEvents, policies *repo.Policies, publisher realtime.Publisher, logger *slog.Logger) *Monitor {
	return &Monitor{
		events:      events,
		policies:    policies,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
		userFails:   make(map[string]*failWindow),
		ipFails:     make(map[string]*ipWindow),
		lockedUntil: make(map[string]time.Time),
	}
}

// RecordFailure ingests one LOGIN_FAIL, persists it, and returns any
// suspicious events the failure triggered.
func (m *Monitor) RecordFailure(ctx context.Context, userID, ip string) ([]model.SecurityEvent, error) {
	policy, err := m.policies.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	fail := m.newEvent(model.EventLoginFail, userID, ip, now, nil)
	if err := m.events.Append(ctx, &fail); err != nil {
		return nil, err
	}

	suspicions := m.evaluateFailure(userID, ip, now, policy)
	for i := range suspicions {
		if err := m.raise(ctx, &suspicions[i]); err != nil {
			return suspicions[:i], err
		}
	}
	return suspicions, nil
}

// evaluateFailure updates the rolling windows and decides which rules
// fire. Pure in-memory work; holds the mutex for its whole run.
func (m *Monitor) evaluateFailure(userID, ip string, now time.Time, policy *model.SecurityPolicy) []model.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var suspicions []model.SecurityEvent
	cutoff := now.Add(-policy.FailureWindow)

	user := m.userFails[userID]
	if user == nil {
		user = &failWindow{}
		m.userFails[userID] = user
	}
	user.times = trimTimes(user.times, cutoff)
	if len(user.times) == 0 {
		user.fired = false
	}
	user.times = append(user.times, now)

	if len(user.times) >= policy.MaxFailedLogins && !user.fired {
		user.fired = true
		lockedUntil := now.Add(policy.LockoutDuration)
		m.lockedUntil[userID] = lockedUntil
		suspicions = append(suspicions,
			m.newSuspicion(model.SuspicionFailedLogins, userID, ip, now, map[string]any{
				"failureCount": len(user.times),
				"windowStart":  cutoff,
				"lockedUntil":  lockedUntil,
			}),
			m.newEvent(model.EventLockout, userID, ip, now, map[string]any{
				"lockedUntil": lockedUntil,
			}))
	}

	addr := m.ipFails[ip]
	if addr == nil {
		addr = &ipWindow{}
		m.ipFails[ip] = addr
	}
	addr.fails = trimIPFails(addr.fails, cutoff)
	if len(addr.fails) == 0 {
		addr.fired = false
	}
	addr.fails = append(addr.fails, ipFail{at: now, userID: userID})

	if len(addr.fails) >= policy.MaxIPFailures && !addr.fired {
		users := make(map[string]bool)
		for _, f := range addr.fails {
			users[f.userID] = true
		}
		// A single hammered account is the failed-logins rule's job; a
		// scan spreads across accounts.
		if len(users) >= 2 {
			addr.fired = true
			suspicions = append(suspicions,
				m.newSuspicion(model.SuspicionIPScan, "", ip, now, map[string]any{
					"failureCount":  len(addr.fails),
					"distinctUsers": len(users),
				}))
		}
	}
	return suspicions
}

// RecordSuccess ingests one LOGIN_SUCCESS, persists it, resets the
// user's failure streak, and raises NEW_LOCATION when the address was
// never seen on a prior successful login.
func (m *Monitor) RecordSuccess(ctx context.Context, userID, ip string) ([]model.SecurityEvent, error) {
	// The known-address set must be read before this success lands in it.
	known, err := m.events.KnownIPs(ctx, userID, knownIPLookback)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	success := m.newEvent(model.EventLoginSuccess, userID, ip, now, nil)
	if err := m.events.Append(ctx, &success); err != nil {
		return nil, err
	}

	m.mu.Lock()
	delete(m.userFails, userID)
	delete(m.lockedUntil, userID)
	m.mu.Unlock()

	// A user with no login history gets a free pass; every address would
	// otherwise be a new location.
	if len(known) == 0 || known[ip] {
		return nil, nil
	}

	suspicion := m.newSuspicion(model.SuspicionNewLocation, userID, ip, now, map[string]any{
		"knownAddressCount": len(known),
	})
	if err := m.raise(ctx, &suspicion); err != nil {
		return nil, err
	}
	return []model.SecurityEvent{suspicion}, nil
}

// raise persists one suspicious or lockout event and pushes an alert.
func (m *Monitor) raise(ctx context.Context, event *model.SecurityEvent) error {
	if err := m.events.Append(ctx, event); err != nil {
		return err
	}
	m.logger.Warn("security event raised",
		slog.String("eventType", string(event.EventType)),
		slog.String("subtype", string(event.Subtype)),
		slog.String("userID", event.UserID),
		slog.String("ip", event.IP))
	if m.publisher != nil && event.EventType == model.EventSuspicious {
		m.publisher.Publish(realtime.TopicSecurity, realtime.EventSecurityAlert, event)
	}
	return nil
}

// IsLockedOut reports whether the user is under an active lockout.
func (m *Monitor) IsLockedOut(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.lockedUntil[userID]
	if !ok {
		return false
	}
	if m.now().After(until) {
		delete(m.lockedUntil, userID)
		return false
	}
	return true
}

// Dashboard summarises the window for the security overview endpoint.
type Dashboard struct {
	TotalEvents      int                   `json:"totalEvents"`
	FailedLogins     int                   `json:"failedLogins"`
	SuspiciousEvents int                   `json:"suspiciousEvents"`
	ActiveLockouts   int                   `json:"activeLockouts"`
	RecentSuspicious []model.SecurityEvent `json:"recentSuspicious"`
	Policy           *model.SecurityPolicy `json:"policy"`
}

// BuildDashboard aggregates events since now minus hoursBack.
func (m *Monitor) BuildDashboard(ctx context.Context, hoursBack int) (*Dashboard, error) {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	since := m.now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	events, err := m.events.ListSince(ctx, since, repo.MaxPageSize)
	if err != nil {
		return nil, err
	}
	policy, err := m.policies.Get(ctx)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		RecentSuspicious: make([]model.SecurityEvent, 0),
		Policy:           policy,
	}
	for _, event := range events {
		dash.TotalEvents++
		switch event.EventType {
		case model.EventLoginFail:
			dash.FailedLogins++
		case model.EventSuspicious:
			dash.SuspiciousEvents++
			if len(dash.RecentSuspicious) < 20 {
				dash.RecentSuspicious = append(dash.RecentSuspicious, event)
			}
		}
	}

	m.mu.Lock()
	now := m.now()
	for _, until := range m.lockedUntil {
		if now.Before(until) {
			dash.ActiveLockouts++
		}
	}
	m.mu.Unlock()
	return dash, nil
}

func (m *Monitor) newEvent(eventType model.SecurityEventType, userID, ip string, at time.Time, details map[string]any) model.SecurityEvent {
	return model.SecurityEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		UserID:    userID,
		IP:        ip,
		Details:   details,
		Timestamp: at,
	}
}

func (m *Monitor) newSuspicion(subtype model.SuspicionType, userID, ip string, at time.Time, details map[string]any) model.SecurityEvent {
	event := m.newEvent(model.EventSuspicious, userID, ip, at, details)
	event.Subtype = subtype
	return event
}

func trimTimes(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func trimIPFails(fails []ipFail, cutoff time.Time) []ipFail {
	kept := fails[:0]
	for _, f := range fails {
		if f.at.After(cutoff) {
			kept = append(kept, f)
		}
	}
	return kept
}
