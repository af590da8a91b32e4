package repo

import (
	"context"
	"errors"
	"time"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// SecurityEvents is the typed repository for append-only security events,
// partitioned by UTC hour and projected onto the byUser index.
type SecurityEvents struct {
	store storage.Store
}

// NewSecurityEvents creates a security event repository over the store.
func NewSecurityEvents(store storage.Store) *SecurityEvents {
	return &SecurityEvents{store: store}
}

// Append persists one event.
func (r *SecurityEvents) Append(ctx context.Context, event *model.SecurityEvent) error {
	key := storage.SecurityKey(event.Timestamp, event.EventID)
	cond := &storage.Condition{Kind: storage.CondNotExists}
	return mapStoreErr(r.store.Put(ctx, key, event, cond), "")
}

// ListSince walks hour partitions from since to now, newest hour first,
// and returns up to limit events.
func (r *SecurityEvents) ListSince(ctx context.Context, since time.Time, limit int32) ([]model.SecurityEvent, error) {
	limit = clampLimit(limit)
	hour := time.Now().UTC().Truncate(time.Hour)
	first := since.UTC().Truncate(time.Hour)

	var events []model.SecurityEvent
	for !hour.Before(first) && len(events) < int(limit) {
		out, err := r.store.Query(ctx, storage.QueryInput{
			PK:     storage.SecurityHourPK(hour),
			SKFrom: storage.FormatTimestamp(since),
			SKTo:   storage.FormatTimestamp(time.Now()) + "#~",
			Page:   storage.Page{Limit: limit - int32(len(events)), Forward: false},
		})
		if err != nil {
			return nil, mapStoreErr(err, "")
		}
		page, err := unmarshalPage[model.SecurityEvent](out.Items)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		hour = hour.Add(-time.Hour)
	}
	return events, nil
}

// SuspiciousSince returns only SUSPICIOUS events from the window.
func (r *SecurityEvents) SuspiciousSince(ctx context.Context, since time.Time, limit int32) ([]model.SecurityEvent, error) {
	all, err := r.ListSince(ctx, since, MaxPageSize)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	suspicious := make([]model.SecurityEvent, 0)
	for _, event := range all {
		if event.EventType == model.EventSuspicious {
			suspicious = append(suspicious, event)
			if len(suspicious) >= int(limit) {
				break
			}
		}
	}
	return suspicious, nil
}

// ByUser returns events attributed to one user within the range.
func (r *SecurityEvents) ByUser(ctx context.Context, userID string, from, to time.Time, limit int32) ([]model.SecurityEvent, error) {
	lo, hi := indexRange(from, to)
	out, err := r.store.QueryIndex(ctx, storage.IndexQueryInput{
		Index: storage.IndexByUser,
		Value: userID,
		From:  lo,
		To:    hi,
		Page:  storage.Page{Limit: clampLimit(limit), Forward: false},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return unmarshalPage[model.SecurityEvent](out.Items)
}

// KnownIPs returns the set of source addresses previously seen on
// successful logins for the user. Seeds the new-location rule.
func (r *SecurityEvents) KnownIPs(ctx context.Context, userID string, lookback time.Duration) (map[string]bool, error) {
	now := time.Now().UTC()
	events, err := r.ByUser(ctx, userID, now.Add(-lookback), now, MaxPageSize)
	if err != nil {
		return nil, err
	}
	ips := make(map[string]bool)
	for _, event := range events {
		if event.EventType == model.EventLoginSuccess {
			ips[event.IP] = true
		}
	}
	return ips, nil
}

// Acknowledge marks one event acknowledged by an admin. The event is
// located by its timestamp and id.
func (r *SecurityEvents) Acknowledge(ctx context.Context, ts time.Time, eventID, adminID string) (*model.SecurityEvent, error) {
	key := storage.SecurityKey(ts, eventID)
	var event model.SecurityEvent
	if err := r.store.Get(ctx, key, &event); err != nil {
		return nil, mapStoreErr(err, "security event not found")
	}
	event.Acknowledged = true
	event.AckedBy = adminID

	cond := &storage.Condition{Kind: storage.CondExists}
	if err := r.store.Put(ctx, key, &event, cond); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return nil, mapStoreErr(storage.ErrNotFound, "security event not found")
		}
		return nil, mapStoreErr(err, "")
	}
	return &event, nil
}

// Policies is the typed repository for the security policy document.
type Policies struct {
	store storage.Store
}

// NewPolicies creates a policy repository over the store.
func NewPolicies(store storage.Store) *Policies {
	return &Policies{store: store}
}

// Get loads the active policy, falling back to defaults before any admin
// has tuned it.
func (r *Policies) Get(ctx context.Context) (*model.SecurityPolicy, error) {
	var policy model.SecurityPolicy
	err := r.store.Get(ctx, storage.PolicyKey("default"), &policy)
	if errors.Is(err, storage.ErrNotFound) {
		defaults := model.DefaultSecurityPolicy()
		return &defaults, nil
	}
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return &policy, nil
}

// Put writes the policy. Version bumps happen in the command layer; the
// last writer wins, which is acceptable for a read-mostly document.
func (r *Policies) Put(ctx context.Context, policy *model.SecurityPolicy) error {
	return mapStoreErr(r.store.Put(ctx, storage.PolicyKey(policy.PolicyID), policy, nil), "")
}
