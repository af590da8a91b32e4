package repo

import (
	"context"
	"strings"
	"time"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Audit is the typed repository for append-only audit records. Records are
// partitioned by UTC day and projected onto the byAdmin, byTarget and
// byAction indexes.
type Audit struct {
	store storage.Store
}

// NewAudit creates an audit repository over the store.
func NewAudit(store storage.Store) *Audit {
	return &Audit{store: store}
}

// Append persists one record. The non-existence condition enforces
// append-only semantics: a record is written once and never replaced.
func (r *Audit) Append(ctx context.Context, rec *model.AuditRecord) error {
	key := storage.AuditKey(rec.Timestamp, rec.ActionID)
	cond := &storage.Condition{Kind: storage.CondNotExists}
	return mapStoreErr(r.store.Put(ctx, key, rec, cond), "")
}

// AppendOp returns the transactional write op for a record, for use in
// mutate-then-audit transactions.
func (r *Audit) AppendOp(rec *model.AuditRecord) storage.WriteOp {
	return storage.WriteOp{
		Key:    storage.AuditKey(rec.Timestamp, rec.ActionID),
		Entity: rec,
		Cond:   &storage.Condition{Kind: storage.CondNotExists},
	}
}

// Delete removes one record. Only the compensation path uses this; audit
// records are otherwise immutable.
func (r *Audit) Delete(ctx context.Context, rec *model.AuditRecord) error {
	return mapStoreErr(r.store.Delete(ctx, storage.AuditKey(rec.Timestamp, rec.ActionID)), "")
}

func indexRange(from, to time.Time) (string, string) {
	return from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano)
}

func (r *Audit) queryIndex(ctx context.Context, index, value string, from, to time.Time, limit int32, token string) ([]model.AuditRecord, string, error) {
	startKey, err := DecodeToken(token)
	if err != nil {
		return nil, "", err
	}
	lo, hi := indexRange(from, to)

	out, err := r.store.QueryIndex(ctx, storage.IndexQueryInput{
		Index: index,
		Value: value,
		From:  lo,
		To:    hi,
		Page:  storage.Page{Limit: clampLimit(limit), StartKey: startKey, Forward: false},
	})
	if err != nil {
		return nil, "", mapStoreErr(err, "")
	}

	records, err := unmarshalPage[model.AuditRecord](out.Items)
	if err != nil {
		return nil, "", err
	}
	return records, EncodeToken(out.NextKey), nil
}

// ByAdmin returns records written by one admin within the range, newest
// first.
func (r *Audit) ByAdmin(ctx context.Context, adminID string, from, to time.Time, limit int32, token string) ([]model.AuditRecord, string, error) {
	return r.queryIndex(ctx, storage.IndexByAdmin, adminID, from, to, limit, token)
}

// ByAction returns records of one action type within the range.
func (r *Audit) ByAction(ctx context.Context, action model.AuditAction, from, to time.Time, limit int32, token string) ([]model.AuditRecord, string, error) {
	return r.queryIndex(ctx, storage.IndexByAction, string(action), from, to, limit, token)
}

// ByTarget returns records touching one target entity within the range.
func (r *Audit) ByTarget(ctx context.Context, target string, from, to time.Time, limit int32, token string) ([]model.AuditRecord, string, error) {
	return r.queryIndex(ctx, storage.IndexByTarget, target, from, to, limit, token)
}

// ByDateRange walks the day partitions of the range in order, newest day
// first, and returns one page of records.
func (r *Audit) ByDateRange(ctx context.Context, from, to time.Time, limit int32, token string) ([]model.AuditRecord, string, error) {
	startKey, err := DecodeToken(token)
	if err != nil {
		return nil, "", err
	}
	limit = clampLimit(limit)

	// Resume from the day the previous page stopped in.
	day := to.UTC().Truncate(24 * time.Hour)
	if pk, ok := startKey[storage.AttrPK]; ok {
		if resumed, perr := time.Parse("2006-01-02", strings.TrimPrefix(pk, storage.PrefixAudit)); perr == nil {
			day = resumed
		}
	}
	first := from.UTC().Truncate(24 * time.Hour)

	var records []model.AuditRecord
	for !day.Before(first) {
		out, err := r.store.Query(ctx, storage.QueryInput{
			PK:     storage.AuditDayPK(day),
			SKFrom: storage.FormatTimestamp(from),
			SKTo:   storage.FormatTimestamp(to) + "#~",
			Page: storage.Page{
				Limit:    limit - int32(len(records)),
				StartKey: startKey,
				Forward:  false,
			},
		})
		if err != nil {
			return nil, "", mapStoreErr(err, "")
		}

		page, err := unmarshalPage[model.AuditRecord](out.Items)
		if err != nil {
			return nil, "", err
		}
		records = append(records, page...)

		if len(records) >= int(limit) && len(out.NextKey) > 0 {
			return records, EncodeToken(out.NextKey), nil
		}

		startKey = nil
		day = day.AddDate(0, 0, -1)
		if len(records) >= int(limit) && !day.Before(first) {
			// More days remain; hand back a token pointing at the next day.
			next := map[string]string{storage.AttrPK: storage.AuditDayPK(day)}
			return records, EncodeToken(next), nil
		}
	}
	return records, "", nil
}

// Recent returns the newest records across today and yesterday, for the
// dashboard activity feed.
func (r *Audit) Recent(ctx context.Context, limit int32) ([]model.AuditRecord, error) {
	now := time.Now().UTC()
	records, _, err := r.ByDateRange(ctx, now.AddDate(0, 0, -1), now, limit, "")
	return records, err
}

// CleanupOlderThan deletes (or, when dryRun, counts) records whose day
// partition predates the cutoff.
func (r *Audit) CleanupOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int, error) {
	cutoffDay := cutoff.UTC().Format("2006-01-02")
	count := 0
	var deletes []storage.WriteOp

	var startKey map[string]string
	for {
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixAudit,
			Page:     storage.Page{Limit: MaxPageSize, StartKey: startKey},
		})
		if err != nil {
			return 0, mapStoreErr(err, "")
		}

		for _, item := range out.Items {
			key, err := itemKey(item)
			if err != nil {
				continue
			}
			day := strings.TrimPrefix(key.PK, storage.PrefixAudit)
			if day < cutoffDay {
				count++
				if !dryRun {
					deletes = append(deletes, storage.WriteOp{Key: key, Delete: true})
				}
			}
		}

		if len(out.NextKey) == 0 {
			break
		}
		startKey = out.NextKey
	}

	if !dryRun && len(deletes) > 0 {
		if err := r.store.BatchWrite(ctx, deletes); err != nil {
			return 0, mapStoreErr(err, "")
		}
	}
	return count, nil
}

// ForEachInRange visits every record in the range. Used by the aggregation
// engine for audit statistics.
func (r *Audit) ForEachInRange(ctx context.Context, from, to time.Time, fn func(model.AuditRecord) error) error {
	token := ""
	for {
		records, next, err := r.ByDateRange(ctx, from, to, MaxPageSize, token)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		token = next
	}
}
