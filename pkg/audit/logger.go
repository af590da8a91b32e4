// Package audit records privileged operations. Every mutating admin
// command writes exactly one record here before its response is sent.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Entry is what a caller supplies; the logger assigns identity and time.
type Entry struct {
	AdminID      string
	Action       model.AuditAction
	TargetEntity string
	Details      map[string]any
	IP           string
}

// Logger persists audit records. A failed write surfaces as AUDIT_FAILED
// so the command layer can compensate.
type Logger struct {
	records *repo.Audit
	logger  *slog.Logger
	now     func() time.Time
}

// NewLogger creates an audit logger over the record repository.
func NewLogger(records *repo.Audit, logger *slog.Logger) *Logger {
	return &Logger{records: records, logger: logger, now: time.Now}
}

// Log validates and persists one record, returning it with its assigned
// id and timestamp. The record is durable when Log returns nil.
func (l *Logger) Log(ctx context.Context, entry Entry) (*model.AuditRecord, error) {
	rec := l.build(entry)
	if err := rec.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err.Error(), err)
	}

	if err := l.records.Append(ctx, rec); err != nil {
		l.logger.Error("audit write failed",
			slog.String("adminID", rec.AdminID),
			slog.String("action", string(rec.Action)),
			slog.String("error", err.Error()))
		return nil, errs.Wrap(errs.KindAuditFailed, "failed to record audit entry", err)
	}

	l.logger.Info("audit recorded",
		slog.String("actionID", rec.ActionID),
		slog.String("adminID", rec.AdminID),
		slog.String("action", string(rec.Action)),
		slog.String("target", rec.TargetEntity))
	return rec, nil
}

// Op returns a record and its transactional write op, for commands that
// fold the audit write into the mutation's transaction.
func (l *Logger) Op(entry Entry) (*model.AuditRecord, storage.WriteOp, error) {
	rec := l.build(entry)
	if err := rec.Validate(); err != nil {
		return nil, storage.WriteOp{}, errs.Wrap(errs.KindValidation, err.Error(), err)
	}
	return rec, l.records.AppendOp(rec), nil
}

// Revert removes a record written by Log. Only the compensation path
// calls this, after a post-audit step failed.
func (l *Logger) Revert(ctx context.Context, rec *model.AuditRecord) error {
	l.logger.Warn("reverting audit record",
		slog.String("actionID", rec.ActionID),
		slog.String("action", string(rec.Action)))
	return l.records.Delete(ctx, rec)
}

func (l *Logger) build(entry Entry) *model.AuditRecord {
	return &model.AuditRecord{
		ActionID:     uuid.New().String(),
		AdminID:      entry.AdminID,
		Action:       entry.Action,
		TargetEntity: entry.TargetEntity,
		Details:      entry.Details,
		IP:           entry.IP,
		Timestamp:    l.now().UTC(),
	}
}
