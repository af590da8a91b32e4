// Package admin implements the privileged command surface. Every command
// runs validate, mutate, audit, publish in that order; mutation and audit
// share one conditional-write transaction wherever the operation allows
// it, and compensate otherwise.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/auth"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/repo"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Actor identifies the admin behind a command, for audit attribution.
type Actor struct {
	AdminID string
	IP      string
}

// Deps collects everything the command service needs.
type Deps struct {
	Store          storage.Store
	Users          *repo.Users
	Courses        *repo.Courses
	Tickets        *repo.Tickets
	Announcements  *repo.Announcements
	Templates      *repo.Templates
	Notifications  *repo.Notifications
	Settings       *repo.Settings
	Policies       *repo.Policies
	Backups        *repo.Backups
	Maintenance    *repo.Maintenance
	SecurityEvents *repo.SecurityEvents
	AuditRecords   *repo.Audit
	Audit          *audit.Logger
	Authorizer     *auth.Authorizer
	Publisher      realtime.Publisher
	Logger         *slog.Logger

	// RetentionDays floors how far back audit cleanup may reach.
	RetentionDays int
	// Bucket names where backup artifacts land.
	Bucket string
}

// Service executes admin commands.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService creates the command service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: time.Now}
}

// transact runs one mutate-plus-audit transaction. Conditional-write
// loss is CONFLICT and is not retried; transient store failures are
// retried up to twice with jitter.
func (s *Service) transact(ctx context.Context, ops []storage.WriteOp) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.deps.Store.TransactWrite(ctx, ops)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrConditionFailed) {
			return errs.New(errs.KindConflict, "concurrent modification detected")
		}
		if attempt >= 2 {
			break
		}
		s.deps.Logger.Warn("transaction failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
		select {
		case <-time.After(time.Duration(10+rand.Intn(40)) * time.Millisecond):
		case <-ctx.Done():
			return errs.Wrap(errs.KindTimeout, "request deadline exceeded", ctx.Err())
		}
	}
	return errs.Wrap(errs.KindStoreFailed, "storage operation failed", err)
}

// auditOrCompensate records the audit entry for an already-applied
// mutation. When the audit write fails, compensate reverts the mutation
// and the caller returns AUDIT_FAILED.
func (s *Service) auditOrCompensate(ctx context.Context, entry audit.Entry, compensate func(context.Context) error) error {
	if _, err := s.deps.Audit.Log(ctx, entry); err != nil {
		if compensate != nil {
			if cerr := compensate(ctx); cerr != nil {
				s.deps.Logger.Error("compensation failed",
					slog.String("action", string(entry.Action)),
					slog.String("target", entry.TargetEntity),
					slog.String("error", cerr.Error()))
			}
		}
		return err
	}
	return nil
}

func (s *Service) publish(topic realtime.Topic, eventType string, data any) {
	if s.deps.Publisher != nil {
		s.deps.Publisher.Publish(topic, eventType, data)
	}
}
