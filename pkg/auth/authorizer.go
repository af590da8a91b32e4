package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
)

// DecisionTTL bounds how long a status decision may be cached. A
// suspension therefore takes effect within this window.
const DecisionTTL = 30 * time.Second

type decision struct {
	status    model.AccountStatus
	expiresAt time.Time
}

// Authorizer enforces role requirements and re-checks the principal's
// current account status against the store on every request, with a
// short-lived per-subject decision cache to bound cost.
type Authorizer struct {
	users  *repo.Users
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]decision
	now   func() time.Time
}

// NewAuthorizer creates an authorizer over the user repository.
func NewAuthorizer(users *repo.Users, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		users:  users,
		logger: logger,
		cache:  make(map[string]decision),
		now:    time.Now,
	}
}

// Authorize checks that the principal holds at least the required role and
// that its account is not suspended. Returns FORBIDDEN_ROLE or
// FORBIDDEN_STATUS on rejection.
func (a *Authorizer) Authorize(ctx context.Context, principal *Principal, required model.Role) error {
	if !principal.Role.AtLeast(required) {
		a.logger.Warn("role requirement not met",
			slog.String("sub", principal.Sub),
			slog.String("role", string(principal.Role)),
			slog.String("required", string(required)))
		return errs.New(errs.KindForbiddenRole, "insufficient role for this operation")
	}

	status, err := a.currentStatus(ctx, principal.Sub)
	if err != nil {
		return err
	}
	if status == model.StatusSuspended {
		a.logger.Warn("suspended principal rejected",
			slog.String("sub", principal.Sub))
		return errs.New(errs.KindForbiddenStatus, "account is suspended")
	}
	return nil
}

func (a *Authorizer) currentStatus(ctx context.Context, sub string) (model.AccountStatus, error) {
	a.mu.Lock()
	cached, ok := a.cache[sub]
	a.mu.Unlock()
	if ok && a.now().Before(cached.expiresAt) {
		return cached.status, nil
	}

	user, err := a.users.Get(ctx, sub)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			// A token for a deleted account is a valid signature over a
			// principal that no longer exists.
			return "", errs.New(errs.KindForbiddenStatus, "account no longer exists")
		}
		return "", err
	}

	a.mu.Lock()
	a.cache[sub] = decision{status: user.AccountStatus, expiresAt: a.now().Add(DecisionTTL)}
	a.mu.Unlock()
	return user.AccountStatus, nil
}

// Invalidate drops the cached decision for a subject. Called on status
// mutations so suspensions bite immediately on this instance.
func (a *Authorizer) Invalidate(sub string) {
	a.mu.Lock()
	delete(a.cache, sub)
	a.mu.Unlock()
}

// IsSuspended reports whether the subject's account is currently
// suspended, using the same cache as Authorize. The realtime channel's
// sweep uses this.
func (a *Authorizer) IsSuspended(ctx context.Context, sub string) bool {
	status, err := a.currentStatus(ctx, sub)
	if err != nil {
		return errs.Is(err, errs.KindForbiddenStatus)
	}
	return status == model.StatusSuspended
}
