package auth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
	"github.com/learnhub/admin-plane/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func newTestAuthorizer(t *testing.T) (*Authorizer, *repo.Users) {
	t.Helper()
	users := repo.NewUsers(storage.NewMemoryStore())
	return NewAuthorizer(users, testLogger()), users
}

func seedAdmin(t *testing.T, users *repo.Users, status model.AccountStatus) {
	t.Helper()
	err := users.Put(context.Background(), &model.User{
		UserID:        "admin-1",
		Email:         "admin@learnhub.test",
		Role:          model.RoleSuperAdmin,
		AccountStatus: status,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func TestAuthorizer_RoleGate(t *testing.T) {
	a, users := newTestAuthorizer(t)
	seedAdmin(t, users, model.StatusActive)
	ctx := context.Background()

	super := &Principal{Sub: "admin-1", Role: model.RoleSuperAdmin}
	if err := a.Authorize(ctx, super, model.RoleSuperAdmin); err != nil {
		t.Errorf("super_admin should pass: %v", err)
	}

	student := &Principal{Sub: "admin-1", Role: model.RoleStudent}
	if err := a.Authorize(ctx, student, model.RoleSuperAdmin); !errs.Is(err, errs.KindForbiddenRole) {
		t.Errorf("student against super_admin gate = %v, want FORBIDDEN_ROLE", err)
	}
}

func TestAuthorizer_SuspendedStatus(t *testing.T) {
	a, users := newTestAuthorizer(t)
	seedAdmin(t, users, model.StatusSuspended)

	principal := &Principal{Sub: "admin-1", Role: model.RoleSuperAdmin}
	err := a.Authorize(context.Background(), principal, model.RoleSuperAdmin)
	if !errs.Is(err, errs.KindForbiddenStatus) {
		t.Errorf("suspended admin = %v, want FORBIDDEN_STATUS", err)
	}
}

func TestAuthorizer_UnknownSubject(t *testing.T) {
	a, _ := newTestAuthorizer(t)

	principal := &Principal{Sub: "ghost", Role: model.RoleSuperAdmin}
	err := a.Authorize(context.Background(), principal, model.RoleSuperAdmin)
	if !errs.Is(err, errs.KindForbiddenStatus) {
		t.Errorf("unknown subject = %v, want FORBIDDEN_STATUS", err)
	}
}

func TestAuthorizer_DecisionCacheExpires(t *testing.T) {
	a, users := newTestAuthorizer(t)
	seedAdmin(t, users, model.StatusActive)
	ctx := context.Background()

	current := time.Now()
	a.now = func() time.Time { return current }

	principal := &Principal{Sub: "admin-1", Role: model.RoleSuperAdmin}
	if err := a.Authorize(ctx, principal, model.RoleSuperAdmin); err != nil {
		t.Fatalf("first authorize: %v", err)
	}

	// Suspend behind the cache's back; the cached decision still passes.
	seedAdmin(t, users, model.StatusSuspended)
	if err := a.Authorize(ctx, principal, model.RoleSuperAdmin); err != nil {
		t.Fatalf("cached authorize should still pass: %v", err)
	}

	// After the TTL the suspension must bite.
	current = current.Add(DecisionTTL + time.Second)
	err := a.Authorize(ctx, principal, model.RoleSuperAdmin)
	if !errs.Is(err, errs.KindForbiddenStatus) {
		t.Errorf("post-TTL authorize = %v, want FORBIDDEN_STATUS", err)
	}
}

func TestAuthorizer_InvalidateBitesImmediately(t *testing.T) {
	a, users := newTestAuthorizer(t)
	seedAdmin(t, users, model.StatusActive)
	ctx := context.Background()

	principal := &Principal{Sub: "admin-1", Role: model.RoleSuperAdmin}
	if err := a.Authorize(ctx, principal, model.RoleSuperAdmin); err != nil {
		t.Fatalf("first authorize: %v", err)
	}

	seedAdmin(t, users, model.StatusSuspended)
	a.Invalidate("admin-1")

	err := a.Authorize(ctx, principal, model.RoleSuperAdmin)
	if !errs.Is(err, errs.KindForbiddenStatus) {
		t.Errorf("authorize after invalidate = %v, want FORBIDDEN_STATUS", err)
	}
}

func TestAuthorizer_IsSuspended(t *testing.T) {
	a, users := newTestAuthorizer(t)
	seedAdmin(t, users, model.StatusSuspended)

	if !a.IsSuspended(context.Background(), "admin-1") {
		t.Error("IsSuspended should report true for a suspended account")
	}
	if !a.IsSuspended(context.Background(), "ghost") {
		t.Error("IsSuspended should report true for a deleted account")
	}
}
