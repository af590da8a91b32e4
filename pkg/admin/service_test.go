package admin

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/auth"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/repo"
	"github.com/learnhub/admin-plane/pkg/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []realtime.Topic
}

func (p *fakePublisher) Publish(topic realtime.Topic, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *fakePublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

// auditFailStore refuses writes into the audit namespace, for exercising
// the compensation path.
type auditFailStore struct {
	storage.Store
}

func (s *auditFailStore) Put(ctx context.Context, key storage.Key, entity any, cond *storage.Condition) error {
	if strings.HasPrefix(key.PK, storage.PrefixAudit) {
		return errors.New("injected audit failure")
	}
	return s.Store.Put(ctx, key, entity, cond)
}

// hookStore runs a hook before the first transaction, simulating a
// concurrent writer winning the conditional write.
type hookStore struct {
	storage.Store
	onTransact func()
	fired      bool
}

func (s *hookStore) TransactWrite(ctx context.Context, ops []storage.WriteOp) error {
	if !s.fired && s.onTransact != nil {
		s.fired = true
		s.onTransact()
	}
	return s.Store.TransactWrite(ctx, ops)
}

type harness struct {
	svc   *Service
	store storage.Store
	users *repo.Users
	audit *repo.Audit
	pub   *fakePublisher
	auth  *auth.Authorizer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newHarness(t *testing.T, store storage.Store) *harness {
	t.Helper()
	logger := testLogger()
	users := repo.NewUsers(store)
	auditRecords := repo.NewAudit(store)
	pub := &fakePublisher{}
	authorizer := auth.NewAuthorizer(users, logger)

	svc := NewService(Deps{
		Store:          store,
		Users:          users,
		Courses:        repo.NewCourses(store),
		Tickets:        repo.NewTickets(store),
		Announcements:  repo.NewAnnouncements(store),
		Templates:      repo.NewTemplates(store),
		Notifications:  repo.NewNotifications(store),
		Settings:       repo.NewSettings(store),
		Policies:       repo.NewPolicies(store),
		Backups:        repo.NewBackups(store),
		Maintenance:    repo.NewMaintenance(store),
		SecurityEvents: repo.NewSecurityEvents(store),
		AuditRecords:   auditRecords,
		Audit:          audit.NewLogger(auditRecords, logger),
		Authorizer:     authorizer,
		Publisher:      pub,
		Logger:         logger,
		RetentionDays:  90,
		Bucket:         "learnhub-backups",
	})
	return &harness{svc: svc, store: store, users: users, audit: auditRecords, pub: pub, auth: authorizer}
}

func (h *harness) seedUser(t *testing.T, id string, role model.Role, status model.AccountStatus) {
	t.Helper()
	err := h.users.Put(context.Background(), &model.User{
		UserID:        id,
		Name:          "User " + id,
		Email:         id + "@learnhub.test",
		Role:          role,
		AccountStatus: status,
		CreatedAt:     time.Now().UTC().Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func (h *harness) auditCount(t *testing.T, adminID string) int {
	t.Helper()
	now := time.Now().UTC()
	records, _, err := h.audit.ByAdmin(context.Background(), adminID, now.Add(-time.Hour), now.Add(time.Hour), 100, "")
	if err != nil {
		t.Fatalf("audit count: %v", err)
	}
	return len(records)
}

var actor = Actor{AdminID: "admin-1", IP: "10.0.0.1"}

func TestChangeUserRole_HappyPath(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	h.seedUser(t, "u-1", model.RoleStudent, model.StatusActive)
	ctx := context.Background()

	user, err := h.svc.ChangeUserRole(ctx, actor, "u-1", model.RoleInstructor, "approved")
	if err != nil {
		t.Fatalf("ChangeUserRole() error = %v", err)
	}
	if user.Role != model.RoleInstructor {
		t.Errorf("returned role = %s, want instructor", user.Role)
	}

	stored, err := h.users.Get(ctx, "u-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Role != model.RoleInstructor {
		t.Errorf("stored role = %s, want instructor", stored.Role)
	}

	now := time.Now().UTC()
	records, _, err := h.audit.ByAdmin(ctx, "admin-1", now.Add(-time.Hour), now.Add(time.Hour), 10, "")
	if err != nil {
		t.Fatalf("ByAdmin() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d audit records, want 1", len(records))
	}
	rec := records[0]
	if rec.Action != model.ActionUserRoleChange {
		t.Errorf("audit action = %s", rec.Action)
	}
	if rec.TargetEntity != "USER#u-1" {
		t.Errorf("audit target = %s", rec.TargetEntity)
	}
	if rec.Details["previousRole"] != "student" || rec.Details["newRole"] != "instructor" {
		t.Errorf("audit details = %v", rec.Details)
	}
	if rec.Details["reason"] != "approved" {
		t.Errorf("audit reason = %v", rec.Details["reason"])
	}

	if h.pub.Count() != 1 {
		t.Errorf("published %d events, want 1", h.pub.Count())
	}
}

func TestChangeUserRole_Rejections(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	h.seedUser(t, "u-1", model.RoleStudent, model.StatusActive)
	h.seedUser(t, "admin-1", model.RoleSuperAdmin, model.StatusActive)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		role   model.Role
		want   errs.Kind
	}{
		{"unknown role", "u-1", "emperor", errs.KindValidation},
		{"missing user", "u-nope", model.RoleInstructor, errs.KindNotFound},
		{"same role", "u-1", model.RoleStudent, errs.KindValidation},
		{"self change", "admin-1", model.RoleAdmin, errs.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.ChangeUserRole(ctx, actor, tt.userID, tt.role, "r"); !errs.Is(err, tt.want) {
				t.Errorf("ChangeUserRole() = %v, want %s", err, tt.want)
			}
		})
	}

	if got := h.auditCount(t, "admin-1"); got != 0 {
		t.Errorf("rejected commands left %d audit records", got)
	}
}

func TestChangeUserRole_LastSuperAdmin(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	h.seedUser(t, "sa-1", model.RoleSuperAdmin, model.StatusActive)
	ctx := context.Background()

	_, err := h.svc.ChangeUserRole(ctx, actor, "sa-1", model.RoleAdmin, "demote")
	if !errs.Is(err, errs.KindLastSuperAdmin) {
		t.Fatalf("ChangeUserRole() = %v, want LAST_SUPER_ADMIN", err)
	}

	// With a second super admin the demotion goes through.
	h.seedUser(t, "sa-2", model.RoleSuperAdmin, model.StatusActive)
	if _, err := h.svc.ChangeUserRole(ctx, actor, "sa-1", model.RoleAdmin, "demote"); err != nil {
		t.Errorf("ChangeUserRole() with two super admins = %v", err)
	}
}

func TestChangeUserRole_ConflictLoser(t *testing.T) {
	inner := storage.NewMemoryStore()
	store := &hookStore{Store: inner}
	h := newHarness(t, store)
	h.seedUser(t, "u-1", model.RoleStudent, model.StatusActive)
	ctx := context.Background()

	// A concurrent winner flips the role between our read and our write.
	store.onTransact = func() {
		winner := &model.User{
			UserID:        "u-1",
			Email:         "u-1@learnhub.test",
			Role:          model.RoleAdmin,
			AccountStatus: model.StatusActive,
		}
		if err := inner.Put(ctx, storage.UserKey("u-1"), winner, nil); err != nil {
			t.Fatalf("winner write: %v", err)
		}
	}

	_, err := h.svc.ChangeUserRole(ctx, actor, "u-1", model.RoleInstructor, "r")
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("ChangeUserRole() = %v, want CONFLICT", err)
	}

	stored, _ := h.users.Get(ctx, "u-1")
	if stored.Role != model.RoleAdmin {
		t.Errorf("stored role = %s, want the winner's admin", stored.Role)
	}
	if got := h.auditCount(t, "admin-1"); got != 0 {
		t.Errorf("losing command left %d audit records, want 0", got)
	}
}

func TestBulkChangeRoles_PartialFailure(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	h.seedUser(t, "u-1", model.RoleStudent, model.StatusActive)
	ctx := context.Background()

	result, err := h.svc.BulkChangeRoles(ctx, actor, []string{"u-1", "u-nope"}, model.RoleInstructor, "batch")
	if err != nil {
		t.Fatalf("BulkChangeRoles() error = %v", err)
	}
	if len(result.Successful) != 1 || result.Successful[0].ID != "u-1" {
		t.Errorf("Successful = %v", result.Successful)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "u-nope" || result.Failed[0].ErrorKind != errs.KindNotFound {
		t.Errorf("Failed = %v", result.Failed)
	}

	if got := h.auditCount(t, "admin-1"); got != 1 {
		t.Errorf("bulk change left %d audit records, want 1", got)
	}

	stored, _ := h.users.Get(ctx, "u-1")
	if stored.Role != model.RoleInstructor {
		t.Errorf("stored role = %s, want instructor", stored.Role)
	}
}

func TestUpdateUserStatus_SuspensionBites(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	h.seedUser(t, "u-1", model.RoleAdmin, model.StatusActive)
	ctx := context.Background()

	// Warm the decision cache, then suspend.
	principal := &auth.Principal{Sub: "u-1", Role: model.RoleAdmin}
	if err := h.auth.Authorize(ctx, principal, model.RoleAdmin); err != nil {
		t.Fatalf("pre-suspension authorize: %v", err)
	}

	user, err := h.svc.UpdateUserStatus(ctx, actor, "u-1", model.StatusSuspended, "abuse")
	if err != nil {
		t.Fatalf("UpdateUserStatus() error = %v", err)
	}
	if user.AccountStatus != model.StatusSuspended {
		t.Errorf("status = %s, want suspended", user.AccountStatus)
	}

	// The cache was invalidated, so the suspension bites immediately.
	if err := h.auth.Authorize(ctx, principal, model.RoleAdmin); !errs.Is(err, errs.KindForbiddenStatus) {
		t.Errorf("post-suspension authorize = %v, want FORBIDDEN_STATUS", err)
	}

	if got := h.auditCount(t, "admin-1"); got != 1 {
		t.Errorf("got %d audit records, want 1", got)
	}
}

func TestModerateCourse_Transitions(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	ctx := context.Background()
	courses := repo.NewCourses(h.store)
	if err := courses.Put(ctx, &model.Course{CourseID: "c-1", Title: "Go", Status: model.CoursePending}); err != nil {
		t.Fatalf("seed course: %v", err)
	}

	course, err := h.svc.ApproveCourse(ctx, actor, "c-1", "")
	if err != nil {
		t.Fatalf("ApproveCourse() error = %v", err)
	}
	if course.Status != model.CourseApproved {
		t.Errorf("status = %s, want approved", course.Status)
	}

	// approved does not accept approve again.
	if _, err := h.svc.ApproveCourse(ctx, actor, "c-1", ""); !errs.Is(err, errs.KindValidation) {
		t.Errorf("double approve = %v, want VALIDATION", err)
	}

	// approved -> flagged -> rejected, reasons required.
	if _, err := h.svc.ModerateCourse(ctx, actor, "c-1", model.ModerationFlag, ""); !errs.Is(err, errs.KindValidation) {
		t.Errorf("flag without reason = %v, want VALIDATION", err)
	}
	if _, err := h.svc.ModerateCourse(ctx, actor, "c-1", model.ModerationFlag, "spam"); err != nil {
		t.Fatalf("flag: %v", err)
	}
	course, err = h.svc.RejectCourse(ctx, actor, "c-1", "confirmed spam")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if course.Status != model.CourseRejected {
		t.Errorf("status = %s, want rejected", course.Status)
	}

	if got := h.auditCount(t, "admin-1"); got != 3 {
		t.Errorf("got %d audit records, want 3", got)
	}
}

func TestCreateTicket_CompensatesOnAuditFailure(t *testing.T) {
	inner := storage.NewMemoryStore()
	h := newHarness(t, &auditFailStore{Store: inner})
	ctx := context.Background()

	_, err := h.svc.CreateTicket(ctx, actor, &model.SupportTicket{
		UserID:    "u-1",
		UserEmail: "u-1@learnhub.test",
		Subject:   "cannot log in",
	})
	if !errs.Is(err, errs.KindAuditFailed) {
		t.Fatalf("CreateTicket() = %v, want AUDIT_FAILED", err)
	}

	// The compensating write removed the ticket.
	if inner.Len() != 0 {
		t.Errorf("store holds %d items after compensation, want 0", inner.Len())
	}
}

func TestUpdateSetting_VersionsBump(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	ctx := context.Background()

	first, err := h.svc.UpdateSetting(ctx, actor, "maintenance_banner", "platform", "off")
	if err != nil {
		t.Fatalf("UpdateSetting() error = %v", err)
	}
	if first.Version != 1 {
		t.Errorf("first version = %d, want 1", first.Version)
	}

	second, err := h.svc.UpdateSetting(ctx, actor, "maintenance_banner", "", "on")
	if err != nil {
		t.Fatalf("UpdateSetting() error = %v", err)
	}
	if second.Version != 2 {
		t.Errorf("second version = %d, want 2", second.Version)
	}
	if second.Category != "platform" {
		t.Errorf("category = %q, want carried over", second.Category)
	}
}

func TestCleanupAuditRecords_RespectsRetentionFloor(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())

	_, err := h.svc.CleanupAuditRecords(context.Background(), actor, 30, false)
	if !errs.Is(err, errs.KindValidation) {
		t.Errorf("CleanupAuditRecords(30d) = %v, want VALIDATION", err)
	}

	result, err := h.svc.CleanupAuditRecords(context.Background(), actor, 120, true)
	if err != nil {
		t.Fatalf("CleanupAuditRecords(dry) error = %v", err)
	}
	if !result.DryRun || result.Affected != 0 {
		t.Errorf("result = %+v", result)
	}
	// Dry runs leave no audit trail.
	if got := h.auditCount(t, "admin-1"); got != 0 {
		t.Errorf("dry run left %d audit records", got)
	}
}

func TestBackupLifecycle(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	ctx := context.Background()

	backup, err := h.svc.CreateBackup(ctx, actor, model.BackupFull, true)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if backup.Status != model.BackupCompleted {
		t.Errorf("status = %s, want completed", backup.Status)
	}
	if backup.Bucket != "learnhub-backups" {
		t.Errorf("bucket = %q", backup.Bucket)
	}

	restored, err := h.svc.RestoreBackup(ctx, actor, backup.BackupID)
	if err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	if restored.Status != model.BackupRestored || restored.RestoredAt == nil {
		t.Errorf("restored = %+v", restored)
	}

	// A restored backup cannot be restored again.
	if _, err := h.svc.RestoreBackup(ctx, actor, backup.BackupID); !errs.Is(err, errs.KindConflict) {
		t.Errorf("double restore = %v, want CONFLICT", err)
	}

	if _, err := h.svc.CreateBackup(ctx, actor, "partial", false); !errs.Is(err, errs.KindValidation) {
		t.Errorf("CreateBackup(partial) = %v, want VALIDATION", err)
	}
}

func TestSendNotification_TargetingRules(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name string
		n    model.Notification
	}{
		{"no target", model.Notification{Title: "t", Message: "m"}},
		{"both targets", model.Notification{Title: "t", Message: "m",
			TargetRoles: []model.Role{model.RoleStudent}, TargetUserIDs: []string{"u-1"}}},
		{"bad role", model.Notification{Title: "t", Message: "m",
			TargetRoles: []model.Role{"wizard"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.n
			if _, err := h.svc.SendNotification(ctx, actor, &n); !errs.Is(err, errs.KindValidation) {
				t.Errorf("SendNotification() = %v, want VALIDATION", err)
			}
		})
	}

	n := model.Notification{Title: "t", Message: "m", TargetRoles: []model.Role{model.RoleStudent}}
	sent, err := h.svc.SendNotification(ctx, actor, &n)
	if err != nil {
		t.Fatalf("SendNotification() error = %v", err)
	}
	if sent.NotificationID == "" || sent.SentBy != "admin-1" {
		t.Errorf("sent = %+v", sent)
	}
}
