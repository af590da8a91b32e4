package admin

import (
	"context"
	"time"

	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// ChangeUserRole moves a user to a new role. The stored role is guarded
// so concurrent changes serialize; exactly one audit record exists per
// successful change.
func (s *Service) ChangeUserRole(ctx context.Context, actor Actor, userID string, newRole model.Role, reason string) (*model.User, error) {
	if !newRole.Valid() {
		return nil, errs.Validation("role", "enum", "role must be one of student, instructor, admin, super_admin")
	}
	if actor.AdminID == userID {
		return nil, errs.Validation("userId", "self", "admins cannot change their own role")
	}

	user, prev, err := s.prepareRoleChange(ctx, userID, newRole)
	if err != nil {
		return nil, err
	}

	rec, auditOp, err := s.deps.Audit.Op(audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionUserRoleChange,
		TargetEntity: storage.PrefixUser + userID,
		IP:           actor.IP,
		Details: map[string]any{
			"previousRole": prev,
			"newRole":      newRole,
			"reason":       reason,
		},
	})
	if err != nil {
		return nil, err
	}

	ops := []storage.WriteOp{s.deps.Users.RoleGuardOp(user, prev), auditOp}
	if err := s.transact(ctx, ops); err != nil {
		return nil, err
	}

	s.deps.Authorizer.Invalidate(userID)
	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, rec)
	return user, nil
}

// prepareRoleChange loads the user, applies the role-change guards and
// returns the updated profile with the expected previous role.
func (s *Service) prepareRoleChange(ctx context.Context, userID string, newRole model.Role) (*model.User, model.Role, error) {
	user, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	prev := user.Role
	if prev == newRole {
		return nil, "", errs.Validation("role", "unchanged", "user already holds this role")
	}
	if prev == model.RoleSuperAdmin {
		count, err := s.deps.Users.CountSuperAdmins(ctx)
		if err != nil {
			return nil, "", err
		}
		if count <= 1 {
			return nil, "", errs.New(errs.KindLastSuperAdmin, "cannot demote the last super admin")
		}
	}
	updated := *user
	updated.Role = newRole
	return &updated, prev, nil
}

// UpdateUserStatus moves a user between active and suspended. A
// suspension invalidates the cached authorization decision so it bites
// on the next request.
func (s *Service) UpdateUserStatus(ctx context.Context, actor Actor, userID string, status model.AccountStatus, reason string) (*model.User, error) {
	if status != model.StatusActive && status != model.StatusSuspended {
		return nil, errs.Validation("status", "enum", "status must be active or suspended")
	}
	if actor.AdminID == userID && status == model.StatusSuspended {
		return nil, errs.Validation("userId", "self", "admins cannot suspend themselves")
	}

	user, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prev := user.AccountStatus
	if prev == status {
		return nil, errs.Validation("status", "unchanged", "account already holds this status")
	}
	if !prev.CanTransitionTo(status) {
		return nil, errs.Validation("status", "transition", "account status cannot move from "+string(prev)+" to "+string(status))
	}

	updated := *user
	updated.AccountStatus = status

	rec, auditOp, err := s.deps.Audit.Op(audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionUserStatusUpdate,
		TargetEntity: storage.PrefixUser + userID,
		IP:           actor.IP,
		Details: map[string]any{
			"previousStatus": prev,
			"newStatus":      status,
			"reason":         reason,
		},
	})
	if err != nil {
		return nil, err
	}

	ops := []storage.WriteOp{s.deps.Users.StatusGuardOp(&updated, prev), auditOp}
	if err := s.transact(ctx, ops); err != nil {
		return nil, err
	}

	s.deps.Authorizer.Invalidate(userID)
	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, rec)
	return &updated, nil
}

// BulkItem reports one id's outcome in a bulk command.
type BulkItem struct {
	ID        string    `json:"id"`
	ErrorKind errs.Kind `json:"errorKind,omitempty"`
}

// BulkResult splits a bulk command into its successful and failed ids.
type BulkResult struct {
	Successful []BulkItem `json:"successful"`
	Failed     []BulkItem `json:"failed"`
}

// BulkChangeRoles applies one role change per id, collecting per-id
// failures instead of aborting. The whole batch produces exactly one
// audit record covering the successful ids.
func (s *Service) BulkChangeRoles(ctx context.Context, actor Actor, userIDs []string, newRole model.Role, reason string) (*BulkResult, error) {
	if !newRole.Valid() {
		return nil, errs.Validation("role", "enum", "role must be one of student, instructor, admin, super_admin")
	}
	if len(userIDs) == 0 {
		return nil, errs.Validation("userIds", "required", "at least one user id is required")
	}

	result := &BulkResult{Successful: make([]BulkItem, 0), Failed: make([]BulkItem, 0)}
	reverts := make(map[string]model.Role)

	for _, userID := range userIDs {
		if actor.AdminID == userID {
			result.Failed = append(result.Failed, BulkItem{ID: userID, ErrorKind: errs.KindValidation})
			continue
		}
		user, prev, err := s.prepareRoleChange(ctx, userID, newRole)
		if err != nil {
			result.Failed = append(result.Failed, BulkItem{ID: userID, ErrorKind: errs.KindOf(err)})
			continue
		}
		if err := s.deps.Users.PutWithRoleGuard(ctx, user, prev); err != nil {
			result.Failed = append(result.Failed, BulkItem{ID: userID, ErrorKind: errs.KindOf(err)})
			continue
		}
		reverts[userID] = prev
		s.deps.Authorizer.Invalidate(userID)
		result.Successful = append(result.Successful, BulkItem{ID: userID})
	}

	if len(result.Successful) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(result.Successful))
	for _, item := range result.Successful {
		ids = append(ids, item.ID)
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionUserRoleChange,
		TargetEntity: storage.PrefixUser + "BULK",
		IP:           actor.IP,
		Details: map[string]any{
			"userIds": ids,
			"newRole": newRole,
			"reason":  reason,
			"failed":  len(result.Failed),
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.revertRoles(ctx, reverts)
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, map[string]any{
		"action":  model.ActionUserRoleChange,
		"userIds": ids,
		"newRole": newRole,
	})
	return result, nil
}

// revertRoles restores the previous roles of a partially-audited bulk
// change. Best effort; failures are reported to the caller for logging.
func (s *Service) revertRoles(ctx context.Context, previous map[string]model.Role) error {
	var firstErr error
	for userID, role := range previous {
		user, err := s.deps.Users.Get(ctx, userID)
		if err == nil {
			user.Role = role
			err = s.deps.Users.Put(ctx, user)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		s.deps.Authorizer.Invalidate(userID)
	}
	return firstErr
}

// UserActivity returns the audit records targeting one user within the
// range, for the per-user activity view.
func (s *Service) UserActivity(ctx context.Context, userID string, from, to time.Time, limit int32, token string) ([]model.AuditRecord, string, error) {
	if _, err := s.deps.Users.Get(ctx, userID); err != nil {
		return nil, "", err
	}
	return s.deps.AuditRecords.ByTarget(ctx, storage.PrefixUser+userID, from, to, limit, token)
}
