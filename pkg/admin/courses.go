package admin

import (
	"context"
	"errors"

	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/storage"
)

func moderationAuditAction(action model.ModerationAction) model.AuditAction {
	switch action {
	case model.ModerationApprove:
		return model.ActionCourseApproval
	case model.ModerationReject:
		return model.ActionCourseRejection
	default:
		return model.ActionCourseModeration
	}
}

// ModerateCourse applies one moderation action to a course, enforcing
// the transition table and the reason rules. The stored status is
// guarded so concurrent moderations serialize.
func (s *Service) ModerateCourse(ctx context.Context, actor Actor, courseID string, action model.ModerationAction, reason string) (*model.Course, error) {
	if action != model.ModerationApprove && action != model.ModerationReject && action != model.ModerationFlag {
		return nil, errs.Validation("action", "enum", "action must be one of approve, reject, flag")
	}
	if err := model.ValidateReason(action, reason); err != nil {
		switch {
		case errors.Is(err, model.ErrReasonRequired):
			return nil, errs.Validation("reason", "required", "a reason is required for this action")
		default:
			return nil, errs.Validation("reason", "maxLength", "reason exceeds the maximum length")
		}
	}

	course, err := s.deps.Courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	prev := course.Status
	next, err := prev.ApplyModeration(action)
	if err != nil {
		return nil, errs.Validation("action", "transition",
			"course in status "+string(prev)+" does not accept "+string(action))
	}

	updated := *course
	updated.Status = next
	updated.UpdatedAt = s.now().UTC()

	rec, auditOp, err := s.deps.Audit.Op(audit.Entry{
		AdminID:      actor.AdminID,
		Action:       moderationAuditAction(action),
		TargetEntity: storage.PrefixCourse + courseID,
		IP:           actor.IP,
		Details: map[string]any{
			"previousStatus": prev,
			"newStatus":      next,
			"action":         action,
			"reason":         reason,
		},
	})
	if err != nil {
		return nil, err
	}

	ops := []storage.WriteOp{s.deps.Courses.StatusGuardOp(&updated, prev), auditOp}
	if err := s.transact(ctx, ops); err != nil {
		return nil, err
	}

	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, rec)
	return &updated, nil
}

// ApproveCourse is ModerateCourse with the approve action.
func (s *Service) ApproveCourse(ctx context.Context, actor Actor, courseID, reason string) (*model.Course, error) {
	return s.ModerateCourse(ctx, actor, courseID, model.ModerationApprove, reason)
}

// RejectCourse is ModerateCourse with the reject action.
func (s *Service) RejectCourse(ctx context.Context, actor Actor, courseID, reason string) (*model.Course, error) {
	return s.ModerateCourse(ctx, actor, courseID, model.ModerationReject, reason)
}
