package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// CreateTicket opens a support ticket on a user's behalf.
func (s *Service) CreateTicket(ctx context.Context, actor Actor, ticket *model.SupportTicket) (*model.SupportTicket, error) {
	ticket.TicketID = uuid.New().String()
	ticket.Status = model.TicketOpen
	if ticket.Priority == "" {
		ticket.Priority = model.PriorityMedium
	}
	ticket.CreatedAt = s.now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	if err := ticket.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err.Error(), err)
	}

	if err := s.deps.Tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionTicketStateChange,
		TargetEntity: storage.PrefixTicket + ticket.TicketID,
		IP:           actor.IP,
		Details: map[string]any{
			"previousStatus": "",
			"newStatus":      model.TicketOpen,
			"subject":        ticket.Subject,
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Store.Delete(ctx, storage.TicketKey(ticket.TicketID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, ticket)
	return ticket, nil
}

// UpdateTicketStatus moves a ticket through its lifecycle.
func (s *Service) UpdateTicketStatus(ctx context.Context, actor Actor, ticketID string, status model.TicketStatus, assignedTo string) (*model.SupportTicket, error) {
	if !status.Valid() {
		return nil, errs.Validation("status", "enum", "status must be one of open, in_progress, resolved, closed")
	}

	ticket, err := s.deps.Tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	prev := ticket.Status
	if prev == status {
		return nil, errs.Validation("status", "unchanged", "ticket already holds this status")
	}

	updated := *ticket
	updated.Status = status
	if assignedTo != "" {
		updated.AssignedTo = assignedTo
	}
	updated.UpdatedAt = s.now().UTC()

	rec, auditOp, err := s.deps.Audit.Op(audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionTicketStateChange,
		TargetEntity: storage.PrefixTicket + ticketID,
		IP:           actor.IP,
		Details: map[string]any{
			"previousStatus": prev,
			"newStatus":      status,
		},
	})
	if err != nil {
		return nil, err
	}

	ops := []storage.WriteOp{s.deps.Tickets.StatusGuardOp(&updated, prev), auditOp}
	if err := s.transact(ctx, ops); err != nil {
		return nil, err
	}

	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, rec)
	return &updated, nil
}

// PublishAnnouncement creates a platform-wide announcement and pushes it
// to subscribed admin connections.
func (s *Service) PublishAnnouncement(ctx context.Context, actor Actor, a *model.Announcement) (*model.Announcement, error) {
	a.AnnouncementID = uuid.New().String()
	a.CreatedBy = actor.AdminID
	a.CreatedAt = s.now().UTC()
	if a.Status == "" {
		a.Status = "published"
	}
	if err := a.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err.Error(), err)
	}

	if err := s.deps.Announcements.Create(ctx, a); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionAnnouncementPublish,
		TargetEntity: storage.PrefixAnnouncement + a.AnnouncementID,
		IP:           actor.IP,
		Details: map[string]any{
			"title":          a.Title,
			"targetAudience": a.TargetAudience,
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Store.Delete(ctx, storage.AnnouncementKey(a.AnnouncementID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicNotifications, realtime.EventNotificationNew, a)
	return a, nil
}

// SendNotification records a targeted notification. Targeting is by
// roles or by explicit user ids, never both.
func (s *Service) SendNotification(ctx context.Context, actor Actor, n *model.Notification) (*model.Notification, error) {
	if n.Title == "" || n.Message == "" {
		return nil, errs.Validation("title", "required", "a notification requires a title and message")
	}
	if len(n.TargetRoles) > 0 && len(n.TargetUserIDs) > 0 {
		return nil, errs.Validation("targetRoles", "exclusive", "target by roles or by user ids, not both")
	}
	if len(n.TargetRoles) == 0 && len(n.TargetUserIDs) == 0 {
		return nil, errs.Validation("targetRoles", "required", "a notification requires a target")
	}
	for _, role := range n.TargetRoles {
		if !role.Valid() {
			return nil, errs.Validation("targetRoles", "enum", "unknown role "+string(role))
		}
	}

	n.NotificationID = uuid.New().String()
	n.SentBy = actor.AdminID
	n.SentAt = s.now().UTC()

	if err := s.deps.Notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionNotificationSend,
		TargetEntity: storage.PrefixNotification + n.NotificationID,
		IP:           actor.IP,
		Details: map[string]any{
			"title":       n.Title,
			"targetRoles": n.TargetRoles,
			"targetUsers": len(n.TargetUserIDs),
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Store.Delete(ctx, storage.NotificationKey(n.NotificationID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicNotifications, realtime.EventNotificationNew, n)
	return n, nil
}

// CreateTemplate stores a reusable notification template.
func (s *Service) CreateTemplate(ctx context.Context, actor Actor, t *model.NotificationTemplate) (*model.NotificationTemplate, error) {
	t.TemplateID = uuid.New().String()
	t.CreatedBy = actor.AdminID
	t.CreatedAt = s.now().UTC()
	if err := t.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err.Error(), err)
	}

	if err := s.deps.Templates.Create(ctx, t); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionTemplateCreate,
		TargetEntity: storage.PrefixTemplate + t.TemplateID,
		IP:           actor.IP,
		Details:      map[string]any{"name": t.Name},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Store.Delete(ctx, storage.TemplateKey(t.TemplateID))
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
