package repo

import (
	"context"
	"sort"
	"strings"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Tickets is the typed repository for support tickets.
type Tickets struct {
	store storage.Store
}

// NewTickets creates a ticket repository over the store.
func NewTickets(store storage.Store) *Tickets {
	return &Tickets{store: store}
}

// Get loads one ticket.
func (r *Tickets) Get(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	var ticket model.SupportTicket
	if err := r.store.Get(ctx, storage.TicketKey(ticketID), &ticket); err != nil {
		return nil, mapStoreErr(err, "ticket not found")
	}
	return &ticket, nil
}

// Create persists a new ticket; the non-existence condition rejects id
// collisions.
func (r *Tickets) Create(ctx context.Context, ticket *model.SupportTicket) error {
	cond := &storage.Condition{Kind: storage.CondNotExists}
	return mapStoreErr(r.store.Put(ctx, storage.TicketKey(ticket.TicketID), ticket, cond), "")
}

// StatusGuardOp returns the transactional write op for a status-guarded
// ticket update.
func (r *Tickets) StatusGuardOp(ticket *model.SupportTicket, expected model.TicketStatus) storage.WriteOp {
	return storage.WriteOp{
		Key:    storage.TicketKey(ticket.TicketID),
		Entity: ticket,
		Cond:   &storage.Condition{Kind: storage.CondAttrEquals, Attr: "Status", Value: string(expected)},
	}
}

// ListTicketsInput filters and pages a ticket listing.
type ListTicketsInput struct {
	Status   model.TicketStatus
	Priority model.TicketPriority
	Category string
	Search   string
	Limit    int32
	Token    string
}

// List returns one page of tickets matching the filters.
func (r *Tickets) List(ctx context.Context, in ListTicketsInput) ([]model.SupportTicket, string, error) {
	startKey, err := DecodeToken(in.Token)
	if err != nil {
		return nil, "", err
	}
	limit := clampLimit(in.Limit)
	search := strings.ToLower(in.Search)

	var tickets []model.SupportTicket
	for {
		// Remaining quota per round; see Users.List.
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixTicket,
			SKEquals: storage.SKMeta,
			Page:     storage.Page{Limit: limit - int32(len(tickets)), StartKey: startKey},
		})
		if err != nil {
			return nil, "", mapStoreErr(err, "")
		}

		page, err := unmarshalPage[model.SupportTicket](out.Items)
		if err != nil {
			return nil, "", err
		}
		for _, ticket := range page {
			if in.Status != "" && ticket.Status != in.Status {
				continue
			}
			if in.Priority != "" && ticket.Priority != in.Priority {
				continue
			}
			if in.Category != "" && ticket.Category != in.Category {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(ticket.Subject), search) &&
				!strings.Contains(strings.ToLower(ticket.Description), search) {
				continue
			}
			tickets = append(tickets, ticket)
		}

		startKey = out.NextKey
		if len(tickets) >= int(limit) || len(startKey) == 0 {
			break
		}
	}
	return tickets, EncodeToken(startKey), nil
}

// TicketStatistics aggregates counts by status, priority and category.
type TicketStatistics struct {
	Total      int                          `json:"total"`
	ByStatus   map[model.TicketStatus]int   `json:"byStatus"`
	ByPriority map[model.TicketPriority]int `json:"byPriority"`
	ByCategory map[string]int               `json:"byCategory"`
}

// Statistics computes ticket counts across the whole namespace.
func (r *Tickets) Statistics(ctx context.Context) (*TicketStatistics, error) {
	stats := &TicketStatistics{
		ByStatus:   make(map[model.TicketStatus]int),
		ByPriority: make(map[model.TicketPriority]int),
		ByCategory: make(map[string]int),
	}

	var startKey map[string]string
	for {
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixTicket,
			SKEquals: storage.SKMeta,
			Page:     storage.Page{Limit: MaxPageSize, StartKey: startKey},
		})
		if err != nil {
			return nil, mapStoreErr(err, "")
		}
		page, err := unmarshalPage[model.SupportTicket](out.Items)
		if err != nil {
			return nil, err
		}
		for _, ticket := range page {
			stats.Total++
			stats.ByStatus[ticket.Status]++
			stats.ByPriority[ticket.Priority]++
			if ticket.Category != "" {
				stats.ByCategory[ticket.Category]++
			}
		}
		if len(out.NextKey) == 0 {
			return stats, nil
		}
		startKey = out.NextKey
	}
}

// Announcements is the typed repository for platform announcements.
type Announcements struct {
	store storage.Store
}

// NewAnnouncements creates an announcement repository over the store.
func NewAnnouncements(store storage.Store) *Announcements {
	return &Announcements{store: store}
}

// Create persists a new announcement.
func (r *Announcements) Create(ctx context.Context, a *model.Announcement) error {
	cond := &storage.Condition{Kind: storage.CondNotExists}
	return mapStoreErr(r.store.Put(ctx, storage.AnnouncementKey(a.AnnouncementID), a, cond), "")
}

// List returns every announcement, newest first.
func (r *Announcements) List(ctx context.Context) ([]model.Announcement, error) {
	out, err := r.store.Scan(ctx, storage.ScanInput{
		PKPrefix: storage.PrefixAnnouncement,
		SKEquals: storage.SKMeta,
		Page:     storage.Page{Limit: MaxPageSize},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	announcements, err := unmarshalPage[model.Announcement](out.Items)
	if err != nil {
		return nil, err
	}
	// Scans walk in key order; the feed wants newest first.
	sort.Slice(announcements, func(i, j int) bool {
		return announcements[i].CreatedAt.After(announcements[j].CreatedAt)
	})
	return announcements, nil
}

// Templates is the typed repository for notification templates.
type Templates struct {
	store storage.Store
}

// NewTemplates creates a template repository over the store.
func NewTemplates(store storage.Store) *Templates {
	return &Templates{store: store}
}

// Create persists a new template.
func (r *Templates) Create(ctx context.Context, t *model.NotificationTemplate) error {
	cond := &storage.Condition{Kind: storage.CondNotExists}
	return mapStoreErr(r.store.Put(ctx, storage.TemplateKey(t.TemplateID), t, cond), "")
}

// List returns every template.
func (r *Templates) List(ctx context.Context) ([]model.NotificationTemplate, error) {
	out, err := r.store.Scan(ctx, storage.ScanInput{
		PKPrefix: storage.PrefixTemplate,
		SKEquals: storage.SKMeta,
		Page:     storage.Page{Limit: MaxPageSize},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return unmarshalPage[model.NotificationTemplate](out.Items)
}

// Notifications is the typed repository for sent notifications.
type Notifications struct {
	store storage.Store
}

// NewNotifications creates a notification repository over the store.
func NewNotifications(store storage.Store) *Notifications {
	return &Notifications{store: store}
}

// Create persists a sent notification.
func (r *Notifications) Create(ctx context.Context, n *model.Notification) error {
	cond := &storage.Condition{Kind: storage.CondNotExists}
	return mapStoreErr(r.store.Put(ctx, storage.NotificationKey(n.NotificationID), n, cond), "")
}
