package model

import (
	"errors"
	"time"
)

// TicketStatus is the closed support ticket status set.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether the status belongs to the closed set.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// TicketPriority is the closed priority set.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority belongs to the closed set.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

var (
	ErrEmptyTicketSubject = errors.New("ticket subject cannot be empty")
	ErrEmptyTicketUser    = errors.New("ticket requires a user id")
	ErrInvalidPriority    = errors.New("priority is not one of low, medium, high, urgent")
	ErrInvalidTicketState = errors.New("ticket status is not one of open, in_progress, resolved, closed")
)

// SupportTicket is one user-raised support request handled by admins.
type SupportTicket struct {
	TicketID    string         `json:"ticketId" dynamodbav:"TicketID"`
	UserID      string         `json:"userId" dynamodbav:"UserID"`
	UserEmail   string         `json:"userEmail" dynamodbav:"UserEmail"`
	UserName    string         `json:"userName" dynamodbav:"UserName"`
	Subject     string         `json:"subject" dynamodbav:"Subject"`
	Description string         `json:"description" dynamodbav:"Description"`
	Category    string         `json:"category" dynamodbav:"Category"`
	Priority    TicketPriority `json:"priority" dynamodbav:"Priority"`
	Status      TicketStatus   `json:"status" dynamodbav:"Status"`
	AssignedTo  string         `json:"assignedTo,omitempty" dynamodbav:"AssignedTo,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time      `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Validate checks the ticket invariants.
func (t *SupportTicket) Validate() error {
	if t.UserID == "" {
		return ErrEmptyTicketUser
	}
	if t.Subject == "" {
		return ErrEmptyTicketSubject
	}
	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}
	if !t.Status.Valid() {
		return ErrInvalidTicketState
	}
	return nil
}

// Announcement is a platform-wide admin communication.
type Announcement struct {
	AnnouncementID string    `json:"announcementId" dynamodbav:"AnnouncementID"`
	Title          string    `json:"title" dynamodbav:"Title"`
	Content        string    `json:"content" dynamodbav:"Content"`
	Type           string    `json:"type" dynamodbav:"Type"`
	TargetAudience string    `json:"targetAudience" dynamodbav:"TargetAudience"`
	Status         string    `json:"status" dynamodbav:"Status"`
	Channels       []string  `json:"channels" dynamodbav:"Channels,omitempty"`
	Priority       string    `json:"priority" dynamodbav:"Priority"`
	CreatedBy      string    `json:"createdBy" dynamodbav:"CreatedBy"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

var ErrEmptyAnnouncement = errors.New("announcement requires a title and content")

// Validate checks the announcement invariants.
func (a *Announcement) Validate() error {
	if a.Title == "" || a.Content == "" {
		return ErrEmptyAnnouncement
	}
	return nil
}

// NotificationTemplate is a reusable admin notification template.
type NotificationTemplate struct {
	TemplateID string    `json:"templateId" dynamodbav:"TemplateID"`
	Name       string    `json:"name" dynamodbav:"Name"`
	Category   string    `json:"category" dynamodbav:"Category"`
	Subject    string    `json:"subject" dynamodbav:"Subject"`
	Body       string    `json:"body" dynamodbav:"Body"`
	Variables  []string  `json:"variables" dynamodbav:"Variables,omitempty"`
	Channels   []string  `json:"channels" dynamodbav:"Channels,omitempty"`
	IsActive   bool      `json:"isActive" dynamodbav:"IsActive"`
	CreatedBy  string    `json:"createdBy" dynamodbav:"CreatedBy"`
	CreatedAt  time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

var ErrEmptyTemplateName = errors.New("template requires a name and body")

// Validate checks the template invariants.
func (t *NotificationTemplate) Validate() error {
	if t.Name == "" || t.Body == "" {
		return ErrEmptyTemplateName
	}
	return nil
}

// Notification is a targeted admin-sent message. Targeting is by roles or
// by explicit user ids, never both.
type Notification struct {
	NotificationID string    `json:"notificationId" dynamodbav:"NotificationID"`
	Title          string    `json:"title" dynamodbav:"Title"`
	Message        string    `json:"message" dynamodbav:"Message"`
	Type           string    `json:"type" dynamodbav:"Type"`
	TargetRoles    []Role    `json:"targetRoles,omitempty" dynamodbav:"TargetRoles,omitempty"`
	TargetUserIDs  []string  `json:"targetUserIds,omitempty" dynamodbav:"TargetUserIDs,omitempty"`
	Channels       []string  `json:"channels" dynamodbav:"Channels,omitempty"`
	SentBy         string    `json:"sentBy" dynamodbav:"SentBy"`
	SentAt         time.Time `json:"sentAt" dynamodbav:"SentAt"`
}
