package model

import (
	"errors"
	"time"
)

// AuditAction is the closed set of privileged actions recorded in the
// audit trail.
type AuditAction string

const (
	ActionUserRoleChange      AuditAction = "USER_ROLE_CHANGE"
	ActionUserStatusUpdate    AuditAction = "USER_STATUS_UPDATE"
	ActionCourseApproval      AuditAction = "COURSE_APPROVAL"
	ActionCourseRejection     AuditAction = "COURSE_REJECTION"
	ActionCourseModeration    AuditAction = "COURSE_MODERATION"
	ActionSettingUpdate       AuditAction = "SETTING_UPDATE"
	ActionPolicyUpdate        AuditAction = "POLICY_UPDATE"
	ActionAnnouncementPublish AuditAction = "ANNOUNCEMENT_PUBLISH"
	ActionNotificationSend    AuditAction = "NOTIFICATION_SEND"
	ActionBackupCreate        AuditAction = "BACKUP_CREATE"
	ActionBackupRestore       AuditAction = "BACKUP_RESTORE"
	ActionMaintenanceSchedule AuditAction = "MAINTENANCE_SCHEDULE"
	ActionDataCleanup         AuditAction = "DATA_CLEANUP"
	ActionTicketStateChange   AuditAction = "TICKET_STATE_CHANGE"
	ActionSecurityEventAck    AuditAction = "SECURITY_EVENT_ACK"
	ActionTemplateCreate      AuditAction = "TEMPLATE_CREATE"
)

var auditActions = map[AuditAction]bool{
	ActionUserRoleChange:      true,
	ActionUserStatusUpdate:    true,
	ActionCourseApproval:      true,
	ActionCourseRejection:     true,
	ActionCourseModeration:    true,
	ActionSettingUpdate:       true,
	ActionPolicyUpdate:        true,
	ActionAnnouncementPublish: true,
	ActionNotificationSend:    true,
	ActionBackupCreate:        true,
	ActionBackupRestore:       true,
	ActionMaintenanceSchedule: true,
	ActionDataCleanup:         true,
	ActionTicketStateChange:   true,
	ActionSecurityEventAck:    true,
	ActionTemplateCreate:      true,
}

// Valid reports whether the action belongs to the closed set.
func (a AuditAction) Valid() bool {
	return auditActions[a]
}

var (
	ErrInvalidAction = errors.New("audit action is not in the closed action set")
	ErrEmptyAdminID  = errors.New("audit record requires an admin id")
	ErrEmptyTarget   = errors.New("audit record requires a target entity")
)

// AuditRecord is one append-only record of a privileged operation.
// Records are never mutated or deleted by application code.
type AuditRecord struct {
	ActionID     string         `json:"actionId" dynamodbav:"ActionID"`
	AdminID      string         `json:"adminId" dynamodbav:"AdminID"`
	Action       AuditAction    `json:"action" dynamodbav:"Action"`
	TargetEntity string         `json:"targetEntity" dynamodbav:"TargetEntity"`
	Details      map[string]any `json:"details,omitempty" dynamodbav:"Details,omitempty"`
	IP           string         `json:"ip,omitempty" dynamodbav:"IP,omitempty"`
	Timestamp    time.Time      `json:"timestamp" dynamodbav:"Timestamp"`
}

// Validate checks the record invariants.
func (r *AuditRecord) Validate() error {
	if r.AdminID == "" {
		return ErrEmptyAdminID
	}
	if !r.Action.Valid() {
		return ErrInvalidAction
	}
	if r.TargetEntity == "" {
		return ErrEmptyTarget
	}
	return nil
}
