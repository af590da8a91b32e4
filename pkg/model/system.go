package model

import (
	"errors"
	"time"
)

// SystemSetting is one admin-tunable platform setting. Settings are
// versioned; every update bumps Version and broadcasts on topic system.
type SystemSetting struct {
	Key       string    `json:"key" dynamodbav:"Key"`
	Value     any       `json:"value" dynamodbav:"Value"`
	Category  string    `json:"category" dynamodbav:"Category"`
	UpdatedBy string    `json:"updatedBy,omitempty" dynamodbav:"UpdatedBy,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
	Version   int       `json:"version" dynamodbav:"Version"`
}

// BackupType is the closed backup type set.
type BackupType string

const (
	BackupFull        BackupType = "full"
	BackupIncremental BackupType = "incremental"
)

// BackupStatus is the closed backup lifecycle set.
type BackupStatus string

const (
	BackupPending   BackupStatus = "pending"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
	BackupRestored  BackupStatus = "restored"
)

var ErrInvalidBackupType = errors.New("backup type is not one of full, incremental")

// Backup records one backup run and where its artifact lives.
type Backup struct {
	BackupID    string       `json:"backupId" dynamodbav:"BackupID"`
	BackupType  BackupType   `json:"backupType" dynamodbav:"BackupType"`
	Status      BackupStatus `json:"status" dynamodbav:"Status"`
	IncludeData bool         `json:"includeData" dynamodbav:"IncludeData"`
	Bucket      string       `json:"bucket,omitempty" dynamodbav:"Bucket,omitempty"`
	ObjectKey   string       `json:"objectKey,omitempty" dynamodbav:"ObjectKey,omitempty"`
	SizeBytes   int64        `json:"sizeBytes" dynamodbav:"SizeBytes"`
	CreatedBy   string       `json:"createdBy" dynamodbav:"CreatedBy"`
	CreatedAt   time.Time    `json:"createdAt" dynamodbav:"CreatedAt"`
	RestoredAt  *time.Time   `json:"restoredAt,omitempty" dynamodbav:"RestoredAt,omitempty"`
}

var (
	ErrEmptyMaintenanceTitle = errors.New("maintenance window requires a title")
	ErrInvalidWindow         = errors.New("maintenance end time must be after start time")
)

// MaintenanceWindow is a scheduled downtime announcement.
type MaintenanceWindow struct {
	WindowID         string    `json:"windowId" dynamodbav:"WindowID"`
	Title            string    `json:"title" dynamodbav:"Title"`
	Description      string    `json:"description" dynamodbav:"Description"`
	StartTime        time.Time `json:"startTime" dynamodbav:"StartTime"`
	EndTime          time.Time `json:"endTime" dynamodbav:"EndTime"`
	MaintenanceType  string    `json:"maintenanceType" dynamodbav:"MaintenanceType"`
	AffectedServices []string  `json:"affectedServices" dynamodbav:"AffectedServices,omitempty"`
	NotifyUsers      bool      `json:"notifyUsers" dynamodbav:"NotifyUsers"`
	ScheduledBy      string    `json:"scheduledBy" dynamodbav:"ScheduledBy"`
	CreatedAt        time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

// Validate checks the window invariants.
func (w *MaintenanceWindow) Validate() error {
	if w.Title == "" {
		return ErrEmptyMaintenanceTitle
	}
	if !w.EndTime.After(w.StartTime) {
		return ErrInvalidWindow
	}
	return nil
}
