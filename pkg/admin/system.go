package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// UpdateSetting writes one platform setting, bumping its version, and
// broadcasts the change so in-memory snapshots refresh.
func (s *Service) UpdateSetting(ctx context.Context, actor Actor, key, category string, value any) (*model.SystemSetting, error) {
	if key == "" {
		return nil, errs.Validation("key", "required", "a setting key is required")
	}

	var previous *model.SystemSetting
	setting := &model.SystemSetting{Key: key, Category: category, Version: 1}
	if existing, err := s.deps.Settings.Get(ctx, key); err == nil {
		previous = existing
		setting.Category = existing.Category
		if category != "" {
			setting.Category = category
		}
		setting.Version = existing.Version + 1
	} else if !errs.Is(err, errs.KindNotFound) {
		return nil, err
	}
	setting.Value = value
	setting.UpdatedBy = actor.AdminID
	setting.UpdatedAt = s.now().UTC()

	if err := s.deps.Settings.Put(ctx, setting); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionSettingUpdate,
		TargetEntity: storage.PrefixSetting + key,
		IP:           actor.IP,
		Details: map[string]any{
			"key":     key,
			"version": setting.Version,
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		if previous == nil {
			return s.deps.Store.Delete(ctx, storage.SettingKey(key))
		}
		return s.deps.Settings.Put(ctx, previous)
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicSystem, realtime.EventSystemUpdate, setting)
	return setting, nil
}

// UpdateSecurityPolicy replaces the tunable security policy.
func (s *Service) UpdateSecurityPolicy(ctx context.Context, actor Actor, policy *model.SecurityPolicy) (*model.SecurityPolicy, error) {
	if policy.MaxFailedLogins <= 0 || policy.MaxIPFailures <= 0 {
		return nil, errs.Validation("maxFailedLogins", "positive", "failure thresholds must be positive")
	}
	if policy.FailureWindow <= 0 || policy.LockoutDuration <= 0 {
		return nil, errs.Validation("failureWindow", "positive", "policy durations must be positive")
	}

	previous, err := s.deps.Policies.Get(ctx)
	if err != nil {
		return nil, err
	}
	policy.PolicyID = "default"
	policy.Version = previous.Version + 1
	policy.UpdatedBy = actor.AdminID
	policy.UpdatedAt = s.now().UTC()

	if err := s.deps.Policies.Put(ctx, policy); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionPolicyUpdate,
		TargetEntity: storage.PrefixPolicy + policy.PolicyID,
		IP:           actor.IP,
		Details:      map[string]any{"version": policy.Version},
	}
	err = s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Policies.Put(ctx, previous)
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicSystem, realtime.EventSystemUpdate, policy)
	return policy, nil
}

// CleanupResult reports what a cleanup run touched.
type CleanupResult struct {
	CleanupType string `json:"cleanupType"`
	DryRun      bool   `json:"dryRun"`
	Affected    int    `json:"affected"`
}

// CleanupAuditRecords deletes audit records older than daysOld days. The
// retention floor from configuration is a hard lower bound. A dry run
// counts without deleting and is not itself audited.
//
// Deleted records cannot be restored, so an audit failure here is
// reported without compensation.
func (s *Service) CleanupAuditRecords(ctx context.Context, actor Actor, daysOld int, dryRun bool) (*CleanupResult, error) {
	if daysOld < s.deps.RetentionDays {
		return nil, errs.Validation("daysOld", "min",
			fmt.Sprintf("audit records are retained for at least %d days", s.deps.RetentionDays))
	}

	cutoff := s.now().UTC().AddDate(0, 0, -daysOld)
	affected, err := s.deps.AuditRecords.CleanupOlderThan(ctx, cutoff, dryRun)
	if err != nil {
		return nil, err
	}
	result := &CleanupResult{CleanupType: "audit", DryRun: dryRun, Affected: affected}
	if dryRun {
		return result, nil
	}

	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionDataCleanup,
		TargetEntity: storage.PrefixAudit + "RETENTION",
		IP:           actor.IP,
		Details: map[string]any{
			"daysOld":  daysOld,
			"affected": affected,
		},
	}
	if err := s.auditOrCompensate(ctx, entry, nil); err != nil {
		return nil, err
	}

	s.publish(realtime.TopicSystem, realtime.EventSystemUpdate, result)
	return result, nil
}

// CreateBackup records a backup run and where its artifact lands.
func (s *Service) CreateBackup(ctx context.Context, actor Actor, backupType model.BackupType, includeData bool) (*model.Backup, error) {
	if backupType != model.BackupFull && backupType != model.BackupIncremental {
		return nil, errs.Validation("backupType", "enum", "backup type must be full or incremental")
	}

	now := s.now().UTC()
	backup := &model.Backup{
		BackupID:    uuid.New().String(),
		BackupType:  backupType,
		Status:      model.BackupCompleted,
		IncludeData: includeData,
		Bucket:      s.deps.Bucket,
		ObjectKey:   fmt.Sprintf("backups/%s/%s.json", now.Format("2006-01-02"), uuid.New().String()),
		CreatedBy:   actor.AdminID,
		CreatedAt:   now,
	}
	if err := s.deps.Backups.Put(ctx, backup); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionBackupCreate,
		TargetEntity: storage.PrefixBackup + backup.BackupID,
		IP:           actor.IP,
		Details: map[string]any{
			"backupType":  backupType,
			"includeData": includeData,
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Store.Delete(ctx, storage.BackupKey(backup.BackupID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicSystem, realtime.EventSystemUpdate, backup)
	return backup, nil
}

// RestoreBackup marks a completed backup restored.
func (s *Service) RestoreBackup(ctx context.Context, actor Actor, backupID string) (*model.Backup, error) {
	backup, err := s.deps.Backups.Get(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if backup.Status != model.BackupCompleted {
		return nil, errs.New(errs.KindConflict, "only completed backups can be restored")
	}

	previous := *backup
	now := s.now().UTC()
	backup.Status = model.BackupRestored
	backup.RestoredAt = &now

	if err := s.deps.Backups.Put(ctx, backup); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionBackupRestore,
		TargetEntity: storage.PrefixBackup + backupID,
		IP:           actor.IP,
	}
	err = s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Backups.Put(ctx, &previous)
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicSystem, realtime.EventSystemUpdate, backup)
	return backup, nil
}

// ScheduleMaintenance records a downtime window and optionally notifies
// connected admins.
func (s *Service) ScheduleMaintenance(ctx context.Context, actor Actor, w *model.MaintenanceWindow) (*model.MaintenanceWindow, error) {
	w.WindowID = uuid.New().String()
	w.ScheduledBy = actor.AdminID
	w.CreatedAt = s.now().UTC()
	if err := w.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err.Error(), err)
	}

	if err := s.deps.Maintenance.Put(ctx, w); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionMaintenanceSchedule,
		TargetEntity: storage.PrefixMaintenance + w.WindowID,
		IP:           actor.IP,
		Details: map[string]any{
			"title":     w.Title,
			"startTime": w.StartTime,
			"endTime":   w.EndTime,
		},
	}
	err := s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		return s.deps.Store.Delete(ctx, storage.MaintenanceKey(w.WindowID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicSystem, realtime.EventSystemUpdate, w)
	if w.NotifyUsers {
		s.publish(realtime.TopicNotifications, realtime.EventNotificationNew, w)
	}
	return w, nil
}

// AcknowledgeSecurityEvent marks one suspicious event as handled.
func (s *Service) AcknowledgeSecurityEvent(ctx context.Context, actor Actor, ts time.Time, eventID string) (*model.SecurityEvent, error) {
	event, err := s.deps.SecurityEvents.Acknowledge(ctx, ts, eventID, actor.AdminID)
	if err != nil {
		return nil, err
	}
	entry := audit.Entry{
		AdminID:      actor.AdminID,
		Action:       model.ActionSecurityEventAck,
		TargetEntity: storage.PrefixSecurity + eventID,
		IP:           actor.IP,
		Details:      map[string]any{"eventType": event.EventType, "subtype": event.Subtype},
	}
	err = s.auditOrCompensate(ctx, entry, func(ctx context.Context) error {
		event.Acknowledged = false
		event.AckedBy = ""
		return s.deps.Store.Put(ctx, storage.SecurityKey(ts, eventID), event, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.TopicActivity, realtime.EventDashboardActivity, event)
	return event, nil
}
