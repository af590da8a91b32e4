package repo

import (
	"context"
	"sort"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Settings is the typed repository for platform settings.
type Settings struct {
	store storage.Store
}

// NewSettings creates a settings repository over the store.
func NewSettings(store storage.Store) *Settings {
	return &Settings{store: store}
}

// Get loads one setting.
func (r *Settings) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	var setting model.SystemSetting
	if err := r.store.Get(ctx, storage.SettingKey(key), &setting); err != nil {
		return nil, mapStoreErr(err, "setting not found")
	}
	return &setting, nil
}

// Put writes one setting.
func (r *Settings) Put(ctx context.Context, setting *model.SystemSetting) error {
	return mapStoreErr(r.store.Put(ctx, storage.SettingKey(setting.Key), setting, nil), "")
}

// List returns every setting.
func (r *Settings) List(ctx context.Context) ([]model.SystemSetting, error) {
	out, err := r.store.Scan(ctx, storage.ScanInput{
		PKPrefix: storage.PrefixSetting,
		SKEquals: storage.SKMeta,
		Page:     storage.Page{Limit: MaxPageSize},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return unmarshalPage[model.SystemSetting](out.Items)
}

// Backups is the typed repository for backup records.
type Backups struct {
	store storage.Store
}

// NewBackups creates a backup repository over the store.
func NewBackups(store storage.Store) *Backups {
	return &Backups{store: store}
}

// Get loads one backup record.
func (r *Backups) Get(ctx context.Context, backupID string) (*model.Backup, error) {
	var backup model.Backup
	if err := r.store.Get(ctx, storage.BackupKey(backupID), &backup); err != nil {
		return nil, mapStoreErr(err, "backup not found")
	}
	return &backup, nil
}

// Put writes a backup record.
func (r *Backups) Put(ctx context.Context, backup *model.Backup) error {
	return mapStoreErr(r.store.Put(ctx, storage.BackupKey(backup.BackupID), backup, nil), "")
}

// List returns every backup record, newest first.
func (r *Backups) List(ctx context.Context) ([]model.Backup, error) {
	out, err := r.store.Scan(ctx, storage.ScanInput{
		PKPrefix: storage.PrefixBackup,
		SKEquals: storage.SKMeta,
		Page:     storage.Page{Limit: MaxPageSize},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	backups, err := unmarshalPage[model.Backup](out.Items)
	if err != nil {
		return nil, err
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Maintenance is the typed repository for maintenance windows.
type Maintenance struct {
	store storage.Store
}

// NewMaintenance creates a maintenance repository over the store.
func NewMaintenance(store storage.Store) *Maintenance {
	return &Maintenance{store: store}
}

// Put writes a maintenance window.
func (r *Maintenance) Put(ctx context.Context, w *model.MaintenanceWindow) error {
	return mapStoreErr(r.store.Put(ctx, storage.MaintenanceKey(w.WindowID), w, nil), "")
}

// List returns every scheduled window, earliest start first.
func (r *Maintenance) List(ctx context.Context) ([]model.MaintenanceWindow, error) {
	out, err := r.store.Scan(ctx, storage.ScanInput{
		PKPrefix: storage.PrefixMaintenance,
		SKEquals: storage.SKMeta,
		Page:     storage.Page{Limit: MaxPageSize},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	windows, err := unmarshalPage[model.MaintenanceWindow](out.Items)
	if err != nil {
		return nil, err
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].StartTime.Before(windows[j].StartTime)
	})
	return windows, nil
}
