package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
)

func (s *Server) handleSystemHealth(c *gin.Context) {
	respondOK(c, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.started).String(),
		"sessions":  s.deps.Hub.SessionCount(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSystemDatabase(c *gin.Context) {
	status := "ok"
	if err := s.deps.Store.HealthCheck(c.Request.Context()); err != nil {
		status = "unreachable"
	}
	respondOK(c, gin.H{
		"status":    status,
		"tableName": s.deps.Config.TableName,
		"region":    s.deps.Config.Region,
	})
}

func (s *Server) handleAPIMetrics(c *gin.Context) {
	respondOK(c, s.metrics.Snapshot())
}

func (s *Server) handleRealtimeMetrics(c *gin.Context) {
	respondOK(c, gin.H{
		"sessions":  s.deps.Hub.SessionCount(),
		"topics":    []string{"metrics", "activity", "notifications", "security", "system"},
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSystemStorage(c *gin.Context) {
	backups, err := s.deps.Backups.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	var total int64
	for _, b := range backups {
		total += b.SizeBytes
	}
	respondOK(c, gin.H{
		"bucket":          s.deps.Config.Bucket,
		"backupCount":     len(backups),
		"backupSizeBytes": total,
		"tableName":       s.deps.Config.TableName,
		"retentionDays":   s.deps.Config.AuditRetentionDays,
	})
}

func (s *Server) handleListSettings(c *gin.Context) {
	settings, err := s.deps.Settings.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"settings": settings})
}

func (s *Server) handleUpdateSetting(c *gin.Context) {
	var req struct {
		Value    any    `json:"value"`
		Category string `json:"category"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	setting, err := s.deps.Admin.UpdateSetting(c.Request.Context(), actorFrom(c), c.Param("key"), req.Category, req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, setting)
}

func (s *Server) handleCleanup(c *gin.Context) {
	var req struct {
		CleanupType string `json:"cleanupType"`
		DaysOld     int    `json:"daysOld"`
		DryRun      bool   `json:"dryRun"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.CleanupType != "audit" {
		fail(c, errs.Validation("cleanupType", "enum", "cleanup type must be audit"))
		return
	}
	result, err := s.deps.Admin.CleanupAuditRecords(c.Request.Context(), actorFrom(c), req.DaysOld, req.DryRun)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, result)
}

func (s *Server) handleCreateBackup(c *gin.Context) {
	var req struct {
		BackupType  model.BackupType `json:"backupType"`
		IncludeData bool             `json:"includeData"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	backup, err := s.deps.Admin.CreateBackup(c.Request.Context(), actorFrom(c), req.BackupType, req.IncludeData)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, backup)
}

func (s *Server) handleListBackups(c *gin.Context) {
	backups, err := s.deps.Backups.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"backups": backups})
}

func (s *Server) handleRestoreBackup(c *gin.Context) {
	backup, err := s.deps.Admin.RestoreBackup(c.Request.Context(), actorFrom(c), c.Param("backupId"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, backup)
}

func (s *Server) handleScheduleMaintenance(c *gin.Context) {
	var w model.MaintenanceWindow
	if err := bindJSON(c, &w); err != nil {
		fail(c, err)
		return
	}
	scheduled, err := s.deps.Admin.ScheduleMaintenance(c.Request.Context(), actorFrom(c), &w)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, scheduled)
}

func (s *Server) handleListMaintenance(c *gin.Context) {
	windows, err := s.deps.Maintenance.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"windows": windows})
}
