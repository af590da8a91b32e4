// Package api is the HTTP edge of the admin plane. It matches routes,
// authenticates and authorizes every request, translates errors into the
// taxonomy's HTTP mapping and wraps all responses in one envelope.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/admin"
	"github.com/learnhub/admin-plane/pkg/analytics"
	"github.com/learnhub/admin-plane/pkg/auth"
	"github.com/learnhub/admin-plane/pkg/config"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/repo"
	"github.com/learnhub/admin-plane/pkg/security"
	"github.com/learnhub/admin-plane/pkg/storage"
)

const (
	requestDeadline = 15 * time.Second
	exportDeadline  = 60 * time.Second
)

// Deps collects everything the edge dispatches to.
type Deps struct {
	Config         *config.Config
	Verifier       *auth.Verifier
	Authorizer     *auth.Authorizer
	Admin          *admin.Service
	Analytics      *analytics.Engine
	Monitor        *security.Monitor
	Hub            *realtime.Hub
	Store          storage.Store
	Users          *repo.Users
	Courses        *repo.Courses
	Enrollments    *repo.Enrollments
	Ratings        *repo.Ratings
	Tickets        *repo.Tickets
	Announcements  *repo.Announcements
	Templates      *repo.Templates
	Settings       *repo.Settings
	Backups        *repo.Backups
	Maintenance    *repo.Maintenance
	SecurityEvents *repo.SecurityEvents
	AuditRecords   *repo.Audit
	Logger         *slog.Logger
}

// Server is the HTTP edge.
type Server struct {
	deps    Deps
	metrics *apiMetrics
	started time.Time
}

// NewServer creates the edge over its dependencies.
func NewServer(deps Deps) *Server {
	return &Server{
		deps:    deps,
		metrics: newAPIMetrics(),
		started: time.Now().UTC(),
	}
}

// Router builds the full route table under /api/admin.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), s.trackMetrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	root := r.Group("/api/admin")

	// The websocket handshake authenticates inside the handler and is
	// not bound to the per-request deadline.
	root.GET("/ws", s.handleWebSocket)

	g := root.Group("", s.authenticate())

	// Exports walk whole namespaces and get a longer deadline.
	g.GET("/analytics/export", s.deadline(exportDeadline), s.handleAnalyticsExport)

	std := g.Group("", s.deadline(requestDeadline))

	std.GET("/verify", s.handleVerify)

	std.GET("/dashboard/overview", s.handleDashboardOverview)
	std.GET("/dashboard/metrics", s.handleDashboardMetrics)
	std.GET("/dashboard/activity", s.handleDashboardActivity)

	std.GET("/users", s.handleListUsers)
	std.GET("/users/:userId", s.handleGetUser)
	std.PUT("/users/:userId/role", s.handleChangeRole)
	std.PUT("/users/:userId/status", s.handleChangeStatus)
	std.GET("/users/:userId/activity", s.handleUserActivity)
	std.POST("/users/bulk/role", s.handleBulkChangeRoles)

	std.GET("/courses", s.handleListCourses)
	std.GET("/courses/:courseId", s.handleGetCourse)
	std.PUT("/courses/:courseId/approve", s.handleApproveCourse)
	std.PUT("/courses/:courseId/reject", s.handleRejectCourse)
	std.PUT("/courses/:courseId/moderate", s.handleModerateCourse)

	std.GET("/analytics/platform", s.handleAnalyticsPlatform)
	std.GET("/analytics/revenue", s.handleAnalyticsRevenue)
	std.GET("/analytics/users", s.handleAnalyticsUsers)

	std.GET("/security/dashboard", s.handleSecurityDashboard)
	std.GET("/security/events", s.handleSecurityEvents)
	std.GET("/security/suspicious", s.handleSecuritySuspicious)
	std.PUT("/security/policies", s.handleUpdatePolicies)
	std.POST("/security/events", s.handleIngestSecurityEvent)
	std.POST("/security/events/acknowledge", s.handleAcknowledgeEvent)

	std.GET("/support/tickets", s.handleListTickets)
	std.POST("/support/tickets", s.handleCreateTicket)
	std.PUT("/support/tickets/:ticketId/status", s.handleUpdateTicketStatus)
	std.GET("/support/tickets/statistics", s.handleTicketStatistics)

	std.POST("/communications/announcements", s.handleCreateAnnouncement)
	std.GET("/communications/announcements", s.handleListAnnouncements)
	std.POST("/communications/notifications", s.handleSendNotification)
	std.POST("/communications/templates", s.handleCreateTemplate)
	std.GET("/communications/templates", s.handleListTemplates)

	std.GET("/system/health", s.handleSystemHealth)
	std.GET("/system/database", s.handleSystemDatabase)
	std.GET("/system/api-metrics", s.handleAPIMetrics)
	std.GET("/system/metrics/realtime", s.handleRealtimeMetrics)
	std.GET("/system/storage", s.handleSystemStorage)
	std.GET("/system/settings", s.handleListSettings)
	std.PUT("/system/settings/:key", s.handleUpdateSetting)
	std.POST("/system/cleanup", s.handleCleanup)
	std.POST("/system/backups", s.handleCreateBackup)
	std.GET("/system/backups", s.handleListBackups)
	std.POST("/system/backups/:backupId/restore", s.handleRestoreBackup)
	std.POST("/system/maintenance", s.handleScheduleMaintenance)
	std.GET("/system/maintenance", s.handleListMaintenance)

	std.GET("/audit/reports", s.handleAuditReports)

	return r
}
