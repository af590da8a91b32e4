package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/learnhub/admin-plane/pkg/admin"
	"github.com/learnhub/admin-plane/pkg/analytics"
	"github.com/learnhub/admin-plane/pkg/api"
	"github.com/learnhub/admin-plane/pkg/audit"
	"github.com/learnhub/admin-plane/pkg/auth"
	"github.com/learnhub/admin-plane/pkg/config"
	"github.com/learnhub/admin-plane/pkg/realtime"
	"github.com/learnhub/admin-plane/pkg/repo"
	"github.com/learnhub/admin-plane/pkg/security"
	"github.com/learnhub/admin-plane/pkg/storage"
)

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	return storage.NewDynamoDBStore(ctx, cfg, logger)
}

// metricsInterval paces the dashboard metrics push on topic metrics.
const metricsInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", slog.String("error", err.Error()))
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	logger.Info("loaded configuration",
		slog.String("port", cfg.Port),
		slog.String("table", cfg.TableName),
		slog.String("region", cfg.Region),
		slog.String("log_level", cfg.LogLevel))

	ctx := context.Background()
	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	users := repo.NewUsers(store)
	courses := repo.NewCourses(store)
	enrollments := repo.NewEnrollments(store)
	auditRecords := repo.NewAudit(store)
	events := repo.NewSecurityEvents(store)
	policies := repo.NewPolicies(store)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	authorizer := auth.NewAuthorizer(users, logger)
	hub := realtime.New(authorizer, logger)
	monitor := security.NewMonitor(events, policies, hub, logger)
	engine := analytics.NewEngine(users, courses, enrollments, auditRecords, logger)

	svc := admin.NewService(admin.Deps{
		Store:          store,
		Users:          users,
		Courses:        courses,
		Tickets:        repo.NewTickets(store),
		Announcements:  repo.NewAnnouncements(store),
		Templates:      repo.NewTemplates(store),
		Notifications:  repo.NewNotifications(store),
		Settings:       repo.NewSettings(store),
		Policies:       policies,
		Backups:        repo.NewBackups(store),
		Maintenance:    repo.NewMaintenance(store),
		SecurityEvents: events,
		AuditRecords:   auditRecords,
		Audit:          audit.NewLogger(auditRecords, logger),
		Authorizer:     authorizer,
		Publisher:      hub,
		Logger:         logger,
		RetentionDays:  cfg.AuditRetentionDays,
		Bucket:         cfg.Bucket,
	})

	edge := api.NewServer(api.Deps{
		Config:         cfg,
		Verifier:       verifier,
		Authorizer:     authorizer,
		Admin:          svc,
		Analytics:      engine,
		Monitor:        monitor,
		Hub:            hub,
		Store:          store,
		Users:          users,
		Courses:        courses,
		Enrollments:    enrollments,
		Ratings:        repo.NewRatings(store),
		Tickets:        repo.NewTickets(store),
		Announcements:  repo.NewAnnouncements(store),
		Templates:      repo.NewTemplates(store),
		Settings:       repo.NewSettings(store),
		Backups:        repo.NewBackups(store),
		Maintenance:    repo.NewMaintenance(store),
		SecurityEvents: events,
		AuditRecords:   auditRecords,
		Logger:         logger,
	})

	go hub.Run()

	// Dashboard metrics sampler. Connected admin consoles subscribed to
	// topic metrics receive a fresh snapshot on every tick.
	samplerDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(metricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if hub.SessionCount() == 0 {
					continue
				}
				sampleCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				metrics, err := engine.PlatformMetrics(sampleCtx)
				cancel()
				if err != nil {
					logger.Warn("metrics sample failed", slog.String("error", err.Error()))
					continue
				}
				hub.Publish(realtime.TopicMetrics, realtime.EventDashboardMetrics, metrics)
			case <-samplerDone:
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      edge.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	close(samplerDone)
	hub.Shutdown()

	logger.Info("server exited")
}
