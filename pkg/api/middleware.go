package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/admin"
	"github.com/learnhub/admin-plane/pkg/auth"
	"github.com/learnhub/admin-plane/pkg/model"
)

const ctxPrincipal = "principal"

// authenticate verifies the bearer token and checks the super_admin
// requirement before any handler runs. A rejected request never reaches
// a repository.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.deps.Verifier.Verify(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, err)
			return
		}
		if err := s.deps.Authorizer.Authorize(c.Request.Context(), principal, model.RoleSuperAdmin); err != nil {
			abort(c, err)
			return
		}
		c.Set(ctxPrincipal, principal)
		c.Next()
	}
}

func principalFrom(c *gin.Context) *auth.Principal {
	p, _ := c.Get(ctxPrincipal)
	principal, _ := p.(*auth.Principal)
	return principal
}

func actorFrom(c *gin.Context) admin.Actor {
	principal := principalFrom(c)
	return admin.Actor{AdminID: principal.Sub, IP: c.ClientIP()}
}

// deadline bounds the request context. Handlers pass the context to
// every blocking call, so expiry cancels in-flight I/O.
func (s *Server) deadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.deps.Logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}

// apiMetrics collects in-process request counters for the api-metrics
// endpoint.
type apiMetrics struct {
	mu        sync.Mutex
	total     int64
	byStatus  map[int]int64
	byPath    map[string]int64
	elapsed   time.Duration
	startedAt time.Time
}

func newAPIMetrics() *apiMetrics {
	return &apiMetrics{
		byStatus:  make(map[int]int64),
		byPath:    make(map[string]int64),
		startedAt: time.Now().UTC(),
	}
}

func (m *apiMetrics) record(path string, status int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.byStatus[status]++
	m.byPath[path]++
	m.elapsed += elapsed
}

// Snapshot returns a copy of the counters for serialization.
func (m *apiMetrics) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStatus := make(map[int]int64, len(m.byStatus))
	for k, v := range m.byStatus {
		byStatus[k] = v
	}
	byPath := make(map[string]int64, len(m.byPath))
	for k, v := range m.byPath {
		byPath[k] = v
	}
	var avg time.Duration
	if m.total > 0 {
		avg = m.elapsed / time.Duration(m.total)
	}
	return map[string]any{
		"totalRequests":    m.total,
		"requestsByStatus": byStatus,
		"requestsByPath":   byPath,
		"averageLatencyMs": avg.Milliseconds(),
		"since":            m.startedAt,
	}
}

func (s *Server) trackMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.metrics.record(c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
