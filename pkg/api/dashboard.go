package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// handleVerify returns the authenticated principal. Reaching this
// handler at all means the token and the status re-check passed.
func (s *Server) handleVerify(c *gin.Context) {
	respondOK(c, gin.H{"principal": principalFrom(c)})
}

func (s *Server) handleDashboardOverview(c *gin.Context) {
	overview, err := s.deps.Analytics.Overview(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, overview)
}

func (s *Server) handleDashboardMetrics(c *gin.Context) {
	metrics, err := s.deps.Analytics.PlatformMetrics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"metrics": metrics, "timestamp": time.Now().UTC()})
}

func (s *Server) handleDashboardActivity(c *gin.Context) {
	from, to, err := timeRange(c, 7)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := limitQuery(c, 50)
	if err != nil {
		fail(c, err)
		return
	}
	records, next, err := s.deps.AuditRecords.ByDateRange(c.Request.Context(), from, to, limit, c.Query("lastEvaluatedKey"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"records": records, "lastEvaluatedKey": next})
}
