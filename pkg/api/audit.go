package api

import (
	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/model"
)

// handleAuditReports queries the audit trail by admin, by action or by
// date range, whichever filter the caller supplies.
func (s *Server) handleAuditReports(c *gin.Context) {
	from, to, err := timeRange(c, 30)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := limitQuery(c, 100)
	if err != nil {
		fail(c, err)
		return
	}
	token := c.Query("lastEvaluatedKey")
	ctx := c.Request.Context()

	var (
		records []model.AuditRecord
		next    string
	)
	switch {
	case c.Query("adminId") != "":
		records, next, err = s.deps.AuditRecords.ByAdmin(ctx, c.Query("adminId"), from, to, limit, token)
	case c.Query("action") != "":
		records, next, err = s.deps.AuditRecords.ByAction(ctx, model.AuditAction(c.Query("action")), from, to, limit, token)
	default:
		records, next, err = s.deps.AuditRecords.ByDateRange(ctx, from, to, limit, token)
	}
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"records": records, "lastEvaluatedKey": next})
}
