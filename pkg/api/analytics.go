package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleAnalyticsPlatform(c *gin.Context) {
	metrics, err := s.deps.Analytics.PlatformMetrics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, metrics)
}

func (s *Server) handleAnalyticsRevenue(c *gin.Context) {
	from, to, err := timeRange(c, 365)
	if err != nil {
		fail(c, err)
		return
	}
	revenue, err := s.deps.Analytics.RevenueAnalytics(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, revenue)
}

func (s *Server) handleAnalyticsUsers(c *gin.Context) {
	from, to, err := timeRange(c, 90)
	if err != nil {
		fail(c, err)
		return
	}
	groupBy := c.DefaultQuery("groupBy", "day")
	growth, err := s.deps.Analytics.UserGrowth(c.Request.Context(), from, to, groupBy)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"groupBy": groupBy, "buckets": growth})
}

// handleAnalyticsExport streams the export body directly; it is the one
// endpoint that does not use the envelope on success.
func (s *Server) handleAnalyticsExport(c *gin.Context) {
	from, to, err := timeRange(c, 365)
	if err != nil {
		fail(c, err)
		return
	}
	format := c.Query("format")
	dataType := c.Query("dataType")

	body, contentType, err := s.deps.Analytics.Export(c.Request.Context(), format, dataType, from, to)
	if err != nil {
		fail(c, err)
		return
	}

	filename := fmt.Sprintf("%s-export-%s.%s", dataType, time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}
