package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
)

func (s *Server) handleSecurityDashboard(c *gin.Context) {
	hoursBack, err := intQuery(c, "hoursBack", 24)
	if err != nil {
		fail(c, err)
		return
	}
	dashboard, err := s.deps.Monitor.BuildDashboard(c.Request.Context(), hoursBack)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, dashboard)
}

func (s *Server) handleSecurityEvents(c *gin.Context) {
	hoursBack, err := intQuery(c, "hoursBack", 24)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := limitQuery(c, 100)
	if err != nil {
		fail(c, err)
		return
	}
	since := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)
	events, err := s.deps.SecurityEvents.ListSince(c.Request.Context(), since, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"events": events, "hoursBack": hoursBack})
}

func (s *Server) handleSecuritySuspicious(c *gin.Context) {
	hoursBack, err := intQuery(c, "hoursBack", 24)
	if err != nil {
		fail(c, err)
		return
	}
	since := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)
	events, err := s.deps.SecurityEvents.SuspiciousSince(c.Request.Context(), since, 100)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"events": events, "hoursBack": hoursBack})
}

func (s *Server) handleUpdatePolicies(c *gin.Context) {
	var policy model.SecurityPolicy
	if err := bindJSON(c, &policy); err != nil {
		fail(c, err)
		return
	}
	updated, err := s.deps.Admin.UpdateSecurityPolicy(c.Request.Context(), actorFrom(c), &policy)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, updated)
}

// handleIngestSecurityEvent accepts login outcomes from the auth plane
// and feeds the rolling-window monitor.
func (s *Server) handleIngestSecurityEvent(c *gin.Context) {
	var req struct {
		EventType model.SecurityEventType `json:"eventType"`
		UserID    string                  `json:"userId"`
		IP        string                  `json:"ip"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.UserID == "" {
		fail(c, errs.Validation("userId", "required", "a user id is required"))
		return
	}
	if req.IP == "" {
		req.IP = c.ClientIP()
	}

	var (
		raised []model.SecurityEvent
		err    error
	)
	switch req.EventType {
	case model.EventLoginFail:
		raised, err = s.deps.Monitor.RecordFailure(c.Request.Context(), req.UserID, req.IP)
	case model.EventLoginSuccess:
		raised, err = s.deps.Monitor.RecordSuccess(c.Request.Context(), req.UserID, req.IP)
	default:
		fail(c, errs.Validation("eventType", "enum", "event type must be LOGIN_SUCCESS or LOGIN_FAIL"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, gin.H{
		"suspicious": raised,
		"lockedOut":  s.deps.Monitor.IsLockedOut(req.UserID),
	})
}

func (s *Server) handleAcknowledgeEvent(c *gin.Context) {
	var req struct {
		EventID   string    `json:"eventId"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.EventID == "" || req.Timestamp.IsZero() {
		fail(c, errs.Validation("eventId", "required", "an event id and its timestamp are required"))
		return
	}
	event, err := s.deps.Admin.AcknowledgeSecurityEvent(c.Request.Context(), actorFrom(c), req.Timestamp, req.EventID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, event)
}
