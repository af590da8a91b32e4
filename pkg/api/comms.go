package api

import (
	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/model"
)

func (s *Server) handleCreateAnnouncement(c *gin.Context) {
	var a model.Announcement
	if err := bindJSON(c, &a); err != nil {
		fail(c, err)
		return
	}
	created, err := s.deps.Admin.PublishAnnouncement(c.Request.Context(), actorFrom(c), &a)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, created)
}

func (s *Server) handleListAnnouncements(c *gin.Context) {
	announcements, err := s.deps.Announcements.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"announcements": announcements})
}

func (s *Server) handleSendNotification(c *gin.Context) {
	var n model.Notification
	if err := bindJSON(c, &n); err != nil {
		fail(c, err)
		return
	}
	sent, err := s.deps.Admin.SendNotification(c.Request.Context(), actorFrom(c), &n)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, sent)
}

func (s *Server) handleCreateTemplate(c *gin.Context) {
	var t model.NotificationTemplate
	if err := bindJSON(c, &t); err != nil {
		fail(c, err)
		return
	}
	created, err := s.deps.Admin.CreateTemplate(c.Request.Context(), actorFrom(c), &t)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, created)
}

func (s *Server) handleListTemplates(c *gin.Context) {
	templates, err := s.deps.Templates.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"templates": templates})
}
