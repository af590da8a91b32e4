package api

import (
	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
)

func (s *Server) handleListUsers(c *gin.Context) {
	limit, err := limitQuery(c, 50)
	if err != nil {
		fail(c, err)
		return
	}
	users, next, err := s.deps.Users.List(c.Request.Context(), repo.ListUsersInput{
		Role:   model.Role(c.Query("role")),
		Status: model.AccountStatus(c.Query("accountStatus")),
		Search: c.Query("search"),
		Limit:  limit,
		Token:  c.Query("lastEvaluatedKey"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"users": users, "lastEvaluatedKey": next})
}

// handleGetUser returns the profile together with the user's
// enrollments, the detail view the admin console shows.
func (s *Server) handleGetUser(c *gin.Context) {
	user, err := s.deps.Users.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	enrollments, err := s.deps.Enrollments.ListByUser(c.Request.Context(), user.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"user": user, "enrollments": enrollments})
}

func (s *Server) handleChangeRole(c *gin.Context) {
	var req struct {
		Role   model.Role `json:"role"`
		Reason string     `json:"reason"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, err := s.deps.Admin.ChangeUserRole(c.Request.Context(), actorFrom(c), c.Param("userId"), req.Role, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, user)
}

func (s *Server) handleChangeStatus(c *gin.Context) {
	var req struct {
		Status model.AccountStatus `json:"status"`
		Reason string              `json:"reason"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, err := s.deps.Admin.UpdateUserStatus(c.Request.Context(), actorFrom(c), c.Param("userId"), req.Status, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, user)
}

func (s *Server) handleUserActivity(c *gin.Context) {
	from, to, err := timeRange(c, 30)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := limitQuery(c, 50)
	if err != nil {
		fail(c, err)
		return
	}
	records, next, err := s.deps.Admin.UserActivity(c.Request.Context(), c.Param("userId"), from, to, limit, c.Query("lastEvaluatedKey"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"records": records, "lastEvaluatedKey": next})
}

func (s *Server) handleBulkChangeRoles(c *gin.Context) {
	var req struct {
		UserIDs []string   `json:"userIds"`
		Role    model.Role `json:"role"`
		Reason  string     `json:"reason"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := s.deps.Admin.BulkChangeRoles(c.Request.Context(), actorFrom(c), req.UserIDs, req.Role, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, result)
}
