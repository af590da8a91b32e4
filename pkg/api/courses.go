package api

import (
	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
)

func (s *Server) handleListCourses(c *gin.Context) {
	limit, err := limitQuery(c, 50)
	if err != nil {
		fail(c, err)
		return
	}
	courses, next, err := s.deps.Courses.List(c.Request.Context(), repo.ListCoursesInput{
		Status: model.CourseStatus(c.Query("status")),
		Limit:  limit,
		Token:  c.Query("lastEvaluatedKey"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"courses": courses, "lastEvaluatedKey": next})
}

// handleGetCourse returns a course with its ratings, the view a
// moderator sees before deciding.
func (s *Server) handleGetCourse(c *gin.Context) {
	course, err := s.deps.Courses.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		fail(c, err)
		return
	}
	ratings, err := s.deps.Ratings.ListByCourse(c.Request.Context(), course.CourseID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"course": course, "ratings": ratings})
}

type moderationRequest struct {
	Action model.ModerationAction `json:"action"`
	Reason string                 `json:"reason"`
}

func (s *Server) handleApproveCourse(c *gin.Context) {
	var req moderationRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	course, err := s.deps.Admin.ApproveCourse(c.Request.Context(), actorFrom(c), c.Param("courseId"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, course)
}

func (s *Server) handleRejectCourse(c *gin.Context) {
	var req moderationRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	course, err := s.deps.Admin.RejectCourse(c.Request.Context(), actorFrom(c), c.Param("courseId"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, course)
}

func (s *Server) handleModerateCourse(c *gin.Context) {
	var req moderationRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	course, err := s.deps.Admin.ModerateCourse(c.Request.Context(), actorFrom(c), c.Param("courseId"), req.Action, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, course)
}
