package api

import (
	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
)

func (s *Server) handleListTickets(c *gin.Context) {
	limit, err := limitQuery(c, 50)
	if err != nil {
		fail(c, err)
		return
	}
	tickets, next, err := s.deps.Tickets.List(c.Request.Context(), repo.ListTicketsInput{
		Status:   model.TicketStatus(c.Query("status")),
		Priority: model.TicketPriority(c.Query("priority")),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
		Token:    c.Query("lastEvaluatedKey"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, gin.H{"tickets": tickets, "lastEvaluatedKey": next})
}

func (s *Server) handleCreateTicket(c *gin.Context) {
	var ticket model.SupportTicket
	if err := bindJSON(c, &ticket); err != nil {
		fail(c, err)
		return
	}
	created, err := s.deps.Admin.CreateTicket(c.Request.Context(), actorFrom(c), &ticket)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, created)
}

func (s *Server) handleUpdateTicketStatus(c *gin.Context) {
	var req struct {
		Status     model.TicketStatus `json:"status"`
		AssignedTo string             `json:"assignedTo"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ticket, err := s.deps.Admin.UpdateTicketStatus(c.Request.Context(), actorFrom(c), c.Param("ticketId"), req.Status, req.AssignedTo)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, ticket)
}

func (s *Server) handleTicketStatistics(c *gin.Context) {
	stats, err := s.deps.Tickets.Statistics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, stats)
}
