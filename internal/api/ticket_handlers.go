package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aidesk-io/aidesk/internal/apierrors"
	"github.com/aidesk-io/aidesk/internal/lifecycle"
	"github.com/aidesk-io/aidesk/internal/middleware"
	"github.com/aidesk-io/aidesk/internal/repository"
)

type createTicketRequest struct {
	ClientName         string `json:"client_name" binding:"required"`
	ClientEmail        string `json:"client_email"`
	ProblemDescription string `json:"problem_description" binding:"required"`
	LGPDAccepted       bool   `json:"lgpd_accepted"`
}

type postMessageRequest struct {
	SenderName string `json:"sender_name" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// handleCreateTicket opens a ticket. Consent to data processing is a
// hard requirement.
func (s *Server) handleCreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}
	if !req.LGPDAccepted {
		apierrors.Error(c, apierrors.CodeLGPDNotAccepted)
		return
	}

	ticket, welcome, err := s.coordinator.OpenTicket(c.Request.Context(),
		s.sanitize(req.ClientName), s.sanitize(req.ClientEmail),
		s.sanitize(req.ProblemDescription), req.LGPDAccepted)
	if err != nil {
		s.logger.Printf("create ticket: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	resp := gin.H{"ticket": ticket}
	if welcome != nil {
		resp["welcome"] = welcome
	}
	c.JSON(http.StatusCreated, resp)
}

// handleListTickets returns tickets, optionally filtered by status
// (comma-separated or repeated query params).
func (s *Server) handleListTickets(c *gin.Context) {
	var statuses []string
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, part)
			}
		}
	}

	tickets, err := s.tickets.List(c.Request.Context(), statuses)
	if err != nil {
		s.logger.Printf("list tickets: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": len(tickets)})
}

func (s *Server) handleGetTicket(c *gin.Context) {
	ticket, err := s.tickets.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeTicketNotFound)
			return
		}
		s.logger.Printf("get ticket: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (s *Server) handleListMessages(c *gin.Context) {
	ticketID := c.Param("id")
	if _, err := s.tickets.GetByID(c.Request.Context(), ticketID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeTicketNotFound)
			return
		}
		s.logger.Printf("get ticket: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	messages, err := s.messages.ListByTicket(c.Request.Context(), ticketID)
	if err != nil {
		s.logger.Printf("list messages: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// handleClientMessage appends a customer message and returns the full
// exchange, assistant reply included when the ticket is still open.
func (s *Server) handleClientMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}

	out, err := s.coordinator.HandleClientMessage(c.Request.Context(), c.Param("id"),
		s.sanitize(req.SenderName), s.sanitize(req.Content))
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"messages": out})
}

// handleTechnicianMessage appends an authenticated technician's reply.
func (s *Server) handleTechnicianMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}

	tech := middleware.TechnicianFromContext(c)
	msg, err := s.coordinator.HandleTechnicianMessage(c.Request.Context(), c.Param("id"),
		tech.Name, s.sanitize(req.Content))
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// handleAssumeTicket puts the authenticated technician in charge of an
// open ticket.
func (s *Server) handleAssumeTicket(c *gin.Context) {
	tech := middleware.TechnicianFromContext(c)
	ticket, err := s.coordinator.Assume(c.Request.Context(), c.Param("id"), tech.ID, tech.Name)
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// handleResolveTicket closes an in-progress ticket.
func (s *Server) handleResolveTicket(c *gin.Context) {
	ticket, err := s.coordinator.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (s *Server) writeLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		apierrors.Error(c, apierrors.CodeTicketNotFound)
	case errors.Is(err, lifecycle.ErrTicketResolved):
		apierrors.Error(c, apierrors.CodeTicketResolved)
	case errors.Is(err, lifecycle.ErrNotInProgress), errors.Is(err, repository.ErrInvalidTransition):
		apierrors.Error(c, apierrors.CodeStatusConflict)
	default:
		s.logger.Printf("lifecycle operation: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
	}
}
