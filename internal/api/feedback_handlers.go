package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidesk-io/aidesk/internal/apierrors"
	"github.com/aidesk-io/aidesk/internal/models"
	"github.com/aidesk-io/aidesk/internal/repository"
)

type createFeedbackRequest struct {
	TicketID string `json:"ticket_id" binding:"required"`
	Rating   int    `json:"rating" binding:"required"`
	Comment  string `json:"comment"`
}

// handleCreateFeedback records a customer rating for a resolved ticket.
func (s *Server) handleCreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}

	ticket, err := s.tickets.GetByID(c.Request.Context(), req.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeTicketNotFound)
			return
		}
		s.logger.Printf("get ticket: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	if ticket.Status != models.StatusResolved {
		apierrors.ErrorWithMessage(c, apierrors.CodeStatusConflict, "feedback requires a resolved ticket")
		return
	}

	feedback, err := s.feedbacks.Insert(c.Request.Context(), req.TicketID, req.Rating, s.sanitize(req.Comment))
	if err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}

	if _, err := s.coordinator.AcknowledgeFeedback(c.Request.Context(), req.TicketID); err != nil {
		// Rating is stored; a missing thank-you message is not fatal.
		s.logger.Printf("feedback acknowledgement on ticket %s: %v", req.TicketID, err)
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": feedback})
}
