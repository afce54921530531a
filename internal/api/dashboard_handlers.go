package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeonx/timeago"

	"github.com/aidesk-io/aidesk/internal/apierrors"
	"github.com/aidesk-io/aidesk/internal/models"
)

const recentTicketLimit = 10

// handleDashboard returns the metrics the technician dashboard renders:
// ticket counts per status, resolution rate and mean time to resolve,
// the average feedback rating, the age of the oldest waiting ticket and
// the most recent tickets with a human-readable age.
func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	tickets, err := s.tickets.List(ctx, nil)
	if err != nil {
		s.logger.Printf("dashboard tickets: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	counts := map[string]int{
		models.StatusOpen:       0,
		models.StatusInProgress: 0,
		models.StatusResolved:   0,
	}
	var (
		resolutionTotal time.Duration
		resolutionCount int
		oldestOpen      *models.Ticket
	)
	for _, t := range tickets {
		counts[t.Status]++

		if t.Status == models.StatusResolved && t.ResolvedAt != nil {
			resolutionTotal += t.ResolvedAt.Sub(t.CreatedAt)
			resolutionCount++
		}
		if t.Status == models.StatusOpen {
			if oldestOpen == nil || t.CreatedAt.Before(oldestOpen.CreatedAt) {
				oldestOpen = t
			}
		}
	}

	resolutionRate := 0.0
	if len(tickets) > 0 {
		resolutionRate = float64(counts[models.StatusResolved]) / float64(len(tickets))
	}
	avgResolutionMinutes := 0.0
	if resolutionCount > 0 {
		avgResolutionMinutes = resolutionTotal.Minutes() / float64(resolutionCount)
	}
	oldestOpenAge := ""
	if oldestOpen != nil {
		oldestOpenAge = timeago.Portuguese.Format(oldestOpen.CreatedAt)
	}

	avg, ratings, err := s.feedbacks.AverageRating(ctx)
	if err != nil {
		s.logger.Printf("dashboard feedback: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	recent := make([]gin.H, 0, recentTicketLimit)
	for i, t := range tickets {
		if i == recentTicketLimit {
			break
		}
		recent = append(recent, gin.H{
			"id":          t.ID,
			"client_name": t.ClientName,
			"status":      t.Status,
			"created_ago": timeago.Portuguese.Format(t.CreatedAt),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_tickets":          len(tickets),
		"status_counts":          counts,
		"resolution_rate":        resolutionRate,
		"avg_resolution_minutes": avgResolutionMinutes,
		"average_rating":         avg,
		"rating_count":           ratings,
		"oldest_open_ticket_age": oldestOpenAge,
		"recent_tickets":         recent,
	})
}
