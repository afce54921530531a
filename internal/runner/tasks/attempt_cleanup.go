// Package tasks provides background task implementations for the runner.
package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aidesk-io/aidesk/internal/assistant"
	"github.com/aidesk-io/aidesk/internal/config"
	"github.com/aidesk-io/aidesk/internal/models"
	"github.com/aidesk-io/aidesk/internal/repository"
	"github.com/aidesk-io/aidesk/internal/runner"
)

// Default interval if not configured (15 minutes).
const defaultAttemptCleanupInterval = 15 * time.Minute

// AttemptCleanupTask drops assistant attempt counters for tickets that
// already reached resolved, so the counter store does not grow without
// bound.
type AttemptCleanupTask struct {
	tickets  repository.TicketRepository
	attempts assistant.AttemptStore
	interval time.Duration
	logger   *log.Logger
}

// NewAttemptCleanupTask creates the cleanup task.
func NewAttemptCleanupTask(tickets repository.TicketRepository, attempts assistant.AttemptStore) runner.Task {
	interval := defaultAttemptCleanupInterval
	if cfg := config.Get(); cfg != nil && cfg.Runner.AttemptCleanupInterval > 0 {
		interval = cfg.Runner.AttemptCleanupInterval
	}

	return &AttemptCleanupTask{
		tickets:  tickets,
		attempts: attempts,
		interval: interval,
		logger:   log.New(log.Writer(), "[ATTEMPT-CLEANUP] ", log.LstdFlags),
	}
}

// Name returns the task name.
func (t *AttemptCleanupTask) Name() string {
	return "attempt-cleanup"
}

// Schedule returns the cron schedule based on the configured interval.
func (t *AttemptCleanupTask) Schedule() string {
	minutes := int(t.interval.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes >= 60 {
		hours := minutes / 60
		if hours >= 24 {
			return "0 0 0 * * *"
		}
		return fmt.Sprintf("0 0 */%d * * *", hours)
	}
	return fmt.Sprintf("0 */%d * * * *", minutes)
}

// Timeout returns the task timeout (2 minutes).
func (t *AttemptCleanupTask) Timeout() time.Duration {
	return 2 * time.Minute
}

// Run resets attempt counters for every resolved ticket.
func (t *AttemptCleanupTask) Run(ctx context.Context) error {
	resolved, err := t.tickets.List(ctx, []string{models.StatusResolved})
	if err != nil {
		return fmt.Errorf("list resolved tickets: %w", err)
	}

	cleaned := 0
	for _, ticket := range resolved {
		if err := t.attempts.Reset(ctx, ticket.ID); err != nil {
			t.logger.Printf("reset attempts for ticket %s: %v", ticket.ID, err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		t.logger.Printf("cleared attempt counters for %d resolved ticket(s)", cleaned)
	}
	return nil
}
