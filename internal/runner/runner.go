// Package runner schedules recurring background tasks on a cron
// scheduler.
package runner

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a recurring background job.
type Task interface {
	// Name identifies the task in logs.
	Name() string
	// Schedule returns a cron expression with a seconds field.
	Schedule() string
	// Timeout bounds a single run.
	Timeout() time.Duration
	// Run executes the task.
	Run(ctx context.Context) error
}

// Runner owns the cron scheduler and the registered tasks.
type Runner struct {
	cron   *cron.Cron
	logger *log.Logger
}

// New creates a runner. Schedules use the 6-field form with seconds.
func New() *Runner {
	return &Runner{
		cron:   cron.New(cron.WithSeconds()),
		logger: log.New(log.Writer(), "[RUNNER] ", log.LstdFlags),
	}
}

// Register adds a task to the schedule.
func (r *Runner) Register(task Task) error {
	_, err := r.cron.AddFunc(task.Schedule(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), task.Timeout())
		defer cancel()

		start := time.Now()
		if err := task.Run(ctx); err != nil {
			r.logger.Printf("task %s failed after %v: %v", task.Name(), time.Since(start), err)
			return
		}
		r.logger.Printf("task %s completed in %v", task.Name(), time.Since(start))
	})
	if err != nil {
		return err
	}
	r.logger.Printf("registered task %s (%s)", task.Name(), task.Schedule())
	return nil
}

// Start launches the scheduler in its own goroutine.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
