package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner executes registered tasks on their cron schedules. A task that is
// still running when its next tick arrives is skipped for that tick.
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a new task runner
func NewRunner(registry *TaskRegistry, logger zerolog.Logger) *Runner {
	logger = logger.With().Str("component", "runner").Logger()
	cronLog := cron.PrintfLogger(&logger)
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		registry: registry,
		logger:   logger,
	}
}

// Start schedules every task and blocks until ctx is done
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info().Msg("Starting task runner...")

	for _, name := range r.registry.Names() {
		task, _ := r.registry.Get(name)
		r.logger.Info().Str("task", name).Str("schedule", task.Schedule()).Msg("Registering task")

		_, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(ctx, task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Info().Msg("Task runner started successfully")
	if next := r.Entries(); len(next) > 0 {
		r.logger.Info().Time("next_run", next[0]).Msg("Waiting for next scheduled run")
	}

	<-ctx.Done()
	r.logger.Info().Msg("Context cancelled")
	r.Stop()
	return ctx.Err()
}

// RunNow executes the named task once, outside its schedule
func (r *Runner) RunNow(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return r.executeTask(ctx, task)
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) error {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	r.logger.Info().Str("task", task.Name()).Msg("Executing task")

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error().Err(err).Str("task", task.Name()).Dur("duration", duration).Msg("Task failed")
	} else {
		r.logger.Info().Str("task", task.Name()).Dur("duration", duration).Msg("Task completed successfully")
	}
	return err
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.logger.Info().Msg("Stopping task runner...")

	// Stop accepting new ticks
	ctx := r.cron.Stop()

	// Wait for running tasks to complete
	r.wg.Wait()
	<-ctx.Done()

	r.logger.Info().Msg("Task runner stopped")
}

// Entries returns the next scheduled time of every registered job, soonest
// first
func (r *Runner) Entries() []time.Time {
	var next []time.Time
	for _, e := range r.cron.Entries() {
		next = append(next, e.Next)
	}
	return next
}
