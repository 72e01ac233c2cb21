package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Runner executes a function on the address space processing loop.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context)) error
}

// Refresher reloads directory data for already materialized countries.
type Refresher interface {
	RefreshLocations(ctx context.Context)
}

// Scheduler periodically refreshes location lists.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// New creates a new Scheduler. An interval of zero disables it.
func New(interval time.Duration, runner Runner, refresher Refresher, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		refresher: refresher,
		interval:  interval,
		timeout:   5 * time.Minute,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Infow("location refresh disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Infow("location refresh scheduled", "every_minutes", minutes)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Infow("running location refresh job")
	err := s.runner.Do(ctx, func(ctx context.Context) {
		s.refresher.RefreshLocations(ctx)
	})
	if err != nil {
		s.logger.Warnw("location refresh not run", "error", err)
		return
	}
	s.logger.Infow("completed location refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
