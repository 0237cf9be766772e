// Package reconcile runs the silent edit reconciler on a cron schedule.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds a single reconciliation run.
const DefaultTimeout = 2 * time.Minute

// Target is the operation the scheduler invokes.
type Target interface {
	ReconcileSilentEdits(ctx context.Context) (int, error)
}

// Scheduler periodically reports silent edits whose flag reset failed.
type Scheduler struct {
	target   Target
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a scheduler. The schedule is a standard five-field cron
// spec or a descriptor such as "@every 5m".
func New(target Target, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		target:   target,
		schedule: schedule,
		timeout:  DefaultTimeout,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("reconciler started", "schedule", s.schedule)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reconciler stopped")
}

// RunOnce performs one reconciliation run.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.target.ReconcileSilentEdits(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.logger.Info("reconciled silent edits", "count", n)
	}
	return n, nil
}

func (s *Scheduler) run() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		s.logger.Error("failed to reconcile silent edits", "error", err)
	}
}
