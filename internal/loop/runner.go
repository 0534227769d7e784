package loop

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CycleRunner is the unit of work the loop drives once per tick.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Runner invokes the responder on a fixed cadence until its context
// ends. Cycle failures are absorbed and retried on the next tick; the
// loop itself only stops on shutdown.
type Runner struct {
	cycles       CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *zap.Logger

	consecutiveFailures int
}

// NewRunner creates a poll loop for the given cycle runner.
func NewRunner(cycles CycleRunner, interval, cycleTimeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		cycles:       cycles,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		logger:       logger,
	}
}

// Run polls until ctx is done, starting with an immediate first cycle.
// It returns nil on shutdown; there is no error path out of the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting poll loop",
		zap.Duration("interval", r.interval),
		zap.Duration("cycle_timeout", r.cycleTimeout))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Poll loop stopped")
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(parent context.Context) {
	if parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, r.cycleTimeout)
	defer cancel()

	if err := r.cycles.RunCycle(ctx); err != nil {
		r.consecutiveFailures++
		r.logger.Error("Cycle failed",
			zap.Int("consecutive_failures", r.consecutiveFailures),
			zap.Error(err))
		return
	}
	r.consecutiveFailures = 0
}
