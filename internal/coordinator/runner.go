package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// RunnerConfig holds scheduling configuration for the poll loop.
type RunnerConfig struct {
	// Interval between poll cycles.
	Interval time.Duration

	// FirstRefreshTimeout bounds the eager startup fetch.
	FirstRefreshTimeout time.Duration
}

// Runner invokes the coordinator's fetch cycle periodically and once eagerly
// at startup. It owns no retry or backoff policy: a failed cycle is logged
// and counted, and the next tick simply tries again.
type Runner struct {
	config RunnerConfig
	coord  *Coordinator
	logger zerolog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	failedCycles atomic.Uint64
}

// NewRunner creates a runner for the coordinator.
func NewRunner(config RunnerConfig, coord *Coordinator, logger zerolog.Logger) *Runner {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.FirstRefreshTimeout <= 0 {
		config.FirstRefreshTimeout = 10 * time.Second
	}

	return &Runner{
		config:   config,
		coord:    coord,
		logger:   logger.With().Str("component", "runner").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start performs the eager first refresh and launches the poll loop. The
// first refresh's error is returned so the host can decide its "not ready"
// presentation; the loop starts either way.
func (r *Runner) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}

	firstCtx, cancel := context.WithTimeout(ctx, r.config.FirstRefreshTimeout)
	err := r.coord.Refresh(firstCtx)
	cancel()
	if err != nil {
		r.failedCycles.Add(1)
		r.logger.Warn().Err(err).Msg("Initial refresh failed; polling continues")
	}

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info().Dur("interval", r.config.Interval).Msg("Poll loop started")
	return err
}

// Stop halts the poll loop and waits for an in-flight cycle to finish.
// Idempotent.
func (r *Runner) Stop() {
	if !r.running.Load() {
		return
	}
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
	r.running.Store(false)
	r.logger.Info().Msg("Poll loop stopped")
}

// FailedCycles returns the number of cycles that ended in a connection-level
// failure since startup.
func (r *Runner) FailedCycles() uint64 {
	return r.failedCycles.Load()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			cycleCtx, cancel := context.WithTimeout(ctx, r.config.Interval)
			if err := r.coord.Refresh(cycleCtx); err != nil {
				r.failedCycles.Add(1)
				r.logger.Error().Err(err).Msg("Poll cycle failed")
			}
			cancel()
		}
	}
}
