package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshop/internal/metrics"

	"github.com/rs/zerolog"
)

const defaultInterval = time.Hour

// RunnerParams configure the Runner.
type RunnerParams struct {
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.Jobs
	Interval time.Duration
	Logger   zerolog.Logger
}

// Runner executes registered jobs on a fixed cadence. Each cycle runs under
// the lock so only one worker instance does the work.
type Runner struct {
	registry *Registry
	lock     Lock
	metrics  *metrics.Jobs
	interval time.Duration
	logger   zerolog.Logger
}

// NewRunner builds a Runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		logger:   params.Logger.With().Str("component", "jobs").Logger(),
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.RunCycle(ctx); err != nil {
		r.logger.Error().Err(err).Msg("scheduled run failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("job runner stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunCycle(ctx); err != nil {
				r.logger.Error().Err(err).Msg("scheduled run failed")
			}
		}
	}
}

// RunCycle runs every job once. A failing job does not stop the others.
func (r *Runner) RunCycle(ctx context.Context) error {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		r.logger.Info().Msg("another worker is running; skipping this cycle")
		return nil
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Error().Err(err).Msg("failed to release worker lock")
		}
	}()

	for _, job := range r.registry.Jobs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.runJob(ctx, job)
	}
	return nil
}

func (r *Runner) runJob(ctx context.Context, job Job) {
	log := r.logger.With().Str("job", job.Name()).Logger()
	log.Info().Msg("job start")

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	r.metrics.ObserveDuration(job.Name(), duration)

	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("job failed")
		r.metrics.IncFailure(job.Name())
		return
	}
	log.Info().Dur("duration", duration).Msg("job completed")
	r.metrics.IncSuccess(job.Name())
}
