// Package worker provides the adapter for running the scoring worker pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/core"
	"github.com/dealscope/scoreq/internal/data"
	"github.com/dealscope/scoreq/internal/domain/scoring"
	"github.com/dealscope/scoreq/internal/observability/statsd"
	"github.com/dealscope/scoreq/internal/service"
)

// Runner provides a simple adapter to run the scoring worker pool.
// It constructs the worker service from Redis-backed repositories and the
// threshold scorer.
type Runner struct {
	worker *service.WorkerService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Redis  redis.UniversalClient
	Config config.WorkerConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Store   core.JobStore
	Queue   core.Queue
	Scorer  core.Scorer
	Metrics statsd.Sink
}

// NewRunner creates a new worker runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	worker, err := wireWorkerService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire worker service: %w", err)
	}

	return &Runner{
		worker: worker,
		logger: opts.Logger,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Redis == nil && (opts.Store == nil || opts.Queue == nil) {
		return errors.New("redis client is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Config.Sanitize()
	return nil
}

// wireWorkerService wires up all dependencies for the worker service.
func wireWorkerService(opts RunnerOptions) (*service.WorkerService, error) {
	store := opts.Store
	if store == nil {
		store = data.NewRedisJobStore(opts.Redis, opts.Config.StoreTTL())
	}

	queue := opts.Queue
	if queue == nil {
		queue = data.NewRedisQueue(opts.Redis, opts.Config.QueueName)
	}

	scorer := opts.Scorer
	if scorer == nil {
		scorer = scoring.NewThresholdScorer()
	}

	return service.NewWorkerService(service.WorkerServiceOptions{
		Store:   store,
		Queue:   queue,
		Scorer:  scorer,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
}

// Run starts the worker pool and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting worker runner")
	return r.worker.Run(ctx)
}
