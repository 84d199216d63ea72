// Package reaper provides the adapter for running the stuck-job reaper.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/core"
	"github.com/dealscope/scoreq/internal/data"
	"github.com/dealscope/scoreq/internal/observability/statsd"
	"github.com/dealscope/scoreq/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the sweep loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Redis  redis.UniversalClient
	Config config.ReaperConfig
	Worker config.WorkerConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Store   core.JobStore
	Queue   core.Queue
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{
		reaper: reaper,
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
	opts.Worker.Sanitize()
	return nil
}

// wireReaperService wires up all dependencies for the reaper service.
func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	store := opts.Store
	if store == nil {
		store = data.NewRedisJobStore(opts.Redis, opts.Worker.StoreTTL())
	}

	queue := opts.Queue
	if queue == nil {
		queue = data.NewRedisQueue(opts.Redis, opts.Worker.QueueName)
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		Store:   store,
		Queue:   queue,
		Config:  opts.Config,
		Worker:  opts.Worker,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
