package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/core"
	"github.com/dealscope/scoreq/internal/domain/model"
	apperrors "github.com/dealscope/scoreq/internal/errors"
	"github.com/dealscope/scoreq/internal/observability/metrics"
	"github.com/dealscope/scoreq/internal/observability/statsd"
)

// WorkerServiceOptions groups dependencies for WorkerService.
type WorkerServiceOptions struct {
	Store   core.JobStore      // Required: job document store
	Queue   core.Queue         // Required: scoring queue
	Scorer  core.Scorer        // Required: scoring engine
	Config  config.WorkerConfig
	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metrics sink (StatsD-compatible)
}

// WorkerService consumes job ids from the queue and scores them. It runs
// Config.Concurrency consumer loops, each a single-consumer dequeue loop
// with its own worker identity. Scoring errors fail the job; infrastructure
// errors are logged and followed by a backoff pause, never crashing the loop.
type WorkerService struct {
	store   core.JobStore
	queue   core.Queue
	scorer  core.Scorer
	config  config.WorkerConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewWorkerService constructs a new WorkerService.
func NewWorkerService(opts WorkerServiceOptions) (*WorkerService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}
	if opts.Scorer == nil {
		return nil, errors.New("Scorer is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "worker_service")
		logger.Debug("WorkerService initialized",
			"queue", cfg.QueueName,
			"concurrency", cfg.Concurrency,
			"job_timeout", cfg.JobTimeout(),
		)
	}

	return &WorkerService{
		store:   opts.Store,
		queue:   opts.Queue,
		scorer:  opts.Scorer,
		config:  cfg,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewWorkerService constructs a new WorkerService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewWorkerService(opts WorkerServiceOptions) *WorkerService {
	svc, err := NewWorkerService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create WorkerService: %v", err))
	}
	return svc
}

// Run starts the consumer pool and blocks until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *WorkerService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting worker pool",
			"queue", s.config.QueueName,
			"concurrency", s.config.Concurrency,
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.config.Concurrency; i++ {
		workerID := uuid.New().String()
		g.Go(func() error {
			return s.consumeLoop(gctx, workerID)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if s.logger != nil {
		s.logger.Info("worker pool stopped")
	}
	return nil
}

// consumeLoop is the single-consumer loop: dequeue with a short blocking
// wait, pause briefly when the queue is empty, process otherwise. The loop
// exits only when the context is cancelled.
func (s *WorkerService) consumeLoop(ctx context.Context, workerID string) error {
	var logger *slog.Logger
	if s.logger != nil {
		logger = s.logger.With("worker_id", workerID)
		logger.InfoContext(ctx, "worker started", "queue", s.config.QueueName)
	}

	for {
		if ctx.Err() != nil {
			if logger != nil {
				logger.InfoContext(ctx, "worker stopping", "reason", ctx.Err())
			}
			return nil
		}

		jobID, err := s.queue.Dequeue(ctx, s.config.DequeueTimeout)
		if err != nil {
			if isContextCancellation(err) || ctx.Err() != nil {
				continue // loop exits on the next iteration
			}
			if logger != nil {
				logger.ErrorContext(ctx, "dequeue failed", "error", err)
			}
			s.emitLifecycle("dequeue", metrics.ResultError, 0, err)
			sleepCtx(ctx, s.config.ErrorBackoff)
			continue
		}

		if jobID == "" {
			sleepCtx(ctx, s.config.IdleDelay)
			continue
		}

		s.processJob(ctx, logger, jobID)
	}
}

// processJob loads the job, persists the processing transition, scores it
// under the per-job deadline, and persists the terminal state.
func (s *WorkerService) processJob(ctx context.Context, logger *slog.Logger, jobID string) {
	job, found, err := s.store.Get(ctx, jobID)
	if err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "load job failed", "job_id", jobID, "error", err)
		}
		s.emitLifecycle("load", metrics.ResultError, 0, err)
		sleepCtx(ctx, s.config.ErrorBackoff)
		return
	}
	if !found {
		// The id outlived its document (TTL expiry); drop it.
		if logger != nil {
			logger.WarnContext(ctx, "job not found, skipping", "job_id", jobID)
		}
		s.emitLifecycle("load", metrics.ResultNoop, 0, nil)
		return
	}
	if job.Status.Terminal() {
		if logger != nil {
			logger.WarnContext(ctx, "job already finished, skipping",
				"job_id", jobID, "status", job.Status)
		}
		s.emitLifecycle("load", metrics.ResultNoop, 0, nil)
		return
	}

	if err := job.MarkProcessing(time.Now()); err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "mark processing failed", "job_id", jobID, "error", err)
		}
		return
	}
	if err := s.store.Put(ctx, job); err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "persist processing state failed", "job_id", jobID, "error", err)
		}
		s.emitLifecycle("processing", metrics.ResultError, 0, err)
		sleepCtx(ctx, s.config.ErrorBackoff)
		return
	}

	if logger != nil {
		logger.InfoContext(ctx, "processing job", "job_id", jobID, "attempt", job.Attempts)
	}

	start := time.Now()
	result, scoreErr := s.score(ctx, job)
	elapsed := time.Since(start)

	now := time.Now()
	if scoreErr != nil {
		if transitionErr := job.Fail(scoreErr.Error(), now); transitionErr != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "fail transition rejected", "job_id", jobID, "error", transitionErr)
			}
			return
		}
		if logger != nil {
			logger.ErrorContext(ctx, "job failed", "job_id", jobID, "error", scoreErr, "elapsed", elapsed)
		}
		s.emitLifecycle("completed", metrics.ResultError, elapsed, scoreErr)
	} else {
		if transitionErr := job.Complete(result.Score, result.Reasoning, now); transitionErr != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "complete transition rejected", "job_id", jobID, "error", transitionErr)
			}
			return
		}
		if logger != nil {
			logger.InfoContext(ctx, "job completed", "job_id", jobID, "score", *job.Score, "elapsed", elapsed)
		}
		s.emitLifecycle("completed", metrics.ResultSuccess, elapsed, nil)
	}

	if err := s.store.Put(ctx, job); err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "persist terminal state failed", "job_id", jobID, "error", err)
		}
		s.emitLifecycle("persist", metrics.ResultError, 0, err)
	}
}

// score decodes the payload and runs the scorer under the per-job deadline.
// Panics inside the scorer are converted to errors so one poisoned job
// cannot take down the consumer loop.
func (s *WorkerService) score(ctx context.Context, job *model.Job) (model.ScoreResult, error) {
	business, err := model.ParseBusiness(job.BusinessData)
	if err != nil {
		return model.ScoreResult{}, err
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout())
	defer cancel()

	type outcome struct {
		result model.ScoreResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("scorer panic: %v", r)}
			}
		}()
		result, scoreErr := s.scorer.Score(scoreCtx, business)
		done <- outcome{result: result, err: scoreErr}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-scoreCtx.Done():
		if errors.Is(scoreCtx.Err(), context.DeadlineExceeded) {
			return model.ScoreResult{}, apperrors.Timeout(
				fmt.Sprintf("scoring timed out after %s", s.config.JobTimeout()))
		}
		return model.ScoreResult{}, scoreCtx.Err()
	}
}

func (s *WorkerService) emitLifecycle(transition, result string, elapsed time.Duration, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Component:  "worker",
		Transition: transition,
		Result:     result,
		Duration:   elapsed,
		Err:        err,
	})
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
