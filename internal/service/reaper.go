package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/core"
	"github.com/dealscope/scoreq/internal/domain/model"
	obserrors "github.com/dealscope/scoreq/internal/observability/errors"
	"github.com/dealscope/scoreq/internal/observability/metrics"
	"github.com/dealscope/scoreq/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Store   core.JobStore       // Required: job document store
	Queue   core.Queue          // Required: scoring queue
	Config  config.ReaperConfig // Required: reaper configuration
	Worker  config.WorkerConfig // Required: supplies job timeout and retry budget
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ReaperService recovers jobs stuck in processing, typically left behind by
// a worker that died mid-score. Stuck jobs are re-enqueued while they have
// retry budget and failed once it is exhausted. The store TTL still bounds
// the worst-case lifetime of any document the reaper misses.
type ReaperService struct {
	store   core.JobStore
	queue   core.Queue
	config  config.ReaperConfig
	worker  config.WorkerConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}

	cfg := opts.Config
	cfg.Sanitize()
	worker := opts.Worker
	worker.Sanitize()

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", cfg.Interval,
			"stuck_after", worker.JobTimeout(),
			"retry_attempts", worker.RetryAttempts,
		)
	}

	return &ReaperService{
		store:   opts.Store,
		queue:   opts.Queue,
		config:  cfg,
		worker:  worker,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewReaperService constructs a new ReaperService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	svc, err := NewReaperService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ReaperService: %v", err))
	}
	return svc
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, _, err := s.Sweep(ctx); err != nil && !isContextCancellation(err) {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "sweep failed", "error", err)
				}
				// Continue running despite errors
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)))

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// Sweep scans stored jobs for processing documents whose start time is older
// than the job timeout. Each one is either re-enqueued (attempts remaining)
// or failed with a timeout message. Returns the requeued and failed counts.
func (s *ReaperService) Sweep(ctx context.Context) (requeued, failed int, err error) {
	start := time.Now()
	now := start

	scanErr := s.store.Scan(ctx, func(job *model.Job) error {
		if !s.stuck(job, now) {
			return nil
		}

		if job.Attempts < s.worker.RetryAttempts {
			if requeueErr := s.requeueJob(ctx, job); requeueErr != nil {
				return requeueErr
			}
			requeued++
			return nil
		}

		if failErr := s.failJob(ctx, job); failErr != nil {
			return failErr
		}
		failed++
		return nil
	})

	s.emitSweepMetrics(requeued, failed, time.Since(start), scanErr)

	if scanErr != nil {
		return requeued, failed, fmt.Errorf("sweep: %w", scanErr)
	}
	if (requeued > 0 || failed > 0) && s.logger != nil {
		s.logger.InfoContext(ctx, "sweep recovered stuck jobs",
			"requeued", requeued,
			"failed", failed,
		)
	}
	return requeued, failed, nil
}

// stuck reports whether the job has sat in processing beyond the job
// timeout. Documents without a start time fall back to the creation time.
func (s *ReaperService) stuck(job *model.Job, now time.Time) bool {
	if job.Status != model.JobStatusProcessing {
		return false
	}
	since := job.CreatedAt
	if job.StartedAt != nil {
		since = *job.StartedAt
	}
	return now.Sub(since) > s.worker.JobTimeout()
}

func (s *ReaperService) requeueJob(ctx context.Context, job *model.Job) error {
	if err := job.Requeue(); err != nil {
		return err
	}
	if err := s.store.Put(ctx, job); err != nil {
		return fmt.Errorf("persist requeued job %s: %w", job.ID, err)
	}
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		return fmt.Errorf("re-enqueue job %s: %w", job.ID, err)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "re-enqueued stuck job",
			"job_id", job.ID,
			"attempts", job.Attempts,
		)
	}
	return nil
}

func (s *ReaperService) failJob(ctx context.Context, job *model.Job) error {
	msg := fmt.Sprintf("scoring timed out after %d attempts", job.Attempts)
	if err := job.Fail(msg, time.Now()); err != nil {
		return err
	}
	if err := s.store.Put(ctx, job); err != nil {
		return fmt.Errorf("persist failed job %s: %w", job.ID, err)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "failed stuck job out of retries",
			"job_id", job.ID,
			"attempts", job.Attempts,
		)
	}
	return nil
}

func (s *ReaperService) emitSweepMetrics(requeued, failed int, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if requeued == 0 && failed == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.sweep", 1, tags)
	if requeued > 0 {
		s.metrics.Count("reaper.jobs_requeued", int64(requeued), nil)
	}
	if failed > 0 {
		s.metrics.Count("reaper.jobs_failed", int64(failed), nil)
	}
	if elapsed > 0 {
		s.metrics.Timing("reaper.sweep_duration", elapsed, metrics.CloneTags(tags))
	}
}
