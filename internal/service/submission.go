// Package service contains the business logic for submitting, scoring, and
// reaping scoring jobs.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dealscope/scoreq/internal/core"
	"github.com/dealscope/scoreq/internal/domain/model"
	apperrors "github.com/dealscope/scoreq/internal/errors"
	"github.com/dealscope/scoreq/internal/observability/metrics"
	"github.com/dealscope/scoreq/internal/observability/statsd"
)

// SubmissionServiceOptions groups dependencies for SubmissionService.
type SubmissionServiceOptions struct {
	Store   core.JobStore // Required: job document store
	Queue   core.Queue    // Required: scoring queue
	Logger  *slog.Logger  // Optional: structured logger
	Metrics statsd.Sink   // Optional: metrics sink (StatsD-compatible)

	// QueueName tags queue depth metrics. Defaults to "business_scoring".
	QueueName string
}

// SubmissionService is the producer-side API: it accepts business payloads,
// persists pending jobs, and enqueues their ids for the worker.
type SubmissionService struct {
	store     core.JobStore
	queue     core.Queue
	queueName string
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewSubmissionService constructs a new SubmissionService.
func NewSubmissionService(opts SubmissionServiceOptions) (*SubmissionService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "submission_service")
	}

	queueName := opts.QueueName
	if queueName == "" {
		queueName = "business_scoring"
	}

	return &SubmissionService{
		store:     opts.Store,
		queue:     opts.Queue,
		queueName: queueName,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// MustNewSubmissionService constructs a new SubmissionService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewSubmissionService(opts SubmissionServiceOptions) *SubmissionService {
	svc, err := NewSubmissionService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SubmissionService: %v", err))
	}
	return svc
}

// Submit validates the business payload, stores a pending job, and enqueues
// its id. Returns the job id.
func (s *SubmissionService) Submit(ctx context.Context, businessData json.RawMessage) (string, error) {
	if err := model.ValidateBusinessPayload(businessData); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid business data")
	}

	job := model.NewJob(businessData)
	if err := s.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		// The stored document expires on its own; the job just never runs.
		return "", fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job submitted",
			"job_id", job.ID,
			"business", businessName(businessData),
		)
	}
	if s.metrics != nil {
		s.metrics.Count("job.submitted", 1, nil)
	}

	return job.ID, nil
}

// SubmitBatch submits multiple businesses for scoring. Submission is
// non-transactional: on failure the ids accepted so far are returned
// alongside the error, and those jobs stay queued.
func (s *SubmissionService) SubmitBatch(ctx context.Context, businesses []json.RawMessage) ([]string, error) {
	jobIDs := make([]string, 0, len(businesses))
	for i, business := range businesses {
		id, err := s.Submit(ctx, business)
		if err != nil {
			return jobIDs, fmt.Errorf("submit batch item %d: %w", i, err)
		}
		jobIDs = append(jobIDs, id)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "batch submitted", "count", len(jobIDs))
	}
	return jobIDs, nil
}

// GetStatus returns the job document for the given id, or a NotFound error
// when the job never existed or its document has expired.
func (s *SubmissionService) GetStatus(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, apperrors.Validation("job id is required")
	}

	job, found, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if !found {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	return job, nil
}

// QueueStats computes a snapshot of queue depth and per-status job counts.
// The counts come from a full scan of stored documents, so the snapshot is
// O(n) in stored jobs and may be momentarily inconsistent with the queue.
func (s *SubmissionService) QueueStats(ctx context.Context) (*model.QueueStats, error) {
	depth, err := s.queue.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue length: %w", err)
	}

	stats := &model.QueueStats{PendingJobs: depth}
	err = s.store.Scan(ctx, func(job *model.Job) error {
		stats.TotalJobs++
		switch job.Status {
		case model.JobStatusCompleted:
			stats.CompletedJobs++
		case model.JobStatusFailed:
			stats.FailedJobs++
		case model.JobStatusProcessing:
			stats.ProcessingJobs++
		case model.JobStatusPending:
			// Counted in TotalJobs; queue depth covers the pending view.
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}

	if s.metrics != nil {
		metrics.EmitQueueDepth(s.metrics, s.queueName, depth)
	}

	return stats, nil
}

// businessName extracts the display name from a payload for logging.
func businessName(raw json.RawMessage) string {
	var peek struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil || peek.Name == "" {
		return "unknown"
	}
	return peek.Name
}
