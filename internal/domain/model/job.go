// Package model defines the core data types and structures used throughout the scoring job system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a scoring job.
type JobStatus string

const (
	// JobStatusPending indicates a job is waiting in the queue.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a job is currently being scored.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job finished with a score.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job failed to score.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal returns true if the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrTerminalState is returned when a transition is attempted on a completed or failed job.
var ErrTerminalState = errors.New("job is in a terminal state")

// Job represents a scoring job as stored in Redis. The document is a flat
// JSON object; score/reasoning are set only on completion, error only on
// failure. Core fields always serialize (null when unset) so stored
// documents keep a stable shape; started_at and attempts are bookkeeping
// for timeout recovery and are omitted when zero.
type Job struct {
	ID           string          `json:"id"`
	BusinessData json.RawMessage `json:"business_data"`
	Status       JobStatus       `json:"status"`
	Score        *float64        `json:"score"`
	Reasoning    []string        `json:"reasoning"`
	Error        *string         `json:"error"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	Attempts     int             `json:"attempts,omitempty"`
}

// NewJob creates a pending job for the given business payload with a fresh
// UUID and creation timestamp.
func NewJob(businessData json.RawMessage) *Job {
	return &Job{
		ID:           uuid.New().String(),
		BusinessData: businessData,
		Status:       JobStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// MarkProcessing transitions the job from pending to processing, stamping
// the start time and counting the attempt.
func (j *Job) MarkProcessing(now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("mark processing %s: %w", j.ID, ErrTerminalState)
	}
	j.Status = JobStatusProcessing
	started := now.UTC()
	j.StartedAt = &started
	j.Attempts++
	return nil
}

// Complete transitions the job to completed with the given score and
// reasoning. The score is rounded to two decimal places.
func (j *Job) Complete(score float64, reasoning []string, now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("complete %s: %w", j.ID, ErrTerminalState)
	}
	rounded := math.Round(score*100) / 100
	done := now.UTC()
	j.Status = JobStatusCompleted
	j.Score = &rounded
	j.Reasoning = reasoning
	j.Error = nil
	j.CompletedAt = &done
	return nil
}

// Fail transitions the job to failed with the given error message.
func (j *Job) Fail(errMsg string, now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("fail %s: %w", j.ID, ErrTerminalState)
	}
	done := now.UTC()
	j.Status = JobStatusFailed
	j.Error = &errMsg
	j.Score = nil
	j.Reasoning = nil
	j.CompletedAt = &done
	return nil
}

// Requeue returns a processing job to pending so it can be picked up again.
// Attempts are preserved so retries stay bounded.
func (j *Job) Requeue() error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("requeue %s: job is %s, not processing", j.ID, j.Status)
	}
	j.Status = JobStatusPending
	j.StartedAt = nil
	return nil
}

// QueueStats is a point-in-time snapshot of queue and job-state counts.
// PendingJobs is the queue depth; the per-status counts come from scanning
// stored job documents, so the two views may be momentarily inconsistent.
type QueueStats struct {
	PendingJobs    int64 `json:"pending_jobs"`
	TotalJobs      int   `json:"total_jobs"`
	CompletedJobs  int   `json:"completed_jobs"`
	FailedJobs     int   `json:"failed_jobs"`
	ProcessingJobs int   `json:"processing_jobs"`
}
