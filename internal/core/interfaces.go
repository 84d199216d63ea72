package core

import (
	"context"
	"time"

	"github.com/dealscope/scoreq/internal/domain/model"
)

// This file contains the port interfaces between the service layer and its
// collaborators (data layer, scoring engine). Services depend on these
// interfaces, not concrete implementations.

// JobStore defines the interface for job document storage. Documents are
// replaced whole on every write and expire after a bounded retention, so
// absence is a normal outcome rather than an error.
type JobStore interface {
	// Put stores the job, replacing any existing document and resetting
	// its retention.
	Put(ctx context.Context, job *model.Job) error

	// Get retrieves a job by id. The boolean reports whether the document
	// exists; a missing or expired job is (nil, false, nil).
	Get(ctx context.Context, id string) (*model.Job, bool, error)

	// Scan visits every stored job. Ordering is unspecified and the view
	// is a snapshot, not a consistent read.
	Scan(ctx context.Context, visit func(*model.Job) error) error

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error
}

// Queue defines the interface for the FIFO queue of job ids awaiting scoring.
type Queue interface {
	// Enqueue appends a job id to the back of the queue.
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue pops the id at the front of the queue, blocking up to
	// timeout. An empty string with a nil error means the queue stayed
	// empty for the full wait.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)

	// Len returns the current queue depth.
	Len(ctx context.Context) (int64, error)
}

// Scorer evaluates a business and produces a score with reasoning.
// Implementations must honor context cancellation; the worker bounds each
// call with a deadline.
type Scorer interface {
	Score(ctx context.Context, business model.Business) (model.ScoreResult, error)
}
