package service

import (
	"context"
	"sync"
	"time"

	"github.com/dealscope/scoreq/internal/core"
	"github.com/dealscope/scoreq/internal/domain/model"
)

// fakeStore is an in-memory JobStore for service tests.
type fakeStore struct {
	mu     sync.Mutex
	jobs   map[string]*model.Job
	putErr error
	getErr error
}

var _ core.JobStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*model.Job)}
}

func (f *fakeStore) Put(_ context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*model.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, false, nil
	}
	clone := *job
	return &clone, true, nil
}

func (f *fakeStore) Scan(_ context.Context, visit func(*model.Job) error) error {
	f.mu.Lock()
	snapshot := make([]*model.Job, 0, len(f.jobs))
	for _, job := range f.jobs {
		clone := *job
		snapshot = append(snapshot, &clone)
	}
	f.mu.Unlock()

	for _, job := range snapshot {
		if err := visit(job); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Health(context.Context) error { return nil }

func (f *fakeStore) get(id string) *model.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}

// fakeQueue is an in-memory FIFO Queue for service tests.
type fakeQueue struct {
	mu         sync.Mutex
	ids        []string
	enqueueErr error
	dequeueErr error
}

var _ core.Queue = (*fakeQueue)(nil)

func newFakeQueue() *fakeQueue {
	return &fakeQueue{}
}

func (f *fakeQueue) Enqueue(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.ids = append(f.ids, jobID)
	return nil
}

func (f *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		f.mu.Lock()
		if f.dequeueErr != nil {
			err := f.dequeueErr
			f.mu.Unlock()
			return "", err
		}
		if len(f.ids) > 0 {
			id := f.ids[0]
			f.ids = f.ids[1:]
			f.mu.Unlock()
			return id, nil
		}
		f.mu.Unlock()

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if time.Now().After(deadline) {
			return "", nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeQueue) Len(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.ids)), nil
}

func (f *fakeQueue) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

// fakeScorer delegates to a configurable function.
type fakeScorer struct {
	fn func(ctx context.Context, b model.Business) (model.ScoreResult, error)
}

var _ core.Scorer = (*fakeScorer)(nil)

func (f *fakeScorer) Score(ctx context.Context, b model.Business) (model.ScoreResult, error) {
	return f.fn(ctx, b)
}
