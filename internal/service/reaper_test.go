package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/domain/model"
)

func newReaper(t *testing.T, store *fakeStore, queue *fakeQueue, retryAttempts int) *ReaperService {
	t.Helper()
	svc, err := NewReaperService(ReaperServiceOptions{
		Store:  store,
		Queue:  queue,
		Config: config.ReaperConfig{Interval: time.Second},
		Worker: config.WorkerConfig{
			QueueName:         "test_scoring",
			JobTimeoutSeconds: 300,
			RetryAttempts:     retryAttempts,
		},
	})
	require.NoError(t, err)
	return svc
}

// stuckJob creates a processing job whose start time is age in the past.
func stuckJob(t *testing.T, store *fakeStore, age time.Duration, attempts int) *model.Job {
	t.Helper()
	job := model.NewJob(json.RawMessage(`{"name":"Stuck"}`))
	for i := 0; i < attempts; i++ {
		require.NoError(t, job.MarkProcessing(time.Now().Add(-age)))
	}
	require.NoError(t, store.Put(context.Background(), job))
	return job
}

func TestSweepRequeuesStuckJobWithRetryBudget(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	reaper := newReaper(t, store, queue, 3)

	job := stuckJob(t, store, 10*time.Minute, 1)

	requeued, failed, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)
	assert.Zero(t, failed)

	got := store.get(job.ID)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, []string{job.ID}, queue.snapshot())
}

func TestSweepFailsStuckJobOutOfRetries(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	reaper := newReaper(t, store, queue, 2)

	job := stuckJob(t, store, 10*time.Minute, 2)

	requeued, failed, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, requeued)
	assert.Equal(t, 1, failed)

	got := store.get(job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "timed out")
	assert.Empty(t, queue.snapshot())
}

func TestSweepLeavesHealthyJobsAlone(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	reaper := newReaper(t, store, queue, 3)
	ctx := context.Background()
	now := time.Now()

	pending := model.NewJob(json.RawMessage(`{"name":"p"}`))
	require.NoError(t, store.Put(ctx, pending))

	// Processing but still within the timeout.
	fresh := model.NewJob(json.RawMessage(`{"name":"fresh"}`))
	require.NoError(t, fresh.MarkProcessing(now))
	require.NoError(t, store.Put(ctx, fresh))

	completed := model.NewJob(json.RawMessage(`{"name":"c"}`))
	require.NoError(t, completed.Complete(42, nil, now))
	require.NoError(t, store.Put(ctx, completed))

	requeued, failed, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, requeued)
	assert.Zero(t, failed)
	assert.Empty(t, queue.snapshot())

	assert.Equal(t, model.JobStatusPending, store.get(pending.ID).Status)
	assert.Equal(t, model.JobStatusProcessing, store.get(fresh.ID).Status)
	assert.Equal(t, model.JobStatusCompleted, store.get(completed.ID).Status)
}

func TestSweepMixedBatch(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	reaper := newReaper(t, store, queue, 2)

	retryable := stuckJob(t, store, time.Hour, 1)
	exhausted := stuckJob(t, store, time.Hour, 2)

	requeued, failed, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)
	assert.Equal(t, 1, failed)

	assert.Equal(t, model.JobStatusPending, store.get(retryable.ID).Status)
	assert.Equal(t, model.JobStatusFailed, store.get(exhausted.ID).Status)
}

func TestReaperRequiresDependencies(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{Queue: newFakeQueue()})
	assert.Error(t, err)

	_, err = NewReaperService(ReaperServiceOptions{Store: newFakeStore()})
	assert.Error(t, err)
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	reaper := newReaper(t, newFakeStore(), newFakeQueue(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reaper did not stop")
	}
}
