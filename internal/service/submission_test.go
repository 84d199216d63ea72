package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/scoreq/internal/domain/model"
	apperrors "github.com/dealscope/scoreq/internal/errors"
)

func newSubmissionService(t *testing.T, store *fakeStore, queue *fakeQueue) *SubmissionService {
	t.Helper()
	svc, err := NewSubmissionService(SubmissionServiceOptions{Store: store, Queue: queue})
	require.NoError(t, err)
	return svc
}

func TestSubmissionServiceRequiresDependencies(t *testing.T) {
	_, err := NewSubmissionService(SubmissionServiceOptions{Queue: newFakeQueue()})
	assert.Error(t, err)

	_, err = NewSubmissionService(SubmissionServiceOptions{Store: newFakeStore()})
	assert.Error(t, err)
}

func TestSubmitStoresAndEnqueues(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	svc := newSubmissionService(t, store, queue)

	id, err := svc.Submit(context.Background(), json.RawMessage(`{"name":"Acme","monthly_revenue":25000}`))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := store.get(id)
	require.NotNil(t, job)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Nil(t, job.Score)

	assert.Equal(t, []string{id}, queue.snapshot())
}

func TestSubmitRejectsInvalidPayload(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	svc := newSubmissionService(t, store, queue)

	_, err := svc.Submit(context.Background(), json.RawMessage(`{"monthly_revenue":100}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// Nothing persisted, nothing queued.
	assert.Empty(t, queue.snapshot())
	require.NoError(t, store.Scan(context.Background(), func(*model.Job) error {
		t.Fatal("store should be empty")
		return nil
	}))
}

func TestSubmitBatchPartialSuccess(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	svc := newSubmissionService(t, store, queue)

	ids, err := svc.SubmitBatch(context.Background(), []json.RawMessage{
		json.RawMessage(`{"name":"First"}`),
		json.RawMessage(`{"no_name":true}`),
		json.RawMessage(`{"name":"Third"}`),
	})

	// The first job stays accepted; the bad item stops the batch.
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	require.Len(t, ids, 1)
	assert.Equal(t, ids, queue.snapshot())
	assert.NotNil(t, store.get(ids[0]))
}

func TestSubmitBatchAllValid(t *testing.T) {
	svc := newSubmissionService(t, newFakeStore(), newFakeQueue())

	ids, err := svc.SubmitBatch(context.Background(), []json.RawMessage{
		json.RawMessage(`{"name":"A"}`),
		json.RawMessage(`{"name":"B"}`),
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestGetStatus(t *testing.T) {
	store := newFakeStore()
	svc := newSubmissionService(t, store, newFakeQueue())
	ctx := context.Background()

	id, err := svc.Submit(ctx, json.RawMessage(`{"name":"Acme"}`))
	require.NoError(t, err)

	job, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)

	// Reads are idempotent.
	again, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job, again)

	_, err = svc.GetStatus(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.GetStatus(ctx, "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestQueueStatsEmpty(t *testing.T) {
	svc := newSubmissionService(t, newFakeStore(), newFakeQueue())

	stats, err := svc.QueueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.QueueStats{}, stats)
}

func TestQueueStatsCountsByStatus(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	svc := newSubmissionService(t, store, queue)
	ctx := context.Background()
	now := time.Now()

	pending := model.NewJob(json.RawMessage(`{"name":"p"}`))
	require.NoError(t, store.Put(ctx, pending))
	require.NoError(t, queue.Enqueue(ctx, pending.ID))

	processing := model.NewJob(json.RawMessage(`{"name":"r"}`))
	require.NoError(t, processing.MarkProcessing(now))
	require.NoError(t, store.Put(ctx, processing))

	completed := model.NewJob(json.RawMessage(`{"name":"c"}`))
	require.NoError(t, completed.Complete(42, nil, now))
	require.NoError(t, store.Put(ctx, completed))

	failed := model.NewJob(json.RawMessage(`{"name":"f"}`))
	require.NoError(t, failed.Fail("boom", now))
	require.NoError(t, store.Put(ctx, failed))

	stats, err := svc.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.QueueStats{
		PendingJobs:    1,
		TotalJobs:      4,
		CompletedJobs:  1,
		FailedJobs:     1,
		ProcessingJobs: 1,
	}, stats)
}
