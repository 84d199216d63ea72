package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	payload := json.RawMessage(`{"name":"Acme"}`)
	job := NewJob(payload)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, payload, job.BusinessData)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.Score)
	assert.Nil(t, job.Error)
	assert.Nil(t, job.CompletedAt)
	assert.Zero(t, job.Attempts)
}

func TestJobLifecycleTransitions(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	job := NewJob(json.RawMessage(`{"name":"Acme"}`))

	require.NoError(t, job.MarkProcessing(now))
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.Equal(t, now, *job.StartedAt)
	assert.Equal(t, 1, job.Attempts)

	require.NoError(t, job.Complete(84.256, []string{"solid"}, now.Add(time.Second)))
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.Score)
	assert.InDelta(t, 84.26, *job.Score, 0.0001)
	assert.Equal(t, []string{"solid"}, job.Reasoning)
	assert.Nil(t, job.Error)
	require.NotNil(t, job.CompletedAt)
}

func TestJobFailClearsScore(t *testing.T) {
	now := time.Now().UTC()
	job := NewJob(json.RawMessage(`{}`))
	require.NoError(t, job.MarkProcessing(now))

	require.NoError(t, job.Fail("scoring blew up", now))
	assert.Equal(t, JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "scoring blew up", *job.Error)
	assert.Nil(t, job.Score)
	assert.Nil(t, job.Reasoning)
	require.NotNil(t, job.CompletedAt)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	now := time.Now().UTC()

	completed := NewJob(json.RawMessage(`{}`))
	require.NoError(t, completed.Complete(50, nil, now))
	assert.ErrorIs(t, completed.MarkProcessing(now), ErrTerminalState)
	assert.ErrorIs(t, completed.Fail("late failure", now), ErrTerminalState)
	assert.ErrorIs(t, completed.Complete(60, nil, now), ErrTerminalState)

	failed := NewJob(json.RawMessage(`{}`))
	require.NoError(t, failed.Fail("boom", now))
	assert.ErrorIs(t, failed.Complete(60, nil, now), ErrTerminalState)
}

func TestRequeue(t *testing.T) {
	now := time.Now().UTC()
	job := NewJob(json.RawMessage(`{}`))

	// Only processing jobs can be requeued.
	assert.Error(t, job.Requeue())

	require.NoError(t, job.MarkProcessing(now))
	require.NoError(t, job.Requeue())
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)
	assert.Equal(t, 1, job.Attempts)

	require.NoError(t, job.MarkProcessing(now))
	assert.Equal(t, 2, job.Attempts)
}

func TestJobSerializationShape(t *testing.T) {
	job := NewJob(json.RawMessage(`{"name":"Acme"}`))

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	// Core fields serialize even when unset; bookkeeping fields do not.
	for _, key := range []string{"id", "business_data", "status", "score", "reasoning", "error", "created_at", "completed_at"} {
		assert.Contains(t, doc, key)
	}
	assert.Nil(t, doc["score"])
	assert.Nil(t, doc["error"])
	assert.Nil(t, doc["completed_at"])
	assert.NotContains(t, doc, "started_at")
	assert.NotContains(t, doc, "attempts")

	var back Job
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, job.ID, back.ID)
	assert.Equal(t, JobStatusPending, back.Status)
	assert.True(t, job.CreatedAt.Equal(back.CreatedAt))
}

func TestJobStatusValid(t *testing.T) {
	assert.True(t, JobStatusPending.Valid())
	assert.True(t, JobStatusProcessing.Valid())
	assert.True(t, JobStatusCompleted.Valid())
	assert.True(t, JobStatusFailed.Valid())
	assert.False(t, JobStatus("running").Valid())

	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
}

func TestValidateBusinessPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid business",
			payload: `{"name":"Acme","monthly_revenue":25000,"industry":"SaaS"}`,
		},
		{
			name:    "unknown fields tolerated",
			payload: `{"name":"Acme","founder":"J. Doe"}`,
		},
		{
			name:    "negative growth allowed",
			payload: `{"name":"Acme","growth_rate":-3}`,
		},
		{
			name:    "missing name",
			payload: `{"monthly_revenue":1000}`,
			wantErr: true,
		},
		{
			name:    "negative revenue",
			payload: `{"name":"Acme","monthly_revenue":-1}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			payload: `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "empty",
			payload: ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBusinessPayload(json.RawMessage(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
