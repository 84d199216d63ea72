package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/scoreq/internal/domain/model"
	"github.com/dealscope/scoreq/internal/service"
)

// memStore and memQueue are minimal in-memory backends for handler tests.

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemStore() *memStore { return &memStore{jobs: make(map[string]*model.Job)} }

func (m *memStore) Put(_ context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false, nil
	}
	clone := *job
	return &clone, true, nil
}

func (m *memStore) Scan(_ context.Context, visit func(*model.Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		clone := *job
		if err := visit(&clone); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) Health(context.Context) error { return nil }

type memQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *memQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

func (q *memQueue) Dequeue(context.Context, time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", nil
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, nil
}

func (q *memQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ids)), nil
}

func newTestRouter(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := service.NewSubmissionService(service.SubmissionServiceOptions{
		Store: store,
		Queue: &memQueue{},
	})
	require.NoError(t, err)
	return NewRouter(RouterServices{Submission: svc, Health: store.Health}), store
}

func TestSubmitJobEndpoint(t *testing.T) {
	router, store := newTestRouter(t)

	body := `{"business":{"name":"Acme","monthly_revenue":25000,"industry":"SaaS"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)

	job, found, err := store.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.JobStatusPending, job.Status)
}

func TestSubmitJobRejectsInvalidPayload(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs",
		strings.NewReader(`{"business":{"monthly_revenue":100}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func TestSubmitJobRejectsMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestSubmitBatchEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"businesses":[{"name":"A"},{"name":"B"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.JobIDs, 2)
}

func TestSubmitBatchPartialFailure(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"businesses":[{"name":"A"},{"bad":true}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		JobIDs []string `json:"job_ids"`
		Error  string   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.JobIDs, 1)
	assert.NotEmpty(t, resp.Error)
}

func TestGetJobEndpoint(t *testing.T) {
	router, store := newTestRouter(t)

	job := model.NewJob(json.RawMessage(`{"name":"Acme"}`))
	require.NoError(t, job.Complete(85, []string{"looks great"}, time.Now()))
	require.NoError(t, store.Put(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Score)
	assert.InDelta(t, 85, *got.Score, 0.0001)
}

func TestGetJobNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestStatsEndpointEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"pending_jobs": 0,
		"total_jobs": 0,
		"completed_jobs": 0,
		"failed_jobs": 0,
		"processing_jobs": 0
	}`, rec.Body.String())
}

func TestHealthzEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthzReportsStoreFailure(t *testing.T) {
	svc, err := service.NewSubmissionService(service.SubmissionServiceOptions{
		Store: newMemStore(),
		Queue: &memQueue{},
	})
	require.NoError(t, err)

	router := NewRouter(RouterServices{
		Submission: svc,
		Health:     func(context.Context) error { return errors.New("redis down") },
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
