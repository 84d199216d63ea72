package httpx

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/dealscope/scoreq/internal/errors"
	"github.com/dealscope/scoreq/internal/service"
)

// JobHandlers provides HTTP handlers for job submission and status.
type JobHandlers struct {
	Svc *service.SubmissionService
}

// submitRequest is the body for single-job submission: the business payload
// itself, passed through opaquely after schema validation.
type submitRequest struct {
	Business json.RawMessage `json:"business"`
}

// submitResponse carries the id of an accepted job.
type submitResponse struct {
	JobID string `json:"job_id"`
}

// batchSubmitRequest is the body for batch submission.
type batchSubmitRequest struct {
	Businesses []json.RawMessage `json:"businesses"`
}

// batchSubmitResponse carries the ids of accepted jobs. On partial failure
// the accepted ids are still returned alongside the error message.
type batchSubmitResponse struct {
	JobIDs []string `json:"job_ids"`
	Error  string   `json:"error,omitempty"`
}

// SubmitJob handles POST /api/jobs.
func (h *JobHandlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	jobID, err := h.Svc.Submit(r.Context(), req.Business)
	if err != nil {
		writeServiceError(w, err, "submit_failed")
		return
	}

	WriteJSON(w, http.StatusAccepted, submitResponse{JobID: jobID})
}

// SubmitBatch handles POST /api/jobs/batch.
func (h *JobHandlers) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchSubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	jobIDs, err := h.Svc.SubmitBatch(r.Context(), req.Businesses)
	if err != nil {
		// Submission is non-transactional: report accepted ids with the error.
		code := http.StatusInternalServerError
		if apperrors.IsValidation(err) {
			code = http.StatusBadRequest
		}
		WriteJSON(w, code, batchSubmitResponse{JobIDs: jobIDs, Error: err.Error()})
		return
	}

	WriteJSON(w, http.StatusAccepted, batchSubmitResponse{JobIDs: jobIDs})
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "status_failed")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// GetStats handles GET /api/jobs/stats.
func (h *JobHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.QueueStats(r.Context())
	if err != nil {
		writeServiceError(w, err, "stats_failed")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// writeServiceError maps application error codes to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error, fallbackCode string) {
	switch {
	case apperrors.IsNotFound(err):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
	case apperrors.IsValidation(err):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: fallbackCode, Err: err})
	}
}
