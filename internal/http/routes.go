package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dealscope/scoreq/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Submission *service.SubmissionService
	// Health checks the backing store; wired to the job store's Health.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Submission}
	healthHandlers := &HealthHandlers{Health: services.Health}

	mux.HandleFunc("POST /api/jobs", jobHandlers.SubmitJob)
	mux.HandleFunc("POST /api/jobs/batch", jobHandlers.SubmitBatch)
	mux.HandleFunc("GET /api/jobs/stats", jobHandlers.GetStats)
	mux.HandleFunc("GET /api/jobs/{id}", jobHandlers.GetJob)
	mux.HandleFunc("GET /healthz", healthHandlers.Healthz)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Healthz)

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
