package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the scoring worker pool.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the stuck-job reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains scoring worker configuration.
type WorkerConfig struct {
	// QueueName is the logical queue the worker consumes. The Redis list
	// key is derived as "queue:<QueueName>".
	QueueName string `env:"QUEUE_NAME" envDefault:"business_scoring"`

	// Concurrency is the number of consumer goroutines. Each goroutine
	// runs its own dequeue loop against the shared queue.
	Concurrency int `env:"MAX_CONCURRENT_JOBS" envDefault:"5"`

	// JobTimeoutSeconds bounds a single scoring call, in whole seconds.
	// Job documents are stored with a TTL of twice this value.
	JobTimeoutSeconds int `env:"JOB_TIMEOUT_SECONDS" envDefault:"300"`

	// RetryAttempts is the number of times a job stuck in processing may
	// be re-enqueued by the reaper before it is failed.
	RetryAttempts int `env:"RETRY_ATTEMPTS" envDefault:"3"`

	// DequeueTimeout is how long a single blocking dequeue waits before
	// returning empty.
	DequeueTimeout time.Duration `env:"WORKER_DEQUEUE_TIMEOUT" envDefault:"1s"`

	// IdleDelay is the pause after an empty dequeue.
	IdleDelay time.Duration `env:"WORKER_IDLE_DELAY" envDefault:"100ms"`

	// ErrorBackoff is the pause after an infrastructure error.
	ErrorBackoff time.Duration `env:"WORKER_ERROR_BACKOFF" envDefault:"1s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	w.QueueName = strings.TrimSpace(w.QueueName)
	if w.QueueName == "" {
		w.QueueName = "business_scoring"
	}
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.JobTimeoutSeconds < 1 {
		w.JobTimeoutSeconds = 1
	}
	if w.RetryAttempts < 0 {
		w.RetryAttempts = 0
	}
	if w.DequeueTimeout < 100*time.Millisecond {
		w.DequeueTimeout = 100 * time.Millisecond
	}
	if w.IdleDelay < 0 {
		w.IdleDelay = 0
	}
	if w.ErrorBackoff < 100*time.Millisecond {
		w.ErrorBackoff = 100 * time.Millisecond
	}
}

// JobTimeout returns the per-job scoring deadline.
func (w *WorkerConfig) JobTimeout() time.Duration {
	return time.Duration(w.JobTimeoutSeconds) * time.Second
}

// StoreTTL returns the retention applied to stored job documents.
func (w *WorkerConfig) StoreTTL() time.Duration {
	return 2 * w.JobTimeout()
}

// ReaperConfig contains stuck-job reaper configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"30s"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Second {
		r.Interval = 1 * time.Second
	}
}
