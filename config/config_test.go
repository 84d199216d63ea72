package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[ServiceMode]bool
		wantErr  bool
	}{
		{
			name:     "single service",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:  "all services",
			input: "http,worker,reaper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeWorker: true,
				ServiceModeReaper: true,
			},
		},
		{
			name:     "whitespace tolerated",
			input:    " worker , reaper ",
			expected: map[ServiceMode]bool{ServiceModeWorker: true, ServiceModeReaper: true},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "invalid service name",
			input:   "http,scheduler",
			wantErr: true,
		},
		{
			name:    "only commas",
			input:   ",,,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWorkerConfigSanitize(t *testing.T) {
	w := WorkerConfig{
		QueueName:         "  ",
		Concurrency:       0,
		JobTimeoutSeconds: 0,
		RetryAttempts:     -1,
		DequeueTimeout:    10 * time.Millisecond,
		IdleDelay:         -time.Second,
		ErrorBackoff:      0,
	}
	w.Sanitize()

	assert.Equal(t, "business_scoring", w.QueueName)
	assert.Equal(t, 1, w.Concurrency)
	assert.Equal(t, 1, w.JobTimeoutSeconds)
	assert.Equal(t, 0, w.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, w.DequeueTimeout)
	assert.Equal(t, time.Duration(0), w.IdleDelay)
	assert.Equal(t, 100*time.Millisecond, w.ErrorBackoff)
}

func TestWorkerConfigStoreTTL(t *testing.T) {
	w := WorkerConfig{JobTimeoutSeconds: 300}
	assert.Equal(t, 5*time.Minute, w.JobTimeout())
	assert.Equal(t, 10*time.Minute, w.StoreTTL())
}

func TestReaperConfigSanitize(t *testing.T) {
	r := ReaperConfig{Interval: 0}
	r.Sanitize()
	assert.Equal(t, 1*time.Second, r.Interval)
}

func TestObservabilityMetricsSanitize(t *testing.T) {
	c := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	c.Sanitize()
	assert.False(t, c.Enabled)
	assert.False(t, c.IsEnabled())

	c = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125"}
	c.Sanitize()
	assert.True(t, c.IsEnabled())
}

func TestAppConfigServiceHelpers(t *testing.T) {
	cfg := AppConfig{Services: "http,worker"}

	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsWorkerEnabled())
	assert.False(t, cfg.IsReaperEnabled())

	cfg.Services = "bogus"
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsWorkerEnabled())
}
