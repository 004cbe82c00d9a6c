package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UPI05/InsecMed/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnabledBackgroundServices(t *testing.T) {
	cfg := &ServiceOrchestrationConfig{Config: &config.AppConfig{}}
	all := buildBackgroundServices(cfg, discardLogger())
	require.Len(t, all, len(config.ValidServiceModes()))

	tests := []struct {
		name     string
		services string
		want     []string
	}{
		{name: "http only", services: "http", want: []string{"http server"}},
		{name: "runners", services: "qa-runner, diagnosis-runner", want: []string{"diagnosis-runner", "qa-runner"}},
		{
			name:     "everything",
			services: "http,diagnosis-runner,qa-runner,reaper",
			want:     []string{"http server", "diagnosis-runner", "qa-runner", "reaper"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled, err := config.ParseServices(tt.services)
			require.NoError(t, err)

			var names []string
			for _, svc := range enabledBackgroundServices(all, enabled) {
				names = append(names, svc.name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGetEnabledServicesStableOrder(t *testing.T) {
	cfg := &config.AppConfig{Services: "reaper,http,qa-runner"}
	assert.Equal(t, []string{"http", "qa-runner", "reaper"}, GetEnabledServices(cfg))

	cfg.Services = "bogus"
	assert.Empty(t, GetEnabledServices(cfg))
	assert.Error(t, ValidateServiceConfig(cfg))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestRunServicesWithShutdownRequiresConfig(t *testing.T) {
	require.Error(t, RunServicesWithShutdown(nil))
	require.Error(t, RunServicesWithShutdown(&ServiceOrchestrationConfig{}))
}

func TestBuildFailureNotifier(t *testing.T) {
	logger := discardLogger()

	t.Run("disabled has no sinks", func(t *testing.T) {
		svc := buildFailureNotifier(logger, config.ObservabilityNotificationsConfig{}, "")
		require.NotNil(t, svc)
		assert.False(t, svc.Enabled())
	})

	t.Run("slack registered", func(t *testing.T) {
		svc := buildFailureNotifier(logger, config.ObservabilityNotificationsConfig{
			Enabled: true,
			Slack: config.SlackNotificationConfig{
				Enabled:    true,
				WebhookURL: "https://hooks.slack.example.com/services/T/B/X",
				Username:   "insecmed",
			},
		}, "https://insecmed.example.com")
		assert.True(t, svc.Enabled())
		assert.Equal(t, []string{"slack"}, svc.SinkNames())
	})

	t.Run("slack and pagerduty registered", func(t *testing.T) {
		svc := buildFailureNotifier(logger, config.ObservabilityNotificationsConfig{
			Enabled: true,
			Slack: config.SlackNotificationConfig{
				Enabled:    true,
				WebhookURL: "https://hooks.slack.example.com/services/T/B/X",
			},
			PagerDuty: config.PagerDutyNotificationConfig{
				Enabled:    true,
				RoutingKey: "routing-key",
			},
		}, "")
		assert.Equal(t, []string{"slack", "pagerduty"}, svc.SinkNames())
	})

	t.Run("pagerduty without routing key is skipped", func(t *testing.T) {
		svc := buildFailureNotifier(logger, config.ObservabilityNotificationsConfig{
			Enabled:   true,
			PagerDuty: config.PagerDutyNotificationConfig{Enabled: true},
		}, "")
		assert.False(t, svc.Enabled())
	})
}

func TestBuildObservabilityMetricsDisabled(t *testing.T) {
	obs := buildObservability(discardLogger(), config.ObservabilityConfig{}, "")
	assert.Nil(t, obs.MetricsSink)
	assert.NoError(t, obs.Close())
}

func TestServeHTTPStopsOnCancel(t *testing.T) {
	server := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, ServeHTTP(ctx, server, discardLogger()))
}

func TestNewHTTPServerServesHealth(t *testing.T) {
	server := NewHTTPServer(&HTTPServerConfig{Config: &config.AppConfig{}, Logger: discardLogger()})
	assert.Equal(t, ":8080", server.Addr)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
