package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(metrics, tracing string) Config {
	return Config{
		ServiceName:     "inboxpilot-test",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: metrics,
		TracingExporter: tracing,
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	cfg := testConfig(ExporterPrometheus, ExporterNone)
	cfg.Enabled = false

	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))

	// Recording against the disabled recorder is a no-op.
	provider.Metrics().RecordCycle(context.Background(), "manual", StatusSuccess, time.Second)
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		metrics        string
		tracing        string
		wantErr        bool
		wantPrometheus bool
	}{
		{name: "prometheus without tracing", metrics: ExporterPrometheus, tracing: ExporterNone, wantPrometheus: true},
		{name: "stdout metrics and traces", metrics: ExporterStdout, tracing: ExporterStdout},
		{name: "invalid metrics exporter", metrics: "invalid", tracing: ExporterNone, wantErr: true},
		{name: "none is not a metrics exporter", metrics: ExporterNone, tracing: ExporterNone, wantErr: true},
		{name: "invalid tracing exporter", metrics: ExporterPrometheus, tracing: "invalid", wantErr: true},
		{name: "otlp tracing without endpoint", metrics: ExporterPrometheus, tracing: ExporterOTLP, wantErr: true},
		{name: "otlp metrics without endpoint", metrics: ExporterOTLP, tracing: ExporterNone, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, testConfig(tt.metrics, tt.tracing))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(ctx) }()

			assert.True(t, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusEnabled())
		})
	}
}

func TestProvider_MetricsHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("serves recorded metrics", func(t *testing.T) {
		provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
		require.NoError(t, err)
		defer func() { _ = provider.Shutdown(ctx) }()

		provider.Metrics().RecordCycle(ctx, "interval", StatusSuccess, 2*time.Second)
		provider.Metrics().RecordLabeled(ctx, "rule-1")

		rec := httptest.NewRecorder()
		provider.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "automation_cycles_total")
		assert.Contains(t, body, "automation_emails_labeled_total")
		assert.Contains(t, body, "go_goroutines")
	})

	t.Run("two providers do not collide", func(t *testing.T) {
		first, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
		require.NoError(t, err)
		defer func() { _ = first.Shutdown(ctx) }()

		second, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
		require.NoError(t, err)
		defer func() { _ = second.Shutdown(ctx) }()

		assert.True(t, second.PrometheusEnabled())
	})

	t.Run("not found without prometheus", func(t *testing.T) {
		provider, err := NewProvider(ctx, testConfig(ExporterStdout, ExporterNone))
		require.NoError(t, err)
		defer func() { _ = provider.Shutdown(ctx) }()

		rec := httptest.NewRecorder()
		provider.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProvider_Shutdown(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(ctx))
}
