package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, detailed bool) (*Provider, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
		DetailedLabels:  detailed,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return provider, ctx
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	provider, ctx := newTestProvider(t, false)
	metrics := provider.Metrics()

	metrics.RecordHTTPRequest(ctx, "GET", "/api/automation/status", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/automation/run", 500, 50*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	provider, ctx := newTestProvider(t, false)
	metrics := provider.Metrics()

	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationModify, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationCreate, StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordLLMRequest(t *testing.T) {
	provider, ctx := newTestProvider(t, false)
	metrics := provider.Metrics()

	metrics.RecordLLMRequest(ctx, LLMOperationEvaluate, "gpt-4o-mini", StatusSuccess, 2*time.Second)
	metrics.RecordLLMRequest(ctx, LLMOperationSummarize, "gpt-4o-mini", StatusError, time.Second)
}

func TestMetrics_Automation(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		provider, ctx := newTestProvider(t, detailed)
		metrics := provider.Metrics()

		metrics.RecordCycle(ctx, "scheduler", StatusSuccess, 12*time.Second)
		metrics.RecordCycle(ctx, "manual", StatusSkipped, 0)
		metrics.RecordLabeled(ctx, "rule-1")
		metrics.RecordLabeled(ctx, "")
		metrics.RecordEvaluation(ctx, EvaluationMatched)
		metrics.RecordEvaluation(ctx, EvaluationHeuristic)
		metrics.RecordSnapshotRefresh(ctx, StatusSuccess, 42)
		metrics.RecordSnapshotRefresh(ctx, StatusError, 0)
		metrics.RecordToolInvocation(ctx, "automation_run_now", StatusSuccess, time.Second)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	empty := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, empty} {
		m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
		m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, time.Millisecond)
		m.RecordLLMRequest(ctx, LLMOperationEvaluate, "m", StatusSuccess, time.Millisecond)
		m.RecordToolInvocation(ctx, "tool", StatusSuccess, time.Millisecond)
		m.RecordCycle(ctx, "manual", StatusSuccess, time.Millisecond)
		m.RecordLabeled(ctx, "rule")
		m.RecordEvaluation(ctx, EvaluationFailed)
		m.RecordSnapshotRefresh(ctx, StatusSuccess, 1)
	}
}
