package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrTrigger   = "trigger"
	attrModel     = "model"
	attrRule      = "rule_id"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// LLM metrics
	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Automation metrics
	cycleTotal          metric.Int64Counter
	cycleDuration       metric.Float64Histogram
	emailsLabeledTotal  metric.Int64Counter
	evaluationsTotal    metric.Int64Counter
	snapshotRefreshes   metric.Int64Counter
	snapshotSizeCurrent metric.Int64Gauge

	// detailedLabels adds rule ids to labeling metrics
	detailedLabels bool
}

var (
	fastBuckets  = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	apiBuckets   = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	llmBuckets   = []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}
	cycleBuckets = []float64{0.1, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0, 300.0}
)

// instruments creates instruments on a meter and keeps the first failure.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) counter(name, description, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	in.fail(name, err)
	return c
}

func (in *instruments) seconds(name, description string, buckets []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	in.fail(name, err)
	return h
}

func (in *instruments) gauge(name, description, unit string) metric.Int64Gauge {
	g, err := in.meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	in.fail(name, err)
	return g
}

func (in *instruments) fail(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	in := &instruments{meter: meter}

	m := &Metrics{
		httpRequestsTotal:   in.counter("http_requests_total", "Total number of HTTP requests", "{request}"),
		httpRequestDuration: in.seconds("http_request_duration_seconds", "HTTP request duration in seconds", fastBuckets),

		googleAPIOperationsTotal:   in.counter("google_api_operations_total", "Total number of Google API operations", "{operation}"),
		googleAPIOperationDuration: in.seconds("google_api_operation_duration_seconds", "Google API operation duration in seconds", apiBuckets),

		llmRequestsTotal:   in.counter("llm_requests_total", "Total number of language model requests", "{request}"),
		llmRequestDuration: in.seconds("llm_request_duration_seconds", "Language model request duration in seconds", llmBuckets),

		toolInvocationsTotal: in.counter("mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"),
		toolDuration:         in.seconds("mcp_tool_duration_seconds", "MCP tool execution duration in seconds", apiBuckets),

		cycleTotal:          in.counter("automation_cycles_total", "Total number of auto-label cycles", "{cycle}"),
		cycleDuration:       in.seconds("automation_cycle_duration_seconds", "Auto-label cycle duration in seconds", cycleBuckets),
		emailsLabeledTotal:  in.counter("automation_emails_labeled_total", "Total number of label applications made by automation", "{email}"),
		evaluationsTotal:    in.counter("automation_evaluations_total", "Total number of rule evaluations by outcome", "{evaluation}"),
		snapshotRefreshes:   in.counter("mail_snapshot_refreshes_total", "Total number of mail snapshot refreshes", "{refresh}"),
		snapshotSizeCurrent: in.gauge("mail_snapshot_messages", "Number of messages held by the mail snapshot", "{message}"),

		detailedLabels: detailedLabels,
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail, calendar)
//   - operation: Operation type (list, get, create, modify, search, send, update, delete)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLLMRequest records a chat completion call against the configured model.
func (m *Metrics) RecordLLMRequest(ctx context.Context, operation, model, status string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil || m.llmRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status),
	}

	m.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCycle records a completed auto-label cycle.
//
// Parameters:
//   - trigger: What started the cycle (scheduler, manual, rule_added, ...)
//   - result: "success", "error" or "skipped"
//   - duration: Wall time of the cycle including throttling sleeps
func (m *Metrics) RecordCycle(ctx context.Context, trigger, result string, duration time.Duration) {
	if m == nil || m.cycleTotal == nil || m.cycleDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTrigger, trigger),
		attribute.String(attrResult, result),
	}

	m.cycleTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLabeled records a single label application. The rule id is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordLabeled(ctx context.Context, ruleID string) {
	if m == nil || m.emailsLabeledTotal == nil {
		return // Instrumentation not initialized
	}

	var attrs []attribute.KeyValue
	if m.detailedLabels && ruleID != "" {
		attrs = append(attrs, attribute.String(attrRule, ruleID))
	}

	m.emailsLabeledTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEvaluation records the outcome of evaluating one message against the rule set.
// Status should be one of the Evaluation* constants.
func (m *Metrics) RecordEvaluation(ctx context.Context, status string) {
	if m == nil || m.evaluationsTotal == nil {
		return // Instrumentation not initialized
	}

	m.evaluationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordSnapshotRefresh records a mail snapshot refresh and the resulting snapshot size.
func (m *Metrics) RecordSnapshotRefresh(ctx context.Context, status string, size int) {
	if m == nil || m.snapshotRefreshes == nil || m.snapshotSizeCurrent == nil {
		return // Instrumentation not initialized
	}

	m.snapshotRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
	if status == StatusSuccess {
		m.snapshotSizeCurrent.Record(ctx, int64(size))
	}
}
