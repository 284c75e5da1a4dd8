package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for every span emitted by inboxpilot.
const TracerName = "github.com/teemow/inboxpilot"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrModel     = "llm.model"
	SpanAttrLLMOp     = "llm.operation"
	SpanAttrTrigger   = "automation.trigger"
	SpanAttrMessageID = "automation.message_id"
	SpanAttrRuleCount = "automation.rule_count"
	SpanAttrLabeled   = "automation.labeled"
)

func tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)

	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span for a Google API call.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)

	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartLLMSpan starts a client span for a chat completion request.
func StartLLMSpan(ctx context.Context, operation, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "llm."+operation,
		trace.WithAttributes(
			attribute.String(SpanAttrLLMOp, operation),
			attribute.String(SpanAttrModel, model),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartCycleSpan starts the root span of an auto-label cycle.
func StartCycleSpan(ctx context.Context, trigger string, ruleCount int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "automation.cycle",
		trace.WithAttributes(
			attribute.String(SpanAttrTrigger, trigger),
			attribute.Int(SpanAttrRuleCount, ruleCount),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
