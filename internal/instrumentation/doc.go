// Package instrumentation wires OpenTelemetry metrics and tracing for inboxpilot.
//
// # Metrics
//
// HTTP:
//   - http_requests_total, http_request_duration_seconds
//
// Google APIs:
//   - google_api_operations_total, google_api_operation_duration_seconds
//
// Language model:
//   - llm_requests_total, llm_request_duration_seconds
//
// MCP tools:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// Automation:
//   - automation_cycles_total{trigger,result}
//   - automation_cycle_duration_seconds
//   - automation_emails_labeled_total (rule_id only with METRICS_DETAILED_LABELS)
//   - automation_evaluations_total{status}
//   - mail_snapshot_refreshes_total, mail_snapshot_messages
//
// # Tracing
//
// Spans are created for auto-label cycles (automation.cycle), MCP tool calls
// (tool.<name>), Google API calls (google.<service>.<operation>) and chat
// completions (llm.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: inboxpilot)
//
// Usage:
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordCycle(ctx, "scheduler", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
