package instrumentation

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: inboxpilot)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	ServiceInstanceID string

	// Enabled determines if instrumentation is active (default: true).
	// INSTRUMENTATION_ENABLED=false disables metrics and tracing.
	Enabled bool

	// MetricsExporter is one of "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter is one of "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint without protocol prefix,
	// e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Only for local collectors.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// DetailedLabels adds rule ids to automation metrics. Rule counts are
	// small, but keep this off when rules churn frequently.
	DetailedLabels bool
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "inboxpilot"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
	}
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Validate reports the first problem with the configuration. Empty
// exporter names mean the defaults.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: %s", c.MetricsExporter, strings.Join(metricsExporters, ", "))
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: %s", c.TracingExporter, strings.Join(tracingExporters, ", "))
	}

	if c.OTLPEndpoint == "" {
		switch ExporterOTLP {
		case c.TracingExporter:
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		case c.MetricsExporter:
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	}
	return nil
}

// envString, envBool and envFloat read an environment variable, falling
// back to def when it is unset or does not parse.
func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	return envParsed(key, def, strconv.ParseBool)
}

func envFloat(key string, def float64) float64 {
	return envParsed(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func envParsed[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"

	// Google service names
	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"

	// Google API operations
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationModify = "modify"
	OperationSearch = "search"
	OperationSend   = "send"
	OperationUpdate = "update"
	OperationDelete = "delete"

	// LLM operations
	LLMOperationEvaluate  = "evaluate_rules"
	LLMOperationSummarize = "summarize"

	// Evaluation outcomes
	EvaluationMatched   = "matched"
	EvaluationNoMatch   = "no_match"
	EvaluationFailed    = "failed"
	EvaluationHeuristic = "heuristic"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
