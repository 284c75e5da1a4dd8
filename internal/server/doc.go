// Package server exposes the automation pipeline, the mail snapshot and the
// calendar over a small JSON REST API.
//
// The API is routed with chi. Every request gets a request id, panic
// recovery and a request-metrics middleware that records
// http_requests_total under the matched route pattern. Health checks
// (/healthz, /readyz, /healthz/detailed) live on the same router; Prometheus
// metrics are served separately by MetricsServer so the API port never
// exposes them.
//
// Errors are returned as {"error": "..."}: 400 for invalid input, 404 for
// unknown ids, 500 when a store cannot be written, 502 when Gmail, Calendar
// or the model fail and 503 when a backing service is not configured.
package server
