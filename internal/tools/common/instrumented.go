package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/codes"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
)

// InstrumentedToolHandler wraps a tool handler with a server span,
// invocation metrics and a debug log line.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", svc, handler))
func InstrumentedToolHandler(toolName string, svc *Services, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, "tool failed")
		}

		svc.Metrics.RecordToolInvocation(ctx, toolName, status, duration)
		svc.Log().Debug("tool invoked",
			logging.Tool(toolName),
			logging.Status(status),
			"duration", duration.String())

		return result, err
	}
}
