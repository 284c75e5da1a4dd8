package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

// Resource URIs.
const (
	StatusURI = "automation://status"
	RulesURI  = "automation://rules"
	LogsURI   = "automation://logs"
)

const (
	// logsResourceDays is clamped to the retention window by the service.
	logsResourceDays  = 365
	logsResourceLimit = 100
)

// RegisterAutomationResources registers the automation resources.
func RegisterAutomationResources(s *mcpserver.MCPServer, svc *common.Services) error {
	if svc.Automation == nil {
		return errors.New("automation service is required")
	}

	statusResource := mcp.NewResource(
		StatusURI,
		"Auto-label Status",
		mcp.WithResourceDescription("Whether auto-labeling is enabled, the last run and recent log lines"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(statusResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, svc.Automation.Status())
	})

	rulesResource := mcp.NewResource(
		RulesURI,
		"Auto-label Rules",
		mcp.WithResourceDescription("The label rules the assistant applies to incoming mail"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(rulesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		rules := svc.Automation.ListRules()
		if rules == nil {
			rules = []automation.Rule{}
		}
		return jsonContents(request.Params.URI, rules)
	})

	logsResource := mcp.NewResource(
		LogsURI,
		"Auto-label Log",
		mcp.WithResourceDescription("Auto-label log entries within the retention window, newest first"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(logsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		page := svc.Automation.Logs(logsResourceDays, logsResourceLimit)
		return jsonContents(request.Params.URI, page)
	})

	return nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
