package automation_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/tools/batch"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

const (
	defaultLogDays  = 7
	defaultLogLimit = 50
)

// RegisterAutomationTools registers the automation tools with the MCP server.
func RegisterAutomationTools(s *mcpserver.MCPServer, svc *common.Services) error {
	if svc.Automation == nil {
		return errors.New("automation service is required")
	}

	statusTool := mcp.NewTool("automation_status",
		mcp.WithDescription("Show whether auto-labeling is enabled, the rule count, the last run and recent log lines"),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler("automation_status", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return common.JSONResult(svc.Automation.Status())
		}))

	logsTool := mcp.NewTool("automation_logs",
		mcp.WithDescription("List auto-label log entries, newest first"),
		mcp.WithNumber("days",
			mcp.Description("Look-back window in days, clamped to the retention window (default: 7)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries (default: 50, max: 500)"),
		),
	)
	s.AddTool(logsTool, common.InstrumentedToolHandler("automation_logs", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleLogs(ctx, request, svc)
		}))

	listRulesTool := mcp.NewTool("automation_list_rules",
		mcp.WithDescription("List the auto-label rules"),
	)
	s.AddTool(listRulesTool, common.InstrumentedToolHandler("automation_list_rules", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rules := svc.Automation.ListRules()
			if rules == nil {
				rules = []automation.Rule{}
			}
			return common.JSONResult(map[string]any{"count": len(rules), "rules": rules})
		}))

	if svc.ReadOnly {
		return nil
	}

	addRuleTool := mcp.NewTool("automation_add_rule",
		mcp.WithDescription("Add a rule that applies a Gmail label to mail matching a plain-language reason. Recent mail is re-checked immediately."),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Gmail label to apply (created if missing)"),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("When the label applies, e.g. 'invoices and receipts from vendors'"),
		),
	)
	s.AddTool(addRuleTool, common.InstrumentedToolHandler("automation_add_rule", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAddRule(ctx, request, svc)
		}))

	deleteRuleTool := mcp.NewTool("automation_delete_rule",
		mcp.WithDescription("Delete one or more auto-label rules"),
		mcp.WithString("ruleIds",
			mcp.Required(),
			mcp.Description("Rule ID (string) or array of rule IDs"),
		),
	)
	s.AddTool(deleteRuleTool, common.InstrumentedToolHandler("automation_delete_rule", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteRules(ctx, request, svc)
		}))

	setEnabledTool := mcp.NewTool("automation_set_enabled",
		mcp.WithDescription("Turn auto-labeling on or off"),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("true to enable, false to disable"),
		),
	)
	s.AddTool(setEnabledTool, common.InstrumentedToolHandler("automation_set_enabled", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetEnabled(ctx, request, svc)
		}))

	runNowTool := mcp.NewTool("automation_run_now",
		mcp.WithDescription("Run one auto-label cycle now and return the resulting status"),
	)
	s.AddTool(runNowTool, common.InstrumentedToolHandler("automation_run_now", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return common.JSONResult(svc.Automation.RunNow(ctx))
		}))

	return nil
}

func handleLogs(_ context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	days := common.IntArg(args, "days", defaultLogDays)
	limit := common.IntArg(args, "limit", defaultLogLimit)
	return common.JSONResult(svc.Automation.Logs(days, limit))
}

func handleAddRule(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	rule, err := svc.Automation.AddRule(ctx, common.StringArg(args, "label"), common.StringArg(args, "reason"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add rule: %v", err)), nil
	}
	return common.JSONResult(map[string]any{
		"rule":   rule,
		"status": svc.Automation.Status(),
	})
}

func handleDeleteRules(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["ruleIds"], "ruleIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	removed, err := svc.Automation.DeleteRules(ctx, ids)
	results := make([]batch.Result, 0, len(ids))
	for _, id := range ids {
		ok, processed := removed[id]
		switch {
		case !processed:
			results = append(results, batch.NewErrorResult(id, fmt.Errorf("rule %s not deleted: %w", id, err)))
		case !ok:
			results = append(results, batch.NewErrorResult(id, fmt.Errorf("rule %s not found", id)))
		default:
			results = append(results, batch.NewSuccessResult(id, "deleted"))
		}
	}
	return common.JSONResult(batch.Summarize(results))
}

func handleSetEnabled(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	enabled, ok := common.BoolArg(request.GetArguments(), "enabled")
	if !ok {
		return mcp.NewToolResultError("enabled must be a boolean"), nil
	}
	status, err := svc.Automation.SetEnabled(ctx, enabled)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update automation: %v", err)), nil
	}
	return common.JSONResult(status)
}
