package automation_tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/tools/batch"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

type emptyMailbox struct{}

func (emptyMailbox) FetchCandidates(context.Context, int, int) ([]mailbox.Message, error) {
	return nil, nil
}

func (emptyMailbox) FetchDetail(context.Context, string) (*mailbox.Message, error) {
	return nil, nil
}

type noLabels struct{}

func (noLabels) EnsureLabel(_ context.Context, name string) (string, error) { return "Label_" + name, nil }
func (noLabels) ApplyLabels(context.Context, string, []string) error { return nil }

type noMatches struct{}

func (noMatches) EvaluateRules(context.Context, mailbox.Message, []automation.Rule) ([]automation.Match, error) {
	return nil, nil
}

func newServices(t *testing.T, readOnly bool) *common.Services {
	t.Helper()
	dir := t.TempDir()
	rt := automation.NewRuntime(automation.StoreConfig{
		RulesPath:           filepath.Join(dir, "rules.json"),
		ProcessedPath:       filepath.Join(dir, "processed.json"),
		LogPath:             filepath.Join(dir, "logs.json"),
		LogRetentionDays:    7,
		ProcessedMaxAgeDays: 30,
		ProcessedMaxEntries: 2000,
		LogMirrorSize:       50,
	}, logging.Discard())
	cycle := automation.NewCycle(rt, automation.CycleDeps{
		Source:    emptyMailbox{},
		Labels:    noLabels{},
		Evaluator: noMatches{},
		Logger:    logging.Discard(),
	}, automation.Settings{LookbackDays: 7, BatchTarget: 20})

	return &common.Services{
		Automation: automation.NewService(rt, cycle, logging.Discard()),
		Logger:     logging.Discard(),
		ReadOnly:   readOnly,
	}
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool, ok := s.ListTools()[name]
	require.True(t, ok, "tool %s not registered", name)
	result, err := tool.Handler(context.Background(), request(args))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v), text.Text)
}

func TestRegisterAutomationTools(t *testing.T) {
	readTools := []string{"automation_status", "automation_logs", "automation_list_rules"}
	writeTools := []string{"automation_add_rule", "automation_delete_rule", "automation_set_enabled", "automation_run_now"}

	tests := []struct {
		name      string
		readOnly  bool
		wantWrite bool
	}{
		{name: "read-only", readOnly: true, wantWrite: false},
		{name: "write mode", readOnly: false, wantWrite: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
			require.NoError(t, RegisterAutomationTools(s, newServices(t, tt.readOnly)))

			tools := s.ListTools()
			for _, name := range readTools {
				assert.Contains(t, tools, name)
			}
			for _, name := range writeTools {
				_, ok := tools[name]
				assert.Equal(t, tt.wantWrite, ok, name)
			}
		})
	}
}

func TestRegisterAutomationTools_RequiresService(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0")
	assert.Error(t, RegisterAutomationTools(s, &common.Services{}))
}

func TestAutomationTools_RuleLifecycle(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterAutomationTools(s, newServices(t, false)))

	var added struct {
		Rule   automation.Rule   `json:"rule"`
		Status automation.Status `json:"status"`
	}
	result := callTool(t, s, "automation_add_rule", map[string]interface{}{"label": " Finance ", "reason": "invoices"})
	require.False(t, result.IsError)
	unmarshalResult(t, result, &added)
	assert.Equal(t, "Finance", added.Rule.Label)
	assert.Equal(t, 1, added.Status.RuleCount)

	result = callTool(t, s, "automation_add_rule", map[string]interface{}{"label": "Finance"})
	assert.True(t, result.IsError)

	var listed struct {
		Count int               `json:"count"`
		Rules []automation.Rule `json:"rules"`
	}
	unmarshalResult(t, callTool(t, s, "automation_list_rules", nil), &listed)
	assert.Equal(t, 1, listed.Count)

	var deleted batch.Summary
	result = callTool(t, s, "automation_delete_rule", map[string]interface{}{
		"ruleIds": []interface{}{added.Rule.ID, "missing"},
	})
	unmarshalResult(t, result, &deleted)
	assert.Equal(t, 1, deleted.Successful)
	assert.Equal(t, 1, deleted.Failed)

	var status automation.Status
	unmarshalResult(t, callTool(t, s, "automation_status", nil), &status)
	assert.Zero(t, status.RuleCount)
}

func TestAutomationTools_SetEnabledAndRun(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterAutomationTools(s, newServices(t, false)))

	result := callTool(t, s, "automation_set_enabled", map[string]interface{}{"enabled": "yes"})
	assert.True(t, result.IsError)

	result = callTool(t, s, "automation_add_rule", map[string]interface{}{"label": "Finance", "reason": "invoices"})
	require.False(t, result.IsError)

	var status automation.Status
	unmarshalResult(t, callTool(t, s, "automation_set_enabled", map[string]interface{}{"enabled": true}), &status)
	assert.True(t, status.AutomationEnabled)

	require.NotNil(t, status.LastRunAt, "enabling runs a cycle")

	unmarshalResult(t, callTool(t, s, "automation_run_now", nil), &status)
	assert.NotNil(t, status.LastRunAt)
	assert.Nil(t, status.LastError)

	var page automation.LogsPage
	unmarshalResult(t, callTool(t, s, "automation_logs", map[string]interface{}{"days": float64(30)}), &page)
	assert.Equal(t, 7, page.QueryDays)
	assert.NotEmpty(t, page.Logs)
}

// batchDeleter records rule deletions. Methods it does not override panic
// through the nil embedded interface.
type batchDeleter struct {
	server.AutomationService
	calls   [][]string
	removed map[string]bool
	err     error
}

func (b *batchDeleter) DeleteRules(_ context.Context, ids []string) (map[string]bool, error) {
	b.calls = append(b.calls, ids)
	return b.removed, b.err
}

func TestHandleDeleteRules_SingleBatchCall(t *testing.T) {
	tests := []struct {
		name        string
		removed     map[string]bool
		err         error
		wantSuccess int
		wantFailed  int
	}{
		{
			name:        "mixed results",
			removed:     map[string]bool{"r1": true, "r2": false, "r3": true},
			wantSuccess: 2,
			wantFailed:  1,
		},
		{
			name:        "storage error stops the batch",
			removed:     map[string]bool{"r1": true},
			err:         errors.New("disk full"),
			wantSuccess: 1,
			wantFailed:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleter := &batchDeleter{removed: tt.removed, err: tt.err}
			svc := &common.Services{Automation: deleter, Logger: logging.Discard()}

			result, err := handleDeleteRules(context.Background(), request(map[string]interface{}{
				"ruleIds": []interface{}{"r1", "r2", "r3"},
			}), svc)
			require.NoError(t, err)

			require.Len(t, deleter.calls, 1)
			assert.Equal(t, []string{"r1", "r2", "r3"}, deleter.calls[0])

			var summary batch.Summary
			unmarshalResult(t, result, &summary)
			assert.Equal(t, tt.wantSuccess, summary.Successful)
			assert.Equal(t, tt.wantFailed, summary.Failed)
			assert.Equal(t, []string{"r1", "r2", "r3"}, []string{summary.Results[0].ID, summary.Results[1].ID, summary.Results[2].ID})
		})
	}
}
