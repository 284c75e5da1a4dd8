package email_tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/tools/batch"
)

type fakeActions struct {
	known    map[string]bool
	sent     []mailbox.OutgoingMessage
	replies  map[string]string
	drafts   []string
	read     map[string]bool
	archived []string
	deleted  []string
}

func (f *fakeActions) check(id string) error {
	if !f.known[id] {
		return errors.New("404 not found")
	}
	return nil
}

func (f *fakeActions) SendEmail(_ context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, msg)
	return &mailbox.SentMessage{ID: "s1", ThreadID: "t1"}, nil
}

func (f *fakeActions) ReplyToEmail(_ context.Context, id, body string) (*mailbox.SentMessage, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	if f.replies == nil {
		f.replies = map[string]string{}
	}
	f.replies[id] = body
	return &mailbox.SentMessage{ID: "s2", ThreadID: "t-" + id}, nil
}

func (f *fakeActions) DraftReply(_ context.Context, id, body, subject string) (*mailbox.SentMessage, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	f.drafts = append(f.drafts, subject+"|"+body)
	return &mailbox.SentMessage{DraftID: "d1"}, nil
}

func (f *fakeActions) ComposeDraft(_ context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	f.drafts = append(f.drafts, msg.Subject+"|"+msg.Body)
	return &mailbox.SentMessage{DraftID: "d2"}, nil
}

func (f *fakeActions) DeleteMessage(_ context.Context, id string) error {
	if err := f.check(id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeActions) MarkRead(_ context.Context, id string, read bool) error {
	if err := f.check(id); err != nil {
		return err
	}
	if f.read == nil {
		f.read = map[string]bool{}
	}
	f.read[id] = read
	return nil
}

func (f *fakeActions) Archive(_ context.Context, id string) error {
	if err := f.check(id); err != nil {
		return err
	}
	f.archived = append(f.archived, id)
	return nil
}

func newWriteServer(t *testing.T, f *fixture) *mcpserver.MCPServer {
	t.Helper()
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterEmailTools(s, f.svc))
	return s
}

func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, name)
	result, err := tool.Handler(context.Background(), request(args))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	return result
}

func TestHandleSend(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr bool
	}{
		{
			name: "sent",
			args: map[string]interface{}{
				"to": "ana@example.com, bo@example.com", "cc": "cy@example.com",
				"subject": "Hi", "body": "Hello", "isHTML": true,
			},
		},
		{name: "missing recipient", args: map[string]interface{}{"subject": "Hi", "body": "Hello"}, wantErr: true},
		{name: "bad address", args: map[string]interface{}{"to": "nobody", "subject": "Hi", "body": "Hello"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			result, err := handleSend(context.Background(), request(tt.args), f.svc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, result.IsError, resultText(t, result))
			if tt.wantErr {
				assert.Empty(t, f.actions.sent)
				return
			}
			require.Len(t, f.actions.sent, 1)
			sent := f.actions.sent[0]
			assert.Equal(t, []string{"ana@example.com", "bo@example.com"}, sent.To)
			assert.Equal(t, []string{"cy@example.com"}, sent.Cc)
			assert.True(t, sent.HTML)
		})
	}
}

func TestHandleReply(t *testing.T) {
	f := newFixture()

	result, err := handleReply(context.Background(), request(map[string]interface{}{"messageId": "m1", "body": "Thanks"}), f.svc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, map[string]string{"m1": "Thanks"}, f.actions.replies)

	var sent mailbox.SentMessage
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &sent))
	assert.Equal(t, "t-m1", sent.ThreadID)

	result, err = handleReply(context.Background(), request(map[string]interface{}{"body": "x"}), f.svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handleReply(context.Background(), request(map[string]interface{}{"messageId": "gone", "body": "x"}), f.svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleDrafts(t *testing.T) {
	f := newFixture()

	result, err := handleDraftReply(context.Background(), request(map[string]interface{}{
		"messageId": "m1", "body": "Maybe", "subject": "Friday",
	}), f.svc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = handleComposeDraft(context.Background(), request(map[string]interface{}{
		"to": "bo@example.com", "subject": "Notes", "body": "Draft",
	}), f.svc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"Friday|Maybe", "Notes|Draft"}, f.actions.drafts)

	result, err = handleComposeDraft(context.Background(), request(map[string]interface{}{"to": "bo@example.com"}), f.svc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleMessageAction(t *testing.T) {
	f := newFixture()

	result, err := handleMessageAction(context.Background(), request(map[string]interface{}{
		"messageIds": []interface{}{"m1", "gone", "m2"},
	}), f.svc, f.actions.Archive)
	require.NoError(t, err)

	var got batch.Summary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Successful)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, batch.StatusError, got.Results[1].Status)
	assert.Equal(t, []string{"m1", "m2"}, f.actions.archived)

	result, err = handleMessageAction(context.Background(), request(map[string]interface{}{}), f.svc, f.actions.Archive)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMarkReadTool(t *testing.T) {
	f := newFixture()
	s := newWriteServer(t, f)

	callTool(t, s, "email_mark_read", map[string]interface{}{"messageIds": "m1"})
	callTool(t, s, "email_mark_read", map[string]interface{}{"messageIds": "m2", "read": false})
	assert.Equal(t, map[string]bool{"m1": true, "m2": false}, f.actions.read)

	callTool(t, s, "email_delete", map[string]interface{}{"messageIds": []interface{}{"m1"}})
	assert.Equal(t, []string{"m1"}, f.actions.deleted)
}

func TestWriteHandlers_NoActions(t *testing.T) {
	f := newFixture()
	f.svc.Actions = nil

	for _, result := range []func() (*mcp.CallToolResult, error){
		func() (*mcp.CallToolResult, error) { return handleSend(context.Background(), request(nil), f.svc) },
		func() (*mcp.CallToolResult, error) { return handleReply(context.Background(), request(nil), f.svc) },
		func() (*mcp.CallToolResult, error) {
			return handleMessageAction(context.Background(), request(map[string]interface{}{"messageIds": "m1"}), f.svc, nil)
		},
	} {
		res, err := result()
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "not configured")
	}
}
