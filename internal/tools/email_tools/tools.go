package email_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/mailcache"
	"github.com/teemow/inboxpilot/internal/tools/batch"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

const (
	defaultDays  = 7
	maxDays      = 30
	defaultLimit = 20
	maxLimit     = 100

	// SummaryBodyLimit caps the body handed to the summarizer.
	SummaryBodyLimit = 4000

	sourceSnapshot = "snapshot"
	sourceGmail    = "gmail"
)

var errNoMailbox = errors.New("gmail is not configured; authorize an account first")

// messageListing is the compact form returned by list and search tools.
type messageListing struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Snippet    string    `json:"snippet,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type listResult struct {
	Source string           `json:"source"`
	Count  int              `json:"count"`
	Emails []messageListing `json:"emails"`
}

// RegisterEmailTools registers the email tools with the MCP server. Tools
// that send, delete or change mail are only registered when svc is not
// read-only.
func RegisterEmailTools(s *mcpserver.MCPServer, svc *common.Services) error {
	searchTool := mcp.NewTool("email_search",
		mcp.WithDescription("Search recent email by text. Uses the local snapshot first, then Gmail search syntax."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text (e.g., 'invoice', 'from:billing@example.com')"),
		),
		mcp.WithNumber("days",
			mcp.Description("Look-back window in days (default: 7, max: 30)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 100)"),
		),
	)
	s.AddTool(searchTool, common.InstrumentedToolHandler("email_search", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearch(ctx, request, svc)
		}))

	readTool := mcp.NewTool("email_read",
		mcp.WithDescription("Read the full text of one or more emails"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
	)
	s.AddTool(readTool, common.InstrumentedToolHandler("email_read", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRead(ctx, request, svc)
		}))

	recentTool := mcp.NewTool("email_list_recent",
		mcp.WithDescription("List the most recent emails, newest first"),
		mcp.WithNumber("days",
			mcp.Description("Look-back window in days (default: 7, max: 30)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 100)"),
		),
	)
	s.AddTool(recentTool, common.InstrumentedToolHandler("email_list_recent", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListRecent(ctx, request, svc)
		}))

	summarizeTool := mcp.NewTool("email_summarize",
		mcp.WithDescription("Summarize an email and propose calendar events it mentions"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to summarize"),
		),
	)
	s.AddTool(summarizeTool, common.InstrumentedToolHandler("email_summarize", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSummarize(ctx, request, svc)
		}))

	if svc.ReadOnly {
		return nil
	}
	registerWriteTools(s, svc)
	return nil
}

func windowArgs(args map[string]interface{}) (days, limit int) {
	days = common.ClampInt(common.IntArg(args, "days", defaultDays), 1, maxDays)
	limit = common.ClampInt(common.IntArg(args, "limit", defaultLimit), 1, maxLimit)
	return days, limit
}

func handleSearch(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query := common.StringArg(args, "query")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	days, limit := windowArgs(args)

	if svc.Snapshot != nil {
		msgs, err := svc.Snapshot.Search(ctx, query, days, limit)
		if err != nil {
			svc.Log().Warn("snapshot search failed, using gmail", logging.Err(err))
		} else if len(msgs) > 0 {
			return common.JSONResult(newListResult(sourceSnapshot, msgs))
		}
	}

	if svc.Mail == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	gmailQuery := fmt.Sprintf("%s newer_than:%dd", query, days)
	msgs, err := svc.Mail.Search(ctx, gmailQuery, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search gmail: %v", err)), nil
	}
	return common.JSONResult(newListResult(sourceGmail, msgs))
}

func handleListRecent(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	days, limit := windowArgs(request.GetArguments())

	if svc.Snapshot != nil {
		msgs, err := svc.Snapshot.Recent(ctx, days, limit)
		if err != nil {
			svc.Log().Warn("snapshot read failed, using gmail", logging.Err(err))
		} else if len(msgs) > 0 {
			return common.JSONResult(newListResult(sourceSnapshot, msgs))
		}
	}

	if svc.Mail == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	msgs, err := svc.Mail.FetchCandidates(ctx, days, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list gmail messages: %v", err)), nil
	}
	return common.JSONResult(newListResult(sourceGmail, msgs))
}

func handleRead(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary := batch.Process(ctx, ids, func(ctx context.Context, id string) (any, error) {
		msg, err := loadMessage(ctx, svc, id)
		if err != nil {
			return nil, err
		}
		// Plain text is enough for the model; HTML only when there is no text.
		if msg.Body != "" {
			msg.HTML = ""
		}
		return msg, nil
	})
	return common.JSONResult(summary)
}

func handleSummarize(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	id := common.StringArg(request.GetArguments(), "messageId")
	if id == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	msg, err := loadMessage(ctx, svc, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	input := *msg
	input.Body = mailbox.Truncate(input.Body, SummaryBodyLimit)
	summary, err := svc.Summarizer.Summarize(ctx, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to summarize: %v", err)), nil
	}
	return common.JSONResult(map[string]any{
		"messageId": id,
		"subject":   msg.Subject,
		"summary":   summary,
	})
}

// loadMessage reads a message from the snapshot, falling back to Gmail.
func loadMessage(ctx context.Context, svc *common.Services, id string) (*mailbox.Message, error) {
	if svc.Snapshot != nil {
		msg, err := svc.Snapshot.Get(ctx, id)
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, mailcache.ErrNotFound) {
			svc.Log().Warn("snapshot read failed, using gmail", logging.MessageID(id), logging.Err(err))
		}
	}
	if svc.Mail == nil {
		return nil, errNoMailbox
	}
	msg, err := svc.Mail.FetchDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load message %s: %w", id, err)
	}
	return msg, nil
}

func newListResult(source string, msgs []mailbox.Message) listResult {
	out := listResult{Source: source, Count: len(msgs), Emails: make([]messageListing, 0, len(msgs))}
	for _, m := range msgs {
		out.Emails = append(out.Emails, messageListing{
			ID:         m.ID,
			ThreadID:   m.ThreadID,
			Subject:    m.Subject,
			From:       m.From,
			Snippet:    m.Snippet,
			ReceivedAt: m.ReceivedAt,
		})
	}
	return out
}
