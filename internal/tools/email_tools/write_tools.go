package email_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/tools/batch"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

func registerWriteTools(s *mcpserver.MCPServer, svc *common.Services) {
	sendTool := mcp.NewTool("email_send",
		mcp.WithDescription("Send a new email"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Comma-separated list of recipient addresses"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body"),
		),
		mcp.WithString("cc",
			mcp.Description("Comma-separated list of CC addresses"),
		),
		mcp.WithString("bcc",
			mcp.Description("Comma-separated list of BCC addresses"),
		),
		mcp.WithBoolean("isHTML",
			mcp.Description("Whether the body is HTML (default: false)"),
		),
	)
	s.AddTool(sendTool, common.InstrumentedToolHandler("email_send", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSend(ctx, request, svc)
		}))

	replyTool := mcp.NewTool("email_reply",
		mcp.WithDescription("Reply to the sender of an email, keeping the thread"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to reply to"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Reply body"),
		),
	)
	s.AddTool(replyTool, common.InstrumentedToolHandler("email_reply", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReply(ctx, request, svc)
		}))

	draftReplyTool := mcp.NewTool("email_draft_reply",
		mcp.WithDescription("Save a reply to an email as a draft without sending it"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to reply to"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Reply body"),
		),
		mcp.WithString("subject",
			mcp.Description("Subject (default: 'Re: ' plus the original subject)"),
		),
	)
	s.AddTool(draftReplyTool, common.InstrumentedToolHandler("email_draft_reply", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDraftReply(ctx, request, svc)
		}))

	composeTool := mcp.NewTool("email_compose_draft",
		mcp.WithDescription("Save a new email as a draft without sending it"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Comma-separated list of recipient addresses"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body"),
		),
	)
	s.AddTool(composeTool, common.InstrumentedToolHandler("email_compose_draft", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleComposeDraft(ctx, request, svc)
		}))

	deleteTool := mcp.NewTool("email_delete",
		mcp.WithDescription("Move one or more emails to the trash"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandler("email_delete", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMessageAction(ctx, request, svc, func(ctx context.Context, id string) error {
				return svc.Actions.DeleteMessage(ctx, id)
			})
		}))

	markReadTool := mcp.NewTool("email_mark_read",
		mcp.WithDescription("Mark one or more emails as read or unread"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
		mcp.WithBoolean("read",
			mcp.Description("true marks as read, false as unread (default: true)"),
		),
	)
	s.AddTool(markReadTool, common.InstrumentedToolHandler("email_mark_read", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			read, ok := common.BoolArg(request.GetArguments(), "read")
			if !ok {
				read = true
			}
			return handleMessageAction(ctx, request, svc, func(ctx context.Context, id string) error {
				return svc.Actions.MarkRead(ctx, id, read)
			})
		}))

	archiveTool := mcp.NewTool("email_archive",
		mcp.WithDescription("Remove one or more emails from the inbox"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
	)
	s.AddTool(archiveTool, common.InstrumentedToolHandler("email_archive", svc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMessageAction(ctx, request, svc, func(ctx context.Context, id string) error {
				return svc.Actions.Archive(ctx, id)
			})
		}))
}

func outgoingFromArgs(args map[string]interface{}) mailbox.OutgoingMessage {
	html, _ := common.BoolArg(args, "isHTML")
	return mailbox.OutgoingMessage{
		To:      mailbox.SplitAddresses(common.StringArg(args, "to")),
		Cc:      mailbox.SplitAddresses(common.StringArg(args, "cc")),
		Bcc:     mailbox.SplitAddresses(common.StringArg(args, "bcc")),
		Subject: common.StringArg(args, "subject"),
		Body:    common.StringArg(args, "body"),
		HTML:    html,
	}
}

func handleSend(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Actions == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	sent, err := svc.Actions.SendEmail(ctx, outgoingFromArgs(request.GetArguments()))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to send email: %v", err)), nil
	}
	return common.JSONResult(sent)
}

func handleReply(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Actions == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	args := request.GetArguments()
	id := common.StringArg(args, "messageId")
	if id == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	sent, err := svc.Actions.ReplyToEmail(ctx, id, common.StringArg(args, "body"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reply: %v", err)), nil
	}
	return common.JSONResult(sent)
}

func handleDraftReply(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Actions == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	args := request.GetArguments()
	id := common.StringArg(args, "messageId")
	if id == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	draft, err := svc.Actions.DraftReply(ctx, id, common.StringArg(args, "body"), common.StringArg(args, "subject"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create draft: %v", err)), nil
	}
	return common.JSONResult(draft)
}

func handleComposeDraft(ctx context.Context, request mcp.CallToolRequest, svc *common.Services) (*mcp.CallToolResult, error) {
	if svc.Actions == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	draft, err := svc.Actions.ComposeDraft(ctx, outgoingFromArgs(request.GetArguments()))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create draft: %v", err)), nil
	}
	return common.JSONResult(draft)
}

// handleMessageAction applies fn to every id in messageIds.
func handleMessageAction(ctx context.Context, request mcp.CallToolRequest, svc *common.Services, fn func(ctx context.Context, id string) error) (*mcp.CallToolResult, error) {
	if svc.Actions == nil {
		return mcp.NewToolResultError(errNoMailbox.Error()), nil
	}
	ids, err := batch.ParseStringOrArray(request.GetArguments()["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary := batch.Process(ctx, ids, func(ctx context.Context, id string) (any, error) {
		return nil, fn(ctx, id)
	})
	return common.JSONResult(summary)
}
