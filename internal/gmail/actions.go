package gmail

import (
	"context"
	"errors"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
)

const (
	labelUnread = "UNREAD"
	labelInbox  = "INBOX"
)

// DeleteMessage moves a message to the trash. Gmail purges it after 30
// days.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("message id is required")
	}
	err := c.call(ctx, instrumentation.OperationDelete, func(ctx context.Context) error {
		_, err := c.svc.Messages.Trash(userID, id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	c.logger.Info("moved message to trash", logging.MessageID(id))
	return nil
}

// MarkRead marks a message as read, or as unread when read is false.
func (c *Client) MarkRead(ctx context.Context, id string, read bool) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{labelUnread}}
	if !read {
		req = &gmail.ModifyMessageRequest{AddLabelIds: []string{labelUnread}}
	}
	if err := c.modify(ctx, id, req); err != nil {
		return fmt.Errorf("failed to mark message %s: %w", id, err)
	}
	return nil
}

// Archive removes a message from the inbox.
func (c *Client) Archive(ctx context.Context, id string) error {
	if err := c.modify(ctx, id, &gmail.ModifyMessageRequest{RemoveLabelIds: []string{labelInbox}}); err != nil {
		return fmt.Errorf("failed to archive message %s: %w", id, err)
	}
	return nil
}

func (c *Client) modify(ctx context.Context, id string, req *gmail.ModifyMessageRequest) error {
	if id == "" {
		return errors.New("message id is required")
	}
	return c.call(ctx, instrumentation.OperationModify, func(ctx context.Context) error {
		_, err := c.svc.Messages.Modify(userID, id, req).Context(ctx).Do()
		return err
	})
}
