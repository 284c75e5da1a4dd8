package gmail

import (
	"context"
	"errors"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// FetchCandidates returns up to limit messages received within the last
// lookbackDays days, newest first.
func (c *Client) FetchCandidates(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	return c.Search(ctx, fmt.Sprintf("newer_than:%dd", lookbackDays), limit)
}

// Search returns up to limit messages matching a Gmail search query. A
// message that disappears between listing and loading is skipped.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]mailbox.Message, error) {
	ids, err := c.listMessageIDs(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]mailbox.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.FetchDetail(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return msgs, ctx.Err()
			}
			c.logger.Warn("skipping message that could not be loaded", logging.MessageID(id), logging.Err(err))
			continue
		}
		msgs = append(msgs, *msg)
	}
	return msgs, nil
}

// FetchDetail loads one message in full format.
func (c *Client) FetchDetail(ctx context.Context, id string) (*mailbox.Message, error) {
	if id == "" {
		return nil, errors.New("message id is required")
	}

	var raw *gmail.Message
	err := c.call(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		raw, err = c.svc.Messages.Get(userID, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	msg := toMessage(raw)
	return &msg, nil
}

// listMessageIDs pages through messages.list until limit ids are collected.
func (c *Client) listMessageIDs(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	var ids []string
	pageToken := ""
	for len(ids) < limit {
		pageSize := min(limit-len(ids), maxPageSize)

		var res *gmail.ListMessagesResponse
		err := c.call(ctx, instrumentation.OperationList, func(ctx context.Context) error {
			req := c.svc.Messages.List(userID).Q(query).MaxResults(int64(pageSize)).Context(ctx)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages for %q: %w", query, err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
