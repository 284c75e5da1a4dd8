package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
)

// ListLabels lists all Gmail labels for the user.
func (c *Client) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	var labels []*gmail.Label
	err := c.call(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		resp, err := c.svc.Labels.List(userID).Context(ctx).Do()
		if err != nil {
			return err
		}
		labels = resp.Labels
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// EnsureLabel returns the id of the label called name, matched without
// regard to case, creating a visible label when none exists.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("label name is required")
	}

	labels, err := c.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l.Id, nil
		}
	}

	var created *gmail.Label
	err = c.call(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Labels.Create(userID, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}

	c.logger.Info("created Gmail label", logging.Label(name), "label_id", created.Id)
	return created.Id, nil
}

// ApplyLabels adds labelIDs to a message.
func (c *Client) ApplyLabels(ctx context.Context, messageID string, labelIDs []string) error {
	if messageID == "" {
		return errors.New("message id is required")
	}
	if len(labelIDs) == 0 {
		return nil
	}
	if err := c.modify(ctx, messageID, &gmail.ModifyMessageRequest{AddLabelIds: labelIDs}); err != nil {
		return fmt.Errorf("failed to label message %s: %w", messageID, err)
	}
	return nil
}
