package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// rfc822 is one message in wire form before base64 encoding.
type rfc822 struct {
	mailbox.OutgoingMessage
	inReplyTo  string
	references string
	threadID   string
}

// raw renders the message as RFC 2822 text, base64url encoded for the
// Gmail API.
func (m rfc822) raw() string {
	var b strings.Builder
	writeHeader(&b, "To", strings.Join(m.To, ", "))
	writeHeader(&b, "Cc", strings.Join(m.Cc, ", "))
	writeHeader(&b, "Bcc", strings.Join(m.Bcc, ", "))
	writeHeader(&b, "Subject", mime.BEncoding.Encode("UTF-8", m.Subject))
	writeHeader(&b, "In-Reply-To", m.inReplyTo)
	writeHeader(&b, "References", m.references)
	b.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	if m.HTML {
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType)
	b.WriteString(m.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

func (m rfc822) message() *gmail.Message {
	return &gmail.Message{Raw: m.raw(), ThreadId: m.threadID}
}

func writeHeader(b *strings.Builder, name, value string) {
	value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\r\n", name, value)
}

// SendEmail sends a new message.
func (c *Client) SendEmail(ctx context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return c.send(ctx, rfc822{OutgoingMessage: msg})
}

// ReplyToEmail sends body to the sender of messageID, in the same thread.
func (c *Client) ReplyToEmail(ctx context.Context, messageID, body string) (*mailbox.SentMessage, error) {
	reply, err := c.replyTo(ctx, messageID, body, "")
	if err != nil {
		return nil, err
	}
	return c.send(ctx, reply)
}

// DraftReply saves a reply to messageID as a draft. An empty subject
// becomes "Re: " plus the original subject.
func (c *Client) DraftReply(ctx context.Context, messageID, body, subject string) (*mailbox.SentMessage, error) {
	reply, err := c.replyTo(ctx, messageID, body, subject)
	if err != nil {
		return nil, err
	}
	return c.createDraft(ctx, reply)
}

// ComposeDraft saves a new message as a draft.
func (c *Client) ComposeDraft(ctx context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return c.createDraft(ctx, rfc822{OutgoingMessage: msg})
}

func (c *Client) send(ctx context.Context, m rfc822) (*mailbox.SentMessage, error) {
	var sent *gmail.Message
	err := c.call(ctx, instrumentation.OperationSend, func(ctx context.Context) error {
		var err error
		sent, err = c.svc.Messages.Send(userID, m.message()).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	c.logger.Info("sent email", logging.MessageID(sent.Id), "thread_id", sent.ThreadId)
	return &mailbox.SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

func (c *Client) createDraft(ctx context.Context, m rfc822) (*mailbox.SentMessage, error) {
	var draft *gmail.Draft
	err := c.call(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		draft, err = c.svc.Drafts.Create(userID, &gmail.Draft{Message: m.message()}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	out := &mailbox.SentMessage{DraftID: draft.Id}
	if draft.Message != nil {
		out.ID, out.ThreadID = draft.Message.Id, draft.Message.ThreadId
	}
	c.logger.Info("created draft", "draft_id", draft.Id)
	return out, nil
}

// replyTo builds a reply to messageID addressed to its sender.
func (c *Client) replyTo(ctx context.Context, messageID, body, subject string) (rfc822, error) {
	if messageID == "" {
		return rfc822{}, errors.New("message id is required")
	}
	if strings.TrimSpace(body) == "" {
		return rfc822{}, fmt.Errorf("%w: body is required", mailbox.ErrInvalidMessage)
	}

	var orig *gmail.Message
	err := c.call(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		orig, err = c.svc.Messages.Get(userID, messageID).
			Format("metadata").
			MetadataHeaders("From", "Reply-To", "Subject", "Message-ID", "References").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return rfc822{}, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	sender := HeaderValue(orig, "Reply-To")
	if sender == "" {
		sender = HeaderValue(orig, "From")
	}
	addr, err := mail.ParseAddress(sender)
	if err != nil {
		return rfc822{}, fmt.Errorf("%w: original sender %q: %v", mailbox.ErrInvalidMessage, sender, err)
	}

	if strings.TrimSpace(subject) == "" {
		subject = replySubject(HeaderValue(orig, "Subject"))
	}
	msgID := HeaderValue(orig, "Message-ID")
	references := strings.TrimSpace(HeaderValue(orig, "References") + " " + msgID)

	return rfc822{
		OutgoingMessage: mailbox.OutgoingMessage{To: []string{addr.Address}, Subject: subject, Body: body},
		inReplyTo:       msgID,
		references:      references,
		threadID:        orig.ThreadId,
	}, nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}
