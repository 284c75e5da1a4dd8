package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

const summarizeSystemPrompt = `You are a helpful assistant that extracts scheduling information from a user's email.
Produce a short, clean, human-readable summary of the email in English, mentioning the sender's name when available.
Use as few words as possible and never more than one line. For subscription or promotional emails report only the key facts.
Also propose calendar events for any scheduling intent in the email.
All proposal start and end values must be full ISO 8601 timestamps with a timezone offset.
When a date is ambiguous, infer the sender's locale from their address and the email content; default to DD/MM.
Respond with JSON only.`

const stubSummaryLength = 120

// Summarize produces a one-line summary of msg and any calendar events it
// proposes. Without a configured model the summary is built locally from
// the message and carries no proposals.
func (c *Client) Summarize(ctx context.Context, msg mailbox.Message) (*mailbox.Summary, error) {
	if !c.Ready() {
		return stubSummary(msg), nil
	}

	messages := []chatMessage{
		{Role: "system", Content: summarizeSystemPrompt},
		{Role: "user", Content: summarizePrompt(msg, c.now())},
	}
	text, err := c.complete(ctx, instrumentation.LLMOperationSummarize, messages, 0, c.cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	var summary mailbox.Summary
	if err := extractJSON(text, &summary); err != nil {
		return &mailbox.Summary{Text: strings.TrimSpace(text), Proposals: []mailbox.EventProposal{}}, nil
	}
	if summary.Proposals == nil {
		summary.Proposals = []mailbox.EventProposal{}
	}
	return &summary, nil
}

func stubSummary(msg mailbox.Message) *mailbox.Summary {
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "(no subject)"
	}
	text := "Stub summary: " + subject
	if from := strings.TrimSpace(msg.From); from != "" {
		text += " from " + from
	}
	if body := strings.Join(strings.Fields(msg.Text()), " "); body != "" {
		text += ". " + mailbox.Truncate(body, stubSummaryLength)
	}
	return &mailbox.Summary{Text: text, Proposals: []mailbox.EventProposal{}}
}

func summarizePrompt(msg mailbox.Message, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Email:\n%s\n\n", msg.Text())
	if msg.Subject != "" {
		fmt.Fprintf(&b, "Email subject: %s. ", msg.Subject)
	}
	if msg.From != "" {
		fmt.Fprintf(&b, "Email sender: %s. ", msg.From)
	}
	if !msg.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "Email received at: %s. ", msg.ReceivedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Current system time: %s.\n", now.UTC().Format(time.RFC3339))
	b.WriteString("\nProduce a JSON object with keys:\n")
	b.WriteString("- text: brief summary string\n")
	b.WriteString("- proposals: an array (possibly empty) of objects with fields title, start, end, attendees (array of emails), location, notes.\n")
	b.WriteString("If there are no scheduling intents, use an empty array for proposals. Return JSON only.")
	return b.String()
}
