package mailbox

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalidMessage is returned for outgoing messages that cannot be sent.
var ErrInvalidMessage = errors.New("invalid outgoing message")

// OutgoingMessage is a new email to send or to save as a draft.
type OutgoingMessage struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html,omitempty"`
}

// Validate checks that the message has a recipient, a subject and a body,
// and that every address parses.
func (m OutgoingMessage) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	for _, list := range [][]string{m.To, m.Cc, m.Bcc} {
		for _, addr := range list {
			if _, err := mail.ParseAddress(addr); err != nil {
				return fmt.Errorf("%w: address %q: %v", ErrInvalidMessage, addr, err)
			}
		}
	}
	return nil
}

// SentMessage identifies a message or draft created in the mailbox.
type SentMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
	DraftID  string `json:"draft_id,omitempty"`
}

// SplitAddresses splits a comma separated address list, dropping blanks.
func SplitAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
