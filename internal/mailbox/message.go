// Package mailbox defines the message shape shared by the mail source,
// the local snapshot, the automation pipeline and the tool surfaces.
package mailbox

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Message is a summary of one email as seen by the assistant.
// Body holds plain text; HTML holds the text/html part when present.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Snippet    string    `json:"snippet,omitempty"`
	Body       string    `json:"body,omitempty"`
	HTML       string    `json:"html,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	LabelIDs   []string  `json:"label_ids,omitempty"`
}

// HasContent reports whether the message carries a body or HTML part.
func (m Message) HasContent() bool {
	return strings.TrimSpace(m.Body) != "" || strings.TrimSpace(m.HTML) != ""
}

// DisplayName returns a short human label for the message, preferring the
// subject, then the snippet, the sender and finally the id. The result is at
// most maxLen runes long.
func (m Message) DisplayName(maxLen int) string {
	name := ""
	for _, candidate := range []string{m.Subject, m.Snippet, m.From, m.ID} {
		if s := strings.TrimSpace(candidate); s != "" {
			name = s
			break
		}
	}
	return Truncate(name, maxLen)
}

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Text returns the plain-text content, falling back to the snippet.
func (m Message) Text() string {
	if strings.TrimSpace(m.Body) != "" {
		return m.Body
	}
	return m.Snippet
}
