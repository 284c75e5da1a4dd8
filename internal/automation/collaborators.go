package automation

import (
	"context"

	"github.com/teemow/inboxpilot/internal/mailbox"
)

// Match is a rule the evaluator judged applicable to a message. Only RuleID
// drives labeling; the other fields are advisory.
type Match struct {
	RuleID      string  `json:"rule_id"`
	Confidence  float64 `json:"confidence,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
}

// MailSource lists and loads messages from the live mailbox.
type MailSource interface {
	FetchCandidates(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error)
	FetchDetail(ctx context.Context, id string) (*mailbox.Message, error)
}

// Snapshot serves recent messages from a local copy of the mailbox. It
// returns no messages when its copy is stale.
type Snapshot interface {
	Recent(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error)
}

// LabelService resolves label names and applies labels to messages.
type LabelService interface {
	EnsureLabel(ctx context.Context, name string) (string, error)
	ApplyLabels(ctx context.Context, messageID string, labelIDs []string) error
}

// Evaluator decides which rules apply to a message.
type Evaluator interface {
	EvaluateRules(ctx context.Context, msg mailbox.Message, rules []Rule) ([]Match, error)
}

// Credentials reports whether the mailbox can be reached at all.
type Credentials interface {
	CredentialsAvailable() bool
}

// Refresher reloads the local snapshot from the live mailbox and returns the
// number of messages stored.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}
