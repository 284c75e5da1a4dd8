package common

import (
	"context"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/server"
)

// MailSnapshot is the searchable local copy of recent mail.
type MailSnapshot interface {
	Recent(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error)
	Get(ctx context.Context, id string) (*mailbox.Message, error)
	Search(ctx context.Context, query string, lookbackDays, limit int) ([]mailbox.Message, error)
}

// Mailbox is the live Gmail mailbox.
type Mailbox interface {
	FetchCandidates(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error)
	FetchDetail(ctx context.Context, id string) (*mailbox.Message, error)
	Search(ctx context.Context, query string, limit int) ([]mailbox.Message, error)
}

// CredentialsInfo describes the Google account the tools act for.
type CredentialsInfo interface {
	Account() string
	CredentialsAvailable() bool
	MissingMessage() string
}

// Services are the collaborators the tools call. Snapshot, Mail, Actions
// and Calendar may be nil; tools that need them then report an error
// result.
type Services struct {
	Automation  server.AutomationService
	Snapshot    MailSnapshot
	Mail        Mailbox
	Actions     server.MailActions
	Summarizer  server.Summarizer
	Calendar    server.CalendarService
	Credentials CredentialsInfo
	Metrics     *instrumentation.Metrics
	Logger      logging.Logger

	// ReadOnly hides tools that change the mailbox, calendar or rules.
	ReadOnly bool
}

// Log returns the configured logger or a default one.
func (s *Services) Log() logging.Logger {
	if s.Logger == nil {
		return logging.DefaultLogger()
	}
	return s.Logger
}
