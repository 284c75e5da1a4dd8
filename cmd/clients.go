package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/server"
)

var (
	_ server.CalendarService = (*googleClients)(nil)
	_ server.MailActions     = (*googleClients)(nil)
)

// googleClients creates the Gmail and Calendar clients on first use, so a
// token written after startup is picked up without a restart. A failed
// creation is retried on the next call.
type googleClients struct {
	provider google.TokenProvider
	account  string
	timeZone string
	metrics  *instrumentation.Metrics
	logger   logging.Logger

	mu       sync.Mutex
	mail     *gmail.Client
	calendar *calendar.Client
}

func newGoogleClients(provider google.TokenProvider, account, timeZone string, metrics *instrumentation.Metrics, logger logging.Logger) *googleClients {
	return &googleClients{
		provider: provider,
		account:  account,
		timeZone: timeZone,
		metrics:  metrics,
		logger:   logger,
	}
}

func (g *googleClients) gmailClient(ctx context.Context) (*gmail.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mail != nil {
		return g.mail, nil
	}
	c, err := gmail.NewClientForAccount(ctx, g.provider, g.account,
		gmail.WithMetrics(g.metrics),
		gmail.WithLogger(g.logger),
	)
	if err != nil {
		return nil, err
	}
	g.mail = c
	return c, nil
}

func (g *googleClients) calendarClient(ctx context.Context) (*calendar.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calendar != nil {
		return g.calendar, nil
	}
	c, err := calendar.NewClientForAccount(ctx, g.provider, g.account,
		calendar.WithMetrics(g.metrics),
		calendar.WithLogger(g.logger),
		calendar.WithTimeZone(g.timeZone),
	)
	if err != nil {
		return nil, err
	}
	g.calendar = c
	return c, nil
}

func (g *googleClients) FetchCandidates(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchCandidates(ctx, lookbackDays, limit)
}

func (g *googleClients) FetchDetail(ctx context.Context, id string) (*mailbox.Message, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchDetail(ctx, id)
}

func (g *googleClients) Search(ctx context.Context, query string, limit int) ([]mailbox.Message, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.Search(ctx, query, limit)
}

func (g *googleClients) EnsureLabel(ctx context.Context, name string) (string, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return "", err
	}
	return c.EnsureLabel(ctx, name)
}

func (g *googleClients) ApplyLabels(ctx context.Context, messageID string, labelIDs []string) error {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return err
	}
	return c.ApplyLabels(ctx, messageID, labelIDs)
}

func (g *googleClients) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, query string) ([]calendar.EventSummary, error) {
	c, err := g.calendarClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.ListEvents(ctx, calendarID, timeMin, timeMax, query)
}

func (g *googleClients) CreateEventFromProposal(ctx context.Context, proposal mailbox.EventProposal) (*calendar.EventSummary, error) {
	c, err := g.calendarClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.CreateEventFromProposal(ctx, proposal)
}

func (g *googleClients) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.EventSummary, error) {
	c, err := g.calendarClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetEvent(ctx, calendarID, eventID)
}

func (g *googleClients) UpdateEvent(ctx context.Context, calendarID, eventID string, update calendar.EventUpdate) (*calendar.EventSummary, error) {
	c, err := g.calendarClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.UpdateEvent(ctx, calendarID, eventID, update)
}

func (g *googleClients) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	c, err := g.calendarClient(ctx)
	if err != nil {
		return err
	}
	return c.DeleteEvent(ctx, calendarID, eventID)
}

func (g *googleClients) SendEmail(ctx context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.SendEmail(ctx, msg)
}

func (g *googleClients) ReplyToEmail(ctx context.Context, messageID, body string) (*mailbox.SentMessage, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.ReplyToEmail(ctx, messageID, body)
}

func (g *googleClients) DraftReply(ctx context.Context, messageID, body, subject string) (*mailbox.SentMessage, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.DraftReply(ctx, messageID, body, subject)
}

func (g *googleClients) ComposeDraft(ctx context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return nil, err
	}
	return c.ComposeDraft(ctx, msg)
}

func (g *googleClients) DeleteMessage(ctx context.Context, id string) error {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return err
	}
	return c.DeleteMessage(ctx, id)
}

func (g *googleClients) MarkRead(ctx context.Context, id string, read bool) error {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return err
	}
	return c.MarkRead(ctx, id, read)
}

func (g *googleClients) Archive(ctx context.Context, id string) error {
	c, err := g.gmailClient(ctx)
	if err != nil {
		return err
	}
	return c.Archive(ctx, id)
}
