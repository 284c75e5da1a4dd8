package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

const (
	// PrimaryCalendar is the calendar id of the account's main calendar.
	PrimaryCalendar = "primary"

	// DefaultTimeZone applies to proposal times that carry no offset.
	DefaultTimeZone = "UTC"

	localDateTime = "2006-01-02T15:04:05"
	maxEvents     = 250
)

// ErrInvalidProposal is returned for proposals that cannot become an event.
var ErrInvalidProposal = errors.New("invalid event proposal")

// Client wraps the Google Calendar service.
type Client struct {
	svc      *calendar.Service
	account  string
	timeZone string
	metrics  *instrumentation.Metrics
	logger   logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records API operations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeZone sets the IANA time zone used for proposal times without an
// offset.
func WithTimeZone(tz string) Option {
	return func(c *Client) {
		if tz != "" {
			c.timeZone = tz
		}
	}
}

// New wraps an existing Calendar service.
func New(svc *calendar.Service, opts ...Option) *Client {
	c := &Client{
		svc:      svc,
		account:  google.DefaultAccount,
		timeZone: DefaultTimeZone,
		logger:   logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientForAccount creates a client authorized with the account's stored
// credentials.
func NewClientForAccount(ctx context.Context, provider google.TokenProvider, account string, opts ...Option) (*Client, error) {
	httpClient, err := google.HTTPClientForAccount(ctx, provider, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	c := New(svc, opts...)
	c.account = account
	return c, nil
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// ListEvents lists single events of a calendar that overlap [timeMin,
// timeMax), ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, query string) ([]EventSummary, error) {
	calendarID = calendarOrPrimary(calendarID)

	var events *calendar.Events
	err := c.call(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		call := c.svc.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxEvents).
			Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		var err error
		events, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, nil
}

// CreateEventFromProposal inserts a proposal into the primary calendar
// without notifying attendees.
func (c *Client) CreateEventFromProposal(ctx context.Context, proposal mailbox.EventProposal) (*EventSummary, error) {
	event, err := c.eventFromProposal(proposal)
	if err != nil {
		return nil, err
	}

	var created *calendar.Event
	err = c.call(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(PrimaryCalendar, event).SendUpdates("none").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	c.logger.Info("created calendar event", "event_id", created.Id)
	summary := toEventSummary(created)
	return &summary, nil
}

func (c *Client) eventFromProposal(p mailbox.EventProposal) (*calendar.Event, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidProposal)
	}
	start, err := parseProposalTime(p.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidProposal, err)
	}
	end, err := parseProposalTime(p.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidProposal, err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidProposal)
	}

	event := &calendar.Event{
		Summary:     title,
		Description: p.Notes,
		Location:    p.Location,
		Start:       &calendar.EventDateTime{DateTime: strings.TrimSpace(p.Start), TimeZone: c.timeZone},
		End:         &calendar.EventDateTime{DateTime: strings.TrimSpace(p.End), TimeZone: c.timeZone},
	}
	for _, email := range p.Attendees {
		if email = strings.TrimSpace(email); email != "" {
			event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
		}
	}
	return event, nil
}

// parseProposalTime accepts RFC 3339 timestamps and local date-times
// without an offset.
func parseProposalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(localDateTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not an ISO 8601 date-time", s)
	}
	return t, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	return err
}
