package gmail

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
)

const (
	userID = "me"

	// DefaultRequestsPerSecond keeps well below the per-user Gmail quota.
	DefaultRequestsPerSecond = 10

	maxPageSize = 100
)

// Limiter gates outbound API calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	account string
	limiter Limiter
	metrics *instrumentation.Metrics
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter replaces the default rate limiter.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records API operations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAccount records the account name the client acts for.
func WithAccount(account string) Option {
	return func(c *Client) { c.account = account }
}

// New wraps an existing Gmail service.
func New(svc *gmail.Service, opts ...Option) *Client {
	c := &Client{
		svc:     svc.Users,
		account: google.DefaultAccount,
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		logger:  logging.DefaultLogger(),
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
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return New(svc, append([]Option{WithAccount(account)}, opts...)...), nil
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// call runs one API request behind the limiter and records it.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("rate wait canceled: %w", err)
	}

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
	return err
}
