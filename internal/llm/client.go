package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
)

const (
	completionsPath  = "/v1/chat/completions"
	defaultMaxTokens = 5120
	defaultTimeout   = 60 * time.Second
	defaultMaxTries  = 3
	maxErrorBody     = 512
)

// Config configures the chat completion endpoint.
type Config struct {
	APIKey    string
	Model     string
	APIBase   string
	MaxTokens int
	Timeout   time.Duration
	// MaxTries bounds attempts for retryable failures (429 and 5xx).
	MaxTries uint
}

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     logging.Logger
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// New creates a client. metrics may be nil.
func New(cfg Config, metrics *instrumentation.Metrics, logger logging.Logger) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		metrics:    metrics,
		logger:     logger,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:        time.Now,
	}
}

// Ready reports whether requests can be sent to the model.
func (c *Client) Ready() bool {
	return c.cfg.APIKey != "" && c.cfg.Model != "" && c.cfg.APIBase != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// complete sends one chat completion and returns the text of the first choice.
func (c *Client) complete(ctx context.Context, operation string, messages []chatMessage, temperature float64, maxTokens int) (string, error) {
	ctx, span := instrumentation.StartLLMSpan(ctx, operation, c.cfg.Model)
	defer span.End()

	start := c.now()
	text, err := backoff.Retry(ctx, func() (string, error) {
		return c.post(ctx, chatRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("chat completion failed, retrying", logging.Operation(operation), "retry_in", next.String(), logging.Err(err))
		}),
	)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	c.metrics.RecordLLMRequest(ctx, operation, c.cfg.Model, status, c.now().Sub(start))
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	c.logger.Debug("chat completion finished", logging.Operation(operation), "chars", len(text))
	return text, nil
}

func (c *Client) post(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				return "", backoff.RetryAfter(secs)
			}
			return "", statusErr
		case resp.StatusCode >= 500:
			return "", statusErr
		default:
			return "", backoff.Permanent(statusErr)
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	first := parsed.Choices[0]
	if first.Message.Content != "" {
		return first.Message.Content, nil
	}
	return first.Text, nil
}
