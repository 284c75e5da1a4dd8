package mailcache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// Fetcher lists recent messages from the live mailbox.
type Fetcher interface {
	FetchCandidates(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error)
}

// Refresher reloads the snapshot from the live mailbox.
type Refresher struct {
	cache        *Cache
	source       Fetcher
	lookbackDays int
	limit        int
	metrics      *instrumentation.Metrics
	logger       logging.Logger
}

// NewRefresher creates a refresher that keeps the last lookbackDays days of
// mail, at most limit messages per refresh. metrics may be nil.
func NewRefresher(cache *Cache, source Fetcher, lookbackDays, limit int, metrics *instrumentation.Metrics, logger logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Refresher{
		cache:        cache,
		source:       source,
		lookbackDays: max(lookbackDays, 1),
		limit:        limit,
		metrics:      metrics,
		logger:       logger,
	}
}

// Refresh fetches recent messages, stores them and prunes messages that
// fell out of the look-back window. It returns the number of messages
// fetched.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	ctx, span := instrumentation.StartSpan(ctx, "mailcache.refresh")
	defer span.End()

	msgs, err := r.source.FetchCandidates(ctx, r.lookbackDays, r.limit)
	if err != nil {
		return 0, r.fail(ctx, span, fmt.Errorf("failed to fetch messages: %w", err))
	}
	if err := r.cache.Store(ctx, msgs); err != nil {
		return 0, r.fail(ctx, span, err)
	}

	cutoff := r.cache.now().UTC().AddDate(0, 0, -r.lookbackDays)
	pruned, err := r.cache.Prune(ctx, cutoff)
	if err != nil {
		r.logger.Warn("failed to prune mail snapshot", logging.Err(err))
	}

	size, err := r.cache.Len(ctx)
	if err != nil {
		size = int64(len(msgs))
	}
	r.metrics.RecordSnapshotRefresh(ctx, instrumentation.StatusSuccess, int(size))
	instrumentation.SetSpanSuccess(span)
	r.logger.Info("mail snapshot refreshed", "fetched", len(msgs), "pruned", pruned, "size", size)
	return len(msgs), nil
}

func (r *Refresher) fail(ctx context.Context, span trace.Span, err error) error {
	instrumentation.SetSpanError(span, err)
	r.metrics.RecordSnapshotRefresh(ctx, instrumentation.StatusError, 0)
	r.logger.Error("mail snapshot refresh failed", logging.Err(err))
	return err
}
