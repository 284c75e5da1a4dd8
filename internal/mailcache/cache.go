package mailcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// ErrNotFound is returned by Get for unknown message ids.
var ErrNotFound = errors.New("message not in snapshot")

const upsertBatchSize = 100

// Cache is a SQLite-backed mail snapshot.
type Cache struct {
	db     *gorm.DB
	maxAge time.Duration
	logger logging.Logger
	now    func() time.Time
}

// Open opens or creates the snapshot database at path. A maxAge of zero
// disables staleness checks.
func Open(path string, maxAge time.Duration, logger logging.Logger) (*Cache, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	if err := db.AutoMigrate(&messageRecord{}, &metaRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot %s: %w", path, err)
	}

	return &Cache{db: db, maxAge: maxAge, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Store upserts messages and stamps the refresh time.
func (c *Cache) Store(ctx context.Context, msgs []mailbox.Message) error {
	records := make([]messageRecord, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		records = append(records, fromMessage(m))
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				CreateInBatches(records, upsertBatchSize).Error
			if err != nil {
				return fmt.Errorf("failed to store messages: %w", err)
			}
		}
		meta := metaRecord{Name: metaLastRefresh, Value: c.now().UTC()}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to stamp refresh time: %w", err)
		}
		return nil
	})
}

// LastRefresh returns when the snapshot was last stored, if ever.
func (c *Cache) LastRefresh(ctx context.Context) (time.Time, bool, error) {
	var meta metaRecord
	err := c.db.WithContext(ctx).Where("name = ?", metaLastRefresh).Limit(1).Find(&meta).Error
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read refresh time: %w", err)
	}
	if meta.Name == "" {
		return time.Time{}, false, nil
	}
	return meta.Value.UTC(), true, nil
}

// Fresh reports whether the snapshot was refreshed within the max age.
func (c *Cache) Fresh(ctx context.Context) (bool, error) {
	at, ok, err := c.LastRefresh(ctx)
	if err != nil || !ok {
		return false, err
	}
	return c.maxAge <= 0 || c.now().Sub(at) <= c.maxAge, nil
}

// Recent returns up to limit messages received within the last lookbackDays
// days, newest first. A stale snapshot yields no messages.
func (c *Cache) Recent(ctx context.Context, lookbackDays, limit int) ([]mailbox.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	fresh, err := c.Fresh(ctx)
	if err != nil {
		return nil, err
	}
	if !fresh {
		c.logger.Debug("mail snapshot is stale")
		return nil, nil
	}

	var records []messageRecord
	err = c.window(ctx, lookbackDays).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return toMessages(records), nil
}

// Get returns one message from the snapshot regardless of its age.
func (c *Cache) Get(ctx context.Context, id string) (*mailbox.Message, error) {
	var records []messageRecord
	if err := c.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	msg := records[0].toMessage()
	return &msg, nil
}

// Search returns up to limit messages within the look-back window whose
// subject, sender, snippet or body contain every whitespace-separated term
// of query, ignoring case.
func (c *Cache) Search(ctx context.Context, query string, lookbackDays, limit int) ([]mailbox.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx := c.window(ctx, lookbackDays)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		pattern := "%" + escapeLike(term) + "%"
		tx = tx.Where(
			`(LOWER(subject) LIKE ? ESCAPE '\' OR LOWER(sender) LIKE ? ESCAPE '\' OR LOWER(snippet) LIKE ? ESCAPE '\' OR LOWER(body) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern, pattern,
		)
	}

	var records []messageRecord
	if err := tx.Order("received_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search snapshot: %w", err)
	}
	return toMessages(records), nil
}

// Prune deletes messages received before olderThan and returns how many
// were removed.
func (c *Cache) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := c.db.WithContext(ctx).Where("received_at < ?", olderThan.UTC()).Delete(&messageRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune snapshot: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Len returns the number of stored messages.
func (c *Cache) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.WithContext(ctx).Model(&messageRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Cache) window(ctx context.Context, lookbackDays int) *gorm.DB {
	tx := c.db.WithContext(ctx).Model(&messageRecord{})
	if lookbackDays > 0 {
		tx = tx.Where("received_at >= ?", c.now().UTC().AddDate(0, 0, -lookbackDays))
	}
	return tx
}

func toMessages(records []messageRecord) []mailbox.Message {
	msgs := make([]mailbox.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, r.toMessage())
	}
	return msgs
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
