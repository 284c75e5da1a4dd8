package automation

import (
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// ProcessedLedger remembers which messages have already been labeled so a
// cycle does not evaluate them again. Entries age out after maxAge and the
// ledger never holds more than maxEntries ids.
type ProcessedLedger struct {
	mu         sync.Mutex
	path       string
	maxAge     time.Duration
	maxEntries int
	entries    map[string]time.Time
	now        func() time.Time
	logger     logging.Logger
}

// NewProcessedLedger loads the ledger at path. Missing, corrupt and
// unparseable entries are treated as absent.
func NewProcessedLedger(path string, maxAge time.Duration, maxEntries int, logger logging.Logger) *ProcessedLedger {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	l := &ProcessedLedger{
		path:       path,
		maxAge:     maxAge,
		maxEntries: maxEntries,
		entries:    map[string]time.Time{},
		now:        time.Now,
		logger:     logger,
	}

	var raw map[string]string
	if err := readJSON(path, &raw); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("processed ledger unreadable, starting empty", "path", path, logging.Err(err))
		}
		return l
	}
	for id, stamp := range raw {
		at, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			continue
		}
		l.entries[id] = at
	}
	return l
}

// IsProcessed reports whether id is in the ledger.
func (l *ProcessedLedger) IsProcessed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[id]
	return ok
}

// MarkProcessed records id with the current time, prunes and persists.
func (l *ProcessedLedger) MarkProcessed(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[id] = l.now().UTC()
	l.pruneLocked()
	return l.saveLocked()
}

// Reset clears the ledger so every message becomes eligible again.
func (l *ProcessedLedger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = map[string]time.Time{}
	return l.saveLocked()
}

// Len returns the number of ids currently held.
func (l *ProcessedLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *ProcessedLedger) pruneLocked() {
	cutoff := l.now().Add(-l.maxAge)
	for id, at := range l.entries {
		if at.Before(cutoff) {
			delete(l.entries, id)
		}
	}

	if l.maxEntries <= 0 || len(l.entries) <= l.maxEntries {
		return
	}

	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := l.entries[ids[i]], l.entries[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.After(tj)
	})
	for _, id := range ids[l.maxEntries:] {
		delete(l.entries, id)
	}
}

func (l *ProcessedLedger) saveLocked() error {
	raw := make(map[string]string, len(l.entries))
	for id, at := range l.entries {
		raw[id] = at.Format(time.RFC3339Nano)
	}
	if err := writeJSON(l.path, raw); err != nil {
		l.logger.Error("failed to persist processed ledger", "path", l.path, logging.Err(err))
		return err
	}
	return nil
}
