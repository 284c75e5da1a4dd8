package automation

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxpilot/internal/logging"
)

// MaxLogLimit caps the number of entries a single List call returns.
const MaxLogLimit = 500

// Level is the severity of an activity log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry is one user-visible automation event.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// ActivityLog is the persisted, time-retained feed of automation events.
// The latest entries are mirrored in memory for status responses. Storage
// failures are reported to the diagnostic logger and never to callers.
type ActivityLog struct {
	mu         sync.Mutex
	path       string
	retention  time.Duration
	mirrorSize int
	mirror     []LogEntry
	now        func() time.Time
	logger     logging.Logger
}

// NewActivityLog opens the log at path and seeds the mirror from it.
func NewActivityLog(path string, retentionDays, mirrorSize int, logger logging.Logger) *ActivityLog {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if retentionDays < 1 {
		retentionDays = 1
	}
	a := &ActivityLog{
		path:       path,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		mirrorSize: mirrorSize,
		now:        time.Now,
		logger:     logger,
	}

	entries := a.pruned(a.load())
	a.mirror = a.tail(entries)
	return a
}

// RetentionDays is the persisted retention window in days.
func (a *ActivityLog) RetentionDays() int {
	return int(a.retention / (24 * time.Hour))
}

// Info appends an info entry.
func (a *ActivityLog) Info(format string, args ...any) LogEntry {
	return a.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (a *ActivityLog) Warn(format string, args ...any) LogEntry {
	return a.Append(LevelWarning, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (a *ActivityLog) Error(format string, args ...any) LogEntry {
	return a.Append(LevelError, fmt.Sprintf(format, args...))
}

// Append records a new entry, prunes persisted entries outside the retention
// window and rewrites the file.
func (a *ActivityLog) Append(level Level, message string) LogEntry {
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: a.now().UTC(),
		Level:     level,
		Message:   message,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entries := a.pruned(append(a.load(), entry))
	if err := writeJSON(a.path, entries); err != nil {
		a.logger.Warn("failed to persist activity log", "path", a.path, logging.Err(err))
	}

	a.mirror = append(a.mirror, entry)
	if over := len(a.mirror) - a.mirrorSize; over > 0 {
		a.mirror = append([]LogEntry(nil), a.mirror[over:]...)
	}
	return entry
}

// List returns persisted entries from the last days days, newest first.
// days is clamped to [1, retention] and limit to [1, MaxLogLimit]. The second
// return value is the number of entries in the window before the limit.
func (a *ActivityLog) List(days, limit int) ([]LogEntry, int) {
	days = ClampDays(days, a.RetentionDays())
	limit = ClampLimit(limit)

	a.mu.Lock()
	entries := a.load()
	a.mu.Unlock()

	cutoff := a.now().Add(-time.Duration(days) * 24 * time.Hour)
	window := entries[:0]
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			window = append(window, e)
		}
	}
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp.After(window[j].Timestamp)
	})

	total := len(window)
	if len(window) > limit {
		window = window[:limit]
	}
	return window, total
}

// Recent returns a copy of the in-memory mirror, oldest first.
func (a *ActivityLog) Recent() []LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]LogEntry(nil), a.mirror...)
}

// ClampDays bounds a look-back window to [1, retentionDays].
func ClampDays(days, retentionDays int) int {
	if days < 1 {
		days = 1
	}
	if days > retentionDays {
		days = retentionDays
	}
	return days
}

// ClampLimit bounds a page size to [1, MaxLogLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLogLimit {
		return MaxLogLimit
	}
	return limit
}

func (a *ActivityLog) load() []LogEntry {
	var entries []LogEntry
	if err := readJSON(a.path, &entries); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("activity log unreadable, treating as empty", "path", a.path, logging.Err(err))
		}
		return nil
	}

	valid := entries[:0]
	for _, e := range entries {
		if e.Timestamp.IsZero() || strings.TrimSpace(e.Message) == "" {
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

func (a *ActivityLog) pruned(entries []LogEntry) []LogEntry {
	cutoff := a.now().Add(-a.retention)
	kept := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}

func (a *ActivityLog) tail(entries []LogEntry) []LogEntry {
	sorted := append([]LogEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	if len(sorted) > a.mirrorSize {
		sorted = sorted[len(sorted)-a.mirrorSize:]
	}
	return sorted
}
