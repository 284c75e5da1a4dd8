package automation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/logging"
)

func newTestActivityLog(t *testing.T, mirror int) (*ActivityLog, *fakeClock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.json")
	clock := newFakeClock()
	a := NewActivityLog(path, 7, mirror, logging.Discard())
	a.now = clock.Now
	return a, clock, path
}

func TestActivityLog_RetentionOnAppend(t *testing.T) {
	a, clock, path := newTestActivityLog(t, 50)

	old := []LogEntry{
		{ID: "ancient", Timestamp: clock.Now().Add(-8 * 24 * time.Hour), Level: LevelInfo, Message: "too old"},
		{ID: "recent", Timestamp: clock.Now().Add(-6 * 24 * time.Hour), Level: LevelInfo, Message: "still here"},
	}
	data, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	a.Info("new entry")

	var persisted []LogEntry
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &persisted))

	ids := make([]string, 0, len(persisted))
	for _, e := range persisted {
		ids = append(ids, e.ID)
	}
	assert.NotContains(t, ids, "ancient")
	assert.Contains(t, ids, "recent")
	assert.Len(t, persisted, 2)

	entries, total := a.List(7+10, 500)
	assert.Equal(t, 2, total)
	for _, e := range entries {
		assert.False(t, e.Timestamp.Before(clock.Now().Add(-7*24*time.Hour)))
	}
}

func TestActivityLog_ListOrderingAndLimits(t *testing.T) {
	a, clock, _ := newTestActivityLog(t, 50)

	for i := 0; i < 5; i++ {
		a.Info("entry %d", i)
		clock.Advance(time.Hour)
	}

	entries, total := a.List(7, 3)
	assert.Equal(t, 5, total)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 4", entries[0].Message)
	assert.Equal(t, "entry 3", entries[1].Message)
	assert.Equal(t, "entry 2", entries[2].Message)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Timestamp.After(entries[i].Timestamp))
	}

	entries, _ = a.List(7, 0)
	assert.Len(t, entries, 1)
}

func TestActivityLog_ListWindow(t *testing.T) {
	a, clock, _ := newTestActivityLog(t, 50)

	a.Warn("three days ago")
	clock.Advance(3 * 24 * time.Hour)
	a.Error("today")

	entries, total := a.List(1, 10)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, LevelError, entries[0].Level)

	entries, _ = a.List(0, 10)
	assert.Len(t, entries, 1, "days below 1 clamps to 1")

	entries, _ = a.List(30, 10)
	assert.Len(t, entries, 2)
}

func TestActivityLog_MirrorBounded(t *testing.T) {
	a, _, path := newTestActivityLog(t, 3)

	for i := 0; i < 5; i++ {
		a.Info("entry %d", i)
	}

	recent := a.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "entry 2", recent[0].Message)
	assert.Equal(t, "entry 4", recent[2].Message)

	reopened := NewActivityLog(path, 7, 2, logging.Discard())
	assert.Equal(t, []string{"info: entry 3", "info: entry 4"}, logMessages(reopened.Recent()))
}

func TestActivityLog_StorageFailuresAreSwallowed(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "logs.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0o644))

	a := NewActivityLog(corrupt, 7, 10, logging.Discard())
	assert.Empty(t, a.Recent())
	entries, total := a.List(7, 10)
	assert.Empty(t, entries)
	assert.Zero(t, total)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	broken := NewActivityLog(filepath.Join(blocker, "logs.json"), 7, 10, logging.Discard())

	entry := broken.Error("disk is gone")
	assert.Equal(t, "disk is gone", entry.Message)
	assert.Len(t, broken.Recent(), 1)
}

func TestActivityLog_NonASCII(t *testing.T) {
	a, _, path := newTestActivityLog(t, 10)

	a.Info("Labeled %q", "Rechnung für März ✓")

	reopened := NewActivityLog(path, 7, 10, logging.Discard())
	require.Len(t, reopened.Recent(), 1)
	assert.Contains(t, reopened.Recent()[0].Message, "März ✓")
}

func TestClamp(t *testing.T) {
	tests := []struct {
		days, retention, wantDays int
		limit, wantLimit          int
	}{
		{days: 0, retention: 7, wantDays: 1, limit: 0, wantLimit: 1},
		{days: 3, retention: 7, wantDays: 3, limit: 20, wantLimit: 20},
		{days: 30, retention: 7, wantDays: 7, limit: 1000, wantLimit: MaxLogLimit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.days, tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.wantDays, ClampDays(tt.days, tt.retention))
			assert.Equal(t, tt.wantLimit, ClampLimit(tt.limit))
		})
	}
}
