package automation

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/logging"
)

func newTestLedger(t *testing.T, maxEntries int) (*ProcessedLedger, *fakeClock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed.json")
	clock := newFakeClock()
	l := NewProcessedLedger(path, 30*24*time.Hour, maxEntries, logging.Discard())
	l.now = clock.Now
	return l, clock, path
}

func TestProcessedLedger_MarkAndReset(t *testing.T) {
	l, _, path := newTestLedger(t, 10)

	require.NoError(t, l.MarkProcessed("m1"))
	assert.True(t, l.IsProcessed("m1"))
	assert.False(t, l.IsProcessed("m2"))
	assert.True(t, NewProcessedLedger(path, 30*24*time.Hour, 10, logging.Discard()).IsProcessed("m1"))

	require.NoError(t, l.Reset())
	assert.False(t, l.IsProcessed("m1"))
	assert.Equal(t, 0, l.Len())
	assert.False(t, NewProcessedLedger(path, 30*24*time.Hour, 10, logging.Discard()).IsProcessed("m1"))
}

func TestProcessedLedger_Bounds(t *testing.T) {
	const maxEntries = 5
	l, clock, _ := newTestLedger(t, maxEntries)

	for i := 0; i < maxEntries+3; i++ {
		clock.Advance(time.Minute)
		require.NoError(t, l.MarkProcessed(fmt.Sprintf("m%d", i)))
	}

	assert.Equal(t, maxEntries, l.Len())
	for i := 0; i < 3; i++ {
		assert.False(t, l.IsProcessed(fmt.Sprintf("m%d", i)), "oldest entry m%d should be evicted", i)
	}
	for i := 3; i < maxEntries+3; i++ {
		assert.True(t, l.IsProcessed(fmt.Sprintf("m%d", i)), "recent entry m%d should be kept", i)
	}
}

func TestProcessedLedger_Aging(t *testing.T) {
	l, clock, _ := newTestLedger(t, 100)

	require.NoError(t, l.MarkProcessed("old"))
	clock.Advance(31 * 24 * time.Hour)
	assert.True(t, l.IsProcessed("old"), "aging happens on write, not on read")

	require.NoError(t, l.MarkProcessed("new"))
	assert.False(t, l.IsProcessed("old"))
	assert.True(t, l.IsProcessed("new"))
}

func TestProcessedLedger_LoadTolerance(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("[1,2"), 0o644))
	assert.Equal(t, 0, NewProcessedLedger(corrupt, time.Hour, 10, logging.Discard()).Len())

	mixed := filepath.Join(dir, "mixed.json")
	require.NoError(t, os.WriteFile(mixed, []byte(`{"good":"2026-03-01T10:00:00+00:00","bad":"yesterday"}`), 0o644))
	l := NewProcessedLedger(mixed, time.Hour, 10, logging.Discard())
	assert.True(t, l.IsProcessed("good"))
	assert.False(t, l.IsProcessed("bad"))
}
