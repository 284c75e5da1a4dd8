package automation

import (
	"sync"
	"time"
)

// Status is the observable state of the automation pipeline.
type Status struct {
	AutomationEnabled bool       `json:"automation_enabled"`
	RuleCount         int        `json:"rule_count"`
	LastRunAt         *time.Time `json:"last_run_at"`
	LastError         *string    `json:"last_error"`
	LastLabeled       int        `json:"last_labeled"`
	LastRefreshAt     *time.Time `json:"last_refresh_at"`
	Logs              []LogEntry `json:"logs"`
}

// StatusHolder keeps the in-memory run state shared by the scheduler and
// manual triggers. Nothing here is persisted.
type StatusHolder struct {
	mu            sync.RWMutex
	lastRunAt     time.Time
	lastError     string
	lastLabeled   int
	lastRefreshAt time.Time
}

// RecordRun stores a completed cycle and clears the last error.
func (h *StatusHolder) RecordRun(at time.Time, labeled int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRunAt = at
	h.lastLabeled = labeled
	h.lastError = ""
}

// RecordFailure stores a cycle that ended with err.
func (h *StatusHolder) RecordFailure(at time.Time, labeled int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRunAt = at
	h.lastLabeled = labeled
	h.lastError = err.Error()
}

// RecordRefresh stores the time of the last successful snapshot refresh.
func (h *StatusHolder) RecordRefresh(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRefreshAt = at
}

// Snapshot returns the run fields of the status.
func (h *StatusHolder) Snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var st Status
	if !h.lastRunAt.IsZero() {
		at := h.lastRunAt
		st.LastRunAt = &at
	}
	if h.lastError != "" {
		msg := h.lastError
		st.LastError = &msg
	}
	if !h.lastRefreshAt.IsZero() {
		at := h.lastRefreshAt
		st.LastRefreshAt = &at
	}
	st.LastLabeled = h.lastLabeled
	return st
}
