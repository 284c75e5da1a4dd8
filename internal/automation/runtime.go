package automation

import (
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// StoreConfig locates and bounds the persisted automation stores.
type StoreConfig struct {
	RulesPath           string
	ProcessedPath       string
	LogPath             string
	EnabledDefault      bool
	LogRetentionDays    int
	ProcessedMaxAgeDays int
	ProcessedMaxEntries int
	LogMirrorSize       int
}

// Runtime bundles the stores and shared status that every automation
// entry point works against. Build one per process and pass it to the
// cycle, scheduler and service.
type Runtime struct {
	Rules  *RuleStore
	Ledger *ProcessedLedger
	Log    *ActivityLog
	Status *StatusHolder
}

// NewRuntime opens all stores described by cfg.
func NewRuntime(cfg StoreConfig, logger logging.Logger) *Runtime {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Runtime{
		Rules:  NewRuleStore(cfg.RulesPath, cfg.EnabledDefault, logger),
		Ledger: NewProcessedLedger(cfg.ProcessedPath, time.Duration(cfg.ProcessedMaxAgeDays)*24*time.Hour, cfg.ProcessedMaxEntries, logger),
		Log:    NewActivityLog(cfg.LogPath, cfg.LogRetentionDays, cfg.LogMirrorSize, logger),
		Status: &StatusHolder{},
	}
}

// StatusView combines run state, the log mirror and rule store state.
func (r *Runtime) StatusView() Status {
	st := r.Status.Snapshot()
	state := r.Rules.State()
	st.AutomationEnabled = state.AutomationEnabled
	st.RuleCount = len(state.Rules)
	st.Logs = r.Log.Recent()
	return st
}
