package automation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// LogsPage is the response of a log query.
type LogsPage struct {
	Logs          []LogEntry `json:"logs"`
	Total         int        `json:"total"`
	RetentionDays int        `json:"retention_days"`
	QueryDays     int        `json:"query_days"`
}

// Service is the query and command surface used by the REST API, the MCP
// tools and the CLI. Rule mutations and the enable toggle reset the ledger
// and run a cycle before returning.
type Service struct {
	rt     *Runtime
	cycle  *Cycle
	logger logging.Logger
}

// NewService builds a service over rt and cycle.
func NewService(rt *Runtime, cycle *Cycle, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Service{rt: rt, cycle: cycle, logger: logger}
}

// Status returns the current automation status.
func (s *Service) Status() Status {
	return s.rt.StatusView()
}

// Logs returns persisted log entries for the last days days.
func (s *Service) Logs(days, limit int) LogsPage {
	retention := s.rt.Log.RetentionDays()
	queryDays := ClampDays(days, retention)
	entries, total := s.rt.Log.List(queryDays, limit)
	if entries == nil {
		entries = []LogEntry{}
	}
	return LogsPage{
		Logs:          entries,
		Total:         total,
		RetentionDays: retention,
		QueryDays:     queryDays,
	}
}

// ListRules returns all rules.
func (s *Service) ListRules() []Rule {
	return s.rt.Rules.ListRules()
}

// AddRule validates and stores a rule, then re-evaluates recent mail.
func (s *Service) AddRule(ctx context.Context, label, reason string) (Rule, error) {
	label = strings.TrimSpace(label)
	reason = strings.TrimSpace(reason)
	if label == "" || reason == "" {
		return Rule{}, ErrInvalidRule
	}

	rule, err := s.rt.Rules.AddRule(label, reason, "")
	if err != nil {
		return Rule{}, err
	}

	s.resetLedger("Rule %q added; cleared processed emails so recent mail is checked again", rule.Label)
	s.trigger(ctx, TriggerRuleAdded)
	return rule, nil
}

// DeleteRule removes a rule. It reports false without side effects when no
// rule has that id.
func (s *Service) DeleteRule(ctx context.Context, id string) (bool, error) {
	removed, err := s.DeleteRules(ctx, []string{id})
	return removed[id], err
}

// DeleteRules removes the rules in ids. The result maps every processed id
// to whether a rule existed; a storage error stops the batch and leaves the
// remaining ids out of the map. When at least one rule was removed the
// ledger is reset and a single cycle runs.
func (s *Service) DeleteRules(ctx context.Context, ids []string) (map[string]bool, error) {
	removed := make(map[string]bool, len(ids))
	var labels []string
	var err error
	for _, id := range ids {
		rule, found := s.rt.Rules.GetRule(id)
		ok, delErr := s.rt.Rules.DeleteRule(id)
		if delErr != nil {
			err = delErr
			break
		}
		removed[id] = ok
		if !ok {
			continue
		}
		label := id
		if found {
			label = rule.Label
		}
		labels = append(labels, strconv.Quote(label))
	}

	switch len(labels) {
	case 0:
		return removed, err
	case 1:
		s.resetLedger("Rule %s deleted; cleared processed emails so recent mail is checked again", labels[0])
	default:
		s.resetLedger("Rules %s deleted; cleared processed emails so recent mail is checked again", strings.Join(labels, ", "))
	}
	s.trigger(ctx, TriggerRuleDeleted)
	return removed, err
}

// SetEnabled persists the automation switch. Turning automation on from off
// resets the ledger and runs a cycle.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) (Status, error) {
	wasEnabled := s.rt.Rules.AutomationEnabled()
	if _, err := s.rt.Rules.SetAutomationEnabled(enabled); err != nil {
		return s.Status(), err
	}

	switch {
	case enabled && !wasEnabled:
		s.resetLedger("Automation enabled; cleared processed emails so recent mail is checked again")
		s.trigger(ctx, TriggerEnabled)
	case !enabled && wasEnabled:
		s.rt.Log.Info("Automation disabled")
	}
	return s.Status(), nil
}

// RunNow runs a cycle synchronously and returns the resulting status. A run
// that cannot start or fails is reported through the status, not an error.
func (s *Service) RunNow(ctx context.Context) Status {
	s.trigger(ctx, TriggerManual)
	return s.Status()
}

// ErrNoRefresher is returned by RefreshSnapshot when no snapshot is configured.
var ErrNoRefresher = errors.New("mail snapshot is not configured")

// RefreshSnapshot reloads the mail snapshot through r and stamps the
// refresh time on success.
func (s *Service) RefreshSnapshot(ctx context.Context, r Refresher) (int, error) {
	if r == nil {
		return 0, ErrNoRefresher
	}
	if !s.cycle.CredentialsAvailable() {
		return 0, &ConfigurationError{Missing: credentialsName}
	}
	n, err := r.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	s.rt.Status.RecordRefresh(time.Now().UTC())
	return n, nil
}

func (s *Service) trigger(ctx context.Context, trigger string) {
	if !s.cycle.CredentialsAvailable() {
		missing := &ConfigurationError{Missing: credentialsName}
		s.rt.Log.Warn("Auto-label run (%s) skipped: %v", trigger, missing)
		return
	}
	s.cycle.Run(ctx, trigger)
}

func (s *Service) resetLedger(format string, args ...any) {
	if err := s.rt.Ledger.Reset(); err != nil {
		s.rt.Log.Warn("Could not clear processed emails: %v", err)
		return
	}
	s.rt.Log.Info(format, args...)
}
