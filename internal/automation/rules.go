package automation

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxpilot/internal/logging"
)

// Rule is a user-defined label together with the natural-language condition
// under which it applies.
type Rule struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Reason    string    `json:"reason"`
	LabelID   string    `json:"label_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleUpdate carries the fields to merge into an existing rule. Nil fields
// are left unchanged.
type RuleUpdate struct {
	Label   *string
	Reason  *string
	LabelID *string
}

// State is the persisted automation state: the global switch and the rules.
type State struct {
	AutomationEnabled bool   `json:"automation_enabled"`
	Rules             []Rule `json:"rules"`
}

// stateFile is the on-disk form; a missing automation_enabled falls back to
// the configured default.
type stateFile struct {
	AutomationEnabled *bool  `json:"automation_enabled"`
	Rules             []Rule `json:"rules"`
}

// RuleStore persists rules and the automation switch to a single JSON file.
// Every mutation rewrites the whole file under the store lock.
type RuleStore struct {
	mu             sync.Mutex
	path           string
	defaultEnabled bool
	state          State
	now            func() time.Time
	logger         logging.Logger
}

// NewRuleStore loads the store at path. A missing or unreadable file yields
// an empty rule set with automation set to defaultEnabled.
func NewRuleStore(path string, defaultEnabled bool, logger logging.Logger) *RuleStore {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	s := &RuleStore{
		path:           path,
		defaultEnabled: defaultEnabled,
		now:            time.Now,
		logger:         logger,
	}
	s.state = s.load()
	return s
}

func (s *RuleStore) load() State {
	state := State{AutomationEnabled: s.defaultEnabled, Rules: []Rule{}}

	var file stateFile
	if err := readJSON(s.path, &file); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("rule store unreadable, starting empty", "path", s.path, logging.Err(err))
		}
		return state
	}

	if file.AutomationEnabled != nil {
		state.AutomationEnabled = *file.AutomationEnabled
	}
	for _, r := range file.Rules {
		if r.ID == "" || strings.TrimSpace(r.Label) == "" || strings.TrimSpace(r.Reason) == "" {
			continue
		}
		state.Rules = append(state.Rules, r)
	}
	return state
}

// save persists next and makes it the current state. The caller holds s.mu.
func (s *RuleStore) save(next State) error {
	if err := writeJSON(s.path, next); err != nil {
		s.logger.Error("failed to persist rule store", "path", s.path, logging.Err(err))
		return err
	}
	s.state = next
	return nil
}

func (s *RuleStore) cloneState() State {
	rules := make([]Rule, len(s.state.Rules))
	copy(rules, s.state.Rules)
	return State{AutomationEnabled: s.state.AutomationEnabled, Rules: rules}
}

// AddRule appends a new rule with a generated id and persists it before
// returning.
func (s *RuleStore) AddRule(label, reason, labelID string) (Rule, error) {
	label = strings.TrimSpace(label)
	reason = strings.TrimSpace(reason)
	if label == "" || reason == "" {
		return Rule{}, ErrInvalidRule
	}

	rule := Rule{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		Label:     label,
		Reason:    reason,
		LabelID:   labelID,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneState()
	next.Rules = append(next.Rules, rule)
	if err := s.save(next); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// DeleteRule removes the rule with id and reports whether one was removed.
func (s *RuleStore) DeleteRule(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneState()
	kept := next.Rules[:0]
	for _, r := range next.Rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.state.Rules) {
		return false, nil
	}
	next.Rules = kept
	if err := s.save(next); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateRule merges the non-nil fields of update into the rule with id.
// It returns nil when no such rule exists.
func (s *RuleStore) UpdateRule(id string, update RuleUpdate) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneState()
	for i := range next.Rules {
		r := &next.Rules[i]
		if r.ID != id {
			continue
		}
		if update.Label != nil {
			r.Label = *update.Label
		}
		if update.Reason != nil {
			r.Reason = *update.Reason
		}
		if update.LabelID != nil {
			r.LabelID = *update.LabelID
		}
		updated := *r
		if err := s.save(next); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, nil
}

// GetRule returns the rule with id.
func (s *RuleStore) GetRule(id string) (Rule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.state.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// ListRules returns the rules in insertion order.
func (s *RuleStore) ListRules() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneState().Rules
}

// State returns a copy of the current state.
func (s *RuleStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneState()
}

// SetAutomationEnabled persists the global switch and returns the new state.
func (s *RuleStore) SetAutomationEnabled(enabled bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneState()
	next.AutomationEnabled = enabled
	if err := s.save(next); err != nil {
		return s.cloneState(), err
	}
	return s.cloneState(), nil
}

// AutomationEnabled reports the global switch.
func (s *RuleStore) AutomationEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AutomationEnabled
}
