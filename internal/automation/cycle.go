package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

// Triggers recorded with each cycle.
const (
	TriggerScheduler   = "scheduler"
	TriggerManual      = "manual"
	TriggerRuleAdded   = "rule_added"
	TriggerRuleDeleted = "rule_deleted"
	TriggerEnabled     = "enabled"
)

const (
	displayNameLen     = 80
	candidateOverFetch = 3
	credentialsName    = "Google credentials"
)

// Settings controls the size and pacing of a cycle.
type Settings struct {
	LookbackDays int
	// BatchTarget is the number of messages to label before the cycle stops.
	BatchTarget int
	// Delay is the pause after each evaluated candidate.
	Delay time.Duration
}

// CycleDeps are the collaborators a cycle talks to. Snapshot, Credentials
// and Metrics may be nil.
type CycleDeps struct {
	Source      MailSource
	Snapshot    Snapshot
	Labels      LabelService
	Evaluator   Evaluator
	Credentials Credentials
	Metrics     *instrumentation.Metrics
	Logger      logging.Logger
}

// Cycle runs one auto-label pass at a time. Concurrent Run calls are
// serialized.
type Cycle struct {
	mu       sync.Mutex
	rt       *Runtime
	deps     CycleDeps
	settings Settings
	logger   logging.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

// NewCycle builds a cycle over rt.
func NewCycle(rt *Runtime, deps CycleDeps, settings Settings) *Cycle {
	logger := deps.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Cycle{
		rt:       rt,
		deps:     deps,
		settings: settings,
		logger:   logger,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// CredentialsAvailable reports whether the mailbox is reachable. A cycle
// without a credentials check assumes it is.
func (c *Cycle) CredentialsAvailable() bool {
	return c.deps.Credentials == nil || c.deps.Credentials.CredentialsAvailable()
}

// Run executes one pass and returns the number of messages labeled.
// Failures end up in the shared status and the activity log, never in the
// caller. ctx is checked between candidates; a candidate that has started
// is always finished.
func (c *Cycle) Run(ctx context.Context, trigger string) (labeled int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	ctx, span := instrumentation.StartCycleSpan(ctx, trigger, 0)
	result := instrumentation.StatusSuccess

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("auto-label cycle panicked: %v", r)
			c.fail(labeled, err)
			instrumentation.SetSpanError(span, err)
			result = instrumentation.StatusError
		}
		span.SetAttributes(attribute.Int(instrumentation.SpanAttrLabeled, labeled))
		span.End()
		c.deps.Metrics.RecordCycle(ctx, trigger, result, c.now().Sub(start))
	}()

	if !c.rt.Rules.AutomationEnabled() {
		c.rt.Log.Info("Auto-label run (%s) skipped: automation is disabled", trigger)
		result = instrumentation.StatusSkipped
		return 0
	}

	if !c.CredentialsAvailable() {
		missing := &ConfigurationError{Missing: credentialsName}
		c.rt.Log.Warn("Auto-label run (%s) skipped: %v", trigger, missing)
		result = instrumentation.StatusSkipped
		return 0
	}

	rules := c.rt.Rules.ListRules()
	if len(rules) == 0 {
		result = instrumentation.StatusSkipped
		return 0
	}
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrRuleCount, len(rules)))

	labeled, err := c.process(ctx, rules)
	if err != nil {
		c.fail(labeled, err)
		instrumentation.SetSpanError(span, err)
		result = instrumentation.StatusError
		return labeled
	}

	c.rt.Status.RecordRun(c.now().UTC(), labeled)
	if ctx.Err() != nil {
		c.rt.Log.Info("Auto-label run (%s) interrupted after labeling %d email(s)", trigger, labeled)
	} else {
		c.rt.Log.Info("Auto-label run (%s) finished: labeled %d email(s)", trigger, labeled)
	}
	instrumentation.SetSpanSuccess(span)
	return labeled
}

func (c *Cycle) fail(labeled int, err error) {
	c.rt.Status.RecordFailure(c.now().UTC(), labeled, err)
	c.rt.Log.Error("Auto-label run failed: %v", err)
	c.logger.Error("auto-label cycle failed", logging.Err(err))
}

func (c *Cycle) process(ctx context.Context, rules []Rule) (int, error) {
	target := c.settings.BatchTarget
	if target < 1 {
		target = 1
	}

	// Collaborator calls run detached so shutdown never cuts a candidate short.
	work := context.WithoutCancel(ctx)

	candidates, err := c.candidates(work, target*candidateOverFetch)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		c.rt.Log.Warn("No emails available for auto-labeling in the last %d day(s)", c.settings.LookbackDays)
		return 0, nil
	}

	byID := make(map[string]*Rule, len(rules))
	for i := range rules {
		byID[rules[i].ID] = &rules[i]
	}

	labeled := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		if candidate.ID == "" || c.rt.Ledger.IsProcessed(candidate.ID) {
			continue
		}

		msg := c.enrich(work, candidate)
		if strings.TrimSpace(msg.Body) == "" && strings.TrimSpace(msg.Subject) == "" {
			continue
		}

		name := msg.DisplayName(displayNameLen)
		c.rt.Log.Info("Checking %q against %d rule(s)", name, len(rules))

		matches, err := c.deps.Evaluator.EvaluateRules(work, msg, rules)
		if err != nil {
			evalErr := &EvaluationError{MessageID: msg.ID, Err: err}
			c.rt.Log.Error("Rule evaluation failed for %q: %v", name, evalErr.Err)
			c.logger.Warn("rule evaluation failed", logging.MessageID(msg.ID), logging.Err(evalErr))
			c.deps.Metrics.RecordEvaluation(work, instrumentation.EvaluationFailed)
			c.pause()
			continue
		}
		if len(matches) == 0 {
			c.deps.Metrics.RecordEvaluation(work, instrumentation.EvaluationNoMatch)
			c.pause()
			continue
		}
		c.deps.Metrics.RecordEvaluation(work, instrumentation.EvaluationMatched)

		applied := c.applyMatches(work, msg, byID, matches)
		if applied > 0 {
			if err := c.rt.Ledger.MarkProcessed(msg.ID); err != nil {
				c.rt.Log.Warn("Could not record %q as processed: %v", name, err)
			}
			labeled++
			c.rt.Log.Info("Labeled %q with %d matching rule(s)", name, applied)
			if labeled >= target {
				break
			}
		}
		c.pause()
	}

	return labeled, nil
}

// candidates prefers the local snapshot and falls back to the live source.
func (c *Cycle) candidates(ctx context.Context, limit int) ([]mailbox.Message, error) {
	if c.deps.Snapshot != nil {
		msgs, err := c.deps.Snapshot.Recent(ctx, c.settings.LookbackDays, limit)
		if err != nil {
			c.logger.Warn("mail snapshot unavailable, fetching live", logging.Err(err))
		} else if len(msgs) > 0 {
			return msgs, nil
		}
	}

	if c.deps.Source == nil {
		return nil, nil
	}
	msgs, err := c.deps.Source.FetchCandidates(ctx, c.settings.LookbackDays, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate emails: %w", err)
	}
	return msgs, nil
}

// enrich loads the full message when the candidate carries no content.
func (c *Cycle) enrich(ctx context.Context, msg mailbox.Message) mailbox.Message {
	if msg.HasContent() || c.deps.Source == nil {
		return msg
	}
	detail, err := c.deps.Source.FetchDetail(ctx, msg.ID)
	if err != nil || detail == nil {
		c.logger.Debug("could not load message detail, using summary", logging.MessageID(msg.ID), logging.Err(err))
		return msg
	}
	return *detail
}

// applyMatches labels msg for each matched rule and returns how many labels
// were applied. A failure on one match does not stop the others.
func (c *Cycle) applyMatches(ctx context.Context, msg mailbox.Message, rules map[string]*Rule, matches []Match) int {
	applied := 0
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		rule, ok := rules[m.RuleID]
		if !ok || seen[m.RuleID] {
			continue
		}
		seen[m.RuleID] = true

		labelID, err := c.deps.Labels.EnsureLabel(ctx, rule.Label)
		if err == nil && labelID == "" {
			err = errors.New("label service returned an empty label id")
		}
		if err != nil {
			lerr := &LabelServiceError{Label: rule.Label, Op: "ensure", Err: err}
			c.rt.Log.Warn("Could not prepare label %q: %v", rule.Label, lerr.Err)
			c.logger.Warn("label ensure failed", logging.Label(rule.Label), logging.Err(lerr))
			continue
		}

		if labelID != rule.LabelID {
			if _, err := c.rt.Rules.UpdateRule(rule.ID, RuleUpdate{LabelID: &labelID}); err != nil {
				c.logger.Warn("failed to store resolved label id", logging.Rule(rule.ID), logging.Err(err))
			}
			rule.LabelID = labelID
		}

		if err := c.deps.Labels.ApplyLabels(ctx, msg.ID, []string{labelID}); err != nil {
			lerr := &LabelServiceError{Label: rule.Label, Op: "apply", Err: err}
			c.rt.Log.Warn("Could not apply label %q: %v", rule.Label, lerr.Err)
			c.logger.Warn("label apply failed", logging.Label(rule.Label), logging.MessageID(msg.ID), logging.Err(lerr))
			continue
		}

		applied++
		c.deps.Metrics.RecordLabeled(ctx, rule.ID)
	}
	return applied
}

func (c *Cycle) pause() {
	if c.settings.Delay > 0 {
		c.sleep(c.settings.Delay)
	}
}
