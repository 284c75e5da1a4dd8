package automation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSource struct {
	mu         sync.Mutex
	candidates []mailbox.Message
	details    map[string]mailbox.Message
	err        error
	fetches    int
	detailed   []string
}

func (f *fakeSource) FetchCandidates(_ context.Context, _, limit int) ([]mailbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	out := f.candidates
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) FetchDetail(_ context.Context, id string) (*mailbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailed = append(f.detailed, id)
	msg, ok := f.details[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &msg, nil
}

type fakeSnapshot struct {
	msgs []mailbox.Message
	err  error
}

func (f *fakeSnapshot) Recent(_ context.Context, _, _ int) ([]mailbox.Message, error) {
	return f.msgs, f.err
}

type applyCall struct {
	MessageID string
	LabelIDs  []string
}

type fakeLabels struct {
	mu        sync.Mutex
	ids       map[string]string
	ensureErr map[string]error
	applyErr  error
	ensured   []string
	applied   []applyCall
}

func newFakeLabels() *fakeLabels {
	return &fakeLabels{ids: map[string]string{}, ensureErr: map[string]error{}}
}

func (f *fakeLabels) EnsureLabel(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, name)
	if err := f.ensureErr[name]; err != nil {
		return "", err
	}
	if id, ok := f.ids[name]; ok {
		return id, nil
	}
	return "Label_" + name, nil
}

func (f *fakeLabels) ApplyLabels(_ context.Context, messageID string, labelIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, applyCall{MessageID: messageID, LabelIDs: labelIDs})
	return nil
}

func (f *fakeLabels) appliedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.applied))
	for _, c := range f.applied {
		ids = append(ids, c.MessageID)
	}
	return ids
}

type fakeEvaluator struct {
	mu    sync.Mutex
	fn    func(msg mailbox.Message, rules []Rule) ([]Match, error)
	calls []string
}

func (f *fakeEvaluator) EvaluateRules(_ context.Context, msg mailbox.Message, rules []Rule) ([]Match, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msg.ID)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(msg, rules)
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// matchAll returns a match for every rule.
func matchAll(_ mailbox.Message, rules []Rule) ([]Match, error) {
	out := make([]Match, 0, len(rules))
	for _, r := range rules {
		out = append(out, Match{RuleID: r.ID, Confidence: 0.9})
	}
	return out, nil
}

type fakeCredentials bool

func (f fakeCredentials) CredentialsAvailable() bool { return bool(f) }

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 3, f.err
}

func testStoreConfig(dir string) StoreConfig {
	return StoreConfig{
		RulesPath:           filepath.Join(dir, "data", "rules.json"),
		ProcessedPath:       filepath.Join(dir, "tmp", "processed.json"),
		LogPath:             filepath.Join(dir, "data", "logs.json"),
		EnabledDefault:      true,
		LogRetentionDays:    7,
		ProcessedMaxAgeDays: 30,
		ProcessedMaxEntries: 2000,
		LogMirrorSize:       50,
	}
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return NewRuntime(testStoreConfig(t.TempDir()), logging.Discard())
}

type cycleFixture struct {
	rt        *Runtime
	source    *fakeSource
	labels    *fakeLabels
	evaluator *fakeEvaluator
	cycle     *Cycle
	sleeps    int
}

func newCycleFixture(t *testing.T, batchTarget int) *cycleFixture {
	t.Helper()

	f := &cycleFixture{
		rt:        newTestRuntime(t),
		source:    &fakeSource{details: map[string]mailbox.Message{}},
		labels:    newFakeLabels(),
		evaluator: &fakeEvaluator{},
	}
	f.cycle = NewCycle(f.rt, CycleDeps{
		Source:    f.source,
		Labels:    f.labels,
		Evaluator: f.evaluator,
		Logger:    logging.Discard(),
	}, Settings{LookbackDays: 7, BatchTarget: batchTarget, Delay: time.Second})
	f.cycle.sleep = func(time.Duration) { f.sleeps++ }
	return f
}

func msg(id, subject, body string) mailbox.Message {
	return mailbox.Message{ID: id, Subject: subject, Body: body, From: "billing@example.com"}
}

func logMessages(entries []LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.Level)+": "+e.Message)
	}
	return out
}
