package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/mailcache"
)

type fakeAutomation struct {
	mu         sync.Mutex
	status     automation.Status
	rules      []automation.Rule
	logDays    int
	logLimit   int
	saveErr    error
	runs       int
	refreshErr error
}

func (f *fakeAutomation) Status() automation.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status
	st.RuleCount = len(f.rules)
	return st
}

func (f *fakeAutomation) Logs(days, limit int) automation.LogsPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logDays, f.logLimit = days, limit
	return automation.LogsPage{Logs: []automation.LogEntry{}, RetentionDays: 7, QueryDays: automation.ClampDays(days, 7)}
}

func (f *fakeAutomation) ListRules() []automation.Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]automation.Rule(nil), f.rules...)
}

func (f *fakeAutomation) AddRule(_ context.Context, label, reason string) (automation.Rule, error) {
	if label == "" || reason == "" {
		return automation.Rule{}, automation.ErrInvalidRule
	}
	if f.saveErr != nil {
		return automation.Rule{}, f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rule := automation.Rule{ID: "r1", Label: label, Reason: reason}
	f.rules = append(f.rules, rule)
	return rule, nil
}

func (f *fakeAutomation) DeleteRule(_ context.Context, id string) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAutomation) DeleteRules(ctx context.Context, ids []string) (map[string]bool, error) {
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		ok, err := f.DeleteRule(ctx, id)
		if err != nil {
			return removed, err
		}
		removed[id] = ok
	}
	return removed, nil
}

func (f *fakeAutomation) SetEnabled(_ context.Context, enabled bool) (automation.Status, error) {
	if f.saveErr != nil {
		return f.Status(), f.saveErr
	}
	f.mu.Lock()
	f.status.AutomationEnabled = enabled
	f.mu.Unlock()
	return f.Status(), nil
}

func (f *fakeAutomation) RunNow(context.Context) automation.Status {
	f.mu.Lock()
	f.runs++
	msg := "label service down"
	f.status.LastError = &msg
	f.mu.Unlock()
	return f.Status()
}

func (f *fakeAutomation) RefreshSnapshot(ctx context.Context, r automation.Refresher) (int, error) {
	if r == nil {
		return 0, automation.ErrNoRefresher
	}
	if f.refreshErr != nil {
		return 0, f.refreshErr
	}
	return r.Refresh(ctx)
}

type fakeSnapshot struct {
	messages []mailbox.Message
	err      error
}

func (f *fakeSnapshot) Recent(_ context.Context, _, limit int) ([]mailbox.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.messages) > limit {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeSnapshot) Get(_ context.Context, id string) (*mailbox.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			msg := m
			return &msg, nil
		}
	}
	return nil, mailcache.ErrNotFound
}

type fakeMail struct {
	messages []mailbox.Message
	err      error
	fetches  int
}

func (f *fakeMail) FetchCandidates(_ context.Context, _, limit int) ([]mailbox.Message, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.messages) > limit {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeMail) FetchDetail(_ context.Context, id string) (*mailbox.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.messages {
		if m.ID == id {
			msg := m
			return &msg, nil
		}
	}
	return nil, errors.New("no such message")
}

type fakeRefresher struct{ n int }

func (f *fakeRefresher) Refresh(context.Context) (int, error) { return f.n, nil }

type fakeSummarizer struct {
	got mailbox.Message
}

func (f *fakeSummarizer) Summarize(_ context.Context, msg mailbox.Message) (*mailbox.Summary, error) {
	f.got = msg
	return &mailbox.Summary{Text: "summary of " + msg.Subject, Proposals: []mailbox.EventProposal{}}, nil
}

type fakeCalendar struct {
	events  []calendar.EventSummary
	timeMin time.Time
	timeMax time.Time
	created []mailbox.EventProposal
	updates map[string]calendar.EventUpdate
	deleted []string
	listErr error
}

var errGoogleNotFound = &googleapi.Error{Code: http.StatusNotFound, Message: "Not Found"}

func (f *fakeCalendar) ListEvents(_ context.Context, _ string, timeMin, timeMax time.Time, _ string) ([]calendar.EventSummary, error) {
	f.timeMin, f.timeMax = timeMin, timeMax
	return f.events, f.listErr
}

func (f *fakeCalendar) CreateEventFromProposal(_ context.Context, p mailbox.EventProposal) (*calendar.EventSummary, error) {
	if p.Title == "" {
		return nil, calendar.ErrInvalidProposal
	}
	f.created = append(f.created, p)
	return &calendar.EventSummary{ID: "ev1", Summary: p.Title}, nil
}

func (f *fakeCalendar) find(id string) (*calendar.EventSummary, error) {
	for _, e := range f.events {
		if e.ID == id {
			event := e
			return &event, nil
		}
	}
	return nil, errGoogleNotFound
}

func (f *fakeCalendar) GetEvent(_ context.Context, _, eventID string) (*calendar.EventSummary, error) {
	return f.find(eventID)
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _, eventID string, update calendar.EventUpdate) (*calendar.EventSummary, error) {
	if update.IsEmpty() {
		return nil, calendar.ErrInvalidProposal
	}
	event, err := f.find(eventID)
	if err != nil {
		return nil, err
	}
	if f.updates == nil {
		f.updates = map[string]calendar.EventUpdate{}
	}
	f.updates[eventID] = update
	if update.Title != "" {
		event.Summary = update.Title
	}
	return event, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _, eventID string) error {
	if _, err := f.find(eventID); err != nil {
		return err
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeActions struct {
	known    map[string]bool
	sent     []mailbox.OutgoingMessage
	replies  []string
	drafts   []string
	read     map[string]bool
	archived []string
	deleted  []string
	err      error
}

func (f *fakeActions) check(id string) error {
	if f.err != nil {
		return f.err
	}
	if !f.known[id] {
		return errGoogleNotFound
	}
	return nil
}

func (f *fakeActions) SendEmail(_ context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &mailbox.SentMessage{ID: "s1", ThreadID: "t1"}, nil
}

func (f *fakeActions) ReplyToEmail(_ context.Context, id, body string) (*mailbox.SentMessage, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	f.replies = append(f.replies, id+":"+body)
	return &mailbox.SentMessage{ID: "s2", ThreadID: "t-" + id}, nil
}

func (f *fakeActions) DraftReply(_ context.Context, id, body, subject string) (*mailbox.SentMessage, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	f.drafts = append(f.drafts, id+":"+subject+":"+body)
	return &mailbox.SentMessage{ID: "d-msg", DraftID: "d1"}, nil
}

func (f *fakeActions) ComposeDraft(_ context.Context, msg mailbox.OutgoingMessage) (*mailbox.SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	f.drafts = append(f.drafts, msg.Subject)
	return &mailbox.SentMessage{DraftID: "d2"}, nil
}

func (f *fakeActions) DeleteMessage(_ context.Context, id string) error {
	if err := f.check(id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeActions) MarkRead(_ context.Context, id string, read bool) error {
	if err := f.check(id); err != nil {
		return err
	}
	if f.read == nil {
		f.read = map[string]bool{}
	}
	f.read[id] = read
	return nil
}

func (f *fakeActions) Archive(_ context.Context, id string) error {
	if err := f.check(id); err != nil {
		return err
	}
	f.archived = append(f.archived, id)
	return nil
}
