package automation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

func newServiceFixture(t *testing.T) (*Service, *cycleFixture) {
	t.Helper()
	f := newCycleFixture(t, 20)
	return NewService(f.rt, f.cycle, logging.Discard()), f
}

func TestService_AddRuleResetsLedgerAndRuns(t *testing.T) {
	svc, f := newServiceFixture(t)
	f.source.candidates = []mailbox.Message{msg("m1", "Invoice", "pay")}
	f.evaluator.fn = matchAll
	require.NoError(t, f.rt.Ledger.MarkProcessed("m1"))

	rule, err := svc.AddRule(context.Background(), "  Finance ", " invoices ")
	require.NoError(t, err)
	assert.Equal(t, "Finance", rule.Label)
	assert.Equal(t, "invoices", rule.Reason)

	assert.Equal(t, 1, f.evaluator.callCount(), "previously processed mail is evaluated again")
	assert.True(t, f.rt.Ledger.IsProcessed("m1"))
	assert.Equal(t, 1, svc.Status().LastLabeled)
	assert.Equal(t, 1, svc.Status().RuleCount)
}

func TestService_AddRuleValidation(t *testing.T) {
	svc, f := newServiceFixture(t)

	_, err := svc.AddRule(context.Background(), "", "reason")
	assert.ErrorIs(t, err, ErrInvalidRule)
	_, err = svc.AddRule(context.Background(), "label", " ")
	assert.ErrorIs(t, err, ErrInvalidRule)

	assert.Empty(t, svc.ListRules())
	assert.Zero(t, f.evaluator.callCount())
}

func TestService_DeleteRule(t *testing.T) {
	svc, f := newServiceFixture(t)
	rule := addRule(t, f.rt, "Finance", "invoice")
	require.NoError(t, f.rt.Ledger.MarkProcessed("m1"))

	removed, err := svc.DeleteRule(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.True(t, f.rt.Ledger.IsProcessed("m1"), "unknown id has no side effects")

	removed, err = svc.DeleteRule(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, f.rt.Ledger.IsProcessed("m1"))
	assert.Empty(t, svc.ListRules())
}

func TestService_DeleteRulesRunsOnce(t *testing.T) {
	svc, f := newServiceFixture(t)
	finance := addRule(t, f.rt, "Finance", "invoice")
	travel := addRule(t, f.rt, "Travel", "flights")
	addRule(t, f.rt, "News", "newsletters")
	f.source.candidates = []mailbox.Message{msg("m1", "Invoice", "pay")}
	require.NoError(t, f.rt.Ledger.MarkProcessed("m1"))

	removed, err := svc.DeleteRules(context.Background(), []string{finance.ID, "unknown", travel.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{finance.ID: true, "unknown": false, travel.ID: true}, removed)
	assert.Len(t, svc.ListRules(), 1)

	assert.Equal(t, 1, f.source.fetches, "one cycle for the whole batch")
	var resets []string
	for _, entry := range svc.Logs(7, 1000).Logs {
		if strings.Contains(entry.Message, "cleared processed emails") {
			resets = append(resets, entry.Message)
		}
	}
	require.Len(t, resets, 1)
	assert.Contains(t, resets[0], `"Finance", "Travel"`)
}

func TestService_DeleteRulesNoneFound(t *testing.T) {
	svc, f := newServiceFixture(t)
	addRule(t, f.rt, "Finance", "invoice")
	require.NoError(t, f.rt.Ledger.MarkProcessed("m1"))

	removed, err := svc.DeleteRules(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": false, "b": false}, removed)
	assert.True(t, f.rt.Ledger.IsProcessed("m1"))
	assert.Zero(t, f.source.fetches)
}

func TestService_SetEnabled(t *testing.T) {
	svc, f := newServiceFixture(t)
	addRule(t, f.rt, "Finance", "invoice")
	f.source.candidates = []mailbox.Message{msg("m1", "Invoice", "pay")}

	st, err := svc.SetEnabled(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, st.AutomationEnabled)

	require.NoError(t, f.rt.Ledger.MarkProcessed("m1"))
	st, err = svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, st.AutomationEnabled)
	assert.False(t, f.rt.Ledger.IsProcessed("m1"), "off to on resets the ledger")
	assert.Equal(t, 1, f.evaluator.callCount())

	require.NoError(t, f.rt.Ledger.MarkProcessed("m1"))
	_, err = svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, f.rt.Ledger.IsProcessed("m1"), "on to on keeps the ledger")
	assert.Equal(t, 1, f.evaluator.callCount())
}

func TestService_RunNow(t *testing.T) {
	svc, f := newServiceFixture(t)
	addRule(t, f.rt, "Finance", "invoice")
	f.source.candidates = []mailbox.Message{msg("m1", "Invoice", "pay")}
	f.evaluator.fn = matchAll

	st := svc.RunNow(context.Background())
	assert.Equal(t, 1, st.LastLabeled)
	assert.NotNil(t, st.LastRunAt)
	assert.NotEmpty(t, st.Logs)
}

func TestService_RunNowWithoutCredentials(t *testing.T) {
	svc, f := newServiceFixture(t)
	f.cycle.deps.Credentials = fakeCredentials(false)
	addRule(t, f.rt, "Finance", "invoice")

	st := svc.RunNow(context.Background())

	assert.Nil(t, st.LastRunAt)
	assert.Zero(t, f.source.fetches)
	require.Len(t, st.Logs, 1)
	assert.Equal(t, LevelWarning, st.Logs[0].Level)
}

func TestService_Logs(t *testing.T) {
	svc, f := newServiceFixture(t)
	for i := 0; i < 3; i++ {
		f.rt.Log.Info("entry %d", i)
	}

	page := svc.Logs(30, 2)
	assert.Equal(t, 7, page.RetentionDays)
	assert.Equal(t, 7, page.QueryDays)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Logs, 2)

	empty, _ := newServiceFixture(t)
	page = empty.Logs(0, 10)
	assert.Equal(t, 1, page.QueryDays)
	assert.NotNil(t, page.Logs)
	assert.Empty(t, page.Logs)
}

func TestService_RefreshSnapshot(t *testing.T) {
	svc, f := newServiceFixture(t)

	_, err := svc.RefreshSnapshot(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRefresher)

	refresher := &fakeRefresher{}
	n, err := svc.RefreshSnapshot(context.Background(), refresher)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NotNil(t, svc.Status().LastRefreshAt)

	f.cycle.deps.Credentials = fakeCredentials(false)
	_, err = svc.RefreshSnapshot(context.Background(), refresher)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 1, refresher.calls)
}

func TestService_RefreshSnapshotFailure(t *testing.T) {
	svc, _ := newServiceFixture(t)

	_, err := svc.RefreshSnapshot(context.Background(), &fakeRefresher{err: errors.New("boom")})
	assert.EqualError(t, err, "boom")
	assert.Nil(t, svc.Status().LastRefreshAt)
}
