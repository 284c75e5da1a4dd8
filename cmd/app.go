package cmd

import (
	"context"
	"fmt"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/llm"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailcache"
)

// app wires the automation pipeline and its collaborators from a Config.
// Every command builds exactly one.
type app struct {
	cfg         config.Config
	logger      logging.Logger
	metrics     *instrumentation.Metrics
	credentials *google.Credentials
	google      *googleClients
	cache       *mailcache.Cache
	refresher   *mailcache.Refresher
	llm         *llm.Client
	runtime     *automation.Runtime
	cycle       *automation.Cycle
	service     *automation.Service
}

// newApp builds the pipeline. metrics may be nil.
func newApp(cfg config.Config, metrics *instrumentation.Metrics, logger logging.Logger) (*app, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	tokens := google.NewFileTokenProvider(cfg.TokenDir)
	credentials := google.NewCredentials(tokens, cfg.GoogleAccount)
	clients := newGoogleClients(tokens, credentials.Account(), cfg.TimeZone, metrics, logger)

	cache, err := mailcache.Open(cfg.MailCache.Path, cfg.MailCache.MaxAge(), logger)
	if err != nil {
		return nil, err
	}
	refresher := mailcache.NewRefresher(cache, clients, cfg.Automation.LookbackDays, cfg.MailCache.RefreshLimit, metrics, logger)

	model := llm.New(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		APIBase:   cfg.LLM.APIBase,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout(),
	}, metrics, logger)
	if !model.Ready() {
		logger.Warn("LLM endpoint not configured, rule evaluation falls back to keyword matching")
	}

	a := cfg.Automation
	rt := automation.NewRuntime(automation.StoreConfig{
		RulesPath:           a.RulesPath,
		ProcessedPath:       a.ProcessedPath,
		LogPath:             a.LogPath,
		EnabledDefault:      a.EnabledDefault,
		LogRetentionDays:    a.LogRetentionDays,
		ProcessedMaxAgeDays: a.ProcessedMaxAgeDays,
		ProcessedMaxEntries: a.ProcessedMaxEntries,
		LogMirrorSize:       a.LogMirrorSize,
	}, logger)

	cycle := automation.NewCycle(rt, automation.CycleDeps{
		Source:      clients,
		Snapshot:    cache,
		Labels:      clients,
		Evaluator:   model,
		Credentials: credentials,
		Metrics:     metrics,
		Logger:      logger,
	}, automation.Settings{
		LookbackDays: a.LookbackDays,
		BatchTarget:  a.MaxPerCycle,
		Delay:        a.RequestInterval(),
	})

	return &app{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		credentials: credentials,
		google:      clients,
		cache:       cache,
		refresher:   refresher,
		llm:         model,
		runtime:     rt,
		cycle:       cycle,
		service:     automation.NewService(rt, cycle, logger),
	}, nil
}

// newScheduler returns the background loop for this app.
func (a *app) newScheduler() *automation.Scheduler {
	return automation.NewScheduler(a.runtime, a.cycle, a.refresher, a.cfg.Automation.BackgroundInterval(), a.logger)
}

// snapshotCheck is a readiness check that fails when the snapshot database
// cannot be queried.
func (a *app) snapshotCheck() error {
	if _, err := a.cache.Len(context.Background()); err != nil {
		return fmt.Errorf("snapshot unavailable: %w", err)
	}
	return nil
}

// Close releases the snapshot database.
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	if err := a.cache.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	return nil
}
