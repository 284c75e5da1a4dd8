// Package config loads inboxpilot settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the YAML file used when no --config flag is given.
const EnvConfigPath = "INBOXPILOT_CONFIG"

// Automation holds the auto-label pipeline settings.
type Automation struct {
	EnabledDefault            bool   `yaml:"enabled_default"`
	LookbackDays              int    `yaml:"lookback_days"`
	MaxPerCycle               int    `yaml:"max_per_cycle"`
	RequestIntervalSeconds    int    `yaml:"request_interval_seconds"`
	BackgroundIntervalMinutes int    `yaml:"background_interval_minutes"`
	RulesPath                 string `yaml:"rules_path"`
	ProcessedPath             string `yaml:"processed_path"`
	LogPath                   string `yaml:"log_path"`
	LogRetentionDays          int    `yaml:"log_retention_days"`
	ProcessedMaxAgeDays       int    `yaml:"processed_max_age_days"`
	ProcessedMaxEntries       int    `yaml:"processed_max_entries"`
	LogMirrorSize             int    `yaml:"log_mirror_size"`
}

// MailCache holds the local mail snapshot settings.
type MailCache struct {
	Path          string `yaml:"path"`
	MaxAgeMinutes int    `yaml:"max_age_minutes"`
	RefreshLimit  int    `yaml:"refresh_limit"`
}

// LLM holds the OpenAI-compatible endpoint settings.
type LLM struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	APIBase        string `yaml:"api_base"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config is the complete runtime configuration.
type Config struct {
	Automation    Automation `yaml:"automation"`
	MailCache     MailCache  `yaml:"mail_cache"`
	LLM           LLM        `yaml:"llm"`
	GoogleAccount string     `yaml:"google_account"`
	TokenDir      string     `yaml:"token_dir"`
	TimeZone      string     `yaml:"time_zone"`
	HTTPAddr      string     `yaml:"http_addr"`
	MetricsAddr   string     `yaml:"metrics_addr"`
	LogFormat     string     `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Automation: Automation{
			EnabledDefault:            false,
			LookbackDays:              7,
			MaxPerCycle:               20,
			RequestIntervalSeconds:    5,
			BackgroundIntervalMinutes: 10,
			RulesPath:                 "data/rules.json",
			ProcessedPath:             "tmp/auto_label_processed.json",
			LogPath:                   "data/auto_label_logs.json",
			LogRetentionDays:          7,
			ProcessedMaxAgeDays:       30,
			ProcessedMaxEntries:       2000,
			LogMirrorSize:             50,
		},
		MailCache: MailCache{
			Path:          "data/mailcache.db",
			MaxAgeMinutes: 30,
			RefreshLimit:  100,
		},
		LLM: LLM{
			MaxTokens:      5120,
			TimeoutSeconds: 60,
		},
		GoogleAccount: "default",
		HTTPAddr:      ":8000",
		MetricsAddr:   ":9090",
		LogFormat:     "text",
	}
}

// Load builds a Config from defaults, the YAML file at path (when path is
// non-empty) and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = parseBool(v)
		}
	}

	a := &c.Automation
	flag("AUTO_LABEL_ENABLED_DEFAULT", &a.EnabledDefault)
	num("AUTO_LABEL_LOOKBACK_DAYS", &a.LookbackDays)
	num("AUTO_LABEL_MAX_PER_CYCLE", &a.MaxPerCycle)
	num("AUTO_LABEL_REQUEST_INTERVAL_SECONDS", &a.RequestIntervalSeconds)
	num("BACKGROUND_REFRESH_INTERVAL_MINUTES", &a.BackgroundIntervalMinutes)
	str("AUTO_LABEL_RULES_PATH", &a.RulesPath)
	str("AUTO_LABEL_PROCESSED_PATH", &a.ProcessedPath)
	str("AUTO_LABEL_LOG_PATH", &a.LogPath)
	num("AUTO_LABEL_LOG_RETENTION_DAYS", &a.LogRetentionDays)
	num("AUTO_LABEL_PROCESSED_MAX_AGE_DAYS", &a.ProcessedMaxAgeDays)
	num("AUTO_LABEL_PROCESSED_MAX_ENTRIES", &a.ProcessedMaxEntries)
	num("AUTO_LABEL_LOG_MIRROR_SIZE", &a.LogMirrorSize)

	str("MAIL_CACHE_PATH", &c.MailCache.Path)
	num("MAIL_CACHE_MAX_AGE_MINUTES", &c.MailCache.MaxAgeMinutes)
	num("MAIL_CACHE_REFRESH_LIMIT", &c.MailCache.RefreshLimit)

	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_MODEL", &c.LLM.Model)
	str("OPENAI_API_URL", &c.LLM.APIBase)
	str("OPENAI_API_BASE", &c.LLM.APIBase)
	num("MAX_TOKEN", &c.LLM.MaxTokens)

	str("GOOGLE_ACCOUNT", &c.GoogleAccount)
	str("GOOGLE_TOKEN_DIR", &c.TokenDir)
	str("CALENDAR_TIME_ZONE", &c.TimeZone)
	if v, ok := lookup("BACKEND_PORT"); ok && strings.TrimSpace(v) != "" {
		c.HTTPAddr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	str("METRICS_ADDR", &c.MetricsAddr)
	str("LOG_FORMAT", &c.LogFormat)

	return errors.Join(errs...)
}

// Validate rejects values the pipeline cannot work with and raises the
// background interval to its one minute floor.
func (c *Config) Validate() error {
	a := &c.Automation
	if a.BackgroundIntervalMinutes < 1 {
		a.BackgroundIntervalMinutes = 1
	}

	var errs []error
	positive := map[string]int{
		"lookback_days":          a.LookbackDays,
		"max_per_cycle":          a.MaxPerCycle,
		"log_retention_days":     a.LogRetentionDays,
		"processed_max_age_days": a.ProcessedMaxAgeDays,
		"processed_max_entries":  a.ProcessedMaxEntries,
		"log_mirror_size":        a.LogMirrorSize,
	}
	for _, name := range []string{
		"lookback_days", "max_per_cycle", "log_retention_days",
		"processed_max_age_days", "processed_max_entries", "log_mirror_size",
	} {
		if positive[name] < 1 {
			errs = append(errs, fmt.Errorf("automation.%s must be at least 1, got %d", name, positive[name]))
		}
	}
	if a.RequestIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("automation.request_interval_seconds must not be negative, got %d", a.RequestIntervalSeconds))
	}
	if a.RulesPath == "" || a.ProcessedPath == "" || a.LogPath == "" {
		errs = append(errs, errors.New("automation store paths must not be empty"))
	}
	if c.MailCache.MaxAgeMinutes < 1 {
		errs = append(errs, fmt.Errorf("mail_cache.max_age_minutes must be at least 1, got %d", c.MailCache.MaxAgeMinutes))
	}
	if c.MailCache.RefreshLimit < 1 {
		errs = append(errs, fmt.Errorf("mail_cache.refresh_limit must be at least 1, got %d", c.MailCache.RefreshLimit))
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be at least 1, got %d", c.LLM.MaxTokens))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// RequestInterval is the pause between candidates within a cycle.
func (a Automation) RequestInterval() time.Duration {
	return time.Duration(a.RequestIntervalSeconds) * time.Second
}

// BackgroundInterval is the wait between scheduler iterations.
func (a Automation) BackgroundInterval() time.Duration {
	return time.Duration(a.BackgroundIntervalMinutes) * time.Minute
}

// MaxAge is how long a snapshot stays usable after its last refresh.
func (m MailCache) MaxAge() time.Duration {
	return time.Duration(m.MaxAgeMinutes) * time.Minute
}

// Timeout is the HTTP timeout for chat completion requests.
func (l LLM) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
