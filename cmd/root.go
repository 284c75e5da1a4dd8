package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/logging"
)

// rootCmd represents the base command for the inboxpilot application
var rootCmd = newRootCmd()

// version will be set by main
var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	debug      bool
	logFormat  string
}

var globals globalOptions

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inboxpilot",
		Short: "Labels incoming Gmail with rules judged by an LLM",
		Long: `inboxpilot is an email and calendar assistant. Its automation pipeline
periodically asks an LLM which of your plain-language label rules apply to
recent mail and applies the matching Gmail labels.

It can run as:
  - A REST API with a background scheduler (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)
  - A set of one-shot commands for managing rules and runs`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&globals.configPath, "config", "", "Path to a YAML config file. Can also use INBOXPILOT_CONFIG env var.")
	cmd.PersistentFlags().BoolVar(&globals.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&globals.logFormat, "log-format", "", "Log format: text or json (default from config)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newRulesCmd())
	cmd.AddCommand(newAutomationCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGenerateDocsCmd())

	return cmd
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxpilot version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the persistent flags on
// top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = globals.logFormat
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// setupLogging installs the process-wide slog handler writing to w and
// returns an adapter for the internal packages.
func setupLogging(w io.Writer, cfg config.Config) (*logging.SlogAdapter, error) {
	logger, err := logging.NewLogger(w, cfg.LogFormat, globals.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)
	return logging.NewSlogAdapter(logger), nil
}
