package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/resources"
	"github.com/teemow/inboxpilot/internal/tools/automation_tools"
	"github.com/teemow/inboxpilot/internal/tools/calendar_tools"
	"github.com/teemow/inboxpilot/internal/tools/common"
	"github.com/teemow/inboxpilot/internal/tools/email_tools"
	"github.com/teemow/inboxpilot/internal/tools/google_tools"
)

func newMCPCmd() *cobra.Command {
	var yolo bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol (MCP) server on standard input/output,
providing email, calendar and auto-label tools for AI assistants.

Safety Mode:
  By default, the server operates in read-only mode, providing only safe operations.
  Use --yolo to enable write operations (sending and changing mail, editing
  events, rule changes, manual runs).

Logs are written to stderr so they never interfere with the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runMCP(cmd.Context(), cfg, !yolo)
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (mail, calendar edits, rule changes, manual runs). Default is read-only mode.")

	return cmd
}

func runMCP(parent context.Context, cfg config.Config, readOnly bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := setupLogging(os.Stderr, cfg)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	a, err := newApp(cfg, provider.Metrics(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("error during shutdown", logging.Err(err))
		}
	}()

	if readOnly {
		logger.Info("starting MCP server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting MCP server with WRITE operations enabled (--yolo flag is set)")
	}

	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	svc := &common.Services{
		Automation:  a.service,
		Snapshot:    a.cache,
		Mail:        a.google,
		Actions:     a.google,
		Summarizer:  a.llm,
		Calendar:    a.google,
		Credentials: a.credentials,
		Metrics:     provider.Metrics(),
		Logger:      logger,
		ReadOnly:    readOnly,
	}
	if err := registerAll(mcpSrv, svc); err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

// registerAll registers every tool group and resource on mcpSrv.
func registerAll(mcpSrv *mcpserver.MCPServer, svc *common.Services) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{name: "Email", register: func() error { return email_tools.RegisterEmailTools(mcpSrv, svc) }},
		{name: "Calendar", register: func() error { return calendar_tools.RegisterCalendarTools(mcpSrv, svc) }},
		{name: "Automation", register: func() error { return automation_tools.RegisterAutomationTools(mcpSrv, svc) }},
		{name: "Google", register: func() error { return google_tools.RegisterGoogleTools(mcpSrv, svc) }},
		{name: "Automation Resources", register: func() error { return resources.RegisterAutomationResources(mcpSrv, svc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}
