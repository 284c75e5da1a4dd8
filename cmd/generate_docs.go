package cmd

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate a markdown reference of every MCP tool inboxpilot registers,
including the write tools that require --yolo. The reference is built from the
registered tool definitions, so it always matches the running server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(stdout, stderr io.Writer, outputFile string) error {
	dir, err := os.MkdirTemp("", "inboxpilot-docs-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	mcpSrv, err := newDocServer(dir)
	if err != nil {
		return err
	}

	var tools []mcp.Tool
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	markdown := generateToolsMarkdown(tools)

	if outputFile == "" {
		_, err := io.WriteString(stdout, markdown)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

// newDocServer registers every tool, including write operations, against
// stores under dir that are never touched.
func newDocServer(dir string) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
	)

	rt := automation.NewRuntime(automation.StoreConfig{
		RulesPath:           filepath.Join(dir, "rules.json"),
		ProcessedPath:       filepath.Join(dir, "processed.json"),
		LogPath:             filepath.Join(dir, "logs.json"),
		LogRetentionDays:    1,
		ProcessedMaxAgeDays: 1,
		ProcessedMaxEntries: 1,
		LogMirrorSize:       1,
	}, logging.Discard())
	cycle := automation.NewCycle(rt, automation.CycleDeps{Logger: logging.Discard()}, automation.Settings{})

	svc := &common.Services{
		Automation:  automation.NewService(rt, cycle, logging.Discard()),
		Credentials: google.NewCredentials(google.NewFileTokenProvider(dir), google.DefaultAccount),
		Logger:      logging.Discard(),
		ReadOnly:    false,
	}
	if err := registerAll(mcpSrv, svc); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

// toolCategories maps a tool name prefix to its section heading.
var toolCategories = map[string]string{
	"email":      "Email Tools",
	"calendar":   "Calendar Tools",
	"automation": "Automation Tools",
	"google":     "Google Account Tools",
}

func getCategoryFromToolName(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	if category, ok := toolCategories[prefix]; ok {
		return category
	}
	return "Other"
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		byCategory[category] = append(byCategory[category], tool)
	}
	categories := slices.Sorted(maps.Keys(byCategory))

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists every tool available when inboxpilot runs as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is generated from the tool definitions by `inboxpilot generate-docs`.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, strings.ToLower(strings.ReplaceAll(category, " ", "-")))
	}

	sb.WriteString("\n## Safety Mode\n\n")
	sb.WriteString("Tools that send or change mail, change calendar events, change rules or trigger runs are only registered when the server is started with `--yolo`. ")
	sb.WriteString("Without it, only the read-only tools are available.\n\n")

	for _, category := range categories {
		group := byCategory[category]
		slices.SortFunc(group, func(a, b mcp.Tool) int { return cmp.Compare(a.Name, b.Name) })

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range group {
			writeToolMarkdown(&sb, tool)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func writeToolMarkdown(sb *strings.Builder, tool mcp.Tool) {
	fmt.Fprintf(sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}

		presence := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			presence = "required"
		}

		desc, _ := prop["description"].(string)
		if desc == "" {
			typ, _ := prop["type"].(string)
			desc = cmp.Or(typ, "any") + " parameter"
		}
		fmt.Fprintf(sb, "- `%s` (%s): %s\n", name, presence, desc)
	}
	sb.WriteString("\n")
}
