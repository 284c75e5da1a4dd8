// Package cmd implements the command-line interface for inboxpilot.
//
// This package provides the following commands:
//   - serve: Start the REST API, the background auto-labeler and the metrics server
//   - mcp: Start the MCP server on stdio to provide tools for AI assistants
//   - run: Run one auto-label cycle and print the status
//   - rules: List, add and delete auto-label rules
//   - automation: Show, enable or disable the auto-labeler
//   - logs: Print auto-label log entries
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
