// Package email_tools provides the MCP tools for reading mail.
//
// Every tool reads from the local mail snapshot first and falls back to
// Gmail when the snapshot is stale, missing or has no hit.
package email_tools
