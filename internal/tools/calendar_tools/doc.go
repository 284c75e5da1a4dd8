// Package calendar_tools provides MCP tools for Google Calendar: listing
// upcoming events and, in write mode, creating an event from a proposal.
package calendar_tools
