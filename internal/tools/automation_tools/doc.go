// Package automation_tools exposes the auto-label pipeline over MCP.
//
// Status, logs and the rule list are always available. Adding or deleting
// rules, toggling automation and triggering a run change mailbox labels, so
// those tools are only registered in write mode.
package automation_tools
