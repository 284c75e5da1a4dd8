// Package resources provides read-only MCP resources for the automation
// pipeline. Clients can attach the current status, the rule set or the
// recent log to a conversation without calling a tool.
package resources
