// Package common holds what every MCP tool group shares: the Services
// bundle handed to each Register function, argument helpers, JSON results
// and the instrumentation wrapper applied to every handler.
package common
