// Package google_tools reports the state of the Google credentials the
// server uses. Authorizing an account happens outside the server.
package google_tools
