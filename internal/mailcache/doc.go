// Package mailcache keeps a local SQLite snapshot of recent mail so that
// automation cycles and tools can avoid redundant Gmail API calls.
//
// The snapshot records when it was last refreshed. Once that refresh is
// older than the configured maximum age the snapshot is considered stale
// and Recent returns no messages, which makes callers fall back to the live
// mailbox.
package mailcache
