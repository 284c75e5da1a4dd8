// Package logging provides structured logging helpers for inboxpilot.
//
// All packages log through log/slog. This package fixes the attribute names
// used across the codebase, builds the process-wide handler, and hides
// sender addresses behind a stable hash.
//
//	logger := logging.WithComponent(slog.Default(), "automation")
//	logger.Info("labeled message",
//	    logging.MessageID(id),
//	    logging.Sender(from))
package logging
