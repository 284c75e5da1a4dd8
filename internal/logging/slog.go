package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys.
const (
	KeyOperation = "operation"
	KeyComponent = "component"
	KeyTrigger   = "trigger"
	KeyRule      = "rule_id"
	KeyLabel     = "label"
	KeyMessage   = "message_id"
	KeySender    = "sender"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// Status values used with the status attribute.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds an slog.Logger writing to w in the given format.
// debug lowers the level to Debug.
func NewLogger(w io.Writer, format string, debug bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q, must be one of: text, json", format)
	}
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Trigger(trigger string) slog.Attr { return slog.String(KeyTrigger, trigger) }
func Rule(id string) slog.Attr { return slog.String(KeyRule, id) }
func Label(name string) slog.Attr { return slog.String(KeyLabel, name) }
func MessageID(id string) slog.Attr { return slog.String(KeyMessage, id) }
func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }
func Tool(tool string) slog.Attr { return slog.String(KeyTool, tool) }
func Sender(address string) slog.Attr { return slog.String(KeySender, AnonymizeEmail(address)) }

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits from output.
//
//	logger.Info("cycle finished", logging.Err(err)) // safe when err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed form of an address so log lines can be
// correlated without exposing the sender.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(hash[:8])
}

// ExtractDomain returns the domain part of an address, or "" when there is none.
func ExtractDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 && i < len(email)-1 {
		return strings.TrimSuffix(email[i+1:], ">")
	}
	return ""
}
