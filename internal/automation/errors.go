package automation

import (
	"errors"
	"fmt"
)

// ErrInvalidRule is returned when a rule is missing its label or reason.
var ErrInvalidRule = errors.New("rule label and reason must not be empty")

// StorageError reports a failed read or write of a persisted store file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// EvaluationError reports that rule evaluation failed for a single message.
type EvaluationError struct {
	MessageID string
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate message %s: %v", e.MessageID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// LabelServiceError reports that ensuring or applying a label failed.
type LabelServiceError struct {
	Label string
	Op    string
	Err   error
}

func (e *LabelServiceError) Error() string {
	return fmt.Sprintf("%s label %q: %v", e.Op, e.Label, e.Err)
}

func (e *LabelServiceError) Unwrap() error { return e.Err }

// ConfigurationError reports that a trigger fired without required credentials.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Missing)
}
