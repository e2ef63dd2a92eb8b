package ir

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed condition, effect or story at construction
// time. A scenario containing one never loads.
type ConfigError struct {
	// Field names the offending argument, e.g. "time_window.until".
	Field string

	// Message is a human-readable description.
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsConfigError reports whether err (or anything it wraps) is a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
