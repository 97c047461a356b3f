package engine

import (
	"errors"
	"fmt"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// ErrInvalidDate is returned when a month/day pair does not form a calendar date.
var ErrInvalidDate = errors.New(config.ErrInvalidDate)

// ConfigError reports a structurally or semantically invalid config value.
//
// Record is the zero-based position of the offending birthday, or -1 when
// the problem concerns a global field.
type ConfigError struct {
	Field   string
	Record  int
	Message string
	Err     error
}

// NewConfigError builds a ConfigError for a global field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Record: -1, Message: message}
}

// NewRecordError builds a ConfigError for a field of the birthday at index.
func NewRecordError(index int, field, message string, err error) *ConfigError {
	return &ConfigError{Field: field, Record: index, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("%s: birthdays[%d].%s: %s", config.ErrInvalidConfig, e.Record, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", config.ErrInvalidConfig, e.Field, e.Message)
}

// Unwrap exposes the underlying cause (e.g. ErrInvalidDate).
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
