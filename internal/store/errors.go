package store

import (
	"errors"
	"fmt"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// ErrNotFound is returned by Load when the config file does not exist.
var ErrNotFound = errors.New(config.ErrConfigNotFound)

// IndexError reports an edit that targets a record position that does not exist.
type IndexError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %d (have %d)", config.ErrIndexRange, e.Index, e.Len)
}

// IsIndexError returns true if err is, or wraps, an IndexError.
func IsIndexError(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}
