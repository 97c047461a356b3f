package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// DeliveryError reports a reminder that could not be delivered. The
// reminder stays unmarked and is retried by the next dispatch of the day.
type DeliveryError struct {
	PersonID string
	Name     string
	Date     time.Time
	Offset   int
	Err      error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s (%s, %d day(s)): %v",
		config.ErrDelivery, e.Name, e.Date.Format(config.DateFormatISO), e.Offset, e.Err)
}

// Unwrap exposes the notifier error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError returns true if err is, or wraps, a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
