package booking

import (
	"errors"
	"fmt"

	"campusride/internal/types"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("booking not found")
	ErrAggregation       = errors.New("driver rating aggregation failed")
	ErrDuplicate         = errors.New("booking already exists")
)

// AggregationError reports that a rating was stored but the driver's average
// could not be recomputed. The rating itself stays persisted; callers retry the
// recompute on its own.
type AggregationError struct {
	DriverID types.ID
	Err      error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s for driver %s: %v", ErrAggregation, e.DriverID, e.Err)
}

func (e *AggregationError) Unwrap() []error {
	return []error{ErrAggregation, e.Err}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidTransitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
