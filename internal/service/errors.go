package service

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed caller input. It is never coerced away;
// the documented padding rules in the normalizer are the only forgiveness
// the write path offers.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// RangeTooWideError is the aggregation safety bound: the requested window
// would force an unbounded in-memory scan, so the caller must narrow it.
type RangeTooWideError struct {
	Days    int
	MaxDays int
}

func (e *RangeTooWideError) Error() string {
	return fmt.Sprintf("date range of %d days exceeds the %d day aggregation limit", e.Days, e.MaxDays)
}

// ErrStoreUnavailable wraps transient document-store failures on the read
// path. Write-path failures never surface as errors; the sink absorbs them.
var ErrStoreUnavailable = errors.New("log store unavailable")
