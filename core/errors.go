package core

import (
	"errors"
)

// ExclusionError signals that a source record describes something that must
// not be indexed (a drill hole, a site, or a record the classifier rejected).
// Callers skip the record and log the reason.
type ExclusionError struct {
	Reason string
	err    error
}

func (e *ExclusionError) Error() string {
	if e.err != nil {
		return "excluded: " + e.Reason + ": " + e.err.Error()
	}
	return "excluded: " + e.Reason
}

func (e *ExclusionError) Unwrap() error {
	return e.err
}

// NewExclusionError creates an exclusion with the given reason.
func NewExclusionError(reason string) error {
	return &ExclusionError{Reason: reason}
}

// WrapExclusion marks err as an exclusion.
func WrapExclusion(reason string, err error) error {
	return &ExclusionError{Reason: reason, err: err}
}

// IsExclusion returns true if err (or anything it wraps) is an exclusion.
func IsExclusion(err error) bool {
	var exclusion *ExclusionError
	return errors.As(err, &exclusion)
}
