package errors

import (
	stdErrors "errors"
	"fmt"
)

// SourceUnavailableError indicates that a whole source's transport failed
// before any records could be produced. The collector logs it and moves on
// to the next source; it is never fatal for the run.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s unavailable", e.Source)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailableError wraps a transport error for the given source.
func NewSourceUnavailableError(source string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Err: err}
}

// IsSourceUnavailable reports whether err is a SourceUnavailableError
// anywhere in its chain.
func IsSourceUnavailable(err error) bool {
	var target *SourceUnavailableError
	return stdErrors.As(err, &target)
}
