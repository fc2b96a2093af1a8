package scheduling

import (
	"errors"
	"fmt"
)

// ErrBroadWindow signals that a point-in-time availability check was asked
// about a window too large to answer with a single yes/no. Callers should
// redirect to slot listing instead of retrying.
var ErrBroadWindow = errors.New("requested window is too broad for an availability check")

// ErrInvalidArguments signals that tool arguments could not be parsed or
// validated. It is reported back to the caller and never ends the session.
var ErrInvalidArguments = errors.New("invalid arguments")

// MissingFieldError reports a required field that was absent from a request.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// ProviderError wraps a calendar provider failure. It must never be treated
// as "available"; the orchestrator turns it into a spoken apology.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar provider failed during %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
