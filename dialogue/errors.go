package dialogue

import (
	"errors"
	"fmt"
)

// Errors recognised by the sequencer.
var (
	// ErrQuota means a service refused the request because of rate limits.
	ErrQuota = errors.New("service quota exceeded")
	// ErrDecode means a speech payload could not be decoded.
	ErrDecode = errors.New("malformed speech payload")
	// ErrDeviceUnavailable means no audio output could be obtained.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrSuperseded means a newer request replaced the work.
	ErrSuperseded = errors.New("superseded by a newer request")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrShutdown      = errors.New("sequencer has been shut down")
)

// IsRecoverable reports whether the sequencer can carry on after err.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrShutdown):
		return false
	}
	return true
}

// Error records where in the pipeline a failure happened.
type Error struct {
	Err       error  // The underlying error
	Component string // Component that generated the error
	Action    string // Action being performed when the error occurred
	Line      int    // Script line index, or -1
}

// NewError wraps err with its component and action.
func NewError(err error, component, action string) *Error {
	return &Error{Err: err, Component: component, Action: action, Line: -1}
}

// AtLine records the script line the error belongs to.
func (e *Error) AtLine(i int) *Error {
	e.Line = i
	return e
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "unknown dialogue error"
	}
	if e.Line >= 0 {
		return fmt.Sprintf("%s: %s line %d: %v", e.Component, e.Action, e.Line+1, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
