// Package apperr classifies failures of the session engine's collaborators.
package apperr

import (
	"errors"
	"fmt"
)

// Kind says how the engine reacts to a failure.
type Kind string

const (
	// Connection failures move the session to Failed.
	Connection Kind = "CONNECTION"
	// ControlCall failures (reset, devices, lookup, notes) are logged and the
	// session continues.
	ControlCall Kind = "CONTROL_CALL"
	// Export failures are logged and the teardown continues.
	Export Kind = "EXPORT"
)

// Error is the classified error carried through logs and messages.
type Error struct {
	Kind Kind
	Op   string // ex: "recognizer.Reset"
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + string(e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name. A nil err stays nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether any error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// Sentinel errors returned by collaborators.
var (
	// ErrNotFound is returned by a definition lookup with no answer.
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned when the backend answers a control call with an
	// explicit error payload.
	ErrRejected = errors.New("rejected by backend")
)
