package ww

import (
	"errors"
	"fmt"
)

// Kind classifies WW client failures into the three tiers the host reacts to.
type Kind int

const (
	// KindGeneric covers unexpected status codes and malformed response shapes.
	KindGeneric Kind = iota
	// KindAuth covers rejected credentials and invalid or expired sessions.
	KindAuth
	// KindConnection covers transport-level failures, including timeouts.
	KindConnection
)

// Error is the base error for all WW API failures.
type Error struct {
	Kind Kind
	Op   string // "login", "authorize", or "summary"
	Msg  string
	Err  error // underlying transport error, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ww %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("ww %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports whether err is an authentication failure. The orchestration
// layer recovers these exactly once via a forced token refresh; the host maps
// them to a "re-authentication required" state.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth
}

// IsConnection reports whether err is a transport-level failure. These are
// never retried by the client and surface as transient/unavailable.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConnection
}

func authErr(op, msg string) *Error {
	return &Error{Kind: KindAuth, Op: op, Msg: msg}
}

func connErr(op, msg string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Msg: msg, Err: err}
}

func genericErrf(op, format string, args ...any) *Error {
	return &Error{Kind: KindGeneric, Op: op, Msg: fmt.Sprintf(format, args...)}
}
