package statechart

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy from spec §7. These are kinds, not
// sentinel type names: callers match with errors.Is against the Err*
// values below, not by asserting a concrete error type.
type ErrorKind int

const (
	// ErrorKindInvalidDefinition is a structural violation caught at
	// load. Fatal; returned from Machine(...). See ValidationError for
	// the detailed per-issue breakdown.
	ErrorKindInvalidDefinition ErrorKind = iota
	// ErrorKindInvalidEvent names a malformed event. Transition has no
	// error result and does not check events, so the engine never
	// produces this kind itself; ErrInvalidEvent exists for errors.Is
	// matching.
	ErrorKindInvalidEvent
	// ErrorKindInvalidTarget means a transition target could not be
	// resolved at transition time.
	ErrorKindInvalidTarget
	// ErrorKindGuardFailure means a guard function panicked. Never
	// returned to the caller directly — treated as guard=false and
	// surfaced only via State.Warnings — but named here because it is
	// part of the same taxonomy callers match against in logs.
	ErrorKindGuardFailure
	// ErrorKindExecution means an assignment or resolver function
	// panicked. Aborts the macrostep; the prior configuration is
	// preserved.
	ErrorKindExecution
)

// String names the kind the way log lines and error messages render it.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInvalidDefinition:
		return "invalid_definition"
	case ErrorKindInvalidEvent:
		return "invalid_event"
	case ErrorKindInvalidTarget:
		return "invalid_target"
	case ErrorKindGuardFailure:
		return "guard_failure"
	case ErrorKindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// Error is the engine's runtime error type, carrying a Kind from the §7
// taxonomy plus an optional wrapped cause (a recovered panic, typically).
type Error struct {
	Kind  ErrorKind
	Node  StateID // state or transition the error originated at, when known
	Cause error
}

func (e *Error) Error() string {
	if e.Node != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s at %q: %v", e.Kind, e.Node, e.Cause)
		}
		return fmt.Sprintf("%s at %q", e.Kind, e.Node)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// sentinels usable with errors.Is against a *Error's Kind via Is below.
var (
	ErrInvalidEvent  = &Error{Kind: ErrorKindInvalidEvent}
	ErrInvalidTarget = &Error{Kind: ErrorKindInvalidTarget}
	ErrExecution     = &Error{Kind: ErrorKindExecution}
)

// Is lets errors.Is(err, ErrExecution) match any *Error sharing that Kind,
// regardless of Node/Cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// Warning is a non-fatal diagnostic produced during a step — a
// guard_failure, or an execution error from a panicking assignment —
// collected on State.Warnings for the interpreter to log. The pure core never logs on its own (spec §5: no hidden state).
type Warning struct {
	Kind  ErrorKind
	Node  StateID
	Event EventType
	Cause error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at %q on %q: %v", w.Kind, w.Node, w.Event, w.Cause)
}
