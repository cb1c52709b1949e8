package ir

import "time"

// ActionKind is the closed set of action record kinds the engine
// recognizes. Dispatch on Kind is always an exhaustive switch; there is
// no room for a tenth kind.
type ActionKind int

const (
	// ActionRaise enqueues an internal event, delivered before any send
	// in the same macrostep.
	ActionRaise ActionKind = iota
	// ActionSend schedules an event for external delivery, optionally
	// delayed. delay=0 is still deferred to the next macrostep.
	ActionSend
	// ActionCancel nullifies a not-yet-delivered send with a matching id.
	ActionCancel
	// ActionLog resolves a value for the interpreter's logger.
	ActionLog
	// ActionStart begins a node's activity on entry.
	ActionStart
	// ActionStop ends a node's activity on exit.
	ActionStop
	// ActionAssign is folded into the context once per step and does
	// not appear in the user-visible action list.
	ActionAssign
	// ActionPure either names a registered action, which the stepper runs
	// as a context mutator like an assign, or carries a PureFn that the
	// stepper expands into further action specs. The interpreter does
	// nothing for the record itself.
	ActionPure
	// ActionInvoke hooks the interpreter to start/notify an external
	// collaborator; the core never spawns anything itself.
	ActionInvoke
)

// String returns the action kind's lowercase name, matching §4.6's tag.
func (k ActionKind) String() string {
	switch k {
	case ActionRaise:
		return "raise"
	case ActionSend:
		return "send"
	case ActionCancel:
		return "cancel"
	case ActionLog:
		return "log"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionAssign:
		return "assign"
	case ActionPure:
		return "pure"
	case ActionInvoke:
		return "invoke"
	default:
		return "unknown"
	}
}

// ActionSpec is the tagged-sum action record described in §4.6. Only the
// fields relevant to Kind are populated; the rest are zero.
type ActionSpec[C any] struct {
	Kind ActionKind
	Name ActionType // display name; registry key for Pure/Invoke

	// Raise / Send: the event to deliver. EventExpr, when set, takes
	// precedence over the static EventType; no check rejects a record
	// with neither set.
	EventType EventType
	EventExpr func(C, Event) Event

	// Send only.
	DelayExpr    DelayFunc[C]
	IDExpr       func(C, Event) string
	ResolvedID   string // filled in by the stepper once IDExpr runs
	ResolvedWhen time.Duration

	// Cancel only.
	CancelIDExpr func(C, Event) string
	ResolvedDelay time.Duration

	// Log only.
	LogExpr  func(C, Event) any
	Resolved any

	// Start/Stop (activity) only; synthesized by the stepper, never
	// user-authored directly.
	Activity ActivityType
	Node     StateID

	// Assign only: folded into the context by the stepper.
	AssignFn Action[C]

	// Pure only: produces further action specs, evaluated against the
	// step's final context.
	PureFn func(C, Event) []ActionSpec[C]

	// Invoke only.
	InvokeName string
	InvokeSrc  string
}
