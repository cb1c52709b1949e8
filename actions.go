package statechart

import (
	"time"

	"github.com/google/uuid"

	"github.com/statecharts-go/engine/internal/ir"
)

// Raise builds an action that enqueues an internal event, delivered
// before any send in the same macrostep (spec §4.6).
func Raise[C any](eventType EventType) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionRaise, Name: ActionType("raise:" + eventType), EventType: eventType}
}

// RaiseFunc builds a raise whose event is computed from the context and
// triggering event.
func RaiseFunc[C any](fn func(C, Event) Event) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionRaise, Name: "raise", EventExpr: fn}
}

// SendOption configures a Send action.
type SendOption[C any] func(*ActionSpec[C])

// WithDelay schedules the send after a static duration.
func WithDelay[C any](d time.Duration) SendOption[C] {
	return func(a *ActionSpec[C]) { a.DelayExpr = ir.StaticDelay[C](d) }
}

// WithDelayFn schedules the send after a duration computed dynamically
// from the context and triggering event.
func WithDelayFn[C any](fn DelayFunc[C]) SendOption[C] {
	return func(a *ActionSpec[C]) { a.DelayExpr = ir.DelayFunc[C](fn) }
}

// WithID assigns the send a static id, used later by Cancel.
func WithID[C any](id string) SendOption[C] {
	return func(a *ActionSpec[C]) { a.IDExpr = func(C, Event) string { return id } }
}

// WithIDFunc assigns the send an id computed from context and event.
func WithIDFunc[C any](fn func(C, Event) string) SendOption[C] {
	return func(a *ActionSpec[C]) { a.IDExpr = fn }
}

// Send builds an action that schedules eventType for external delivery,
// optionally delayed. delay=0 is still deferred to the next macrostep
// (spec §4.6). Absent an explicit WithID/WithIDFunc, the send gets a
// generated id so Stop can still cancel it; only a caller-supplied id is
// stable enough for Cancel to reference it later.
func Send[C any](eventType EventType, opts ...SendOption[C]) ActionSpec[C] {
	a := ir.ActionSpec[C]{Kind: ir.ActionSend, Name: ActionType("send:" + eventType), EventType: eventType}
	a.IDExpr = func(C, Event) string { return uuid.NewString() }
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Cancel builds an action that nullifies a not-yet-delivered send with a
// matching id.
func Cancel[C any](id string) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionCancel, Name: ActionType("cancel:" + id), CancelIDExpr: func(C, Event) string { return id }}
}

// LogAction builds an action that resolves a value for the interpreter's
// logger.
func LogAction[C any](fn func(C, Event) any) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionLog, Name: "log", LogExpr: fn}
}

// Assign builds a whole-context assignment action, folded into the
// context once per step (spec §4.3, §4.5 step 4).
func Assign[C any](fn Action[C]) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionAssign, Name: "assign", AssignFn: ir.Action[C](fn)}
}

// Pure builds an action that produces zero or more further action
// objects when the interpreter asks, evaluated against the step's final
// context (spec §4.6).
func Pure[C any](fn func(C, Event) []ActionSpec[C]) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionPure, Name: "pure", PureFn: fn}
}

// NamedAction builds a pure action that the interpreter resolves by name
// from the definition's registered Actions map, for the builder's
// `.OnEntry(name)`-style fluent API.
func NamedAction[C any](name ActionType) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionPure, Name: name}
}

// Invoke builds the hook-only invoke action: the core never spawns
// anything, it only records a name/src for the interpreter to raise
// done.invoke.<id>/error.platform.<id> back in (spec §1 Non-goals, §6).
func Invoke[C any](name, src string) ActionSpec[C] {
	return ir.ActionSpec[C]{Kind: ir.ActionInvoke, Name: ActionType(name), InvokeName: name, InvokeSrc: src}
}
