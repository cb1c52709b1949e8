package statechart

import (
	"time"

	"github.com/statecharts-go/engine/internal/ir"
)

// Re-export non-generic types from internal/ir for the public API.
type (
	StateType    = ir.StateType
	EventType    = ir.EventType
	StateID      = ir.StateID
	ActionType   = ir.ActionType
	GuardType    = ir.GuardType
	ActivityType = ir.ActivityType
	Event        = ir.Event
	HistoryType  = ir.HistoryType
	Value        = ir.Value
	Path         = ir.Path
)

// ActionSpec is the generic, per-context action record re-exported from
// internal/ir; see ir.ActionKind for the closed set of kinds.
type ActionSpec[C any] = ir.ActionSpec[C]

// Action is a side-effect function executed during transitions. It
// receives a pointer to the context for modification and the triggering
// event.
type Action[C any] func(ctx *C, event Event)

// Guard is a predicate that determines if a transition should occur. It
// receives the current context (by value) and the triggering event.
type Guard[C any] func(ctx C, event Event) bool

// DelayFunc computes a dynamic delay for a "send" action or an "after"
// transition, evaluated against the context active when it is scheduled.
type DelayFunc[C any] func(ctx C, event Event) time.Duration

const (
	StateTypeAtomic   = ir.StateTypeAtomic
	StateTypeCompound = ir.StateTypeCompound
	StateTypeFinal    = ir.StateTypeFinal
	StateTypeHistory  = ir.StateTypeHistory
	StateTypeParallel = ir.StateTypeParallel

	HistoryTypeShallow = ir.HistoryTypeShallow
	HistoryTypeDeep    = ir.HistoryTypeDeep
)

// InitEvent is delivered implicitly when a definition's initial state is
// computed.
var InitEvent = ir.InitEvent

// State is spec's Configuration: the full result of a step, not just the
// active value. Value and Context are what callers usually want; History,
// Actions, Activities and Warnings exist so the interpreter (and tests)
// can observe exactly what a step did without re-deriving it.
type State[C any] struct {
	Value   Value
	Context C
	Event   Event

	// History maps every compound/parallel node that owns a history
	// marker to the value recorded for its subtree the last time it was
	// exited. Nodes never exited have no entry.
	History map[StateID]Value

	// Actions is the user-visible, already-resolved action list for this
	// step, in the exact order from spec §4.5 step 3 (assign actions are
	// folded into Context and do not appear here).
	Actions []ActionSpec[C]

	// Activities reflects which long-running activities are active after
	// this step, keyed by the node that started them.
	Activities map[StateID]ActivityType

	// Changed is true iff Value, Context, or Actions differ from the
	// configuration this step was computed from.
	Changed bool

	// Warnings carries non-fatal diagnostics produced during the step —
	// guard_failure and execution (§7) — for the interpreter to log.
	// The pure core never logs; it only reports.
	Warnings []Warning

	// machine is the definition Value was computed against. It is unset
	// on a State built from a bare struct literal (older tests do this),
	// in which case Matches falls back to literal Value comparison.
	machine *ir.MachineConfig[C]
}

// Matches reports whether pattern is a prefix of s's value in every
// region pattern names, following compound ancestry the same way the
// interpreter's own Matches does: matches("red", {red:"walk"}) is true
// because "red" is an ancestor of the active leaf "walk" (spec §3, §4.1).
func (s State[C]) Matches(pattern Value) bool {
	return ir.Matches(s.machine, pattern, s.Value)
}
