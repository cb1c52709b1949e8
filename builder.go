package statechart

import (
	"fmt"
	"time"

	"github.com/statecharts-go/engine/internal/ir"
)

// MachineBuilder provides a fluent API for constructing state machines,
// lowering to the completed internal/ir on Build.
type MachineBuilder[C any] struct {
	id        string
	initial   StateID
	delimiter string
	context   C
	states    []*StateBuilder[C]
	actions   map[ActionType]Action[C]
	guards    map[GuardType]Guard[C]
}

// StateBuilder provides a fluent API for constructing states.
type StateBuilder[C any] struct {
	machine     *MachineBuilder[C]
	parent      *StateBuilder[C]
	id          StateID
	stateType   StateType
	initial     StateID
	children    []*StateBuilder[C]
	entry       []ActionSpec[C]
	exit        []ActionSpec[C]
	activities  []ActivityType
	transitions []*TransitionBuilder[C]
	always      []*TransitionBuilder[C]
	after       []*TransitionBuilder[C]
	historyKind HistoryType
	historyDflt StateID
	invoke      *ir.InvokeConfig[C]
	onDone      StateID
}

// TransitionBuilder provides a fluent API for constructing transitions.
type TransitionBuilder[C any] struct {
	state    *StateBuilder[C]
	event    EventType
	delay    time.Duration
	target   StateID
	internal bool
	guard    GuardType
	guardFn  Guard[C]
	actions  []ActionSpec[C]
}

// NewMachine creates a new MachineBuilder with the given ID.
func NewMachine[C any](id string) *MachineBuilder[C] {
	return &MachineBuilder[C]{
		id:        id,
		delimiter: ".",
		actions:   make(map[ActionType]Action[C]),
		guards:    make(map[GuardType]Guard[C]),
	}
}

// WithInitial sets the initial state ID.
func (b *MachineBuilder[C]) WithInitial(initial StateID) *MachineBuilder[C] {
	b.initial = initial
	return b
}

// WithContext sets the initial context value.
func (b *MachineBuilder[C]) WithContext(ctx C) *MachineBuilder[C] {
	b.context = ctx
	return b
}

// WithDelimiter overrides the default "." path delimiter.
func (b *MachineBuilder[C]) WithDelimiter(delimiter string) *MachineBuilder[C] {
	b.delimiter = delimiter
	return b
}

// WithAction registers a named action.
func (b *MachineBuilder[C]) WithAction(name ActionType, action Action[C]) *MachineBuilder[C] {
	b.actions[name] = action
	return b
}

// WithGuard registers a named guard.
func (b *MachineBuilder[C]) WithGuard(name GuardType, guard Guard[C]) *MachineBuilder[C] {
	b.guards[name] = guard
	return b
}

// State starts building a new top-level state with the given ID.
func (b *MachineBuilder[C]) State(id StateID) *StateBuilder[C] {
	sb := &StateBuilder[C]{machine: b, id: id, stateType: StateTypeAtomic, historyKind: HistoryTypeShallow}
	b.states = append(b.states, sb)
	return sb
}

// Build constructs the final MachineConfig from the builder, returning
// the same *ir.ValidationError Validate would on a malformed definition.
func (b *MachineBuilder[C]) Build() (*ir.MachineConfig[C], error) {
	machine := ir.NewMachineConfig(b.id, b.initial, b.context)
	machine.Delimiter = b.delimiter

	for name, action := range b.actions {
		machine.Actions[name] = ir.Action[C](action)
	}
	for name, guard := range b.guards {
		machine.Guards[name] = ir.Guard[C](guard)
	}

	for _, sb := range b.states {
		buildStateRecursive(sb, "", machine)
	}

	if err := ir.Validate(machine); err != nil {
		return nil, err
	}
	return machine, nil
}

func buildStateRecursive[C any](sb *StateBuilder[C], parentID StateID, machine *ir.MachineConfig[C]) {
	stateType := sb.stateType
	if len(sb.children) > 0 && sb.stateType == StateTypeAtomic {
		stateType = StateTypeCompound
	}

	state := ir.NewStateConfig[C](sb.id, stateType)
	state.Parent = parentID
	state.Entry = append([]ActionSpec[C]{}, sb.entry...)
	state.Exit = append([]ActionSpec[C]{}, sb.exit...)
	state.Activities = append([]ActivityType{}, sb.activities...)
	state.HistoryKind = sb.historyKind
	state.HistoryDefault = sb.historyDflt
	state.Invoke = sb.invoke

	if len(sb.children) > 0 {
		state.Initial = sb.initial
		for _, child := range sb.children {
			state.Children = append(state.Children, child.id)
		}
	}

	for idx, tb := range sb.after {
		delay := tb.delay
		sendID := ActionType(fmt.Sprintf("%s-after-%d", sb.id, idx))
		eventType := EventType(fmt.Sprintf("xstate.after(%s)#%d.%s", delay, idx, sb.id))
		state.Entry = append(state.Entry, ir.ActionSpec[C]{
			Kind: ir.ActionSend, Name: sendID, EventType: eventType,
			DelayExpr: ir.StaticDelay[C](delay),
			IDExpr:    func(C, Event) string { return string(eventType) },
		})
		state.Exit = append(state.Exit, ir.ActionSpec[C]{
			Kind: ir.ActionCancel, Name: sendID,
			CancelIDExpr: func(C, Event) string { return string(eventType) },
		})
		t := ir.NewTransitionConfig[C](eventType, tb.target)
		t.Guard = tb.guard
		t.GuardFn = ir.Guard[C](tb.guardFn)
		t.Actions = append([]ActionSpec[C]{}, tb.actions...)
		t.Delay = delay
		state.Transitions = append(state.Transitions, t)
	}

	if sb.onDone != "" {
		doneEvent := EventType("done.state." + string(sb.id))
		state.Transitions = append(state.Transitions, ir.NewTransitionConfig[C](doneEvent, sb.onDone))
	}

	for _, tb := range sb.transitions {
		state.Transitions = append(state.Transitions, buildTransition(tb))
	}
	for _, tb := range sb.always {
		state.Always = append(state.Always, buildTransition(tb))
	}

	machine.States[sb.id] = state

	for _, child := range sb.children {
		buildStateRecursive(child, sb.id, machine)
	}
}

func buildTransition[C any](tb *TransitionBuilder[C]) *ir.TransitionConfig[C] {
	t := ir.NewTransitionConfig[C](tb.event, tb.target)
	t.Internal = tb.internal
	t.Guard = tb.guard
	t.GuardFn = ir.Guard[C](tb.guardFn)
	t.Actions = append([]ActionSpec[C]{}, tb.actions...)
	return t
}

// --- StateBuilder methods ---

// Final marks this state as a final state.
func (b *StateBuilder[C]) Final() *StateBuilder[C] {
	b.stateType = StateTypeFinal
	return b
}

// Parallel marks this state as a parallel (orthogonal-regions) state; its
// children, added via Region, are all active simultaneously.
func (b *StateBuilder[C]) Parallel() *StateBuilder[C] {
	b.stateType = StateTypeParallel
	return b
}

// Region adds an orthogonal region to a parallel state. Equivalent to
// State, named distinctly so parallel machines read clearly.
func (b *StateBuilder[C]) Region(id StateID) *StateBuilder[C] {
	return b.State(id)
}

// History adds a history pseudostate child, defaulting to shallow; chain
// .Deep() and .Default(...) to customize.
func (b *StateBuilder[C]) History(id StateID) *StateBuilder[C] {
	h := b.State(id)
	h.stateType = StateTypeHistory
	return h
}

// Deep marks a history node as deep (remembers the full active subtree).
func (b *StateBuilder[C]) Deep() *StateBuilder[C] {
	b.historyKind = HistoryTypeDeep
	return b
}

// Shallow marks a history node as shallow (remembers only the immediate
// active child); this is the default.
func (b *StateBuilder[C]) Shallow() *StateBuilder[C] {
	b.historyKind = HistoryTypeShallow
	return b
}

// Default sets a history node's fallback target for when nothing has been
// recorded yet.
func (b *StateBuilder[C]) Default(target StateID) *StateBuilder[C] {
	b.historyDflt = target
	return b
}

// OnEntry adds a named entry action to the state.
func (b *StateBuilder[C]) OnEntry(action ActionType) *StateBuilder[C] {
	b.entry = append(b.entry, NamedAction[C](action))
	return b
}

// OnEntryFunc adds an inline entry action.
func (b *StateBuilder[C]) OnEntryFunc(action ActionSpec[C]) *StateBuilder[C] {
	b.entry = append(b.entry, action)
	return b
}

// OnExit adds a named exit action to the state.
func (b *StateBuilder[C]) OnExit(action ActionType) *StateBuilder[C] {
	b.exit = append(b.exit, NamedAction[C](action))
	return b
}

// OnExitFunc adds an inline exit action.
func (b *StateBuilder[C]) OnExitFunc(action ActionSpec[C]) *StateBuilder[C] {
	b.exit = append(b.exit, action)
	return b
}

// OnEntryAssign adds a whole-context mutation on entry, folded into the
// context once per step rather than appearing in Actions (spec §4.3).
func (b *StateBuilder[C]) OnEntryAssign(fn Action[C]) *StateBuilder[C] {
	b.entry = append(b.entry, Assign[C](fn))
	return b
}

// OnExitAssign adds a whole-context mutation on exit, folded into the
// context once per step rather than appearing in Actions (spec §4.3).
func (b *StateBuilder[C]) OnExitAssign(fn Action[C]) *StateBuilder[C] {
	b.exit = append(b.exit, Assign[C](fn))
	return b
}

// Activity registers a long-running activity, started on entry and
// stopped on exit.
func (b *StateBuilder[C]) Activity(activity ActivityType) *StateBuilder[C] {
	b.activities = append(b.activities, activity)
	return b
}

// After starts a delayed transition, fired delay after entry unless the
// node is exited first (spec §4.2's `after` normalization).
func (b *StateBuilder[C]) After(delay time.Duration) *TransitionBuilder[C] {
	tb := &TransitionBuilder[C]{state: b, delay: delay}
	b.after = append(b.after, tb)
	return tb
}

// OnDone adds a transition fired when every region of this compound or
// parallel state reaches a final state (spec §4.2's `onDone`).
func (b *StateBuilder[C]) OnDone(target StateID) *StateBuilder[C] {
	b.onDone = target
	return b
}

// Invoke hooks the interpreter to an external collaborator; the core
// never spawns anything (spec §1 Non-goals, §6).
func (b *StateBuilder[C]) Invoke(name, src string, onDone, onError StateID) *StateBuilder[C] {
	b.invoke = &ir.InvokeConfig[C]{ID: name, Src: src, OnDone: onDone, OnError: onError}
	return b
}

// WithInitial sets the initial child state for a compound state.
func (b *StateBuilder[C]) WithInitial(initial StateID) *StateBuilder[C] {
	b.initial = initial
	return b
}

// State starts building a nested child state.
func (b *StateBuilder[C]) State(id StateID) *StateBuilder[C] {
	child := &StateBuilder[C]{machine: b.machine, parent: b, id: id, stateType: StateTypeAtomic, historyKind: HistoryTypeShallow}
	b.children = append(b.children, child)
	return child
}

// On starts building a new transition triggered by the given event.
func (b *StateBuilder[C]) On(event EventType) *TransitionBuilder[C] {
	tb := &TransitionBuilder[C]{state: b, event: event}
	b.transitions = append(b.transitions, tb)
	return tb
}

// Always adds an eventless transition, checked after every step that
// leaves this state active (spec §4.2).
func (b *StateBuilder[C]) Always() *TransitionBuilder[C] {
	tb := &TransitionBuilder[C]{state: b}
	b.always = append(b.always, tb)
	return tb
}

// Done completes the state definition and returns to the machine builder.
func (b *StateBuilder[C]) Done() *MachineBuilder[C] {
	return b.machine
}

// End completes a nested state and returns to the parent StateBuilder.
// Use this instead of Done() when building nested states.
func (b *StateBuilder[C]) End() *StateBuilder[C] {
	if b.parent != nil {
		return b.parent
	}
	return nil
}

// --- TransitionBuilder methods ---

// Target sets the target state for the transition.
func (b *TransitionBuilder[C]) Target(target StateID) *TransitionBuilder[C] {
	b.target = target
	return b
}

// Internal marks the transition as internal even though it has a target:
// no exit/entry of its source fires, only actions.
func (b *TransitionBuilder[C]) Internal() *TransitionBuilder[C] {
	b.internal = true
	return b
}

// Guard sets the named guard condition for the transition.
func (b *TransitionBuilder[C]) Guard(guard GuardType) *TransitionBuilder[C] {
	b.guard = guard
	return b
}

// GuardFunc sets an inline guard condition for the transition.
func (b *TransitionBuilder[C]) GuardFunc(guard Guard[C]) *TransitionBuilder[C] {
	b.guardFn = guard
	return b
}

// Do adds a named action to be executed during the transition.
func (b *TransitionBuilder[C]) Do(action ActionType) *TransitionBuilder[C] {
	b.actions = append(b.actions, NamedAction[C](action))
	return b
}

// DoFunc adds an inline action to be executed during the transition.
func (b *TransitionBuilder[C]) DoFunc(action ActionSpec[C]) *TransitionBuilder[C] {
	b.actions = append(b.actions, action)
	return b
}

// Assign adds a whole-context mutation to the transition, folded into the
// context once per step rather than appearing in Actions (spec §4.3,
// §4.5 step 4's "assign(count=count+1)").
func (b *TransitionBuilder[C]) Assign(fn Action[C]) *TransitionBuilder[C] {
	b.actions = append(b.actions, Assign[C](fn))
	return b
}

// Log adds an inline log action, resolved against the step's final
// context and event and handed to the interpreter's logger (spec §4.3's
// "log(ctx=>ctx)").
func (b *TransitionBuilder[C]) Log(fn func(C, Event) any) *TransitionBuilder[C] {
	b.actions = append(b.actions, LogAction[C](fn))
	return b
}

// On starts a new transition on the same state (chainable).
func (b *TransitionBuilder[C]) On(event EventType) *TransitionBuilder[C] {
	return b.state.On(event)
}

// After starts a new delayed transition on the same state (chainable).
func (b *TransitionBuilder[C]) After(delay time.Duration) *TransitionBuilder[C] {
	return b.state.After(delay)
}

// Done completes the state definition and returns to the machine builder.
func (b *TransitionBuilder[C]) Done() *MachineBuilder[C] {
	return b.state.Done()
}

// End completes the transition and returns to the parent StateBuilder.
// Use this instead of Done() when building transitions in nested states.
func (b *TransitionBuilder[C]) End() *StateBuilder[C] {
	return b.state
}
