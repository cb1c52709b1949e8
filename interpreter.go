package statechart

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/statecharts-go/engine/internal/ir"
)

// Interpreter is the mutable, single-threaded runtime built on top of the
// pure Definition.Transition: it owns the current State, a FIFO/LIFO
// event queue, a Clock for delayed sends, and the per-id cancellation
// table "cancel" needs (spec §5, §6 — the teacher calls this a Service).
type Interpreter[C any] struct {
	mu        sync.Mutex
	sessionID string
	def       *Definition[C]
	clock     Clock
	logger    *log.Logger
	queue     *eventQueue
	timers    map[string]any
	state     State[C]
	started   bool

	listeners []func(State[C])
}

// SessionID is the interpreter's unique runtime identity, generated once
// at construction and attached to every log line it emits. Useful for
// correlating a single running machine's log output when many instances
// of the same definition run concurrently (e.g. one per incident).
func (i *Interpreter[C]) SessionID() string {
	return i.sessionID
}

// InterpreterOption configures an Interpreter at construction time.
type InterpreterOption[C any] func(*Interpreter[C])

// WithClock overrides the default RealClock, typically with a
// SimulatedClock in tests of delayed sends and "after" transitions.
func WithClock[C any](clock Clock) InterpreterOption[C] {
	return func(i *Interpreter[C]) { i.clock = clock }
}

// WithLogger overrides the default log.Default() logger.
func WithLogger[C any](logger *log.Logger) InterpreterOption[C] {
	return func(i *Interpreter[C]) { i.logger = logger }
}

// Interpret builds an Interpreter ("Service", spec §6) around an already
// validated Definition.
func Interpret[C any](def *Definition[C], opts ...InterpreterOption[C]) *Interpreter[C] {
	i := &Interpreter[C]{
		sessionID: uuid.NewString(),
		def:       def,
		clock:     NewRealClock(),
		queue:     &eventQueue{},
		timers:    map[string]any{},
	}
	i.logger = log.Default().With("session", i.sessionID)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NewInterpreter builds an Interpreter directly around a validated
// MachineConfig, for callers that built one with the fluent builder or
// the reflection DSL rather than going through Machine.
func NewInterpreter[C any](config *ir.MachineConfig[C], opts ...InterpreterOption[C]) *Interpreter[C] {
	return Interpret(&Definition[C]{config: config}, opts...)
}

// Start computes the initial state and settles any eventless transitions
// it leads to. Calling Start on an already-started Interpreter is a
// no-op (spec §6).
func (i *Interpreter[C]) Start() *Interpreter[C] {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started {
		return i
	}
	i.started = true
	i.applyStep(i.def.InitialState())
	i.drainLocked()
	return i
}

// Stop halts the interpreter and cancels every pending delayed send.
// Sending to a stopped Interpreter is a no-op.
func (i *Interpreter[C]) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.started {
		return
	}
	i.started = false
	for id, t := range i.timers {
		i.clock.ClearTimeout(t)
		delete(i.timers, id)
	}
}

// Send enqueues event and drains the queue: the triggering microstep,
// any events it raises, and any eventless transitions the result leaves
// pending, in that order (spec §4.5, §4.6).
func (i *Interpreter[C]) Send(event Event) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.started {
		return
	}
	i.queue.push(event)
	i.drainLocked()
}

func (i *Interpreter[C]) drainLocked() {
	for {
		if event, ok := i.queue.pop(); ok {
			i.applyStep(i.def.Transition(i.state, event))
			continue
		}
		always := i.def.Transition(i.state, Event{}, true)
		if !always.Changed {
			return
		}
		i.applyStep(always)
	}
}

// applyStep installs next as the current state, logs its warnings, and
// dispatches its action schedule (spec §4.6).
func (i *Interpreter[C]) applyStep(next State[C]) {
	i.state = next
	for _, w := range next.Warnings {
		i.logWarning(w)
	}
	for _, a := range next.Actions {
		i.dispatchAction(a, next.Event)
	}
	for _, l := range i.listeners {
		l(next)
	}
}

func (i *Interpreter[C]) logWarning(w Warning) {
	if w.Kind == ErrorKindExecution {
		i.logger.Error("execution error", "node", w.Node, "event", w.Event, "cause", w.Cause)
		i.queue.pushRaised(Event{Type: "error.execution", Payload: w.Cause})
		return
	}
	i.logger.Warn("guard failure", "node", w.Node, "event", w.Event, "cause", w.Cause)
}

func (i *Interpreter[C]) dispatchAction(a ActionSpec[C], event Event) {
	switch a.Kind {
	case ir.ActionRaise:
		raised := Event{Type: a.EventType}
		if a.EventExpr != nil {
			raised = a.EventExpr(i.state.Context, event)
		}
		i.queue.pushRaised(raised)
	case ir.ActionSend:
		i.scheduleSend(a)
	case ir.ActionCancel:
		i.cancelSend(a.ResolvedID)
	case ir.ActionLog:
		i.logger.Info("log", "state", i.state.Value.String(i.def.config.Delimiter), "value", a.Resolved)
	case ir.ActionInvoke:
		i.logger.Debug("invoke", "name", a.InvokeName, "src", a.InvokeSrc)
	case ir.ActionStart:
		i.logger.Debug("activity start", "node", a.Node, "activity", a.Activity)
	case ir.ActionStop:
		i.logger.Debug("activity stop", "node", a.Node, "activity", a.Activity)
	}
}

func (i *Interpreter[C]) scheduleSend(a ActionSpec[C]) {
	ev := Event{Type: a.EventType}
	fire := func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		if a.ResolvedID != "" {
			delete(i.timers, a.ResolvedID)
		}
		if !i.started {
			return
		}
		i.queue.push(ev)
		i.drainLocked()
	}
	timer := i.clock.SetTimeout(fire, a.ResolvedWhen)
	if a.ResolvedID != "" {
		if old, ok := i.timers[a.ResolvedID]; ok {
			i.clock.ClearTimeout(old)
		}
		i.timers[a.ResolvedID] = timer
	}
}

func (i *Interpreter[C]) cancelSend(id string) {
	if id == "" {
		return
	}
	if t, ok := i.timers[id]; ok {
		i.clock.ClearTimeout(t)
		delete(i.timers, id)
	}
}

// State returns the interpreter's current configuration.
func (i *Interpreter[C]) State() State[C] {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// NextState previews the result of delivering event without mutating
// the interpreter — a pure peek built directly on Definition.Transition
// (spec §6).
func (i *Interpreter[C]) NextState(event Event) State[C] {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.def.Transition(i.state, event)
}

// OnTransition registers a listener invoked after every microstep the
// interpreter applies, including one in which no transition matched and
// the state is unchanged (spec §6).
func (i *Interpreter[C]) OnTransition(fn func(State[C])) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// Matches reports whether id names the current leaf or one of its
// ancestors, for every active region (spec §4.1/§6; the parallel-aware
// Value.Matches handles pattern/value prefix matching, this handles the
// simpler "is this id on the active path" query the legacy API exposes).
func (i *Interpreter[C]) Matches(id StateID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	m := i.def.config
	for _, leaf := range activeLeaves(m, "", i.state.Value) {
		if leaf == id || m.IsDescendantOf(leaf, id) {
			return true
		}
	}
	return false
}

// Done reports whether every active leaf is a final state.
func (i *Interpreter[C]) Done() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.started {
		return false
	}
	leaves := activeLeaves(i.def.config, "", i.state.Value)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		st := i.def.config.GetState(leaf)
		if st == nil || !st.IsFinal() {
			return false
		}
	}
	return true
}

// UpdateContext mutates the context directly, bypassing the assign
// pipeline — an escape hatch for test setup and host-driven updates that
// don't correspond to any transition (spec §6).
func (i *Interpreter[C]) UpdateContext(fn func(ctx *C)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	fn(&i.state.Context)
}
