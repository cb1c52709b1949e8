package statechart

import (
	"fmt"

	"github.com/statecharts-go/engine/internal/ir"
)

// Definition is an immutable, validated statechart. Transition is a pure
// function of (Definition, State, Event): it has no hidden state, suspends
// nowhere, and is safe to call concurrently across multiple States of the
// same Definition (spec §5).
type Definition[C any] struct {
	config *ir.MachineConfig[C]
}

// Option configures Machine.
type Option[C any] func(*ir.MachineConfig[C])

// WithDelimiter overrides the default "." path delimiter.
func WithDelimiter[C any](delimiter string) Option[C] {
	return func(m *ir.MachineConfig[C]) { m.Delimiter = delimiter }
}

// WithContext overrides the initial context supplied by the config.
func WithContext[C any](ctx C) Option[C] {
	return func(m *ir.MachineConfig[C]) { m.Context = ctx }
}

// WithActions merges named action implementations into the definition,
// resolving Pure action records authored by name in the IR.
func WithActions[C any](actions map[ActionType]Action[C]) Option[C] {
	return func(m *ir.MachineConfig[C]) {
		for name, fn := range actions {
			m.Actions[name] = ir.Action[C](fn)
		}
	}
}

// WithGuards merges named guard implementations into the definition.
func WithGuards[C any](guards map[GuardType]Guard[C]) Option[C] {
	return func(m *ir.MachineConfig[C]) {
		for name, fn := range guards {
			m.Guards[name] = ir.Guard[C](fn)
		}
	}
}

// Machine validates config and, on success, returns an immutable
// Definition. A non-nil error is always an invalid_definition
// *ValidationError (spec §7) — callers use errors.As to inspect issues.
func Machine[C any](config *ir.MachineConfig[C], opts ...Option[C]) (*Definition[C], error) {
	for _, opt := range opts {
		opt(config)
	}
	if err := ir.Validate(config); err != nil {
		return nil, err
	}
	return &Definition[C]{config: config}, nil
}

// InitialState computes the definition's initial configuration by
// delivering the implicit xstate.init event. It is idempotent: repeated
// calls on the same Definition produce value-equal results (spec §8).
func (d *Definition[C]) InitialState() State[C] {
	prior := State[C]{Value: Value{}, Context: d.config.Context, History: map[StateID]Value{}}
	candidates := []candidate[C]{{
		from:    d.config.Initial,
		targets: []StateID{d.config.Initial},
		lcca:    "",
	}}
	return step(d.config, prior, candidates, InitEvent)
}

// Transition computes the next configuration from a prior state and an
// event. from must be a State; there is no form that takes a bare Value
// (StateFrom builds a State from one). It never mutates from. Guard
// failures become Warnings, and a panic in an assignment becomes the
// preserved prior configuration with an execution Warning (spec §7). A
// panic in a send, log or pure expression function is not recovered and
// reaches the caller.
func (d *Definition[C]) Transition(from State[C], event Event, always ...bool) State[C] {
	checkAlways := len(always) > 0 && always[0]
	candidates, warnings := selectTransitions(d.config, from.Value, from.Context, event, checkAlways)
	next := step(d.config, from, candidates, event)
	next.Warnings = append(warnings, next.Warnings...)
	return next
}

// StateFrom constructs a State directly from a value and context, for
// test setup (spec §6 State.from).
func StateFrom[C any](d *Definition[C], value any, ctx C) State[C] {
	v := ir.ToValue(d.config, value)
	return State[C]{Value: v, Context: ctx, History: map[StateID]Value{}, machine: d.config}
}

// ToValue exposes the Value normalization spec §4.1 describes
// (to_value): a dotted string, a path slice, a nested map, or an existing
// Value all normalize to canonical form against this definition's tree.
func (d *Definition[C]) ToValue(x any) Value {
	return ir.ToValue(d.config, x)
}

// Config returns the validated, immutable IR this Definition wraps, for
// callers (the interpreter, export, reflect) that need direct access.
func (d *Definition[C]) Config() *ir.MachineConfig[C] {
	return d.config
}

// String implements fmt.Stringer for debugging/log lines.
func (d *Definition[C]) String() string {
	return fmt.Sprintf("Definition(%s)", d.config.ID)
}
