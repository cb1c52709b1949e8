package statechart

import (
	"fmt"
	"reflect"
)

// AssignFunc is a whole-context assignment: it receives the running
// context and event and returns a partial value merged over the context
// field-by-field. Returning a C merges every field; returning a pointer to
// a partial struct with only some fields set is the caller's
// responsibility to express via AssignFieldFuncs instead when only a few
// keys should move.
type AssignFunc[C any] func(ctx C, event Event) C

// AssignFieldFunc computes a single field's next value, evaluated against
// the *running* accumulator (spec §4.3: "each... evaluated against the
// running accumulator", not the step's starting context).
type AssignFieldFunc[C any] func(ctx C, event Event) any

// Assigner is the closed union spec §4.3 describes: either a whole-context
// merge function, or a map of per-key updaters keyed by the context's Go
// struct field name.
type Assigner[C any] struct {
	whole AssignFunc[C]
	byKey map[string]AssignFieldFunc[C]
}

// AssignWhole builds an Assigner from a whole-context merge function.
func AssignWhole[C any](fn AssignFunc[C]) Assigner[C] {
	return Assigner[C]{whole: fn}
}

// AssignFields builds an Assigner from a map of per-key updaters.
func AssignFields[C any](fields map[string]AssignFieldFunc[C]) Assigner[C] {
	return Assigner[C]{byKey: fields}
}

// UpdateContext folds assigns left-to-right over ctx, per spec §4.3.
// Panics raised by user functions are recovered and returned as an
// execution *Error rather than crashing the host process.
func UpdateContext[C any](ctx C, event Event, assigns []Assigner[C]) (next C, err error) {
	next = ctx
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: ErrorKindExecution, Cause: fmt.Errorf("assignment panicked: %v", r)}
		}
	}()
	for _, a := range assigns {
		if a.whole != nil {
			next = a.whole(next, event)
			continue
		}
		for field, updater := range a.byKey {
			value := updater(next, event)
			if setErr := setField(&next, field, value); setErr != nil {
				return next, &Error{Kind: ErrorKindExecution, Cause: setErr}
			}
		}
	}
	return next, nil
}

// setField writes value into the named exported field of *ptr via
// reflection. This is the one place the engine reaches for reflection
// outside the struct-tag DSL: per-key assignment needs a field name ->
// value write, and C is only known to be "any" at this layer.
func setField[C any](ptr *C, field string, value any) error {
	rv := reflect.ValueOf(ptr).Elem()
	fv := rv.FieldByName(field)
	if !fv.IsValid() {
		return fmt.Errorf("context has no field %q", field)
	}
	if !fv.CanSet() {
		return fmt.Errorf("context field %q is not settable", field)
	}
	val := reflect.ValueOf(value)
	if !val.IsValid() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if val.Type().AssignableTo(fv.Type()) {
		fv.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(fv.Type()) {
		fv.Set(val.Convert(fv.Type()))
		return nil
	}
	return fmt.Errorf("value of type %s is not assignable to field %q of type %s", val.Type(), field, fv.Type())
}
