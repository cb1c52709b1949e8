package ir

import (
	"fmt"
	"strings"
)

// ValidationIssue represents a single validation problem.
type ValidationIssue struct {
	Code    string
	Message string
	Path    []string
}

// String returns a human-readable representation of the issue.
func (v ValidationIssue) String() string {
	if len(v.Path) > 0 {
		return fmt.Sprintf("[%s] %s (at %s)", v.Code, v.Message, strings.Join(v.Path, "."))
	}
	return fmt.Sprintf("[%s] %s", v.Code, v.Message)
}

// ValidationError contains every validation issue found while loading a
// definition. This is the "invalid_definition" kind from spec §7; it is
// fatal and returned from Machine(...), never from Transition.
type ValidationError struct {
	Issues []ValidationIssue
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d issues:\n", len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue.String())
	}
	return b.String()
}

// AddIssue adds a validation issue to the error.
func (e *ValidationError) AddIssue(code, message string, path ...string) {
	e.Issues = append(e.Issues, ValidationIssue{Code: code, Message: message, Path: path})
}

// HasIssues returns true if there are any validation issues.
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// Validation error codes.
const (
	ErrCodeMissingInitial         = "MISSING_INITIAL"
	ErrCodeInitialNotFound        = "INITIAL_NOT_FOUND"
	ErrCodeInvalidTarget          = "INVALID_TARGET"
	ErrCodeMissingAction          = "MISSING_ACTION"
	ErrCodeMissingGuard           = "MISSING_GUARD"
	ErrCodeNoStates               = "NO_STATES"
	ErrCodeDuplicateState         = "DUPLICATE_STATE"
	ErrCodeCompoundMissingInitial = "COMPOUND_MISSING_INITIAL"
	ErrCodeCompoundInvalidInitial = "COMPOUND_INVALID_INITIAL"
	ErrCodeInitialIsHistory       = "INITIAL_IS_HISTORY"
	ErrCodeInvalidParent          = "INVALID_PARENT"
	ErrCodeInvalidChild           = "INVALID_CHILD"
	ErrCodeParallelChildKind      = "PARALLEL_CHILD_KIND"
	ErrCodeFinalHasChildren       = "FINAL_HAS_CHILDREN"
	ErrCodeFinalHasTransitions    = "FINAL_HAS_TRANSITIONS"
	ErrCodeDelimiterConflict      = "DELIMITER_CONFLICT"
	ErrCodeHistoryInvalidDefault  = "HISTORY_INVALID_DEFAULT"
	ErrCodeEmptyID                = "EMPTY_ID"
)

// Validate checks the machine configuration against every invariant
// listed in spec §3 and §4.2, returning nil when the definition is
// well-formed.
func Validate[C any](m *MachineConfig[C]) *ValidationError {
	errs := &ValidationError{}

	if m.Delimiter == "" {
		m.Delimiter = "."
	}

	if m.Initial == "" {
		errs.AddIssue(ErrCodeMissingInitial, "initial state is required")
	}
	if len(m.States) == 0 {
		errs.AddIssue(ErrCodeNoStates, "at least one state is required")
	}
	if m.Initial != "" && len(m.States) > 0 {
		if _, ok := m.States[m.Initial]; !ok {
			errs.AddIssue(ErrCodeInitialNotFound,
				fmt.Sprintf("initial state %q not found in states", m.Initial))
		}
	}

	for stateID, state := range m.States {
		statePath := []string{"states", string(stateID)}

		if stateID == "" {
			errs.AddIssue(ErrCodeEmptyID, "state id must not be empty")
		}
		if strings.Contains(string(stateID), m.Delimiter) {
			errs.AddIssue(ErrCodeDelimiterConflict,
				fmt.Sprintf("state id %q contains the path delimiter %q", stateID, m.Delimiter),
				statePath...)
		}

		switch state.Type {
		case StateTypeCompound:
			validateCompound(m, stateID, state, statePath, errs)
		case StateTypeParallel:
			validateParallel(m, state, statePath, errs)
		case StateTypeFinal:
			if len(state.Children) > 0 {
				errs.AddIssue(ErrCodeFinalHasChildren,
					fmt.Sprintf("final state %q must not have children", stateID), statePath...)
			}
			if len(state.Transitions) > 0 || len(state.Always) > 0 {
				errs.AddIssue(ErrCodeFinalHasTransitions,
					fmt.Sprintf("final state %q must not have outgoing transitions", stateID), statePath...)
			}
		case StateTypeHistory:
			if state.Parent == "" {
				errs.AddIssue(ErrCodeInvalidParent,
					fmt.Sprintf("history state %q must have a parent state", stateID), statePath...)
			}
			if state.HistoryDefault == "" {
				errs.AddIssue(ErrCodeHistoryInvalidDefault,
					fmt.Sprintf("history %q has no default target", stateID), statePath...)
			} else if _, ok := m.States[state.HistoryDefault]; !ok {
				errs.AddIssue(ErrCodeHistoryInvalidDefault,
					fmt.Sprintf("history %q default target %q not found", stateID, state.HistoryDefault),
					statePath...)
			}
		}

		if state.Parent != "" {
			parent, ok := m.States[state.Parent]
			if !ok {
				errs.AddIssue(ErrCodeInvalidParent,
					fmt.Sprintf("parent state %q not found", state.Parent), statePath...)
			} else if !parent.IsCompound() && !parent.IsParallel() {
				errs.AddIssue(ErrCodeInvalidParent,
					fmt.Sprintf("parent state %q is neither compound nor parallel", state.Parent), statePath...)
			}
		}

		validateActions(m, state.Entry, append(statePath, "entry"), errs)
		validateActions(m, state.Exit, append(statePath, "exit"), errs)

		for i, t := range state.Transitions {
			validateTransition(m, t, append(statePath, "transitions", fmt.Sprintf("%d", i)), errs)
		}
		for i, t := range state.Always {
			validateTransition(m, t, append(statePath, "always", fmt.Sprintf("%d", i)), errs)
		}
	}

	if errs.HasIssues() {
		return errs
	}
	return nil
}

func validateCompound[C any](m *MachineConfig[C], stateID StateID, state *StateConfig[C], statePath []string, errs *ValidationError) {
	if state.Initial == "" {
		errs.AddIssue(ErrCodeCompoundMissingInitial,
			fmt.Sprintf("compound state %q must have an initial child state", stateID), statePath...)
	} else {
		isChild := false
		for _, childID := range state.Children {
			if childID == state.Initial {
				isChild = true
				break
			}
		}
		if !isChild {
			errs.AddIssue(ErrCodeCompoundInvalidInitial,
				fmt.Sprintf("initial state %q must be a child of compound state %q", state.Initial, stateID),
				statePath...)
		} else if initial := m.States[state.Initial]; initial != nil && initial.IsHistory() {
			errs.AddIssue(ErrCodeInitialIsHistory,
				fmt.Sprintf("initial state of %q must not be a history node", stateID), statePath...)
		}
	}
	for i, childID := range state.Children {
		childPath := append(append([]string{}, statePath...), "children", fmt.Sprintf("%d", i))
		child, ok := m.States[childID]
		if !ok {
			errs.AddIssue(ErrCodeInvalidChild, fmt.Sprintf("child state %q not found", childID), childPath...)
		} else if child.Parent != stateID {
			errs.AddIssue(ErrCodeInvalidChild,
				fmt.Sprintf("child state %q has incorrect parent %q, expected %q", childID, child.Parent, stateID),
				childPath...)
		}
	}
}

func validateParallel[C any](m *MachineConfig[C], state *StateConfig[C], statePath []string, errs *ValidationError) {
	for i, childID := range state.Children {
		path := append(append([]string{}, statePath...), "children", fmt.Sprintf("%d", i))
		child, ok := m.States[childID]
		if !ok {
			errs.AddIssue(ErrCodeInvalidChild, fmt.Sprintf("child state %q not found", childID), path...)
			continue
		}
		if !child.IsCompound() && !child.IsParallel() {
			errs.AddIssue(ErrCodeParallelChildKind,
				fmt.Sprintf("parallel region %q must be compound or parallel, got %s", childID, child.Type), path...)
		}
	}
}

func validateActions[C any](m *MachineConfig[C], actions []ActionSpec[C], path []string, errs *ValidationError) {
	for i, a := range actions {
		if a.Kind == ActionPure && a.Name != "" && a.PureFn == nil {
			if _, ok := m.Actions[a.Name]; !ok {
				errs.AddIssue(ErrCodeMissingAction,
					fmt.Sprintf("action %q is not registered", a.Name),
					append(append([]string{}, path...), fmt.Sprintf("%d", i))...)
			}
		}
	}
}

func validateTransition[C any](m *MachineConfig[C], t *TransitionConfig[C], path []string, errs *ValidationError) {
	for _, target := range t.Target {
		if _, ok := m.States[target]; !ok {
			errs.AddIssue(ErrCodeInvalidTarget, fmt.Sprintf("transition target %q not found", target), path...)
		}
	}
	if t.Guard != "" && t.GuardFn == nil {
		if _, ok := m.Guards[t.Guard]; !ok {
			errs.AddIssue(ErrCodeMissingGuard, fmt.Sprintf("guard %q is not registered", t.Guard), path...)
		}
	}
	validateActions(m, t.Actions, append(append([]string{}, path...), "actions"), errs)
}
