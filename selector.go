package statechart

import (
	"fmt"

	"github.com/statecharts-go/engine/internal/ir"
)

// candidate pairs a transition with the node it was selected from. "from"
// is always the state whose transition table matched — the innermost
// active ancestor for that region, per spec §4.4 step 2.
type candidate[C any] struct {
	from        StateID
	transition  *ir.TransitionConfig[C]
	internal    bool
	targets     []StateID
	lcca        StateID
}

// activeLeaves enumerates every active leaf of value in document order,
// walking the machine's own Children lists (rather than Go's unordered
// map iteration over Value.Regions) so the result is deterministic.
func activeLeaves[C any](m *ir.MachineConfig[C], node StateID, value Value) []StateID {
	if value.IsLeaf() {
		if value.Leaf == "" {
			return nil
		}
		return []StateID{value.Leaf}
	}
	state := m.GetState(node)
	var out []StateID
	if state != nil {
		for _, child := range state.Children {
			if sub, ok := value.Regions[child]; ok {
				out = append(out, activeLeaves(m, child, sub)...)
			}
		}
		return out
	}
	for child, sub := range value.Regions {
		out = append(out, activeLeaves(m, child, sub)...)
	}
	return out
}

// evalGuard runs a transition's guard, recovering a panic into a
// guard_failure Warning and treating it as false (spec §7).
func evalGuard[C any](m *ir.MachineConfig[C], t *ir.TransitionConfig[C], ctx C, event Event, node StateID) (ok bool, warn *Warning) {
	if t.Guard == "" && t.GuardFn == nil {
		return true, nil
	}
	guard := t.GuardFn
	if guard == nil {
		guard = m.GetGuard(t.Guard)
	}
	if guard == nil {
		return false, &Warning{Kind: ErrorKindGuardFailure, Node: node, Event: event.Type,
			Cause: fmt.Errorf("guard %q not registered", t.Guard)}
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			warn = &Warning{Kind: ErrorKindGuardFailure, Node: node, Event: event.Type,
				Cause: fmt.Errorf("guard panicked: %v", r)}
		}
	}()
	return guard(ctx, event), nil
}

// selectForLeaf implements §4.4 steps 1–2 for a single active leaf: walk
// from the leaf to the root, and return the first transition, on the
// innermost ancestor, whose guard passes.
func selectForLeaf[C any](m *ir.MachineConfig[C], leaf StateID, ctx C, event Event) (*candidate[C], []Warning) {
	var warnings []Warning
	path := m.GetPath(leaf) // root..leaf
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		state := m.GetState(node)
		if state == nil {
			continue
		}
		for _, t := range state.FindTransitions(event.Type) {
			ok, warn := evalGuard(m, t, ctx, event, node)
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			if ok {
				return &candidate[C]{from: node, transition: t}, warnings
			}
		}
	}
	return nil, warnings
}

// selectAlwaysForLeaf checks the eventless (Always) table the same way
// FindTransitions checks the event table, used between macrosteps.
func selectAlwaysForLeaf[C any](m *ir.MachineConfig[C], leaf StateID, ctx C, event Event) (*candidate[C], []Warning) {
	var warnings []Warning
	path := m.GetPath(leaf)
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		state := m.GetState(node)
		if state == nil {
			continue
		}
		for _, t := range state.Always {
			ok, warn := evalGuard(m, t, ctx, event, node)
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			if ok {
				return &candidate[C]{from: node, transition: t}, warnings
			}
		}
	}
	return nil, warnings
}

// selectTransitions runs §4.4 end to end: per-leaf selection (steps 1–2),
// parallel union (step 3), internal/external classification (step 4), and
// the depth-then-document-order conflict tie-break (§4.4's "Tie-breaks").
// leaf selection order from activeLeaves also plays the role of "document
// order of source nodes" for step 3's union.
func selectTransitions[C any](m *ir.MachineConfig[C], value Value, ctx C, event Event, always bool) ([]candidate[C], []Warning) {
	leaves := activeLeaves(m, m.Initial, value)
	var candidates []candidate[C]
	var warnings []Warning
	seen := map[StateID]bool{}

	for _, leaf := range leaves {
		var cand *candidate[C]
		var w []Warning
		if always {
			cand, w = selectAlwaysForLeaf(m, leaf, ctx, event)
		} else {
			cand, w = selectForLeaf(m, leaf, ctx, event)
		}
		warnings = append(warnings, w...)
		if cand == nil || seen[cand.from] {
			continue
		}
		seen[cand.from] = true
		cand.internal = cand.transition.Internal || len(cand.transition.Target) == 0
		cand.targets = cand.transition.Target
		if !cand.internal {
			cand.lcca = m.FindLCCA(append([]StateID{cand.from}, cand.targets...)...)
		}
		candidates = append(candidates, *cand)
	}

	return resolveConflicts(m, candidates), warnings
}

// resolveConflicts drops lower-priority candidates whose exit frontier
// overlaps another candidate's, preferring the deeper source and, for
// ties, earlier document order (spec §4.4 "Tie-breaks").
func resolveConflicts[C any](m *ir.MachineConfig[C], candidates []candidate[C]) []candidate[C] {
	var kept []candidate[C]
	for _, c := range candidates {
		conflict := -1
		for i, k := range kept {
			if !c.internal && !k.internal && (m.IsDescendantOf(c.lcca, k.lcca) || m.IsDescendantOf(k.lcca, c.lcca) || c.lcca == k.lcca) {
				conflict = i
				break
			}
		}
		if conflict == -1 {
			kept = append(kept, c)
			continue
		}
		existing := kept[conflict]
		if len(m.GetPath(c.from)) > len(m.GetPath(existing.from)) {
			kept[conflict] = c
		}
		// equal or shallower depth: existing (earlier document order) wins, drop c.
	}
	return kept
}
