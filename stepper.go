package statechart

import (
	"fmt"
	"reflect"

	"github.com/statecharts-go/engine/internal/ir"
)

// enterSubtree resolves node's entered value given a set of targets that
// must end up active somewhere under it, defaulting any branch the
// targets don't touch to its own initial/history value (spec §4.5 step 2).
// It also returns the root-first document-order list of every descendant
// actually entered, history pseudostates resolved away.
func enterSubtree[C any](m *ir.MachineConfig[C], node StateID, targets []StateID, history map[StateID]Value) (Value, []StateID) {
	if node == "" {
		return enterRoot(m, targets, history)
	}
	state := m.GetState(node)
	if state == nil {
		return Value{Leaf: node}, nil
	}
	if state.IsHistory() {
		def := state.HistoryDefault
		if h, ok := history[node]; ok {
			leaves := activeLeaves(m, def, h)
			if len(leaves) == 0 {
				leaves = []StateID{node}
			}
			return h, leaves
		}
		if def == "" {
			def = node
		}
		return enterSubtree(m, def, targets, history)
	}
	if state.IsParallel() {
		regions := map[StateID]Value{}
		var order []StateID
		for _, child := range state.Children {
			v, entered := enterSubtree(m, child, targets, history)
			regions[child] = v
			order = append(order, child)
			order = append(order, entered...)
		}
		return Value{Regions: regions}, order
	}
	if state.IsCompound() {
		for _, child := range state.Children {
			for _, t := range targets {
				if t == child || m.IsDescendantOf(t, child) {
					v, entered := enterSubtree(m, child, targets, history)
					return v, append([]StateID{child}, entered...)
				}
			}
		}
		v, entered := enterSubtree(m, state.Initial, targets, history)
		return v, append([]StateID{state.Initial}, entered...)
	}
	return Value{Leaf: node}, nil
}

// enterRoot handles the virtual root node "" passed as lcca only for the
// synthetic initial transition (spec §4.5: the initial configuration has
// no already-active ancestor, so the top-level state itself must appear
// in the entered set, unlike an ordinary LCCA which is never re-entered).
func enterRoot[C any](m *ir.MachineConfig[C], targets []StateID, history map[StateID]Value) (Value, []StateID) {
	tops := map[StateID]bool{}
	var order []StateID
	regions := map[StateID]Value{}
	var only Value
	for _, t := range targets {
		top := t
		for {
			st := m.GetState(top)
			if st == nil || st.Parent == "" {
				break
			}
			top = st.Parent
		}
		if tops[top] {
			continue
		}
		tops[top] = true
		v, entered := enterSubtree(m, top, targets, history)
		regions[top] = v
		only = v
		order = append(order, top)
		order = append(order, entered...)
	}
	if len(tops) == 1 {
		return only, order
	}
	return Value{Regions: regions}, order
}

// setSubtreeAt splices newSubtree into value at the position named by
// path (root-first, as from MachineConfig.GetPath), peeling one Value
// layer only at parallel nodes — compound nodes are transparent in the
// Value representation (spec §4.1: only orthogonal regions branch).
func setSubtreeAt[C any](m *ir.MachineConfig[C], value Value, path []StateID, newSubtree Value) Value {
	if len(path) == 0 {
		return newSubtree
	}
	node := path[0]
	state := m.GetState(node)
	if state != nil && state.IsParallel() && !value.IsLeaf() && len(path) > 1 {
		regions := map[StateID]Value{}
		for k, v := range value.Regions {
			regions[k] = v
		}
		next := path[1]
		regions[next] = setSubtreeAt(m, regions[next], path[1:], newSubtree)
		return Value{Regions: regions}
	}
	if len(path) == 1 {
		return newSubtree
	}
	return setSubtreeAt(m, value, path[1:], newSubtree)
}

// exitedDescendants returns every active descendant of lcca in the prior
// value, ordered deepest-first, later-region-before-earlier (spec §4.5
// step 1's "leaf-first, document-reverse").
func exitedDescendants[C any](m *ir.MachineConfig[C], lcca StateID, priorValue Value) []StateID {
	leaves := activeLeaves(m, m.Initial, priorValue)
	var perLeaf [][]StateID
	for _, leaf := range leaves {
		if lcca != "" && leaf != lcca && !m.IsDescendantOf(leaf, lcca) {
			continue
		}
		path := m.GetPath(leaf)
		idx := -1
		for i, n := range path {
			if n == lcca {
				idx = i
				break
			}
		}
		chain := path[idx+1:]
		reversed := make([]StateID, len(chain))
		for i, n := range chain {
			reversed[len(chain)-1-i] = n
		}
		perLeaf = append(perLeaf, reversed)
	}
	// Collect every node root-first in document order (each chain is
	// leaf-first), then reverse, so a node always follows all of its
	// active descendants.
	var preorder []StateID
	seen := map[StateID]bool{}
	for _, chain := range perLeaf {
		for i := len(chain) - 1; i >= 0; i-- {
			if n := chain[i]; !seen[n] {
				seen[n] = true
				preorder = append(preorder, n)
			}
		}
	}
	out := make([]StateID, len(preorder))
	for i, n := range preorder {
		out[len(preorder)-1-i] = n
	}
	return out
}

// step implements spec §4.5 end to end for a single external/internal
// transition set already selected by selectTransitions.
func step[C any](m *ir.MachineConfig[C], prior State[C], candidates []candidate[C], event Event) State[C] {
	if len(candidates) == 0 {
		next := prior
		next.Event = event
		next.Changed = false
		next.Actions = nil
		next.Warnings = nil
		return next
	}

	history := prior.History
	if history == nil {
		history = map[StateID]Value{}
	} else {
		cp := make(map[StateID]Value, len(history))
		for k, v := range history {
			cp[k] = v
		}
		history = cp
	}

	newValue := prior.Value
	var actions []ActionSpec[C]
	var exitedNodes, enteredNodes []StateID

	for _, c := range candidates {
		var transActions []ActionSpec[C]
		if c.transition != nil {
			transActions = c.transition.Actions
		}
		if c.internal {
			actions = append(actions, transActions...)
			continue
		}
		exited := exitedDescendants(m, c.lcca, newValue)
		entryValue, entered := enterSubtree(m, c.lcca, c.targets, history)

		for _, n := range exited {
			if st := m.GetState(n); st != nil {
				actions = append(actions, st.Exit...)
			}
		}
		actions = append(actions, transActions...)
		for _, n := range entered {
			if st := m.GetState(n); st != nil {
				actions = append(actions, st.Entry...)
			}
		}
		for _, n := range exited {
			if st := m.GetState(n); st != nil {
				for _, act := range st.Activities {
					actions = append(actions, ir.ActionSpec[C]{Kind: ir.ActionStop, Activity: act, Node: n})
				}
			}
		}
		for _, n := range entered {
			if st := m.GetState(n); st != nil {
				for _, act := range st.Activities {
					actions = append(actions, ir.ActionSpec[C]{Kind: ir.ActionStart, Activity: act, Node: n})
				}
			}
		}

		recordHistory(m, c.lcca, newValue, history)
		newValue = setSubtreeAt(m, newValue, m.GetPath(c.lcca), entryValue)

		exitedNodes = append(exitedNodes, exited...)
		enteredNodes = append(enteredNodes, entered...)
	}

	visible, assigns := partitionAssigns(m, actions)
	nextCtx, err := UpdateContext(prior.Context, event, assigns)
	if err != nil {
		next := prior
		next.Event = event
		next.Changed = false
		next.Warnings = []Warning{{
			Kind: ErrorKindExecution, Event: event.Type, Cause: err,
		}}
		return next
	}

	resolved := resolveDynamicActions(visible, nextCtx, event)

	activities := diffActivities(prior.Activities, resolved)

	if done := checkDone(m, exitedNodes, enteredNodes, newValue); done != "" {
		resolved = append(resolved, ir.ActionSpec[C]{Kind: ir.ActionRaise, EventType: EventType(fmt.Sprintf("done.state.%s", done))})
	}

	changed := newValue.String(m.Delimiter) != prior.Value.String(m.Delimiter) || len(resolved) > 0 ||
		!reflect.DeepEqual(nextCtx, prior.Context)

	return State[C]{
		Value:      newValue,
		Context:    nextCtx,
		Event:      event,
		History:    history,
		Actions:    resolved,
		Activities: activities,
		Changed:    changed,
		machine:    m,
	}
}

// recordHistory updates history for every compound/parallel ancestor of
// lcca (inclusive) that owns a history child, recording the pre-exit
// value of its subtree (spec §4.5 step 6). When lcca is the virtual
// root (the transition's source and targets share no common compound
// ancestor at all, e.g. two top-level siblings), there is no single
// node to start from: GetPath never contains a "" sentinel, so walking
// up from lcca would never visit the top-level state actually being
// exited. In that case every top-level ancestor of an active leaf is
// its own starting point.
func recordHistory[C any](m *ir.MachineConfig[C], lcca StateID, priorValue Value, history map[StateID]Value) {
	starts := []StateID{lcca}
	if lcca == "" {
		starts = nil
		seen := map[StateID]bool{}
		for _, leaf := range activeLeaves(m, m.Initial, priorValue) {
			path := m.GetPath(leaf)
			if len(path) == 0 || seen[path[0]] {
				continue
			}
			seen[path[0]] = true
			starts = append(starts, path[0])
		}
	}

	for _, start := range starts {
		node := start
		for node != "" {
			state := m.GetState(node)
			if state == nil {
				break
			}
			for _, child := range state.Children {
				childState := m.GetState(child)
				if childState == nil || !childState.IsHistory() {
					continue
				}
				leaves := activeLeaves(m, m.Initial, priorValue)
				var relevant []Path
				for _, leaf := range leaves {
					if leaf == node || m.IsDescendantOf(leaf, node) {
						path := m.GetPath(leaf)
						idx := -1
						for i, n := range path {
							if n == node {
								idx = i
								break
							}
						}
						if childState.HistoryKind == ir.HistoryTypeShallow && idx+2 <= len(path) {
							relevant = append(relevant, Path{path[idx+1]})
						} else {
							relevant = append(relevant, Path(path[idx+1:]))
						}
					}
				}
				if len(relevant) > 0 {
					history[child] = ir.PathsToValue(relevant)
				}
			}
			node = state.Parent
		}
	}
}

// partitionAssigns splits actions into the user-visible list and the
// Assigner list to fold into the context (spec §4.5 step 4). A Pure
// action with no PureFn names an entry/exit/transition action registered
// by name on the definition (the builder's `.OnEntry("name")` style): it
// runs as a context mutator in document order, same as an explicit Assign.
func partitionAssigns[C any](m *ir.MachineConfig[C], actions []ActionSpec[C]) ([]ActionSpec[C], []Assigner[C]) {
	var visible []ActionSpec[C]
	var assigns []Assigner[C]
	for _, a := range actions {
		if a.Kind == ir.ActionAssign && a.AssignFn != nil {
			fn := a.AssignFn
			assigns = append(assigns, AssignWhole(func(ctx C, event Event) C {
				fn(&ctx, event)
				return ctx
			}))
			continue
		}
		if a.Kind == ir.ActionPure && a.PureFn == nil {
			if fn := m.GetAction(a.Name); fn != nil {
				assigns = append(assigns, AssignWhole(func(ctx C, event Event) C {
					fn(&ctx, event)
					return ctx
				}))
				continue
			}
		}
		visible = append(visible, a)
	}
	return visible, assigns
}

// resolveDynamicActions evaluates the expression fields of send/log
// actions against the step's final context and event (spec §4.5 step 5).
func resolveDynamicActions[C any](actions []ActionSpec[C], ctx C, event Event) []ActionSpec[C] {
	out := make([]ActionSpec[C], 0, len(actions))
	for _, a := range actions {
		switch a.Kind {
		case ir.ActionSend:
			if a.EventExpr != nil {
				a.EventType = a.EventExpr(ctx, event).Type
			}
			if a.DelayExpr != nil {
				a.ResolvedWhen = a.DelayExpr(ctx, event)
			}
			if a.IDExpr != nil {
				a.ResolvedID = a.IDExpr(ctx, event)
			}
		case ir.ActionLog:
			if a.LogExpr != nil {
				a.Resolved = a.LogExpr(ctx, event)
			}
		case ir.ActionCancel:
			if a.CancelIDExpr != nil {
				a.ResolvedID = a.CancelIDExpr(ctx, event)
			}
		case ir.ActionPure:
			if a.PureFn != nil {
				out = append(out, a)
				out = append(out, resolveDynamicActions(a.PureFn(ctx, event), ctx, event)...)
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// diffActivities folds start/stop actions into the next activity map.
func diffActivities[C any](prior map[StateID]ActivityType, actions []ActionSpec[C]) map[StateID]ActivityType {
	next := map[StateID]ActivityType{}
	for k, v := range prior {
		next[k] = v
	}
	for _, a := range actions {
		switch a.Kind {
		case ir.ActionStart:
			next[a.Node] = a.Activity
		case ir.ActionStop:
			delete(next, a.Node)
		}
	}
	return next
}

// checkDone reports the id of a compound/parallel ancestor every one of
// whose regions just reached a final state, or "" if none did (spec §4.5
// step 7).
func checkDone[C any](m *ir.MachineConfig[C], exited, entered []StateID, value Value) StateID {
	candidates := map[StateID]bool{}
	for _, n := range entered {
		if st := m.GetState(n); st != nil && st.Parent != "" {
			candidates[st.Parent] = true
		}
	}
	for node := range candidates {
		state := m.GetState(node)
		if state == nil || !(state.IsCompound() || state.IsParallel()) {
			continue
		}
		if allRegionsFinal(m, node, value) {
			return node
		}
	}
	return ""
}

func allRegionsFinal[C any](m *ir.MachineConfig[C], node StateID, value Value) bool {
	leaves := activeLeaves(m, node, valueAt(m, node, value))
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		st := m.GetState(leaf)
		if st == nil || !st.IsFinal() {
			return false
		}
	}
	return true
}

// valueAt extracts the Value subtree rooted at node from the full machine
// value, by peeling Regions layers at every parallel ancestor between the
// root and node.
func valueAt[C any](m *ir.MachineConfig[C], node StateID, full Value) Value {
	path := m.GetPath(node)
	v := full
	for _, p := range path[:len(path)-1] {
		state := m.GetState(p)
		if state != nil && state.IsParallel() && !v.IsLeaf() {
			// find the child on the path after p
			idx := -1
			for i, n := range path {
				if n == p {
					idx = i
					break
				}
			}
			if idx >= 0 && idx+1 < len(path) {
				v = v.Regions[path[idx+1]]
			}
		}
	}
	return v
}
