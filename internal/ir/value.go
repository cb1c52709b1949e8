package ir

import "strings"

// Value is the recursive state-value shape from spec §4.1: either a bare
// leaf (Leaf set, Regions nil) or, at an active parallel node, one entry
// per orthogonal region (Regions set, Leaf empty).
type Value struct {
	Leaf    StateID
	Regions map[StateID]Value
}

// Path is a single root-to-leaf chain of state ids, one per orthogonal
// region of a Value.
type Path []StateID

// IsLeaf reports whether v denotes a single atomic/final state rather than
// a parallel fan-out.
func (v Value) IsLeaf() bool {
	return v.Regions == nil
}

// String renders v using delimiter-joined dotted paths, one per region,
// joined by "+" when more than one region is active. This is the format
// the teacher's reflect/export code already expects for a flat value.
func (v Value) String(delimiter string) string {
	paths := v.ToPaths()
	parts := make([]string, len(paths))
	for i, p := range paths {
		ids := make([]string, len(p))
		for j, id := range p {
			ids[j] = string(id)
		}
		parts[i] = strings.Join(ids, delimiter)
	}
	return strings.Join(parts, "+")
}

// ToValue normalizes a dotted string, a path slice, a nested map, or an
// existing Value into canonical Value form, per spec §4.1.
func ToValue[C any](m *MachineConfig[C], x any) Value {
	switch t := x.(type) {
	case Value:
		return t
	case StateID:
		return valueFromLeaf(m, t)
	case string:
		return valueFromLeaf(m, StateID(t))
	case []StateID:
		if len(t) == 0 {
			return Value{}
		}
		return valueFromLeaf(m, t[len(t)-1])
	case map[StateID]Value:
		return Value{Regions: t}
	case map[string]any:
		regions := make(map[StateID]Value, len(t))
		for k, v := range t {
			regions[StateID(k)] = ToValue(m, v)
		}
		return Value{Regions: regions}
	default:
		return Value{}
	}
}

// valueFromLeaf expands a single leaf id into its full Value by walking
// down through any parallel regions it is a member of, and up through any
// compound ancestors to decide whether sibling regions need representing.
// For a plain (non-parallel) leaf this simply returns {Leaf: id}.
func valueFromLeaf[C any](m *MachineConfig[C], id StateID) Value {
	state := m.GetState(id)
	if state == nil {
		return Value{Leaf: id}
	}
	if state.IsParallel() {
		regions := make(map[StateID]Value, len(state.Children))
		for _, child := range state.Children {
			regions[child] = valueFromLeaf(m, m.GetInitialLeaf(child))
		}
		return Value{Regions: regions}
	}
	return Value{Leaf: id}
}

// ToPaths enumerates every leaf path a Value denotes, one per orthogonal
// region. Regions are visited in Go map iteration order, so the order of
// the result is not defined; ToPaths does not sort it.
func (v Value) ToPaths() []Path {
	if v.IsLeaf() {
		if v.Leaf == "" {
			return nil
		}
		return []Path{{v.Leaf}}
	}
	var out []Path
	for region, sub := range v.Regions {
		for _, p := range sub.ToPaths() {
			out = append(out, append(Path{region}, p...))
		}
	}
	return out
}

// PathsToValue is the inverse of ToPaths: it reconstructs a Value from a
// set of leaf paths. A single single-element path collapses to a bare
// leaf Value; anything wider rebuilds the region fan-out.
func PathsToValue(paths []Path) Value {
	if len(paths) == 0 {
		return Value{}
	}
	if len(paths) == 1 && len(paths[0]) == 1 {
		return Value{Leaf: paths[0][0]}
	}
	regions := make(map[StateID]Value)
	grouped := make(map[StateID][]Path)
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		grouped[p[0]] = append(grouped[p[0]], p[1:])
	}
	for region, rest := range grouped {
		regions[region] = PathsToValue(rest)
	}
	return Value{Regions: regions}
}

// Matches reports whether pattern is a prefix of value in every region it
// names, per spec §4.1: matches("red", {red:"walk"}) is true — "red" is a
// compound ancestor of the active leaf "walk" — but matches({red:"walk"},
// "red") is false, since the pattern must not demand more structure than
// the value actually has. m supplies the ancestor graph a bare leaf
// pattern needs to reach past value's own collapsed leaf; it may be nil,
// in which case a leaf pattern only matches an identical leaf.
func Matches[C any](m *MachineConfig[C], pattern, value Value) bool {
	if pattern.IsLeaf() {
		if value.IsLeaf() {
			if pattern.Leaf == value.Leaf {
				return true
			}
			if m == nil || pattern.Leaf == "" || value.Leaf == "" {
				return false
			}
			return m.IsDescendantOf(value.Leaf, pattern.Leaf)
		}
		// A bare leaf pattern matches a parallel value iff that leaf
		// names one of the value's own region keys with an empty
		// remainder — i.e. never, since a leaf pattern carries no
		// region key. The one case that should succeed is handled
		// above via Leaf equality against a collapsed region; bare
		// leaves against a true fan-out simply don't match.
		return false
	}
	if value.IsLeaf() {
		// Pattern demands region structure the value doesn't have.
		return false
	}
	for region, subPattern := range pattern.Regions {
		subValue, ok := value.Regions[region]
		if !ok {
			return false
		}
		if !Matches(m, subPattern, subValue) {
			return false
		}
	}
	return true
}
