package search

import (
	"context"
	"errors"
	"slices"

	"hintgen/internal/change"
	"hintgen/internal/differ"
	"hintgen/internal/store"
)

// candidate is a subset of the edit to the goal and the state it produces.
type candidate struct {
	edit []*change.Vector
	next *store.State
}

// attempt holds the best goal found so far while minimising an edit.
type attempt struct {
	goal  *store.State
	dist  float64
	edits []*change.Vector
}

// optimizeGoal walks the lattice of subsets of changes level by level, looking
// for a passing state no further from s than the goal. Supersets of the best
// subset found so far are not explored. When the goal stays the same it
// returns every subset it tried; otherwise it moves s's goal and returns nil.
func (sp *space) optimizeGoal(ctx context.Context, s *store.State, cur *attempt, changes []*change.Vector) ([]candidate, bool, error) {
	type branch struct {
		edits, next []*change.Vector
	}
	orig := cur.goal
	var all []candidate
	level := []branch{{next: changes}}
	for len(level) > 0 {
		var nextLevel []branch
		for _, b := range level {
			for i := range b.next {
				if err := ctx.Err(); err != nil {
					return nil, false, err
				}
				edits := append(slices.Clone(b.edits), b.next[i])
				if strictSubset(cur.edits, edits) {
					continue
				}
				n, err := sp.apply(ctx, s, edits)
				if errors.Is(err, errBrokenEdit) {
					continue
				}
				if err != nil {
					return nil, false, err
				}
				d := differ.DistanceOf(s.Tree, n.Tree, edits)
				all = append(all, candidate{edits, n})
				if n.IsGoal() && d <= cur.dist {
					cur.goal, cur.dist, cur.edits = n, d, edits
					continue
				}
				// later changes only, so each subset is built in one order
				nextLevel = append(nextLevel, branch{edits, b.next[i+1:]})
			}
		}
		level = nextLevel
	}
	if cur.goal.Code == orig.Code {
		return all, false, nil
	}
	return nil, true, nil
}

// fastOptimizeGoal tries the all-but-one subsets of changes, and the single
// changes too when small is set, taking the first passing state no further
// from s than the goal. It returns nil if none is found.
func (sp *space) fastOptimizeGoal(ctx context.Context, s *store.State, cur *attempt, changes []*change.Vector, small bool) ([]*change.Vector, error) {
	orig := cur.goal
	for _, set := range fastPowerSet(changes, small) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strictSubset(cur.edits, set) {
			continue
		}
		n, err := sp.apply(ctx, s, set)
		if errors.Is(err, errBrokenEdit) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if d := differ.DistanceOf(s.Tree, n.Tree, set); d <= cur.dist && n.IsGoal() {
			cur.goal, cur.dist, cur.edits = n, d, set
			break
		}
	}
	if cur.goal.Code == orig.Code {
		return nil, nil
	}
	return cur.edits, nil
}

// powerSet lists every subset of l, keeping l's order inside each subset.
func powerSet(l []*change.Vector) [][]*change.Vector {
	if len(l) == 0 {
		return [][]*change.Vector{nil}
	}
	head := l[len(l)-1]
	rest := powerSet(l[:len(l)-1])
	out := make([][]*change.Vector, 0, 2*len(rest))
	for _, x := range rest {
		out = append(out, x, append(slices.Clone(x), head))
	}
	return out
}

func fastPowerSet(l []*change.Vector, small bool) [][]*change.Vector {
	var single, allButOne [][]*change.Vector
	for i := range l {
		if small {
			single = append(single, []*change.Vector{l[i]})
		}
		allButOne = append(allButOne, slices.Delete(slices.Clone(l), i, i+1))
	}
	return append(single, allButOne...)
}

// strictSubset reports whether every vector of a is in b and b has more.
func strictSubset(a, b []*change.Vector) bool {
	if len(a) >= len(b) {
		return false
	}
	rest := slices.Clone(b)
	for _, v := range a {
		i := slices.Index(rest, v)
		if i < 0 {
			return false
		}
		rest = slices.Delete(rest, i, i+1)
	}
	return true
}
