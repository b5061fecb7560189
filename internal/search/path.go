package search

import (
	"context"
	"math"
	"slices"

	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/store"
)

// nextState runs the whole search for s. given fixes the goal when not nil. A
// search that gets stuck part way along the path starts over from the stuck
// state once if retry is set.
func (sp *space) nextState(ctx context.Context, s, given *store.State, retry bool) (*Result, error) {
	if s.IsGoal() {
		return nil, ErrSolved
	}
	goal := given
	if goal == nil {
		var err error
		if goal, err = sp.chooseGoal(ctx, s); err != nil {
			return nil, err
		}
	}
	if goal == nil {
		diag.Reportf(sp.rep, diag.SevWarning, diag.SearchNoGoal, diag.At(s.Tree), "problem %s has no goal", sp.problem)
		return nil, ErrNoGoal
	}
	dist, changes := distance(s, goal)
	cur := &attempt{goal: goal, dist: dist, edits: changes}
	if len(changes) == 0 {
		return &Result{Goal: goal, GoalDist: dist, Path: []Step{{Base: s, From: s, To: goal}}}, nil
	}

	small := true
	for len(changes) > sp.opts.ExactCutoff {
		fast, err := sp.fastOptimizeGoal(ctx, s, cur, changes, small)
		if err != nil {
			return nil, err
		}
		small = false
		if fast != nil {
			changes = fast
			continue
		}
		if len(changes) > sp.opts.ApproxCutoff {
			diag.Reportf(sp.rep, diag.SevInfo, diag.SearchApproximate, diag.At(s.Tree),
				"%d changes left, the next state is the goal", len(changes))
			return &Result{
				Goal:          cur.goal,
				GoalDist:      cur.dist,
				ChangesToGoal: len(changes),
				Path:          []Step{{Base: s, From: s, Edit: changes, To: cur.goal}},
			}, nil
		}
		break
	}

	combos, moved, err := sp.optimizeGoal(ctx, s, cur, changes)
	if err != nil {
		return nil, err
	}
	if moved {
		changes = differ.Diff(s.Tree, cur.goal.Tree, differ.Options{})
		if combos, err = sp.combinations(ctx, s, changes); err != nil {
			return nil, err
		}
	}

	var valid []candidate
	for _, c := range combos {
		ok, err := sp.isValidNextState(ctx, s, c.next, cur)
		if err != nil {
			return nil, err
		}
		if ok {
			valid = append(valid, c)
		}
	}
	slices.SortStableFunc(valid, func(a, b candidate) int { return len(a.edit) - len(b.edit) })
	if len(valid) == 0 {
		diag.Reportf(sp.rep, diag.SevWarning, diag.SearchNoNextState, diag.At(s.Tree),
			"none of %d candidates toward goal %s is valid", len(combos), cur.goal.ID)
		return nil, ErrNoNextState
	}

	path, err := sp.statesInPath(ctx, s, cur, valid, retry)
	if err != nil {
		return nil, err
	}
	return &Result{Goal: cur.goal, GoalDist: cur.dist, ChangesToGoal: len(changes), Path: path}, nil
}

// combinations applies every subset of changes to s. Past the approximate
// cutoff only singletons and all-but-one subsets are tried.
func (sp *space) combinations(ctx context.Context, s *store.State, changes []*change.Vector) ([]candidate, error) {
	var sets [][]*change.Vector
	if len(changes) > sp.opts.ApproxCutoff {
		diag.Reportf(sp.rep, diag.SevInfo, diag.SearchApproximate, diag.At(s.Tree),
			"%d changes to the new goal, trying small subsets only", len(changes))
		sets = fastPowerSet(changes, true)
	} else {
		sets = powerSet(changes)
	}
	var out []candidate
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := sp.apply(ctx, s, set)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		out = append(out, candidate{set, n})
	}
	return out, nil
}

// isValidNextState accepts n as a step from s when it is a different program
// that parses, scores no worse than s and, unless it passes, is closer to the
// goal than s.
func (sp *space) isValidNextState(ctx context.Context, s, n *store.State, cur *attempt) (bool, error) {
	if n == nil || n == s || n.Code == s.Code {
		return false, nil
	}
	if _, err := sp.parser.Parse(ctx, []byte(n.Code)); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		diag.Reportf(sp.rep, diag.SevWarning, diag.SearchUnparsableStep, diag.At(n.Tree), "%v", err)
		return false, nil
	}
	if n.Score < s.Score && math.Abs(n.Score-s.Score) > sp.opts.ScoreTolerance {
		return false, nil
	}
	if !n.IsGoal() && n.Code != cur.goal.Code {
		d, _ := distance(n, cur.goal)
		n.GoalID, n.GoalDist = cur.goal.ID, d
		if d >= cur.dist {
			return false, nil
		}
	}
	return true, nil
}

// statesInPath strings the most desirable valid candidates into a path from s
// to a passing state.
func (sp *space) statesInPath(ctx context.Context, s *store.State, cur *attempt, valid []candidate, retry bool) ([]Step, error) {
	var path []Step
	at := s
	for !at.IsGoal() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, bestScore := -1, -1.0
		for i, c := range valid {
			if d := Desirability(at, c.next, sp.opts.Weights); d > bestScore {
				best, bestScore = i, d
			}
		}
		if best < 0 {
			if at == s || !retry {
				diag.Reportf(sp.rep, diag.SevWarning, diag.SearchNoNextState, diag.At(at.Tree),
					"stuck on the way to goal %s", cur.goal.ID)
				break
			}
			diag.Reportf(sp.rep, diag.SevInfo, diag.SearchRetry, diag.At(at.Tree),
				"no step left toward goal %s, searching again", cur.goal.ID)
			more, err := sp.nextState(ctx, at, nil, false)
			switch {
			case err == nil:
				path = append(path, more.Path...)
			case ctx.Err() != nil:
				return nil, ctx.Err()
			}
			break
		}
		c := valid[best]
		path = append(path, Step{Base: s, From: at, Edit: c.edit, To: c.next})
		if !c.next.IsGoal() {
			valid = filterChanges(slices.Delete(valid, best, best+1), c.edit)
		}
		at = c.next
	}
	return path, nil
}

// filterChanges keeps the candidates that include every vector of taken and
// strips those vectors from them. Candidates with nothing left are dropped.
func filterChanges(cands []candidate, taken []*change.Vector) []candidate {
	var out []candidate
	for _, c := range cands {
		rest := slices.Clone(c.edit)
		ok := true
		for _, v := range taken {
			i := slices.Index(rest, v)
			if i < 0 {
				ok = false
				break
			}
			rest = slices.Delete(rest, i, i+1)
		}
		if ok && len(rest) > 0 {
			out = append(out, candidate{rest, c.next})
		}
	}
	return out
}
