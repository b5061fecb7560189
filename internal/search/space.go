package search

import (
	"context"
	"errors"
	"fmt"

	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/pyast"
	"hintgen/internal/render"
	"hintgen/internal/store"
)

// space is one problem's solution space for the length of a search. It only
// grows; every state it creates is saved right away.
type space struct {
	*Engine
	problem string
	states  []*store.State
	goals   []*store.State
}

func (e *Engine) load(ctx context.Context, st *store.State) (*space, error) {
	all, err := e.repo.States(ctx, st.Problem)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", st.Problem, err)
	}
	sp := &space{Engine: e, problem: st.Problem}
	for _, s := range all {
		sp.states = append(sp.states, s)
		if s.IsGoal() {
			sp.goals = append(sp.goals, s)
		}
	}
	return sp, nil
}

// self puts the caller's copy of st in place of the loaded one, so the links
// the search sets are visible to the caller.
func (sp *space) self(st *store.State) *store.State {
	for i, s := range sp.states {
		if s.ID == st.ID || s.Code == st.Code {
			sp.states[i] = st
			for j, g := range sp.goals {
				if g == s {
					sp.goals[j] = st
				}
			}
			return st
		}
	}
	sp.states = append(sp.states, st)
	if st.IsGoal() {
		sp.goals = append(sp.goals, st)
	}
	return st
}

// find returns the most common state among in whose code is code.
func find(in []*store.State, code string) *store.State {
	var best *store.State
	for _, s := range in {
		if s.Code == code && (best == nil || s.Count > best.Count) {
			best = s
		}
	}
	return best
}

// state returns the known state for tree, or scores and records a new one.
func (sp *space) state(ctx context.Context, tree *pyast.Node) (*store.State, error) {
	code := render.Source(tree)
	if n := find(sp.states, code); n != nil {
		return n, nil
	}
	n := &store.State{Problem: sp.problem, Code: code, Tree: tree}
	if err := sp.score(ctx, n); err != nil {
		return nil, err
	}
	return n, sp.add(ctx, n)
}

func (sp *space) score(ctx context.Context, n *store.State) error {
	score, feedback, err := sp.oracle.Score(ctx, sp.problem, n.Code)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		diag.Reportf(sp.rep, diag.SevWarning, diag.SearchOracleFailed, diag.At(n.Tree), "%s: %v", sp.problem, err)
		n.Score, n.Feedback = 0, err.Error()
		return nil
	}
	n.Score, n.Feedback = score, feedback
	return nil
}

func (sp *space) add(ctx context.Context, n *store.State) error {
	sp.states = append(sp.states, n)
	if n.IsGoal() {
		sp.goals = append(sp.goals, n)
	}
	if err := sp.repo.Save(ctx, n); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

var errBrokenEdit = errors.New("edit does not apply")

// apply performs vs on s. Vectors computed against another tree are rebased
// onto s first.
func (sp *space) apply(ctx context.Context, s *store.State, vs []*change.Vector) (*store.State, error) {
	if len(vs) == 0 {
		return s, nil
	}
	var (
		tree *pyast.Node
		err  error
	)
	if start := vs[0].Start; start == s.Tree || start == nil {
		tree, err = change.ApplyAll(s.Tree, vs)
	} else {
		var skipped []*change.Vector
		tree, _, skipped, err = differ.Rebase(vs, start, s.Tree)
		if err == nil && len(skipped) > 0 {
			err = fmt.Errorf("%d of %d vectors no longer fit", len(skipped), len(vs))
		}
	}
	if err != nil {
		diag.Reportf(sp.rep, diag.SevError, diag.SearchInfo, diag.At(s.Tree), "broken edit of %d vectors: %v", len(vs), err)
		return nil, fmt.Errorf("%w: %w", errBrokenEdit, err)
	}
	return sp.state(ctx, tree)
}

func distance(a, b *store.State) (float64, []*change.Vector) {
	return differ.Distance(a.Tree, b.Tree, differ.Options{})
}

// link records the path in the repository: every state on it points at the
// goal and at the state after it.
func (sp *space) link(ctx context.Context, res *Result) error {
	for i, step := range res.Path {
		from := step.From
		from.GoalID = res.Goal.ID
		from.NextID = step.To.ID
		if i == 0 {
			from.GoalDist = res.GoalDist
		}
		if err := sp.repo.Save(ctx, from); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	return nil
}
