// Package search finds the next state a hint should lead a submission to.
//
// It picks the closest known goal for the submission, renames the goal's
// helpers and variables to line up with the student's, and looks for the
// smallest part of the difference that still yields a valid program no worse
// than the student's and closer to the goal.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/oracle"
	"hintgen/internal/pyparse"
	"hintgen/internal/store"
	"hintgen/internal/trace"
)

var (
	// ErrNoGoal means the problem has no passing state to aim for.
	ErrNoGoal = errors.New("no goal state")
	// ErrNoNextState means no part of the edit to the goal made a valid step.
	ErrNoNextState = errors.New("no valid next state")
	// ErrSolved means the state already passes every test.
	ErrSolved = errors.New("state already passes")
)

// Weights weigh the parts of Desirability.
type Weights struct {
	Seen  float64
	Dist  float64
	Score float64
}

// Options tune the search. Zero fields take their defaults.
type Options struct {
	// ExactCutoff is the edit count up to which the whole subset lattice is walked
	// without first shrinking the edit approximately.
	ExactCutoff int
	// ApproxCutoff is the edit count above which a failed approximate shrink gives
	// up and aims straight at the goal.
	ApproxCutoff int
	// MaxVariableMap bounds the name sets searched for the best renaming. Larger
	// sets are paired up in order instead.
	MaxVariableMap int
	ScoreTolerance float64
	Weights        Weights
	// Restricted names are the problem's given functions; they are never
	// treated as helpers.
	Restricted []string
}

func (o Options) withDefaults() Options {
	if o.ExactCutoff <= 0 {
		o.ExactCutoff = 3
	}
	if o.ApproxCutoff <= 0 {
		o.ApproxCutoff = 6
	}
	if o.MaxVariableMap <= 0 {
		o.MaxVariableMap = 6
	}
	if o.ScoreTolerance <= 0 {
		o.ScoreTolerance = 0.001
	}
	if o.Weights == (Weights{}) {
		o.Weights = Weights{Seen: 4, Dist: 2, Score: 1}
	}
	return o
}

// Step is one hop on the way to the goal. Edit holds the vectors leading From
// to To. They are expressed against Base's tree and apply after the vectors of
// the earlier steps with the same Base.
type Step struct {
	Base *store.State
	From *store.State
	Edit []*change.Vector
	To   *store.State
}

// Result is the outcome of a search for one submission.
type Result struct {
	Goal     *store.State
	GoalDist float64
	// ChangesToGoal counts the vectors of the edit that was minimised.
	ChangesToGoal int
	// Path runs from the submission to a passing state. It is never empty.
	Path []Step
}

// Edit returns the vectors of the first step.
func (r *Result) Edit() []*change.Vector { return r.Path[0].Edit }

// Next returns the state the first step leads to.
func (r *Result) Next() *store.State { return r.Path[0].To }

// Engine searches the solution space kept in a repository.
type Engine struct {
	opts   Options
	repo   store.Repository
	oracle oracle.Oracle
	parser *pyparse.Parser
	rep    diag.Reporter
}

// New returns an engine. rep may be nil.
func New(repo store.Repository, orc oracle.Oracle, opts Options, rep diag.Reporter) *Engine {
	return &Engine{
		opts:   opts.withDefaults(),
		repo:   repo,
		oracle: orc,
		parser: pyparse.New(),
		rep:    rep,
	}
}

// Options returns the options in effect.
func (e *Engine) Options() Options { return e.opts }

// NextState searches for the step a hint for st should suggest. st must carry
// its canonical tree. The states the search discovers are saved, and st is
// saved with its goal and next state linked.
func (e *Engine) NextState(ctx context.Context, st *store.State) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeStage, "search")
	var res *Result
	defer func() {
		if res != nil {
			span.End(fmt.Sprintf("goal %s, %d steps", res.Goal.ID, len(res.Path)))
		} else {
			span.End("no result")
		}
	}()
	if st == nil || st.Tree == nil {
		return nil, errors.New("search: state has no tree")
	}
	sp, err := e.load(ctx, st)
	if err != nil {
		return nil, err
	}
	res, err = sp.nextState(ctx, sp.self(st), nil, true)
	if err != nil {
		return nil, err
	}
	return res, sp.link(ctx, res)
}

// Toward is NextState with the goal fixed.
func (e *Engine) Toward(ctx context.Context, st, goal *store.State) (*Result, error) {
	if st == nil || st.Tree == nil || goal == nil || goal.Tree == nil {
		return nil, errors.New("search: state has no tree")
	}
	sp, err := e.load(ctx, st)
	if err != nil {
		return nil, err
	}
	res, err := sp.nextState(ctx, sp.self(st), sp.self(goal), true)
	if err != nil {
		return nil, err
	}
	return res, sp.link(ctx, res)
}

// Desirability rates n as a next state for s on a 0 to 1 scale: states seen
// before, states close to s and states that score well are preferred.
func Desirability(s, n *store.State, w Weights) float64 {
	total := w.Seen + w.Dist + w.Score
	if total == 0 {
		return 0
	}
	score := 0.0
	if n.Count > 0 {
		score += w.Seen
	}
	d, _ := differ.Distance(s.Tree, n.Tree, differ.Options{})
	score += w.Dist * (1 - d)
	score += w.Score * n.Score
	return score / total
}

// Examples picks goals to show as example solutions: the most common first,
// then the one furthest from st and the one closest to it. Duplicates are
// dropped.
func Examples(st *store.State, goals []*store.State) []*store.State {
	if len(goals) == 0 {
		return nil
	}
	common, far, near := goals[0], goals[0], goals[0]
	farD, nearD := -1.0, 2.0
	for _, g := range goals {
		if g.Count > common.Count {
			common = g
		}
		d, _ := differ.Distance(st.Tree, g.Tree, differ.Options{})
		if d > farD {
			far, farD = g, d
		}
		if d < nearD {
			near, nearD = g, d
		}
	}
	out := []*store.State{common}
	for _, g := range []*store.State{far, near} {
		if !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}
