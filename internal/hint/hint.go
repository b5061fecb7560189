// Package hint answers hint requests for one problem.
//
// A request parses the submission, canonicalizes it, records it in the solution
// store and scores it with the test oracle. Passing submissions get example
// solutions. Failing ones get the first step of a path toward a goal,
// translated back onto the code the student wrote.
package hint

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"hintgen/internal/canon"
	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/individualize"
	"hintgen/internal/oracle"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
	"hintgen/internal/search"
	"hintgen/internal/store"
	"hintgen/internal/trace"
)

// NoHint is the message of every request that ends without an edit.
const NoHint = "No hints could be generated."

// Cache keeps canonical trees between runs, keyed by problem and the rendered
// original program.
type Cache interface {
	Load(problem, code string) (*pyast.Node, bool)
	Store(problem, code string, tree *pyast.Node) error
}

// Problem describes the exercise submissions belong to.
type Problem struct {
	Name  string
	Canon canon.Options
	// GivenCode is prepended to every submission and never hinted at.
	GivenCode string
}

// Deps are the collaborators of a Generator. Repo and Oracle are required.
type Deps struct {
	Repo     store.Repository
	Oracle   oracle.Oracle
	Search   search.Options
	Cache    Cache
	Reporter diag.Reporter
	Logger   *zap.Logger
}

// Hint is the answer to one request.
type Hint struct {
	Outcome Outcome
	Level   Level
	Message string
	// Steps holds one sentence per revealed change.
	Steps []string
	// Edit is the revealed part of the edit, chained on the student's tree.
	Edit []*change.Vector
	// Before and After are the student's program without and with the edit.
	Before, After string
	// Code is the extra program text of a level: the structure view or the
	// full solution.
	Code     string
	State    *store.State
	Goal     *store.State
	Examples []*store.State
}

// Diff returns a unified diff between Before and After.
func (h *Hint) Diff() string {
	if h == nil || h.Before == h.After {
		return ""
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(h.Before),
		B:        difflib.SplitLines(h.After),
		FromFile: "submission",
		ToFile:   "hint",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return out
}

// Generator serves hint requests. It is safe for concurrent use when its
// repository, oracle and reporter are.
type Generator struct {
	prob   Problem
	given  []*pyast.Node
	parser *pyparse.Parser
	canon  *canon.Canonicalizer
	engine *search.Engine
	indiv  *individualize.Individualizer
	repo   store.Repository
	oracle oracle.Oracle
	cache  Cache
	rep    diag.Reporter
	log    *zap.Logger
}

// New prepares a Generator for p. Given code that does not parse is an error.
func New(ctx context.Context, p Problem, d Deps) (*Generator, error) {
	if d.Repo == nil || d.Oracle == nil {
		return nil, errors.New("hint: repository and oracle are required")
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	g := &Generator{
		prob:   p,
		parser: pyparse.New(),
		canon:  canon.New(p.Canon, d.Reporter),
		engine: search.New(d.Repo, d.Oracle, d.Search, d.Reporter),
		indiv:  individualize.New(d.Reporter),
		repo:   d.Repo,
		oracle: d.Oracle,
		cache:  d.Cache,
		rep:    d.Reporter,
		log:    log.With(zap.String("problem", p.Name)),
	}
	if p.GivenCode != "" {
		mod, err := g.parser.Parse(ctx, []byte(p.GivenCode))
		if err != nil {
			diag.Reportf(d.Reporter, diag.SevError, diag.CanonBadGivenCode, diag.Loc{}, "given code of %s: %v", p.Name, err)
			return nil, fmt.Errorf("hint: given code of %s: %w", p.Name, err)
		}
		g.given = mod.Body().Nodes()
	}
	return g, nil
}

// Engine exposes the search engine the generator uses.
func (g *Generator) Engine() *search.Engine { return g.engine }

// Submission is a parsed and canonicalized program.
type Submission struct {
	// Orig is the program as written, given code included, with node ids.
	Orig *pyast.Node
	// Canon is its canonical form.
	Canon *pyast.Node
	// Source is Orig rendered, the key of the canonical cache.
	Source string
	// Text is src as submitted; node positions refer to it.
	Text  string
	given map[pyast.ID]bool
}

// Code renders the canonical form, the key states are stored under.
func (s *Submission) Code() string { return render.Source(s.Canon) }

// Prepare parses src, prepends the problem's given code and canonicalizes the
// result. Unparsable code yields an error wrapping pyparse.ErrSyntax or
// pyparse.ErrUnsupported.
func (g *Generator) Prepare(ctx context.Context, src string) (*Submission, error) {
	mod, err := g.parser.Parse(ctx, []byte(src))
	if err != nil {
		return nil, err
	}
	sub := &Submission{Text: src, given: map[pyast.ID]bool{}}
	body := make([]*pyast.Node, 0, len(g.given)+mod.Body().Len())
	for _, n := range g.given {
		c := pyast.Copy(n)
		pyast.Inspect(c, func(x *pyast.Node) bool {
			x.Line, x.Col = 0, 0
			return true
		})
		body = append(body, c)
	}
	sub.Orig = pyast.NewModule(append(body, mod.Body().Nodes()...)...)
	canon.GiveIDs(sub.Orig)
	for _, n := range body {
		sub.given[n.ID] = true
	}
	sub.Source = render.Source(sub.Orig)

	if g.cache != nil {
		if t, ok := g.cache.Load(g.prob.Name, sub.Source); ok {
			sub.Canon = t
			return sub, nil
		}
	}
	sub.Canon, err = g.canon.Canonicalize(ctx, sub.Orig)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		if err := g.cache.Store(g.prob.Name, sub.Source, sub.Canon); err != nil {
			diag.Reportf(g.rep, diag.SevWarning, diag.BndCache, diag.At(sub.Orig), "store canonical form: %v", err)
		}
	}
	return sub, nil
}

// Hint answers one request for src at the given level. Errors are reserved for
// failures of the store, the oracle or the context; a submission that gets no
// hint is reported through the Outcome.
func (g *Generator) Hint(ctx context.Context, src string, level Level) (*Hint, error) {
	ctx, span := trace.Start(ctx, trace.ScopeStage, "hint")
	h := &Hint{Level: level}
	defer func() { span.End(h.Outcome.String()) }()

	sub, err := g.Prepare(ctx, src)
	if err != nil {
		var perr *pyparse.Error
		if errors.As(err, &perr) {
			diag.Reportf(g.rep, diag.SevInfo, diag.BndParse, diag.Loc{Line: perr.Line, Col: perr.Col}, "%v", perr)
			h.Outcome = OutcomeRejected
			h.Message = fmt.Sprintf("Your code could not be read: %v", perr)
			return h, nil
		}
		return nil, err
	}

	score, feedback, err := g.oracle.Score(ctx, g.prob.Name, sub.Source)
	if err != nil {
		diag.Reportf(g.rep, diag.SevError, diag.BndOracle, diag.At(sub.Orig), "score submission: %v", err)
		return nil, fmt.Errorf("hint: score submission: %w", err)
	}
	st, err := g.record(ctx, sub, score, feedback, 1)
	if err != nil {
		return nil, err
	}
	h.State = st
	h.Before = g.studentSource(sub.Orig, sub.given)
	h.After = h.Before

	if st.IsGoal() {
		return g.examples(ctx, h, st)
	}

	res, err := g.engine.NextState(ctx, st)
	switch {
	case errors.Is(err, search.ErrNoGoal):
		h.Outcome, h.Message = OutcomeNoGoal, NoHint
		return h, nil
	case errors.Is(err, search.ErrNoNextState), errors.Is(err, search.ErrSolved):
		h.Outcome, h.Message = OutcomeNoNext, NoHint
		return h, nil
	case err != nil:
		return nil, err
	}
	h.Goal = res.Goal

	edit, err := g.firstEdit(ctx, sub, st, res)
	if err != nil {
		return nil, err
	}
	if len(edit) == 0 {
		h.Outcome, h.Message = OutcomeNoNext, NoHint
		return h, nil
	}
	h.Outcome = OutcomeHint
	if err := g.reveal(ctx, h, sub, edit); err != nil {
		return nil, err
	}
	g.log.Debug("hint",
		zap.Stringer("state", st.ID),
		zap.Stringer("goal", res.Goal.ID),
		zap.Int("path", len(res.Path)),
		zap.Int("vectors", len(edit)),
		zap.Stringer("level", h.Level))
	return h, nil
}

// Seed stores src with a known score, bypassing the oracle. count is added to
// the state's submission count and must be positive.
func (g *Generator) Seed(ctx context.Context, src string, score float64, feedback string, count int) (*store.State, error) {
	if count < 1 {
		count = 1
	}
	sub, err := g.Prepare(ctx, src)
	if err != nil {
		return nil, err
	}
	return g.record(ctx, sub, score, feedback, count)
}

// record finds or creates the state of sub and adds n to its count.
func (g *Generator) record(ctx context.Context, sub *Submission, score float64, feedback string, n int) (*store.State, error) {
	code := sub.Code()
	st, err := g.repo.FindByCode(ctx, g.prob.Name, code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		st = &store.State{Problem: g.prob.Name, Code: code}
	case err != nil:
		diag.Reportf(g.rep, diag.SevError, diag.BndStore, diag.At(sub.Canon), "find state: %v", err)
		return nil, fmt.Errorf("hint: find state: %w", err)
	}
	// ids of the stored tree may come from another submission
	st.Tree = sub.Canon
	st.Score, st.Feedback = score, feedback
	if err := g.repo.Save(ctx, st); err != nil {
		diag.Reportf(g.rep, diag.SevError, diag.BndStore, diag.At(sub.Canon), "save state: %v", err)
		return nil, fmt.Errorf("hint: save state: %w", err)
	}
	// Save leaves a stored count alone; concurrent submissions add here
	if n > 0 {
		if st.Count, err = g.repo.Increment(ctx, st.ID, n); err != nil {
			diag.Reportf(g.rep, diag.SevError, diag.BndStore, diag.At(sub.Canon), "count state: %v", err)
			return nil, fmt.Errorf("hint: count state: %w", err)
		}
	}
	return st, nil
}

func (g *Generator) examples(ctx context.Context, h *Hint, st *store.State) (*Hint, error) {
	goals, err := g.repo.Goals(ctx, g.prob.Name)
	if err != nil {
		return nil, fmt.Errorf("hint: load goals: %w", err)
	}
	others := goals[:0]
	for _, s := range goals {
		if s.Code != st.Code && s.Tree != nil {
			others = append(others, s)
		}
	}
	h.Outcome = OutcomeAlreadyCorrect
	h.Examples = search.Examples(st, others)
	if len(h.Examples) == 0 {
		h.Message = "Your code already passes the tests."
		return h, nil
	}
	h.Message = "Your code already passes the tests. Other solutions:"
	for i, ex := range h.Examples {
		if i > 0 {
			h.Code += "\n"
		}
		h.Code += ex.Code
	}
	return h, nil
}

// firstEdit walks the path until some step maps to a non-empty edit on the
// student's code.
func (g *Generator) firstEdit(ctx context.Context, sub *Submission, st *store.State, res *search.Result) ([]*change.Vector, error) {
	for i, step := range res.Path {
		edit := differ.Diff(st.Tree, step.To.Tree, differ.Options{})
		mapped, err := g.indiv.MapEdit(ctx, st.Tree, sub.Orig, edit)
		switch {
		case errors.Is(err, individualize.ErrHelperEdit), errors.Is(err, individualize.ErrMismatch):
			g.log.Debug("edit not mappable", zap.Int("step", i), zap.Error(err))
			return nil, nil
		case err != nil:
			return nil, err
		}
		mapped = withoutGiven(mapped, sub.given)
		if len(mapped) > 0 {
			return mapped, nil
		}
		diag.Reportf(g.rep, diag.SevInfo, diag.SearchInfo, diag.At(step.To.Tree),
			"step %d of %d is empty on the original code", i+1, len(res.Path))
	}
	return nil, nil
}

// withoutGiven cuts a chained edit before the first vector that reaches into
// given code. Later vectors start from trees the cut one produced.
func withoutGiven(vs []*change.Vector, given map[pyast.ID]bool) []*change.Vector {
	if len(given) == 0 {
		return vs
	}
	for i, v := range vs {
		if touchesGiven(v, given) {
			return vs[:i]
		}
	}
	return vs
}

func touchesGiven(v *change.Vector, given map[pyast.ID]bool) bool {
	if v.Start == nil {
		return false
	}
	topLevel := func(p pyast.Path) bool {
		if len(p) < 2 {
			return len(p) == 1
		}
		got, ok := p[len(p)-2:].Resolve(v.Start)
		n, _ := got.(*pyast.Node)
		return ok && n != nil && given[n.ID]
	}
	if v.IsCrossSwap() {
		return topLevel(v.OldPath) || topLevel(v.NewPath)
	}
	if v.IsRelocation() && len(v.Path) == 2 {
		body := v.Start.Body()
		for _, i := range []int{v.From, v.To} {
			if n := body.Node(i); n != nil && given[n.ID] {
				return true
			}
		}
		return false
	}
	return topLevel(v.Path)
}

// studentSource renders tree without the given statements.
func (g *Generator) studentSource(tree *pyast.Node, given map[pyast.ID]bool) string {
	if len(given) == 0 {
		return render.Source(tree)
	}
	var own []*pyast.Node
	for _, n := range tree.Body().Nodes() {
		if !given[n.ID] {
			own = append(own, n)
		}
	}
	return render.Source(pyast.NewModule(own...))
}
