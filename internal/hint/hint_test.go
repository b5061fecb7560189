package hint_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hintgen/internal/canon"
	"hintgen/internal/hint"
	"hintgen/internal/oracle"
	"hintgen/internal/pyast"
	"hintgen/internal/search"
	"hintgen/internal/store"
)

const (
	goalSrc  = "def f(x):\n    return x * 2\n"
	wrongSrc = "def f(x):\n    return x * 3\n"
)

// doubles passes code that multiplies by two.
var doubles = oracle.Func(func(ctx context.Context, problem, code string) (float64, string, error) {
	if strings.Contains(code, "* 2") {
		return 1, "", nil
	}
	return 0, "expected double", nil
})

func generator(t *testing.T, repo store.Repository, p hint.Problem, cache hint.Cache) *hint.Generator {
	t.Helper()
	if p.Name == "" {
		p.Name = "double"
	}
	p.Canon = canon.Options{GivenNames: []string{"f"}, MainFunction: "f"}
	g, err := hint.New(context.Background(), p, hint.Deps{
		Repo:   repo,
		Oracle: doubles,
		Search: search.Options{Restricted: []string{"f"}},
		Cache:  cache,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func ask(t *testing.T, g *hint.Generator, src string, level hint.Level) *hint.Hint {
	t.Helper()
	h, err := g.Hint(context.Background(), src, level)
	if err != nil {
		t.Fatalf("Hint(%q): %v", src, err)
	}
	return h
}

func TestUnparsableSubmissionIsRejected(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	h := ask(t, g, "def f(:\n", hint.NextStep)
	if h.Outcome != hint.OutcomeRejected {
		t.Fatalf("outcome = %s, want rejected", h.Outcome)
	}
	if h.State != nil {
		t.Fatalf("rejected submission was stored: %v", h.State)
	}
}

func TestNoGoalWithoutSolutions(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	h := ask(t, g, wrongSrc, hint.NextStep)
	if h.Outcome != hint.OutcomeNoGoal || h.Message != hint.NoHint {
		t.Fatalf("got %s %q, want no_goal", h.Outcome, h.Message)
	}
}

func TestPassingSubmissionGetsExamples(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	first := ask(t, g, goalSrc, hint.NextStep)
	if first.Outcome != hint.OutcomeAlreadyCorrect || len(first.Examples) != 0 {
		t.Fatalf("first solution: %s with %d examples", first.Outcome, len(first.Examples))
	}
	second := ask(t, g, "def f(x):\n    return abs(x) * 2\n", hint.NextStep)
	if second.Outcome != hint.OutcomeAlreadyCorrect {
		t.Fatalf("outcome = %s, want already_correct", second.Outcome)
	}
	if len(second.Examples) != 1 || second.Examples[0].Code != first.State.Code {
		t.Fatalf("examples = %v, want the first solution", second.Examples)
	}
	if !strings.Contains(second.Code, "* 2") {
		t.Fatalf("example code %q", second.Code)
	}
}

func TestRepeatedSubmissionIsCounted(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	ask(t, g, goalSrc, hint.NextStep)
	h := ask(t, g, "def f(x):\n    # same code\n    return x * 2\n", hint.NextStep)
	if h.State.Count != 2 {
		t.Fatalf("count = %d, want 2", h.State.Count)
	}
}

func TestConcurrentSubmissionsAreAllCounted(t *testing.T) {
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "states.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	for name, repo := range map[string]store.Repository{"memory": store.NewMemory(), "sqlite": db} {
		t.Run(name, func(t *testing.T) {
			g := generator(t, repo, hint.Problem{}, nil)
			const workers = 32
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := g.Hint(context.Background(), wrongSrc, hint.NextStep); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Fatalf("Hint: %v", err)
			}
			h := ask(t, g, wrongSrc, hint.NextStep)
			if h.State.Count != workers+1 {
				t.Fatalf("count = %d, want %d", h.State.Count, workers+1)
			}
			all, err := repo.States(context.Background(), "double")
			if err != nil {
				t.Fatalf("States: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("%d states stored, want 1", len(all))
			}
		})
	}
}

func TestFailingSubmissionGetsNextStep(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	ask(t, g, goalSrc, hint.NextStep)

	h := ask(t, g, wrongSrc, hint.NextStep)
	if h.Outcome != hint.OutcomeHint {
		t.Fatalf("outcome = %s (%q), want hint", h.Outcome, h.Message)
	}
	if len(h.Edit) == 0 || len(h.Steps) != len(h.Edit) {
		t.Fatalf("%d vectors, %d steps", len(h.Edit), len(h.Steps))
	}
	if !strings.Contains(h.Message, "line 2") {
		t.Fatalf("message %q does not point at line 2", h.Message)
	}
	if !strings.Contains(h.After, "x * 2") || strings.Contains(h.After, "x * 3") {
		t.Fatalf("after = %q", h.After)
	}
	d := h.Diff()
	if !strings.Contains(d, "-    return x * 3") || !strings.Contains(d, "+    return x * 2") {
		t.Fatalf("diff:\n%s", d)
	}
	if h.Goal == nil || !h.Goal.IsGoal() {
		t.Fatalf("goal = %v", h.Goal)
	}
}

func TestSolutionLevelShowsWholeProgram(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	ask(t, g, goalSrc, hint.NextStep)
	h := ask(t, g, wrongSrc, hint.Solution)
	if h.Outcome != hint.OutcomeHint || h.Code != h.After {
		t.Fatalf("solution code %q, after %q", h.Code, h.After)
	}
}

func TestStructureLevelHidesLeaves(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	ask(t, g, goalSrc, hint.NextStep)
	h := ask(t, g, wrongSrc, hint.Structure)
	if h.Outcome != hint.OutcomeHint {
		t.Fatalf("outcome = %s", h.Outcome)
	}
	if strings.Contains(h.Code, "x") || !strings.Contains(h.Code, "~") {
		t.Fatalf("structure view %q still shows names", h.Code)
	}
}

func TestGivenCodeStaysOutOfHints(t *testing.T) {
	p := hint.Problem{GivenCode: "import math\n"}
	g := generator(t, store.NewMemory(), p, nil)
	ask(t, g, goalSrc, hint.NextStep)
	h := ask(t, g, wrongSrc, hint.NextStep)
	if h.Outcome != hint.OutcomeHint {
		t.Fatalf("outcome = %s (%q)", h.Outcome, h.Message)
	}
	if strings.Contains(h.Before, "import") || strings.Contains(h.After, "import") {
		t.Fatalf("given code leaked into the hint:\n%s\n%s", h.Before, h.After)
	}
}

func TestBadGivenCode(t *testing.T) {
	_, err := hint.New(context.Background(), hint.Problem{Name: "p", GivenCode: "def (:"},
		hint.Deps{Repo: store.NewMemory(), Oracle: doubles})
	if err == nil {
		t.Fatal("expected an error for unparsable given code")
	}
}

func TestOracleFailureIsAnError(t *testing.T) {
	boom := errors.New("boom")
	g, err := hint.New(context.Background(), hint.Problem{Name: "p"}, hint.Deps{
		Repo: store.NewMemory(),
		Oracle: oracle.Func(func(context.Context, string, string) (float64, string, error) {
			return 0, "", boom
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Hint(context.Background(), goalSrc, hint.NextStep); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

type mapCache struct {
	trees       map[string]*pyast.Node
	loads, hits int
}

func (c *mapCache) Load(problem, code string) (*pyast.Node, bool) {
	c.loads++
	t, ok := c.trees[problem+"\x00"+code]
	if ok {
		c.hits++
	}
	return t, ok
}

func (c *mapCache) Store(problem, code string, tree *pyast.Node) error {
	c.trees[problem+"\x00"+code] = tree
	return nil
}

func TestPrepareUsesCache(t *testing.T) {
	c := &mapCache{trees: map[string]*pyast.Node{}}
	g := generator(t, store.NewMemory(), hint.Problem{}, c)
	ctx := context.Background()
	first, err := g.Prepare(ctx, goalSrc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Prepare(ctx, "def f(x):\n    return x * 2  # again\n")
	if err != nil {
		t.Fatal(err)
	}
	if c.loads != 2 || c.hits != 1 {
		t.Fatalf("loads=%d hits=%d, want 2 and 1", c.loads, c.hits)
	}
	if first.Code() != second.Code() {
		t.Fatalf("cached form %q differs from %q", second.Code(), first.Code())
	}
}

func TestLevels(t *testing.T) {
	for _, l := range []hint.Level{hint.NextStep, hint.Structure, hint.HalfSteps, hint.Solution} {
		got, err := hint.ParseLevel(l.String())
		if err != nil || got != l {
			t.Fatalf("ParseLevel(%q) = %v, %v", l, got, err)
		}
	}
	if _, err := hint.ParseLevel("everything"); err == nil {
		t.Fatal("unknown level accepted")
	}
	if hint.NextStep.Escalate() != hint.Structure || hint.Solution.Escalate() != hint.Solution {
		t.Fatal("escalation order")
	}
}

func TestDiffOfUnchangedHintIsEmpty(t *testing.T) {
	h := &hint.Hint{Before: "x = 1\n", After: "x = 1\n"}
	if d := h.Diff(); d != "" {
		t.Fatalf("diff = %q", d)
	}
}

func TestSeedSkipsOracleAndAddsCount(t *testing.T) {
	g := generator(t, store.NewMemory(), hint.Problem{}, nil)
	ctx := context.Background()
	st, err := g.Seed(ctx, "def f(x):\n    return x + x\n", 1, "known good", 3)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !st.IsGoal() || st.Count != 3 || st.Feedback != "known good" {
		t.Fatalf("seeded %v", st)
	}
	h := ask(t, g, wrongSrc, hint.NextStep)
	if h.Goal == nil || h.Goal.ID != st.ID {
		t.Fatalf("hint does not head for the seeded goal: %v", h.Goal)
	}
}
