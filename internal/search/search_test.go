package search_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hintgen/internal/canon"
	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/oracle"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
	"hintgen/internal/search"
	"hintgen/internal/store"
)

const problem = "p"

func parse(t *testing.T, src string) *pyast.Node {
	t.Helper()
	tree, err := pyparse.Parse(context.Background(), src)
	require.NoError(t, err, src)
	canon.GiveIDs(tree)
	return tree
}

func newState(t *testing.T, src string, score float64, count int) *store.State {
	t.Helper()
	tree := parse(t, src)
	return &store.State{Problem: problem, Code: render.Source(tree), Tree: tree, Score: score, Count: count}
}

func seed(t *testing.T, repo store.Repository, src string, score float64, count int) *store.State {
	t.Helper()
	st := newState(t, src, score, count)
	require.NoError(t, repo.Save(context.Background(), st))
	return st
}

// scoreIf passes code that contains want and fails everything else.
func scoreIf(want string) oracle.Oracle {
	return oracle.Func(func(ctx context.Context, problem, code string) (float64, string, error) {
		if strings.Contains(code, want) {
			return 1, "", nil
		}
		return 0, "", nil
	})
}

func engine(repo store.Repository, orc oracle.Oracle, rep diag.Reporter) *search.Engine {
	return search.New(repo, orc, search.Options{Restricted: []string{"f"}}, rep)
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestNoGoal(t *testing.T) {
	repo := store.NewMemory()
	bag := diag.NewBag(16)
	st := seed(t, repo, "def f(x):\n    return x\n", 0, 1)
	_, err := engine(repo, scoreIf("never"), diag.BagReporter{Bag: bag}).NextState(context.Background(), st)
	require.ErrorIs(t, err, search.ErrNoGoal)
	assert.Contains(t, codes(bag), diag.SearchNoGoal)
}

func TestSolvedStateHasNoNextState(t *testing.T) {
	repo := store.NewMemory()
	st := seed(t, repo, "def f(x):\n    return x\n", 1, 1)
	_, err := engine(repo, scoreIf("never"), nil).NextState(context.Background(), st)
	require.ErrorIs(t, err, search.ErrSolved)
}

func TestOneChangeLeadsToGoal(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	goal := seed(t, repo, "def f(x):\n    return x * 2\n", 1, 3)
	st := seed(t, repo, "def f(x):\n    return x * 3\n", 0, 1)

	res, err := engine(repo, scoreIf("x * 2"), nil).NextState(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, goal.Code, res.Goal.Code)
	assert.Equal(t, goal.Code, res.Next().Code)
	require.Len(t, res.Edit(), 1)
	assert.Equal(t, 1, res.ChangesToGoal)

	stored, err := repo.FindByCode(ctx, problem, st.Code)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, stored.GoalID)
	assert.Equal(t, goal.ID, stored.NextID)
}

func TestPathStopsAtKnownState(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	goal := seed(t, repo, "def f(x, y):\n    return [x + 2, y + 2]\n", 1, 0)
	half := seed(t, repo, "def f(x, y):\n    return [x + 2, y + 1]\n", 0.5, 4)
	st := seed(t, repo, "def f(x, y):\n    return [x + 1, y + 1]\n", 0, 1)

	res, err := engine(repo, scoreIf("never"), nil).NextState(ctx, st)
	require.NoError(t, err)
	require.Len(t, res.Path, 2)
	assert.Equal(t, half.Code, res.Next().Code)
	assert.Equal(t, goal.Code, res.Path[1].To.Code)
	assert.Equal(t, 2, res.ChangesToGoal)

	// every step's vectors replay from the submission
	var all []*change.Vector
	for _, step := range res.Path {
		assert.Same(t, st, step.Base)
		all = append(all, step.Edit...)
	}
	tree, err := change.ApplyAll(st.Tree, all)
	require.NoError(t, err)
	assert.Equal(t, goal.Code, render.Source(tree))

	mid, err := repo.FindByCode(ctx, problem, half.Code)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, mid.NextID)
	assert.Equal(t, half.ID, st.NextID)
}

func TestGoalIsRenamedToStudentNames(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	seed(t, repo, "def f(x):\n    total = x + 1\n    return total\n", 1, 2)
	st := seed(t, repo, "def f(x):\n    t = x + 2\n    return t\n", 0, 1)

	res, err := engine(repo, scoreIf("x + 1"), nil).NextState(ctx, st)
	require.NoError(t, err)
	want := render.Source(parse(t, "def f(x):\n    t = x + 1\n    return t\n"))
	assert.Equal(t, want, res.Goal.Code)
	assert.Len(t, res.Edit(), 1)

	variant, err := repo.FindByCode(ctx, problem, want)
	require.NoError(t, err)
	assert.True(t, variant.IsGoal())
}

func TestEqualDistanceGoesToCommonerGoal(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	seed(t, repo, "def f(x):\n    return x * 2\n", 1, 1)
	common := seed(t, repo, "def f(x):\n    return x + 2\n", 1, 5)
	st := seed(t, repo, "def f(x):\n    return x - 2\n", 0, 1)

	res, err := engine(repo, scoreIf("x + 2"), nil).NextState(ctx, st)
	require.NoError(t, err)
	require.NotNil(t, res.Goal)
	assert.Equal(t, common.Code, res.Goal.Code)
}

func TestDistantGoalIsStillChosen(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	seed(t, repo, "def f(x):\n"+
		"    total = 0\n"+
		"    for i in range(x):\n"+
		"        if i % 2 == 0:\n"+
		"            total = total + i * i\n"+
		"        else:\n"+
		"            total = total - i\n"+
		"    return total\n", 1, 1)
	st := seed(t, repo, "def f(x):\n    return x\n", 0, 1)

	res, err := engine(repo, scoreIf("total"), nil).NextState(ctx, st)
	require.NoError(t, err)
	require.NotNil(t, res.Goal)
	assert.True(t, res.Goal.IsGoal())
	assert.Contains(t, res.Goal.Code, "range(x)")
}

func TestBadRenamingIsReported(t *testing.T) {
	repo := store.NewMemory()
	bag := diag.NewBag(16)
	seed(t, repo, "def f(x):\n    total = x + 1\n    return total\n", 1, 2)
	st := seed(t, repo, "def f(x):\n    t = x + 2\n    return t\n", 0, 1)

	// the renamed goal fails, so the search falls back to the goal as written
	_, _ = engine(repo, scoreIf("never"), diag.BagReporter{Bag: bag}).NextState(context.Background(), st)
	assert.Contains(t, codes(bag), diag.SearchBadRemap)
}

func TestToward(t *testing.T) {
	repo := store.NewMemory()
	seed(t, repo, "def f(x):\n    return x * 2\n", 1, 9)
	other := seed(t, repo, "def f(x):\n    return x + x\n", 1, 1)
	st := seed(t, repo, "def f(x):\n    return x * 3\n", 0, 1)

	res, err := engine(repo, scoreIf("never"), nil).Toward(context.Background(), st, other)
	require.NoError(t, err)
	assert.Equal(t, other.Code, res.Goal.Code)
}

func TestCanceledContext(t *testing.T) {
	repo := store.NewMemory()
	seed(t, repo, "def f(x):\n    return x * 2\n", 1, 3)
	st := seed(t, repo, "def f(x):\n    return x * 3\n", 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine(repo, scoreIf("x * 2"), nil).NextState(ctx, st)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDesirability(t *testing.T) {
	s := newState(t, "def f(x):\n    return x\n", 0, 1)
	same := newState(t, "def f(x):\n    return x\n", 1, 2)
	w := search.Weights{Seen: 4, Dist: 2, Score: 1}
	assert.InDelta(t, 1.0, search.Desirability(s, same, w), 1e-9)

	unseen := newState(t, "def f(x):\n    return x\n", 0, 0)
	assert.InDelta(t, 2.0/7, search.Desirability(s, unseen, w), 1e-9)
	assert.Zero(t, search.Desirability(s, same, search.Weights{}))
}

func TestExamples(t *testing.T) {
	st := newState(t, "def f(x):\n    return x * 3\n", 0, 1)
	near := newState(t, "def f(x):\n    return x * 2\n", 1, 1)
	common := newState(t, "def f(x):\n    y = x\n    return y * 2\n", 1, 8)
	far := newState(t, "def f(x):\n    y = [x, x]\n    z = sum(y)\n    return z\n", 1, 2)

	got := search.Examples(st, []*store.State{near, common, far})
	require.Len(t, got, 3)
	assert.Same(t, common, got[0])
	assert.Same(t, far, got[1])
	assert.Same(t, near, got[2])
	assert.Empty(t, search.Examples(st, nil))
}
