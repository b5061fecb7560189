package store_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hintgen/internal/pyast"
	"hintgen/internal/store"
)

func backends(t *testing.T) map[string]store.Repository {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "states.db"))
	require.NoError(t, err)
	mem := store.NewMemory()
	t.Cleanup(func() {
		db.Close()
		mem.Close()
	})
	return map[string]store.Repository{"memory": mem, "sqlite": db}
}

func tree() *pyast.Node {
	ret := pyast.NewReturn(pyast.NewBinOp(pyast.NewName("x"), pyast.Add, pyast.NewInt(1)))
	ret.ID = 7
	ret.Tagged(pyast.TagMovedLine)
	ret.Meta.MovedLine = 3
	return pyast.New(pyast.Module, pyast.NodeList(ret))
}

func TestSaveAndFind(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := &store.State{Problem: "sum", Code: "return x + 1", Tree: tree(), Score: 0.5, Count: 2}
			require.NoError(t, repo.Save(ctx, st))
			require.NotEqual(t, uuid.Nil, st.ID)

			got, err := repo.FindByCode(ctx, "sum", "return x + 1")
			require.NoError(t, err)
			assert.Equal(t, st.ID, got.ID)
			assert.Equal(t, 0.5, got.Score)
			assert.Equal(t, 2, got.Count)
			assert.Equal(t, uuid.Nil, got.GoalID)
			require.NotNil(t, got.Tree)
			assert.True(t, pyast.Equal(st.Tree, got.Tree))
			ret := got.Tree.Body().Node(0)
			assert.Equal(t, pyast.ID(7), ret.ID)
			assert.True(t, ret.Tags.Has(pyast.TagMovedLine))
			assert.Equal(t, pyast.ID(3), ret.Meta.MovedLine)

			byID, err := repo.Get(ctx, st.ID)
			require.NoError(t, err)
			assert.Equal(t, "return x + 1", byID.Code)
		})
	}
}

func TestMissingState(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.FindByCode(ctx, "sum", "pass")
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = repo.Get(ctx, uuid.New())
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestSaveIsLastWriteWinsPerCode(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := &store.State{Problem: "sum", Code: "return 1", Count: 1}
			require.NoError(t, repo.Save(ctx, first))
			second := &store.State{Problem: "sum", Code: "return 1", Count: 5, Score: 1}
			require.NoError(t, repo.Save(ctx, second))
			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, 1, second.Count, "save reloads the stored count")

			all, err := repo.States(ctx, "sum")
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, 1, all[0].Count)
			assert.Equal(t, 1.0, all[0].Score)
		})
	}
}

func TestIncrementUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := &store.State{Problem: "sum", Code: "return 1", Count: 2}
			require.NoError(t, repo.Save(ctx, st))

			const workers = 32
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := repo.Increment(ctx, st.ID, 1); err != nil {
						errs <- err
					}
					// a concurrent save must not clobber the count
					errs <- repo.Save(ctx, &store.State{Problem: "sum", Code: "return 1", Score: 0.5})
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := repo.Get(ctx, st.ID)
			require.NoError(t, err)
			assert.Equal(t, workers+2, got.Count)

			_, err = repo.Increment(ctx, uuid.New(), 1)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestGoalsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, code := range []string{"return a", "return b", "return c", "return d"} {
				score := 1.0
				if i%2 == 1 {
					score = 0.25
				}
				require.NoError(t, repo.Save(ctx, &store.State{Problem: "p", Code: code, Score: score}))
			}
			require.NoError(t, repo.Save(ctx, &store.State{Problem: "other", Code: "return a", Score: 1}))

			goals, err := repo.Goals(ctx, "p")
			require.NoError(t, err)
			var codes []string
			for _, g := range goals {
				assert.True(t, g.IsGoal())
				codes = append(codes, g.Code)
			}
			assert.Equal(t, []string{"return a", "return c"}, codes)
		})
	}
}

func TestLinksSurviveSave(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			goal := &store.State{Problem: "p", Code: "return 2", Score: 1}
			require.NoError(t, repo.Save(ctx, goal))
			st := &store.State{Problem: "p", Code: "return 1", GoalID: goal.ID, NextID: goal.ID, GoalDist: 0.25}
			require.NoError(t, repo.Save(ctx, st))

			got, err := repo.Get(ctx, st.ID)
			require.NoError(t, err)
			assert.Equal(t, goal.ID, got.GoalID)
			assert.Equal(t, goal.ID, got.NextID)
			assert.InDelta(t, 0.25, got.GoalDist, 1e-9)
		})
	}
}

func TestMemoryStoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	st := &store.State{Problem: "p", Code: "return 1", Tree: tree()}
	require.NoError(t, repo.Save(ctx, st))
	st.Tree.Body().Node(0).Set("value", pyast.NewInt(9))
	st.Count = 40

	got, err := repo.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Count)
	assert.True(t, pyast.Equal(tree(), got.Tree))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), "postgres", "")
	assert.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	src := `
states:
  - problem: sum
    code: |
      def f(x):
          return x + 1
    score: 1
    count: 3
  - problem: sum
    code: "def f(x):\n    return x\n"
    score: 0.5
`
	recs, err := store.LoadSeed(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 3, recs[0].Count)
	assert.Contains(t, recs[0].Code, "return x + 1")
	assert.Equal(t, 0.5, recs[1].Score)
}

func TestLoadSeedRejectsBadRecords(t *testing.T) {
	for _, src := range []string{
		"states:\n  - code: x\n",
		"states:\n  - problem: p\n    score: 2\n",
		"states:\n  - problem: p\n    colour: red\n",
	} {
		_, err := store.LoadSeed(strings.NewReader(src))
		assert.Error(t, err, src)
	}
}
