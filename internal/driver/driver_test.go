package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"hintgen/internal/canon"
	"hintgen/internal/diag"
	"hintgen/internal/driver"
	"hintgen/internal/hint"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
	"hintgen/internal/search"
	"hintgen/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func tree(t *testing.T, src string) *pyast.Node {
	t.Helper()
	n, err := pyparse.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	canon.GiveIDs(n)
	return n
}

func TestDiskCacheRoundTrip(t *testing.T) {
	c, err := driver.OpenDiskCache(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := tree(t, "def f(x):\n    return x + 1\n")
	if err := c.Store("p", "code", want); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok := c.Load("p", "code")
	if !ok {
		t.Fatal("cached tree not found")
	}
	if !pyast.Equal(got, want) || got.Body().Node(0).ID != want.Body().Node(0).ID {
		t.Fatalf("loaded %s, want %s", render.Source(got), render.Source(want))
	}
	if _, ok := c.Load("p", "other"); ok {
		t.Fatal("hit for code never stored")
	}
	if _, ok := c.Load("q", "code"); ok {
		t.Fatal("hit for another problem")
	}
}

func TestDiskCacheTreatsBrokenEntriesAsMisses(t *testing.T) {
	dir := t.TempDir()
	bag := diag.NewBag(8)
	c, err := driver.OpenDiskCache(dir, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store("p", "code", tree(t, "x = 1\n")); err != nil {
		t.Fatal(err)
	}
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		return os.WriteFile(path, []byte("not msgpack"), 0o644)
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load("p", "code"); ok {
		t.Fatal("corrupt entry loaded")
	}
	if bag.Len() == 0 || bag.Items()[0].Code != diag.BndCache {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	c, err := driver.OpenDiskCache(filepath.Join(t.TempDir(), "cache"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store("p", "code", tree(t, "x = 1\n")); err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok := c.Load("p", "code"); ok {
		t.Fatal("entry survived DropAll")
	}
	if err := c.Store("p", "code", tree(t, "x = 1\n")); err != nil {
		t.Fatalf("Store after DropAll: %v", err)
	}
}

// fakeHinter classifies sources by their first line.
type fakeHinter struct{}

func (fakeHinter) Hint(ctx context.Context, src string, level hint.Level) (*hint.Hint, error) {
	switch {
	case strings.HasPrefix(src, "#fail"):
		return nil, errors.New("oracle down")
	case strings.HasPrefix(src, "#ok"):
		return &hint.Hint{Outcome: hint.OutcomeAlreadyCorrect, Level: level}, nil
	}
	return &hint.Hint{Outcome: hint.OutcomeHint, Level: level}, nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestBatchCountsOutcomes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.py":      "x = 1\n",
		"b.py":      "#ok\n",
		"sub/c.py":  "#fail\n",
		"sub/d.py":  "y = 2\n",
		"notes.txt": "skipped",
	})
	files, err := driver.ListSubmissions(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Fatalf("listed %v", files)
	}

	var mu sync.Mutex
	seen := map[driver.Status]int{}
	sink := driver.SinkFunc(func(e driver.Event) {
		mu.Lock()
		seen[e.Status]++
		mu.Unlock()
	})
	results, sum, err := driver.Batch(context.Background(), fakeHinter{}, files,
		driver.BatchOptions{Jobs: 2, Level: hint.Solution, Sink: sink})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if sum.Files != 4 || sum.Errors != 1 || sum.Outcomes[hint.OutcomeHint] != 2 || sum.Outcomes[hint.OutcomeAlreadyCorrect] != 1 {
		t.Fatalf("summary: %s", sum)
	}
	for i, r := range results {
		if r.Path != files[i] {
			t.Fatalf("result %d is for %s, want %s", i, r.Path, files[i])
		}
		if r.Err == nil && r.Hint.Level != hint.Solution {
			t.Fatalf("level %s not passed through", r.Hint.Level)
		}
	}
	if seen[driver.StatusQueued] != 4 || seen[driver.StatusWorking] != 4 ||
		seen[driver.StatusDone] != 3 || seen[driver.StatusError] != 1 {
		t.Fatalf("events: %v", seen)
	}
}

func TestBatchMissingFile(t *testing.T) {
	_, sum, err := driver.Batch(context.Background(), fakeHinter{},
		[]string{filepath.Join(t.TempDir(), "gone.py")}, driver.BatchOptions{})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if sum.Errors != 1 {
		t.Fatalf("summary: %s", sum)
	}
}

func TestBatchCanceled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.py": "x = 1\n", "b.py": "x = 2\n"})
	files, err := driver.ListSubmissions(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := driver.Batch(ctx, fakeHinter{}, files, driver.BatchOptions{Jobs: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGraphLinksToBetterStates(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	save := func(src string, score float64, count int) *store.State {
		n := tree(t, src)
		st := &store.State{Problem: "p", Code: render.Source(n), Tree: n, Score: score, Count: count}
		if err := repo.Save(ctx, st); err != nil {
			t.Fatal(err)
		}
		return st
	}
	goal := save("def f(x):\n    return x * 2\n", 1, 3)
	half := save("def f(x):\n    return x * 2 + 1\n", 0.5, 1)
	low := save("def f(x):\n    return x * 3 + 1\n", 0, 1)

	edges, err := driver.Graph(ctx, repo, "p", search.Weights{Seen: 4, Dist: 2, Score: 1})
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("%d edges, want 2", len(edges))
	}
	got, err := repo.Get(ctx, half.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextID != goal.ID {
		t.Fatalf("half links to %s, want the goal", got.NextID)
	}
	got, err = repo.Get(ctx, low.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextID != half.ID && got.NextID != goal.ID {
		t.Fatalf("low links to %s", got.NextID)
	}
}
