package fuzztests

import (
	"context"
	"errors"
	"testing"
	"time"

	"hintgen/internal/canon"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
	"hintgen/internal/testkit"
)

const maxFuzzInput = 1 << 16

// parseTimeout is the maximum time allowed for one input. Longer means a loop.
const parseTimeout = 5 * time.Second

func clampInput(input []byte, limit int) []byte {
	if len(input) > limit {
		input = input[:limit]
	}
	return append([]byte(nil), input...)
}

// parse returns nil when the input is rejected with a parse error.
func parse(t *testing.T, ctx context.Context, input []byte) *pyast.Node {
	t.Helper()
	tree, err := pyparse.New().Parse(ctx, input)
	if err != nil {
		if !errors.Is(err, pyparse.ErrSyntax) && !errors.Is(err, pyparse.ErrUnsupported) {
			t.Fatalf("unexpected error kind: %v", err)
		}
		return nil
	}
	return tree
}

func FuzzParse(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		tree := parse(t, context.Background(), clampInput(input, maxFuzzInput))
		if tree == nil {
			return
		}
		if !tree.Is(pyast.Module) {
			t.Fatalf("root is %s", tree.Kind)
		}
		canon.GiveIDs(tree)
	})
}

// FuzzRenderReparses checks that printed trees parse back to the same tree.
func FuzzRenderReparses(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		ctx := context.Background()
		tree := parse(t, ctx, clampInput(input, maxFuzzInput))
		if tree == nil {
			return
		}
		out := render.Source(tree)
		again, err := pyparse.Parse(ctx, out)
		if err != nil {
			t.Fatalf("rendered source does not parse: %v\n%s", err, out)
		}
		if !pyast.Equal(tree, again) {
			t.Fatalf("reparse differs\nfirst:\n%s\nsecond:\n%s", out, render.Source(again))
		}
	})
}

func FuzzCanonicalize(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		ctx := context.Background()
		tree := parse(t, ctx, clampInput(input, 8<<10))
		if tree == nil {
			return
		}
		canon.GiveIDs(tree)
		bag := diag.NewBag(64)
		c := canon.New(canon.Options{}, diag.BagReporter{Bag: bag})
		out, err := c.Canonicalize(ctx, tree)
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		if err := testkit.CheckGlobalIDs(out, tree); err != nil {
			t.Fatalf("%v\ninput:\n%s", err, input)
		}
		if _, err := pyparse.Parse(ctx, render.Source(out)); err != nil {
			t.Fatalf("canonical source does not parse: %v\n%s", err, render.Source(out))
		}
	})
}

func FuzzDiffRoundTrip(f *testing.F) {
	f.Add([]byte("def f(x):\n    return x\n"), []byte("def f(x):\n    return x * 2\n"))
	f.Add([]byte("x = 1\ny = 2\n"), []byte("y = 2\nz = 3\nx = 1\n"))
	f.Add([]byte(""), []byte("def f():\n    pass\n"))
	f.Add([]byte("if a:\n    b = 1\nelse:\n    b = 2\n"), []byte("b = 1 if a else 2\n"))
	f.Fuzz(func(t *testing.T, a, b []byte) {
		ctx := context.Background()
		s := parse(t, ctx, clampInput(a, 4<<10))
		d := parse(t, ctx, clampInput(b, 4<<10))
		if s == nil || d == nil {
			return
		}
		if err := testkit.CheckRoundTrip(s, d); err != nil {
			t.Fatal(err)
		}
	})
}

// FuzzParseNoHang runs each input against a deadline.
func FuzzParseNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Add([]byte("def f(:\n    return\n"))
	f.Add([]byte("((((((((((((((((((((x))))))))))))))))))))\n"))
	f.Add([]byte("if x:\nif y:\n  pass\n"))
	f.Add([]byte("\t\t\tdef f():\n pass\n"))
	f.Add([]byte("x = [" + "[" + "1,2]," + "]\n"))

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input, maxFuzzInput)
		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = pyparse.New().Parse(ctx, input)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("parser hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], "..."...)
}
