package differ_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hintgen/internal/change"
	"hintgen/internal/differ"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/testkit"
)

func parse(t *testing.T, src string) *pyast.Node {
	t.Helper()
	tree, err := pyparse.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return tree
}

func kinds(vs []*change.Vector) []change.Kind {
	out := make([]change.Kind, len(vs))
	for i, v := range vs {
		out[i] = v.Kind
	}
	return out
}

func TestIdenticalTreesHaveNoDistance(t *testing.T) {
	a := parse(t, "def f(x):\n    return x * 2\n")
	d, vs := differ.Distance(a, pyast.Copy(a), differ.Options{})
	if d != 0 || len(vs) != 0 {
		t.Fatalf("distance %v with %d vectors", d, len(vs))
	}
	if d, _ := differ.Distance(a, nil, differ.Options{}); d != 1 {
		t.Fatalf("distance to nothing = %v", d)
	}
}

func TestFoldableExpressionIsOneReplace(t *testing.T) {
	a := parse(t, "def f():\n    return 1 + 1\n")
	b := parse(t, "def f():\n    return 2\n")
	vs := differ.Diff(a, b, differ.Options{})
	if diff := cmp.Diff([]change.Kind{change.Replace}, kinds(vs)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if !vs[0].Old.(*pyast.Node).Is(pyast.BinOp) || !vs[0].New.(*pyast.Node).Is(pyast.Num) {
		t.Fatalf("unexpected replace %s", vs[0])
	}
}

func TestRotationIsOneMove(t *testing.T) {
	a := parse(t, "a = 1\nb = 2\nc = 3\n")
	b := parse(t, "c = 3\na = 1\nb = 2\n")
	vs := differ.Diff(a, b, differ.Options{})
	if diff := cmp.Diff([]change.Kind{change.Move}, kinds(vs)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if vs[0].From != 2 || vs[0].To != 0 {
		t.Fatalf("move %d -> %d", vs[0].From, vs[0].To)
	}
	assertReaches(t, a, b, vs)
}

func TestReversalIsTwoSwaps(t *testing.T) {
	a := parse(t, "a = 1\nb = 2\nc = 3\nd = 4\n")
	b := parse(t, "d = 4\nc = 3\nb = 2\na = 1\n")
	vs := differ.Diff(a, b, differ.Options{})
	if diff := cmp.Diff([]change.Kind{change.Swap, change.Swap}, kinds(vs)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	assertReaches(t, a, b, vs)
}

func TestElseBranchIsOneAdd(t *testing.T) {
	a := parse(t, "def f(x):\n    if x > 0:\n        return 1\n")
	b := parse(t, "def f(x):\n    if x > 0:\n        return 1\n    else:\n        return 2\n")
	vs := differ.Diff(a, b, differ.Options{})
	if diff := cmp.Diff([]change.Kind{change.Add}, kinds(vs)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	want := pyast.Path{
		pyast.IndexStep(0), pyast.FieldStep("orelse", pyast.If),
		pyast.IndexStep(0), pyast.FieldStep("body", pyast.FunctionDef),
		pyast.IndexStep(0), pyast.FieldStep("body", pyast.Module),
	}
	if diff := cmp.Diff(want, vs[0].Path); diff != "" {
		t.Fatalf("path (-want +got):\n%s", diff)
	}
	assertReaches(t, a, b, vs)
}

func TestSubAndSuper(t *testing.T) {
	a := parse(t, "x = y\n")
	b := parse(t, "x = y + 1\n")
	vs := differ.Diff(a, b, differ.Options{})
	if len(vs) != 1 || vs[0].Kind != change.Sub {
		t.Fatalf("got %s", change.Format(vs))
	}
	back := differ.Diff(b, a, differ.Options{})
	if len(back) != 1 || back[0].Kind != change.Super {
		t.Fatalf("got %s", change.Format(back))
	}
	// one token grows or shrinks
	if w := differ.ChangesWeight(vs, true); w != 2 {
		t.Fatalf("weight %d", w)
	}
}

func TestIgnoreVariables(t *testing.T) {
	a := parse(t, "def f(a):\n    return a + 1\n")
	b := parse(t, "def f(b):\n    return b + 1\n")
	if vs := differ.Diff(a, b, differ.Options{IgnoreVariables: true}); len(vs) != 1 {
		// the parameter name is an Arg, not a Name, so only it differs
		t.Fatalf("got %s", change.Format(vs))
	}
	c := parse(t, "def f(a):\n    return len + 1\n")
	if vs := differ.Diff(a, c, differ.Options{IgnoreVariables: true}); len(vs) != 1 {
		t.Fatalf("builtins must still differ: %s", change.Format(vs))
	}
}

func TestWeight(t *testing.T) {
	cases := []struct {
		src  string
		want int
	}{
		{"x = 1\n", 3},
		{"return\n", 1},
		{"f(x)\n", 2},
		{"f()\n", 2},
		{"x = a < b < c\n", 7},
		{"if a:\n    pass\nelse:\n    pass\n", 5},
		{"import math as m\n", 4},
	}
	for _, tc := range cases {
		if got := differ.Weight(parse(t, tc.src), true); got != tc.want {
			t.Fatalf("%q: weight %d, want %d", tc.src, got, tc.want)
		}
	}
	ph := pyast.NewModule(pyast.NewExpr(pyast.NewStr("~var~")))
	if got := differ.Weight(ph, false); got != 1 {
		t.Fatalf("placeholder statement weight %d", got)
	}
}

var corpus = []string{
	"def f(x):\n    return x + 1\n",
	"def f(x):\n    y = x + 1\n    return y\n",
	"def f(x, y):\n    if x > y:\n        return x\n    return y\n",
	"def f(x, y):\n    if x > y:\n        return x\n    else:\n        return y\n",
	"def f(xs):\n    total = 0\n    for x in xs:\n        total += x\n    return total\n",
	"def f(xs):\n    return sum(xs)\n",
	"def f(xs):\n    out = []\n    for x in xs:\n        if x % 2 == 0:\n            out.append(x)\n    return out\n",
	"def f(xs):\n    return [x for x in xs if x % 2 == 0]\n",
	"def f(d):\n    return {k: v for k, v in d.items()}\n",
	"def f(s):\n    while s:\n        s = s[1:]\n    return len(s)\n",
	"x = 1\ny = 2\nz = x + y\nprint(z)\n",
	"print(z)\nz = x + y\ny = 2\n",
	"import math\ndef f(r):\n    return math.pi * r ** 2\n",
	"def f(a, b=2, *c, **d):\n    global g\n    return {1: a, **d}\n",
}

func assertReaches(t *testing.T, a, b *pyast.Node, vs []*change.Vector) {
	t.Helper()
	got, err := change.ApplyAll(a, vs)
	if err != nil {
		t.Fatalf("apply: %v\n%s", err, change.Format(vs))
	}
	if !pyast.Equal(got, b) {
		t.Fatalf("applying the diff did not reach the target\n%s", change.Format(vs))
	}
}

func TestDiffThenApplyReachesTarget(t *testing.T) {
	trees := make([]*pyast.Node, len(corpus))
	for i, src := range corpus {
		trees[i] = parse(t, src)
	}
	for _, a := range trees {
		for _, b := range trees {
			if err := testkit.CheckRoundTrip(a, b); err != nil {
				t.Fatal(err)
			}
		}
	}
}

// Statement lists drawn from a small pool, compared in every arrangement.
func TestListArrangementsRoundTrip(t *testing.T) {
	pool := []string{"a = 1", "b = 2", "c += 1", "d()", "e = f", "pass"}
	var arrangements [][]string
	var grow func(cur []string, used []bool)
	grow = func(cur []string, used []bool) {
		arrangements = append(arrangements, append([]string(nil), cur...))
		if len(cur) == 4 {
			return
		}
		for i, s := range pool {
			if !used[i] {
				used[i] = true
				grow(append(cur, s), used)
				used[i] = false
			}
		}
	}
	grow(nil, make([]bool, len(pool)))

	build := func(stmts []string) *pyast.Node {
		src := ""
		for _, s := range stmts {
			src += s + "\n"
		}
		return parse(t, src)
	}
	for n := 0; n <= 4; n++ {
		a := build(pool[:n])
		for _, arr := range arrangements {
			b := build(arr)
			assertReaches(t, a, b, differ.Diff(a, b, differ.Options{}))
		}
	}
}

func TestRebaseOnSameTree(t *testing.T) {
	a := parse(t, "a = 1\nb = 2\n")
	b := parse(t, "b = 2\na = 1\nc = 3\n")
	vs := differ.Diff(a, b, differ.Options{})
	got, applied, skipped, err := differ.Rebase(vs, a, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 0 || len(applied) != len(vs) || !pyast.Equal(got, b) {
		t.Fatalf("rebase applied %d skipped %d", len(applied), len(skipped))
	}
}
