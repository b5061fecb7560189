package canon_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hintgen/internal/canon"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
	"hintgen/internal/testkit"
)

func canonical(t *testing.T, c *canon.Canonicalizer, src string) *pyast.Node {
	t.Helper()
	tree, err := pyparse.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	canon.GiveIDs(tree)
	out, err := c.Canonicalize(context.Background(), tree)
	if err != nil {
		t.Fatalf("canonicalize %q: %v", src, err)
	}
	return out
}

func newCanon(given ...string) *canon.Canonicalizer {
	return canon.New(canon.Options{GivenNames: given, MainFunction: "f"}, nil)
}

func TestEquivalentProgramsMeet(t *testing.T) {
	pairs := []struct{ name, a, b string }{
		{"fold", "def f(x):\n    return 1 + 1\n", "def f(x):\n    return 2\n"},
		{"range", "def f(n):\n    return range(0, n)\n", "def f(n):\n    return range(n)\n"},
		{"demorgan",
			"def f(a, b):\n    if not (a and b):\n        return 1\n    return 2\n",
			"def f(a, b):\n    if not a or not b:\n        return 1\n    return 2\n"},
		{"unused assign", "def f(x):\n    y = 5\n    return x\n", "def f(x):\n    return x\n"},
		{"after return", "def f(x):\n    return x\n    x = 2\n", "def f(x):\n    return x\n"},
		{"chained compare", "def f(x):\n    return 1 < x < 3\n", "def f(x):\n    return 1 < x and x < 3\n"},
		{"helper",
			"def double(x):\n    return x * 2\ndef f(y):\n    return double(y)\n",
			"def f(y):\n    return y * 2\n"},
		{"equals true", "def f(x):\n    return (x > 1) == True\n", "def f(x):\n    return x > 1\n"},
		{"names", "def f(apple):\n    return apple\n", "def f(banana):\n    return banana\n"},
	}
	c := newCanon("f")
	for _, p := range pairs {
		a, b := canonical(t, c, p.a), canonical(t, c, p.b)
		if !pyast.Equal(a, b) {
			t.Fatalf("%s: canonical forms differ\n%s---\n%s", p.name, render.Source(a), render.Source(b))
		}
	}
}

func TestCanonicalNodesKeepProvenance(t *testing.T) {
	srcs := []string{
		"def f(x):\n    return 1 + 1\n",
		"def f(a, b):\n    if not (a and b):\n        return 1\n    return 2\n",
		"def f(x):\n    return 1 < x < 3\n",
		"def double(x):\n    return x * 2\ndef f(y):\n    return double(y)\n",
		"def f(x):\n    y = x\n    y += 1\n    return y\n",
		"def f(xs):\n    total = 0\n    for x in xs:\n        if x > 0:\n            total = total + x\n    return total\n",
	}
	c := newCanon("f")
	for _, src := range srcs {
		orig, err := pyparse.Parse(context.Background(), src)
		if err != nil {
			t.Fatal(err)
		}
		canon.GiveIDs(orig)
		out, err := c.Canonicalize(context.Background(), orig)
		if err != nil {
			t.Fatal(err)
		}
		if err := testkit.CheckGlobalIDs(out, orig); err != nil {
			t.Fatalf("%q: %v", src, err)
		}
	}
}

func TestDifferentProgramsStayApart(t *testing.T) {
	c := newCanon("f")
	a := canonical(t, c, "def f(x):\n    return x + 1\n")
	b := canonical(t, c, "def f(x):\n    return x - 1\n")
	if pyast.Equal(a, b) {
		t.Fatalf("x + 1 and x - 1 must not canonicalize together")
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	sources := []string{
		"def f(x):\n    y = x * 2\n    if y > 3:\n        return True\n    else:\n        return False\n",
		"def f(xs):\n    total = 0\n    for v in xs:\n        total = total + v\n    return total\n",
		"def f(a, b):\n    return b + a\n",
	}
	c := newCanon("f")
	for _, src := range sources {
		once := canonical(t, c, src)
		twice, err := c.Canonicalize(context.Background(), once)
		if err != nil {
			t.Fatal(err)
		}
		if !pyast.Equal(once, twice) {
			t.Fatalf("second pass changed the tree\n%s---\n%s", render.Source(once), render.Source(twice))
		}
	}
}

func TestInputIsNotModified(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "def f(x):\n    return 1 + x * 0\n")
	if err != nil {
		t.Fatal(err)
	}
	before := render.Source(tree)
	if _, err := newCanon("f").Canonicalize(context.Background(), tree); err != nil {
		t.Fatal(err)
	}
	if after := render.Source(tree); after != before {
		t.Fatalf("input changed:\n%s", after)
	}
}

func TestAnonymizedNames(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "def f(a):\n    b = a\n    return b\n")
	if err != nil {
		t.Fatal(err)
	}
	out, err := newCanon("f").Anonymize(context.Background(), tree)
	if err != nil {
		t.Fatal(err)
	}
	src := render.Source(out)
	for _, want := range []string{"def f(p0_f):", "v0_f = p0_f", "return v0_f"} {
		if !strings.Contains(src, want) {
			t.Fatalf("missing %q in\n%s", want, src)
		}
	}
	b := out.Body().Node(0).Body().Node(0).ListField("targets").Node(0)
	if b.Meta.OriginalID != "b" {
		t.Fatalf("original id = %q, want b", b.Meta.OriginalID)
	}
}

func TestHelperGetsSyntheticName(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "def g(x):\n    print(x)\n    return x\ndef f(y):\n    return g(y)\n")
	if err != nil {
		t.Fatal(err)
	}
	out, err := newCanon("f").Anonymize(context.Background(), tree)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Body().Node(0).Ident("name"); !strings.HasPrefix(got, "helper_g") {
		t.Fatalf("helper renamed to %q", got)
	}
}

func TestUndefinedNameIsRandom(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "def f():\n    return missing\n")
	if err != nil {
		t.Fatal(err)
	}
	out, err := newCanon("f").Anonymize(context.Background(), tree)
	if err != nil {
		t.Fatal(err)
	}
	ret := out.Body().Node(0).Body().Node(0).Child("value")
	if !ret.Tags.Has(pyast.TagRandomVar) || !strings.HasPrefix(ret.Ident("id"), "r0") {
		t.Fatalf("got %s", render.Expr(ret))
	}
}

func TestMultiCompareIsTagged(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "x = 1\ny = 0 < x < 2\n")
	if err != nil {
		t.Fatal(err)
	}
	out, err := newCanon().Anonymize(context.Background(), tree)
	if err != nil {
		t.Fatal(err)
	}
	v := out.Body().Node(1).Child("value")
	if !v.Is(pyast.BoolOp) || !v.Tags.Has(pyast.TagMultiComp) || v.ListField("values").Len() != 2 {
		t.Fatalf("got %s", render.Expr(v))
	}
}

func TestRejectsNonModule(t *testing.T) {
	_, err := newCanon().Canonicalize(context.Background(), pyast.NewName("x"))
	if err == nil {
		t.Fatalf("expected an error for a bare expression")
	}
}

func TestCanceledContext(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newCanon().Canonicalize(ctx, tree); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestIterationCapIsReported(t *testing.T) {
	bag := diag.NewBag(16)
	c := canon.New(canon.Options{GivenNames: []string{"f"}, MaxIterations: 1}, diag.BagReporter{Bag: bag})
	canonical(t, c, "def f(x):\n    y = 1 + 1\n    return x + y\n")
	found := false
	for _, d := range bag.Items() {
		found = found || d.Code == diag.CanonNoFixedPoint
	}
	if !found {
		t.Fatalf("expected a fixed-point warning")
	}
}

func TestPassNames(t *testing.T) {
	got := canon.PassNames()
	if len(got) != 14 || got[0] != "constantFolding" || got[len(got)-1] != "deadCodeRemoval" {
		t.Fatalf("got %v", got)
	}
}
