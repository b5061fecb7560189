package individualize_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hintgen/internal/canon"
	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/individualize"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
	"hintgen/internal/testkit"
)

// prepare parses src and returns the original tree with IDs and its canonical form.
func prepare(t *testing.T, src string) (orig, canonical *pyast.Node) {
	t.Helper()
	orig, err := pyparse.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	canon.GiveIDs(orig)
	c := canon.New(canon.Options{GivenNames: []string{"f"}, MainFunction: "f"}, nil)
	canonical, err = c.Canonicalize(context.Background(), orig)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	return orig, canonical
}

// mapEdit diffs canonical against target, maps the edit and renders the result.
func mapEdit(t *testing.T, orig, canonical, target *pyast.Node) (string, []*change.Vector) {
	t.Helper()
	edit := differ.Diff(canonical, target, differ.Options{})
	if len(edit) == 0 {
		t.Fatalf("no edit between\n%s---\n%s", render.Source(canonical), render.Source(target))
	}
	out, err := individualize.New(nil).MapEdit(context.Background(), canonical, orig, edit)
	if err != nil {
		t.Fatalf("MapEdit: %v", err)
	}
	return result(t, orig, out), out
}

func result(t *testing.T, orig *pyast.Node, vs []*change.Vector) string {
	t.Helper()
	if len(vs) == 0 {
		return render.Source(orig)
	}
	tree, err := vs[len(vs)-1].Apply()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return render.Source(tree)
}

func returnValue(t *testing.T, tree *pyast.Node) *pyast.Node {
	t.Helper()
	var ret *pyast.Node
	pyast.Inspect(tree, func(n *pyast.Node) bool {
		if ret == nil && n.Is(pyast.Return) {
			ret = n
		}
		return ret == nil
	})
	if ret == nil {
		t.Fatalf("no return in\n%s", render.Source(tree))
	}
	return ret
}

func paramName(tree *pyast.Node) string {
	return tree.Body().Node(0).Child("args").ListField("args").Node(0).Ident("arg")
}

func TestEditLandsPastRemovedCode(t *testing.T) {
	orig, canonical := prepare(t, "def f(x):\n    y = 5\n    return x + 1\n")
	target := pyast.Copy(canonical)
	pyast.Inspect(returnValue(t, target), func(n *pyast.Node) bool {
		if n.Is(pyast.Num) && pyast.Equal(n.Field("n"), pyast.IntVal(1)) {
			n.Set("n", pyast.IntVal(2))
		}
		return true
	})

	got, vs := mapEdit(t, orig, canonical, target)
	if !strings.Contains(got, "y = 5") || !strings.Contains(got, "return x + 2") {
		t.Fatalf("unexpected result:\n%s", got)
	}
	for _, v := range vs {
		if v.Start == nil {
			t.Fatalf("vector %s has no start tree", v)
		}
	}
}

func TestNamesAreRestored(t *testing.T) {
	orig, canonical := prepare(t, "def f(apple):\n    return apple\n")
	target := pyast.Copy(canonical)
	returnValue(t, target).Set("value",
		pyast.NewBinOp(pyast.NewName(paramName(canonical)), pyast.Sub, pyast.NewName("v9_f")))

	got, _ := mapEdit(t, orig, canonical, target)
	if !strings.Contains(got, "return apple - new_var_0") {
		t.Fatalf("names not restored:\n%s", got)
	}
	if strings.Contains(got, "p0_f") || strings.Contains(got, "v9_f") {
		t.Fatalf("anonymized name leaked:\n%s", got)
	}
}

func TestChainedComparisonKeepsItsShape(t *testing.T) {
	orig, canonical := prepare(t, "def f(x):\n    return 1 < x < 10\n")
	if !returnValue(t, canonical).Child("value").Tags.Has(pyast.TagMultiComp) {
		t.Fatalf("comparison was not split:\n%s", render.Source(canonical))
	}
	target := pyast.Copy(canonical)
	parts := returnValue(t, target).Child("value").ListField("values")
	parts.Node(1).ListField("comparators").Items[0] = pyast.NewInt(20)

	got, vs := mapEdit(t, orig, canonical, target)
	if !strings.Contains(got, "return 1 < x < 20") {
		t.Fatalf("unexpected result:\n%s", got)
	}
	for _, v := range vs {
		if n := pyast.AsNode(v.Old); n.Is(pyast.BoolOp) {
			t.Fatalf("edit mentions the split form: %s", v)
		}
	}
}

func TestReversedOperatorIsRestored(t *testing.T) {
	orig, canonical := prepare(t, "def f(x):\n    return x > 3\n")
	target := pyast.Copy(canonical)
	cmp := returnValue(t, target).Child("value")
	if !cmp.ListField("ops").Node(0).Tags.Has(pyast.TagReversed) {
		t.Fatalf("comparison was not reversed:\n%s", render.Source(canonical))
	}
	cmp.Set("ops", pyast.NodeList(pyast.Op(pyast.LtE)))

	got, _ := mapEdit(t, orig, canonical, target)
	if !strings.Contains(got, "return x >= 3") {
		t.Fatalf("unexpected result:\n%s", got)
	}
}

func TestCombinedTestIsSplitBack(t *testing.T) {
	src := "def f(a, b):\n    if a:\n        if b:\n            return 1\n    return 0\n"
	orig, canonical := prepare(t, src)
	target := pyast.Copy(canonical)
	var ifStmt *pyast.Node
	pyast.Inspect(target, func(n *pyast.Node) bool {
		if ifStmt == nil && n.Is(pyast.If) {
			ifStmt = n
		}
		return ifStmt == nil
	})
	if ifStmt == nil || !ifStmt.Child("test").Tags.Has(pyast.TagCombinedConditional) {
		t.Fatalf("ifs were not combined:\n%s", render.Source(canonical))
	}
	ifStmt.Set("test", pyast.NewName(paramName(canonical)))

	got, _ := mapEdit(t, orig, canonical, target)
	if strings.Contains(got, "if b") || !strings.Contains(got, "if a:") || !strings.Contains(got, "return 1") {
		t.Fatalf("unexpected result:\n%s", got)
	}
}

func TestHelperEditIsRejected(t *testing.T) {
	orig, err := pyparse.Parse(context.Background(), "def f(a):\n    b = a\n    return b\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	canon.GiveIDs(orig)
	canonical := pyast.Copy(orig)
	canonical.Body().Node(0).Body().Node(0).Tags.Set(pyast.TagHelperParamAssign)

	del := &change.Vector{
		Kind: change.Delete,
		Path: pyast.Path{
			pyast.IndexStep(0), pyast.FieldStep("body", pyast.FunctionDef),
			pyast.IndexStep(0), pyast.FieldStep("body", pyast.Module),
		},
		Old:   canonical.Body().Node(0).Body().Node(0),
		Start: canonical,
	}
	bag := diag.NewBag(10)
	_, err = individualize.New(diag.BagReporter{Bag: bag}).MapEdit(context.Background(), canonical, orig, []*change.Vector{del})
	if !errors.Is(err, individualize.ErrHelperEdit) {
		t.Fatalf("want ErrHelperEdit, got %v", err)
	}
	found := false
	for _, d := range bag.Items() {
		found = found || d.Code == diag.IndivHelperEdit
	}
	if !found {
		t.Fatalf("helper edit not reported: %v", bag.Items())
	}
}

func TestIdentityEditMapsToNothing(t *testing.T) {
	orig, canonical := prepare(t, "def f(x):\n    return x\n")
	out, err := individualize.New(nil).MapEdit(context.Background(), canonical, orig, nil)
	if err != nil {
		t.Fatalf("MapEdit: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("want no vectors, got %s", change.Format(out))
	}
}

func TestCanceledContext(t *testing.T) {
	orig, canonical := prepare(t, "def f(x):\n    return x + 1\n")
	target := pyast.Copy(canonical)
	returnValue(t, target).Set("value", pyast.NewInt(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := individualize.New(nil).MapEdit(ctx, canonical, orig, differ.Diff(canonical, target, differ.Options{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

// TestMappedEditCommutesWithCanonicalization checks that an edit computed
// between two canonical forms, mapped onto the student's tree and applied
// there, leads to a program with the target's canonical form.
func TestMappedEditCommutesWithCanonicalization(t *testing.T) {
	cases := []struct{ name, src, dst string }{
		{"demorgan",
			"def f(a, b, c):\n    if not (a and b):\n        return 1\n    return 2\n",
			"def f(a, b, c):\n    if not (a and c):\n        return 1\n    return 2\n"},
		{"reversed comparison",
			"def f(x):\n    return x > 3\n",
			"def f(x):\n    return x >= 3\n"},
		{"reversed operand",
			"def f(x):\n    return x > 3\n",
			"def f(x):\n    return x > 4\n"},
		{"comparison chain",
			"def f(x):\n    return 1 < x < 10\n",
			"def f(x):\n    return 1 < x < 20\n"},
		{"combined if",
			"def f(a, b):\n    if a:\n        if b:\n            return 1\n    return 0\n",
			"def f(a, b):\n    if a:\n        if b:\n            return 5\n    return 0\n"},
		{"copy propagation",
			"def f(x):\n    y = x + 1\n    return y * 2\n",
			"def f(x):\n    y = x + 5\n    return y * 2\n"},
		{"augmented assignment",
			"def f(xs):\n    total = 0\n    for v in xs:\n        total += v\n    return total\n",
			"def f(xs):\n    total = 0\n    for v in xs:\n        total += v * 2\n    return total\n"},
		{"inlined helper",
			"def double(x):\n    return x * 2\ndef f(y):\n    return double(y) + 1\n",
			"def double(x):\n    return x * 2\ndef f(y):\n    return double(y) + 3\n"},
		{"renamed parameter",
			"def f(apple):\n    return apple + 1\n",
			"def f(banana):\n    return banana - 1\n"},
	}
	c := canon.New(canon.Options{GivenNames: []string{"f"}, MainFunction: "f"}, nil)
	ctx := context.Background()
	canonicalOf := func(t *testing.T, src string) (*pyast.Node, *pyast.Node) {
		t.Helper()
		orig, err := pyparse.Parse(ctx, src)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		canon.GiveIDs(orig)
		out, err := c.Canonicalize(ctx, orig)
		if err != nil {
			t.Fatalf("canonicalize %q: %v", src, err)
		}
		return orig, out
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig, from := canonicalOf(t, tc.src)
			_, to := canonicalOf(t, tc.dst)

			again, err := c.Canonicalize(ctx, from)
			if err != nil {
				t.Fatalf("second canonicalization: %v", err)
			}
			if !pyast.Equal(from, again) {
				t.Fatalf("canonical form is not stable\n%s---\n%s", render.Source(from), render.Source(again))
			}
			if err := testkit.CheckGlobalIDs(from, orig); err != nil {
				t.Fatalf("provenance: %v", err)
			}
			if err := testkit.CheckRoundTrip(from, to); err != nil {
				t.Fatalf("round trip: %v", err)
			}

			edit := differ.Diff(from, to, differ.Options{})
			if len(edit) == 0 {
				t.Fatalf("no edit between\n%s---\n%s", render.Source(from), render.Source(to))
			}
			mapped, err := individualize.New(nil).MapEdit(ctx, from, orig, edit)
			if errors.Is(err, individualize.ErrHelperEdit) {
				t.Skipf("edit reaches into an inlined helper: %v", err)
			}
			if err != nil {
				t.Fatalf("MapEdit: %v", err)
			}
			got := result(t, orig, mapped)
			_, reached := canonicalOf(t, got)
			if !pyast.Equal(reached, to) {
				t.Fatalf("mapped edit produced\n%s\nwhose canonical form\n%s\ndiffers from the target's\n%s",
					got, render.Source(reached), render.Source(to))
			}
		})
	}
}
