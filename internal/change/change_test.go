package change_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hintgen/internal/change"
	"hintgen/internal/pyast"
	"hintgen/internal/testkit"
)

var body = pyast.FieldStep("body", pyast.Module)

func stmt(v int) *pyast.Node { return pyast.NewExpr(pyast.NewInt(int64(v))) }

func module(n int) *pyast.Node {
	stmts := make([]*pyast.Node, n)
	for i := range stmts {
		stmts[i] = stmt(i)
	}
	return pyast.NewModule(stmts...)
}

func values(t *testing.T, mod *pyast.Node) []int {
	t.Helper()
	var out []int
	for _, s := range mod.Body().Nodes() {
		v, ok := pyast.NumValue(s.Child("value"))
		if !ok {
			t.Fatalf("statement is not a number: %s", s.Kind)
		}
		out = append(out, int(v.(pyast.IntVal)))
	}
	return out
}

func at(i int) pyast.Path { return pyast.Path{pyast.IndexStep(i), body} }

func TestApplyListEdits(t *testing.T) {
	start := module(4)
	cases := []struct {
		v    *change.Vector
		want []int
	}{
		{&change.Vector{Kind: change.Add, Path: at(1), New: stmt(9)}, []int{0, 9, 1, 2, 3}},
		{&change.Vector{Kind: change.Add, Path: at(4), New: stmt(9)}, []int{0, 1, 2, 3, 9}},
		{&change.Vector{Kind: change.Delete, Path: at(2), Old: stmt(2)}, []int{0, 1, 3}},
		{&change.Vector{Kind: change.Move, Path: at(3), From: 3, To: 0}, []int{3, 0, 1, 2}},
		{&change.Vector{Kind: change.Move, Path: at(0), From: 0, To: 2}, []int{1, 2, 0, 3}},
		{&change.Vector{Kind: change.Swap, Path: at(0), From: 0, To: 3}, []int{3, 1, 2, 0}},
	}
	for _, c := range cases {
		c.v.Start = start
		got, err := c.v.Apply()
		if err != nil {
			t.Fatalf("%s: %v", c.v, err)
		}
		if diff := cmp.Diff(c.want, values(t, got)); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", c.v, diff)
		}
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3}, values(t, start)); diff != "" {
		t.Fatalf("start tree was mutated:\n%s", diff)
	}
}

func TestReplaceTakesPosition(t *testing.T) {
	start := pyast.NewModule(pyast.NewReturn(pyast.NewName("x")))
	ret := start.Body().Node(0)
	ret.Child("value").Line, ret.Child("value").Col = 3, 11
	repl := pyast.NewInt(1)
	v := &change.Vector{
		Kind:  change.Replace,
		Path:  pyast.Path{pyast.FieldStep("value", pyast.Return), pyast.IndexStep(0), body},
		Old:   ret.Child("value"),
		New:   repl,
		Start: start,
	}
	got, err := v.Apply()
	if err != nil {
		t.Fatal(err)
	}
	n := got.Body().Node(0).Child("value")
	if !n.Is(pyast.Num) || n.Line != 3 || n.Col != 11 {
		t.Fatalf("replacement at %d:%d, kind %s", n.Line, n.Col, n.Kind)
	}
	if n == repl || repl.Line != 0 {
		t.Fatalf("replacement must be copied into the tree")
	}
}

func TestRenameClearsOriginalID(t *testing.T) {
	name := pyast.NewName("v1")
	name.Meta.OriginalID = "total"
	start := pyast.NewModule(pyast.NewExpr(name))
	v := &change.Vector{
		Kind:  change.Replace,
		Path:  pyast.Path{pyast.FieldStep("id", pyast.Name), pyast.FieldStep("value", pyast.Expr), pyast.IndexStep(0), body},
		Old:   pyast.StrVal("v1"),
		New:   pyast.StrVal("v2"),
		Start: start,
	}
	got, err := v.Apply()
	if err != nil {
		t.Fatal(err)
	}
	n := got.Body().Node(0).Child("value")
	if n.Ident("id") != "v2" || n.Meta.OriginalID != "" {
		t.Fatalf("got id %q original %q", n.Ident("id"), n.Meta.OriginalID)
	}
	if name.Meta.OriginalID != "total" {
		t.Fatalf("start tree was mutated")
	}
}

func TestBadPath(t *testing.T) {
	start := module(2)
	for _, v := range []*change.Vector{
		{Kind: change.Delete, Path: at(5)},
		{Kind: change.Add, Path: at(7), New: stmt(1)},
		{Kind: change.Replace, Path: pyast.Path{pyast.FieldStep("nope", pyast.Expr), pyast.IndexStep(0), body}, New: pyast.NewInt(1)},
		{Kind: change.Replace, Path: pyast.Path{pyast.FieldStep("value", pyast.Expr), pyast.IndexStep(9), body}, New: pyast.NewInt(1)},
	} {
		v.Start = start
		if _, err := v.Apply(); !errors.Is(err, change.ErrBadPath) {
			t.Fatalf("%s: expected ErrBadPath, got %v", v, err)
		}
	}
	if _, err := (&change.Vector{Kind: change.Delete, Path: at(0)}).Apply(); !errors.Is(err, change.ErrNoStart) {
		t.Fatalf("expected ErrNoStart, got %v", err)
	}
}

func TestCrossSwap(t *testing.T) {
	// if a: x() else: y()
	start := pyast.NewModule(pyast.NewIf(pyast.NewName("a"),
		[]*pyast.Node{pyast.NewExpr(pyast.NewCall(pyast.NewName("x")))},
		[]*pyast.Node{pyast.NewExpr(pyast.NewCall(pyast.NewName("y")))}))
	ifPath := pyast.Path{pyast.IndexStep(0), body}
	v := &change.Vector{
		Kind:    change.Swap,
		OldPath: ifPath.Prepend(pyast.FieldStep("body", pyast.If)),
		NewPath: ifPath.Prepend(pyast.FieldStep("orelse", pyast.If)),
		Start:   start,
	}
	got, err := v.Apply()
	if err != nil {
		t.Fatal(err)
	}
	n := got.Body().Node(0)
	if !pyast.IsCallTo(n.Body().Node(0).Child("value"), "y") || !pyast.IsCallTo(n.Orelse().Node(0).Child("value"), "x") {
		t.Fatalf("branches were not exchanged")
	}
}

func TestUpdateTracksEarlierEdits(t *testing.T) {
	start := module(5)
	vs := []*change.Vector{
		{Kind: change.Delete, Path: at(1), Old: stmt(1)},
		{Kind: change.Delete, Path: at(3), Old: stmt(3)},
		{Kind: change.Add, Path: at(3), New: stmt(20)},
		{Kind: change.Add, Path: at(5), New: stmt(21)},
		{Kind: change.Move, Path: at(4), From: 4, To: 0},
	}
	got, err := change.ApplyAll(start, vs)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 0, 2, 20, 21}, values(t, got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestMoveConflict(t *testing.T) {
	start := module(3)
	vs := []*change.Vector{
		{Kind: change.Move, Path: at(0), From: 0, To: 2},
		{Kind: change.Move, Path: at(0), From: 0, To: 1},
	}
	if _, err := change.ApplyAll(start, vs); !errors.Is(err, change.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

// Every pair of list edits on every list up to six elements must leave the position map
// describing exactly which original element sits in each slot.
func TestPosMapDescribesList(t *testing.T) {
	for n := 0; n <= 6; n++ {
		if err := testkit.CheckPosMap(n); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCompareOrdersByKindThenPath(t *testing.T) {
	vs := []*change.Vector{
		{Kind: change.Move, Path: at(0)},
		{Kind: change.Add, Path: at(2), New: stmt(1)},
		{Kind: change.Replace, Path: at(3), New: stmt(1)},
		{Kind: change.Add, Path: at(1), New: stmt(1)},
		{Kind: change.Delete, Path: at(0)},
	}
	slices.SortFunc(vs, change.Compare)
	var got []string
	for _, v := range vs {
		got = append(got, fmt.Sprintf("%s%s", v.Kind, v.Path))
	}
	want := []string{"Replace[3, (body,Module)]", "Add[1, (body,Module)]", "Add[2, (body,Module)]", "Delete[0, (body,Module)]", "Move[0, (body,Module)]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestStringRendersSubtrees(t *testing.T) {
	v := &change.Vector{Kind: change.Replace, Path: at(0), Old: pyast.NewName("x"), New: pyast.NewBinOp(pyast.NewName("x"), pyast.Add, pyast.NewInt(1))}
	if got := v.String(); got != "x - x + 1 : [0, (body,Module)]" {
		t.Fatalf("got %q", got)
	}
}
