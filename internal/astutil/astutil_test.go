package astutil_test

import (
	"errors"
	"testing"

	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

func typed(n *pyast.Node, t pyast.Type) *pyast.Node {
	n.Meta.Type = t
	return n
}

func TestBinaryOpFolds(t *testing.T) {
	cases := []struct {
		op   pyast.Kind
		l, r pyast.Value
		want pyast.Value
	}{
		{pyast.Add, pyast.IntVal(1), pyast.IntVal(1), pyast.IntVal(2)},
		{pyast.Add, pyast.StrVal("ab"), pyast.StrVal("c"), pyast.StrVal("abc")},
		{pyast.Sub, pyast.FloatVal(1.5), pyast.IntVal(1), pyast.FloatVal(0.5)},
		{pyast.FloorDiv, pyast.IntVal(-7), pyast.IntVal(2), pyast.IntVal(-4)},
		{pyast.Mod, pyast.IntVal(-7), pyast.IntVal(2), pyast.IntVal(1)},
		{pyast.Pow, pyast.IntVal(2), pyast.IntVal(10), pyast.IntVal(1024)},
		{pyast.Mult, pyast.StrVal("ab"), pyast.IntVal(2), pyast.StrVal("abab")},
		{pyast.Div, pyast.IntVal(1), pyast.IntVal(4), pyast.FloatVal(0.25)},
		{pyast.BitAnd, pyast.BoolVal(true), pyast.BoolVal(false), pyast.BoolVal(false)},
	}
	for _, tc := range cases {
		got, err := astutil.BinaryOp(tc.op, tc.l, tc.r)
		if err != nil {
			t.Fatalf("%s %v %v: %v", tc.op, tc.l, tc.r, err)
		}
		if got != tc.want {
			t.Fatalf("%s %v %v = %v, want %v", tc.op, tc.l, tc.r, got, tc.want)
		}
	}
}

func TestBinaryOpRefuses(t *testing.T) {
	if _, err := astutil.BinaryOp(pyast.Div, pyast.IntVal(1), pyast.IntVal(3)); !errors.Is(err, astutil.ErrRepeatingFloat) {
		t.Fatalf("1/3 should be rejected as repeating, got %v", err)
	}
	if _, err := astutil.BinaryOp(pyast.Div, pyast.IntVal(1), pyast.IntVal(0)); err == nil {
		t.Fatalf("division by zero folded")
	}
	if _, err := astutil.BinaryOp(pyast.Pow, pyast.IntVal(10), pyast.IntVal(40)); err == nil {
		t.Fatalf("overflowing power folded")
	}
	if _, err := astutil.BinaryOp(pyast.Add, pyast.StrVal("a"), pyast.IntVal(1)); err == nil {
		t.Fatalf("str + int folded")
	}
}

func TestCompareOp(t *testing.T) {
	if ok, err := astutil.CompareOp(pyast.Lt, pyast.IntVal(1), pyast.FloatVal(1.5)); err != nil || !ok {
		t.Fatalf("1 < 1.5: %v %v", ok, err)
	}
	if ok, err := astutil.CompareOp(pyast.In, pyast.StrVal("b"), pyast.StrVal("abc")); err != nil || !ok {
		t.Fatalf("'b' in 'abc': %v %v", ok, err)
	}
	if ok, err := astutil.CompareOp(pyast.Eq, pyast.BoolVal(true), pyast.IntVal(1)); err != nil || !ok {
		t.Fatalf("True == 1: %v %v", ok, err)
	}
	if _, err := astutil.CompareOp(pyast.Lt, pyast.StrVal("a"), pyast.IntVal(1)); err == nil {
		t.Fatalf("str < int folded")
	}
}

func TestNegateCompare(t *testing.T) {
	cmp := pyast.NewCompare(pyast.NewName("x"), []pyast.Kind{pyast.Lt}, pyast.NewInt(3))
	got := astutil.Negate(cmp)
	if got.ListField("ops").Node(0).Kind != pyast.GtE {
		t.Fatalf("expected >=, got %s", got.ListField("ops").Node(0).Kind)
	}
	if !got.Tags.Has(pyast.TagNegated) {
		t.Fatalf("negated tag missing")
	}
	again := astutil.Negate(got)
	if again.ListField("ops").Node(0).Kind != pyast.Lt || again.Tags.Has(pyast.TagNegated) {
		t.Fatalf("double negation should restore the operator and clear the tag")
	}
}

func TestNegateChainedCompare(t *testing.T) {
	cmp := pyast.NewCompare(pyast.NewName("a"), []pyast.Kind{pyast.Lt, pyast.Lt}, pyast.NewName("b"), pyast.NewName("c"))
	got := astutil.Negate(cmp)
	if !got.Is(pyast.BoolOp) || got.Op() != pyast.Or {
		t.Fatalf("expected an or of parts, got %s", got.Kind)
	}
	parts := got.ListField("values").Nodes()
	if len(parts) != 2 || !parts[0].Tags.Has(pyast.TagMultiCompPart) {
		t.Fatalf("unexpected parts %v", parts)
	}
	if parts[1].ListField("ops").Node(0).Kind != pyast.GtE || pyast.NameID(parts[1].Child("left")) != "b" {
		t.Fatalf("second part should be b >= c")
	}
}

func TestNegateWrapsAndUnwraps(t *testing.T) {
	x := typed(pyast.NewName("x"), pyast.TypeBool)
	wrapped := astutil.Negate(x)
	if !wrapped.Is(pyast.UnaryOp) || wrapped.Op() != pyast.Not || !wrapped.Child("op").Tags.Has(pyast.TagAddedNot) {
		t.Fatalf("expected not x")
	}
	if astutil.Negate(wrapped) != x {
		t.Fatalf("not not x should unwrap to x")
	}
}

func TestNumNegate(t *testing.T) {
	if _, ok := astutil.NumNegate(pyast.Op(pyast.Mult)); ok {
		t.Fatalf("Mult has no additive inverse")
	}
	got, ok := astutil.NumNegate(pyast.NewInt(3))
	if !ok || !got.Is(pyast.UnaryOp) || got.Op() != pyast.USub {
		t.Fatalf("expected -3")
	}
}

func TestEventualType(t *testing.T) {
	cases := []struct {
		n    *pyast.Node
		want pyast.Type
	}{
		{pyast.NewBinOp(pyast.NewInt(1), pyast.Add, pyast.NewFloat(2)), pyast.TypeFloat},
		{pyast.NewBinOp(pyast.NewInt(1), pyast.Div, pyast.NewInt(2)), pyast.TypeFloat},
		{pyast.NewCall(pyast.NewName("len"), pyast.NewStr("ab")), pyast.TypeInt},
		{pyast.NewCompare(pyast.NewInt(1), []pyast.Kind{pyast.Lt}, pyast.NewInt(2)), pyast.TypeBool},
		{typed(pyast.NewName("s"), pyast.TypeStr), pyast.TypeStr},
		{typed(pyast.NewName("m"), pyast.TypeMixed), pyast.TypeUnknown},
		{pyast.New(pyast.Bytes, pyast.BytesVal("x")), pyast.TypeBytes},
	}
	for _, tc := range cases {
		if got := astutil.EventualType(tc.n); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.n.Kind, got, tc.want)
		}
	}
}

func TestCouldCrash(t *testing.T) {
	safe := pyast.NewBinOp(pyast.NewInt(1), pyast.Add, pyast.NewInt(2))
	if astutil.CouldCrash(safe) {
		t.Fatalf("1 + 2 cannot crash")
	}
	div := pyast.NewBinOp(typed(pyast.NewName("x"), pyast.TypeInt), pyast.Div, typed(pyast.NewName("y"), pyast.TypeInt))
	if !astutil.CouldCrash(div) {
		t.Fatalf("x / y may divide by zero")
	}
	mixed := pyast.NewBinOp(pyast.NewStr("a"), pyast.Add, pyast.NewInt(1))
	if !astutil.CouldCrash(mixed) {
		t.Fatalf("'a' + 1 raises")
	}
	call := pyast.NewCall(pyast.NewName("print"), pyast.NewInt(1))
	if !astutil.CouldCrash(call) {
		t.Fatalf("unknown callees are assumed to crash")
	}
}

func TestGatherVariablesSkipsBuiltinsAndKeepsOriginals(t *testing.T) {
	x := pyast.NewName("v0_f")
	x.Meta.OriginalID = "total"
	body := pyast.NodeList(
		pyast.NewAssign(x, pyast.NewCall(pyast.NewName("len"), pyast.NewName("v0_f"))),
	)
	got := astutil.GatherVariables(body)
	if len(got) != 1 || got["v0_f"] != "total" {
		t.Fatalf("unexpected variables %v", got.Pairs())
	}
}

func TestGlobalNamesAndImports(t *testing.T) {
	mod := pyast.NewModule(
		pyast.New(pyast.Import, pyast.NodeList(pyast.New(pyast.Alias, pyast.StrVal("math"), pyast.StrVal("m")))),
		pyast.New(pyast.Import, pyast.NodeList(pyast.New(pyast.Alias, pyast.StrVal("os")))),
		pyast.NewAssign(pyast.NewName("g"), pyast.NewInt(1)),
	)
	if imp := astutil.AllImports(mod); len(imp) != 1 || imp[0] != "m" {
		t.Fatalf("imports = %v", imp)
	}
	names := astutil.GlobalNames(mod)
	if len(names) != 3 || names[2] != "g" {
		t.Fatalf("globals = %v", names)
	}
}

func TestIsDefault(t *testing.T) {
	fn := func(body ...*pyast.Node) *pyast.Node {
		return pyast.NewModule(pyast.New(pyast.FunctionDef, pyast.StrVal("f"), pyast.New(pyast.Arguments), pyast.NodeList(body...)))
	}
	if !astutil.IsDefault(fn(pyast.NewReturn(pyast.NewInt(42)))) {
		t.Fatalf("return 42 is the default program")
	}
	if astutil.IsDefault(fn(pyast.NewReturn(pyast.NewInt(41)))) {
		t.Fatalf("return 41 is not the default program")
	}
}

func TestStructureTree(t *testing.T) {
	n := pyast.NewAssign(pyast.NewName("x"), pyast.NewBinOp(pyast.NewName("y"), pyast.Add, pyast.NewInt(1)))
	s := astutil.StructureTree(n)
	val := s.Child("value")
	if pyast.NameID(val.Child("left")) != "~var~" {
		t.Fatalf("names should be hidden")
	}
	if val.Child("op").Ident("s") != "~op~" || val.Child("right").Ident("s") != "~number~" {
		t.Fatalf("operators and numbers should be hidden")
	}
	if pyast.NameID(n.Child("value").Child("left")) != "y" {
		t.Fatalf("original tree was modified")
	}
}
