package pyast_test

import (
	"sort"
	"strings"
	"testing"

	"hintgen/internal/pyast"
)

func sample() *pyast.Node {
	// def f(x):
	//     y = x + 1
	//     return y
	fn := pyast.New(pyast.FunctionDef,
		pyast.StrVal("f"),
		pyast.New(pyast.Arguments, pyast.NodeList(pyast.New(pyast.Arg, pyast.StrVal("x")))),
		pyast.NodeList(
			pyast.NewAssign(pyast.NewName("y"), pyast.NewBinOp(pyast.NewName("x"), pyast.Add, pyast.NewInt(1))),
			pyast.NewReturn(pyast.NewName("y")),
		),
	)
	return pyast.NewModule(fn)
}

func TestArenaAssignGivesUniqueIDs(t *testing.T) {
	root := sample()
	shared := pyast.NewName("z")
	root.Body().Append(pyast.NewExpr(shared), pyast.NewExpr(shared))

	a := pyast.NewArena(16)
	a.Assign(root)

	seen := map[pyast.ID]bool{}
	pyast.Inspect(root, func(n *pyast.Node) bool {
		if n.ID == 0 {
			t.Fatalf("node %s has no id", n.Kind)
		}
		if seen[n.ID] {
			t.Fatalf("duplicate id %d on %s", n.ID, n.Kind)
		}
		seen[n.ID] = true
		if a.Get(n.ID) != n {
			t.Fatalf("arena lookup mismatch for %d", n.ID)
		}
		return true
	})
}

func TestCopyPreservesIdentityAndIsDeep(t *testing.T) {
	root := sample()
	pyast.NewArena(16).Assign(root)
	root.Body().Node(0).Tags.Set(pyast.TagHelperVar)

	cp := pyast.Copy(root)
	if !pyast.Equal(root, cp) {
		t.Fatalf("copy differs structurally")
	}
	if cp.Body().Node(0).ID != root.Body().Node(0).ID {
		t.Fatalf("copy lost id")
	}
	if !cp.Body().Node(0).Tags.Has(pyast.TagHelperVar) {
		t.Fatalf("copy lost tags")
	}
	cp.Body().Node(0).Set("name", pyast.StrVal("g"))
	if root.Body().Node(0).Ident("name") != "f" {
		t.Fatalf("copy aliases original")
	}
}

func TestCompareOrdering(t *testing.T) {
	vals := []pyast.Value{
		pyast.StrVal("a"),
		pyast.NewInt(3),
		nil,
		pyast.IntVal(2),
		pyast.BoolVal(true),
		pyast.NewName("x"),
	}
	sort.SliceStable(vals, func(i, j int) bool { return pyast.CompareValues(vals[i], vals[j], false) < 0 })

	if !pyast.IsNil(vals[0]) {
		t.Fatalf("nil must sort first, got %#v", vals[0])
	}
	if n := pyast.AsNode(vals[1]); !n.Is(pyast.Name) {
		t.Fatalf("Name ranks before Num, got %#v", vals[1])
	}
	if n := pyast.AsNode(vals[2]); !n.Is(pyast.Num) {
		t.Fatalf("nodes before primitives, got %#v", vals[2])
	}
	if _, ok := vals[3].(pyast.BoolVal); !ok {
		t.Fatalf("bool before int, got %#v", vals[3])
	}
}

func TestCompareShallowerFirst(t *testing.T) {
	deep := pyast.NewBinOp(pyast.NewBinOp(pyast.NewName("a"), pyast.Add, pyast.NewName("b")), pyast.Add, pyast.NewName("c"))
	flat := pyast.NewBinOp(pyast.NewName("z"), pyast.Add, pyast.NewName("z"))
	if pyast.CompareValues(flat, deep, false) >= 0 {
		t.Fatalf("shallower node must sort first")
	}
	if pyast.CompareValues(flat, deep, true) == 0 {
		t.Fatalf("different trees compare equal")
	}
}

func TestNameConstantOrdering(t *testing.T) {
	none, f, tr := pyast.NewNone(), pyast.NewBool(false), pyast.NewBool(true)
	if pyast.CompareValues(none, f, true) >= 0 || pyast.CompareValues(f, tr, true) >= 0 {
		t.Fatalf("expected None < False < True")
	}
}

func TestComparatorFlagsUnrankedKinds(t *testing.T) {
	bad := &pyast.Node{Kind: pyast.KindInvalid}
	var seen []*pyast.Node
	c := pyast.Comparator{Unranked: func(n *pyast.Node) { seen = append(seen, n) }}
	if got := c.Compare(pyast.NewName("x"), bad, false); got != 0 {
		t.Fatalf("unranked kind compared %d, want 0", got)
	}
	if len(seen) != 1 || seen[0] != bad {
		t.Fatalf("hook saw %v", seen)
	}
	if got := c.Compare(pyast.NewName("x"), pyast.NewInt(1), false); got == 0 || len(seen) != 1 {
		t.Fatalf("ranked kinds: got %d, hook calls %d", got, len(seen))
	}
}

func TestPathResolveAndPathTo(t *testing.T) {
	root := sample()
	pyast.NewArena(16).Assign(root)
	fn := root.Body().Node(0)
	ret := fn.Body().Node(1)

	p, ok := pyast.PathTo(root, ret.ID)
	if !ok {
		t.Fatalf("path not found")
	}
	want := pyast.Path{
		pyast.IndexStep(1),
		pyast.FieldStep("body", pyast.FunctionDef),
		pyast.IndexStep(0),
		pyast.FieldStep("body", pyast.Module),
	}
	if !p.Equal(want) {
		t.Fatalf("path = %s, want %s", p, want)
	}
	got, ok := p.Resolve(root)
	if !ok || got != pyast.Value(ret) {
		t.Fatalf("resolve mismatch")
	}
	spot, ok := p.Walk(root)
	if !ok || spot != pyast.Value(fn.Body()) {
		t.Fatalf("walk must stop at the containing list")
	}

	bad := pyast.Path{pyast.IndexStep(9), pyast.FieldStep("body", pyast.Module)}
	if _, ok := bad.Resolve(root); ok {
		t.Fatalf("out-of-range path resolved")
	}
}

func TestTags(t *testing.T) {
	var s pyast.Tags
	s.Set(pyast.TagNegated)
	if !s.Has(pyast.TagNegated) || s.Has(pyast.TagReversed) {
		t.Fatalf("bad tag set %s", s)
	}
	if s.Toggle(pyast.TagNegated) {
		t.Fatalf("toggle should clear")
	}
	if !pyast.HelperTags.Has(pyast.TagHelperReturnVal) {
		t.Fatalf("helper tags incomplete")
	}
}

func TestDump(t *testing.T) {
	mod := sample()
	pyast.NewArena(16).Assign(mod)
	mod.Body().Node(0).Tagged(pyast.TagHelperVar)
	var b strings.Builder
	if err := pyast.Dump(&b, mod); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{"Module #1", "FunctionDef #2", "name='f'", "body: [2]", "id='y'", "helperVar"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump lacks %q:\n%s", want, out)
		}
	}
}
