package render_test

import (
	"context"
	"testing"

	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
)

var roundTripSources = []string{
	"def f(x):\n    return x + 1\n",
	"def f(a, b=2, *rest, c, d=4, **kw):\n    return a\n",
	"x = y = [1, 2, 3]\n",
	"a, b = b, a\n",
	"if a < b <= c:\n    pass\nelif not a:\n    x = 1\nelse:\n    x = 2\n",
	"for i in range(10):\n    if i % 2 == 0:\n        continue\n    break\nelse:\n    pass\n",
	"while x and (y or z):\n    x -= 1\n",
	"x = (a + b) * c - d / e ** -f\n",
	"x = -(a ** b) + (-a) ** b\n",
	"x = [i * 2 for i in xs if i > 0]\n",
	"d = {k: v for k, v in pairs}\n",
	"s = {1, 2}\nt = (1,)\nu = ()\n",
	"y = a if b else c if d else e\n",
	"f = lambda x, y: x + y\n",
	"print(s[1:2], s[::2], s[a:b:c], t[1, 2])\n",
	"import math\nfrom math import sqrt as root\n",
	"try:\n    x = int(s)\nexcept ValueError as e:\n    x = 0\nfinally:\n    pass\n",
	"s = 'it\\'s' + \"quote\\n\" + b'\\x00'\n",
	"x = a not in b and c is not None\n",
	"total = sum(x for x in xs)\n",
	"def g():\n    global counter\n    counter += 1\n",
	"assert x > 0, 'positive'\n",
	"del a[0], b\n",
	"with open(p) as fh:\n    data = fh.read()\n",
	"x = f(*args, key=1, **rest)\n",
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, src := range roundTripSources {
		tree, err := pyparse.Parse(ctx, src)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		out := render.Source(tree)
		again, err := pyparse.Parse(ctx, out)
		if err != nil {
			t.Fatalf("reparse of %q failed: %v\nrendered:\n%s", src, err, out)
		}
		if !pyast.Equal(tree, again) {
			t.Fatalf("round trip changed the tree\nsource:\n%s\nrendered:\n%s", src, out)
		}
	}
}

func TestRenderIsStable(t *testing.T) {
	ctx := context.Background()
	for _, src := range roundTripSources {
		tree, err := pyparse.Parse(ctx, src)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		once := render.Source(tree)
		again, err := pyparse.Parse(ctx, once)
		if err != nil {
			t.Fatalf("reparse: %v", err)
		}
		if twice := render.Source(again); once != twice {
			t.Fatalf("rendering is not a fixed point:\n%s\n---\n%s", once, twice)
		}
	}
}

func TestChainedComparisonKeepsShape(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "x = a < b < c\n")
	if err != nil {
		t.Fatal(err)
	}
	cmp := tree.Body().Node(0).Child("value")
	if !cmp.Is(pyast.Compare) || cmp.ListField("ops").Len() != 2 {
		t.Fatalf("expected one Compare with two ops, got %s", render.Expr(cmp))
	}
	if got := render.Expr(cmp); got != "a < b < c" {
		t.Fatalf("got %q", got)
	}
}

func TestParenthesizesOnlyWhenNeeded(t *testing.T) {
	cases := map[string]*pyast.Node{
		"(a + b) * c": pyast.NewBinOp(pyast.NewBinOp(pyast.NewName("a"), pyast.Add, pyast.NewName("b")), pyast.Mult, pyast.NewName("c")),
		"a + b * c":   pyast.NewBinOp(pyast.NewName("a"), pyast.Add, pyast.NewBinOp(pyast.NewName("b"), pyast.Mult, pyast.NewName("c"))),
		"a - (b - c)": pyast.NewBinOp(pyast.NewName("a"), pyast.Sub, pyast.NewBinOp(pyast.NewName("b"), pyast.Sub, pyast.NewName("c"))),
		"not a == b":  pyast.NewUnaryOp(pyast.Not, pyast.NewCompare(pyast.NewName("a"), []pyast.Kind{pyast.Eq}, pyast.NewName("b"))),
		"(a < b) < c": pyast.NewCompare(pyast.NewCompare(pyast.NewName("a"), []pyast.Kind{pyast.Lt}, pyast.NewName("b")), []pyast.Kind{pyast.Lt}, pyast.NewName("c")),
	}
	for want, n := range cases {
		if got := render.Expr(n); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestEmptyBodyPrintsPass(t *testing.T) {
	fn := pyast.New(pyast.FunctionDef, pyast.StrVal("f"), pyast.New(pyast.Arguments), pyast.NodeList())
	if got := render.Source(pyast.NewModule(fn)); got != "def f():\n    pass\n" {
		t.Fatalf("got %q", got)
	}
}

func TestPlaceholders(t *testing.T) {
	tree, err := pyparse.Parse(context.Background(), "x = y + 1\n")
	if err != nil {
		t.Fatal(err)
	}
	got := render.Options{Placeholders: true}.Source(astutil.StructureTree(tree))
	if got != "~var~ = ~var~ ~op~ ~number~\n" {
		t.Fatalf("got %q", got)
	}
}
