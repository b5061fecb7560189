package pyparse_test

import (
	"context"
	"errors"
	"testing"

	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
)

func TestParseFunction(t *testing.T) {
	mod, err := pyparse.Parse(context.Background(), "def f(x, y=1):\n    return x + y\n")
	if err != nil {
		t.Fatal(err)
	}
	fn := mod.Body().Node(0)
	if !fn.Is(pyast.FunctionDef) || fn.Ident("name") != "f" {
		t.Fatalf("expected def f, got %s", fn.Kind)
	}
	args := fn.Child("args")
	if args.ListField("args").Len() != 2 || args.ListField("defaults").Len() != 1 {
		t.Fatalf("unexpected arguments")
	}
	ret := fn.Body().Node(0)
	if !ret.Is(pyast.Return) || ret.Child("value").Op() != pyast.Add {
		t.Fatalf("expected return x + y")
	}
	if ret.Line != 2 || ret.Col != 4 {
		t.Fatalf("position = %d:%d", ret.Line, ret.Col)
	}
}

func TestParseBoolOpFlattens(t *testing.T) {
	mod, err := pyparse.Parse(context.Background(), "x = a and b and c\ny = a and (b and c)\n")
	if err != nil {
		t.Fatal(err)
	}
	flat := mod.Body().Node(0).Child("value")
	if flat.ListField("values").Len() != 3 {
		t.Fatalf("a and b and c should have three values")
	}
	nested := mod.Body().Node(1).Child("value")
	if nested.ListField("values").Len() != 2 || !nested.ListField("values").Node(1).Is(pyast.BoolOp) {
		t.Fatalf("parenthesized and should stay nested")
	}
}

func TestParseElifChain(t *testing.T) {
	mod, err := pyparse.Parse(context.Background(), "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n")
	if err != nil {
		t.Fatal(err)
	}
	top := mod.Body().Node(0)
	elif := top.Orelse().Node(0)
	if top.Orelse().Len() != 1 || !elif.Is(pyast.If) || elif.Orelse().Len() != 1 {
		t.Fatalf("elif should nest as a lone If in orelse")
	}
}

func TestParseLiterals(t *testing.T) {
	mod, err := pyparse.Parse(context.Background(), "x = [0x10, 1_000, 2.5, 'a\\tb', r'\\n', b'\\x41', True, None]\n")
	if err != nil {
		t.Fatal(err)
	}
	elts := mod.Body().Node(0).Child("value").ListField("elts").Nodes()
	want := []pyast.Value{pyast.IntVal(16), pyast.IntVal(1000), pyast.FloatVal(2.5), pyast.StrVal("a\tb"), pyast.StrVal(`\n`), pyast.BytesVal("A"), pyast.BoolVal(true), nil}
	for i, w := range want {
		got, ok := pyast.ConstValue(elts[i])
		if !ok || got != w {
			t.Fatalf("element %d = %v, want %v", i, got, w)
		}
	}
}

func TestParseNormalizesIdentifiers(t *testing.T) {
	// fullwidth letters fold to ASCII under NFKC
	mod, err := pyparse.Parse(context.Background(), "ｘ = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	if id := pyast.NameID(mod.Body().Node(0).ListField("targets").Node(0)); id != "x" {
		t.Fatalf("id = %q", id)
	}
}

func TestSyntaxError(t *testing.T) {
	_, err := pyparse.Parse(context.Background(), "def f(:\n    return\n")
	if !errors.Is(err, pyparse.ErrSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	var perr *pyparse.Error
	if !errors.As(err, &perr) || perr.Line != 1 {
		t.Fatalf("expected a positioned error on line 1, got %v", err)
	}
}

func TestUnsupported(t *testing.T) {
	for _, src := range []string{"class A:\n    pass\n", "x = f'{y}'\n", "x = 1j\n"} {
		if _, err := pyparse.Parse(context.Background(), src); !errors.Is(err, pyparse.ErrUnsupported) {
			t.Fatalf("%q: expected unsupported, got %v", src, err)
		}
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pyparse.Parse(ctx, "x = 1\n"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
