package testkit_test

import (
	"context"
	"testing"

	"hintgen/internal/canon"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/testkit"
)

func original(t *testing.T, src string) *pyast.Node {
	t.Helper()
	n, err := pyparse.Parse(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	canon.GiveIDs(n)
	return n
}

func TestGlobalIDsOfCopy(t *testing.T) {
	orig := original(t, "def f(x):\n    return x + 1\n")
	if err := testkit.CheckGlobalIDs(pyast.Copy(orig), orig); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalIDsCatchesStrangers(t *testing.T) {
	orig := original(t, "x = 1\n")
	bad := pyast.Copy(orig)
	bad.Body().Node(0).ID = 999
	if err := testkit.CheckGlobalIDs(bad, orig); err == nil {
		t.Fatal("unknown id accepted")
	}

	bare := pyast.NewModule(pyast.NewExpr(pyast.NewInt(1)))
	if err := testkit.CheckGlobalIDs(bare, orig); err == nil {
		t.Fatal("statement without id or tag accepted")
	}
	tagged := pyast.NewModule(pyast.NewExpr(pyast.NewInt(1)).Tagged(pyast.TagAddedOther))
	if err := testkit.CheckGlobalIDs(tagged, orig); err != nil {
		t.Fatalf("tagged statement rejected: %v", err)
	}
}

func TestGlobalIDsNeedsIdentifiedOriginal(t *testing.T) {
	raw, err := pyparse.Parse(context.Background(), "x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckGlobalIDs(pyast.Copy(raw), raw); err == nil {
		t.Fatal("original without ids accepted")
	}
}

func TestRoundTripSmall(t *testing.T) {
	a := original(t, "a = 1\nb = 2\n")
	b := original(t, "b = 2\nc = a\n")
	if err := testkit.CheckRoundTrip(a, b); err != nil {
		t.Fatal(err)
	}
}
