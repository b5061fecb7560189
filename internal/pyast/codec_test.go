package pyast_test

import (
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"hintgen/internal/pyast"
)

func TestTreeCodecKeepsIdentity(t *testing.T) {
	root := sample()
	root.Body().Append(
		pyast.NewExpr(pyast.New(pyast.Num, pyast.FloatVal(2.5))),
		pyast.NewExpr(pyast.New(pyast.Bytes, pyast.BytesVal("ab"))),
		pyast.New(pyast.Return),
	)
	pyast.NewArena(32).Assign(root)
	fn := root.Body().Node(0)
	fn.Tagged(pyast.TagHelperVar)
	fn.Meta.OriginalID = "f"
	fn.Meta.SecondID = 4
	fn.Line, fn.Col = 1, 4

	blob, err := pyast.MarshalTree(root)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := pyast.UnmarshalTree(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !pyast.Equal(root, got) {
		t.Fatalf("decoded tree differs")
	}
	var want, have []*pyast.Node
	pyast.Inspect(root, func(n *pyast.Node) bool { want = append(want, n); return true })
	pyast.Inspect(got, func(n *pyast.Node) bool { have = append(have, n); return true })
	if len(want) != len(have) {
		t.Fatalf("decoded %d nodes, want %d", len(have), len(want))
	}
	for i := range want {
		if want[i].ID != have[i].ID || want[i].Tags != have[i].Tags || want[i].Meta != have[i].Meta {
			t.Fatalf("node %d (%s): got id %d tags %v meta %+v", i, want[i].Kind, have[i].ID, have[i].Tags, have[i].Meta)
		}
	}
	if g := got.Body().Node(0); g.Line != 1 || g.Col != 4 {
		t.Fatalf("position lost: %d:%d", g.Line, g.Col)
	}
}

func TestTreeCodecRejectsOtherVersions(t *testing.T) {
	blob, err := msgpack.Marshal(map[string]any{"v": 99})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pyast.UnmarshalTree(blob); !errors.Is(err, pyast.ErrCodecVersion) {
		t.Fatalf("got %v, want ErrCodecVersion", err)
	}
}
