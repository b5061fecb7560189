package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"hintgen/internal/diag"
	"hintgen/internal/diagfmt"
)

func sample() []diag.Diagnostic {
	return []diag.Diagnostic{
		diag.New(diag.SevWarning, diag.CanonUnknownKind, diag.Loc{Line: 2, Col: 11, Node: 7}, "unexpected Lambda").
			WithNote(diag.Loc{Line: 1}, "inside f"),
		diag.New(diag.SevInfo, diag.BndParse, diag.Loc{File: "b.py"}, "not python"),
	}
}

func TestPrettyShowsCaret(t *testing.T) {
	src := diagfmt.Sources{"": []byte("def f(x):\n    return lambda: x\n")}
	var b bytes.Buffer
	err := diagfmt.Pretty(&b, sample(), src, diagfmt.Options{ShowNotes: true})
	if err != nil {
		t.Fatal(err)
	}
	want := "<input>:2:12: warning CAN2001: unexpected Lambda\n" +
		"   2 |     return lambda: x\n" +
		"     |            ^\n" +
		"  note <input>:1:1: inside f\n" +
		"b.py: info BND7001: not python\n"
	if got := b.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestMinSeverityAndMax(t *testing.T) {
	var b bytes.Buffer
	if err := diagfmt.Pretty(&b, sample(), nil, diagfmt.Options{MinSeverity: diag.SevWarning}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.String(), "BND7001") {
		t.Fatalf("info diagnostic printed:\n%s", b.String())
	}
	b.Reset()
	if err := diagfmt.Pretty(&b, sample(), nil, diagfmt.Options{Max: 1}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(b.String(), "\n") != 1 {
		t.Fatalf("max not applied:\n%s", b.String())
	}
}

func TestJSON(t *testing.T) {
	var b bytes.Buffer
	if err := diagfmt.JSON(&b, sample(), diagfmt.Options{ShowNotes: true}); err != nil {
		t.Fatal(err)
	}
	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(b.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || out.Diagnostics[0].Code != "CAN2001" || out.Diagnostics[0].Location.Col != 12 {
		t.Fatalf("output %+v", out)
	}
	if len(out.Diagnostics[0].Notes) != 1 || out.Diagnostics[1].Severity != "info" {
		t.Fatalf("output %+v", out)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]diagfmt.Format{"": diagfmt.FormatOff, "Pretty": diagfmt.FormatPretty, "json": diagfmt.FormatJSON} {
		got, err := diagfmt.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := diagfmt.ParseFormat("sarif"); err == nil {
		t.Fatal("unknown format accepted")
	}
}
