package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `[store]
driver = "sqlite"
dsn = "states.db"

[cache]
enabled = false

[oracle]
command = ["sh", "-c", 'grep -q "[*] 2" "$0" && echo 1 || echo 0', "{file}"]

[[problem]]
name = "double"
given_names = ["f"]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runBoth(t, args...)
	return out, err
}

func runBoth(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	if err != nil {
		t.Logf("stderr:\n%s", errOut.String())
	}
	return out.String(), errOut.String(), err
}

func needShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var p versionPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if p.Tool != "hintgen" || p.Version == "" {
		t.Fatalf("payload %+v", p)
	}
}

func TestCanonCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	src := writeFile(t, dir, "a.py", "def f(apple):\n    return 1 + 1\n")

	out, err := run(t, "--config", cfg, "canon", "-p", "double", src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "return 2") || strings.Contains(out, "apple") {
		t.Fatalf("canonical form:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "canon", "-p", "double", "--tree", src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Module") || !strings.Contains(out, "FunctionDef") {
		t.Fatalf("tree dump:\n%s", out)
	}
}

func TestRingTraceWrittenAtExit(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	src := writeFile(t, dir, "a.py", "def f(x):\n    return x + x\n")
	tracePath := filepath.Join(dir, "run.trace")

	_, err := run(t, "--config", cfg, "--trace", tracePath, "--trace-mode", "ring",
		"canon", "-p", "double", src)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "canonicalize") {
		t.Fatalf("trace:\n%s", data)
	}
}

func TestDiagnosticsJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	src := writeFile(t, dir, "a.py", "def f(x):\n    return x\n")

	_, stderr, err := runBoth(t, "--config", cfg, "--diagnostics", "json", "canon", "-p", "double", src)
	if err != nil {
		t.Fatal(err)
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(stderr), &payload); err != nil {
		t.Fatalf("decode %q: %v", stderr, err)
	}
	if payload.Count != 0 {
		t.Fatalf("clean input reported %d diagnostics", payload.Count)
	}
}

func TestDiagnosticsMinimumSeverity(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	src := writeFile(t, dir, "a.py", "def f(x):\n    return x\n")

	_, stderr, err := runBoth(t, "--config", cfg, "--diagnostics", "json", "--diagnostics-min", "error",
		"canon", "-p", "double", src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, `"count"`) {
		t.Fatalf("no diagnostics document in %q", stderr)
	}
	if _, _, err := runBoth(t, "--config", cfg, "--diagnostics-min", "loud", "canon", "-p", "double", src); err == nil {
		t.Fatal("unknown severity accepted")
	}
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	a := writeFile(t, dir, "a.py", "def f(x):\n    return x * 3\n")
	b := writeFile(t, dir, "b.py", "def f(x):\n    return x * 2\n")

	out, err := run(t, "--config", cfg, "diff", "-p", "double", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "distance") || !strings.Contains(out, "Replace") {
		t.Fatalf("diff output:\n%s", out)
	}
}

func TestSeedThenHint(t *testing.T) {
	needShell(t)
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	seed := writeFile(t, dir, "seed.yaml", `states:
  - problem: double
    code: |
      def f(x):
          return x * 2
    score: 1
    count: 2
`)
	if _, err := run(t, "--config", cfg, "seed", seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sub := writeFile(t, dir, "sub.py", "def f(x):\n    return x * 3\n")
	out, err := run(t, "--config", cfg, "hint", "-p", "double", sub)
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if !strings.HasPrefix(out, "hint [next_step]") || !strings.Contains(out, "+    return x * 2") {
		t.Fatalf("hint output:\n%s", out)
	}
}

func TestBatchWritesMetrics(t *testing.T) {
	needShell(t)
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	writeFile(t, dir, "subs/a.py", "def f(x):\n    return x * 2\n")
	writeFile(t, dir, "subs/b.py", "def f(x):\n    return x * 3\n")
	writeFile(t, dir, "subs/c.py", "def f(:\n")
	prom := filepath.Join(dir, "hints.prom")

	out, err := run(t, "--config", cfg, "--quiet", "batch", "-p", "double", "-j", "1",
		"--ui", "off", "--metrics", prom, "--graph", filepath.Join(dir, "subs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3 files") || !strings.Contains(out, "rejected") {
		t.Fatalf("summary:\n%s", out)
	}
	b, err := os.ReadFile(prom)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `hintgen_batch_hints_total{outcome="rejected",problem="double"} 1`) {
		t.Fatalf("metrics:\n%s", b)
	}
}

func TestBadFlags(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "hintgen.toml", testConfig)
	sub := writeFile(t, dir, "sub.py", "x = 1\n")
	if _, err := run(t, "--config", cfg, "hint", "-p", "double", "--level", "everything", sub); err == nil {
		t.Fatal("unknown level accepted")
	}
	if _, err := run(t, "--color", "sometimes", "version"); err == nil {
		t.Fatal("unknown color mode accepted")
	}
	if _, err := run(t, "--config", cfg, "hint", "-p", "nope", sub); err == nil {
		t.Fatal("unknown problem accepted")
	}
}
