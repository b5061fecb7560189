package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hintgen/internal/config"
	"hintgen/internal/pyast"
)

func write(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const full = `
[engine]
exact_cutoff = 2
approx_cutoff = 5

[engine.weights]
seen = 3
dist = 2
score = 1

[store]
driver = "sqlite"
dsn = "data/states.db"

[cache]
enabled = true
dir = "cache"

[oracle]
command = ["python3", "harness.py", "{problem}", "{file}"]
timeout = "2s"

[[problem]]
name = "double"
given_names = ["double"]
arg_types = { double = ["int"] }

[[problem]]
name = "helper"
given_names = ["main", "util"]
given_code = "def util(x):\n    return x\n"
main = "main"
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(write(t, dir, full))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.ExactCutoff)
	assert.Equal(t, 5, cfg.Engine.ApproxCutoff)
	assert.Equal(t, 6, cfg.Engine.MaxVariableMap, "unset keys keep their defaults")
	assert.Equal(t, 3.0, cfg.Engine.Weights.Seen)
	assert.Equal(t, filepath.Join(dir, "data", "states.db"), cfg.Store.DSN)
	assert.Equal(t, 2*time.Second, cfg.Oracle.Timeout.Duration)
	require.Len(t, cfg.Problems, 2)

	dirOut, err := cfg.CacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cache"), dirOut)

	p, err := cfg.Problem("double")
	require.NoError(t, err)
	co := cfg.CanonOptions(p)
	assert.Equal(t, "double", co.MainFunction)
	assert.Equal(t, []pyast.Type{pyast.TypeInt}, co.ArgTypes["double"])

	so := cfg.SearchOptions(p)
	assert.Equal(t, []string{"double"}, so.Restricted)
	assert.Equal(t, 3.0, so.Weights.Seen)

	h, err := cfg.Problem("helper")
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.CanonOptions(h).MainFunction)

	_, err = cfg.Problem("missing")
	assert.ErrorIs(t, err, config.ErrUnknownProblem)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "[engine]\nexact_cutof = 2\n",
		"cutoff order":     "[engine]\nexact_cutoff = 5\napprox_cutoff = 4\n",
		"driver":           "[store]\ndriver = \"postgres\"\n",
		"sqlite needs dsn": "[store]\ndriver = \"sqlite\"\n",
		"type name":        "[[problem]]\nname = \"p\"\narg_types = { p = [\"integer\"] }\n",
		"nameless problem": "[[problem]]\ngiven_names = [\"f\"]\n",
		"duplicate":        "[[problem]]\nname = \"p\"\n[[problem]]\nname = \"p\"\n",
		"timeout":          "[oracle]\ntimeout = \"soon\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(write(t, t.TempDir(), body))
			assert.Error(t, err)
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, "[engine]\nexact_cutoff = 4\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := config.Discover(nested, "")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.ExactCutoff)
	assert.Equal(t, filepath.Join(root, config.FileName), cfg.Path)
}

func TestDiscoverFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Discover(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, config.Default().Engine, cfg.Engine)

	p, err := cfg.Problem("anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", p.Name)
}

func TestCacheDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	dir, err := cfg.CacheDir()
	require.NoError(t, err)
	assert.Empty(t, dir)
}
