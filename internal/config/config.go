// Package config loads hintgen.toml: engine tuning, the store and cache, the
// test oracle and the problems hints are generated for.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"hintgen/internal/canon"
	"hintgen/internal/pyast"
	"hintgen/internal/search"
)

// ErrUnknownProblem is returned by Problem for names the file does not declare.
var ErrUnknownProblem = errors.New("unknown problem")

// Config is the decoded hintgen.toml.
type Config struct {
	// Path is the file the config came from, empty for defaults.
	Path     string    `toml:"-"`
	Engine   Engine    `toml:"engine"`
	Store    Store     `toml:"store"`
	Cache    Cache     `toml:"cache"`
	Oracle   Oracle    `toml:"oracle"`
	Problems []Problem `toml:"problem" validate:"dive"`
}

type Engine struct {
	ExactCutoff        int     `toml:"exact_cutoff" validate:"gte=1,lte=16"`
	ApproxCutoff       int     `toml:"approx_cutoff" validate:"gtefield=ExactCutoff,lte=24"`
	MaxVariableMap     int     `toml:"max_variable_map" validate:"gte=1,lte=8"`
	MaxCanonIterations int     `toml:"max_canon_iterations" validate:"gte=1"`
	ScoreTolerance     float64 `toml:"score_tolerance" validate:"gt=0,lt=1"`
	Weights            Weights `toml:"weights"`
}

type Weights struct {
	Seen  float64 `toml:"seen" validate:"gte=0"`
	Dist  float64 `toml:"dist" validate:"gte=0"`
	Score float64 `toml:"score" validate:"gte=0"`
}

type Store struct {
	Driver string `toml:"driver" validate:"oneof=memory sqlite"`
	DSN    string `toml:"dsn" validate:"required_if=Driver sqlite"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type Oracle struct {
	// Command is the harness argv; {file} and {problem} are substituted.
	Command []string `toml:"command"`
	Timeout Duration `toml:"timeout"`
}

// Problem describes one exercise.
type Problem struct {
	Name       string   `toml:"name" validate:"required"`
	GivenNames []string `toml:"given_names"`
	// ArgTypes lists each given function's parameter types by Python name.
	ArgTypes map[string][]string `toml:"arg_types" validate:"dive,dive,pytype"`
	// GivenCode is prepended to every submission and never hinted at.
	GivenCode string `toml:"given_code"`
	// Main is the function tests call; it defaults to the first given name.
	Main string `toml:"main"`
}

// Duration decodes TOML strings such as "5s".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Engine: Engine{
			ExactCutoff:        3,
			ApproxCutoff:       6,
			MaxVariableMap:     6,
			MaxCanonIterations: canon.DefaultMaxIterations,
			ScoreTolerance:     0.001,
			Weights:            Weights{Seen: 4, Dist: 2, Score: 1},
		},
		Store:  Store{Driver: "memory"},
		Cache:  Cache{Enabled: true},
		Oracle: Oracle{Timeout: Duration{10 * time.Second}},
	}
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pytype", func(fl validator.FieldLevel) bool {
		return pyast.ParseType(fl.Field().String()) != pyast.TypeUnknown
	})
	return v
}()

// Load decodes path over the defaults and validates the result. Relative store
// and cache paths are taken relative to the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	base := filepath.Dir(path)
	if cfg.Store.DSN != "" && cfg.Store.DSN != ":memory:" && !filepath.IsAbs(cfg.Store.DSN) {
		cfg.Store.DSN = filepath.Join(base, cfg.Store.DSN)
	}
	if cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(base, cfg.Cache.Dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads explicit when set, otherwise the nearest hintgen.toml above
// dir, otherwise the defaults.
func Discover(dir, explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks field ranges and that problem names are unique.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Problems))
	for _, p := range c.Problems {
		if seen[p.Name] {
			return fmt.Errorf("problem %q declared twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Problem returns the named problem. Unknown names get a bare problem when
// the file declares none, so ad hoc runs work without a config.
func (c *Config) Problem(name string) (Problem, error) {
	for _, p := range c.Problems {
		if p.Name == name {
			return p, nil
		}
	}
	if len(c.Problems) == 0 {
		return Problem{Name: name}, nil
	}
	return Problem{}, fmt.Errorf("%w %q", ErrUnknownProblem, name)
}

// CacheDir returns the canonical cache directory, or "" when caching is off.
func (c *Config) CacheDir() (string, error) {
	if !c.Cache.Enabled {
		return "", nil
	}
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		var err error
		if base, err = os.UserCacheDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(base, "hintgen"), nil
}

// SearchOptions converts the engine section for one problem.
func (c *Config) SearchOptions(p Problem) search.Options {
	return search.Options{
		ExactCutoff:    c.Engine.ExactCutoff,
		ApproxCutoff:   c.Engine.ApproxCutoff,
		MaxVariableMap: c.Engine.MaxVariableMap,
		ScoreTolerance: c.Engine.ScoreTolerance,
		Weights:        search.Weights(c.Engine.Weights),
		Restricted:     p.GivenNames,
	}
}

// CanonOptions converts the problem's names and types.
func (c *Config) CanonOptions(p Problem) canon.Options {
	var types map[string][]pyast.Type
	if len(p.ArgTypes) > 0 {
		types = make(map[string][]pyast.Type, len(p.ArgTypes))
		for fn, names := range p.ArgTypes {
			ts := make([]pyast.Type, len(names))
			for i, n := range names {
				ts[i] = pyast.ParseType(n)
			}
			types[fn] = ts
		}
	}
	main := p.Main
	if main == "" && len(p.GivenNames) > 0 {
		main = p.GivenNames[0]
	}
	return canon.Options{
		GivenNames:    p.GivenNames,
		ArgTypes:      types,
		MainFunction:  main,
		MaxIterations: c.Engine.MaxCanonIterations,
	}
}
