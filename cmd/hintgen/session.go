package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hintgen/internal/config"
	"hintgen/internal/diag"
	"hintgen/internal/diagfmt"
	"hintgen/internal/driver"
	"hintgen/internal/hint"
	"hintgen/internal/observ"
	"hintgen/internal/oracle"
	"hintgen/internal/prof"
	"hintgen/internal/store"
)

// session holds what every subcommand shares: config, logger, reporter and
// the resources opened on its behalf.
type session struct {
	cmd     *cobra.Command
	cfg     *config.Config
	log     *zap.Logger
	rep     diag.Reporter
	timer   *observ.Timer
	quiet   bool
	closers []func()

	bag      *diag.Bag
	diagFmt  diagfmt.Format
	diagMin  diag.Severity
	sources  diagfmt.Sources
	profiler *prof.Session
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Root().PersistentFlags()
	quiet, _ := flags.GetBool("quiet")
	verbose, _ := flags.GetBool("verbose")
	timings, _ := flags.GetBool("timings")
	cfgPath, _ := flags.GetString("config")
	diagFlag, _ := flags.GetString("diagnostics")
	diagFmt, err := diagfmt.ParseFormat(diagFlag)
	if err != nil {
		return nil, err
	}
	minFlag, _ := flags.GetString("diagnostics-min")
	diagMin, err := diag.ParseSeverity(minFlag)
	if err != nil {
		return nil, err
	}
	var popts prof.Options
	popts.CPU, _ = flags.GetString("cpu-profile")
	popts.Mem, _ = flags.GetString("mem-profile")
	popts.Trace, _ = flags.GetString("runtime-trace")

	log, err := newLogger(verbose, quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	s := &session{
		cmd:     cmd,
		log:     log,
		quiet:   quiet,
		bag:     diag.NewBag(diagLimit),
		diagFmt: diagFmt,
		diagMin: diagMin,
		sources: diagfmt.Sources{},
	}
	s.rep = diag.NewDedupReporter(diag.MultiReporter{diag.ZapReporter{Log: log}, diag.BagReporter{Bag: s.bag}})
	if timings {
		s.timer = observ.NewTimer()
	}
	if s.profiler, err = prof.Start(popts); err != nil {
		_ = log.Sync()
		return nil, err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.onClose(cleanup)

	idx := s.timer.Begin("config")
	wd, err := os.Getwd()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cfg, err = config.Discover(wd, cfgPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.timer.End(idx, s.cfg.Path)
	log.Debug("config loaded", zap.String("path", s.cfg.Path), zap.String("store", s.cfg.Store.Driver))
	return s, nil
}

func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.DisableStacktrace = true
	switch {
	case verbose:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quiet:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	if isTerminal(os.Stderr) {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	return zcfg.Build()
}

func (s *session) ctx() context.Context { return s.cmd.Context() }

func (s *session) onClose(fn func()) { s.closers = append(s.closers, fn) }

// Close releases resources in reverse order, then prints diagnostics and
// timings.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	if err := s.profiler.Stop(); err != nil {
		s.log.Warn("stop profiling", zap.Error(err))
	}
	s.printDiagnostics()
	if s.timer != nil {
		fmt.Fprint(s.cmd.ErrOrStderr(), s.timer.Summary())
	}
	_ = s.log.Sync()
}

const diagLimit = 500

// addSource makes text available for diagnostic snippets. Single-file
// commands register it under "" too, since engine locations carry no file.
func (s *session) addSource(path string, text []byte, primary bool) {
	s.sources[path] = text
	if primary {
		s.sources[""] = text
	}
}

func (s *session) printDiagnostics() {
	s.bag.Sort()
	items := s.bag.Items()
	w := s.cmd.ErrOrStderr()
	opts := diagfmt.Options{Color: !color.NoColor, ShowNotes: true, MinSeverity: s.diagMin}
	var err error
	switch s.diagFmt {
	case diagfmt.FormatPretty:
		if len(items) > 0 {
			err = diagfmt.Pretty(w, items, s.sources, opts)
		}
	case diagfmt.FormatJSON:
		err = diagfmt.JSON(w, items, opts)
	}
	if err != nil {
		s.log.Warn("print diagnostics", zap.Error(err))
	}
}

// openStore opens the configured repository and closes it with the session.
func (s *session) openStore() (store.Repository, error) {
	idx := s.timer.Begin("store")
	repo, err := store.Open(s.ctx(), s.cfg.Store.Driver, s.cfg.Store.DSN)
	if err != nil {
		s.timer.End(idx, "failed")
		return nil, err
	}
	s.timer.End(idx, s.cfg.Store.Driver)
	s.onClose(func() {
		if err := repo.Close(); err != nil {
			s.log.Warn("close store", zap.Error(err))
		}
	})
	return repo, nil
}

// openCache returns the canonical-form cache, nil when caching is off.
func (s *session) openCache(disabled bool) (hint.Cache, error) {
	if disabled {
		return nil, nil
	}
	dir, err := s.cfg.CacheDir()
	if err != nil || dir == "" {
		return nil, err
	}
	c, err := driver.OpenDiskCache(dir, s.rep)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var errNoOracle = errors.New("no oracle configured: set [oracle] command in hintgen.toml")

func (s *session) oracle() (oracle.Oracle, error) {
	if len(s.cfg.Oracle.Command) == 0 {
		return nil, errNoOracle
	}
	dir := ""
	if s.cfg.Path != "" {
		dir = filepath.Dir(s.cfg.Path)
	}
	return &oracle.Command{
		Argv:    s.cfg.Oracle.Command,
		Timeout: s.cfg.Oracle.Timeout.Duration,
		Dir:     dir,
		Logger:  s.log.Named("oracle"),
	}, nil
}

// generatorOptions select how a generator is built.
type generatorOptions struct {
	problem string
	oracle  oracle.Oracle    // nil means the configured command
	repo    store.Repository // nil opens the configured store
	noCache bool
}

func (s *session) generator(opts generatorOptions) (*hint.Generator, store.Repository, config.Problem, error) {
	p, err := s.cfg.Problem(opts.problem)
	if err != nil {
		return nil, nil, config.Problem{}, err
	}
	orc := opts.oracle
	if orc == nil {
		if orc, err = s.oracle(); err != nil {
			return nil, nil, p, err
		}
	}
	repo := opts.repo
	if repo == nil {
		if repo, err = s.openStore(); err != nil {
			return nil, nil, p, err
		}
	}
	cache, err := s.openCache(opts.noCache || !s.cfg.Cache.Enabled)
	if err != nil {
		return nil, nil, p, err
	}
	g, err := hint.New(s.ctx(), hint.Problem{
		Name:      p.Name,
		Canon:     s.cfg.CanonOptions(p),
		GivenCode: p.GivenCode,
	}, hint.Deps{
		Repo:     repo,
		Oracle:   orc,
		Search:   s.cfg.SearchOptions(p),
		Cache:    cache,
		Reporter: s.rep,
		Logger:   s.log,
	})
	if err != nil {
		return nil, nil, p, err
	}
	return g, repo, p, nil
}

func (s *session) printf(format string, args ...any) {
	if s.quiet {
		return
	}
	fmt.Fprintf(s.cmd.ErrOrStderr(), format, args...)
}
