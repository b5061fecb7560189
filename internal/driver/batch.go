package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hintgen/internal/hint"
)

// Hinter answers one hint request. *hint.Generator implements it.
type Hinter interface {
	Hint(ctx context.Context, src string, level hint.Level) (*hint.Hint, error)
}

// BatchOptions configure Batch.
type BatchOptions struct {
	// Jobs bounds the number of submissions in flight; GOMAXPROCS when <= 0.
	Jobs   int
	Level  hint.Level
	Sink   Sink
	Logger *zap.Logger
}

// Result is the answer for one submission file.
type Result struct {
	Path    string
	Hint    *hint.Hint
	Err     error
	Elapsed time.Duration
}

// Summary aggregates a batch.
type Summary struct {
	Files    int
	Errors   int
	Outcomes map[hint.Outcome]int
	Elapsed  time.Duration
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d files in %s", s.Files, s.Elapsed.Round(time.Millisecond))
	for _, o := range hint.Outcomes {
		fmt.Fprintf(&b, ", %s %d", o, s.Outcomes[o])
	}
	if s.Errors > 0 {
		fmt.Fprintf(&b, ", errors %d", s.Errors)
	}
	return b.String()
}

// ListSubmissions returns the *.py files under dir, sorted.
func ListSubmissions(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".py") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Batch hints every file in parallel. Failures of single files land in their
// Result; only cancellation of ctx aborts the batch.
func Batch(ctx context.Context, h Hinter, files []string, opts BatchOptions) ([]Result, Summary, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sum := Summary{Files: len(files), Outcomes: make(map[hint.Outcome]int)}
	if len(files) == 0 {
		return nil, sum, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, f := range files {
		emit(opts.Sink, Event{File: f, Status: StatusQueued})
	}

	// every goroutine writes its own index
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			emit(opts.Sink, Event{File: path, Status: StatusWorking})
			began := time.Now()
			res := Result{Path: path}
			src, err := os.ReadFile(path)
			if err == nil {
				res.Hint, err = h.Hint(gctx, string(src), opts.Level)
			}
			res.Err, res.Elapsed = err, time.Since(began)
			results[i] = res

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("hint failed", zap.String("file", path), zap.Error(err))
				emit(opts.Sink, Event{File: path, Status: StatusError, Err: err, Elapsed: res.Elapsed})
				return nil
			}
			log.Debug("hinted", zap.String("file", path),
				zap.Stringer("outcome", res.Hint.Outcome), zap.Duration("elapsed", res.Elapsed))
			emit(opts.Sink, Event{File: path, Status: StatusDone, Outcome: res.Hint.Outcome, Elapsed: res.Elapsed})
			return nil
		})
	}
	err := g.Wait()

	for _, r := range results {
		switch {
		case r.Err != nil:
			sum.Errors++
		case r.Hint != nil:
			sum.Outcomes[r.Hint.Outcome]++
		}
	}
	sum.Elapsed = time.Since(start)
	return results, sum, err
}
