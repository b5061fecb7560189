// Package oracle scores rendered submissions against a problem's tests.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknown is returned by a Table that has no score for a submission.
var ErrUnknown = errors.New("no score known for submission")

// Oracle scores source code. The score is the fraction of passing tests, in
// [0, 1]. Implementations must be safe to call repeatedly and concurrently.
type Oracle interface {
	Score(ctx context.Context, problem, code string) (score float64, feedback string, err error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, problem, code string) (float64, string, error)

func (f Func) Score(ctx context.Context, problem, code string) (float64, string, error) {
	return f(ctx, problem, code)
}

// Table answers from a fixed set of known scores and defers the rest to a
// fallback, if any.
type Table struct {
	mu       sync.RWMutex
	scores   map[[2]string]entry
	Fallback Oracle
}

type entry struct {
	score    float64
	feedback string
}

func NewTable() *Table {
	return &Table{scores: make(map[[2]string]entry)}
}

// Set records the score of code for problem.
func (t *Table) Set(problem, code string, score float64, feedback string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores[[2]string{problem, code}] = entry{score, feedback}
}

func (t *Table) Score(ctx context.Context, problem, code string) (float64, string, error) {
	t.mu.RLock()
	e, ok := t.scores[[2]string{problem, code}]
	t.mu.RUnlock()
	if ok {
		return e.score, e.feedback, nil
	}
	if t.Fallback == nil {
		return 0, "", fmt.Errorf("%w: %s", ErrUnknown, problem)
	}
	score, feedback, err := t.Fallback.Score(ctx, problem, code)
	if err == nil {
		t.Set(problem, code, score, feedback)
	}
	return score, feedback, err
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
