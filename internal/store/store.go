// Package store keeps the solution space of every problem: the canonical states
// students have reached, how often, how well they score, and which state a hint
// should lead to next.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hintgen/internal/pyast"
)

// ErrNotFound is returned when no state matches a lookup.
var ErrNotFound = errors.New("state not found")

// State is one canonical program seen for a problem. States are unique per
// problem and rendered canonical code.
type State struct {
	ID       uuid.UUID
	Problem  string
	Code     string
	Tree     *pyast.Node
	Score    float64
	Feedback string
	Count    int
	// GoalID and NextID link a state to the goal it is heading for and the
	// state its next hint leads to. uuid.Nil means unknown.
	GoalID   uuid.UUID
	NextID   uuid.UUID
	GoalDist float64
}

// IsGoal reports whether the state passes every test.
func (s *State) IsGoal() bool { return s != nil && s.Score >= 1 }

// Clone returns a copy that shares nothing with s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Tree = pyast.Copy(s.Tree)
	return &c
}

func (s *State) String() string {
	return fmt.Sprintf("%s/%s (score %.2f, count %d)", s.Problem, s.ID, s.Score, s.Count)
}

// Repository persists states. Save is last-write-wins on (problem, code): saving a
// state whose code is already known overwrites the stored one and takes its id.
// Count is the exception. Save writes it only when the state is new, and
// reloads the stored value into st otherwise; Increment is the only way to
// change it afterwards.
type Repository interface {
	FindByCode(ctx context.Context, problem, code string) (*State, error)
	Get(ctx context.Context, id uuid.UUID) (*State, error)
	Save(ctx context.Context, st *State) error
	// Increment atomically adds n to the count of state id and returns the
	// new count.
	Increment(ctx context.Context, id uuid.UUID, n int) (int, error)
	// Goals lists the passing states of a problem in insertion order.
	Goals(ctx context.Context, problem string) ([]*State, error)
	States(ctx context.Context, problem string) ([]*State, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns a repository for driver. dsn is the sqlite file path.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
