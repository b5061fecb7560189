package driver

import (
	"context"
	"fmt"

	"hintgen/internal/search"
	"hintgen/internal/store"
)

// Edge links a state to the next state a hint would steer it toward.
type Edge struct {
	From, To     *store.State
	Desirability float64
}

// Graph links every failing state of problem to its most desirable better
// scoring state and saves the link. Earlier states win ties.
func Graph(ctx context.Context, repo store.Repository, problem string, w search.Weights) ([]Edge, error) {
	states, err := repo.States(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("graph: load states: %w", err)
	}
	var edges []Edge
	for _, s := range states {
		if s.IsGoal() || s.Tree == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return edges, err
		}
		best := Edge{From: s, Desirability: -1}
		for _, n := range states {
			if n == s || n.Tree == nil || n.Score <= s.Score {
				continue
			}
			if d := search.Desirability(s, n, w); d > best.Desirability {
				best.To, best.Desirability = n, d
			}
		}
		if best.To == nil {
			continue
		}
		s.NextID = best.To.ID
		if err := repo.Save(ctx, s); err != nil {
			return edges, fmt.Errorf("graph: save %s: %w", s.ID, err)
		}
		edges = append(edges, best)
	}
	return edges, nil
}
