package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hintgen/internal/hint"
	"hintgen/internal/oracle"
	"hintgen/internal/store"
)

// noOracle backs generators that only seed; seeded scores come from the file.
var noOracle = oracle.Func(func(context.Context, string, string) (float64, string, error) {
	return 0, "", errors.New("seeding does not run tests")
})

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE.yaml",
		Short: "Load known submissions and their scores into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			recs, err := store.LoadSeed(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			repo, err := s.openStore()
			if err != nil {
				return err
			}

			idx := s.timer.Begin("seed")
			gens := make(map[string]*hint.Generator)
			goals := 0
			for i, rec := range recs {
				g, ok := gens[rec.Problem]
				if !ok {
					if g, _, _, err = s.generator(generatorOptions{problem: rec.Problem, oracle: noOracle, repo: repo}); err != nil {
						return err
					}
					gens[rec.Problem] = g
				}
				st, err := g.Seed(s.ctx(), rec.Code, rec.Score, rec.Feedback, rec.Count)
				if err != nil {
					return fmt.Errorf("%s: record %d: %w", args[0], i, err)
				}
				if st.IsGoal() {
					goals++
				}
				s.log.Debug("seeded", zap.String("problem", rec.Problem), zap.Stringer("state", st.ID), zap.Int("count", st.Count))
			}
			s.timer.End(idx, fmt.Sprintf("%d records", len(recs)))
			s.printf("seeded %d records for %d problems (%d goals)\n", len(recs), len(gens), goals)
			return nil
		},
	}
}
