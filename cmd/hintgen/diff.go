package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hintgen/internal/canon"
	"hintgen/internal/change"
	"hintgen/internal/differ"
	"hintgen/internal/pyast"
)

func newDiffCmd() *cobra.Command {
	var (
		problem    string
		raw        bool
		ignoreVars bool
	)
	cmd := &cobra.Command{
		Use:   "diff A B",
		Short: "Print the change vectors between two Python files and their distance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := s.cfg.Problem(problem)
			if err != nil {
				return err
			}
			c := canon.New(s.cfg.CanonOptions(p), s.rep)
			trees := make([]*pyast.Node, 2)
			for i, path := range args {
				t, err := parseFile(s, path, false)
				if err != nil {
					return err
				}
				if !raw {
					if t, err = canonicalCached(s, c, p.Name, t, false); err != nil {
						return err
					}
				}
				trees[i] = t
			}

			idx := s.timer.Begin("diff")
			d, vs := differ.Distance(trees[0], trees[1], differ.Options{IgnoreVariables: ignoreVars})
			s.timer.End(idx, fmt.Sprintf("%d vectors", len(vs)))

			w := cmd.OutOrStdout()
			fmt.Fprint(w, change.Format(vs))
			fmt.Fprintf(w, "%s %.4f (%d vectors)\n", color.CyanString("distance"), d, len(vs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "problem whose given names and types apply")
	cmd.Flags().BoolVar(&raw, "raw", false, "diff the parsed trees without canonicalizing")
	cmd.Flags().BoolVar(&ignoreVars, "ignore-vars", false, "treat all non-builtin names as equal")
	return cmd
}
