package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hintgen/internal/canon"
	"hintgen/internal/pyast"
	"hintgen/internal/pyparse"
	"hintgen/internal/render"
)

func newCanonCmd() *cobra.Command {
	var (
		problem  string
		anonOnly bool
		showTree bool
		noCache  bool
	)
	cmd := &cobra.Command{
		Use:   "canon FILE",
		Short: "Print the canonical form of a Python file",
		Args:  cobra.ExactArgs(1),
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
			tree, err := parseFile(s, args[0], true)
			if err != nil {
				return err
			}
			c := canon.New(s.cfg.CanonOptions(p), s.rep)

			var out *pyast.Node
			idx := s.timer.Begin("canonicalize")
			if anonOnly {
				out, err = c.Anonymize(s.ctx(), tree)
			} else {
				out, err = canonicalCached(s, c, p.Name, tree, noCache)
			}
			s.timer.End(idx, "")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if showTree {
				return pyast.Dump(w, out)
			}
			_, err = fmt.Fprint(w, render.Source(out))
			return err
		},
	}
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "problem whose given names and types apply")
	cmd.Flags().BoolVar(&anonOnly, "anon-only", false, "only propagate metadata and anonymize names")
	cmd.Flags().BoolVar(&showTree, "tree", false, "print the tree with ids and tags instead of source")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the canonical-form cache")
	return cmd
}

// parseFile reads path and returns its tree with fresh node ids.
func parseFile(s *session, path string, primary bool) (*pyast.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s.addSource(path, src, primary)
	idx := s.timer.Begin("parse")
	tree, err := pyparse.New().Parse(s.ctx(), src)
	s.timer.End(idx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	canon.GiveIDs(tree)
	return tree, nil
}

func canonicalCached(s *session, c *canon.Canonicalizer, problem string, tree *pyast.Node, noCache bool) (*pyast.Node, error) {
	cache, err := s.openCache(noCache || !s.cfg.Cache.Enabled)
	if err != nil {
		return nil, err
	}
	key := render.Source(tree)
	if cache != nil {
		if out, ok := cache.Load(problem, key); ok {
			s.log.Debug("canonical form from cache", zap.String("problem", problem))
			return out, nil
		}
	}
	out, err := c.Canonicalize(s.ctx(), tree)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Store(problem, key, out); err != nil {
			s.log.Warn("cache canonical form", zap.Error(err))
		}
	}
	return out, nil
}
