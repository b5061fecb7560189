package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hintgen/internal/driver"
	"hintgen/internal/hint"
	"hintgen/internal/metrics"
	"hintgen/internal/search"
)

func newBatchCmd() *cobra.Command {
	var (
		problem     string
		level       string
		jobs        int
		metricsPath string
		graph       bool
		uiFlag      string
		noCache     bool
	)
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Hint every *.py submission under DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := hint.ParseLevel(level)
			if err != nil {
				return err
			}
			mode, err := readUIMode(uiFlag)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			g, repo, p, err := s.generator(generatorOptions{problem: problem, noCache: noCache})
			if err != nil {
				return err
			}
			files, err := driver.ListSubmissions(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no *.py files under %s", args[0])
			}

			rec := metrics.New(p.Name)
			opts := driver.BatchOptions{Jobs: jobs, Level: lvl, Sink: rec, Logger: s.log}
			idx := s.timer.Begin("batch")
			var (
				results []driver.Result
				sum     driver.Summary
			)
			if shouldUseTUI(mode, s.quiet) {
				results, sum, err = runBatchWithUI(s.ctx(), "hinting "+p.Name, g, files, opts)
			} else {
				results, sum, err = driver.Batch(s.ctx(), g, files, opts)
			}
			s.timer.End(idx, fmt.Sprintf("%d files", len(files)))
			if err != nil {
				return err
			}

			for _, r := range results {
				if r.Err != nil {
					s.log.Error("submission failed", zap.String("file", r.Path), zap.Error(r.Err))
				}
			}
			printSummary(cmd.OutOrStdout(), sum)

			if metricsPath != "" {
				if err := rec.WriteFile(metricsPath); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
				s.printf("metrics written to %s\n", metricsPath)
			}
			if graph {
				idx := s.timer.Begin("graph")
				edges, err := driver.Graph(s.ctx(), repo, p.Name, search.Weights(s.cfg.Engine.Weights))
				s.timer.End(idx, fmt.Sprintf("%d edges", len(edges)))
				if err != nil {
					return err
				}
				s.printf("linked %d states to a next state\n", len(edges))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "problem the submissions answer")
	cmd.Flags().StringVarP(&level, "level", "l", hint.NextStep.String(), "how much to reveal (next_step|structure|half_steps|solution)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "submissions hinted in parallel (default GOMAXPROCS)")
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "write prometheus text metrics to this file")
	cmd.Flags().BoolVar(&graph, "graph", false, "link every stored state to its most desirable next state")
	cmd.Flags().StringVar(&uiFlag, "ui", "auto", "progress view (auto|on|off)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the canonical-form cache")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func printSummary(w io.Writer, sum driver.Summary) {
	fmt.Fprintf(w, "%s %d files in %s\n", color.New(color.Bold).Sprint("batch:"), sum.Files, sum.Elapsed.Round(time.Millisecond))
	for _, o := range hint.Outcomes {
		if n := sum.Outcomes[o]; n > 0 {
			fmt.Fprintf(w, "  %s %d\n", outcomeColor(o).Sprintf("%-16s", o), n)
		}
	}
	if sum.Errors > 0 {
		fmt.Fprintf(w, "  %s %d\n", color.RedString("%-16s", "errors"), sum.Errors)
	}
}
