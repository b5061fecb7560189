package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hintgen/internal/hint"
)

func newHintCmd() *cobra.Command {
	var (
		problem string
		level   string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "hint FILE",
		Short: "Generate a hint for one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := hint.ParseLevel(level)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			g, _, _, err := s.generator(generatorOptions{problem: problem, noCache: noCache})
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s.addSource(args[0], src, true)
			idx := s.timer.Begin("hint")
			h, err := g.Hint(s.ctx(), string(src), lvl)
			if err != nil {
				s.timer.End(idx, "failed")
				return err
			}
			s.timer.End(idx, h.Outcome.String())
			printHint(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "problem the submission answers")
	cmd.Flags().StringVarP(&level, "level", "l", hint.NextStep.String(), "how much to reveal (next_step|structure|half_steps|solution)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the canonical-form cache")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func outcomeColor(o hint.Outcome) *color.Color {
	switch o {
	case hint.OutcomeHint, hint.OutcomeAlreadyCorrect:
		return color.New(color.FgGreen, color.Bold)
	case hint.OutcomeRejected:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

func printHint(w io.Writer, h *hint.Hint) {
	fmt.Fprintf(w, "%s [%s]\n", outcomeColor(h.Outcome).Sprint(h.Outcome), h.Level)
	fmt.Fprintln(w, h.Message)
	if h.State != nil && h.State.Feedback != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", color.CyanString("tests:"), strings.TrimRight(h.State.Feedback, "\n"))
	}
	if h.Outcome != hint.OutcomeHint {
		return
	}
	if h.Code != "" && h.Level == hint.Structure {
		fmt.Fprintf(w, "\n%s\n%s", color.CyanString("shape of the result:"), h.Code)
	}
	d := h.Diff()
	if d == "" {
		return
	}
	fmt.Fprintln(w)
	for _, line := range strings.SplitAfter(d, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(w, color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(w, color.GreenString("%s", line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(w, color.RedString("%s", line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprint(w, color.CyanString("%s", line))
		default:
			fmt.Fprint(w, line)
		}
	}
}
