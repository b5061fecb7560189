package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hintgen/internal/trace"
	"hintgen/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hintgen",
		Short:         "Data-driven next-step hints for Python exercises",
		Long:          `hintgen canonicalizes student submissions, diffs them against known solutions and turns the difference into hints`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mode, err := cmd.Flags().GetString("color")
			if err != nil {
				return err
			}
			return applyColorMode(mode)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to hintgen.toml (default: nearest one above the working directory)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.Bool("timings", false, "show timing information")
	flags.String("trace", "", "write a trace to this file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.Int("trace-ring-size", trace.DefaultRingSize, "events kept in ring mode")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	flags.String("diagnostics", "off", "print engine diagnostics after the run (off|pretty|json)")
	flags.String("diagnostics-min", "info", "least severe diagnostic to print (info|warning|error)")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(
		newCanonCmd(),
		newDiffCmd(),
		newHintCmd(),
		newBatchCmd(),
		newSeedCmd(),
		newVersionCmd(),
	)
	return root
}

// main runs the root command and exits with status 1 on error.
func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func applyColorMode(mode string) error {
	switch mode {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
