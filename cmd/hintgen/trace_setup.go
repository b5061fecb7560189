package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hintgen/internal/trace"
)

// setupTracing reads the trace flags and attaches a tracer to the command
// context. The returned cleanup stops the heartbeat, then flushes and closes
// the tracer.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// an output file alone asks for stage spans
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)

	return func() {
		heartbeat.Stop()
		dumpRing(cmd, tracer, mode, output, format)
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpRing writes buffered events out. Ring mode always writes them to the
// trace output at exit; both mode already streams, so its ring is only
// written to stderr when the run was interrupted.
func dumpRing(cmd *cobra.Command, tracer trace.Tracer, mode trace.Mode, output string, format trace.Format) {
	var (
		ring *trace.RingTracer
		w    io.Writer
	)
	switch mode {
	case trace.ModeRing:
		ring, _ = tracer.(*trace.RingTracer)
		w = cmd.ErrOrStderr()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
				return
			}
			defer f.Close()
			w = f
		}
	case trace.ModeBoth:
		if cmd.Context().Err() == nil {
			return
		}
		if m, ok := tracer.(*trace.MultiTracer); ok {
			ring = m.Ring()
		}
		w = cmd.ErrOrStderr()
		fmt.Fprintln(w, "trace: last events before interrupt")
	}
	if ring == nil {
		return
	}
	if err := ring.Dump(w, trace.ResolveFormat(format, output)); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
	}
}
