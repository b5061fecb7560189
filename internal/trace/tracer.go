package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives the events of a hint run: spans for each command, stage
// and canonical pass, plus heartbeats while a long search is running. Batch
// workers emit concurrently, so implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// Mode selects where events go.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written to the output as they happen
	ModeRing                   // kept in memory and written at exit
	ModeBoth                   // streamed, with the latest also kept for an interrupt dump
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m Mode) String() string {
	if m > 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode reads the --trace-mode flag.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name != "" && strings.EqualFold(name, s) {
			return Mode(m), nil
		}
	}
	return ModeRing, fmt.Errorf("invalid trace mode %q (expected: stream|ring|both)", s)
}

// DefaultRingSize is how many events ring mode keeps when Config leaves it out.
const DefaultRingSize = 4096

// Config describes the tracer a command wants.
type Config struct {
	Level      Level
	Mode       Mode
	Format     Format
	Output     io.Writer // overrides OutputPath
	OutputPath string    // "-" or "" is stderr
	RingSize   int
	Heartbeat  time.Duration
}

// New builds the tracer cfg asks for. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if cfg.Mode == ModeRing {
		// the ring is written by the command at exit
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown trace mode: %v", cfg.Mode)
	}

	w, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	stream := NewStreamTracer(w, cfg.Level, ResolveFormat(cfg.Format, cfg.OutputPath))
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return stderrWriter{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

// stderrWriter hides Close so the tracer never closes stderr.
type stderrWriter struct{ io.Writer }
