package trace

import (
	"io"
	"sync"
)

// StreamTracer writes each event to its writer as it is emitted. Lines from
// concurrent batch workers never interleave. The first write error switches
// the tracer off and is returned by Flush and Close, so a full disk costs the
// trace and not the hint run.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	err    error
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	line := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	if _, err := t.w.Write(line); err != nil {
		t.err = err
	}
}

// Flush pushes buffered output down and reports the first failed write.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	if f, ok := t.w.(interface{ Flush() error }); ok {
		t.err = f.Flush()
	}
	return t.err
}

func (t *StreamTracer) Close() error {
	ferr := t.Flush()
	c, ok := t.w.(io.Closer)
	if !ok {
		return ferr
	}
	if err := c.Close(); err != nil && ferr == nil {
		return err
	}
	return ferr
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
