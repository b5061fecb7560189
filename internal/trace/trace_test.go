package trace_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hintgen/internal/trace"
)

func TestLevelFiltersScopes(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelPhase, trace.FormatText)
	trace.Begin(tr, trace.ScopeStage, "canonicalize", 0).End("")
	trace.Begin(tr, trace.ScopePass, "pass:constantFolding", 0).End("")
	out := buf.String()
	if !strings.Contains(out, "canonicalize") {
		t.Fatalf("stage span missing:\n%s", out)
	}
	if strings.Contains(out, "constantFolding") {
		t.Fatalf("pass span leaked at phase level:\n%s", out)
	}
}

func TestStartNestsSpans(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	ctx, outer := trace.Start(ctx, trace.ScopeStage, "search")
	_, inner := trace.Start(ctx, trace.ScopePass, "candidate")
	inner.End("")
	outer.End("")

	evs := ring.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("expected 4 events, got %d", len(evs))
	}
	if evs[1].ParentID != outer.ID() {
		t.Fatalf("inner parent = %d, want %d", evs[1].ParentID, outer.ID())
	}
}

func TestErrorLevelKeepsRingOnly(t *testing.T) {
	var buf bytes.Buffer
	tr, err := trace.New(trace.Config{Level: trace.LevelError, Mode: trace.ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	trace.Begin(tr, trace.ScopeStage, "diff", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("stream should stay quiet at error level, got %q", buf.String())
	}
	ring := tr.(*trace.MultiTracer).Ring()
	if ring == nil || len(ring.Snapshot()) != 2 {
		t.Fatalf("ring should hold both events")
	}
}

func TestNDJSONFormat(t *testing.T) {
	ev := &trace.Event{Time: time.Unix(0, 0).UTC(), Kind: trace.KindPoint, Scope: trace.ScopeRun, Name: "seed"}
	got := string(trace.FormatEvent(ev, trace.FormatNDJSON))
	if !strings.HasPrefix(got, "{") || !strings.Contains(got, `"name":"seed"`) || !strings.HasSuffix(got, "\n") {
		t.Fatalf("unexpected ndjson %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
	if l, err := trace.ParseLevel("DETAIL"); err != nil || l != trace.LevelDetail {
		t.Fatalf("got %v %v", l, err)
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelPhase)
	h := trace.StartHeartbeat(ring, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	h.Stop()
	h.Stop()
	if len(ring.Snapshot()) == 0 {
		t.Fatal("no heartbeat recorded")
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestStreamStopsAfterWriteError(t *testing.T) {
	w := &failingWriter{}
	tr := trace.NewStreamTracer(w, trace.LevelPhase, trace.FormatText)
	trace.Begin(tr, trace.ScopeStage, "search", 0).End("")
	if w.calls != 1 {
		t.Fatalf("writes after failure: %d", w.calls)
	}
	if err := tr.Close(); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Close = %v, want the write error", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []trace.Mode{trace.ModeStream, trace.ModeRing, trace.ModeBoth} {
		got, err := trace.ParseMode(strings.ToUpper(m.String()))
		if err != nil || got != m {
			t.Fatalf("ParseMode(%s) = %v, %v", m, got, err)
		}
	}
	if _, err := trace.ParseMode("tape"); err == nil {
		t.Fatal("unknown mode accepted")
	}
}
