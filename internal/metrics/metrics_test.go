package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hintgen/internal/driver"
	"hintgen/internal/hint"
	"hintgen/internal/metrics"
)

func TestRecorderWritesTextfile(t *testing.T) {
	r := metrics.New("double")
	var forwarded int
	sink := metrics.Tee{r, driver.SinkFunc(func(driver.Event) { forwarded++ })}
	events := []driver.Event{
		{File: "a.py", Status: driver.StatusQueued},
		{File: "a.py", Status: driver.StatusWorking},
		{File: "a.py", Status: driver.StatusDone, Outcome: hint.OutcomeHint, Elapsed: 20 * time.Millisecond},
		{File: "b.py", Status: driver.StatusDone, Outcome: hint.OutcomeHint, Elapsed: 30 * time.Millisecond},
		{File: "c.py", Status: driver.StatusDone, Outcome: hint.OutcomeNoGoal},
		{File: "d.py", Status: driver.StatusError, Err: errors.New("boom")},
	}
	for _, e := range events {
		sink.OnEvent(e)
	}
	if forwarded != len(events) {
		t.Fatalf("tee forwarded %d of %d events", forwarded, len(events))
	}

	path := filepath.Join(t.TempDir(), "hintgen.prom")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`hintgen_batch_hints_total{outcome="hint",problem="double"} 2`,
		`hintgen_batch_hints_total{outcome="no_goal",problem="double"} 1`,
		`hintgen_batch_errors_total{problem="double"} 1`,
		`hintgen_batch_hint_duration_seconds_count{problem="double"} 4`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestGatherer(t *testing.T) {
	r := metrics.New("p")
	r.OnEvent(driver.Event{Status: driver.StatusDone, Outcome: hint.OutcomeRejected})
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "hintgen_batch_hints_total" {
			found = len(f.GetMetric()) == 1
		}
	}
	if !found {
		t.Fatal("hints counter not gathered")
	}
}
