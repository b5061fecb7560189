package ui

import (
	"fmt"
	"strings"
	"testing"

	"hintgen/internal/driver"
	"hintgen/internal/hint"
)

func TestProgressFollowsEvents(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("batch", []string{"a.py", "b.py"}, events).(*progressModel)
	m.Update(eventMsg{File: "a.py", Status: driver.StatusWorking})
	m.Update(eventMsg{File: "a.py", Status: driver.StatusDone, Outcome: hint.OutcomeNoGoal})
	m.Update(eventMsg{File: "b.py", Status: driver.StatusError})
	m.Update(eventMsg{File: "other.py", Status: driver.StatusDone})

	if m.finished != 2 {
		t.Fatalf("finished = %d, want 2", m.finished)
	}
	view := m.View()
	for _, want := range []string{"batch 2/2", "no_goal", "error", "a.py", "b.py"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}
	if _, cmd := m.Update(doneMsg{}); cmd == nil || !m.done {
		t.Fatal("model did not quit after the last event")
	}
}

func TestVisibleRowsAreBounded(t *testing.T) {
	var files []string
	for i := range maxRows + 5 {
		files = append(files, fmt.Sprintf("f%02d.py", i))
	}
	m := NewProgressModel("batch", files, nil).(*progressModel)
	for _, f := range files[:10] {
		m.applyEvent(driver.Event{File: f, Status: driver.StatusDone})
	}
	rows := m.visible()
	if len(rows) != maxRows {
		t.Fatalf("%d rows, want %d", len(rows), maxRows)
	}
	if rows[0].path != "f10.py" {
		t.Fatalf("first row %s, want the first unfinished file", rows[0].path)
	}
	if got := rows[len(files)-10]; got.path != "f09.py" {
		t.Fatalf("row %s follows the open files, want the latest finished one", got.path)
	}
}
