package oracle_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"hintgen/internal/oracle"
)

func TestTableFallsBackAndRemembers(t *testing.T) {
	calls := 0
	tab := oracle.NewTable()
	tab.Set("p", "return 1", 1, "ok")
	tab.Fallback = oracle.Func(func(ctx context.Context, problem, code string) (float64, string, error) {
		calls++
		return 0.5, "half", nil
	})
	ctx := context.Background()
	if s, fb, err := tab.Score(ctx, "p", "return 1"); err != nil || s != 1 || fb != "ok" {
		t.Fatalf("known score: got %v %q %v", s, fb, err)
	}
	for i := 0; i < 2; i++ {
		if s, _, err := tab.Score(ctx, "p", "return 2"); err != nil || s != 0.5 {
			t.Fatalf("fallback score: got %v %v", s, err)
		}
	}
	if calls != 1 {
		t.Fatalf("fallback called %d times, want 1", calls)
	}
}

func TestTableWithoutFallback(t *testing.T) {
	_, _, err := oracle.NewTable().Score(context.Background(), "p", "x")
	if !errors.Is(err, oracle.ErrUnknown) {
		t.Fatalf("got %v, want ErrUnknown", err)
	}
}

func needShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell")
	}
}

func TestCommandReadsScoreAndFeedback(t *testing.T) {
	needShell(t)
	c := &oracle.Command{Argv: []string{"sh", "-c", `grep -q "return 1" "$0" && printf '0.75\nthree of four\n'`, "{file}"}}
	s, fb, err := c.Score(context.Background(), "p", "def f():\n    return 1\n")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if s != 0.75 || fb != "three of four" {
		t.Fatalf("got %v %q", s, fb)
	}
}

func TestCommandClampsScore(t *testing.T) {
	needShell(t)
	c := &oracle.Command{Argv: []string{"sh", "-c", "echo 3; exit 1"}}
	s, _, err := c.Score(context.Background(), "p", "")
	if err != nil || s != 1 {
		t.Fatalf("got %v %v", s, err)
	}
}

func TestCommandWithoutScore(t *testing.T) {
	needShell(t)
	c := &oracle.Command{Argv: []string{"sh", "-c", "echo oops"}}
	if _, _, err := c.Score(context.Background(), "p", ""); err == nil {
		t.Fatalf("expected an error for non-numeric output")
	}
}

func TestCommandTimeout(t *testing.T) {
	needShell(t)
	c := &oracle.Command{Argv: []string{"sh", "-c", "sleep 5"}, Timeout: 50 * time.Millisecond}
	if _, _, err := c.Score(context.Background(), "p", ""); !errors.Is(err, oracle.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
}
