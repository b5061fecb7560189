package oracle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout is returned when the test command outlives its timeout.
var ErrTimeout = errors.New("test command timed out")

// DefaultTimeout bounds one test run when Command.Timeout is zero.
const DefaultTimeout = 10 * time.Second

const maxOutput = 64 << 10

// Command runs an external test harness. Argv may contain {file}, replaced by
// the path of a file holding the submission, and {problem}. The harness prints
// the score on its first stdout line; the remaining lines are feedback.
type Command struct {
	Argv    []string
	Timeout time.Duration
	Dir     string
	Logger  *zap.Logger
}

func (c *Command) Score(ctx context.Context, problem, code string) (float64, string, error) {
	if len(c.Argv) == 0 {
		return 0, "", errors.New("oracle command is empty")
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	f, err := os.CreateTemp("", "hintgen-*.py")
	if err != nil {
		return 0, "", fmt.Errorf("write submission: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return 0, "", fmt.Errorf("write submission: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, "", fmt.Errorf("write submission: %w", err)
	}

	args := substitute(c.Argv, f.Name(), problem)
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	var stdout, stderr limitedBuffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	log.Debug("running oracle", zap.String("problem", problem), zap.Strings("argv", args), zap.Duration("timeout", timeout))
	start := time.Now()
	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn("oracle timed out", zap.String("problem", problem), zap.Duration("timeout", timeout))
		return 0, "", ErrTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, "", fmt.Errorf("run oracle: %w", err)
		}
		// a failing harness may still have printed a score
		log.Debug("oracle exited", zap.Int("code", exitErr.ExitCode()), zap.String("stderr", stderr.String()))
	}
	score, feedback, perr := parseOutput(stdout.Bytes())
	if perr != nil {
		if err != nil {
			return 0, "", fmt.Errorf("run oracle: %w (%v)", err, perr)
		}
		return 0, "", perr
	}
	log.Debug("oracle scored", zap.String("problem", problem), zap.Float64("score", score), zap.Duration("took", time.Since(start)))
	return score, feedback, nil
}

func substitute(argv []string, file, problem string) []string {
	out := make([]string, len(argv))
	r := strings.NewReplacer("{file}", file, "{problem}", problem, "{dir}", filepath.Dir(file))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

func parseOutput(b []byte) (float64, string, error) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 4096), maxOutput)
	if !sc.Scan() {
		return 0, "", errors.New("oracle printed no score")
	}
	first := strings.TrimSpace(sc.Text())
	score, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, "", fmt.Errorf("oracle score %q: %w", first, err)
	}
	var rest []string
	for sc.Scan() {
		rest = append(rest, sc.Text())
	}
	return clamp(score), strings.TrimSpace(strings.Join(rest, "\n")), nil
}

// limitedBuffer drops output past maxOutput.
type limitedBuffer struct {
	bytes.Buffer
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if room := maxOutput - l.Len(); room < len(p) {
		if room > 0 {
			l.Buffer.Write(p[:room])
		}
		return n, nil
	}
	l.Buffer.Write(p)
	return n, nil
}
