// Package diagfmt renders collected diagnostics for people (Pretty) and for
// tools (JSON).
package diagfmt

import (
	"fmt"
	"strings"

	"hintgen/internal/diag"
)

// Format selects an output form.
type Format uint8

const (
	FormatOff Format = iota
	FormatPretty
	FormatJSON
)

// ParseFormat reads a --diagnostics flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return FormatOff, nil
	case "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatOff, fmt.Errorf("invalid diagnostics format %q (expected off|pretty|json)", s)
}

// Options configure both renderers.
type Options struct {
	Color bool
	// MinSeverity drops anything less severe.
	MinSeverity diag.Severity
	ShowNotes   bool
	// Max bounds the number printed; 0 prints everything.
	Max int
}

// Sources maps file names to their text. The "" entry serves locations that
// carry no file name.
type Sources map[string][]byte

func (s Sources) line(file string, n int) (string, bool) {
	src, ok := s[file]
	if !ok || n < 1 {
		return "", false
	}
	lines := strings.Split(string(src), "\n")
	if n > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[n-1], "\r"), true
}

func selectItems(items []diag.Diagnostic, opts Options) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(items))
	for _, d := range items {
		if d.Severity < opts.MinSeverity {
			continue
		}
		out = append(out, d)
		if opts.Max > 0 && len(out) == opts.Max {
			break
		}
	}
	return out
}
