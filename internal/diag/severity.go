package diag

import (
	"fmt"
	"strings"
)

// Severity ranks how much a diagnostic says about the hint a run produced.
type Severity uint8

const (
	// SevInfo notes a step the engine took that does not change the hint,
	// such as a rejected submission or a skipped cache entry.
	SevInfo Severity = iota
	// SevWarning marks a degraded result: a pass that gave up, an edit that
	// mapped only partially, a goal renaming that missed.
	SevWarning
	// SevError marks a failed run: the oracle, the store or the input tree
	// could not be used.
	SevError
)

var severityNames = [...]string{SevInfo: "INFO", SevWarning: "WARNING", SevError: "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", uint8(s))
}

// Label is the lower-case name printed in rendered diagnostics.
func (s Severity) Label() string { return strings.ToLower(s.String()) }

// ParseSeverity reads a severity name in either case.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return SevInfo, fmt.Errorf("unknown severity %q (expected: info|warning|error)", name)
}
