package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a limit. It is safe for concurrent use.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
	max   uint16
}

func NewBag(limit int) *Bag {
	m, err := safecast.Conv[uint16](limit)
	if err != nil {
		m = ^uint16(0)
	}
	return &Bag{items: make([]Diagnostic, 0, max(0, min(limit, 64))), max: m}
}

// Add stores d unless the bag is full, and reports whether it did.
func (b *Bag) Add(d Diagnostic) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 { return b.max }

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool { return b.count(SevError) > 0 }

// HasWarnings reports whether any diagnostic is a warning or worse.
func (b *Bag) HasWarnings() bool { return b.count(SevWarning) > 0 }

func (b *Bag) count(atLeast Severity) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].Severity >= atLeast {
			n++
		}
	}
	return n
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a copy of the stored diagnostics.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}

// Merge appends other's diagnostics, growing the limit when needed.
func (b *Bag) Merge(other *Bag) {
	items := other.Items()
	b.mu.Lock()
	defer b.mu.Unlock()
	if total := len(b.items) + len(items); total > int(b.max) {
		if m, err := safecast.Conv[uint16](total); err == nil {
			b.max = m
		}
	}
	b.items = append(b.items, items...)
	if len(b.items) > int(b.max) {
		b.items = b.items[:b.max]
	}
}

// Sort orders by file, line, column, severity (desc), code.
func (b *Bag) Sort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Line != dj.Primary.Line {
			return di.Primary.Line < dj.Primary.Line
		}
		if di.Primary.Col != dj.Primary.Col {
			return di.Primary.Col < dj.Primary.Col
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// простая дедупликация (по Code+Primary)
func (b *Bag) Dedup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]bool)
	kept := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s:%s", d.Code.ID(), d.Primary)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, d)
	}
	b.items = kept
}

// Format renders one line per diagnostic, notes indented below.
func (b *Bag) Format(includeNotes bool) string {
	var sb strings.Builder
	for _, d := range b.Items() {
		sb.WriteString(d.Short())
		sb.WriteByte('\n')
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  note %s %s\n", n.At, n.Msg)
		}
	}
	return sb.String()
}
