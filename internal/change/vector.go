// Package change models typed tree edits and their application.
//
// A Vector addresses one spot of its Start tree by an innermost-first path and
// describes what happens there. Vectors produced by one diff use the numbering of
// the tree they were computed on; Update re-targets them through a PosMap while an
// edit sequence is applied left to right.
package change

import (
	"errors"
	"fmt"
	"strings"

	"hintgen/internal/pyast"
	"hintgen/internal/render"
)

// Kind enumerates the edit primitives, in their canonical sort order.
type Kind uint8

const (
	Replace Kind = iota // swap the subtree at Path for New
	Sub                 // Old occurs inside New
	Super               // New occurs inside Old
	Add                 // insert New into a list before Path[0]
	Delete              // remove the list element at Path[0]
	Swap                // exchange two list elements, or two arbitrary slots
	Move                // relocate one list element
)

var kindNames = [...]string{
	Replace: "Replace",
	Sub:     "Sub",
	Super:   "Super",
	Add:     "Add",
	Delete:  "Delete",
	Swap:    "Swap",
	Move:    "Move",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

var (
	// ErrBadPath reports a path that does not resolve against the tree.
	ErrBadPath = errors.New("change vector path does not resolve")
	// ErrConflict reports a relocation of an element that was already relocated.
	ErrConflict = errors.New("element relocated twice")
	// ErrNoStart reports a vector without a start tree.
	ErrNoStart = errors.New("change vector has no start tree")
)

// Vector is one edit.
//
// Replace, Sub and Super put New where Old was. Add inserts New before list
// position Path[0]; Delete removes Old from Path[0]. For Swap and Move the path
// addresses the list itself (Path[0] is informational) and From/To hold list
// positions. A Swap with OldPath and NewPath set exchanges two arbitrary slots.
type Vector struct {
	Kind Kind
	Path pyast.Path
	Old  pyast.Value
	New  pyast.Value

	From, To int

	OldPath, NewPath pyast.Path

	Start *pyast.Node
}

// IsCrossSwap reports a swap between two slots that need not share a list.
func (v *Vector) IsCrossSwap() bool {
	return v.Kind == Swap && v.OldPath != nil
}

// IsRelocation reports Swap and Move vectors.
func (v *Vector) IsRelocation() bool { return v.Kind == Swap || v.Kind == Move }

// Clone copies the vector's paths. Subtrees and the start tree are shared:
// application never mutates them.
func (v *Vector) Clone() *Vector {
	c := *v
	c.Path = v.Path.Clone()
	c.OldPath = v.OldPath.Clone()
	c.NewPath = v.NewPath.Clone()
	return &c
}

// DeepCopy copies everything including subtrees and the start tree.
func (v *Vector) DeepCopy() *Vector {
	c := v.Clone()
	c.Old = pyast.CopyValue(v.Old)
	c.New = pyast.CopyValue(v.New)
	c.Start = pyast.Copy(v.Start)
	return c
}

// CloneAll clones every vector of vs.
func CloneAll(vs []*Vector) []*Vector {
	out := make([]*Vector, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// Compare orders vectors by kind, then path, old subtree, new subtree and start tree.
func Compare(a, b *Vector) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	if c := pyast.ComparePaths(a.Path, b.Path); c != 0 {
		return c
	}
	if a.IsRelocation() {
		if a.From != b.From {
			return a.From - b.From
		}
		if a.To != b.To {
			return a.To - b.To
		}
	}
	if c := pyast.CompareValues(a.Old, b.Old, false); c != 0 {
		return c
	}
	if c := pyast.CompareValues(a.New, b.New, false); c != 0 {
		return c
	}
	return pyast.CompareValues(a.Start, b.Start, false)
}

// Equal reports whether two vectors describe the same edit of the same tree.
func Equal(a, b *Vector) bool { return Compare(a, b) == 0 }

// Contains reports whether vs holds a vector equal to v.
func Contains(vs []*Vector, v *Vector) bool {
	for _, w := range vs {
		if w == v || Equal(w, v) {
			return true
		}
	}
	return false
}

// IsStrictSubset reports whether every vector of sub is in set and set is larger.
func IsStrictSubset(sub, set []*Vector) bool {
	if len(sub) >= len(set) {
		return false
	}
	for _, v := range sub {
		if !Contains(set, v) {
			return false
		}
	}
	return true
}

func (v *Vector) String() string {
	switch v.Kind {
	case Swap:
		if v.IsCrossSwap() {
			a, b := v.Swapees()
			return fmt.Sprintf("Swap: %s : %s\n%s : %s", show(a), v.OldPath, show(b), v.NewPath)
		}
		return fmt.Sprintf("Swap: %d - %d : %s", v.From, v.To, v.Path)
	case Move:
		return fmt.Sprintf("Move: %d - %d : %s", v.From, v.To, v.Path)
	case Replace:
		return fmt.Sprintf("%s - %s : %s", show(v.Old), show(v.New), v.Path)
	}
	return fmt.Sprintf("%s: %s - %s : %s", v.Kind, show(v.Old), show(v.New), v.Path)
}

func show(x pyast.Value) string {
	switch y := x.(type) {
	case *pyast.Node:
		if y == nil {
			return "None"
		}
		return strings.TrimRight(render.Source(y), "\n")
	case *pyast.ListVal:
		parts := make([]string, 0, y.Len())
		for _, it := range y.Items {
			parts = append(parts, show(it))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return pyast.FormatPrim(x)
}

// Format renders a vector list one per line.
func Format(vs []*Vector) string {
	var sb strings.Builder
	for _, v := range vs {
		sb.WriteString(v.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
