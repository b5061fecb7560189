package pyast

import (
	"strconv"
	"strings"
)

// Step is one selector of a path: a list index, or a fixed field of a node of Kind.
type Step struct {
	Index int
	Field string
	Kind  Kind
}

// IndexStep selects position i of a list.
func IndexStep(i int) Step { return Step{Index: i} }

// FieldStep descends into field name of a node of kind k.
func FieldStep(name string, k Kind) Step { return Step{Field: name, Kind: k} }

func (s Step) IsIndex() bool { return s.Field == "" }

func (s Step) String() string {
	if s.IsIndex() {
		return strconv.Itoa(s.Index)
	}
	return "(" + s.Field + "," + s.Kind.String() + ")"
}

// Path addresses a subtree or a list slot. It is read innermost-first: p[0] is the last
// step taken from the root, p[len(p)-1] the first.
type Path []Step

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Prepend returns p with s added as the new innermost step.
func (p Path) Prepend(s Step) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, s)
	return append(out, p...)
}

// Append returns p with s added as the new outermost step.
func (p Path) Append(s Step) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, s)
}

// Last is the innermost step.
func (p Path) Last() Step { return p[0] }

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal compares two paths step by step.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// ComparePaths orders paths outermost-first, index steps before field steps.
func ComparePaths(p, q Path) int {
	for i, j := len(p)-1, len(q)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		a, b := p[i], q[j]
		if a == b {
			continue
		}
		if a.IsIndex() != b.IsIndex() {
			if a.IsIndex() {
				return -1
			}
			return 1
		}
		if a.IsIndex() {
			return a.Index - b.Index
		}
		if a.Field != b.Field {
			return strings.Compare(a.Field, b.Field)
		}
		return int(a.Kind) - int(b.Kind)
	}
	return len(p) - len(q)
}

// Walk follows every step except the innermost and returns the container it reaches:
// a node (when p[0] is a field step) or a list (when p[0] is an index step).
// ok is false when the path falls off the tree.
func (p Path) Walk(root Value) (spot Value, ok bool) {
	spot = root
	for i := len(p) - 1; i > 0; i-- {
		spot, ok = stepInto(spot, p[i])
		if !ok {
			return nil, false
		}
	}
	return spot, true
}

// Resolve follows every step of p, returning the addressed value.
func (p Path) Resolve(root Value) (Value, bool) {
	if len(p) == 0 {
		return root, true
	}
	spot, ok := p.Walk(root)
	if !ok {
		return nil, false
	}
	return stepInto(spot, p[0])
}

func stepInto(spot Value, s Step) (Value, bool) {
	if s.IsIndex() {
		l, ok := spot.(*ListVal)
		if !ok || l == nil || s.Index < 0 || s.Index >= len(l.Items) {
			return nil, false
		}
		return l.Items[s.Index], true
	}
	n, ok := spot.(*Node)
	if !ok || n == nil {
		return nil, false
	}
	return n.Get(s.Field)
}

// PathTo returns the path from root to the first node carrying id.
func PathTo(root *Node, id ID) (Path, bool) {
	if root == nil || id == 0 {
		return nil, false
	}
	if root.ID == id {
		return Path{}, true
	}
	return pathIn(root, id)
}

func pathIn(n *Node, id ID) (Path, bool) {
	for i, f := range Fields(n.Kind) {
		step := FieldStep(f.Name, n.Kind)
		switch x := n.fields[i].(type) {
		case *Node:
			if x == nil {
				continue
			}
			if x.ID == id {
				return Path{step}, true
			}
			if sub, ok := pathIn(x, id); ok {
				return append(sub, step), true
			}
		case *ListVal:
			if x == nil {
				continue
			}
			for j, it := range x.Items {
				c, ok := it.(*Node)
				if !ok || c == nil {
					continue
				}
				if c.ID == id {
					return Path{IndexStep(j), step}, true
				}
				if sub, ok := pathIn(c, id); ok {
					return append(sub, IndexStep(j), step), true
				}
			}
		}
	}
	return nil, false
}
