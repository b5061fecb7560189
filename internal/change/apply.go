package change

import (
	"fmt"

	"hintgen/internal/pyast"
)

// spine follows every step of p but the innermost, dropping memoized weights of the
// nodes it passes since the edit below them changes their size.
func spine(root *pyast.Node, p pyast.Path) (pyast.Value, error) {
	var spot pyast.Value = root
	root.Invalidate()
	for i := len(p) - 1; i > 0; i-- {
		s := p[i]
		switch x := spot.(type) {
		case *pyast.Node:
			if s.IsIndex() || x == nil {
				return nil, fmt.Errorf("%w: step %d (%s) is not a field of %v", ErrBadPath, i, s, kindOf(x))
			}
			v, ok := x.Get(s.Field)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no field %q", ErrBadPath, x.Kind, s.Field)
			}
			spot = v
		case *pyast.ListVal:
			if !s.IsIndex() || x == nil || s.Index < 0 || s.Index >= x.Len() {
				return nil, fmt.Errorf("%w: step %d (%s) outside list of %d", ErrBadPath, i, s, x.Len())
			}
			spot = x.Items[s.Index]
		default:
			return nil, fmt.Errorf("%w: step %d (%s) into a primitive", ErrBadPath, i, s)
		}
		if n, ok := spot.(*pyast.Node); ok && n != nil {
			n.Invalidate()
		}
	}
	return spot, nil
}

func kindOf(n *pyast.Node) any {
	if n == nil {
		return "nil"
	}
	return n.Kind
}

// Target returns the value the vector's path addresses in root.
func (v *Vector) Target(root *pyast.Node) (pyast.Value, error) {
	if len(v.Path) == 0 {
		return root, nil
	}
	got, ok := v.Path.Resolve(root)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadPath, v.Path)
	}
	return got, nil
}

// Swapees returns the two values a cross swap exchanges, read from the start tree.
func (v *Vector) Swapees() (a, b pyast.Value) {
	if v.Start == nil {
		return nil, nil
	}
	a, _ = v.OldPath.Resolve(v.Start)
	b, _ = v.NewPath.Resolve(v.Start)
	return a, b
}

// Apply returns a copy of the start tree with the edit performed.
func (v *Vector) Apply() (*pyast.Node, error) {
	if v.Start == nil {
		return nil, ErrNoStart
	}
	tree := pyast.Copy(v.Start)
	if err := v.ApplyTo(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// ApplyTo performs the edit in place on tree, which must share the start tree's shape.
func (v *Vector) ApplyTo(tree *pyast.Node) error {
	if v.IsCrossSwap() {
		return crossSwap(tree, v.OldPath, v.NewPath)
	}
	if len(v.Path) == 0 {
		return fmt.Errorf("%w: empty path for %s", ErrBadPath, v.Kind)
	}
	spot, err := spine(tree, v.Path)
	if err != nil {
		return err
	}
	loc := v.Path[0]
	switch v.Kind {
	case Replace, Sub, Super:
		return replaceAt(spot, loc, v.New)
	}

	l, ok := spot.(*pyast.ListVal)
	if !ok || l == nil {
		return fmt.Errorf("%w: %s needs a list at %s", ErrBadPath, v.Kind, v.Path)
	}
	switch v.Kind {
	case Add:
		if loc.Index < 0 || loc.Index > l.Len() {
			return fmt.Errorf("%w: insert at %d into %d items", ErrBadPath, loc.Index, l.Len())
		}
		l.Insert(loc.Index, pyast.CopyValue(v.New))
	case Delete:
		if loc.Index < 0 || loc.Index >= l.Len() {
			return fmt.Errorf("%w: delete %d of %d items", ErrBadPath, loc.Index, l.Len())
		}
		l.Remove(loc.Index)
	case Swap:
		if !inRange(l, v.From) || !inRange(l, v.To) {
			return fmt.Errorf("%w: swap %d and %d in %d items", ErrBadPath, v.From, v.To, l.Len())
		}
		l.Items[v.From], l.Items[v.To] = l.Items[v.To], l.Items[v.From]
	case Move:
		if !inRange(l, v.From) || !inRange(l, v.To) {
			return fmt.Errorf("%w: move %d to %d in %d items", ErrBadPath, v.From, v.To, l.Len())
		}
		it := l.Remove(v.From)
		l.Insert(v.To, it)
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrBadPath, v.Kind)
	}
	return nil
}

func inRange(l *pyast.ListVal, i int) bool { return i >= 0 && i < l.Len() }

// replaceAt stores a copy of repl at loc inside spot. The replacement takes over the
// source position of what it replaces.
func replaceAt(spot pyast.Value, loc pyast.Step, repl pyast.Value) error {
	repl = pyast.CopyValue(repl)
	if loc.IsIndex() {
		l, ok := spot.(*pyast.ListVal)
		if !ok || l == nil || !inRange(l, loc.Index) {
			return fmt.Errorf("%w: index %d", ErrBadPath, loc.Index)
		}
		takePosition(repl, l.Items[loc.Index])
		l.Items[loc.Index] = repl
		return nil
	}
	n, ok := spot.(*pyast.Node)
	if !ok || n == nil {
		return fmt.Errorf("%w: field %q of a non-node", ErrBadPath, loc.Field)
	}
	old, ok := n.Get(loc.Field)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrBadPath, n.Kind, loc.Field)
	}
	takePosition(repl, old)
	n.Set(loc.Field, repl)
	// a renamed variable no longer stands for its original name
	if (n.Is(pyast.Name) && loc.Field == "id") || (n.Is(pyast.Arg) && loc.Field == "arg") {
		n.Meta.OriginalID = ""
	}
	return nil
}

func takePosition(dst, src pyast.Value) {
	d, ok1 := dst.(*pyast.Node)
	s, ok2 := src.(*pyast.Node)
	if !ok1 || !ok2 || d == nil || s == nil || s.Line == 0 {
		return
	}
	d.Line, d.Col = s.Line, s.Col
}

func crossSwap(tree *pyast.Node, a, b pyast.Path) error {
	if len(a) == 0 || len(b) == 0 {
		return fmt.Errorf("%w: cross swap needs two slots", ErrBadPath)
	}
	sa, err := spine(tree, a)
	if err != nil {
		return err
	}
	sb, err := spine(tree, b)
	if err != nil {
		return err
	}
	va, err := slot(sa, a[0])
	if err != nil {
		return err
	}
	vb, err := slot(sb, b[0])
	if err != nil {
		return err
	}
	if err := store(sa, a[0], vb); err != nil {
		return err
	}
	return store(sb, b[0], va)
}

func slot(spot pyast.Value, s pyast.Step) (pyast.Value, error) {
	if s.IsIndex() {
		if l, ok := spot.(*pyast.ListVal); ok && l != nil && inRange(l, s.Index) {
			return l.Items[s.Index], nil
		}
		return nil, fmt.Errorf("%w: index %d", ErrBadPath, s.Index)
	}
	if n, ok := spot.(*pyast.Node); ok && n != nil {
		if v, ok := n.Get(s.Field); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: field %q", ErrBadPath, s.Field)
}

func store(spot pyast.Value, s pyast.Step, v pyast.Value) error {
	if s.IsIndex() {
		spot.(*pyast.ListVal).Items[s.Index] = v
		return nil
	}
	spot.(*pyast.Node).Set(s.Field, v)
	return nil
}

// ApplyAll performs vs in order on a copy of start. Each vector is re-targeted through
// a shared position map first, so indices always refer to start's numbering.
func ApplyAll(start *pyast.Node, vs []*Vector) (*pyast.Node, error) {
	m := NewPosMap()
	cur := pyast.Copy(start)
	for i, v := range vs {
		c := v.Clone()
		if err := c.Update(cur, m); err != nil {
			return nil, fmt.Errorf("vector %d (%s): %w", i, v.Kind, err)
		}
		if err := c.ApplyTo(cur); err != nil {
			return nil, fmt.Errorf("vector %d (%s): %w", i, v.Kind, err)
		}
	}
	return cur, nil
}

// Sequence re-targets vs onto the trees they produce one after another. Every
// result carries a private snapshot of the tree it applies to, so it can be applied
// on its own. The final tree is returned alongside.
func Sequence(start *pyast.Node, vs []*Vector) ([]*Vector, *pyast.Node, error) {
	m := NewPosMap()
	cur := pyast.Copy(start)
	out := make([]*Vector, 0, len(vs))
	for i, v := range vs {
		c := v.Clone()
		if err := c.Update(cur, m); err != nil {
			return nil, nil, fmt.Errorf("vector %d (%s): %w", i, v.Kind, err)
		}
		c.Start = pyast.Copy(cur)
		if err := c.ApplyTo(cur); err != nil {
			return nil, nil, fmt.Errorf("vector %d (%s): %w", i, v.Kind, err)
		}
		out = append(out, c)
	}
	return out, cur, nil
}

// ApplyChain applies vectors produced by Sequence, each to the result of the last.
func ApplyChain(start *pyast.Node, vs []*Vector) (*pyast.Node, error) {
	cur := pyast.Copy(start)
	for i, v := range vs {
		if err := v.ApplyTo(cur); err != nil {
			return nil, fmt.Errorf("vector %d (%s): %w", i, v.Kind, err)
		}
	}
	return cur, nil
}
