package change

import (
	"fmt"
	"slices"

	"hintgen/internal/pyast"
)

// PosMap records, for every list touched by an edit sequence, which original
// position now sits in each slot. Inserted slots hold -1.
//
// Nodes of the map mirror the tree: a node's entry is reached by field name, a list
// element's entry by its original position.
type PosMap struct {
	root *posNode
}

type posNode struct {
	ready  bool
	length int   // original list length
	pos    []int // pos[i] = original position now at slot i
	moved  map[int]bool

	fields map[string]*posNode
	items  map[int]*posNode
}

// NewPosMap returns an empty map: every list is still in its original order.
func NewPosMap() *PosMap { return &PosMap{root: &posNode{}} }

func (m *posNode) field(name string) *posNode {
	if m.fields == nil {
		m.fields = make(map[string]*posNode)
	}
	c, ok := m.fields[name]
	if !ok {
		c = &posNode{}
		m.fields[name] = c
	}
	return c
}

func (m *posNode) item(label int) *posNode {
	if m.items == nil {
		m.items = make(map[int]*posNode)
	}
	c, ok := m.items[label]
	if !ok {
		c = &posNode{}
		m.items[label] = c
	}
	return c
}

func (m *posNode) ensure(l *pyast.ListVal) {
	if m.ready {
		return
	}
	m.ready = true
	m.length = l.Len()
	m.pos = make([]int, m.length)
	for i := range m.pos {
		m.pos[i] = i
	}
}

// slotOf returns the current slot of original position label.
func (m *posNode) slotOf(label int) (int, bool) {
	if label < 0 {
		return 0, false
	}
	i := slices.Index(m.pos, label)
	return i, i >= 0
}

func (m *posNode) present(label int) bool {
	_, ok := m.slotOf(label)
	return ok
}

// span returns the smallest and largest original positions still in the list.
func (m *posNode) span() (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for _, p := range m.pos {
		if p < 0 {
			continue
		}
		if lo < 0 || p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi, lo >= 0
}

func (m *posNode) markMoved(labels ...int) {
	if m.moved == nil {
		m.moved = make(map[int]bool)
	}
	for _, l := range labels {
		m.moved[l] = true
	}
}

// Labels returns the current arrangement of the list addressed by listPath, written in
// original numbering. ok is false when no edit has touched that list.
func (pm *PosMap) Labels(listPath pyast.Path) ([]int, bool) {
	m := pm.root
	for i := len(listPath) - 1; i >= 0; i-- {
		s := listPath[i]
		var next *posNode
		if s.IsIndex() {
			next = m.items[s.Index]
		} else {
			next = m.fields[s.Field]
		}
		if next == nil {
			return nil, false
		}
		m = next
	}
	if !m.ready {
		return nil, false
	}
	return slices.Clone(m.pos), true
}

// retarget walks p in tree, rewriting every outer index step from original numbering
// to the current slot, and returns the container reached with its map entry.
func retarget(tree *pyast.Node, m *posNode, p pyast.Path) (pyast.Value, *posNode, error) {
	var spot pyast.Value = tree
	for i := len(p) - 1; i > 0; i-- {
		s := p[i]
		if !s.IsIndex() {
			n, ok := spot.(*pyast.Node)
			if !ok || n == nil {
				return nil, nil, fmt.Errorf("%w: field %q of a non-node", ErrBadPath, s.Field)
			}
			v, ok := n.Get(s.Field)
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s has no field %q", ErrBadPath, n.Kind, s.Field)
			}
			m = m.field(s.Field)
			spot = v
			continue
		}
		l, ok := spot.(*pyast.ListVal)
		if !ok || l == nil {
			return nil, nil, fmt.Errorf("%w: index %d of a non-list", ErrBadPath, s.Index)
		}
		m.ensure(l)
		at, ok := m.slotOf(s.Index)
		if !ok || at >= l.Len() {
			return nil, nil, fmt.Errorf("%w: element %d is gone", ErrBadPath, s.Index)
		}
		p[i].Index = at
		m = m.item(s.Index)
		spot = l.Items[at]
	}
	return spot, m, nil
}

// Update re-targets v onto tree, the result of every vector applied before it, and
// records its own effect in m. v's path and positions are rewritten in place.
func (v *Vector) Update(tree *pyast.Node, pm *PosMap) error {
	if pm == nil {
		pm = NewPosMap()
	}
	v.Start = tree
	if v.IsCrossSwap() {
		if err := retargetSlot(tree, pm.root, v.OldPath); err != nil {
			return err
		}
		return retargetSlot(tree, pm.root, v.NewPath)
	}
	if len(v.Path) == 0 {
		return nil
	}
	spot, m, err := retarget(tree, pm.root, v.Path)
	if err != nil {
		return err
	}
	loc := v.Path[0]
	switch v.Kind {
	case Replace, Sub, Super:
		if l, ok := spot.(*pyast.ListVal); ok && loc.IsIndex() && l != nil {
			m.ensure(l)
			at, ok := m.slotOf(loc.Index)
			if !ok {
				return fmt.Errorf("%w: element %d is gone", ErrBadPath, loc.Index)
			}
			v.Path[0].Index = at
		}
		return nil
	}

	l, ok := spot.(*pyast.ListVal)
	if !ok || l == nil {
		return fmt.Errorf("%w: %s needs a list at %s", ErrBadPath, v.Kind, v.Path)
	}
	m.ensure(l)
	switch v.Kind {
	case Add:
		at, err := m.insertionSlot(loc.Index)
		if err != nil {
			return err
		}
		v.Path[0].Index = at
		m.pos = slices.Insert(m.pos, at, -1)
	case Delete:
		at, ok := m.slotOf(loc.Index)
		if !ok {
			return fmt.Errorf("%w: element %d is gone", ErrBadPath, loc.Index)
		}
		v.Path[0].Index = at
		m.pos = slices.Delete(m.pos, at, at+1)
	case Swap:
		if m.moved[v.From] || m.moved[v.To] {
			return fmt.Errorf("%w: swap %d and %d", ErrConflict, v.From, v.To)
		}
		a, okA := m.slotOf(v.From)
		b, okB := m.slotOf(v.To)
		if !okA || !okB {
			return fmt.Errorf("%w: swap %d and %d", ErrBadPath, v.From, v.To)
		}
		m.markMoved(v.From, v.To)
		m.pos[a], m.pos[b] = m.pos[b], m.pos[a]
		v.From, v.To = a, b
		v.Path[0].Index = a
	case Move:
		if m.moved[v.From] {
			return fmt.Errorf("%w: move %d", ErrConflict, v.From)
		}
		from, ok := m.slotOf(v.From)
		if !ok {
			return fmt.Errorf("%w: move of missing element %d", ErrBadPath, v.From)
		}
		dest, err := m.snap(v.To)
		if err != nil {
			return err
		}
		to, _ := m.slotOf(dest)
		m.markMoved(v.From)
		it := m.pos[from]
		m.pos = slices.Delete(m.pos, from, from+1)
		m.pos = slices.Insert(m.pos, to, it)
		v.From, v.To = from, to
		v.Path[0].Index = from
	}
	return nil
}

// insertionSlot finds where an element inserted before original position label goes.
// Inserting at the original length appends. If label was removed, the element lands
// right after the closest surviving predecessor.
func (m *posNode) insertionSlot(label int) (int, error) {
	switch {
	case label == m.length:
		return len(m.pos), nil
	case label < 0 || label > m.length:
		return 0, fmt.Errorf("%w: insert at %d of %d", ErrBadPath, label, m.length)
	}
	if at, ok := m.slotOf(label); ok {
		return at, nil
	}
	for p := label - 1; p >= 0; p-- {
		if at, ok := m.slotOf(p); ok {
			return at + 1, nil
		}
	}
	return 0, nil
}

// snap picks the destination element for a move whose target may have been removed:
// out-of-range targets clamp to the surviving ends, others advance to the next survivor.
func (m *posNode) snap(label int) (int, error) {
	if m.present(label) {
		return label, nil
	}
	lo, hi, ok := m.span()
	if !ok {
		return 0, fmt.Errorf("%w: no element left to move next to", ErrBadPath)
	}
	switch {
	case label < lo:
		return lo, nil
	case label > hi:
		return hi, nil
	}
	for !m.present(label) {
		label++
	}
	return label, nil
}

func retargetSlot(tree *pyast.Node, root *posNode, p pyast.Path) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty swap path", ErrBadPath)
	}
	spot, m, err := retarget(tree, root, p)
	if err != nil {
		return err
	}
	if l, ok := spot.(*pyast.ListVal); ok && l != nil && p[0].IsIndex() {
		m.ensure(l)
		if m.moved[p[0].Index] {
			return fmt.Errorf("%w: swap of %d", ErrConflict, p[0].Index)
		}
		at, ok := m.slotOf(p[0].Index)
		if !ok {
			return fmt.Errorf("%w: element %d is gone", ErrBadPath, p[0].Index)
		}
		m.markMoved(p[0].Index)
		p[0].Index = at
	}
	return nil
}
