package individualize

import (
	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
)

// retarget rewrites v's paths against m.orig. Nodes are found by ID; an edit of
// something the student never wrote lands under its closest ancestor that has
// an original. It reports false when nothing in the original fits.
func (m *mapper) retarget(v *change.Vector) bool {
	switch {
	case v.IsCrossSwap():
		return m.retargetCrossSwap(v)
	case v.IsRelocation():
		return m.retargetRelocation(v)
	}
	if o := pyast.AsNode(v.Old); o != nil && o.ID != 0 {
		if p, ok := pyast.PathTo(m.orig, o.ID); ok && len(p) > 0 {
			v.Path = p
			v.Start = m.orig
			return true
		}
	}
	return m.climb(v)
}

func (m *mapper) climb(v *change.Vector) bool {
	for j := 1; j <= len(v.Path); j++ {
		spot := pyast.AsNode(at(v.Start, v.Path[j:]))
		if spot == nil || spot.ID == 0 {
			continue
		}
		op, ok := pyast.PathTo(m.orig, spot.ID)
		if !ok {
			continue
		}
		below := v.Path[:j].Clone()
		if v.Kind == change.Add && len(below) == 2 && below[0].IsIndex() {
			canonList := pyast.AsList(at(v.Start, v.Path[1:]))
			origList := pyast.AsList(at(m.orig, append(below[1:].Clone(), op...)))
			below[0].Index = insertionPoint(canonList, origList, below[0].Index)
		}
		p := append(below, op...)
		if !fits(m.orig, v.Kind, p) || pyast.AsNode(at(m.orig, op)).Kind != spot.Kind || !sameKind(v.Old, at(m.orig, p)) {
			return m.replaceAt(v, v.Path[j:], op)
		}
		v.Path = p
		v.Start = m.orig
		return true
	}
	m.report(diag.IndivMissingID, v.Old, "no original counterpart for %s at %s", v.Kind, v.Path)
	return false
}

// fits reports whether a vector of kind k can be applied at p in root.
func fits(root *pyast.Node, k change.Kind, p pyast.Path) bool {
	if k != change.Add {
		_, ok := p.Resolve(root)
		return ok
	}
	spot, ok := p.Walk(root)
	l := pyast.AsList(spot)
	return ok && l != nil && p[0].Index <= l.Len()
}

// sameKind reports whether the node an edit expects is what the original holds.
func sameKind(want, got pyast.Value) bool {
	w := pyast.AsNode(want)
	if w == nil {
		return true
	}
	g := pyast.AsNode(got)
	return g != nil && g.Kind == w.Kind
}

// insertionPoint maps an insertion before canonical position i to the original
// list, anchoring on the element it goes before or the one it follows.
func insertionPoint(canon, orig *pyast.ListVal, i int) int {
	if orig == nil {
		return i
	}
	if canon != nil {
		if i < canon.Len() {
			if k := indexByID(orig, canon.Node(i)); k >= 0 {
				return k
			}
		}
		if i > 0 && i-1 < canon.Len() {
			if k := indexByID(orig, canon.Node(i-1)); k >= 0 {
				return k + 1
			}
		}
	}
	if i == 0 {
		return 0
	}
	return orig.Len()
}

func indexByID(l *pyast.ListVal, n *pyast.Node) int {
	if l == nil || n == nil || n.ID == 0 {
		return -1
	}
	for i, it := range l.Nodes() {
		if it != nil && it.ID == n.ID {
			return i
		}
	}
	return -1
}

// retargetRelocation maps the positions of a Move or Swap through the IDs of
// the elements it moves.
func (m *mapper) retargetRelocation(v *change.Vector) bool {
	if len(v.Path) < 2 {
		return false
	}
	list := pyast.AsList(at(v.Start, v.Path[1:]))
	owner := pyast.AsNode(at(v.Start, v.Path[2:]))
	if list == nil || owner == nil || owner.ID == 0 || v.From >= list.Len() || v.To >= list.Len() {
		return m.replaceAbove(v, v.Path[2:])
	}
	op, ok := pyast.PathTo(m.orig, owner.ID)
	if !ok || !pyast.AsNode(at(m.orig, op)).Is(owner.Kind) {
		return m.replaceAbove(v, v.Path[2:])
	}
	listPath := append(pyast.Path{v.Path[1]}, op...)
	origList := pyast.AsList(at(m.orig, listPath))
	from, to := indexByID(origList, list.Node(v.From)), indexByID(origList, list.Node(v.To))
	if from < 0 || to < 0 {
		return m.replaceAbove(v, v.Path[2:])
	}
	v.From, v.To = from, to
	v.Path = listPath.Prepend(pyast.IndexStep(from))
	v.Start = m.orig
	return true
}

func (m *mapper) retargetCrossSwap(v *change.Vector) bool {
	a, b := v.Swapees()
	an, bn := pyast.AsNode(a), pyast.AsNode(b)
	if an != nil && bn != nil && an.ID != 0 && bn.ID != 0 {
		pa, okA := pyast.PathTo(m.orig, an.ID)
		pb, okB := pyast.PathTo(m.orig, bn.ID)
		if okA && okB && len(pa) > 0 && len(pb) > 0 {
			v.OldPath, v.NewPath = pa, pb
			v.Start = m.orig
			return true
		}
	}
	return m.replaceAbove(v, commonAncestor(v.OldPath, v.NewPath))
}

// commonAncestor returns the deepest path both p and q pass through.
func commonAncestor(p, q pyast.Path) pyast.Path {
	n := 0
	for n < len(p) && n < len(q) && p[len(p)-1-n] == q[len(q)-1-n] {
		n++
	}
	return p[len(p)-n:].Clone()
}

// replaceAbove climbs from p to the closest node with an original and turns v
// into a replacement of that node by its edited canonical form.
func (m *mapper) replaceAbove(v *change.Vector, p pyast.Path) bool {
	for j := 0; j <= len(p); j++ {
		spot := pyast.AsNode(at(v.Start, p[j:]))
		if spot == nil || spot.ID == 0 {
			continue
		}
		if op, ok := pyast.PathTo(m.orig, spot.ID); ok {
			return m.replaceAt(v, p[j:], op)
		}
	}
	m.report(diag.IndivMissingID, v.Old, "no original counterpart above %s", p)
	return false
}

// replaceAt rewrites v as a replacement, at op in the original, of what the
// canonical node at p becomes once v is applied.
func (m *mapper) replaceAt(v *change.Vector, p, op pyast.Path) bool {
	after, err := v.Apply()
	if err != nil {
		m.report(diag.IndivMismatch, v.Old, "%s does not apply to its canonical tree: %v", v.Kind, err)
		return false
	}
	target := pyast.AsNode(at(m.orig, op))
	if len(op) == 0 || target == nil {
		return false
	}
	*v = change.Vector{
		Kind:  change.Replace,
		Path:  op,
		Old:   pyast.Copy(target),
		New:   pyast.CopyValue(at(after, p)),
		Start: m.orig,
	}
	m.restoreNames(v)
	return true
}
