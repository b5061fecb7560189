package individualize

import (
	"hintgen/internal/change"
	"hintgen/internal/pyast"
)

// multiComp handles edits of a chained comparison the canonicalizer split into
// a conjunction of single comparisons. An edit anywhere inside the conjunction
// becomes a replacement of the student's chain, written as a chain again when
// the edited conjunction still links up.
func (m *mapper) multiComp(v *change.Vector) []*change.Vector {
	if o := pyast.AsNode(v.Old); o != nil && o.Tags.Has(pyast.TagMultiComp) {
		if n := pyast.AsNode(v.New); n != nil {
			v.New = rechain(n)
		}
		return nil
	}
	if vs := m.reversedList(v); vs != nil {
		return vs
	}
	for j := 1; j <= len(v.Path); j++ {
		p := v.Path[j:]
		spot := pyast.AsNode(at(v.Start, p))
		if spot == nil || !spot.Tags.Has(pyast.TagMultiComp) || spot.ID == 0 {
			continue
		}
		chain := pyast.FindByID(m.orig, spot.ID)
		if !chain.Is(pyast.Compare) || chain.ListField("ops").Len() < 2 {
			return nil
		}
		op, ok := pyast.PathTo(m.orig, spot.ID)
		after, err := v.Apply()
		if !ok || err != nil {
			return nil
		}
		out := &change.Vector{
			Kind: change.Replace,
			Path: op,
			Old:  pyast.Copy(chain),
			New:  rechain(pyast.Copy(pyast.AsNode(at(after, p)))),
		}
		m.restoreNames(out)
		return m.inOriginal(true, out)
	}
	return nil
}

// reversedList replaces a whole comparison when an edit inserts, removes or
// reorders operands of one whose operator was flipped, since positions no
// longer line up with the original.
func (m *mapper) reversedList(v *change.Vector) []*change.Vector {
	if v.Kind == change.Replace || v.Kind == change.Sub || v.Kind == change.Super || len(v.Path) < 2 {
		return nil
	}
	s := v.Path[1]
	if s.Kind != pyast.Compare || (s.Field != "ops" && s.Field != "comparators") {
		return nil
	}
	cmp := pyast.AsNode(at(v.Start, v.Path[2:]))
	if cmp == nil {
		return nil
	}
	reversed := false
	for _, op := range cmp.ListField("ops").Nodes() {
		reversed = reversed || op.Tags.Has(pyast.TagReversed)
	}
	if !reversed {
		return nil
	}
	if !m.replaceAbove(v, v.Path[2:]) {
		return nil
	}
	return m.inOriginal(false, v)
}

// rechain joins a < b and b < c back into a < b < c.
func rechain(n *pyast.Node) *pyast.Node {
	if !n.Is(pyast.BoolOp) || n.Op() != pyast.And {
		return n
	}
	parts := n.ListField("values").Nodes()
	if len(parts) < 2 {
		return n
	}
	var ops, comps []*pyast.Node
	for i, p := range parts {
		if !p.Is(pyast.Compare) || p.ListField("ops").Len() != 1 {
			return n
		}
		if i > 0 && !pyast.Equal(p.Child("left"), comps[len(comps)-1]) {
			return n
		}
		ops = append(ops, p.ListField("ops").Node(0))
		comps = append(comps, p.ListField("comparators").Node(0))
	}
	out := pyast.New(pyast.Compare, parts[0].Child("left"), pyast.NodeList(ops...), pyast.NodeList(comps...)).Inherit(n)
	out.Tags.Clear(pyast.TagMultiComp)
	return out
}
