package individualize

import (
	"slices"

	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
)

// conditional handles edits of a test the canonicalizer assembled from several
// if statements. The statements are rebuilt as one if with the new test.
func (m *mapper) conditional(v *change.Vector) []*change.Vector {
	if o := pyast.AsNode(v.Old); o != nil && o.Tags.Has(pyast.TagCombinedConditional) &&
		(v.Kind == change.Replace || v.Kind == change.Sub || v.Kind == change.Super) {
		return m.splitConditional(v, o)
	}

	// edits of the joining operator or of the operand list replace the whole test
	var p pyast.Path
	switch {
	case len(v.Path) >= 2 && pyast.AsNode(v.Old) != nil && pyast.AsNode(v.Old).Tags.Has(pyast.TagCombinedConditionalOp):
		p = v.Path[1:]
	case len(v.Path) >= 3 && v.Kind != change.Replace && v.Path[1].Field == "values":
		p = v.Path[2:]
	default:
		return nil
	}
	owner := pyast.AsNode(at(v.Start, p))
	if owner == nil || !owner.Tags.Has(pyast.TagCombinedConditional) {
		return nil
	}
	after, err := v.Apply()
	if err != nil {
		return nil
	}
	out := &change.Vector{
		Kind:  change.Replace,
		Path:  p.Clone(),
		Old:   pyast.Copy(owner),
		New:   pyast.CopyValue(at(after, p)),
		Start: v.Start,
	}
	m.restoreNames(out)
	return []*change.Vector{out}
}

// leafTests lists the original tests a combined test was built from.
func leafTests(n *pyast.Node) []*pyast.Node {
	if !n.Tags.Has(pyast.TagCombinedConditional) {
		return []*pyast.Node{n}
	}
	var out []*pyast.Node
	for _, c := range n.ListField("values").Nodes() {
		out = append(out, leafTests(c)...)
	}
	return out
}

func (m *mapper) splitConditional(v *change.Vector, combined *pyast.Node) []*change.Vector {
	var owners []*pyast.Node
	for _, t := range leafTests(combined) {
		p, ok := pyast.PathTo(m.orig, t.ID)
		if t.ID == 0 || !ok || len(p) < 2 || p[0].Field != "test" {
			m.report(diag.IndivMissingID, t, "combined test part has no original if")
			return nil
		}
		owner := pyast.AsNode(at(m.orig, p[1:]))
		if !owner.Is(pyast.If) {
			return nil
		}
		owners = append(owners, owner)
	}

	ids := make([]pyast.ID, len(owners))
	for i, o := range owners {
		ids[i] = o.ID
	}
	absorbed := map[pyast.ID]bool{owners[0].ID: true}
	rebuilt := pyast.Copy(owners[0])
	rebuilt.Set("test", pyast.CopyValue(v.New))
	for changed := true; changed; {
		changed = false
		for _, f := range []string{"body", "orelse"} {
			l := rebuilt.ListField(f)
			if l.Len() != 1 || !l.Node(0).Is(pyast.If) || !slices.Contains(ids, l.Node(0).ID) {
				continue
			}
			inner := l.Node(0)
			absorbed[inner.ID] = true
			rebuilt.Set(f, inner.ListField(f))
			changed = true
		}
	}
	m.names.restore(rebuilt)

	outerPath, _ := pyast.PathTo(m.orig, owners[0].ID)
	out := []*change.Vector{{Kind: change.Replace, Path: outerPath, Old: pyast.Copy(owners[0]), New: rebuilt}}
	for _, o := range owners[1:] {
		if absorbed[o.ID] {
			continue
		}
		p, _ := pyast.PathTo(m.orig, o.ID)
		if len(p) == 0 || !p[0].IsIndex() {
			continue
		}
		out = append(out, &change.Vector{Kind: change.Delete, Path: p, Old: pyast.Copy(o)})
	}
	return m.inOriginal(true, out...)
}
