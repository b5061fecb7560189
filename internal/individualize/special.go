package individualize

import (
	"hintgen/internal/astutil"
	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/pyast"
)

func at(root pyast.Value, p pyast.Path) pyast.Value {
	v, _ := p.Resolve(root)
	return v
}

var primitiveField = map[pyast.Kind]string{
	pyast.Num:          "n",
	pyast.Str:          "s",
	pyast.Bytes:        "s",
	pyast.Name:         "id",
	pyast.NameConstant: "value",
}

// liftPrimitive turns an edit of a literal's payload, or of an absent optional
// field, into a replacement of the node holding it. Only nodes carry IDs.
func (m *mapper) liftPrimitive(v *change.Vector) {
	if v.Kind != change.Replace || len(v.Path) == 0 || v.Path[0].IsIndex() {
		return
	}
	s := v.Path[0]
	if f, ok := primitiveField[s.Kind]; !(ok && f == s.Field) && !pyast.IsNil(v.Old) {
		return
	}
	owner := pyast.AsNode(at(v.Start, v.Path[1:]))
	if owner == nil {
		return
	}
	nw := pyast.Copy(owner)
	nw.Set(s.Field, pyast.CopyValue(v.New))
	v.Path = v.Path[1:]
	v.Old, v.New = pyast.Copy(owner), nw
}

// undoPropagation moves an edit inside a propagated copy up to the whole copy,
// which stands for a variable read in the original.
func (m *mapper) undoPropagation(v *change.Vector) *change.Vector {
	o := pyast.AsNode(v.Old)
	if o == nil || !o.Tags.Has(pyast.TagPropagatedVariable) {
		return v
	}
	after, err := v.Apply()
	if err != nil {
		return v
	}
	for j := 0; j < len(v.Path); j++ {
		p := v.Path[j:]
		spot := pyast.AsNode(at(v.Start, p))
		if spot == nil {
			continue
		}
		if spot.Tags.Has(pyast.TagLoadedVariable) {
			out := &change.Vector{
				Kind:  change.Replace,
				Path:  p.Clone(),
				Old:   pyast.Copy(spot),
				New:   pyast.CopyValue(at(after, p)),
				Start: v.Start,
			}
			m.restoreNames(out)
			return out
		}
		if !spot.Tags.Has(pyast.TagPropagatedVariable) {
			break
		}
	}
	m.report(diag.IndivUnsupported, o, "propagated value without a loaded variable above it")
	return v
}

// undoAugAssign replaces a desugared x = x + v whose original was x += v as a
// whole statement, written back in augmented form when it still fits.
func (m *mapper) undoAugAssign(v *change.Vector) *change.Vector {
	tagged := false
	pyast.InspectValue(v.Old, func(n *pyast.Node) bool {
		tagged = tagged || n.Tags.Has(pyast.TagAugAssignVal) || n.Tags.Has(pyast.TagAugAssignBinOp)
		return !tagged
	})
	if !tagged {
		return v
	}
	for j := 0; j <= len(v.Path); j++ {
		p := v.Path[j:]
		spot := pyast.AsNode(at(v.Start, p))
		if !spot.Is(pyast.Assign) {
			continue
		}
		if spot.ID == 0 || !pyast.FindByID(m.orig, spot.ID).Is(pyast.AugAssign) {
			return v
		}
		after, err := v.Apply()
		if err != nil {
			return v
		}
		out := &change.Vector{
			Kind:  change.Replace,
			Path:  p.Clone(),
			Old:   pyast.Copy(spot),
			New:   resugar(pyast.Copy(pyast.AsNode(at(after, p)))),
			Start: v.Start,
		}
		m.restoreNames(out)
		return out
	}
	return v
}

func resugar(n *pyast.Node) *pyast.Node {
	if !n.Is(pyast.Assign) || n.ListField("targets").Len() != 1 {
		return n
	}
	target, val := n.ListField("targets").Node(0), n.Child("value")
	if !val.Is(pyast.BinOp) || !pyast.Equal(val.Child("left"), target) {
		return n
	}
	return pyast.New(pyast.AugAssign, target, val.Child("op"), val.Child("right")).Inherit(n)
}

// fillSub puts the original spelling of the wrapped expression inside a Sub's new
// value, so the hint shows what the student wrote wrapped in something else.
func (m *mapper) fillSub(v *change.Vector) {
	old, nw := pyast.AsNode(v.Old), pyast.AsNode(v.New)
	if old == nil || nw == nil {
		return
	}
	var repl *pyast.Node
	if o := pyast.FindByID(m.orig, old.ID); old.ID != 0 && o != nil {
		repl = pyast.Copy(o)
	} else {
		u, _ := m.undo(old, nil)
		repl = pyast.AsNode(u)
	}
	if repl == nil {
		return
	}
	if out, ok := replaceFirst(nw, old, repl); ok {
		v.Old, v.New = pyast.Copy(repl), out
	}
}

// replaceFirst swaps the first subtree of root equal to target for with.
func replaceFirst(root, target, with *pyast.Node) (*pyast.Node, bool) {
	if pyast.Equal(root, target) {
		return with, true
	}
	for i := 0; i < root.NumFields(); i++ {
		switch x := root.At(i).(type) {
		case *pyast.Node:
			if x == nil {
				continue
			}
			if out, ok := replaceFirst(x, target, with); ok {
				root.SetAt(i, out)
				return root, true
			}
		case *pyast.ListVal:
			if x == nil {
				continue
			}
			for j, it := range x.Items {
				c, isNode := it.(*pyast.Node)
				if !isNode || c == nil {
					continue
				}
				if out, ok := replaceFirst(c, target, with); ok {
					x.Items[j] = out
					return root, true
				}
			}
		}
	}
	return root, false
}

var unreversed = map[pyast.Kind]pyast.Kind{
	pyast.Lt: pyast.Gt, pyast.Gt: pyast.Lt,
	pyast.LtE: pyast.GtE, pyast.GtE: pyast.LtE,
}

func unreverse(n *pyast.Node) *pyast.Node {
	if n == nil {
		return nil
	}
	if k, ok := unreversed[n.Kind]; ok {
		out := pyast.Op(k).Inherit(n)
		out.Tags.Clear(pyast.TagReversed)
		return out
	}
	return n
}

// undo reverts the operator rewrites ordering and negation made on old, and
// applies the same to its replacement. Both are consumed.
func (m *mapper) undo(old, nw pyast.Value) (pyast.Value, pyast.Value) {
	o := pyast.AsNode(old)
	if o == nil {
		return old, nw
	}
	n := pyast.AsNode(nw)
	if o.Tags.Has(pyast.TagReversed) {
		o, n = unreverse(o), unreverse(n)
	}
	if o.Tags.Has(pyast.TagNegated) {
		o = astutil.Negate(o)
		if n != nil {
			n = astutil.Negate(n)
		}
		if isNot(o) && isNot(n) {
			o, n = o.Child("operand"), n.Child("operand")
		}
	}
	if n == nil {
		return o, nw
	}
	return o, n
}

func isNot(n *pyast.Node) bool {
	return n.Is(pyast.UnaryOp) && n.Op() == pyast.Not
}

// loadedVariable turns an edit of a propagated value back into an edit of the
// variable read it replaced. The replacement keeps the read's ID so later edits
// of the same copy find it again.
func (m *mapper) loadedVariable(v *change.Vector) {
	o := pyast.AsNode(v.Old)
	if o == nil || o.Meta.VarGlobalID == 0 {
		return
	}
	id := o.Meta.VarGlobalID
	read := pyast.FindByID(m.orig, id)
	if read == nil {
		m.report(diag.IndivMissingID, o, "variable read %d is gone from the original", id)
		return
	}
	v.Old = pyast.Copy(read)
	if n := pyast.AsNode(v.New); n != nil {
		n.ID = read.ID
		n.Tags.Clear(pyast.TagLoadedVariable)
		n.Meta.VarGlobalID = 0
	}
}

// rediff splits a replacement between nodes of the same shape into the edits
// inside them. ok is false when the replacement should stay whole.
func (m *mapper) rediff(v *change.Vector) ([]*change.Vector, bool) {
	if v.Kind != change.Replace {
		return nil, false
	}
	o, n := pyast.AsNode(v.Old), pyast.AsNode(v.New)
	if o == nil || n == nil || o.Kind != n.Kind {
		return nil, false
	}
	switch o.Kind {
	case pyast.NameConstant, pyast.Bytes, pyast.Str, pyast.Num, pyast.Name, pyast.Slice:
		return nil, false
	case pyast.Return:
		if r := o.Child("value"); r == nil || r.Is(pyast.Name) || n.Child("value") == nil {
			return nil, false
		}
	case pyast.Compare:
		if o.ListField("ops").Len() != n.ListField("ops").Len() {
			return nil, false
		}
	}
	subs := differ.Diff(o, n, differ.Options{})
	if len(subs) > 1 && o.Is(pyast.If) {
		return nil, false
	}
	for _, s := range subs {
		// payload and absent-field edits are located through their owner
		if s.Kind == change.Replace && (pyast.AsNode(s.Old) == nil || pyast.AsNode(s.New) == nil) {
			if len(s.Path) < 2 || s.Path[0].IsIndex() {
				return nil, false
			}
			owner := pyast.AsNode(at(o, s.Path[1:]))
			if owner == nil {
				return nil, false
			}
			nw := pyast.Copy(owner)
			nw.Set(s.Path[0].Field, pyast.CopyValue(s.New))
			s.Path, s.Old, s.New = s.Path[1:], owner, nw
		}
		s.Path = append(s.Path.Clone(), v.Path...)
	}
	seq, _, err := change.Sequence(v.Start, subs)
	if err != nil {
		return nil, false
	}
	return seq, true
}

// dropNoOps removes edits that leave the tree as it was.
func (m *mapper) dropNoOps(vs []*change.Vector) []*change.Vector {
	out := vs[:0]
	for _, v := range vs {
		noop := false
		switch v.Kind {
		case change.Replace, change.Sub, change.Super:
			noop = pyast.Equal(v.Old, v.New)
		case change.Move, change.Swap:
			noop = !v.IsCrossSwap() && v.From == v.To
		}
		if noop {
			m.report(diag.IndivCanceled, v.Old, "%s at %s changes nothing", v.Kind, v.Path)
			continue
		}
		out = append(out, v)
	}
	return out
}
