package astutil

import "hintgen/internal/pyast"

var negatedOps = map[pyast.Kind]pyast.Kind{
	pyast.And: pyast.Or, pyast.Or: pyast.And,
	pyast.Eq: pyast.NotEq, pyast.NotEq: pyast.Eq,
	pyast.Lt: pyast.GtE, pyast.GtE: pyast.Lt,
	pyast.Gt: pyast.LtE, pyast.LtE: pyast.Gt,
	pyast.Is: pyast.IsNot, pyast.IsNot: pyast.Is,
	pyast.In: pyast.NotIn, pyast.NotIn: pyast.In,
}

// Negate returns the logical negation of n. Operators map to their opposite,
// comparisons flip in place, and any other expression is wrapped in a not.
// The negated tag toggles on the result so repeated negation is traceable.
func Negate(n *pyast.Node) *pyast.Node {
	neg := !n.Tags.Has(pyast.TagNegated)
	if k, ok := negatedOps[n.Kind]; ok {
		out := pyast.Op(k).Inherit(n)
		out.Tags.SetTo(pyast.TagNegated, neg)
		return out
	}

	var out *pyast.Node
	switch {
	case n.Is(pyast.NameConstant):
		if b, ok := n.Field("value").(pyast.BoolVal); ok {
			n.Set("value", !b)
			n.Tags.SetTo(pyast.TagNegated, neg)
			return n
		}
	case n.Is(pyast.Compare):
		ops := n.ListField("ops")
		if ops.Len() == 1 {
			ops.Items[0] = Negate(ops.Node(0))
			n.Invalidate()
			n.Tags.SetTo(pyast.TagNegated, neg)
			return n
		}
		// a < b < c  ==>  a >= b or b >= c
		operands := append([]*pyast.Node{n.Child("left")}, n.ListField("comparators").Nodes()...)
		parts := make([]*pyast.Node, 0, ops.Len())
		for i, op := range ops.Nodes() {
			part := pyast.New(pyast.Compare, operands[i], pyast.NodeList(Negate(op)), pyast.NodeList(operands[i+1]))
			parts = append(parts, part.Tagged(pyast.TagMultiCompPart))
		}
		out = pyast.New(pyast.BoolOp, pyast.Op(pyast.Or).Tagged(pyast.TagMultiCompOp), pyast.NodeList(parts...))
		out.Tagged(pyast.TagMultiComp)
	case n.Is(pyast.UnaryOp) && n.Op() == pyast.Not && EventualType(n.Child("operand")) == pyast.TypeBool:
		return n.Child("operand")
	}
	if out == nil {
		out = pyast.NewUnaryOp(pyast.Not, n)
		out.Child("op").Tagged(pyast.TagAddedNot)
	}
	out.Inherit(n)
	out.Tags.SetTo(pyast.TagNegated, neg)
	return out
}

// NumNegate returns the arithmetic negation of an additive operator or a
// simple value. ok is false for operators that have no additive inverse.
func NumNegate(n *pyast.Node) (*pyast.Node, bool) {
	neg := !n.Tags.Has(pyast.TagNumNegated)
	var out *pyast.Node
	switch n.Kind {
	case pyast.Add:
		out = pyast.Op(pyast.Sub)
	case pyast.Sub:
		out = pyast.Op(pyast.Add)
	case pyast.Num, pyast.Name:
		out = pyast.NewUnaryOp(pyast.USub, n)
		out.Child("op").Tagged(pyast.TagAddedNeg)
	default:
		return nil, false
	}
	out.Inherit(n)
	out.Tags.SetTo(pyast.TagNumNegated, neg)
	return out, true
}
