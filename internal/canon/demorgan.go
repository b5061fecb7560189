package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

// deMorganize pushes every not down to the leaves of the expression it negates.
func (r *run) deMorganize(n *pyast.Node) *pyast.Node {
	return demorgan(n)
}

func toggleNegated(n *pyast.Node) {
	n.Tags.Toggle(pyast.TagNegated)
}

func demorgan(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	if !a.Is(pyast.UnaryOp) || a.Op() != pyast.Not {
		return mapChildren(a, demorgan)
	}
	oper := a.Child("operand")
	switch oper.Kind {
	case pyast.BoolOp:
		// not (x and y)  ==>  not x or not y
		oper.Set("op", astutil.Negate(oper.Child("op")))
		values := oper.ListField("values").Nodes()
		for i, v := range values {
			values[i] = demorgan(astutil.Negate(v))
		}
		oper.Set("values", pyast.NodeList(values...))
		toggleNegated(oper)
		return oper.Inherit(a)
	case pyast.Compare:
		if oper.ListField("ops").Len() != 1 {
			break
		}
		oper.Set("left", demorgan(oper.Child("left")))
		oper.Set("ops", pyast.NodeList(astutil.Negate(oper.ListField("ops").Node(0))))
		oper.Set("comparators", pyast.NodeList(demorgan(oper.ListField("comparators").Node(0))))
		toggleNegated(oper)
		return oper.Inherit(a)
	case pyast.UnaryOp:
		if oper.Op() != pyast.Not {
			break
		}
		inner := demorgan(oper.Child("operand"))
		oper.Set("operand", inner)
		if astutil.EventualType(inner) != pyast.TypeBool {
			return a
		}
		toggleNegated(inner)
		return inner
	case pyast.NameConstant:
		if _, ok := isBoolConst(oper); ok {
			return astutil.Negate(oper).Inherit(a)
		}
		if isNone(oper) {
			t := pyast.NewBool(true).Inherit(a)
			t.Tags.Set(pyast.TagNegated)
			return t
		}
	}
	return mapChildren(a, demorgan)
}

// isNegation reports whether a, negated and normalized, equals b.
func isNegation(a, b *pyast.Node) bool {
	return pyast.Equal(demorgan(pyast.NewUnaryOp(pyast.Not, pyast.Copy(a))), b)
}
