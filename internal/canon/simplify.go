package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

// simplify desugars chained assignments, augmented assignments on immutable
// targets and chained comparisons.
func (r *run) simplify(mod *pyast.Node) *pyast.Node {
	r.simplifyBlocks(mod)
	return pyast.Rewrite(mod, splitCompare)
}

func (r *run) simplifyBlocks(n *pyast.Node) {
	eachBlock(n, r.simplifyStmts)
}

func (r *run) simplifyStmts(stmts []*pyast.Node) []*pyast.Node {
	out := make([]*pyast.Node, 0, len(stmts))
	for _, s := range stmts {
		r.simplifyBlocks(s)
		switch s.Kind {
		case pyast.Assign:
			out = append(out, splitAssign(s)...)
		case pyast.AugAssign:
			out = append(out, desugarAugAssign(s)...)
		default:
			out = append(out, s)
		}
	}
	return out
}

// splitAssign turns a = b = v into b = v; a = b, then spreads independent
// tuple assignments element by element.
func splitAssign(a *pyast.Node) []*pyast.Node {
	targets := a.ListField("targets").Nodes()
	if len(targets) == 0 {
		return []*pyast.Node{a}
	}
	lines := []*pyast.Node{a}
	if len(targets) > 1 {
		first := pyast.NewAssign(targets[len(targets)-1], a.Child("value"))
		first.ID = a.ID
		lines = []*pyast.Node{first}
		for i := len(targets) - 1; i > 0; i-- {
			line := pyast.NewAssign(targets[i-1], loaded(targets[i]))
			line.ID = a.ID
			lines = append(lines, line)
		}
	}

	var out []*pyast.Node
	for _, line := range lines {
		out = append(out, spreadTuple(line)...)
	}
	return out
}

func spreadTuple(line *pyast.Node) []*pyast.Node {
	t := line.ListField("targets").Node(0)
	val := line.Child("value")
	if !(t.Is(pyast.Tuple) || t.Is(pyast.List)) || !(val.Is(pyast.Tuple) || val.Is(pyast.List)) {
		return []*pyast.Node{line}
	}
	elts, vals := t.ListField("elts").Nodes(), val.ListField("elts").Nodes()
	if len(elts) != len(vals) || len(astutil.GatherVariables(val)) > 0 {
		return []*pyast.Node{line}
	}
	var out []*pyast.Node
	for j := range elts {
		part := pyast.NewAssign(elts[j], vals[j])
		part.ID = line.ID
		out = append(out, spreadTuple(part)...)
	}
	return out
}

// desugarAugAssign rewrites x += v as x = x + v when x holds an immutable value,
// where both forms behave the same.
func desugarAugAssign(a *pyast.Node) []*pyast.Node {
	target := a.Child("target")
	switch astutil.EventualType(target) {
	case pyast.TypeBool, pyast.TypeInt, pyast.TypeStr, pyast.TypeFloat:
	default:
		return []*pyast.Node{a}
	}
	read := loaded(target).Tagged(pyast.TagAugAssignVal)
	target.Tagged(pyast.TagAugAssignVal)
	bin := pyast.New(pyast.BinOp, read, a.Child("op"), a.Child("value")).Tagged(pyast.TagAugAssignBinOp)
	assign := pyast.NewAssign(target, bin)
	assign.ID = a.ID
	assign.Line, assign.Col = a.Line, a.Col
	return splitAssign(assign)
}

// splitCompare turns a < b < c into a < b and b < c. Middle operands are
// tagged so later passes can recognise them.
func splitCompare(n *pyast.Node) *pyast.Node {
	if !n.Is(pyast.Compare) || n.ListField("ops").Len() < 2 {
		return n
	}
	ops := n.ListField("ops").Nodes()
	comps := append([]*pyast.Node{n.Child("left")}, n.ListField("comparators").Nodes()...)
	parts := make([]*pyast.Node, 0, len(ops))
	for i, op := range ops {
		if i > 0 {
			pyast.Inspect(comps[i], func(x *pyast.Node) bool {
				x.Tagged(pyast.TagMultiCompMiddle)
				return true
			})
		}
		part := pyast.New(pyast.Compare, comps[i], pyast.NodeList(op), pyast.NodeList(pyast.Copy(comps[i+1])))
		parts = append(parts, part.Tagged(pyast.TagMultiCompPart))
	}
	and := pyast.Op(pyast.And).Tagged(pyast.TagMultiCompOp)
	out := pyast.New(pyast.BoolOp, and, pyast.NodeList(parts...)).Tagged(pyast.TagMultiComp)
	out.ID = n.ID
	out.Line, out.Col = n.Line, n.Col
	return out
}
