package canon

import (
	"sort"

	"hintgen/internal/astutil"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
)

// orderCommutative sorts the operands of commutative operations and the
// branches of if chains whose tests are disjoint.
func (r *run) orderCommutative(n *pyast.Node) *pyast.Node {
	return orderer{cmp: diag.Comparator(r.rep)}.order(n)
}

// orderer sorts with a comparator that reports unranked kinds.
type orderer struct {
	cmp pyast.Comparator
}

func (o orderer) less(a, b *pyast.Node) bool { return o.cmp.Compare(a, b, false) < 0 }

func (o orderer) greater(a, b *pyast.Node) bool { return o.cmp.Compare(a, b, false) > 0 }

// sameCrashes reports whether a and b may raise on exactly the same subexpressions.
func (o orderer) sameCrashes(a, b *pyast.Node) bool {
	l1, l2 := astutil.CrashesOn(a), astutil.CrashesOn(b)
	sort.SliceStable(l1, func(i, j int) bool { return o.less(l1[i], l1[j]) })
	sort.SliceStable(l2, func(i, j int) bool { return o.less(l2[i], l2[j]) })
	return pyast.Equal(pyast.NodeList(l1...), pyast.NodeList(l2...))
}

// swappable reports whether two adjacent conditions may trade places without
// changing which error is raised first.
func (o orderer) swappable(a, b *pyast.Node) bool {
	ca, cb := astutil.CouldCrash(a), astutil.CouldCrash(b)
	if !ca && !cb {
		return true
	}
	return ca && cb && o.sameCrashes(a, b)
}

type branch struct {
	node *pyast.Node
	test *pyast.Node
	body []*pyast.Node
}

func (o orderer) order(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	switch a.Kind {
	case pyast.If:
		return o.orderIf(a)
	case pyast.BoolOp:
		return o.orderBoolOp(a)
	case pyast.BinOp:
		return o.orderBinOp(a)
	case pyast.Dict:
		return o.orderDict(a)
	case pyast.Compare:
		return o.orderCompare(a)
	case pyast.Call:
		if id := pyast.NameID(a.Child("func")); id == "min" || id == "max" {
			args := a.ListField("args").Nodes()
			crashable := false
			for i := range args {
				args[i] = o.order(args[i])
				if astutil.CouldCrash(args[i]) || astutil.ContainsTokenStep(args[i]) {
					crashable = true
				}
			}
			if !crashable {
				sort.SliceStable(args, func(i, j int) bool { return o.less(args[i], args[j]) })
			}
			a.Set("args", pyast.NodeList(args...))
			return a
		}
	}
	return mapChildren(a, o.order)
}

func (o orderer) orderIf(a *pyast.Node) *pyast.Node {
	mapChildren(a, o.order)
	if a.Orelse().Len() != 0 && a.Body().Len() > a.Orelse().Len() {
		nt := notOf(a.Child("test")).Inherit(a.Child("test"))
		nt.Tags.Set(pyast.TagNegated)
		a.Set("test", demorgan(nt))
		body, orelse := a.Body(), a.Orelse()
		a.Set("body", orelse)
		a.Set("orelse", body)
	}

	branches := []branch{{a, a.Child("test"), a.Body().Nodes()}}
	orelse := a.Orelse().Nodes()
	for len(orelse) == 1 && orelse[0].Is(pyast.If) {
		b := orelse[0]
		branches = append(branches, branch{b, b.Child("test"), b.Body().Nodes()})
		orelse = b.Orelse().Nodes()
	}
	if len(branches) == 1 {
		return a
	}

	for sorted := false; !sorted; {
		sorted = true
		for i := 0; i < len(branches)-1; i++ {
			x, y := branches[i].test, branches[i+1].test
			if areDisjoint(x, y) && o.greater(x, y) && o.swappable(x, y) {
				branches[i], branches[i+1] = branches[i+1], branches[i]
				sorted = false
			}
		}
	}

	last := branches[len(branches)-1]
	var chain []*pyast.Node
	if len(orelse) == 0 && isNegation(last.test, branches[len(branches)-2].test) {
		chain = last.body
	} else {
		chain = []*pyast.Node{rebuildBranch(last, orelse)}
	}
	for i := len(branches) - 2; i >= 0; i-- {
		chain = []*pyast.Node{rebuildBranch(branches[i], chain)}
	}
	return chain[0]
}

func rebuildBranch(b branch, orelse []*pyast.Node) *pyast.Node {
	b.node.Set("test", b.test)
	setBody(b.node, "body", b.body)
	setBody(b.node, "orelse", orelse)
	return b.node
}

func (o orderer) orderBoolOp(a *pyast.Node) *pyast.Node {
	values := a.ListField("values").Nodes()
	canSort := true
	for i := range values {
		values[i] = o.order(values[i])
		if astutil.CouldCrash(values[i]) || astutil.EventualType(values[i]) != pyast.TypeBool ||
			astutil.ContainsTokenStep(values[i]) {
			canSort = false
		}
	}
	if canSort {
		sort.SliceStable(values, func(i, j int) bool { return o.less(values[i], values[j]) })
	} else {
		for sorted := false; !sorted; {
			sorted = true
			for i := 0; i < len(values)-1; i++ {
				x, y := values[i], values[i+1]
				if o.greater(x, y) && astutil.EventualType(x) == pyast.TypeBool &&
					astutil.EventualType(y) == pyast.TypeBool && o.swappable(x, y) {
					values[i], values[i+1] = y, x
					sorted = false
				}
			}
		}
	}
	a.Set("values", pyast.NodeList(values...))
	return a
}

type operand struct {
	node *pyast.Node
	op   *pyast.Node
}

func (o orderer) orderBinOp(a *pyast.Node) *pyast.Node {
	l, rt := o.order(a.Child("left")), o.order(a.Child("right"))
	a.Set("left", l)
	a.Set("right", rt)
	if astutil.ContainsTokenStep(l) || astutil.ContainsTokenStep(rt) {
		return a
	}
	top := a.Op()
	numeric := func(t pyast.Type) bool {
		return t == pyast.TypeInt || t == pyast.TypeFloat || t == pyast.TypeBool
	}
	switch {
	case top == pyast.Mult || top == pyast.BitOr || top == pyast.BitXor || top == pyast.BitAnd ||
		(top == pyast.Add && (numeric(astutil.EventualType(l)) || numeric(astutil.EventualType(rt)))):
		ops := []operand{{l, a.Child("op")}, {rt, nil}}
		for i := 0; i < len(ops); {
			x := ops[i]
			if x.node.Is(pyast.BinOp) && x.node.Op() == top {
				ops = append(ops[:i], append([]operand{
					{x.node.Child("left"), x.node.Child("op")},
					{x.node.Child("right"), x.op},
				}, ops[i+1:]...)...)
				continue
			}
			i++
		}
		sort.SliceStable(ops, func(i, j int) bool { return o.less(ops[i].node, ops[j].node) })
		for i := 0; i < len(ops)-1; i++ {
			if ops[i].op == nil {
				ops[i].op, ops[i+1].op = ops[i+1].op, nil
			}
		}
		left := ops[0].node
		for i := 1; i < len(ops); i++ {
			left = pyast.New(pyast.BinOp, left, ops[i-1].op, ops[i].node).Tagged(pyast.TagOrderedBinOp)
		}
		return left.Inherit(a)
	case top == pyast.Add && rt.Is(pyast.BinOp) && rt.Op() == pyast.Add:
		// possibly concatenation: only lean the chain to the left
		inner := pyast.New(pyast.BinOp, l, rt.Child("op"), rt.Child("left"))
		inner.ID = rt.ID
		a.Set("left", o.order(inner))
		a.Set("right", rt.Child("right"))
	}
	return a
}

func (o orderer) orderDict(a *pyast.Node) *pyast.Node {
	keys := a.ListField("keys")
	values := a.ListField("values").Nodes()
	if keys.Len() != len(values) {
		return mapChildren(a, o.order)
	}
	type pair struct{ k, v *pyast.Node }
	pairs := make([]pair, len(values))
	for i := range values {
		k := keys.Node(i)
		if k == nil {
			// ** unpacking keeps its place
			return mapChildren(a, o.order)
		}
		pairs[i] = pair{o.order(k), o.order(values[i])}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return o.less(pairs[i].k, pairs[j].k) })
	ks, vs := make([]*pyast.Node, len(pairs)), make([]*pyast.Node, len(pairs))
	for i, p := range pairs {
		ks[i], vs[i] = p.k, p.v
	}
	a.Set("keys", pyast.NodeList(ks...))
	a.Set("values", pyast.NodeList(vs...))
	return a
}

// reverse turns > into < and >= into <=, toggling the reversed tag.
func reverse(op *pyast.Node) *pyast.Node {
	var k pyast.Kind
	switch op.Kind {
	case pyast.Gt:
		k = pyast.Lt
	case pyast.GtE:
		k = pyast.LtE
	default:
		return op
	}
	out := pyast.Op(k).Inherit(op)
	out.Tags.SetTo(pyast.TagReversed, !op.Tags.Has(pyast.TagReversed))
	return out
}

func (o orderer) orderCompare(a *pyast.Node) *pyast.Node {
	if a.ListField("ops").Len() != 1 || a.ListField("comparators").Len() != 1 {
		return mapChildren(a, o.order)
	}
	l, rt := o.order(a.Child("left")), o.order(a.ListField("comparators").Node(0))
	a.Set("left", l)
	a.Set("comparators", pyast.NodeList(rt))
	if astutil.ContainsTokenStep(l) || astutil.ContainsTokenStep(rt) {
		return a
	}
	op := a.ListField("ops").Node(0)
	switch op.Kind {
	case pyast.Eq, pyast.NotEq:
		if o.greater(l, rt) {
			a.Set("left", rt)
			a.Set("comparators", pyast.NodeList(l))
		}
	case pyast.Gt, pyast.GtE:
		a.Set("ops", pyast.NodeList(reverse(op)))
		a.Set("left", rt)
		a.Set("comparators", pyast.NodeList(l))
	case pyast.In, pyast.NotIn:
		if !rt.Is(pyast.List) {
			break
		}
		elts := rt.ListField("elts").Nodes()
		for _, e := range elts {
			if astutil.CouldCrash(e) {
				return a
			}
		}
		sort.SliceStable(elts, func(i, j int) bool { return o.less(elts[i], elts[j]) })
		out := elts[:0]
		for i, e := range elts {
			if i > 0 && pyast.Equal(e, out[len(out)-1]) {
				continue
			}
			out = append(out, e)
		}
		rt.Set("elts", pyast.NodeList(out...))
	}
	return a
}

// areDisjoint reports conditions that can never hold at the same time.
func areDisjoint(a, b *pyast.Node) bool {
	switch {
	case a.Is(pyast.Compare) && b.Is(pyast.Compare):
		if a.ListField("ops").Len() != 1 || b.ListField("ops").Len() != 1 {
			return false
		}
		aop, bop := a.ListField("ops").Node(0).Kind, b.ListField("ops").Node(0).Kind
		al, ar := a.Child("left"), a.ListField("comparators").Node(0)
		bl, br := b.Child("left"), b.ListField("comparators").Node(0)
		lit := func(n *pyast.Node) bool { return n.Is(pyast.Num) || n.Is(pyast.Str) }
		ll, lr := pyast.Equal(al, bl), pyast.Equal(al, br)
		rl, rr := pyast.Equal(ar, bl), pyast.Equal(ar, br)
		same := (ll && rr) || (lr && rl)
		switch {
		case (aop == pyast.Eq && bop == pyast.NotEq) || (aop == pyast.NotEq && bop == pyast.Eq):
			return same
		case aop == pyast.Eq && bop == pyast.Eq:
			if same {
				return false
			}
			return (ll && lit(ar) && lit(br)) || (lr && lit(ar) && lit(bl)) ||
				(rl && lit(al) && lit(br)) || (rr && lit(al) && lit(bl))
		case complementOps[[2]pyast.Kind{aop, bop}]:
			return ll && rr
		case mirroredOps[[2]pyast.Kind{aop, bop}]:
			return lr && rl
		}
	case a.Is(pyast.BoolOp) && b.Is(pyast.BoolOp):
		return false
	case a.Is(pyast.UnaryOp) && a.Op() == pyast.Not:
		return pyast.Equal(a.Child("operand"), b)
	case b.Is(pyast.UnaryOp) && b.Op() == pyast.Not:
		return pyast.Equal(b.Child("operand"), a)
	}
	return false
}

var complementOps = map[[2]pyast.Kind]bool{
	{pyast.Lt, pyast.GtE}: true, {pyast.GtE, pyast.Lt}: true,
	{pyast.Gt, pyast.LtE}: true, {pyast.LtE, pyast.Gt}: true,
	{pyast.Is, pyast.IsNot}: true, {pyast.IsNot, pyast.Is}: true,
	{pyast.In, pyast.NotIn}: true, {pyast.NotIn, pyast.In}: true,
}

// x < y excludes y <= x
var mirroredOps = map[[2]pyast.Kind]bool{
	{pyast.Lt, pyast.LtE}: true, {pyast.LtE, pyast.Lt}: true,
	{pyast.Gt, pyast.GtE}: true, {pyast.GtE, pyast.Gt}: true,
}
