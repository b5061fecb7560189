package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

// cleanupEquals drops comparisons of boolean expressions against True and False.
func (r *run) cleanupEquals(n *pyast.Node) *pyast.Node {
	return cleanEquals(n)
}

func cleanEquals(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	switch {
	case a.Is(pyast.Call):
		a.Set("func", cleanEquals(a.Child("func")))
		args := a.ListField("args").Nodes()
		for i := range args {
			args[i] = cleanEquals(args[i])
		}
		a.Set("args", pyast.NodeList(args...))
		return a
	case a.Is(pyast.Compare) && a.ListField("ops").Len() == 1 && a.ListField("comparators").Len() == 1:
		op := a.ListField("ops").Node(0).Kind
		if op != pyast.Eq && op != pyast.NotEq {
			break
		}
		l := cleanEquals(a.Child("left"))
		rt := cleanEquals(a.ListField("comparators").Node(0))
		a.Set("left", l)
		a.Set("comparators", pyast.NodeList(rt))
		if _, ok := isBoolConst(l); ok {
			l, rt = rt, l
		}
		b, ok := isBoolConst(rt)
		if !ok || astutil.EventualType(l) != pyast.TypeBool {
			return a
		}
		if (op == pyast.Eq) == b {
			return l.Inherit(a)
		}
		return notOf(l).Inherit(a)
	}
	return mapChildren(a, cleanEquals)
}

// cleanupBoolOps removes a boolean operand that repeats its neighbour exactly.
func (r *run) cleanupBoolOps(n *pyast.Node) *pyast.Node {
	return cleanBoolOps(n)
}

func cleanBoolOps(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	if !a.Is(pyast.BoolOp) {
		return mapChildren(a, cleanBoolOps)
	}
	values := a.ListField("values").Nodes()
	allBool := true
	for i, v := range values {
		values[i] = cleanBoolOps(v)
		if astutil.EventualType(values[i]) != pyast.TypeBool || values[i].Tags.Has(pyast.TagMultiComp) {
			allBool = false
		}
	}
	a.Set("values", pyast.NodeList(values...))
	if !allBool {
		return a
	}
	for i := 0; i < len(values)-1; {
		cur, next := values[i], values[i+1]
		if cur.Is(pyast.BoolOp) && next.Is(pyast.BoolOp) && cur.Op() == next.Op() &&
			pyast.Equal(cur.ListField("values"), next.ListField("values")) {
			values = append(values[:i+1], values[i+2:]...)
			continue
		}
		i++
	}
	if len(values) == 1 {
		return values[0]
	}
	a.Set("values", pyast.NodeList(values...))
	return a
}

// cleanupRanges drops default range arguments: a zero start and a unit step.
func (r *run) cleanupRanges(n *pyast.Node) *pyast.Node {
	pyast.Inspect(n, func(x *pyast.Node) bool {
		if !pyast.IsCallTo(x, "range") {
			return true
		}
		args := x.ListField("args").Nodes()
		if len(args) == 3 && litIsNum(args[2], 1) {
			args = args[:2]
		}
		if len(args) == 2 && litIsNum(args[0], 0) {
			args = args[1:]
		}
		x.Set("args", pyast.NodeList(args...))
		return true
	})
	return n
}

func litIsNum(n *pyast.Node, want float64) bool {
	v, ok := pyast.NumValue(n)
	if !ok {
		return false
	}
	if _, isBool := v.(pyast.BoolVal); isBool {
		return false
	}
	return litIs(v, want)
}

// cleanupSlices drops default slice bounds.
func (r *run) cleanupSlices(n *pyast.Node) *pyast.Node {
	pyast.Inspect(n, func(x *pyast.Node) bool {
		if !x.Is(pyast.Subscript) || !x.Child("slice").Is(pyast.Slice) {
			return true
		}
		s := x.Child("slice")
		if lo := s.Child("lower"); lo != nil && litIsNum(lo, 0) {
			s.Set("lower", nil)
		}
		if up := s.Child("upper"); pyast.IsCallTo(up, "len") && up.ListField("args").Len() == 1 &&
			pyast.Equal(x.Child("value"), up.ListField("args").Node(0)) {
			s.Set("upper", nil)
		}
		if st := s.Child("step"); st != nil && litIsNum(st, 1) {
			s.Set("step", nil)
		}
		x.Invalidate()
		return true
	})
	return n
}

// cleanupTypes drops casts that cannot change the value's type.
func (r *run) cleanupTypes(n *pyast.Node) *pyast.Node {
	return cleanTypes(n)
}

// castArg returns the single argument of a keyword-free call to fn.
func castArg(n *pyast.Node, fn string) *pyast.Node {
	if !pyast.IsCallTo(n, fn) || n.ListField("args").Len() != 1 || n.ListField("keywords").Len() > 0 {
		return nil
	}
	return n.ListField("args").Node(0)
}

var castTypes = map[string]pyast.Type{
	"float": pyast.TypeFloat, "int": pyast.TypeInt, "bool": pyast.TypeBool, "str": pyast.TypeStr,
}

func cleanTypes(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	switch {
	case a.Is(pyast.BinOp):
		l, rt := cleanTypes(a.Child("left")), cleanTypes(a.Child("right"))
		a.Set("left", l)
		a.Set("right", rt)
		// ints widen to floats on their own
		if astutil.EventualType(l) == pyast.TypeFloat && astutil.EventualType(rt) == pyast.TypeFloat {
			if x := castArg(rt, "float"); x != nil && isNumber(astutil.EventualType(x)) {
				a.Set("right", x)
			} else if x := castArg(l, "float"); x != nil && isNumber(astutil.EventualType(x)) {
				a.Set("left", x)
			}
		}
		return a
	case a.Is(pyast.Call) && a.Child("func").Is(pyast.Name) &&
		a.ListField("args").Len() == 1 && a.ListField("keywords").Len() == 0:
		arg := cleanTypes(a.ListField("args").Node(0))
		a.Set("args", pyast.NodeList(arg))
		if t, ok := castTypes[pyast.NameID(a.Child("func"))]; ok && astutil.EventualType(arg) == t {
			return arg
		}
		return a
	}
	return mapChildren(a, cleanTypes)
}

// cleanupNegations pushes unary minus outwards and folds double negatives.
func (r *run) cleanupNegations(n *pyast.Node) *pyast.Node {
	return cleanNeg(n)
}

func isNegative(n *pyast.Node) bool {
	if n.Is(pyast.UnaryOp) && n.Op() == pyast.USub {
		return true
	}
	switch v := n.Field("n").(type) {
	case pyast.IntVal:
		return n.Is(pyast.Num) && v < 0
	case pyast.FloatVal:
		return n.Is(pyast.Num) && v < 0
	}
	return false
}

func turnPositive(n *pyast.Node) *pyast.Node {
	if n.Is(pyast.UnaryOp) {
		return n.Child("operand")
	}
	switch v := n.Field("n").(type) {
	case pyast.IntVal:
		n.Set("n", -v)
	case pyast.FloatVal:
		n.Set("n", -v)
	}
	return n
}

// swapOp replaces the operator of a with k, keeping the operator's identity.
func swapOp(a *pyast.Node, k pyast.Kind) {
	op := pyast.Op(k)
	op.ID = a.Child("op").ID
	a.Set("op", op.Tagged(pyast.TagNumNegated))
}

func neg(x *pyast.Node) *pyast.Node {
	op := pyast.Op(pyast.USub).Tagged(pyast.TagAddedOtherOp)
	return pyast.New(pyast.UnaryOp, op, x).Tagged(pyast.TagAddedOther)
}

func cleanNeg(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	switch {
	case a.Is(pyast.BinOp):
		return cleanNegBinOp(a)
	case a.Is(pyast.UnaryOp):
		a.Set("operand", cleanNeg(a.Child("operand")))
		x := a.Child("operand")
		if a.Op() != pyast.USub || !x.Is(pyast.BinOp) {
			return a
		}
		switch x.Op() {
		case pyast.Add:
			// -(x + y)  ==>  -x - y
			x.Set("left", cleanNeg(neg(x.Child("left"))))
			swapOp(x, pyast.Sub)
			return x.Inherit(a)
		case pyast.Sub:
			if astutil.CouldCrash(x.Child("left")) && astutil.CouldCrash(x.Child("right")) {
				x.Set("left", cleanNeg(neg(x.Child("left"))))
				swapOp(x, pyast.Add)
			} else {
				l, rt := x.Child("left"), x.Child("right")
				x.Set("left", rt)
				x.Set("right", l)
			}
			return x.Inherit(a)
		}
		return a
	case pyast.IsCallTo(a, "abs") && a.ListField("args").Len() == 1:
		arg := cleanNeg(a.ListField("args").Node(0))
		switch {
		case arg.Is(pyast.UnaryOp) && arg.Op() == pyast.USub:
			arg = arg.Child("operand")
		case arg.Is(pyast.BinOp) && arg.Op() == pyast.Sub:
			l, rt := arg.Child("left"), arg.Child("right")
			if !(astutil.CouldCrash(l) && astutil.CouldCrash(rt)) && pyast.CompareValues(l, rt, false) > 0 {
				arg.Set("left", rt)
				arg.Set("right", l)
			}
		}
		a.Set("args", pyast.NodeList(arg))
		return a
	}
	return mapChildren(a, cleanNeg)
}

func cleanNegBinOp(a *pyast.Node) *pyast.Node {
	a.Set("left", cleanNeg(a.Child("left")))
	a.Set("right", cleanNeg(a.Child("right")))
	l, rt := a.Child("left"), a.Child("right")
	switch a.Op() {
	case pyast.Add:
		switch {
		case isNegative(rt):
			// x + (-y)  ==>  x - y
			a.Set("right", turnPositive(rt))
			swapOp(a, pyast.Sub)
		case isNegative(l):
			if astutil.CouldCrash(l) && astutil.CouldCrash(rt) {
				return a
			}
			a.Set("left", rt)
			a.Set("right", turnPositive(l))
			swapOp(a, pyast.Sub)
		}
	case pyast.Sub:
		switch {
		case isNegative(rt):
			a.Set("right", turnPositive(rt))
			swapOp(a, pyast.Add)
		case rt.Is(pyast.BinOp) && rt.Op() == pyast.Add:
			// x - (y + z)  ==>  x + (-y - z)
			rt.Set("left", cleanNeg(neg(rt.Child("left"))))
			swapOp(rt, pyast.Sub)
			swapOp(a, pyast.Add)
		case rt.Is(pyast.BinOp) && rt.Op() == pyast.Sub:
			if astutil.CouldCrash(rt.Child("left")) && astutil.CouldCrash(rt.Child("right")) {
				rt.Set("left", cleanNeg(neg(rt.Child("left"))))
				swapOp(rt, pyast.Add)
			} else {
				y, z := rt.Child("left"), rt.Child("right")
				rt.Set("left", z)
				rt.Set("right", y)
			}
			swapOp(a, pyast.Add)
		}
	case pyast.Mult:
		switch {
		case isNegative(l) && isNegative(rt):
			a.Set("left", turnPositive(l))
			a.Set("right", turnPositive(rt))
		case isNegative(l):
			if isNumber(astutil.EventualType(rt)) {
				a.Set("left", turnPositive(l))
				return cleanNeg(neg(a))
			}
		case isNegative(rt):
			if isNumber(astutil.EventualType(l)) {
				a.Set("right", turnPositive(rt))
				return cleanNeg(neg(a))
			}
		}
	case pyast.Div, pyast.FloorDiv:
		if isNegative(l) && isNegative(rt) {
			a.Set("left", turnPositive(l))
			a.Set("right", turnPositive(rt))
		}
	}
	return a
}
