package canon

import (
	"math"

	"hintgen/internal/astutil"
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

func (r *run) constantFolding(mod *pyast.Node) *pyast.Node {
	return r.foldKeep(mod)
}

// foldKeep folds x and carries x's identity over to a freshly built result.
func (r *run) foldKeep(x *pyast.Node) *pyast.Node {
	if x == nil {
		return nil
	}
	out := r.fold(x)
	if out != x && (out.ID == 0 || out.ID == x.ID) {
		out.Inherit(x)
	}
	return out
}

// lit returns the literal payload of a folded operand. None and ~placeholder~
// strings do not count as literals.
func lit(n *pyast.Node) (pyast.Value, bool) {
	if n.Is(pyast.Str) && names.IsTokenStep(n.Ident("s")) {
		return nil, false
	}
	v, ok := pyast.ConstValue(n)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func litIs(v pyast.Value, want float64) bool {
	switch x := v.(type) {
	case pyast.IntVal:
		return float64(x) == want
	case pyast.FloatVal:
		return float64(x) == want
	case pyast.BoolVal:
		return (want == 1 && bool(x)) || (want == 0 && !bool(x))
	}
	return false
}

func isNumber(t pyast.Type) bool { return t == pyast.TypeInt || t == pyast.TypeFloat }

// untidy rejects float results with a long decimal tail.
func untidy(v pyast.Value) bool {
	f, ok := v.(pyast.FloatVal)
	return ok && math.Mod(float64(f), 0.0001) != 0
}

func floatCast(x *pyast.Node) *pyast.Node {
	return pyast.NewCall(pyast.NewName("float").Tagged(pyast.TagTypeCastFunction), x)
}

func zeroOf(float bool) *pyast.Node {
	if float {
		return pyast.NewFloat(0)
	}
	return pyast.NewInt(0)
}

func (r *run) fold(a *pyast.Node) *pyast.Node {
	switch a.Kind {
	case pyast.FunctionDef:
		stmts := a.Body().Nodes()
		for i, s := range stmts {
			stmts[i] = r.foldKeep(s)
		}
		setBody(a, "body", stmts)
		return a
	case pyast.Import, pyast.ImportFrom, pyast.Global,
		pyast.Num, pyast.Str, pyast.Bytes, pyast.NameConstant, pyast.Name:
		return a
	case pyast.BoolOp:
		return r.foldBoolOp(a)
	case pyast.BinOp:
		return r.foldBinOp(a)
	case pyast.IfExp:
		test := r.foldKeep(a.Child("test"))
		body := r.foldKeep(a.Child("body"))
		orelse := r.foldKeep(a.Child("orelse"))
		if v, ok := lit(test); ok {
			if b, isBool := v.(pyast.BoolVal); isBool {
				if b {
					return body
				}
				return orelse
			}
		}
		if pyast.Equal(body, orelse) {
			return body
		}
		a.Set("test", test)
		a.Set("body", body)
		a.Set("orelse", orelse)
		return a
	case pyast.Compare:
		return r.foldCompare(a)
	case pyast.Call:
		return r.foldCall(a)
	}
	return mapChildren(a, r.foldKeep)
}

func (r *run) foldBoolOp(a *pyast.Node) *pyast.Node {
	op := a.Op()
	var values []*pyast.Node
	for _, v := range a.ListField("values").Nodes() {
		c := r.foldKeep(v)
		if c.Is(pyast.BoolOp) && c.Op() == op && !c.Tags.Has(pyast.TagMultiComp) {
			values = append(values, c.ListField("values").Nodes()...)
			continue
		}
		values = append(values, c)
	}

	// or stops at a true value, and at a false one
	breaks := op == pyast.Or
	is := func(n *pyast.Node, want bool) bool {
		v, ok := lit(n)
		if !ok {
			return false
		}
		if want {
			return litIs(v, 1)
		}
		return litIs(v, 0)
	}

	for i := len(values) - 1; i > 0; i-- {
		if is(values[i], !breaks) && astutil.EventualType(values[i-1]) == pyast.TypeBool {
			values = append(values[:i], values[i+1:]...)
		}
	}
	switch {
	case len(values) == 0:
		return pyast.NewBool(!breaks)
	case len(values) == 1:
		return values[0]
	case is(values[0], breaks):
		return pyast.NewBool(breaks)
	}
	for i, v := range values {
		if is(v, breaks) {
			values = values[:i+1]
			break
		}
	}
	a.Set("values", pyast.NodeList(values...))
	return a
}

var commutativeOps = map[pyast.Kind]bool{
	pyast.Add: true, pyast.Mult: true, pyast.BitOr: true, pyast.BitAnd: true, pyast.BitXor: true,
}

func (r *run) foldBinOp(a *pyast.Node) *pyast.Node {
	l := r.foldKeep(a.Child("left"))
	rt := r.foldKeep(a.Child("right"))
	a.Set("left", l)
	a.Set("right", rt)
	if astutil.ContainsTokenStep(l) || astutil.ContainsTokenStep(rt) {
		return a
	}
	op := a.Op()
	lv, lok := lit(l)
	rv, rok := lit(rt)
	lt, rtt := astutil.EventualType(l), astutil.EventualType(rt)

	if lok && rok {
		if v, err := astutil.BinaryOp(op, lv, rv); err == nil && !untidy(v) {
			return pyast.FromConst(v)
		}
	}

	if lok {
		if rt.Is(pyast.BinOp) && rt.Op() == op && commutativeOps[op] {
			inner := rt.Child("left")
			if iv, ok := lit(inner); ok {
				if v, err := astutil.BinaryOp(op, lv, iv); err == nil {
					return pyast.New(pyast.BinOp, pyast.FromConst(v).Inherit(inner), a.Child("op"), rt.Child("right"))
				}
			}
		}
		_, lFloat := lv.(pyast.FloatVal)
		_, lBool := lv.(pyast.BoolVal)
		if s, ok := lv.(pyast.StrVal); ok && s == "" {
			switch {
			case op == pyast.Add && rtt == pyast.TypeStr:
				return rt
			case op == pyast.Mult && rtt == pyast.TypeInt:
				return pyast.NewStr("")
			}
		} else if !lBool && isNumber(rtt) && litIs(lv, 0) {
			keep := !lFloat || rtt == pyast.TypeFloat
			switch op {
			case pyast.Add, pyast.BitOr:
				if keep {
					return rt
				}
				return floatCast(rt)
			case pyast.Sub:
				neg := pyast.New(pyast.UnaryOp, pyast.Op(pyast.USub).Tagged(pyast.TagAddedOtherOp), rt).Tagged(pyast.TagAddedOther)
				if keep {
					return neg
				}
				return floatCast(neg)
			case pyast.Mult, pyast.LShift, pyast.RShift:
				return zeroOf(lFloat || rtt == pyast.TypeFloat)
			case pyast.Div, pyast.FloorDiv, pyast.Mod:
				if rok && !litIs(rv, 0) {
					return zeroOf(lFloat || rtt == pyast.TypeFloat)
				}
			}
		} else if !lBool && isNumber(rtt) && litIs(lv, 1) && op == pyast.Mult {
			if !lFloat || rtt == pyast.TypeFloat {
				return rt
			}
			return floatCast(rt)
		}
	}

	if rok {
		_, rFloat := rv.(pyast.FloatVal)
		_, rBool := rv.(pyast.BoolVal)
		switch {
		case rv == pyast.StrVal(""):
			switch {
			case op == pyast.Add && lt == pyast.TypeStr:
				return l
			case op == pyast.Mult && lt == pyast.TypeInt:
				return pyast.NewStr("")
			}
		case rBool:
		case litIs(rv, 0) && isNumber(lt):
			switch op {
			case pyast.Add, pyast.Sub, pyast.LShift, pyast.RShift, pyast.BitOr:
				if !rFloat || lt == pyast.TypeFloat {
					return l
				}
				return floatCast(l)
			case pyast.Mult:
				return zeroOf(rFloat || lt == pyast.TypeFloat)
			}
		case litIs(rv, 1):
			switch {
			case (op == pyast.Mult || op == pyast.Pow) && isNumber(lt):
				if !rFloat || lt == pyast.TypeFloat {
					return l
				}
				return floatCast(l)
			case op == pyast.Div && isNumber(lt):
				// true division always yields a float
				if lt == pyast.TypeFloat {
					return l
				}
				return floatCast(l)
			case op == pyast.FloorDiv && lt == pyast.TypeInt:
				if rtt == pyast.TypeInt {
					return l
				}
				return floatCast(l)
			}
		}
	}
	return a
}

func (r *run) foldCompare(a *pyast.Node) *pyast.Node {
	ops := a.ListField("ops").Nodes()
	comps := a.ListField("comparators").Nodes()
	if len(ops) == 0 || len(comps) == 0 {
		return pyast.NewBool(true)
	}
	if len(ops) != 1 {
		return mapChildren(a, r.foldKeep)
	}
	for {
		l := r.foldKeep(a.Child("left"))
		rt := r.foldKeep(a.ListField("comparators").Node(0))
		a.Set("left", l)
		a.Set("comparators", pyast.NodeList(rt))
		if astutil.ContainsTokenStep(l) || astutil.ContainsTokenStep(rt) {
			return a
		}
		op := a.ListField("ops").Node(0).Kind
		if pyast.Equal(l, rt) && !astutil.CouldCrash(l) {
			switch op {
			case pyast.Lt, pyast.Gt, pyast.NotEq:
				return pyast.NewBool(false)
			case pyast.Eq, pyast.LtE, pyast.GtE:
				return pyast.NewBool(true)
			}
		}
		lv, lok := lit(l)
		rv, rok := lit(rt)
		if lok && rok {
			if b, err := astutil.CompareOp(op, lv, rv); err == nil {
				return pyast.NewBool(b)
			}
		}
		if !l.Is(pyast.BinOp) || !rt.Is(pyast.BinOp) || l.Op() != rt.Op() ||
			astutil.CouldCrash(l) || astutil.CouldCrash(rt) {
			return a
		}
		// cancel a shared operand: a + b < a + c  ==>  b < c
		ll, lr := l.Child("left"), l.Child("right")
		rl, rr := rt.Child("left"), rt.Child("right")
		numeric := isNumber(astutil.EventualType(l))
		var nl, nr *pyast.Node
		switch l.Op() {
		case pyast.Add:
			switch {
			case pyast.Equal(ll, rl):
				nl, nr = lr, rr
			case pyast.Equal(lr, rr):
				nl, nr = ll, rl
			case pyast.Equal(ll, rr) && numeric:
				nl, nr = lr, rl
			case pyast.Equal(lr, rl) && numeric:
				nl, nr = ll, rr
			}
		case pyast.Sub:
			switch {
			case pyast.Equal(ll, rl):
				nl, nr = lr, rr
			case pyast.Equal(lr, rr):
				nl, nr = ll, rl
			}
		}
		if nl == nil {
			return a
		}
		a.Set("left", nl)
		a.Set("comparators", pyast.NodeList(nr))
	}
}

// foldable builtins; the rest either read input, draw randomness or build mutable values
var foldableCalls = map[string]func([]pyast.Value) (pyast.Value, bool){
	"abs":   foldAbs,
	"len":   foldLen,
	"bool":  func(a []pyast.Value) (pyast.Value, bool) { return foldUnary(a, foldBool) },
	"str":   func(a []pyast.Value) (pyast.Value, bool) { return foldUnary(a, foldStr) },
	"int":   func(a []pyast.Value) (pyast.Value, bool) { return foldUnary(a, foldInt) },
	"float": func(a []pyast.Value) (pyast.Value, bool) { return foldUnary(a, foldFloat) },
	"min":   func(a []pyast.Value) (pyast.Value, bool) { return foldExtreme(a, -1) },
	"max":   func(a []pyast.Value) (pyast.Value, bool) { return foldExtreme(a, 1) },
}

func foldBool(v pyast.Value) (pyast.Value, bool) {
	return pyast.BoolVal(astutil.Truthy(v)), true
}

func (r *run) foldCall(a *pyast.Node) *pyast.Node {
	a.Set("func", r.foldKeep(a.Child("func")))
	args := a.ListField("args").Nodes()
	vals := make([]pyast.Value, len(args))
	constant := a.ListField("keywords").Len() == 0
	for i, arg := range args {
		args[i] = r.foldKeep(arg)
		v, ok := lit(args[i])
		if _, isBytes := v.(pyast.BytesVal); !ok || isBytes {
			constant = false
		}
		vals[i] = v
	}
	a.Set("args", pyast.NodeList(args...))
	if !constant {
		return a
	}
	if f, ok := foldableCalls[pyast.NameID(a.Child("func"))]; ok {
		if v, ok := f(vals); ok && !untidy(v) {
			return pyast.FromConst(v)
		}
	}
	return a
}
