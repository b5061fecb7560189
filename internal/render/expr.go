package render

import (
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// Binding strength, loosest first.
const (
	precLowest = iota
	precLambda
	precTest // conditional expression
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precArith
	precTerm
	precUnary
	precPower
	precAtom
)

var opSpelling = map[pyast.Kind]string{
	pyast.And: "and", pyast.Or: "or",
	pyast.Add: "+", pyast.Sub: "-", pyast.Mult: "*", pyast.Div: "/", pyast.Mod: "%",
	pyast.Pow: "**", pyast.LShift: "<<", pyast.RShift: ">>", pyast.BitOr: "|",
	pyast.BitXor: "^", pyast.BitAnd: "&", pyast.FloorDiv: "//",
	pyast.Invert: "~", pyast.Not: "not", pyast.UAdd: "+", pyast.USub: "-",
	pyast.Eq: "==", pyast.NotEq: "!=", pyast.Lt: "<", pyast.LtE: "<=",
	pyast.Gt: ">", pyast.GtE: ">=", pyast.Is: "is", pyast.IsNot: "is not",
	pyast.In: "in", pyast.NotIn: "not in",
}

var binPrec = map[pyast.Kind]int{
	pyast.BitOr: precBitOr, pyast.BitXor: precBitXor, pyast.BitAnd: precBitAnd,
	pyast.LShift: precShift, pyast.RShift: precShift,
	pyast.Add: precArith, pyast.Sub: precArith,
	pyast.Mult: precTerm, pyast.Div: precTerm, pyast.FloorDiv: precTerm, pyast.Mod: precTerm,
	pyast.Pow: precPower,
}

// precOf returns how tightly n binds when printed without parentheses.
func precOf(n *pyast.Node) int {
	switch n.Kind {
	case pyast.Lambda:
		return precLambda
	case pyast.IfExp:
		return precTest
	case pyast.BoolOp:
		if n.Op() == pyast.Or {
			return precOr
		}
		return precAnd
	case pyast.UnaryOp:
		if n.Op() == pyast.Not {
			return precNot
		}
		return precUnary
	case pyast.Compare:
		return precCompare
	case pyast.BinOp:
		if p, ok := binPrec[n.Op()]; ok {
			return p
		}
		return precArith
	case pyast.Num:
		if isNegative(n.Field("n")) {
			return precUnary
		}
	case pyast.Starred:
		return precUnary
	}
	return precAtom
}

func isNegative(v pyast.Value) bool {
	switch x := v.(type) {
	case pyast.IntVal:
		return x < 0
	case pyast.FloatVal:
		return x < 0
	}
	return false
}

// expr prints n, parenthesized when it binds looser than need.
func (p *printer) expr(n *pyast.Node, need int) {
	if n == nil {
		return
	}
	if precOf(n) < need {
		p.write("(")
		p.expr(n, precLowest)
		p.write(")")
		return
	}
	switch n.Kind {
	case pyast.Name:
		p.write(n.Ident("id"))
	case pyast.Num, pyast.NameConstant, pyast.Bytes:
		v, _ := pyast.ConstValue(n)
		p.write(pyast.FormatPrim(v))
	case pyast.Str:
		s := n.Ident("s")
		if p.opt.Placeholders && names.IsTokenStep(s) {
			p.write(s)
			return
		}
		p.write(pyast.FormatPrim(pyast.StrVal(s)))
	case pyast.BoolOp:
		own := precOf(n)
		for i, v := range n.ListField("values").Nodes() {
			if i > 0 {
				p.write(" " + p.opText(n.Child("op")) + " ")
			}
			p.expr(v, own+1)
		}
	case pyast.BinOp:
		own := precOf(n)
		left, right := own, own+1
		if n.Op() == pyast.Pow {
			left, right = own+1, precUnary
		}
		p.expr(n.Child("left"), left)
		p.write(" " + p.opText(n.Child("op")) + " ")
		p.expr(n.Child("right"), right)
	case pyast.UnaryOp:
		op := n.Child("op")
		if op.Is(pyast.Not) {
			p.write("not ")
			p.expr(n.Child("operand"), precNot)
			return
		}
		p.write(p.opText(op))
		if op.Is(pyast.Str) {
			p.write(" ")
		}
		p.expr(n.Child("operand"), precUnary)
	case pyast.Compare:
		p.expr(n.Child("left"), precCompare+1)
		comps := n.ListField("comparators").Nodes()
		for i, op := range n.ListField("ops").Nodes() {
			p.write(" " + p.opText(op) + " ")
			if i < len(comps) {
				p.expr(comps[i], precCompare+1)
			}
		}
	case pyast.IfExp:
		p.expr(n.Child("body"), precTest+1)
		p.write(" if ")
		p.expr(n.Child("test"), precTest+1)
		p.write(" else ")
		p.expr(n.Child("orelse"), precTest)
	case pyast.Lambda:
		p.write("lambda")
		if args := n.Child("args"); args != nil && hasParams(args) {
			p.write(" ")
			p.arguments(args)
		}
		p.write(": ")
		p.expr(n.Child("body"), precTest)
	case pyast.Call:
		p.expr(n.Child("func"), precAtom)
		p.write("(")
		args := n.ListField("args").Nodes()
		kws := n.ListField("keywords").Nodes()
		if len(args) == 1 && len(kws) == 0 && args[0].Is(pyast.GeneratorExp) {
			p.comprehensionBody(args[0])
			p.write(")")
			return
		}
		p.commaList(args, precTest)
		for i, k := range kws {
			if i > 0 || len(args) > 0 {
				p.write(", ")
			}
			if arg := k.Ident("arg"); arg != "" {
				p.write(arg + "=")
			} else {
				p.write("**")
			}
			p.expr(k.Child("value"), precTest)
		}
		p.write(")")
	case pyast.Attribute:
		v := n.Child("value")
		if v.Is(pyast.Num) {
			p.write("(")
			p.expr(v, precLowest)
			p.write(")")
		} else {
			p.expr(v, precAtom)
		}
		p.write("." + n.Ident("attr"))
	case pyast.Subscript:
		p.expr(n.Child("value"), precAtom)
		p.write("[")
		if s := n.Child("slice"); s.Is(pyast.Tuple) && s.ListField("elts").Len() > 1 {
			p.commaList(s.ListField("elts").Nodes(), precTest)
		} else {
			p.expr(s, precLowest)
		}
		p.write("]")
	case pyast.Slice:
		if l := n.Child("lower"); l != nil {
			p.expr(l, precTest)
		}
		p.write(":")
		if u := n.Child("upper"); u != nil {
			p.expr(u, precTest)
		}
		if s := n.Child("step"); s != nil {
			p.write(":")
			p.expr(s, precTest)
		}
	case pyast.List:
		p.write("[")
		p.commaList(n.ListField("elts").Nodes(), precTest)
		p.write("]")
	case pyast.Tuple:
		elts := n.ListField("elts").Nodes()
		p.write("(")
		p.commaList(elts, precTest)
		if len(elts) == 1 {
			p.write(",")
		}
		p.write(")")
	case pyast.Set:
		elts := n.ListField("elts").Nodes()
		if len(elts) == 0 {
			p.write("set()")
			return
		}
		p.write("{")
		p.commaList(elts, precTest)
		p.write("}")
	case pyast.Dict:
		p.write("{")
		keys := n.ListField("keys")
		for i, v := range n.ListField("values").Nodes() {
			if i > 0 {
				p.write(", ")
			}
			if k := keys.Node(i); k != nil {
				p.expr(k, precTest)
				p.write(": ")
			} else {
				p.write("**")
			}
			p.expr(v, precTest)
		}
		p.write("}")
	case pyast.ListComp:
		p.write("[")
		p.comprehensionBody(n)
		p.write("]")
	case pyast.SetComp, pyast.DictComp:
		p.write("{")
		p.comprehensionBody(n)
		p.write("}")
	case pyast.GeneratorExp:
		p.write("(")
		p.comprehensionBody(n)
		p.write(")")
	case pyast.Starred:
		p.write("*")
		p.expr(n.Child("value"), precAtom)
	default:
		if n.Kind.IsOperator() {
			p.write(p.opText(n))
			return
		}
		p.write(names.Label(n.Kind))
	}
}

func hasParams(a *pyast.Node) bool {
	return a.ListField("args").Len() > 0 || a.ListField("kwonlyargs").Len() > 0 ||
		a.Child("vararg") != nil || a.Child("kwarg") != nil
}

func (p *printer) comprehensionBody(n *pyast.Node) {
	if n.Is(pyast.DictComp) {
		p.expr(n.Child("key"), precTest)
		p.write(": ")
		p.expr(n.Child("value"), precTest)
	} else {
		p.expr(n.Child("elt"), precTest)
	}
	for _, g := range n.ListField("generators").Nodes() {
		p.write(" for ")
		t := g.Child("target")
		if t.Is(pyast.Tuple) && t.ListField("elts").Len() > 1 {
			p.commaList(t.ListField("elts").Nodes(), precOr)
		} else {
			p.expr(t, precOr)
		}
		p.write(" in ")
		p.expr(g.Child("iter"), precOr)
		for _, cond := range g.ListField("ifs").Nodes() {
			p.write(" if ")
			p.expr(cond, precOr)
		}
	}
}
