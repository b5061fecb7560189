package pyast

// Constructors for the node shapes the passes synthesize most often.

func Op(k Kind) *Node { return New(k) }

func NewName(id string) *Node { return New(Name, StrVal(id)) }

func NewInt(v int64) *Node { return New(Num, IntVal(v)) }

func NewFloat(v float64) *Node { return New(Num, FloatVal(v)) }

func NewStr(s string) *Node { return New(Str, StrVal(s)) }

func NewBool(b bool) *Node { return New(NameConstant, BoolVal(b)) }

func NewNone() *Node { return New(NameConstant) }

func NewBinOp(left *Node, op Kind, right *Node) *Node {
	return New(BinOp, left, Op(op), right)
}

func NewBoolOp(op Kind, values ...*Node) *Node {
	return New(BoolOp, Op(op), NodeList(values...))
}

func NewUnaryOp(op Kind, operand *Node) *Node {
	return New(UnaryOp, Op(op), operand)
}

func NewCompare(left *Node, ops []Kind, comparators ...*Node) *Node {
	opl := &ListVal{}
	for _, k := range ops {
		opl.Append(Op(k))
	}
	return New(Compare, left, opl, NodeList(comparators...))
}

func NewCall(fn *Node, args ...*Node) *Node {
	return New(Call, fn, NodeList(args...), &ListVal{})
}

func NewAssign(target, value *Node) *Node {
	return New(Assign, NodeList(target), value)
}

func NewReturn(value *Node) *Node { return New(Return, value) }

func NewExpr(value *Node) *Node { return New(Expr, value) }

func NewIf(test *Node, body, orelse []*Node) *Node {
	return New(If, test, NodeList(body...), NodeList(orelse...))
}

func NewModule(body ...*Node) *Node { return New(Module, NodeList(body...)) }

// NumValue returns the payload of a Num node.
func NumValue(n *Node) (Value, bool) {
	if !n.Is(Num) {
		return nil, false
	}
	v := n.Field("n")
	switch v.(type) {
	case IntVal, FloatVal, BoolVal:
		return v, true
	}
	return nil, false
}

// ConstValue returns the literal payload of Num, Str, Bytes and NameConstant nodes.
// A NameConstant None yields (nil, true).
func ConstValue(n *Node) (Value, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind {
	case Num:
		return NumValue(n)
	case Str, Bytes:
		return n.Field("s"), true
	case NameConstant:
		return n.Field("value"), true
	}
	return nil, false
}

// IsConstant reports literal leaves.
func IsConstant(n *Node) bool {
	_, ok := ConstValue(n)
	return ok
}

// FromConst builds the literal node holding v.
func FromConst(v Value) *Node {
	switch x := v.(type) {
	case nil:
		return NewNone()
	case BoolVal:
		return NewBool(bool(x))
	case IntVal, FloatVal:
		return New(Num, x)
	case StrVal:
		return New(Str, x)
	case BytesVal:
		return New(Bytes, x)
	}
	return nil
}

// NameID returns the identifier of a Name node, "" otherwise.
func NameID(n *Node) string {
	if n.Is(Name) {
		return n.Ident("id")
	}
	return ""
}

// IsCallTo reports a call whose callee is the plain name fn.
func IsCallTo(n *Node, fn string) bool {
	return n.Is(Call) && NameID(n.Child("func")) == fn
}
