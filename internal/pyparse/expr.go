package pyparse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"hintgen/internal/pyast"
)

var binOps = map[string]pyast.Kind{
	"+": pyast.Add, "-": pyast.Sub, "*": pyast.Mult, "/": pyast.Div,
	"%": pyast.Mod, "**": pyast.Pow, "<<": pyast.LShift, ">>": pyast.RShift,
	"|": pyast.BitOr, "^": pyast.BitXor, "&": pyast.BitAnd, "//": pyast.FloorDiv,
}

var cmpOps = map[string]pyast.Kind{
	"==": pyast.Eq, "!=": pyast.NotEq, "<": pyast.Lt, "<=": pyast.LtE,
	">": pyast.Gt, ">=": pyast.GtE, "is": pyast.Is, "is not": pyast.IsNot,
	"in": pyast.In, "not in": pyast.NotIn,
}

var unaryOps = map[string]pyast.Kind{"+": pyast.UAdd, "-": pyast.USub, "~": pyast.Invert}

func (c *conv) exprs(ns []*sitter.Node) ([]*pyast.Node, error) {
	out := make([]*pyast.Node, 0, len(ns))
	for _, n := range ns {
		e, err := c.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// exprList flattens a bare comma list into its elements.
func (c *conv) exprList(n *sitter.Node) ([]*pyast.Node, error) {
	switch n.Type() {
	case "expression_list", "pattern_list":
		return c.exprs(named(n))
	}
	e, err := c.expr(n)
	if err != nil {
		return nil, err
	}
	return []*pyast.Node{e}, nil
}

// exprOrTuple converts n, turning a bare comma list into a Tuple.
func (c *conv) exprOrTuple(n *sitter.Node) (*pyast.Node, error) {
	switch n.Type() {
	case "expression_list", "pattern_list":
		elts, err := c.exprs(named(n))
		if err != nil {
			return nil, err
		}
		return c.at(pyast.New(pyast.Tuple, pyast.NodeList(elts...)), n), nil
	}
	return c.expr(n)
}

func (c *conv) expr(n *sitter.Node) (*pyast.Node, error) {
	if n == nil {
		return nil, &Error{Kind: ErrSyntax, Line: 1, Msg: "missing expression"}
	}
	switch n.Type() {
	case "identifier":
		return c.at(pyast.NewName(c.ident(n)), n), nil
	case "true":
		return c.at(pyast.NewBool(true), n), nil
	case "false":
		return c.at(pyast.NewBool(false), n), nil
	case "none":
		return c.at(pyast.NewNone(), n), nil
	case "integer", "float":
		v, err := parseNumber(c.text(n))
		if err != nil {
			return nil, c.unsupported(n, err.Error())
		}
		return c.at(pyast.New(pyast.Num, v), n), nil
	case "string", "concatenated_string":
		return c.str(n)
	case "parenthesized_expression":
		kids := named(n)
		if len(kids) != 1 {
			return nil, c.unsupported(n, "parenthesized form")
		}
		return c.expr(kids[0])
	case "expression_list", "pattern_list":
		return c.exprOrTuple(n)
	case "tuple", "tuple_pattern":
		return c.seq(n, pyast.Tuple)
	case "list", "list_pattern":
		return c.seq(n, pyast.List)
	case "set":
		return c.seq(n, pyast.Set)
	case "dictionary":
		return c.dict(n)
	case "binary_operator":
		left, err := c.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := c.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		opText := c.text(n.ChildByFieldName("operator"))
		op, ok := binOps[opText]
		if !ok {
			return nil, c.unsupported(n, "operator "+opText)
		}
		return c.at(pyast.NewBinOp(left, op, right), n), nil
	case "unary_operator":
		operand, err := c.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		op := unaryOps[c.text(n.ChildByFieldName("operator"))]
		return c.at(pyast.NewUnaryOp(op, operand), n), nil
	case "not_operator":
		operand, err := c.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return c.at(pyast.NewUnaryOp(pyast.Not, operand), n), nil
	case "boolean_operator":
		return c.boolOp(n)
	case "comparison_operator":
		return c.compare(n)
	case "conditional_expression":
		kids := named(n)
		if len(kids) != 3 {
			return nil, c.unsupported(n, "conditional expression")
		}
		parts, err := c.exprs(kids)
		if err != nil {
			return nil, err
		}
		// body if test else orelse
		return c.at(pyast.New(pyast.IfExp, parts[1], parts[0], parts[2]), n), nil
	case "call":
		return c.call(n)
	case "attribute":
		obj, err := c.expr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		attr := pyast.StrVal(c.ident(n.ChildByFieldName("attribute")))
		return c.at(pyast.New(pyast.Attribute, obj, attr), n), nil
	case "subscript":
		return c.subscript(n)
	case "slice":
		return c.slice(n)
	case "lambda":
		args, err := c.params(n.ChildByFieldName("parameters"))
		if err != nil {
			return nil, err
		}
		body, err := c.expr(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return c.at(pyast.New(pyast.Lambda, args, body), n), nil
	case "list_comprehension":
		return c.comprehension(n, pyast.ListComp)
	case "set_comprehension":
		return c.comprehension(n, pyast.SetComp)
	case "generator_expression":
		return c.comprehension(n, pyast.GeneratorExp)
	case "dictionary_comprehension":
		return c.comprehension(n, pyast.DictComp)
	case "list_splat", "list_splat_pattern":
		kids := named(n)
		if len(kids) != 1 {
			return nil, c.unsupported(n, "starred form")
		}
		val, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		return c.at(pyast.New(pyast.Starred, val), n), nil
	case "keyword_identifier":
		return c.at(pyast.NewName(c.ident(n)), n), nil
	}
	return nil, c.unsupported(n, n.Type())
}

func (c *conv) seq(n *sitter.Node, k pyast.Kind) (*pyast.Node, error) {
	elts, err := c.exprs(named(n))
	if err != nil {
		return nil, err
	}
	return c.at(pyast.New(k, pyast.NodeList(elts...)), n), nil
}

func (c *conv) dict(n *sitter.Node) (*pyast.Node, error) {
	keys, values := &pyast.ListVal{}, &pyast.ListVal{}
	for _, ch := range named(n) {
		switch ch.Type() {
		case "pair":
			k, err := c.expr(ch.ChildByFieldName("key"))
			if err != nil {
				return nil, err
			}
			v, err := c.expr(ch.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			keys.Append(k)
			values.Append(v)
		case "dictionary_splat":
			v, err := c.expr(named(ch)[0])
			if err != nil {
				return nil, err
			}
			keys.Append(nil)
			values.Append(v)
		default:
			return nil, c.unsupported(ch, "dictionary entry "+ch.Type())
		}
	}
	return c.at(pyast.New(pyast.Dict, keys, values), n), nil
}

// boolOp flattens left-nested chains of one operator, as Python does for a and b and c.
func (c *conv) boolOp(n *sitter.Node) (*pyast.Node, error) {
	opText := c.text(n.ChildByFieldName("operator"))
	op := pyast.And
	if opText == "or" {
		op = pyast.Or
	}
	var values []*pyast.Node
	left := n.ChildByFieldName("left")
	if left.Type() == "boolean_operator" && c.text(left.ChildByFieldName("operator")) == opText {
		inner, err := c.boolOp(left)
		if err != nil {
			return nil, err
		}
		values = inner.ListField("values").Nodes()
	} else {
		l, err := c.expr(left)
		if err != nil {
			return nil, err
		}
		values = []*pyast.Node{l}
	}
	r, err := c.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	values = append(values, r)
	return c.at(pyast.NewBoolOp(op, values...), n), nil
}

func (c *conv) compare(n *sitter.Node) (*pyast.Node, error) {
	var operands []*pyast.Node
	var ops []pyast.Kind
	pending := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.Type() == "comment" {
			continue
		}
		if ch.IsNamed() {
			if pending != "" {
				op, ok := cmpOps[pending]
				if !ok {
					return nil, c.unsupported(ch, "comparison "+pending)
				}
				ops = append(ops, op)
				pending = ""
			}
			e, err := c.expr(ch)
			if err != nil {
				return nil, err
			}
			operands = append(operands, e)
			continue
		}
		// "not in" and "is not" may arrive as one aliased token or as two.
		if pending == "" {
			pending = ch.Type()
		} else {
			pending += " " + ch.Type()
		}
	}
	if len(operands) < 2 || len(ops) != len(operands)-1 {
		return nil, c.unsupported(n, "comparison")
	}
	return c.at(pyast.NewCompare(operands[0], ops, operands[1:]...), n), nil
}

func (c *conv) call(n *sitter.Node) (*pyast.Node, error) {
	fn, err := c.expr(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	args, kws := &pyast.ListVal{}, &pyast.ListVal{}
	argNode := n.ChildByFieldName("arguments")
	if argNode != nil && argNode.Type() == "generator_expression" {
		g, err := c.expr(argNode)
		if err != nil {
			return nil, err
		}
		args.Append(g)
		return c.at(pyast.New(pyast.Call, fn, args, kws), n), nil
	}
	if argNode != nil {
		for _, a := range named(argNode) {
			switch a.Type() {
			case "keyword_argument":
				val, err := c.expr(a.ChildByFieldName("value"))
				if err != nil {
					return nil, err
				}
				name := pyast.StrVal(c.ident(a.ChildByFieldName("name")))
				kws.Append(c.at(pyast.New(pyast.Keyword, name, val), a))
			case "dictionary_splat":
				val, err := c.expr(named(a)[0])
				if err != nil {
					return nil, err
				}
				kws.Append(c.at(pyast.New(pyast.Keyword, nil, val), a))
			default:
				e, err := c.expr(a)
				if err != nil {
					return nil, err
				}
				args.Append(e)
			}
		}
	}
	return c.at(pyast.New(pyast.Call, fn, args, kws), n), nil
}

func (c *conv) subscript(n *sitter.Node) (*pyast.Node, error) {
	kids := named(n)
	if len(kids) < 2 {
		return nil, c.unsupported(n, "subscript")
	}
	val, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	idx, err := c.exprs(kids[1:])
	if err != nil {
		return nil, err
	}
	slice := idx[0]
	if len(idx) > 1 {
		slice = c.at(pyast.New(pyast.Tuple, pyast.NodeList(idx...)), kids[1])
	}
	return c.at(pyast.New(pyast.Subscript, val, slice), n), nil
}

// slice reads lower:upper:step, where any part may be missing.
func (c *conv) slice(n *sitter.Node) (*pyast.Node, error) {
	parts := [3]*pyast.Node{}
	slot := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.Type() == ":" {
			slot++
			continue
		}
		if !ch.IsNamed() || ch.Type() == "comment" || slot > 2 {
			continue
		}
		e, err := c.expr(ch)
		if err != nil {
			return nil, err
		}
		parts[slot] = e
	}
	return c.at(pyast.New(pyast.Slice, parts[0], parts[1], parts[2]), n), nil
}

func (c *conv) comprehension(n *sitter.Node, k pyast.Kind) (*pyast.Node, error) {
	bodyNode := n.ChildByFieldName("body")
	gens := &pyast.ListVal{}
	var cur *pyast.Node
	for _, ch := range named(n) {
		switch ch.Type() {
		case "for_in_clause":
			if strings.HasPrefix(c.text(ch), "async ") {
				return nil, c.unsupported(ch, "async comprehension")
			}
			target, err := c.exprOrTuple(ch.ChildByFieldName("left"))
			if err != nil {
				return nil, err
			}
			iter, err := c.exprOrTuple(ch.ChildByFieldName("right"))
			if err != nil {
				return nil, err
			}
			cur = c.at(pyast.New(pyast.Comprehension, target, iter), ch)
			gens.Append(cur)
		case "if_clause":
			if cur == nil {
				return nil, c.unsupported(ch, "if before for")
			}
			cond, err := c.expr(named(ch)[0])
			if err != nil {
				return nil, err
			}
			cur.ListField("ifs").Append(cond)
		}
	}
	if k == pyast.DictComp {
		if bodyNode == nil || bodyNode.Type() != "pair" {
			return nil, c.unsupported(n, "dict comprehension")
		}
		key, err := c.expr(bodyNode.ChildByFieldName("key"))
		if err != nil {
			return nil, err
		}
		val, err := c.expr(bodyNode.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		return c.at(pyast.New(k, key, val, gens), n), nil
	}
	elt, err := c.expr(bodyNode)
	if err != nil {
		return nil, err
	}
	return c.at(pyast.New(k, elt, gens), n), nil
}
