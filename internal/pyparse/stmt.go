package pyparse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"hintgen/internal/pyast"
)

func (c *conv) stmts(block *sitter.Node) ([]*pyast.Node, error) {
	var out []*pyast.Node
	for _, ch := range named(block) {
		s, err := c.stmt(ch)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *conv) body(n *sitter.Node, field string) (*pyast.ListVal, error) {
	b := n.ChildByFieldName(field)
	if b == nil {
		return &pyast.ListVal{}, nil
	}
	ss, err := c.stmts(b)
	if err != nil {
		return nil, err
	}
	return pyast.NodeList(ss...), nil
}

func (c *conv) stmt(n *sitter.Node) (*pyast.Node, error) {
	switch n.Type() {
	case "expression_statement":
		return c.exprStmt(n)
	case "return_statement":
		var val *pyast.Node
		if kids := named(n); len(kids) > 0 {
			v, err := c.exprOrTuple(kids[0])
			if err != nil {
				return nil, err
			}
			val = v
		}
		return c.at(pyast.NewReturn(val), n), nil
	case "pass_statement":
		return c.at(pyast.New(pyast.Pass), n), nil
	case "break_statement":
		return c.at(pyast.New(pyast.Break), n), nil
	case "continue_statement":
		return c.at(pyast.New(pyast.Continue), n), nil
	case "if_statement":
		return c.ifStmt(n)
	case "for_statement":
		return c.forStmt(n)
	case "while_statement":
		test, err := c.expr(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := c.body(n, "body")
		if err != nil {
			return nil, err
		}
		orelse, err := c.elseClause(n.ChildByFieldName("alternative"))
		if err != nil {
			return nil, err
		}
		return c.at(pyast.New(pyast.While, test, body, orelse), n), nil
	case "function_definition":
		return c.funcDef(n, nil)
	case "decorated_definition":
		var decos []*pyast.Node
		for _, ch := range named(n) {
			if ch.Type() != "decorator" {
				continue
			}
			kids := named(ch)
			if len(kids) == 0 {
				continue
			}
			d, err := c.expr(kids[0])
			if err != nil {
				return nil, err
			}
			decos = append(decos, d)
		}
		def := n.ChildByFieldName("definition")
		if def == nil || def.Type() != "function_definition" {
			return nil, c.unsupported(n, "decorated class")
		}
		return c.funcDef(def, decos)
	case "import_statement":
		var aliases []*pyast.Node
		for _, ch := range named(n) {
			a, err := c.alias(ch)
			if err != nil {
				return nil, err
			}
			aliases = append(aliases, a)
		}
		return c.at(pyast.New(pyast.Import, pyast.NodeList(aliases...)), n), nil
	case "import_from_statement":
		return c.importFrom(n)
	case "global_statement":
		ids := &pyast.ListVal{}
		for _, ch := range named(n) {
			ids.Append(pyast.StrVal(c.ident(ch)))
		}
		return c.at(pyast.New(pyast.Global, ids), n), nil
	case "delete_statement":
		kids := named(n)
		if len(kids) == 0 {
			return nil, c.unsupported(n, "empty del")
		}
		targets, err := c.exprList(kids[0])
		if err != nil {
			return nil, err
		}
		return c.at(pyast.New(pyast.Delete, pyast.NodeList(targets...)), n), nil
	case "raise_statement":
		var exc, cause *pyast.Node
		causeNode := n.ChildByFieldName("cause")
		for _, ch := range named(n) {
			if causeNode != nil && ch.StartByte() == causeNode.StartByte() {
				continue
			}
			e, err := c.expr(ch)
			if err != nil {
				return nil, err
			}
			exc = e
			break
		}
		if causeNode != nil {
			e, err := c.expr(causeNode)
			if err != nil {
				return nil, err
			}
			cause = e
		}
		return c.at(pyast.New(pyast.Raise, exc, cause), n), nil
	case "assert_statement":
		kids := named(n)
		test, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		var msg *pyast.Node
		if len(kids) > 1 {
			if msg, err = c.expr(kids[1]); err != nil {
				return nil, err
			}
		}
		return c.at(pyast.New(pyast.Assert, test, msg), n), nil
	case "try_statement":
		return c.tryStmt(n)
	case "with_statement":
		return c.withStmt(n)
	}
	return nil, c.unsupported(n, n.Type())
}

func (c *conv) exprStmt(n *sitter.Node) (*pyast.Node, error) {
	kids := named(n)
	if len(kids) == 1 {
		switch kids[0].Type() {
		case "assignment":
			return c.assign(kids[0])
		case "augmented_assignment":
			return c.augAssign(kids[0])
		}
	}
	var val *pyast.Node
	if len(kids) == 1 {
		v, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		val = v
	} else {
		elts, err := c.exprs(kids)
		if err != nil {
			return nil, err
		}
		val = c.at(pyast.New(pyast.Tuple, pyast.NodeList(elts...)), n)
	}
	return c.at(pyast.NewExpr(val), n), nil
}

// assign flattens a = b = value chains into one Assign with several targets.
func (c *conv) assign(n *sitter.Node) (*pyast.Node, error) {
	var targets []*pyast.Node
	cur := n
	for {
		left := cur.ChildByFieldName("left")
		right := cur.ChildByFieldName("right")
		if right == nil {
			return nil, c.unsupported(cur, "annotation without value")
		}
		t, err := c.exprOrTuple(left)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
		if right.Type() != "assignment" {
			val, err := c.exprOrTuple(right)
			if err != nil {
				return nil, err
			}
			return c.at(pyast.New(pyast.Assign, pyast.NodeList(targets...), val), n), nil
		}
		cur = right
	}
}

func (c *conv) augAssign(n *sitter.Node) (*pyast.Node, error) {
	target, err := c.expr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	opText := c.text(n.ChildByFieldName("operator"))
	op, ok := binOps[opText[:len(opText)-1]]
	if !ok {
		return nil, c.unsupported(n, "operator "+opText)
	}
	val, err := c.exprOrTuple(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	return c.at(pyast.New(pyast.AugAssign, target, pyast.Op(op), val), n), nil
}

func (c *conv) ifStmt(n *sitter.Node) (*pyast.Node, error) {
	test, err := c.expr(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := c.body(n, "consequence")
	if err != nil {
		return nil, err
	}
	var clauses []*sitter.Node
	for _, ch := range named(n) {
		if t := ch.Type(); t == "elif_clause" || t == "else_clause" {
			clauses = append(clauses, ch)
		}
	}
	orelse, err := c.elifChain(clauses)
	if err != nil {
		return nil, err
	}
	return c.at(pyast.New(pyast.If, test, body, orelse), n), nil
}

// elifChain nests every elif as a lone If in the orelse of the previous one.
func (c *conv) elifChain(clauses []*sitter.Node) (*pyast.ListVal, error) {
	if len(clauses) == 0 {
		return &pyast.ListVal{}, nil
	}
	first := clauses[0]
	if first.Type() == "else_clause" {
		return c.body(first, "body")
	}
	test, err := c.expr(first.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := c.body(first, "consequence")
	if err != nil {
		return nil, err
	}
	rest, err := c.elifChain(clauses[1:])
	if err != nil {
		return nil, err
	}
	return pyast.NodeList(c.at(pyast.New(pyast.If, test, body, rest), first)), nil
}

func (c *conv) elseClause(n *sitter.Node) (*pyast.ListVal, error) {
	if n == nil {
		return &pyast.ListVal{}, nil
	}
	return c.body(n, "body")
}

func (c *conv) forStmt(n *sitter.Node) (*pyast.Node, error) {
	if strings.HasPrefix(c.text(n), "async") {
		return nil, c.unsupported(n, "async for")
	}
	target, err := c.exprOrTuple(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	iter, err := c.exprOrTuple(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	body, err := c.body(n, "body")
	if err != nil {
		return nil, err
	}
	orelse, err := c.elseClause(n.ChildByFieldName("alternative"))
	if err != nil {
		return nil, err
	}
	return c.at(pyast.New(pyast.For, target, iter, body, orelse), n), nil
}

func (c *conv) funcDef(n *sitter.Node, decos []*pyast.Node) (*pyast.Node, error) {
	if strings.HasPrefix(c.text(n), "async") {
		return nil, c.unsupported(n, "async def")
	}
	args, err := c.params(n.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	body, err := c.body(n, "body")
	if err != nil {
		return nil, err
	}
	var returns *pyast.Node
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		if returns, err = c.typeExpr(rt); err != nil {
			return nil, err
		}
	}
	name := pyast.StrVal(c.ident(n.ChildByFieldName("name")))
	return c.at(pyast.New(pyast.FunctionDef, name, args, body, pyast.NodeList(decos...), returns), n), nil
}

func (c *conv) typeExpr(n *sitter.Node) (*pyast.Node, error) {
	if n.Type() == "type" {
		kids := named(n)
		if len(kids) == 0 {
			return nil, c.unsupported(n, "empty annotation")
		}
		n = kids[0]
	}
	return c.expr(n)
}

// params builds an arguments node from a parameters or lambda_parameters node.
func (c *conv) params(n *sitter.Node) (*pyast.Node, error) {
	var args, kwonly, defaults, kwDefaults []pyast.Value
	var vararg, kwarg *pyast.Node
	afterStar := false
	if n == nil {
		return pyast.New(pyast.Arguments), nil
	}
	add := func(a *pyast.Node, def *pyast.Node) {
		if afterStar {
			kwonly = append(kwonly, a)
			if def != nil {
				kwDefaults = append(kwDefaults, def)
			} else {
				kwDefaults = append(kwDefaults, nil)
			}
			return
		}
		args = append(args, a)
		if def != nil {
			defaults = append(defaults, def)
		}
	}
	for _, p := range named(n) {
		switch p.Type() {
		case "identifier":
			add(c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(p))), p), nil)
		case "typed_parameter":
			kids := named(p)
			ann, err := c.typeExpr(p.ChildByFieldName("type"))
			if err != nil {
				return nil, err
			}
			switch kids[0].Type() {
			case "identifier":
				add(c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(kids[0])), ann), p), nil)
			case "list_splat_pattern":
				vararg = c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(named(kids[0])[0])), ann), p)
				afterStar = true
			case "dictionary_splat_pattern":
				kwarg = c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(named(kids[0])[0])), ann), p)
			}
		case "default_parameter", "typed_default_parameter":
			def, err := c.expr(p.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			var ann *pyast.Node
			if t := p.ChildByFieldName("type"); t != nil {
				if ann, err = c.typeExpr(t); err != nil {
					return nil, err
				}
			}
			a := c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(p.ChildByFieldName("name"))), ann), p)
			add(a, def)
		case "list_splat_pattern":
			vararg = c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(named(p)[0]))), p)
			afterStar = true
		case "dictionary_splat_pattern":
			kwarg = c.at(pyast.New(pyast.Arg, pyast.StrVal(c.ident(named(p)[0]))), p)
		case "keyword_separator":
			afterStar = true
		case "positional_separator":
		default:
			return nil, c.unsupported(p, "parameter "+p.Type())
		}
	}
	return pyast.New(pyast.Arguments,
		pyast.NewList(args...), vararg, pyast.NewList(kwonly...),
		pyast.NewList(kwDefaults...), kwarg, pyast.NewList(defaults...)), nil
}

func (c *conv) alias(n *sitter.Node) (*pyast.Node, error) {
	switch n.Type() {
	case "dotted_name":
		return c.at(pyast.New(pyast.Alias, pyast.StrVal(c.ident(n))), n), nil
	case "aliased_import":
		name := pyast.StrVal(c.ident(n.ChildByFieldName("name")))
		as := pyast.StrVal(c.ident(n.ChildByFieldName("alias")))
		return c.at(pyast.New(pyast.Alias, name, as), n), nil
	case "wildcard_import":
		return c.at(pyast.New(pyast.Alias, pyast.StrVal("*")), n), nil
	}
	return nil, c.unsupported(n, "import "+n.Type())
}

func (c *conv) importFrom(n *sitter.Node) (*pyast.Node, error) {
	modNode := n.ChildByFieldName("module_name")
	var module pyast.Value
	level := 0
	if modNode != nil {
		if modNode.Type() == "relative_import" {
			for i := 0; i < int(modNode.ChildCount()); i++ {
				ch := modNode.Child(i)
				switch ch.Type() {
				case "import_prefix":
					level = len(c.text(ch))
				case "dotted_name":
					module = pyast.StrVal(c.ident(ch))
				}
			}
		} else {
			module = pyast.StrVal(c.ident(modNode))
		}
	}
	var aliases []*pyast.Node
	for _, ch := range named(n) {
		if modNode != nil && ch.StartByte() == modNode.StartByte() {
			continue
		}
		a, err := c.alias(ch)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return c.at(pyast.New(pyast.ImportFrom, module, pyast.NodeList(aliases...), pyast.IntVal(level)), n), nil
}

func (c *conv) tryStmt(n *sitter.Node) (*pyast.Node, error) {
	body, err := c.body(n, "body")
	if err != nil {
		return nil, err
	}
	handlers := &pyast.ListVal{}
	orelse, final := &pyast.ListVal{}, &pyast.ListVal{}
	for _, ch := range named(n) {
		switch ch.Type() {
		case "except_clause":
			h, err := c.handler(ch)
			if err != nil {
				return nil, err
			}
			handlers.Append(h)
		case "else_clause":
			if orelse, err = c.body(ch, "body"); err != nil {
				return nil, err
			}
		case "finally_clause":
			kids := named(ch)
			if len(kids) > 0 {
				ss, err := c.stmts(kids[len(kids)-1])
				if err != nil {
					return nil, err
				}
				final = pyast.NodeList(ss...)
			}
		case "except_group_clause":
			return nil, c.unsupported(ch, "except*")
		}
	}
	return c.at(pyast.New(pyast.Try, body, handlers, orelse, final), n), nil
}

func (c *conv) handler(n *sitter.Node) (*pyast.Node, error) {
	var typ *pyast.Node
	var name pyast.Value
	var body *pyast.ListVal
	var exprs []*sitter.Node
	for _, ch := range named(n) {
		if ch.Type() == "block" {
			ss, err := c.stmts(ch)
			if err != nil {
				return nil, err
			}
			body = pyast.NodeList(ss...)
			continue
		}
		exprs = append(exprs, ch)
	}
	if len(exprs) > 0 {
		first := exprs[0]
		if first.Type() == "as_pattern" {
			kids := named(first)
			if len(kids) > 1 {
				name = pyast.StrVal(c.ident(innermost(kids[1])))
			}
			first = kids[0]
		}
		t, err := c.expr(first)
		if err != nil {
			return nil, err
		}
		typ = t
		if len(exprs) > 1 {
			name = pyast.StrVal(c.ident(exprs[1]))
		}
	}
	if body == nil {
		body = &pyast.ListVal{}
	}
	return c.at(pyast.New(pyast.ExceptHandler, typ, name, body), n), nil
}

// innermost unwraps single-child wrapper nodes such as as_pattern_target.
func innermost(n *sitter.Node) *sitter.Node {
	for {
		kids := named(n)
		if len(kids) != 1 || n.Type() == "identifier" {
			return n
		}
		n = kids[0]
	}
}

func (c *conv) withStmt(n *sitter.Node) (*pyast.Node, error) {
	items := &pyast.ListVal{}
	for _, ch := range named(n) {
		if ch.Type() != "with_clause" {
			continue
		}
		for _, it := range named(ch) {
			if it.Type() != "with_item" {
				continue
			}
			val := it.ChildByFieldName("value")
			if val == nil {
				val = named(it)[0]
			}
			var ctxExpr, vars *pyast.Node
			var err error
			if val.Type() == "as_pattern" {
				kids := named(val)
				if ctxExpr, err = c.expr(kids[0]); err != nil {
					return nil, err
				}
				if len(kids) > 1 {
					if vars, err = c.exprOrTuple(innermost(kids[1])); err != nil {
						return nil, err
					}
				}
			} else if ctxExpr, err = c.expr(val); err != nil {
				return nil, err
			}
			items.Append(c.at(pyast.New(pyast.WithItem, ctxExpr, vars), it))
		}
	}
	body, err := c.body(n, "body")
	if err != nil {
		return nil, err
	}
	return c.at(pyast.New(pyast.With, items, body), n), nil
}
