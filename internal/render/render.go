// Package render prints pyast trees back to Python source.
//
// Output re-parses to a structurally equal tree for anything the parser produced.
// Parentheses are emitted only where precedence requires them.
package render

import (
	"strings"

	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// Options control the layout of rendered code.
type Options struct {
	IndentWidth int
	UseTabs     bool
	// Placeholders prints ~token~ strings bare, for structure-only views.
	Placeholders bool
}

func (o Options) withDefaults() Options {
	if o.IndentWidth == 0 {
		o.IndentWidth = 4
	}
	return o
}

type printer struct {
	w   *Writer
	opt Options
}

// Source renders a module, statement list, statement or expression with default options.
func Source(v pyast.Value) string { return Options{}.Source(v) }

// Source renders v with these options.
func (o Options) Source(v pyast.Value) string {
	p := &printer{w: NewWriter(o), opt: o.withDefaults()}
	switch x := v.(type) {
	case *pyast.Node:
		if x == nil {
			return ""
		}
		switch {
		case x.Is(pyast.Module):
			p.block(x.Body(), false)
		case x.Kind.IsStmt():
			p.stmt(x)
		case x.Kind == pyast.ExceptHandler:
			p.handler(x)
		default:
			p.expr(x, precLowest)
		}
	case *pyast.ListVal:
		for _, it := range x.Items {
			if n, ok := it.(*pyast.Node); ok && n != nil {
				if n.Kind.IsStmt() {
					p.stmt(n)
				} else {
					p.expr(n, precLowest)
					p.w.Newline()
				}
			}
		}
	default:
		return pyast.FormatPrim(v)
	}
	return p.w.String()
}

// Expr renders a single expression.
func Expr(n *pyast.Node) string { return Source(n) }

func (p *printer) write(s string) { p.w.WriteString(s) }

// block prints a suite; an empty suite becomes pass when required.
func (p *printer) block(l *pyast.ListVal, required bool) {
	stmts := l.Nodes()
	if len(stmts) == 0 && required {
		p.write("pass")
		p.w.Newline()
		return
	}
	for _, s := range stmts {
		p.stmt(s)
	}
}

func (p *printer) suite(l *pyast.ListVal) {
	p.write(":")
	p.w.Newline()
	p.w.IndentPush()
	p.block(l, true)
	p.w.IndentPop()
}

func (p *printer) stmt(n *pyast.Node) {
	switch n.Kind {
	case pyast.FunctionDef:
		for _, d := range n.ListField("decorator_list").Nodes() {
			p.write("@")
			p.expr(d, precLowest)
			p.w.Newline()
		}
		p.write("def " + n.Ident("name") + "(")
		p.arguments(n.Child("args"))
		p.write(")")
		if r := n.Child("returns"); r != nil {
			p.write(" -> ")
			p.expr(r, precLowest)
		}
		p.suite(n.Body())
		return
	case pyast.Return:
		p.write("return")
		if v := n.Child("value"); v != nil {
			p.write(" ")
			p.exprBare(v)
		}
	case pyast.Delete:
		p.write("del ")
		p.commaList(n.ListField("targets").Nodes(), precTest)
	case pyast.Assign:
		for _, t := range n.ListField("targets").Nodes() {
			p.exprBare(t)
			p.write(" = ")
		}
		p.exprBare(n.Child("value"))
	case pyast.AugAssign:
		p.expr(n.Child("target"), precAtom)
		p.write(" " + p.opText(n.Child("op")) + "= ")
		p.exprBare(n.Child("value"))
	case pyast.For:
		p.write("for ")
		p.exprBare(n.Child("target"))
		p.write(" in ")
		p.exprBare(n.Child("iter"))
		p.suite(n.Body())
		p.elseSuite(n.Orelse())
		return
	case pyast.While:
		p.write("while ")
		p.expr(n.Child("test"), precLowest)
		p.suite(n.Body())
		p.elseSuite(n.Orelse())
		return
	case pyast.If:
		p.write("if ")
		p.expr(n.Child("test"), precLowest)
		p.suite(n.Body())
		branch := n.Orelse()
		for branch.Len() == 1 && branch.Node(0).Is(pyast.If) {
			elif := branch.Node(0)
			p.write("elif ")
			p.expr(elif.Child("test"), precLowest)
			p.suite(elif.Body())
			branch = elif.Orelse()
		}
		p.elseSuite(branch)
		return
	case pyast.With:
		p.write("with ")
		for i, it := range n.ListField("items").Nodes() {
			if i > 0 {
				p.write(", ")
			}
			p.expr(it.Child("context_expr"), precTest)
			if v := it.Child("optional_vars"); v != nil {
				p.write(" as ")
				p.expr(v, precAtom)
			}
		}
		p.suite(n.Body())
		return
	case pyast.Raise:
		p.write("raise")
		if e := n.Child("exc"); e != nil {
			p.write(" ")
			p.expr(e, precTest)
			if c := n.Child("cause"); c != nil {
				p.write(" from ")
				p.expr(c, precTest)
			}
		}
	case pyast.Try:
		p.write("try")
		p.suite(n.Body())
		for _, h := range n.ListField("handlers").Nodes() {
			p.handler(h)
		}
		p.elseSuite(n.Orelse())
		if f := n.ListField("finalbody"); f.Len() > 0 {
			p.write("finally")
			p.suite(f)
		}
		return
	case pyast.Assert:
		p.write("assert ")
		p.expr(n.Child("test"), precTest)
		if m := n.Child("msg"); m != nil {
			p.write(", ")
			p.expr(m, precTest)
		}
	case pyast.Import:
		p.write("import ")
		p.aliases(n.ListField("names").Nodes())
	case pyast.ImportFrom:
		lvl, _ := n.Field("level").(pyast.IntVal)
		p.write("from " + strings.Repeat(".", int(lvl)) + n.Ident("module") + " import ")
		p.aliases(n.ListField("names").Nodes())
	case pyast.Global:
		var ids []string
		for _, it := range n.ListField("names").Items {
			if s, ok := it.(pyast.StrVal); ok {
				ids = append(ids, string(s))
			}
		}
		p.write("global " + strings.Join(ids, ", "))
	case pyast.Expr:
		p.exprBare(n.Child("value"))
	case pyast.Pass:
		p.write("pass")
	case pyast.Break:
		p.write("break")
	case pyast.Continue:
		p.write("continue")
	default:
		p.expr(n, precLowest)
	}
	p.w.Newline()
}

func (p *printer) elseSuite(l *pyast.ListVal) {
	if l.Len() == 0 {
		return
	}
	p.write("else")
	p.suite(l)
}

func (p *printer) handler(h *pyast.Node) {
	p.write("except")
	if t := h.Child("type"); t != nil {
		p.write(" ")
		p.expr(t, precTest)
		if name := h.Ident("name"); name != "" {
			p.write(" as " + name)
		}
	}
	p.suite(h.Body())
}

func (p *printer) aliases(as []*pyast.Node) {
	for i, a := range as {
		if i > 0 {
			p.write(", ")
		}
		if a.Is(pyast.Str) {
			p.expr(a, precAtom)
			continue
		}
		p.write(a.Ident("name"))
		if as := a.Ident("asname"); as != "" {
			p.write(" as " + as)
		}
	}
}

func (p *printer) arguments(a *pyast.Node) {
	if a == nil {
		return
	}
	var parts []func()
	args := a.ListField("args").Nodes()
	defaults := a.ListField("defaults").Nodes()
	start := len(args) - len(defaults)
	for i, arg := range args {
		parts = append(parts, func() {
			p.arg(arg)
			if i >= start {
				p.write("=")
				p.expr(defaults[i-start], precTest)
			}
		})
	}
	kwonly := a.ListField("kwonlyargs").Nodes()
	if v := a.Child("vararg"); v != nil {
		parts = append(parts, func() { p.write("*"); p.arg(v) })
	} else if len(kwonly) > 0 {
		parts = append(parts, func() { p.write("*") })
	}
	kwDefaults := a.ListField("kw_defaults")
	for i, arg := range kwonly {
		parts = append(parts, func() {
			p.arg(arg)
			if d := kwDefaults.Node(i); d != nil {
				p.write("=")
				p.expr(d, precTest)
			}
		})
	}
	if k := a.Child("kwarg"); k != nil {
		parts = append(parts, func() { p.write("**"); p.arg(k) })
	}
	for i, part := range parts {
		if i > 0 {
			p.write(", ")
		}
		part()
	}
}

func (p *printer) arg(a *pyast.Node) {
	if a.Is(pyast.Str) {
		p.expr(a, precAtom)
		return
	}
	p.write(a.Ident("arg"))
	if ann := a.Child("annotation"); ann != nil {
		p.write(": ")
		p.expr(ann, precTest)
	}
}

func (p *printer) commaList(ns []*pyast.Node, prec int) {
	for i, n := range ns {
		if i > 0 {
			p.write(", ")
		}
		p.expr(n, prec)
	}
}

// exprBare prints a tuple without its parentheses where a statement allows it.
func (p *printer) exprBare(n *pyast.Node) {
	if n.Is(pyast.Tuple) && n.ListField("elts").Len() > 1 {
		p.commaList(n.ListField("elts").Nodes(), precTest)
		return
	}
	p.expr(n, precLowest)
}

// opText returns the source spelling of an operator node, or the placeholder it was replaced by.
func (p *printer) opText(op *pyast.Node) string {
	if op.Is(pyast.Str) {
		return op.Ident("s")
	}
	if s, ok := opSpelling[op.Kind]; ok {
		return s
	}
	return names.Label(op.Kind)
}
