package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

// mapChildren replaces each direct child of n by fn's result. A nil result
// clears a single slot and drops a list item.
func mapChildren(n *pyast.Node, fn func(*pyast.Node) *pyast.Node) *pyast.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < n.NumFields(); i++ {
		switch x := n.At(i).(type) {
		case *pyast.Node:
			if x != nil {
				n.SetAt(i, fn(x))
			}
		case *pyast.ListVal:
			if x == nil {
				continue
			}
			items := make([]pyast.Value, 0, len(x.Items))
			for _, it := range x.Items {
				c, ok := it.(*pyast.Node)
				if !ok || c == nil {
					items = append(items, it)
					continue
				}
				if r := fn(c); r != nil {
					items = append(items, r)
				}
			}
			x.Items = items
			n.Invalidate()
		}
	}
	return n
}

// setBody stores stmts in a list field.
func setBody(n *pyast.Node, field string, stmts []*pyast.Node) {
	n.Set(field, pyast.NodeList(stmts...))
}

// blockFields are the statement lists a compound statement owns.
func blockFields(n *pyast.Node) []string {
	switch n.Kind {
	case pyast.Module, pyast.FunctionDef, pyast.With, pyast.ExceptHandler:
		return []string{"body"}
	case pyast.For, pyast.While, pyast.If:
		return []string{"body", "orelse"}
	case pyast.Try:
		return []string{"body", "orelse", "finalbody"}
	}
	return nil
}

// eachBlock applies fn to every statement list of n, handlers included.
func eachBlock(n *pyast.Node, fn func([]*pyast.Node) []*pyast.Node) {
	for _, f := range blockFields(n) {
		setBody(n, f, fn(n.ListField(f).Nodes()))
	}
	if n.Is(pyast.Try) {
		for _, h := range n.ListField("handlers").Nodes() {
			setBody(h, "body", fn(h.Body().Nodes()))
		}
	}
}

func isBoolConst(n *pyast.Node) (bool, bool) {
	if !n.Is(pyast.NameConstant) {
		return false, false
	}
	b, ok := n.Field("value").(pyast.BoolVal)
	return bool(b), ok
}

func isNone(n *pyast.Node) bool {
	return n.Is(pyast.NameConstant) && n.Field("value") == nil
}

// loaded returns a fresh read of an assignment target.
func loaded(t *pyast.Node) *pyast.Node {
	return pyast.Copy(t)
}

func notOf(n *pyast.Node) *pyast.Node {
	op := pyast.Op(pyast.Not).Tagged(pyast.TagAddedNotOp)
	return pyast.New(pyast.UnaryOp, op, n)
}

// usedNames lists the names n reads. Plain names on the left of an
// assignment are writes and are left out.
func usedNames(n *pyast.Node) []string {
	var out []string
	var visit func(*pyast.Node)
	visit = func(x *pyast.Node) {
		if x == nil {
			return
		}
		switch x.Kind {
		case pyast.Name:
			out = append(out, x.Ident("id"))
			return
		case pyast.Assign:
			visit(x.Child("value"))
			for _, t := range x.ListField("targets").Nodes() {
				switch t.Kind {
				case pyast.Name:
				case pyast.Tuple, pyast.List:
					for _, e := range t.ListField("elts").Nodes() {
						if !e.Is(pyast.Name) {
							visit(e)
						}
					}
				default:
					visit(t)
				}
			}
			return
		}
		for _, c := range pyast.Children(x) {
			visit(c)
		}
	}
	visit(n)
	return out
}

func usedNamesIn(stmts []*pyast.Node) []string {
	var out []string
	for _, s := range stmts {
		out = append(out, usedNames(s)...)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// targetNames returns the variables a loop target rebinds, counting the base
// of a subscript target.
func targetNames(t *pyast.Node) []string {
	var out []string
	for _, v := range astutil.AssignedVars(t) {
		switch {
		case v.Is(pyast.Name):
			out = append(out, v.Ident("id"))
		case v.Is(pyast.Subscript) || v.Is(pyast.Attribute):
			if id := pyast.NameID(v.Child("value")); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

func newPass(id pyast.ID) *pyast.Node {
	p := pyast.New(pyast.Pass).Tagged(pyast.TagRemovedLines)
	p.ID = id
	return p
}

func firstID(stmts []*pyast.Node) pyast.ID {
	if len(stmts) == 0 {
		return 0
	}
	return stmts[0].ID
}

func splice(list []*pyast.Node, i, n int, with ...*pyast.Node) []*pyast.Node {
	out := make([]*pyast.Node, 0, len(list)-n+len(with))
	out = append(out, list[:i]...)
	out = append(out, with...)
	return append(out, list[i+n:]...)
}
