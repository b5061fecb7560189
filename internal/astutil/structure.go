package astutil

import "hintgen/internal/pyast"

func placeholder(s string) *pyast.Node { return pyast.NewStr("~" + s + "~") }

// StructureTree returns a copy of n with names, literals and operators replaced by
// ~placeholder~ strings, keeping only the shape of the code.
func StructureTree(n *pyast.Node) *pyast.Node {
	if n == nil {
		return nil
	}
	return structure(pyast.Copy(n))
}

func structureList(l *pyast.ListVal) {
	for i, it := range l.Items {
		if c, ok := it.(*pyast.Node); ok && c != nil {
			l.Items[i] = structure(c)
		}
	}
}

func structure(n *pyast.Node) *pyast.Node {
	if n.Kind.IsOperator() {
		return placeholder("op")
	}
	switch n.Kind {
	case pyast.Num:
		return placeholder("number")
	case pyast.Str:
		return placeholder("string")
	case pyast.Bytes:
		return placeholder("bytes")
	case pyast.Dict:
		return placeholder("dictionary")
	case pyast.Set:
		return placeholder("set")
	case pyast.List:
		return placeholder("list")
	case pyast.Tuple:
		return placeholder("tuple")
	case pyast.Name:
		n.Set("id", pyast.StrVal("~var~"))
		return n
	case pyast.FunctionDef:
		n.Set("name", pyast.StrVal("~name~"))
	case pyast.Import:
		n.Set("names", pyast.NodeList(placeholder("module")))
		return n
	case pyast.ImportFrom:
		n.Set("module", pyast.StrVal("~module~"))
		n.Set("names", pyast.NodeList(placeholder("names")))
		return n
	case pyast.Global:
		n.Set("names", pyast.NewList(pyast.StrVal("~var~")))
		return n
	case pyast.Call:
		// the callee stays readable
		structureList(n.ListField("args"))
		structureList(n.ListField("keywords"))
		return n
	case pyast.Arguments:
		for _, f := range []string{"args", "kwonlyargs", "kw_defaults", "defaults"} {
			structureList(n.ListField(f))
		}
		if n.Child("vararg") != nil {
			n.Set("vararg", pyast.New(pyast.Arg, pyast.StrVal("~arg~")))
		}
		if n.Child("kwarg") != nil {
			n.Set("kwarg", pyast.New(pyast.Arg, pyast.StrVal("~keyword~")))
		}
		return n
	case pyast.Arg:
		n.Set("arg", pyast.StrVal("~arg~"))
	case pyast.Keyword:
		n.Set("arg", pyast.StrVal("~keyword~"))
	case pyast.Alias:
		n.Set("name", pyast.StrVal("~name~"))
		if n.Ident("asname") != "" {
			n.Set("asname", pyast.StrVal("~asname~"))
		}
		return n
	}
	for i := 0; i < n.NumFields(); i++ {
		switch x := n.At(i).(type) {
		case *pyast.Node:
			if x != nil {
				n.SetAt(i, structure(x))
			}
		case *pyast.ListVal:
			structureList(x)
		}
	}
	n.Invalidate()
	return n
}
