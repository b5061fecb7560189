// Package astutil holds the analyses the canonicalizer and the individualizer share:
// eventual-type inference, fault analysis, constant evaluation, negation and the
// name-gathering helpers.
package astutil

import (
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// EventualType infers the type an expression evaluates to, TypeUnknown when it
// cannot be stated. Whether the expression may raise is not considered here.
func EventualType(n *pyast.Node) pyast.Type {
	if n == nil {
		return pyast.TypeUnknown
	}
	switch n.Kind {
	case pyast.BoolOp:
		values := n.ListField("values").Nodes()
		if len(values) == 0 {
			return pyast.TypeUnknown
		}
		t := EventualType(values[0])
		for _, v := range values[1:] {
			if EventualType(v) != t {
				return pyast.TypeUnknown
			}
		}
		return t
	case pyast.BinOp:
		return binOpType(n)
	case pyast.UnaryOp:
		switch n.Op() {
		case pyast.Invert:
			return pyast.TypeInt
		case pyast.UAdd, pyast.USub:
			return EventualType(n.Child("operand"))
		}
		return pyast.TypeBool
	case pyast.Lambda:
		return pyast.TypeFunc
	case pyast.IfExp:
		l, r := EventualType(n.Child("body")), EventualType(n.Child("orelse"))
		if l == r {
			return l
		}
		return pyast.TypeUnknown
	case pyast.Dict, pyast.DictComp:
		return pyast.TypeDict
	case pyast.Set, pyast.SetComp:
		return pyast.TypeSet
	case pyast.List, pyast.ListComp:
		return pyast.TypeList
	case pyast.GeneratorExp:
		return pyast.TypeUnknown
	case pyast.Compare:
		return pyast.TypeBool
	case pyast.Call:
		return callType(n)
	case pyast.Str:
		if ContainsTokenStep(n) {
			return pyast.TypeUnknown
		}
		return pyast.TypeStr
	case pyast.Bytes:
		return pyast.TypeBytes
	case pyast.Num:
		switch n.Field("n").(type) {
		case pyast.IntVal:
			return pyast.TypeInt
		case pyast.FloatVal:
			return pyast.TypeFloat
		case pyast.BoolVal:
			return pyast.TypeBool
		}
		return pyast.TypeUnknown
	case pyast.Attribute:
		return pyast.TypeUnknown
	case pyast.Subscript:
		return subscriptType(n)
	case pyast.NameConstant:
		switch n.Field("value").(type) {
		case pyast.BoolVal:
			return pyast.TypeBool
		case nil:
			return pyast.TypeNone
		}
		return pyast.TypeUnknown
	case pyast.Name:
		if n.Meta.Type == pyast.TypeMixed {
			return pyast.TypeUnknown
		}
		return n.Meta.Type
	case pyast.Tuple:
		return pyast.TypeTuple
	}
	return pyast.TypeUnknown
}

func binOpType(n *pyast.Node) pyast.Type {
	l, r := EventualType(n.Child("left")), EventualType(n.Child("right"))
	switch n.Op() {
	case pyast.Add, pyast.Mult:
		switch {
		case l.IsIterable():
			return l
		case r.IsIterable():
			return r
		case l == pyast.TypeFloat || r == pyast.TypeFloat:
			return pyast.TypeFloat
		case l == pyast.TypeInt && r == pyast.TypeInt:
			return pyast.TypeInt
		}
		return pyast.TypeUnknown
	case pyast.Div:
		return pyast.TypeFloat
	case pyast.FloorDiv, pyast.LShift, pyast.RShift, pyast.BitOr, pyast.BitAnd, pyast.BitXor:
		return pyast.TypeInt
	}
	switch {
	case l == pyast.TypeFloat || r == pyast.TypeFloat:
		return pyast.TypeFloat
	case l == pyast.TypeInt && r == pyast.TypeInt:
		return pyast.TypeInt
	}
	return pyast.TypeUnknown
}

func subscriptType(n *pyast.Node) pyast.Type {
	value := n.Child("value")
	t := EventualType(value)
	switch t {
	case pyast.TypeStr:
		return pyast.TypeStr
	case pyast.TypeList, pyast.TypeTuple:
		if n.Child("slice").Is(pyast.Slice) {
			return t
		}
		if value.Is(pyast.List) || value.Is(pyast.Tuple) {
			elts := value.ListField("elts").Nodes()
			if len(elts) == 0 {
				return pyast.TypeUnknown
			}
			first := EventualType(elts[0])
			for _, e := range elts[1:] {
				if EventualType(e) != first {
					return pyast.TypeUnknown
				}
			}
			return first
		}
	}
	return pyast.TypeUnknown
}

// calleeTable resolves which signature table a call goes through and the
// argument types to match against it.
func calleeTable(n *pyast.Node) (table names.Table, fn string, args []pyast.Type, ok bool) {
	for _, a := range n.ListField("args").Nodes() {
		args = append(args, EventualType(a))
	}
	callee := n.Child("func")
	switch {
	case callee.Is(pyast.Name):
		return names.BuiltinFunctions, callee.Ident("id"), args, true
	case callee.Is(pyast.Attribute):
		fn = callee.Ident("attr")
		recv := callee.Child("value")
		if IsLibraryRef(recv) {
			lib := recv.Ident("id")
			if lib == "string" && len(args) > 0 {
				args = args[1:]
			}
			return names.LibraryTables[lib], fn, args, true
		}
		switch EventualType(recv) {
		case pyast.TypeStr:
			return names.StringFunctions, fn, args, true
		case pyast.TypeList:
			return names.ListFunctions, fn, args, true
		case pyast.TypeDict:
			return names.DictFunctions, fn, args, true
		}
	}
	return nil, "", nil, false
}

func callType(n *pyast.Node) pyast.Type {
	table, fn, args, ok := calleeTable(n)
	if !ok {
		return pyast.TypeUnknown
	}
	if fn == "max" || fn == "min" {
		if len(args) == 0 {
			return pyast.TypeUnknown
		}
		for _, a := range args[1:] {
			if a != args[0] {
				return pyast.TypeUnknown
			}
		}
		return args[0]
	}
	results, known := table.Lookup(fn, args, true)
	if !known || len(results) != 1 {
		return pyast.TypeUnknown
	}
	switch results[0] {
	case pyast.TypeObject, pyast.TypeIterable:
		return pyast.TypeUnknown
	}
	return results[0]
}

// IsLibraryRef reports a plain reference to a supported library module, as
// opposed to a variable that happens to share the module's name.
func IsLibraryRef(n *pyast.Node) bool {
	return n.Is(pyast.Name) && n.Meta.VarID == 0 && names.Contains(names.SupportedLibraries, n.Ident("id"))
}
