package astutil

import (
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// CouldCrash reports whether evaluating n may raise at runtime under the types
// inferred so far. It errs on the side of true.
func CouldCrash(n *pyast.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == pyast.Try {
		// the try body is guarded; handlers and trailing blocks are not
		for _, field := range []string{"handlers", "orelse", "finalbody"} {
			for _, stmt := range n.ListField(field).Nodes() {
				for _, c := range pyast.Children(stmt) {
					if CouldCrash(c) {
						return true
					}
				}
			}
		}
		return false
	}
	for _, c := range pyast.Children(n) {
		if CouldCrash(c) {
			return true
		}
	}
	return selfCrashes(n)
}

// CouldCrashAny reports whether any node of the list could crash.
func CouldCrashAny(l *pyast.ListVal) bool {
	for _, n := range l.Nodes() {
		if CouldCrash(n) {
			return true
		}
	}
	return false
}

func isNumeric(t pyast.Type) bool { return t == pyast.TypeInt || t == pyast.TypeFloat }

func selfCrashes(n *pyast.Node) bool {
	switch n.Kind {
	case pyast.FunctionDef:
		seen := map[string]bool{}
		for _, a := range n.Child("args").ListField("args").Nodes() {
			if seen[a.Ident("arg")] {
				return true
			}
			seen[a.Ident("arg")] = true
		}
	case pyast.Assign:
		for _, t := range n.ListField("targets").Nodes() {
			if !t.Is(pyast.Name) {
				return true
			}
		}
	case pyast.For, pyast.Comprehension:
		target := n.Child("target")
		switch {
		case target.Is(pyast.Tuple), target.Is(pyast.List):
			for _, e := range target.ListField("elts").Nodes() {
				if !e.Is(pyast.Name) {
					return true
				}
			}
			return false
		case !target.Is(pyast.Name):
			return true
		}
		t := EventualType(n.Child("iter"))
		return !(t.IsIterable() || t == pyast.TypeRange)
	case pyast.Import:
		for _, a := range n.ListField("names").Nodes() {
			if !names.Contains(names.SupportedLibraries, a.Ident("name")) {
				return true
			}
		}
	case pyast.ImportFrom:
		mod := n.Ident("module")
		if !names.Contains(names.SupportedLibraries, mod) {
			return true
		}
		if lvl, _ := n.Field("level").(pyast.IntVal); lvl != 0 {
			return true
		}
		for _, a := range n.ListField("names").Nodes() {
			if !names.IsLibraryMember(mod, a.Ident("name")) {
				return true
			}
		}
	case pyast.BinOp:
		return binOpCrashes(n)
	case pyast.UnaryOp:
		t := EventualType(n.Child("operand"))
		switch n.Op() {
		case pyast.UAdd, pyast.USub:
			return !isNumeric(t)
		case pyast.Invert:
			return t != pyast.TypeInt
		}
	case pyast.Compare:
		return compareCrashes(n)
	case pyast.Call:
		return callCrashes(n)
	case pyast.Subscript:
		switch EventualType(n.Child("value")) {
		case pyast.TypeStr, pyast.TypeList, pyast.TypeTuple:
			return false
		}
		return true
	case pyast.Name:
		return n.Tags.Has(pyast.TagRandomVar)
	case pyast.Slice:
		for _, f := range []string{"lower", "upper", "step"} {
			if c := n.Child(f); c != nil && EventualType(c) != pyast.TypeInt {
				return true
			}
		}
	case pyast.Raise, pyast.Assert, pyast.Pass, pyast.Break, pyast.Continue,
		pyast.Attribute, pyast.Starred:
		return true
	}
	return false
}

func binOpCrashes(n *pyast.Node) bool {
	l, r := EventualType(n.Child("left")), EventualType(n.Child("right"))
	switch n.Op() {
	case pyast.Add:
		return !((l == pyast.TypeStr && r == pyast.TypeStr) || (isNumeric(l) && isNumeric(r)))
	case pyast.Mult:
		return !((l == pyast.TypeStr && r == pyast.TypeInt) || (l == pyast.TypeInt && r == pyast.TypeStr) ||
			(isNumeric(l) && isNumeric(r)))
	case pyast.Sub, pyast.LShift, pyast.RShift, pyast.BitOr, pyast.BitXor, pyast.BitAnd:
		return !(isNumeric(l) && isNumeric(r))
	case pyast.Pow:
		if isNumeric(l) && r == pyast.TypeInt {
			return false
		}
		if isNumeric(l) {
			if v, ok := pyast.NumValue(n.Child("right")); ok {
				f, _ := toFloat(v)
				return !(f >= 1 || f == 0 || f <= -1)
			}
		}
		return true
	}
	// Div, FloorDiv, Mod
	if v, ok := pyast.NumValue(n.Child("right")); ok && truthy(v) {
		return !isNumeric(l)
	}
	return true
}

func compareCrashes(n *pyast.Node) bool {
	ops := n.ListField("ops").Nodes()
	comps := n.ListField("comparators").Nodes()
	if len(ops) != len(comps) || len(ops) == 0 {
		return true
	}
	switch ops[0].Kind {
	case pyast.In, pyast.NotIn:
		ct := EventualType(comps[0])
		if !ct.IsIterable() {
			return true
		}
		if ct == pyast.TypeStr || ct == pyast.TypeBytes {
			lt := EventualType(n.Child("left"))
			return lt != pyast.TypeStr && lt != pyast.TypeBytes
		}
	case pyast.Lt, pyast.LtE, pyast.Gt, pyast.GtE:
		first := EventualType(n.Child("left"))
		if first == pyast.TypeUnknown {
			return true
		}
		for _, c := range comps {
			if EventualType(c) != first {
				return true
			}
		}
	}
	return false
}

func callCrashes(n *pyast.Node) bool {
	callee := n.Child("func")
	var table names.Table
	var fn string
	switch {
	case callee.Is(pyast.Name):
		fn = callee.Ident("id")
		if !names.Contains(names.BuiltinSafeFunctions, fn) {
			return true
		}
		table = names.BuiltinFunctions
	case callee.Is(pyast.Attribute):
		fn = callee.Ident("attr")
		recv := callee.Child("value")
		switch {
		case IsLibraryRef(recv):
			lib := recv.Ident("id")
			if !names.IsSafeLibraryMember(lib, fn) {
				return true
			}
			table = names.LibraryTables[lib]
		case EventualType(recv) == pyast.TypeStr:
			if !names.Contains(names.SafeStringFunctions, fn) {
				return true
			}
			table = names.StringFunctions
		default:
			return true
		}
	default:
		return true
	}

	if fn == "max" || fn == "min" {
		return false
	}
	var args []pyast.Type
	for _, a := range n.ListField("args").Nodes() {
		t := EventualType(a)
		if t == pyast.TypeUnknown {
			return true
		}
		args = append(args, t)
	}
	sigs, ok := table[fn]
	if !ok || sigs == nil {
		return false
	}
	results, _ := table.Lookup(fn, args, false)
	return len(results) == 0
}

// CrashesOn lists the outermost subexpressions of n that may raise.
func CrashesOn(n *pyast.Node) []*pyast.Node {
	if n == nil {
		return nil
	}
	if selfCrashes(n) {
		return []*pyast.Node{n}
	}
	var out []*pyast.Node
	for _, c := range pyast.Children(n) {
		out = append(out, CrashesOn(c)...)
	}
	return out
}
