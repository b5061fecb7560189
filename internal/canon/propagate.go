package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// liveVars maps a variable to the value it currently holds, for values that
// are safe to copy into later reads.
type liveVars map[string]*pyast.Node

func (l liveVars) clone() liveVars {
	out := make(liveVars, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// kill forgets id and every value that reads it.
func (l liveVars) kill(id string) {
	if id == "" {
		return
	}
	delete(l, id)
	for k, v := range l {
		if contains(usedNames(v), id) {
			delete(l, k)
		}
	}
}

// killMutable forgets the non-primitive variables a call may change.
func (l liveVars) killMutable(call *pyast.Node) {
	pyast.Inspect(call, func(x *pyast.Node) bool {
		if x.Is(pyast.Name) && !isPrimitive(astutil.EventualType(x)) {
			l.kill(x.Ident("id"))
		}
		return true
	})
}

func isPrimitive(t pyast.Type) bool {
	switch t {
	case pyast.TypeInt, pyast.TypeFloat, pyast.TypeBool, pyast.TypeStr:
		return true
	}
	return false
}

func isSimple(t pyast.Type) bool {
	switch t {
	case pyast.TypeInt, pyast.TypeFloat, pyast.TypeComplex, pyast.TypeBytes, pyast.TypeBool, pyast.TypeNone:
		return true
	}
	return false
}

var staticMethods = map[string][]string{
	"list": {"index", "count"},
	"dict": {"get", "items", "keys", "values"},
}

// isMutating reports whether a call might change program state.
func isMutating(call *pyast.Node) bool {
	callee := call.Child("func")
	switch {
	case callee.Is(pyast.Name):
		_, ok := names.BuiltinFunctions[callee.Ident("id")]
		return !ok
	case callee.Is(pyast.Attribute):
		fn := callee.Ident("attr")
		recv := callee.Child("value")
		lib := pyast.NameID(recv)
		if lib == "" || (lib != "math" && lib != "string" && lib != "str" && lib != "list" && lib != "dict") {
			switch astutil.EventualType(recv) {
			case pyast.TypeStr:
				lib = "str"
			case pyast.TypeList:
				lib = "list"
			case pyast.TypeDict:
				lib = "dict"
			default:
				return true
			}
		}
		switch lib {
		case "math":
			_, ok := names.MathFunctions[fn]
			return !ok
		case "string", "str":
			_, ok := names.StringFunctions[fn]
			return !ok
		}
		return !contains(staticMethods[lib], fn)
	}
	return true
}

// copyPropagation replaces reads of variables with the values they were last
// given, within straight-line code where that value cannot have changed.
func (r *run) copyPropagation(mod *pyast.Node) *pyast.Node {
	setBody(mod, "body", r.propStmts(mod.Body().Nodes(), liveVars{}, false))
	return mod
}

func (r *run) propStmts(a []*pyast.Node, live liveVars, inLoop bool) []*pyast.Node {
	for _, stmt := range a {
		switch stmt.Kind {
		case pyast.FunctionDef:
			setBody(stmt, "body", r.propStmts(stmt.Body().Nodes(), liveVars{}, false))
		case pyast.Assign:
			stmt.Set("value", propValues(stmt.Child("value"), live))
			r.propAssign(stmt, live, inLoop)
		case pyast.AugAssign:
			stmt.Set("value", propValues(stmt.Child("value"), live))
			for _, id := range targetNames(stmt.Child("target")) {
				live.kill(id)
			}
		case pyast.For:
			if !stmt.Child("iter").Is(pyast.Name) {
				stmt.Set("iter", propValues(stmt.Child("iter"), live))
			}
			for _, id := range targetNames(stmt.Child("target")) {
				live.kill(id)
			}
			clearBlockVars(stmt, live)
			setBody(stmt, "body", r.propStmts(stmt.Body().Nodes(), live.clone(), true))
			setBody(stmt, "orelse", r.propStmts(stmt.Orelse().Nodes(), live.clone(), true))
		case pyast.While:
			clearBlockVars(stmt, live)
			stmt.Set("test", propValues(stmt.Child("test"), live))
			setBody(stmt, "body", r.propStmts(stmt.Body().Nodes(), live.clone(), true))
			setBody(stmt, "orelse", r.propStmts(stmt.Orelse().Nodes(), live.clone(), true))
		case pyast.If:
			stmt.Set("test", propValues(stmt.Child("test"), live))
			l1, l2 := live.clone(), live.clone()
			setBody(stmt, "body", r.propStmts(stmt.Body().Nodes(), l1, inLoop))
			setBody(stmt, "orelse", r.propStmts(stmt.Orelse().Nodes(), l2, inLoop))
			for k := range live {
				delete(live, k)
			}
			for k, v := range l1 {
				if w, ok := l2[k]; ok && pyast.CompareValues(v, w, true) == 0 {
					live[k] = v
				}
			}
		case pyast.Try:
			// handlers may start anywhere in the body
			clearBlockVars(stmt, live)
			eachBlock(stmt, func(b []*pyast.Node) []*pyast.Node {
				return r.propStmts(b, live.clone(), inLoop)
			})
		case pyast.With:
			clearBlockVars(stmt, live)
			setBody(stmt, "body", r.propStmts(stmt.Body().Nodes(), live, inLoop))
		case pyast.Return, pyast.Raise, pyast.Assert, pyast.Expr:
			mapChildren(stmt, func(x *pyast.Node) *pyast.Node { return propValues(x, live) })
		case pyast.Break, pyast.Continue:
			return a
		case pyast.Import, pyast.ImportFrom, pyast.Global, pyast.Pass, pyast.Delete:
		default:
			r.unknown(stmt, "copyPropagation")
		}
	}
	return a
}

func (r *run) propAssign(stmt *pyast.Node, live liveVars, inLoop bool) {
	value := stmt.Child("value")
	target := stmt.ListField("targets").Node(0)
	switch target.Kind {
	case pyast.Name:
		id := target.Ident("id")
		live.kill(id)
		t := astutil.EventualType(value)
		if !inLoop && !astutil.CouldCrash(value) && (isPrimitive(t) || t == pyast.TypeTuple) &&
			!contains(usedNames(value), id) {
			live[id] = value
		}
	case pyast.Subscript, pyast.Attribute:
		live.kill(pyast.NameID(target.Child("value")))
	case pyast.Tuple, pyast.List:
		elts := target.ListField("elts").Nodes()
		for _, id := range targetNames(target) {
			live.kill(id)
		}
		if !value.Is(pyast.Tuple) && !value.Is(pyast.List) {
			return
		}
		vals := value.ListField("elts").Nodes()
		if len(vals) != len(elts) || inLoop {
			return
		}
		assigned := targetNames(target)
		for j, e := range elts {
			if !e.Is(pyast.Name) || astutil.CouldCrash(vals[j]) || !isPrimitive(astutil.EventualType(vals[j])) {
				continue
			}
			clash := false
			for _, u := range usedNames(vals[j]) {
				clash = clash || contains(assigned, u)
			}
			if !clash {
				live[e.Ident("id")] = vals[j]
			}
		}
	default:
		r.unknown(target, "copyPropagation")
	}
}

// propValues substitutes live values for the variables a reads.
func propValues(a *pyast.Node, live liveVars) *pyast.Node {
	if a == nil || len(live) == 0 {
		return a
	}
	switch a.Kind {
	case pyast.Name:
		val, ok := live[a.Ident("id")]
		if !ok {
			return a
		}
		out := pyast.Copy(val).Tagged(pyast.TagLoadedVariable)
		out.Meta.VarGlobalID = a.ID
		for _, c := range pyast.Children(out) {
			pyast.Inspect(c, func(x *pyast.Node) bool {
				x.Tagged(pyast.TagPropagatedVariable)
				x.Meta.VarGlobalID = a.ID
				return true
			})
		}
		return out
	case pyast.Call:
		if isMutating(a) {
			live.killMutable(a)
			return a
		}
		if id := pyast.NameID(a.Child("func")); id != "" {
			if v, ok := live[id]; ok && isSimple(astutil.EventualType(v)) {
				// a literal in call position would no longer raise at run time
				for _, f := range []string{"args", "keywords"} {
					l := a.ListField(f)
					for i, n := range l.Nodes() {
						l.Items[i] = propValues(n, live)
					}
				}
				a.Invalidate()
				return a
			}
		}
	case pyast.Attribute:
		if id := pyast.NameID(a.Child("value")); id != "" {
			if v, ok := live[id]; ok && isSimple(astutil.EventualType(v)) {
				return a
			}
		}
	case pyast.Lambda, pyast.ListComp, pyast.SetComp, pyast.DictComp, pyast.GeneratorExp:
		// comprehension targets shadow outer names
		inner := live.clone()
		pyast.Inspect(a, func(x *pyast.Node) bool {
			switch x.Kind {
			case pyast.Comprehension:
				for _, id := range targetNames(x.Child("target")) {
					delete(inner, id)
				}
			case pyast.Arg:
				delete(inner, x.Ident("arg"))
			}
			return true
		})
		return mapChildren(a, func(x *pyast.Node) *pyast.Node { return propValues(x, inner) })
	}
	return mapChildren(a, func(x *pyast.Node) *pyast.Node { return propValues(x, live) })
}

// clearBlockVars forgets every variable a compound statement may set.
func clearBlockVars(a *pyast.Node, live liveVars) {
	if a == nil || len(live) == 0 {
		return
	}
	switch a.Kind {
	case pyast.Assign:
		for _, t := range a.ListField("targets").Nodes() {
			for _, id := range targetNames(t) {
				live.kill(id)
			}
		}
		return
	case pyast.AugAssign:
		for _, id := range targetNames(a.Child("target")) {
			live.kill(id)
		}
		return
	case pyast.Call:
		if isMutating(a) {
			live.killMutable(a)
		}
	case pyast.For:
		for _, id := range targetNames(a.Child("target")) {
			live.kill(id)
		}
	case pyast.ExceptHandler:
		live.kill(a.Ident("name"))
	case pyast.WithItem:
		if v := a.Child("optional_vars"); v != nil {
			for _, id := range targetNames(v) {
				live.kill(id)
			}
		}
	}
	for _, c := range pyast.Children(a) {
		clearBlockVars(c, live)
	}
}
