package canon

import (
	"maps"

	"hintgen/internal/astutil"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
)

// varInfo is what metadata propagation knows about one variable at one point.
// ghost marks a variable bound only on a branch that was not taken.
type varInfo struct {
	typ   pyast.Type
	id    int
	ghost bool
}

type varMap map[string]varInfo

// typer propagates inferred types and per-variable numbers through a tree.
type typer struct {
	argTypes map[string][]pyast.Type
	next     *int
	rep      diag.Reporter
}

func (c *run) propagateMetadata(mod *pyast.Node) *pyast.Node {
	next := 0
	t := &typer{argTypes: c.opts.ArgTypes, next: &next, rep: c.rep}
	t.node(mod, varMap{})
	return mod
}

// bind gives a target its variable number, reusing the number of an already known variable.
func (t *typer) bind(n *pyast.Node, vars varMap) {
	if n.Meta.VarID != 0 {
		return
	}
	id := varName(n)
	if v, ok := vars[id]; ok {
		n.Meta.VarID = v.id
		return
	}
	*t.next++
	n.Meta.VarID = *t.next
}

func varName(n *pyast.Node) string {
	if n.Is(pyast.Arg) {
		return n.Ident("arg")
	}
	return n.Ident("id")
}

func (t *typer) block(l *pyast.ListVal, vars varMap) {
	for _, s := range l.Nodes() {
		t.node(s, vars)
	}
}

func (t *typer) node(n *pyast.Node, vars varMap) {
	if n == nil {
		return
	}
	switch n.Kind {
	case pyast.FunctionDef:
		types := t.argTypes[n.Ident("name")]
		local := maps.Clone(vars)
		params := n.Child("args").ListField("args").Nodes()
		for i, arg := range params {
			t.bind(arg, local)
			typ := pyast.TypeUnknown
			if len(types) == len(params) {
				switch types[i] {
				case pyast.TypeInt, pyast.TypeStr, pyast.TypeFloat, pyast.TypeBool, pyast.TypeList:
					typ = types[i]
				}
			}
			arg.Meta.Type = typ
			local[arg.Ident("arg")] = varInfo{typ: typ, id: arg.Meta.VarID}
		}
		t.block(n.Body(), local)

	case pyast.Assign:
		val := n.Child("value")
		t.node(val, vars)
		targets := n.ListField("targets").Nodes()
		if len(targets) != 1 {
			return
		}
		switch tgt := targets[0]; tgt.Kind {
		case pyast.Name:
			t.bind(tgt, vars)
			tgt.Meta.Type = astutil.EventualType(val)
			vars[tgt.Ident("id")] = varInfo{typ: tgt.Meta.Type, id: tgt.Meta.VarID}
		case pyast.Tuple, pyast.List:
			elts := tgt.ListField("elts").Nodes()
			spread := (val.Is(pyast.Tuple) || val.Is(pyast.List)) &&
				val.ListField("elts").Len() == len(elts) && len(astutil.GatherNames(val)) == 0
			for j, e := range elts {
				if !e.Is(pyast.Name) {
					continue
				}
				typ := pyast.TypeUnknown
				if spread {
					typ = astutil.EventualType(val.ListField("elts").Node(j))
				}
				t.bind(e, vars)
				e.Meta.Type = typ
				vars[e.Ident("id")] = varInfo{typ: typ, id: e.Meta.VarID}
			}
		}

	case pyast.AugAssign:
		tgt := n.Child("target")
		t.node(tgt, vars)
		t.node(n.Child("value"), vars)
		if !tgt.Is(pyast.Name) {
			return
		}
		typ := pyast.TypeUnknown
		switch astutil.EventualType(tgt) {
		case pyast.TypeBool, pyast.TypeInt, pyast.TypeStr, pyast.TypeFloat:
			load := pyast.Copy(tgt)
			typ = astutil.EventualType(pyast.New(pyast.BinOp, load, n.Child("op"), n.Child("value")))
		}
		t.bind(tgt, vars)
		tgt.Meta.Type = typ
		vars[tgt.Ident("id")] = varInfo{typ: typ, id: tgt.Meta.VarID}

	case pyast.For:
		iter := n.Child("iter")
		t.node(iter, vars)
		if tgt := n.Child("target"); tgt.Is(pyast.Name) {
			t.bind(tgt, vars)
			switch {
			case astutil.EventualType(iter) == pyast.TypeStr:
				tgt.Meta.Type = pyast.TypeStr
			case pyast.IsCallTo(iter, "range"):
				tgt.Meta.Type = pyast.TypeInt
			default:
				tgt.Meta.Type = pyast.TypeUnknown
			}
			vars[tgt.Ident("id")] = varInfo{typ: tgt.Meta.Type, id: tgt.Meta.VarID}
		}
		t.node(n.Child("target"), vars)
		bodyVars, elseVars := t.loop(n, vars, true)

		if pyast.CountIn(n.Body(), pyast.Break) == 0 {
			// without a break the else always runs
			for k, v := range elseVars {
				if b, ok := bodyVars[k]; !ok || b == v {
					vars[k] = v
				}
			}
		}
		if listNotEmpty(iter) {
			for k, v := range bodyVars {
				if _, ok := vars[k]; ok {
					continue
				}
				if e, ok := elseVars[k]; ok && e != v {
					continue
				}
				vars[k] = v
			}
		}

	case pyast.While:
		t.loop(n, vars, false)
		t.node(n.Child("test"), vars)

	case pyast.If:
		t.node(n.Child("test"), vars)
		thenVars, elseVars := maps.Clone(vars), maps.Clone(vars)
		t.block(n.Body(), thenVars)
		for k, v := range thenVars {
			if _, ok := elseVars[k]; !ok {
				elseVars[k] = varInfo{id: v.id, ghost: true}
			}
		}
		t.block(n.Orelse(), elseVars)
		t.merge(n, vars, thenVars, elseVars)

	case pyast.Name:
		if v, ok := vars[n.Ident("id")]; ok {
			if !v.ghost {
				n.Meta.Type = v.typ
			}
			n.Meta.VarID = v.id
		}

	default:
		for _, c := range pyast.Children(n) {
			t.node(c, vars)
		}
	}
}

// loop walks the body and else of a loop and forgets the type of every variable
// either of them changes.
func (t *typer) loop(n *pyast.Node, vars varMap, ghostElse bool) (bodyVars, elseVars varMap) {
	bodyVars = maps.Clone(vars)
	t.block(n.Body(), bodyVars)
	elseVars = maps.Clone(vars)
	for k, v := range bodyVars {
		if _, ok := elseVars[k]; !ok {
			elseVars[k] = varInfo{id: v.id, ghost: ghostElse}
		}
	}
	t.block(n.Orelse(), elseVars)
	for k, v := range vars {
		b, okB := bodyVars[k]
		e, okE := elseVars[k]
		if !okB || b != v || !okE || e != v {
			vars[k] = varInfo{id: v.id}
		}
	}
	return bodyVars, elseVars
}

func endsInReturn(l *pyast.ListVal) bool {
	return l.Len() > 0 && l.Node(l.Len()-1).Is(pyast.Return)
}

func (t *typer) merge(n *pyast.Node, vars, thenVars, elseVars varMap) {
	clear(vars)
	for k, a := range thenVars {
		b, ok := elseVars[k]
		switch {
		case !ok:
			if endsInReturn(n.Orelse()) {
				vars[k] = a
			}
		case a == b:
			vars[k] = a
		case a.id != b.id:
			diag.Reportf(t.rep, diag.SevWarning, diag.CanonMetadataMerge, diag.At(n),
				"variable %s has two numbers after the conditional", k)
		case b.ghost:
			vars[k] = a
		default:
			vars[k] = varInfo{id: a.id}
		}
	}
	for k, b := range elseVars {
		if _, ok := thenVars[k]; !ok && endsInReturn(n.Body()) {
			vars[k] = b
		}
	}
}

// listNotEmpty reports iterables known to produce at least one element.
func listNotEmpty(n *pyast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case pyast.Call:
		if !pyast.IsCallTo(n, "range") {
			return false
		}
		args := n.ListField("args").Nodes()
		switch len(args) {
		case 1:
			return positiveInt(args[0])
		case 2:
			lo, okLo := intConst(args[0])
			hi, okHi := intConst(args[1])
			if okLo && okHi {
				return lo < hi
			}
			// range(x, x + k) with k > 0
			if b := args[1]; b.Is(pyast.BinOp) && b.Op() == pyast.Add {
				if positiveInt(b.Child("right")) && pyast.Equal(args[0], b.Child("left")) {
					return true
				}
				if positiveInt(b.Child("left")) && pyast.Equal(args[0], b.Child("right")) {
					return true
				}
			}
		}
	case pyast.List, pyast.Tuple:
		return n.ListField("elts").Len() > 0
	case pyast.Str:
		return n.Ident("s") != ""
	}
	return false
}

func intConst(n *pyast.Node) (float64, bool) {
	v, ok := pyast.NumValue(n)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case pyast.IntVal:
		return float64(x), true
	case pyast.FloatVal:
		return float64(x), true
	}
	return 0, false
}

func positiveInt(n *pyast.Node) bool {
	v, ok := intConst(n)
	return ok && v > 0
}
