package canon

import (
	"strconv"

	"hintgen/internal/astutil"
	"hintgen/internal/diag"
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// helperFolding inlines simple helper functions into their callers and moves
// module-level constants into the functions that read them.
func (r *run) helperFolding(mod *pyast.Node) *pyast.Node {
	if !mod.Is(pyast.Module) {
		return mod
	}
	counter := 0
	body := mod.Body().Nodes()
	for i := 0; i < len(body); {
		item := body[i]
		switch {
		case item.Is(pyast.FunctionDef) && item.Ident("name") != r.opts.MainFunction && r.foldable(item):
			name := item.Ident("name")
			used, gone := false, true
			for j, other := range body {
				if i == j || !other.Is(pyast.FunctionDef) {
					continue
				}
				if astutil.CountVariables(other, name) > 0 {
					used = true
				}
				setBody(other, "body", mapHelper(other.Body().Nodes(), item, &counter))
				if astutil.CountVariables(other, name) > 0 {
					gone = false
				}
			}
			if used && gone {
				body = append(body[:i], body[i+1:]...)
				continue
			}
		case item.Is(pyast.Assign) && globalConstant(body, i):
			id := item.ListField("targets").Node(0).Ident("id")
			for _, line := range body[i+1:] {
				if line.Is(pyast.FunctionDef) {
					mapVariable(line, id, item)
				}
			}
			body = append(body[:i], body[i+1:]...)
			continue
		}
		i++
	}
	setBody(mod, "body", body)
	return mod
}

// foldable reports a non-recursive helper with plain positional parameters that
// it never reassigns, a single trailing return and no crashing statement before it.
func (r *run) foldable(fn *pyast.Node) bool {
	name := fn.Ident("name")
	stmts := fn.Body().Nodes()
	if len(stmts) == 0 || !stmts[len(stmts)-1].Is(pyast.Return) ||
		pyast.Count(fn, pyast.Return) > 1 || astutil.CountVariables(fn, name) > 0 {
		return false
	}
	args := fn.Child("args")
	if args.Child("vararg") != nil || args.Child("kwarg") != nil ||
		args.ListField("kwonlyargs").Len() > 0 || args.ListField("defaults").Len() > 0 {
		diag.Reportf(r.rep, diag.SevInfo, diag.CanonHelperSkipped, diag.At(fn),
			"helper %s has non-positional parameters", name)
		return false
	}
	var params []string
	for _, a := range args.ListField("args").Nodes() {
		params = append(params, a.Ident("arg"))
	}
	reassigned := false
	pyast.Inspect(fn, func(x *pyast.Node) bool {
		var ids []string
		switch x.Kind {
		case pyast.Assign:
			ids = astutil.AssignedIDs(x.ListField("targets").Nodes()...)
		case pyast.AugAssign:
			ids = astutil.AssignedIDs(x.Child("target"))
		}
		for _, id := range ids {
			if names.Contains(params, id) {
				reassigned = true
			}
		}
		return !reassigned
	})
	if reassigned {
		return false
	}
	for _, s := range stmts[:len(stmts)-1] {
		if astutil.CouldCrash(s) {
			return false
		}
	}
	return true
}

// mapHelper inlines every call of helper found in stmts and nested blocks.
func mapHelper(stmts []*pyast.Node, helper *pyast.Node, counter *int) []*pyast.Node {
	name := helper.Ident("name")
	body := stmts
	for i := 0; i < len(body); i++ {
		switch body[i].Kind {
		case pyast.FunctionDef:
			setBody(body[i], "body", mapHelper(body[i].Body().Nodes(), helper, counter))
		case pyast.For, pyast.While, pyast.If:
			setBody(body[i], "body", mapHelper(body[i].Body().Nodes(), helper, counter))
			setBody(body[i], "orelse", mapHelper(body[i].Orelse().Nodes(), helper, counter))
		}

		skip := 0
		for astutil.CountVariables(body[i], name) > skip {
			call := findHelperCall(body[i], name, skip)
			if call == nil {
				break
			}
			lines, ok := inlineCall(body[i], call, helper, counter)
			if !ok {
				skip++
				continue
			}
			body = append(body[:i], append(lines, body[i+1:]...)...)
		}
	}
	return body
}

// inlineCall expands one call of helper inside stmt into the helper's lines.
func inlineCall(stmt, call, helper *pyast.Node, counter *int) ([]*pyast.Node, bool) {
	params := helper.Child("args").ListField("args").Nodes()
	callArgs := call.ListField("args").Nodes()
	if len(params) != len(callArgs) || call.ListField("keywords").Len() > 0 {
		return nil, false
	}
	*counter++
	pairs := map[string]string{}
	args := pyast.Copy(helper.Child("args"))
	individualize(args, pairs, *counter)
	lines := pyast.CopyNodes(helper.Body().Nodes())
	for _, l := range lines {
		individualize(l, pairs, *counter)
	}
	params = args.ListField("args").Nodes()

	var argLines []*pyast.Node
	last := len(lines) - 1
	for j, p := range params {
		id, value := p.Ident("arg"), callArgs[j]
		if astutil.CountVariables(pyast.NodeList(lines...), id) == 1 && astutil.CountVariables(lines[last], id) == 1 {
			lines[last] = replaceOnce(lines[last], func(x *pyast.Node) bool {
				return pyast.NameID(x) == id
			}, value)
			continue
		}
		if astutil.CouldCrash(value) {
			return nil, false
		}
		v := pyast.NewName(id).Tagged(pyast.TagHelperVar)
		v.Inherit(p)
		assign := pyast.NewAssign(v, value).Tagged(pyast.TagHelperParamAssign)
		assign.ID = p.ID
		argLines = append(argLines, assign)
	}

	result := lines[last].Child("value")
	if result == nil {
		result = pyast.NewNone().Tagged(pyast.TagHelperReturnVal)
		result.Inherit(call)
	}
	lines = lines[:last]
	rest := replaceOnce(stmt, func(x *pyast.Node) bool { return x == call }, result)
	return append(append(argLines, lines...), rest), true
}

// findHelperCall returns the innermost call of name under n after skipping the
// first skip matches in post-order.
func findHelperCall(n *pyast.Node, name string, skip int) *pyast.Node {
	var hit *pyast.Node
	var visit func(*pyast.Node)
	visit = func(x *pyast.Node) {
		for _, c := range pyast.Children(x) {
			if hit != nil {
				return
			}
			visit(c)
		}
		if hit == nil && pyast.IsCallTo(x, name) {
			if skip > 0 {
				skip--
			} else {
				hit = x
			}
		}
	}
	visit(n)
	return hit
}

// individualize gives the inlined copy of a helper fresh variable names.
func individualize(n *pyast.Node, pairs map[string]string, num int) {
	suffix := "_" + strconv.Itoa(num)
	switch n.Kind {
	case pyast.Name:
		id := n.Ident("id")
		if _, ok := pairs[id]; !ok && !names.IsBuiltin(id) {
			pairs[id] = "_var_" + id + suffix
		}
		if to, ok := pairs[id]; ok {
			n.Set("id", pyast.StrVal(to))
		}
		return
	case pyast.Assign:
		// assigning shadows builtins too
		if t := n.ListField("targets").Node(0); t.Is(pyast.Name) {
			if _, ok := pairs[t.Ident("id")]; !ok {
				pairs[t.Ident("id")] = "_var_" + t.Ident("id") + suffix
			}
		}
	case pyast.Arguments:
		for _, a := range n.ListField("args").Nodes() {
			to := "_arg_" + a.Ident("arg") + suffix
			pairs[a.Ident("arg")] = to
			a.Set("arg", pyast.StrVal(to))
		}
		return
	case pyast.Call:
		if id := pyast.NameID(n.Child("func")); id != "" {
			pairs[id] = id
		}
	}
	for _, c := range pyast.Children(n) {
		individualize(c, pairs, num)
	}
}

// replaceOnce swaps the first node matching match, in pre-order, for repl.
func replaceOnce(n *pyast.Node, match func(*pyast.Node) bool, repl *pyast.Node) *pyast.Node {
	done := false
	var visit func(*pyast.Node) *pyast.Node
	visit = func(x *pyast.Node) *pyast.Node {
		if done {
			return x
		}
		if match(x) {
			done = true
			return repl
		}
		return mapChildren(x, visit)
	}
	return visit(n)
}

// globalConstant reports a module-level assignment of an immutable value that
// nothing after it rebinds or reads at module level.
func globalConstant(body []*pyast.Node, i int) bool {
	item := body[i]
	targets := item.ListField("targets").Nodes()
	if len(targets) != 1 || !targets[0].Is(pyast.Name) {
		return false
	}
	switch astutil.EventualType(item.Child("value")) {
	case pyast.TypeInt, pyast.TypeFloat, pyast.TypeBool, pyast.TypeStr:
	default:
		return false
	}
	id := targets[0].Ident("id")
	for _, line := range body[i+1:] {
		if line.Is(pyast.FunctionDef) {
			if pyast.Count(line, pyast.Global) > 0 || names.Contains(astutil.AllAssignedIDs(line), id) {
				return false
			}
		} else if astutil.CountVariables(line, id) > 0 {
			return false
		}
	}
	return true
}

// mapVariable copies assn in front of the first line of fn that reads id.
func mapVariable(fn *pyast.Node, id string, assn *pyast.Node) {
	for _, a := range fn.Child("args").ListField("args").Nodes() {
		if a.Ident("arg") == id {
			return
		}
	}
	body := fn.Body().Nodes()
	for i, line := range body {
		if astutil.CountVariables(line, id) > 0 {
			body = append(body[:i], append([]*pyast.Node{pyast.Copy(assn)}, body[i:]...)...)
			setBody(fn, "body", body)
			return
		}
	}
}
