package canon

import (
	"strconv"

	"hintgen/internal/astutil"
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// anonymizeNames renames every variable, parameter and helper function to a
// scope-qualified synthetic name. Given names map to themselves. Running it on
// an anonymized tree renumbers the names without gaps.
func (r *run) anonymizeNames(mod *pyast.Node) *pyast.Node {
	if !mod.Is(pyast.Module) {
		return mod
	}
	global := make(map[string]string, len(r.opts.GivenNames))
	for _, n := range r.opts.GivenNames {
		global[n] = n
	}
	anonymizeScope(mod, global, "", true)
	return mod
}

func anonymizeScope(a *pyast.Node, global map[string]string, scope string, backwards bool) {
	vars := make(map[string]string, len(global))
	for k, v := range global {
		vars[k] = v
	}
	for k, v := range gatherLocalScope(a, global, scope, backwards) {
		vars[k] = v
	}
	random := 0
	if a.Is(pyast.FunctionDef) {
		for _, arg := range a.Child("args").ListField("args").Nodes() {
			renameNames(arg, vars, scope, &random)
		}
	}
	for _, line := range a.Body().Nodes() {
		renameNames(line, vars, scope, &random)
	}
}

// gatherLocalScope assigns synthetic names to the parameters, helper functions
// and variables bound directly in a's scope.
func gatherLocalScope(a *pyast.Node, global map[string]string, scope string, backwards bool) map[string]string {
	local := map[string]string{}
	letter := "v"
	if a.Is(pyast.Module) {
		letter = "g"
	}
	free := func(id string) bool {
		_, l := local[id]
		_, g := global[id]
		return !names.IsBuiltin(id) && !l && !g
	}
	params, counter := 0, 0
	if a.Is(pyast.FunctionDef) {
		for _, p := range a.Child("args").ListField("args").Nodes() {
			if id := p.Ident("arg"); free(id) {
				local[id] = "p" + strconv.Itoa(params) + scope
				params++
			}
		}
	}
	bind := func(id string) {
		if id != "" && free(id) {
			local[id] = letter + strconv.Itoa(counter) + scope
			counter++
		}
	}

	items := append([]*pyast.Node(nil), a.Body().Nodes()...)
	if backwards {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	for len(items) > 0 {
		item := items[0]
		items = items[1:]
		switch item.Kind {
		case pyast.FunctionDef:
			if id := item.Ident("name"); free(id) {
				local[id] = "helper_" + letter + strconv.Itoa(counter) + scope
				counter++
			} else {
				item.Tagged(pyast.TagDontChangeName)
			}
		case pyast.Assign:
			for _, id := range astutil.AssignedIDs(item.ListField("targets").Nodes()...) {
				bind(id)
			}
		case pyast.AugAssign, pyast.For:
			for _, id := range astutil.AssignedIDs(item.Child("target")) {
				bind(id)
			}
		case pyast.With:
			for _, w := range item.ListField("items").Nodes() {
				if v := w.Child("optional_vars"); v != nil {
					for _, id := range astutil.AssignedIDs(v) {
						bind(id)
					}
				}
			}
		case pyast.ExceptHandler:
			bind(item.Ident("name"))
		}

		switch item.Kind {
		case pyast.For, pyast.While, pyast.If:
			items = append(items, item.Body().Nodes()...)
			items = append(items, item.Orelse().Nodes()...)
		case pyast.With, pyast.ExceptHandler:
			items = append(items, item.Body().Nodes()...)
		case pyast.Try:
			for _, f := range []string{"body", "handlers", "orelse", "finalbody"} {
				items = append(items, item.ListField(f).Nodes()...)
			}
		}
	}
	return local
}

// renameNames applies vars below n. Unknown non-builtin names get a random
// name so later passes treat them as possibly undefined.
func renameNames(n *pyast.Node, vars map[string]string, scope string, random *int) {
	switch n.Kind {
	case pyast.FunctionDef:
		if to, ok := vars[n.Ident("name")]; ok {
			if n.Meta.OriginalID == "" {
				n.Meta.OriginalID = n.Ident("name")
			}
			n.Set("name", pyast.StrVal(to))
		}
		anonymizeScope(n, vars, "_"+n.Ident("name"), false)
	case pyast.Arg:
		renameIdent(n, "arg", vars)
	case pyast.Name:
		id := n.Ident("id")
		if _, ok := vars[id]; !ok && !names.IsBuiltin(id) {
			vars[id] = "r" + strconv.Itoa(*random) + scope
			*random++
		}
		renameIdent(n, "id", vars)
	case pyast.Global:
		l := n.ListField("names")
		for i, it := range l.Items {
			if s, ok := it.(pyast.StrVal); ok {
				if to, ok := vars[string(s)]; ok {
					l.Items[i] = pyast.StrVal(to)
				}
			}
		}
	case pyast.ExceptHandler:
		if to, ok := vars[n.Ident("name")]; ok {
			n.Set("name", pyast.StrVal(to))
		}
		fallthrough
	default:
		for _, c := range pyast.Children(n) {
			renameNames(c, vars, scope, random)
		}
	}
}

func renameIdent(n *pyast.Node, field string, vars map[string]string) {
	id := n.Ident(field)
	to, ok := vars[id]
	if !ok {
		return
	}
	if n.Meta.OriginalID == "" {
		n.Meta.OriginalID = id
	}
	if to != "" && to[0] == 'r' && names.IsAnonymized(to) {
		n.Tagged(pyast.TagRandomVar)
	}
	if id == to && !names.IsAnonymized(to) {
		n.Tagged(pyast.TagDontChangeName)
	}
	n.Set(field, pyast.StrVal(to))
}

// PropagateNameMetadata restores naming tags on a tree whose names are already
// anonymized, such as a state loaded from storage. Names in keep are pinned.
func PropagateNameMetadata(tree *pyast.Node, keep []string) {
	pyast.Inspect(tree, func(n *pyast.Node) bool {
		var field string
		switch n.Kind {
		case pyast.Name:
			field = "id"
		case pyast.Arg:
			field = "arg"
		default:
			return true
		}
		id := n.Ident(field)
		switch {
		case names.IsBuiltin(id):
		case names.Contains(keep, id):
			n.Tagged(pyast.TagDontChangeName)
		default:
			if n.Meta.OriginalID == "" {
				n.Meta.OriginalID = id
			}
			if !names.IsAnonymized(id) {
				n.Tagged(pyast.TagDontChangeName)
			}
		}
		return true
	})
}
