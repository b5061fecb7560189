package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

type liveSet map[string]bool

func (s liveSet) addAll(names []string) {
	for _, n := range names {
		s[n] = true
	}
}

func (s liveSet) clone() liveSet {
	out := make(liveSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s liveSet) reset(names []string) {
	for k := range s {
		delete(s, k)
	}
	s.addAll(names)
}

// deadCodeRemoval drops statements whose effects can never be observed:
// unused assignments, code after a return and branches that cannot run.
func (r *run) deadCodeRemoval(mod *pyast.Node) *pyast.Node {
	body := mod.Body().Nodes()
	if len(body) == 0 {
		return mod
	}
	var seen []string
	for i := len(body) - 1; i >= 0; i-- {
		stmt := body[i]
		switch stmt.Kind {
		case pyast.FunctionDef:
			name := stmt.Ident("name")
			if contains(seen, name) {
				// a duplicate parameter makes the definition itself raise
				if !hasDuplicateParams(stmt) {
					body = splice(body, i, 1)
				}
				continue
			}
			seen = append(seen, name)
		case pyast.Assign:
			seen = append(seen, astutil.AssignedIDs(stmt.ListField("targets").Nodes()...)...)
		}
	}
	live := liveSet{}
	live.addAll(seen)
	gid := firstID(body)
	body = r.deadStmts(body, live, false)
	if len(body) == 0 {
		body = []*pyast.Node{newPass(gid)}
	}
	setBody(mod, "body", body)
	return mod
}

func hasDuplicateParams(fn *pyast.Node) bool {
	seen := map[string]bool{}
	for _, a := range fn.Child("args").ListField("args").Nodes() {
		if seen[a.Ident("arg")] {
			return true
		}
		seen[a.Ident("arg")] = true
	}
	return false
}

func (r *run) deadFunction(fn *pyast.Node, live liveSet) {
	body := fn.Body().Nodes()
	gid := firstID(body)
	for _, stmt := range body {
		if stmt.Is(pyast.Global) {
			for _, v := range stmt.ListField("names").Items {
				if s, ok := v.(pyast.StrVal); ok {
					live[string(s)] = true
				}
			}
		}
	}
	body = r.deadStmts(body, live, false)
	if len(body) == 0 {
		body = []*pyast.Node{newPass(gid)}
	}
	setBody(fn, "body", body)
}

// assignedBefore lists the names assigned by the plain assignments of stmts.
func assignedBefore(stmts []*pyast.Node) []string {
	var out []string
	for _, s := range stmts {
		if s.Is(pyast.Assign) {
			out = append(out, astutil.AssignedIDs(s.ListField("targets").Nodes()...)...)
		}
	}
	return out
}

func keepsEffect(n *pyast.Node) bool {
	return astutil.CouldCrash(n) || astutil.ContainsTokenStep(n)
}

func negatedTest(test *pyast.Node) *pyast.Node {
	return demorgan(notOf(test).Tagged(pyast.TagAddedNot))
}

func (r *run) deadStmts(a []*pyast.Node, live liveSet, inLoop bool) []*pyast.Node {
	for i := len(a) - 1; i >= 0 && len(a) > 0; i-- {
		if i >= len(a) {
			i = len(a) - 1
		}
		stmt := a[i]
		switch stmt.Kind {
		case pyast.FunctionDef:
			inner := liveSet{}
			r.deadFunction(stmt, inner)
			for k := range inner {
				live[k] = true
			}
		case pyast.Return:
			a = a[:i+1]
			live.reset(usedNames(stmt))
		case pyast.Delete, pyast.Assert, pyast.With, pyast.Raise, pyast.Try:
			live.addAll(usedNames(stmt))
		case pyast.Assign:
			dead := true
			valueNames := usedNames(stmt.Child("value"))
			for _, t := range astutil.AssignedVars(stmt.ListField("targets").Nodes()...) {
				switch t.Kind {
				case pyast.Name:
					id := t.Ident("id")
					if live[id] || contains(valueNames, id) {
						delete(live, id)
						dead = false
					}
				case pyast.Subscript, pyast.Attribute:
					live.addAll(usedNames(t))
					dead = false
				}
			}
			if dead && !keepsEffect(stmt) {
				a = splice(a, i, 1)
			} else {
				live.addAll(valueNames)
			}
		case pyast.AugAssign:
			live.addAll(usedNames(stmt.Child("target")))
			live.addAll(usedNames(stmt.Child("value")))
		case pyast.For, pyast.While:
			if stmt.Orelse().Len() > 0 && pyast.Count(stmt, pyast.Break) == 0 {
				lines := stmt.Orelse().Nodes()
				setBody(stmt, "orelse", nil)
				a = splice(a, i, 1, append([]*pyast.Node{stmt}, lines...)...)
				i += len(lines) + 1
				continue
			}
			live.addAll(usedNames(stmt))
			gid := firstID(stmt.Body().Nodes())
			setBody(stmt, "body", r.deadStmts(stmt.Body().Nodes(), live.clone(), true))
			setBody(stmt, "orelse", r.deadStmts(stmt.Orelse().Nodes(), live.clone(), inLoop))
			if stmt.Body().Len() > 0 {
				break
			}
			if stmt.Is(pyast.While) {
				setBody(stmt, "body", []*pyast.Node{newPass(gid)})
				break
			}
			needed := false
			for _, id := range targetNames(stmt.Child("target")) {
				needed = needed || live[id]
			}
			if needed {
				setBody(stmt, "body", []*pyast.Node{newPass(gid)})
				break
			}
			var with []*pyast.Node
			if iter := stmt.Child("iter"); keepsEffect(iter) {
				with = append(with, pyast.NewExpr(iter).Inherit(stmt).Tagged(pyast.TagCollapsedExpr))
			}
			a = splice(a, i, 1, append(with, stmt.Orelse().Nodes()...)...)
		case pyast.If:
			test := stmt.Child("test")
			if b, ok := isBoolConst(test); ok && !assignsOriginalGlobal(stmt) {
				chosen := stmt.Orelse().Nodes()
				if b {
					chosen = stmt.Body().Nodes()
				}
				a = splice(a, i, 1, chosen...)
				i += len(chosen)
				continue
			}
			l1, l2 := live.clone(), live.clone()
			setBody(stmt, "body", r.deadStmts(stmt.Body().Nodes(), l1, inLoop))
			setBody(stmt, "orelse", r.deadStmts(stmt.Orelse().Nodes(), l2, inLoop))
			live.reset(usedNames(test))
			for k := range l1 {
				live[k] = true
			}
			for k := range l2 {
				live[k] = true
			}
			body, orelse := stmt.Body().Nodes(), stmt.Orelse().Nodes()
			switch {
			case len(body) == 0 && len(orelse) == 0:
				if keepsEffect(test) {
					a[i] = pyast.NewExpr(test).Inherit(stmt).Tagged(pyast.TagCollapsedExpr)
				} else {
					a = splice(a, i, 1)
				}
				continue
			case len(body) == 0:
				stmt.Set("test", negatedTest(test))
				setBody(stmt, "body", orelse)
				setBody(stmt, "orelse", nil)
				body, orelse = orelse, nil
			}
			if len(orelse) == 0 {
				rest := a[i+1:]
				if len(rest) > 0 && body[len(body)-1].Is(pyast.Return) && rest[len(rest)-1].Is(pyast.Return) &&
					len(body) > len(rest) {
					stmt.Set("test", negatedTest(stmt.Child("test")))
					tail := append([]*pyast.Node(nil), rest...)
					setBody(stmt, "body", tail)
					a = append(a[:i+1:i+1], body...)
				}
			} else if len(body) > len(orelse) {
				stmt.Set("test", negatedTest(stmt.Child("test")))
				setBody(stmt, "body", orelse)
				setBody(stmt, "orelse", body)
			}
		case pyast.Import:
			if stmt.ListField("names").Len() == 0 {
				a = splice(a, i, 1)
			}
		case pyast.Global:
			l := stmt.ListField("names")
			kept := l.Items[:0]
			for _, v := range l.Items {
				if s, ok := v.(pyast.StrVal); ok && live[string(s)] {
					kept = append(kept, v)
				}
			}
			l.Items = kept
			stmt.Invalidate()
			if len(kept) == 0 {
				a = splice(a, i, 1)
			}
		case pyast.Expr:
			if keepsEffect(stmt) {
				live.addAll(usedNames(stmt))
				break
			}
			// a name read before any assignment raises
			var unbound []string
			before := assignedBefore(a[:i])
			for _, id := range usedNames(stmt) {
				if !contains(before, id) {
					unbound = append(unbound, id)
				}
			}
			if len(unbound) > 0 {
				live.addAll(usedNames(stmt))
			} else {
				a = splice(a, i, 1)
			}
		case pyast.Pass:
			a = splice(a, i, 1)
		case pyast.Break, pyast.Continue:
			if inLoop {
				a = a[:i+1]
			}
		case pyast.ImportFrom:
		default:
			r.unknown(stmt, "deadCodeRemoval")
		}
	}
	return a
}

// assignsOriginalGlobal reports an assignment inside n to a module-level name
// the student wrote, which must keep its enclosing branch.
func assignsOriginalGlobal(n *pyast.Node) bool {
	found := false
	pyast.Inspect(n, func(x *pyast.Node) bool {
		if !x.Is(pyast.Assign) && !x.Is(pyast.AugAssign) && !x.Is(pyast.For) {
			return !found
		}
		var targets []*pyast.Node
		if x.Is(pyast.Assign) {
			targets = x.ListField("targets").Nodes()
		} else {
			targets = []*pyast.Node{x.Child("target")}
		}
		for _, v := range astutil.AssignedVars(targets...) {
			if v.Is(pyast.Name) && len(v.Ident("id")) > 0 && v.Ident("id")[0] == 'g' && v.Meta.OriginalID != "" {
				found = true
			}
		}
		return !found
	})
	return found
}
