package canon

import (
	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

// conditionalRedundancy hoists a statement both branches end with and joins
// adjacent if chains whose tests are disjoint.
func (r *run) conditionalRedundancy(mod *pyast.Node) *pyast.Node {
	eachBlock(mod, redundancyStmts)
	return mod
}

func redundancyStmts(a []*pyast.Node) []*pyast.Node {
	for i := 0; i < len(a); {
		stmt := a[i]
		if !stmt.Is(pyast.If) {
			eachBlock(stmt, redundancyStmts)
			i++
			continue
		}
		eachBlock(stmt, redundancyStmts)
		body, orelse := stmt.Body().Nodes(), stmt.Orelse().Nodes()

		if len(body) > 0 && len(orelse) > 0 && pyast.Equal(body[len(body)-1], orelse[len(orelse)-1]) {
			next := body[len(body)-1]
			next.Meta.SecondID = orelse[len(orelse)-1].ID
			next.Tagged(pyast.TagSecondID)
			body, orelse = body[:len(body)-1], orelse[:len(orelse)-1]
			stmt.Meta.MovedLine = next.ID
			stmt.Tagged(pyast.TagMovedLine)
			switch {
			case len(body) == 0 && len(orelse) == 0:
				expr := pyast.NewExpr(stmt.Child("test")).Inherit(stmt)
				a = splice(a, i, 1, expr, next)
			case len(body) == 0:
				stmt.Set("test", notOf(stmt.Child("test")).Tagged(pyast.TagAddedNot))
				setBody(stmt, "body", orelse)
				setBody(stmt, "orelse", nil)
				a = splice(a, i, 1, stmt, next)
			default:
				setBody(stmt, "body", body)
				setBody(stmt, "orelse", orelse)
				a = splice(a, i, 1, stmt, next)
			}
			continue
		}

		if i+1 < len(a) && a[i+1].Is(pyast.If) {
			first, second := ifBranches(stmt), ifBranches(a[i+1])
			if first != nil && second != nil && joinable(first, second) {
				setBody(first[len(first)-1], "orelse", []*pyast.Node{a[i+1]})
				a = splice(a, i+1, 1)
				continue
			}
		}
		i++
	}
	return a
}

func joinable(first, second []*pyast.Node) bool {
	var testVars []*pyast.Node
	for _, b := range second {
		pyast.Inspect(b.Child("test"), func(x *pyast.Node) bool {
			if x.Is(pyast.Name) {
				testVars = append(testVars, x)
			}
			return true
		})
	}
	for _, b := range first {
		if !staticVars(b.Body().Nodes(), testVars) {
			return false
		}
	}
	for _, y := range second {
		for _, x := range first {
			if !areDisjoint(x.Child("test"), y.Child("test")) {
				return false
			}
		}
	}
	return true
}

// ifBranches flattens an if/elif chain whose else blocks hold a single if.
// It returns nil when some else block holds anything else.
func ifBranches(a *pyast.Node) []*pyast.Node {
	if !a.Is(pyast.If) {
		return nil
	}
	switch a.Orelse().Len() {
	case 0:
		return []*pyast.Node{a}
	case 1:
		rest := ifBranches(a.Orelse().Node(0))
		if rest == nil {
			return nil
		}
		return append([]*pyast.Node{a}, rest...)
	}
	return nil
}

// staticVars reports whether the lines leave every variable in vars unchanged.
func staticVars(lines []*pyast.Node, vars []*pyast.Node) bool {
	var mutable []string
	for _, v := range vars {
		switch v.Meta.Type {
		case pyast.TypeInt, pyast.TypeFloat, pyast.TypeStr, pyast.TypeBool:
		default:
			mutable = append(mutable, v.Ident("id"))
		}
	}
	touches := func(target *pyast.Node) bool {
		used := usedNames(target)
		for _, v := range vars {
			if contains(used, v.Ident("id")) {
				return true
			}
		}
		return false
	}
	for _, l := range lines {
		switch l.Kind {
		case pyast.Assign:
			if touches(l.ListField("targets").Node(0)) {
				return false
			}
		case pyast.AugAssign:
			if touches(l.Child("target")) {
				return false
			}
		case pyast.If, pyast.While:
			if !staticVars(l.Body().Nodes(), vars) || !staticVars(l.Orelse().Nodes(), vars) {
				return false
			}
		case pyast.For:
			if touches(l.Child("target")) ||
				!staticVars(l.Body().Nodes(), vars) || !staticVars(l.Orelse().Nodes(), vars) {
				return false
			}
		case pyast.FunctionDef, pyast.Try, pyast.With:
			return false
		}
		used := usedNames(l)
		for _, m := range mutable {
			if contains(used, m) {
				return false
			}
		}
	}
	return true
}

// combineConditionals merges nested ifs into a conjunction and an elif that
// repeats its if body into a disjunction.
func (r *run) combineConditionals(n *pyast.Node) *pyast.Node {
	return combine(n)
}

func combinedTest(op pyast.Kind, a, b *pyast.Node) *pyast.Node {
	o := pyast.Op(op).Tagged(pyast.TagCombinedConditionalOp)
	return pyast.New(pyast.BoolOp, o, pyast.NodeList(a, b)).Tagged(pyast.TagCombinedConditional)
}

func combine(a *pyast.Node) *pyast.Node {
	if a == nil {
		return nil
	}
	if !a.Is(pyast.If) {
		return mapChildren(a, combine)
	}
	for _, f := range []string{"body", "orelse"} {
		stmts := a.ListField(f).Nodes()
		for i := range stmts {
			stmts[i] = combine(stmts[i])
		}
		setBody(a, f, stmts)
	}
	body, orelse := a.Body(), a.Orelse()
	switch {
	case orelse.Len() == 0 && body.Len() == 1 && body.Node(0).Is(pyast.If) && body.Node(0).Orelse().Len() == 0:
		inner := body.Node(0)
		a.Set("test", combinedTest(pyast.And, a.Child("test"), inner.Child("test")))
		a.Set("body", inner.Body())
	case orelse.Len() == 1 && orelse.Node(0).Is(pyast.If) && orelse.Node(0).Orelse().Len() == 0 &&
		pyast.Equal(body, orelse.Node(0).Body()):
		a.Set("test", combinedTest(pyast.Or, a.Child("test"), orelse.Node(0).Child("test")))
		setBody(a, "orelse", nil)
	}
	return a
}

// collapseConditionals turns ifs that only pick a boolean into the boolean
// itself, walking each block from the bottom up.
func (r *run) collapseConditionals(mod *pyast.Node) *pyast.Node {
	eachBlock(mod, collapseStmts)
	return mod
}

func boolValue(stmt *pyast.Node) (bool, bool) {
	return isBoolConst(stmt.Child("value"))
}

// collapsedLine builds the statement that stores or returns test, negated
// when the true branch yields False.
func collapsedLine(like, test *pyast.Node, positive bool) *pyast.Node {
	val := test
	if !positive {
		val = notOf(test).Tagged(pyast.TagNegated, pyast.TagCollapsedExpr)
	}
	if like.Is(pyast.Assign) {
		return pyast.New(pyast.Assign, like.ListField("targets"), val)
	}
	return pyast.NewReturn(val)
}

func collapseStmts(l []*pyast.Node) []*pyast.Node {
	for i := len(l) - 1; i >= 0; i-- {
		if i >= len(l) {
			continue
		}
		stmt := l[i]
		eachBlock(stmt, collapseStmts)
		if !stmt.Is(pyast.If) {
			continue
		}
		test := stmt.Child("test")
		body, orelse := stmt.Body().Nodes(), stmt.Orelse().Nodes()
		switch {
		case len(body) == 1 && len(orelse) == 1:
			ifLine, elseLine := body[0], orelse[0]
			sameShape := (ifLine.Is(pyast.Assign) && elseLine.Is(pyast.Assign) &&
				pyast.Equal(ifLine.ListField("targets"), elseLine.ListField("targets"))) ||
				(ifLine.Is(pyast.Return) && elseLine.Is(pyast.Return))
			if !sameShape {
				continue
			}
			ib, iok := boolValue(ifLine)
			eb, eok := boolValue(elseLine)
			if !iok || !eok {
				continue
			}
			if ib == eb {
				// the test still runs in case it raises
				expr := pyast.NewExpr(test).Tagged(pyast.TagAddedOther)
				expr.ID = stmt.ID
				expr.Meta.MovedLine = ifLine.ID
				l = splice(l, i, 1, expr, ifLine)
			} else if astutil.EventualType(test) == pyast.TypeBool {
				l[i] = collapsedLine(ifLine, test, ib).Inherit(stmt)
			}
		case len(body) == 1 && len(orelse) == 0:
			ifLine := body[0]
			if i > 0 && l[i-1].Is(pyast.If) && l[i-1].Body().Len() == 1 && l[i-1].Orelse().Len() == 0 &&
				ifLine.Is(pyast.Return) && pyast.Equal(ifLine, l[i-1].Body().Node(0)) {
				prev := l[i-1]
				prev.Set("test", combinedTest(pyast.Or, prev.Child("test"), test))
				prev.Meta.SecondID = stmt.ID
				prev.Tagged(pyast.TagSecondID)
				l = splice(l, i, 1)
				continue
			}
			if i == len(l)-1 || !ifLine.Is(pyast.Return) || !l[i+1].Is(pyast.Return) {
				continue
			}
			ib, iok := boolValue(ifLine)
			nb, nok := boolValue(l[i+1])
			if !iok || !nok {
				continue
			}
			if ib == nb {
				expr := pyast.NewExpr(test).Tagged(pyast.TagAddedOther)
				expr.ID = stmt.ID
				l[i] = expr
			} else if astutil.EventualType(test) == pyast.TypeBool {
				l[i] = collapsedLine(ifLine, test, ib).Inherit(stmt)
				l = splice(l, i+1, 1)
			}
		}
	}
	return l
}
