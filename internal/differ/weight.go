package differ

import (
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// Weight counts the tokens of v. With countTokens unset, ~placeholder~ strings are
// free. Node weights for the counting variant are memoized on the node.
func Weight(v pyast.Value, countTokens bool) int {
	switch x := v.(type) {
	case nil:
		return 0
	case *pyast.Node:
		if x == nil {
			return 0
		}
		if countTokens {
			if w := x.Weight(); w > 0 {
				return w
			}
		}
		w := nodeWeight(x, countTokens)
		if countTokens {
			x.SetWeight(w)
		}
		return w
	case *pyast.ListVal:
		if x == nil {
			return 0
		}
		sum := 0
		for _, it := range x.Items {
			sum += Weight(it, countTokens)
		}
		return sum
	}
	return 1
}

func nodeWeight(n *pyast.Node, ct bool) int {
	w := func(field string) int { return Weight(n.Field(field), ct) }
	nonEmpty := func(field string, extra int) int {
		if n.ListField(field).Len() == 0 {
			return 0
		}
		return extra + w(field)
	}
	switch n.Kind {
	case pyast.Module:
		return w("body")
	case pyast.FunctionDef:
		return 1 + w("args") + w("body") + w("decorator_list") + w("returns")
	case pyast.Return, pyast.Attribute:
		return 1 + w("value")
	case pyast.Delete:
		return 1 + w("targets")
	case pyast.Assign:
		return 1 + w("targets") + w("value")
	case pyast.AugAssign:
		return w("target") + w("op") + w("value")
	case pyast.For:
		return 2 + w("target") + w("iter") + w("body") + nonEmpty("orelse", 1)
	case pyast.While, pyast.If:
		return 1 + w("test") + w("body") + nonEmpty("orelse", 1)
	case pyast.With:
		return 1 + w("items") + w("body")
	case pyast.Raise:
		return 1 + w("exc") + w("cause")
	case pyast.Try:
		return 1 + w("body") + w("handlers") + nonEmpty("orelse", 1) + nonEmpty("finalbody", 1)
	case pyast.Assert:
		return 1 + w("test") + w("msg")
	case pyast.Import, pyast.Global:
		return 1 + w("names")
	case pyast.ImportFrom:
		return 3 + w("names")
	case pyast.Expr:
		return max(w("value"), 1)
	case pyast.BoolOp:
		vals := n.ListField("values")
		return max(vals.Len()-1, 0) + w("values")
	case pyast.BinOp:
		return 1 + w("left") + w("right")
	case pyast.UnaryOp:
		return 1 + w("operand")
	case pyast.Lambda:
		return 1 + w("args") + w("body")
	case pyast.IfExp:
		return 2 + w("test") + w("body") + w("orelse")
	case pyast.Dict:
		return 1 + w("keys") + w("values")
	case pyast.Set, pyast.List, pyast.Tuple:
		return 1 + w("elts")
	case pyast.ListComp, pyast.SetComp, pyast.GeneratorExp:
		return 1 + w("elt") + w("generators")
	case pyast.DictComp:
		return 1 + w("key") + w("value") + w("generators")
	case pyast.Compare:
		return n.ListField("ops").Len() + w("left") + w("comparators")
	case pyast.Call:
		return max(w("func"), 1) + max(w("args")+w("keywords"), 1)
	case pyast.Subscript:
		return max(w("value"), 1) + max(w("slice"), 1)
	case pyast.Slice:
		return max(w("lower")+w("upper")+w("step"), 1)
	case pyast.Starred:
		return 1 + w("value")
	case pyast.Str:
		if !ct && names.IsTokenStep(n.Ident("s")) {
			return 0
		}
		return 1
	case pyast.Comprehension:
		return 2 + n.ListField("ifs").Len() + w("target") + w("iter") + w("ifs")
	case pyast.ExceptHandler:
		named := 0
		if n.Ident("name") != "" {
			named = 2
		}
		return 1 + w("type") + named + w("body")
	case pyast.Arguments:
		return w("args") + w("vararg") + w("kwonlyargs") + w("kw_defaults") + w("kwarg") + w("defaults")
	case pyast.Arg:
		return 1 + w("annotation")
	case pyast.Keyword:
		return 1 + w("value")
	case pyast.Alias:
		if n.Ident("asname") != "" {
			return 3
		}
		return 1
	case pyast.WithItem:
		return w("context_expr") + w("optional_vars")
	}
	return 1
}
