package pyast

import (
	"cmp"
)

// CompareValues is a total order over field values.
//
// nil sorts first, then nodes, then lists, then primitives (bool, int, float, str, bytes).
// Nodes of different kinds order by Kind.Rank. For nodes of the same kind, when equality
// is false the shallower node sorts first; fields are then compared in schema order.
// Names compare by identifier only, operators of one kind are always equal.
func CompareValues(a, b Value, equality bool) int { return Comparator{}.Compare(a, b, equality) }

// Comparator is CompareValues with a hook for nodes whose kind has no rank.
// Such nodes compare equal to a node of any other kind.
type Comparator struct {
	Unranked func(n *Node)
}

// Compare orders a and b like CompareValues.
func (c Comparator) Compare(a, b Value, equality bool) int {
	an, bn := IsNil(a), IsNil(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}

	switch x := a.(type) {
	case *Node:
		y, ok := b.(*Node)
		if !ok {
			return -1
		}
		return c.nodes(x, y, equality)
	case *ListVal:
		switch y := b.(type) {
		case *Node:
			return 1
		case *ListVal:
			return c.lists(x, y, equality)
		}
		return -1
	}
	switch b.(type) {
	case *Node, *ListVal:
		return 1
	}
	return comparePrims(a, b)
}

// Equal reports structural equality, ignoring ids and provenance.
func Equal(a, b Value) bool { return CompareValues(a, b, true) == 0 }

func (c Comparator) lists(a, b *ListVal, equality bool) int {
	if len(a.Items) != len(b.Items) {
		return len(a.Items) - len(b.Items)
	}
	for i := range a.Items {
		if r := c.Compare(a.Items[i], b.Items[i], equality); r != 0 {
			return r
		}
	}
	return 0
}

func comparePrims(a, b Value) int {
	ra, rb := primRank(a), primRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case BoolVal:
		y := b.(BoolVal)
		switch {
		case x == y:
			return 0
		case !bool(x):
			return -1
		}
		return 1
	case IntVal:
		return cmp.Compare(x, b.(IntVal))
	case FloatVal:
		return cmp.Compare(x, b.(FloatVal))
	case StrVal:
		return cmp.Compare(x, b.(StrVal))
	case BytesVal:
		return cmp.Compare(x, b.(BytesVal))
	}
	return 0
}

func (c Comparator) nodes(a, b *Node, equality bool) int {
	if a.Kind != b.Kind {
		ra, rb := a.Kind.Rank(), b.Kind.Rank()
		if ra == 0 || rb == 0 {
			if c.Unranked != nil {
				if ra == 0 {
					c.Unranked(a)
				}
				if rb == 0 {
					c.Unranked(b)
				}
			}
			return 0
		}
		return ra - rb
	}

	if !equality {
		if da, db := Depth(a), Depth(b); da != db {
			return da - db
		}
	}

	switch {
	case a.Kind == NameConstant:
		av, bv := a.Field("value"), b.Field("value")
		if IsNil(av) || IsNil(bv) {
			switch {
			case IsNil(av) && IsNil(bv):
				return 0
			case IsNil(av):
				return -1
			}
			return 1
		}
		return c.Compare(av, bv, equality)
	case a.Kind == Name:
		return cmp.Compare(a.Ident("id"), b.Ident("id"))
	case a.Kind.IsOperator(), a.Kind == Pass, a.Kind == Break, a.Kind == Continue:
		return 0
	}

	for i := range a.fields {
		if r := c.Compare(a.fields[i], b.fields[i], equality); r != 0 {
			return r
		}
	}
	return 0
}

// Depth is the height of the node tree below n, counting n itself.
func Depth(n *Node) int {
	if n == nil {
		return 0
	}
	m := 0
	for _, c := range Children(n) {
		if d := Depth(c); d > m {
			m = d
		}
	}
	return m + 1
}
