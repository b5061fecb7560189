package pyast

// Children returns the direct child nodes of n in schema order, flattening lists.
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, v := range n.fields {
		switch x := v.(type) {
		case *Node:
			if x != nil {
				out = append(out, x)
			}
		case *ListVal:
			if x == nil {
				continue
			}
			for _, it := range x.Items {
				if c, ok := it.(*Node); ok && c != nil {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// Inspect visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}

// InspectValue runs Inspect over every node reachable from v.
func InspectValue(v Value, fn func(*Node) bool) {
	switch x := v.(type) {
	case *Node:
		Inspect(x, fn)
	case *ListVal:
		if x == nil {
			return
		}
		for _, it := range x.Items {
			InspectValue(it, fn)
		}
	}
}

// Rewrite replaces every child node of n, bottom-up, by fn's result.
// fn may return the node unchanged, a different node, or nil to clear the slot;
// list items that become nil are removed.
func Rewrite(n *Node, fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	for i, v := range n.fields {
		switch x := v.(type) {
		case *Node:
			if x != nil {
				if r := Rewrite(x, fn); r != nil {
					n.fields[i] = r
				} else {
					n.fields[i] = nil
				}
			}
		case *ListVal:
			if x == nil {
				continue
			}
			items := x.Items[:0]
			for _, it := range x.Items {
				c, ok := it.(*Node)
				if !ok || c == nil {
					items = append(items, it)
					continue
				}
				if r := Rewrite(c, fn); r != nil {
					items = append(items, r)
				}
			}
			x.Items = items
		}
	}
	n.weight = 0
	return fn(n)
}

// Count returns the number of nodes of kind k under n.
func Count(n *Node, k Kind) int {
	c := 0
	Inspect(n, func(x *Node) bool {
		if x.Kind == k {
			c++
		}
		return true
	})
	return c
}

// CountIn counts nodes of kind k over a statement list.
func CountIn(l *ListVal, k Kind) int {
	c := 0
	InspectValue(l, func(x *Node) bool {
		if x.Kind == k {
			c++
		}
		return true
	})
	return c
}

// Occurs reports whether sub appears verbatim (structurally) as a subtree of n.
func Occurs(sub, n *Node) bool {
	found := false
	Inspect(n, func(x *Node) bool {
		if found {
			return false
		}
		if Equal(sub, x) {
			found = true
			return false
		}
		return true
	})
	return found
}

// FindByID returns the first node under v carrying id.
func FindByID(v Value, id ID) *Node {
	if id == 0 {
		return nil
	}
	var hit *Node
	InspectValue(v, func(x *Node) bool {
		if hit != nil {
			return false
		}
		if x.ID == id {
			hit = x
			return false
		}
		return true
	})
	return hit
}
