package pyast

// Copy returns a deep copy of n. Identity, tags, metadata and positions are preserved.
func Copy(n *Node) *Node {
	if n == nil {
		return nil
	}
	cp := &Node{
		Kind:   n.Kind,
		ID:     n.ID,
		Tags:   n.Tags,
		Meta:   n.Meta,
		Line:   n.Line,
		Col:    n.Col,
		weight: n.weight,
		fields: make([]Value, len(n.fields)),
	}
	for i, v := range n.fields {
		cp.fields[i] = CopyValue(v)
	}
	return cp
}

// CopyValue deep-copies any field value.
func CopyValue(v Value) Value {
	switch x := v.(type) {
	case nil:
		return nil
	case *Node:
		if x == nil {
			return nil
		}
		return Copy(x)
	case *ListVal:
		if x == nil {
			return nil
		}
		return CopyList(x)
	default:
		return v
	}
}

// CopyList deep-copies a list holder.
func CopyList(l *ListVal) *ListVal {
	if l == nil {
		return nil
	}
	out := &ListVal{Items: make([]Value, len(l.Items))}
	for i, it := range l.Items {
		out.Items[i] = CopyValue(it)
	}
	return out
}

// CopyNodes deep-copies a node slice.
func CopyNodes(ns []*Node) []*Node {
	out := make([]*Node, len(ns))
	for i, n := range ns {
		out[i] = Copy(n)
	}
	return out
}
