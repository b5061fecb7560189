package pyast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena owns the original nodes of one tree, addressed by ID.
// IDs are 1-based; 0 is never allocated.
type Arena struct {
	nodes []*Node
}

// NewArena creates an arena with room for capHint nodes.
func NewArena(capHint uint) *Arena {
	return &Arena{nodes: make([]*Node, 0, capHint)}
}

// Allocate registers n, stamps it with a fresh id and returns the id.
func (a *Arena) Allocate(n *Node) ID {
	a.nodes = append(a.nodes, n)
	v, err := safecast.Conv[uint32](len(a.nodes))
	if err != nil {
		panic(fmt.Errorf("node id overflow: %w", err))
	}
	id := ID(v)
	n.ID = id
	return id
}

// Get returns the node registered under id, nil for 0 or unknown ids.
func (a *Arena) Get(id ID) *Node {
	if a == nil || id == 0 || int(id) > len(a.nodes) {
		return nil
	}
	return a.nodes[id-1]
}

func (a *Arena) Len() int { return len(a.nodes) }

// Assign walks root and gives every node a fresh id. Nodes reachable twice
// (aliased) are copied first so each slot owns a distinct node.
func (a *Arena) Assign(root *Node) {
	seen := make(map[*Node]bool)
	var visit func(n *Node)
	visit = func(n *Node) {
		seen[n] = true
		a.Allocate(n)
		for i, v := range n.fields {
			switch x := v.(type) {
			case *Node:
				if x == nil {
					continue
				}
				if seen[x] {
					x = Copy(x)
					n.fields[i] = x
				}
				visit(x)
			case *ListVal:
				if x == nil {
					continue
				}
				for j, it := range x.Items {
					c, ok := it.(*Node)
					if !ok || c == nil {
						continue
					}
					if seen[c] {
						c = Copy(c)
						x.Items[j] = c
					}
					visit(c)
				}
			}
		}
	}
	if root != nil {
		visit(root)
	}
}

// Index maps ids to nodes of a derived tree. Synthesized nodes (id 0) are skipped;
// when two nodes share an id the first in pre-order wins.
func Index(root *Node) map[ID]*Node {
	idx := make(map[ID]*Node)
	Inspect(root, func(n *Node) bool {
		if n.ID != 0 {
			if _, ok := idx[n.ID]; !ok {
				idx[n.ID] = n
			}
		}
		return true
	})
	return idx
}
