package pyast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented listing of n: one line per node with its id, tags
// and annotations, primitive fields inline.
func Dump(w io.Writer, n *Node) error {
	d := dumper{w: w}
	d.node(n, 0, "")
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) printf(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s"+format+"\n", append([]any{strings.Repeat("  ", depth)}, args...)...)
}

func (d *dumper) node(n *Node, depth int, label string) {
	if n == nil {
		d.printf(depth, "%sNone", label)
		return
	}
	var b strings.Builder
	b.WriteString(label)
	b.WriteString(n.Kind.String())
	if n.ID != 0 {
		fmt.Fprintf(&b, " #%d", n.ID)
	}
	if n.Tags != 0 {
		b.WriteString(" " + n.Tags.String())
	}
	if m := n.Meta; m.OriginalID != "" {
		fmt.Fprintf(&b, " orig=%s", m.OriginalID)
	}
	if n.Meta.VarID != 0 {
		fmt.Fprintf(&b, " var=%d", n.Meta.VarID)
	}
	if n.Meta.Type != TypeUnknown {
		fmt.Fprintf(&b, " type=%s", n.Meta.Type)
	}
	var nested []int
	for i, f := range Fields(n.Kind) {
		if i >= len(n.fields) {
			break
		}
		switch v := n.fields[i].(type) {
		case *Node, *ListVal:
			nested = append(nested, i)
		default:
			fmt.Fprintf(&b, " %s=%s", f.Name, FormatPrim(v))
		}
	}
	d.printf(depth, "%s", b.String())

	fields := Fields(n.Kind)
	for _, i := range nested {
		name := fields[i].Name + ": "
		switch v := n.fields[i].(type) {
		case *Node:
			d.node(v, depth+1, name)
		case *ListVal:
			if v.Len() == 0 {
				continue
			}
			d.printf(depth+1, "%s[%d]", name, v.Len())
			for _, item := range v.Items {
				if x, ok := item.(*Node); ok || item == nil {
					d.node(x, depth+2, "")
				} else {
					d.printf(depth+2, "%s", FormatPrim(item))
				}
			}
		}
	}
}
