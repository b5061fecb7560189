package pyast

import (
	"strconv"
)

// Value is anything a node field can hold: a child node, a child list or a primitive.
// A nil Value stands for an absent optional field (Python None).
type Value interface {
	isValue()
}

type (
	// StrVal is an identifier or a string literal payload.
	StrVal string
	// IntVal is an integer literal payload.
	IntVal int64
	// FloatVal is a float literal payload.
	FloatVal float64
	// BoolVal is the payload of True and False.
	BoolVal bool
	// BytesVal is a bytes literal payload.
	BytesVal string
)

func (StrVal) isValue()   {}
func (IntVal) isValue()   {}
func (FloatVal) isValue() {}
func (BoolVal) isValue()  {}
func (BytesVal) isValue() {}
func (*Node) isValue()    {}
func (*ListVal) isValue() {}

// ListVal is an ordered child list. Lists are addressed by integer path steps.
type ListVal struct {
	Items []Value
}

// NewList wraps items in a list holder.
func NewList(items ...Value) *ListVal {
	return &ListVal{Items: items}
}

// NodeList builds a list holder from nodes.
func NodeList(nodes ...*Node) *ListVal {
	items := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, n)
	}
	return &ListVal{Items: items}
}

func (l *ListVal) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// Node returns item i as a node, nil when it is not one.
func (l *ListVal) Node(i int) *Node {
	if l == nil || i < 0 || i >= len(l.Items) {
		return nil
	}
	n, _ := l.Items[i].(*Node)
	return n
}

// Nodes returns the node items, skipping primitives.
func (l *ListVal) Nodes() []*Node {
	if l == nil {
		return nil
	}
	out := make([]*Node, 0, len(l.Items))
	for _, it := range l.Items {
		if n, ok := it.(*Node); ok && n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (l *ListVal) Append(v ...Value) {
	l.Items = append(l.Items, v...)
}

// Insert places v before position i; i == Len appends.
func (l *ListVal) Insert(i int, v Value) {
	l.Items = append(l.Items, nil)
	copy(l.Items[i+1:], l.Items[i:])
	l.Items[i] = v
}

// Remove deletes position i and returns what was there.
func (l *ListVal) Remove(i int) Value {
	v := l.Items[i]
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return v
}

// IsNil reports whether v is absent, including typed nil pointers.
func IsNil(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *Node:
		return x == nil
	case *ListVal:
		return x == nil
	}
	return false
}

// AsNode returns v as a node or nil.
func AsNode(v Value) *Node {
	n, _ := v.(*Node)
	return n
}

// AsList returns v as a list holder or nil.
func AsList(v Value) *ListVal {
	l, _ := v.(*ListVal)
	return l
}

// primRank orders primitive payload types: bool, int, float, str, bytes.
func primRank(v Value) int {
	switch v.(type) {
	case BoolVal:
		return 0
	case IntVal:
		return 1
	case FloatVal:
		return 2
	case StrVal:
		return 3
	case BytesVal:
		return 4
	}
	return 5
}

// FormatPrim renders a primitive payload as Python source would.
func FormatPrim(v Value) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case BoolVal:
		if x {
			return "True"
		}
		return "False"
	case IntVal:
		return strconv.FormatInt(int64(x), 10)
	case FloatVal:
		return formatFloat(float64(x))
	case StrVal:
		return quotePy(string(x))
	case BytesVal:
		return "b" + quotePy(string(x))
	}
	return "?"
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'n' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}

// quotePy quotes s with single quotes the way Python's repr does.
func quotePy(s string) string {
	quote := byte('\'')
	hasSingle, hasDouble := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			hasSingle = true
		case '"':
			hasDouble = true
		}
	}
	if hasSingle && !hasDouble {
		quote = '"'
	}
	buf := make([]byte, 0, len(s)+2)
	buf = append(buf, quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			buf = append(buf, '\\', byte(r))
		case r == '\n':
			buf = append(buf, '\\', 'n')
		case r == '\t':
			buf = append(buf, '\\', 't')
		case r == '\r':
			buf = append(buf, '\\', 'r')
		case r < 0x20:
			buf = append(buf, []byte("\\x"+strconv.FormatInt(int64(r)+0x100, 16)[1:])...)
		default:
			buf = append(buf, string(r)...)
		}
	}
	buf = append(buf, quote)
	return string(buf)
}
