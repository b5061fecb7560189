package pyast

// ID is the stable identity of a node within one original tree. 0 marks a synthesized node.
type ID uint32

// Type is the inferred runtime type of an expression.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeComplex
	TypeStr
	TypeBytes
	TypeList
	TypeTuple
	TypeDict
	TypeSet
	TypeNone
	TypeFunc
	TypeRange
	TypeGenerator
	TypeMixed // branches disagree after a merge point

	// Signature-table pseudo types.
	TypeObject   // accepts any argument
	TypeIterable // accepts any iterable
)

var typeNames = [...]string{
	TypeUnknown:   "unknown",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeComplex:   "complex",
	TypeStr:       "str",
	TypeBytes:     "bytes",
	TypeList:      "list",
	TypeTuple:     "tuple",
	TypeDict:      "dict",
	TypeSet:       "set",
	TypeNone:      "NoneType",
	TypeFunc:      "function",
	TypeRange:     "range",
	TypeGenerator: "generator",
	TypeMixed:     "mixed",
	TypeObject:    "object",
	TypeIterable:  "iterable",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type?"
}

// ParseType maps a Python type name to a Type.
func ParseType(s string) Type {
	for i, n := range typeNames {
		if n == s {
			return Type(i)
		}
	}
	return TypeUnknown
}

// IsNumber reports int, float, bool and complex.
func (t Type) IsNumber() bool {
	return t == TypeInt || t == TypeFloat || t == TypeBool || t == TypeComplex
}

// IsIterable reports types that can be iterated over.
func (t Type) IsIterable() bool {
	switch t {
	case TypeDict, TypeList, TypeSet, TypeStr, TypeBytes, TypeTuple:
		return true
	}
	return false
}

// Accepts reports whether an argument of type arg fits a parameter declared as t.
// bool is an int; every type is an object.
func (t Type) Accepts(arg Type) bool {
	switch {
	case t == arg, t == TypeObject:
		return true
	case t == TypeIterable:
		return arg.IsIterable() || arg == TypeRange || arg == TypeGenerator
	case t == TypeInt:
		return arg == TypeBool
	}
	return false
}

// IsImmutable reports types whose values cannot be changed in place.
func (t Type) IsImmutable() bool {
	switch t {
	case TypeBool, TypeInt, TypeFloat, TypeComplex, TypeStr, TypeBytes, TypeTuple, TypeNone:
		return true
	}
	return false
}

// Meta carries value annotations that are not plain flags.
type Meta struct {
	OriginalID  string // name before anonymization
	VarID       int    // per-variable number from metadata propagation
	VarGlobalID ID     // id of the node whose value was copied here
	SecondID    ID     // id of a second source node merged into this one
	MovedLine   ID     // id of the statement this one was moved next to
	Type        Type
}

// Node is one tree node. Fields follow the kind's schema order.
type Node struct {
	Kind Kind
	ID   ID
	Tags Tags
	Meta Meta
	Line int
	Col  int

	fields []Value
	weight int // memoized token weight, 0 when not computed
}

// New allocates a node of kind k with the given field values in schema order.
// Missing trailing values are left nil; list fields are initialized empty.
func New(k Kind, values ...Value) *Node {
	fs := Fields(k)
	n := &Node{Kind: k, fields: make([]Value, len(fs))}
	for i, f := range fs {
		if i < len(values) && !IsNil(values[i]) {
			n.fields[i] = values[i]
			continue
		}
		switch f.Shape {
		case ShapeList, ShapeIdentList, ShapeOptList:
			n.fields[i] = &ListVal{}
		case ShapeInt:
			n.fields[i] = IntVal(0)
		}
	}
	return n
}

// Get returns the named field; ok is false when the kind has no such field.
func (n *Node) Get(name string) (Value, bool) {
	if n == nil {
		return nil, false
	}
	i := FieldIndex(n.Kind, name)
	if i < 0 {
		return nil, false
	}
	return n.fields[i], true
}

// Field returns the named field or nil.
func (n *Node) Field(name string) Value {
	v, _ := n.Get(name)
	return v
}

// Set stores v in the named field and reports whether the field exists.
func (n *Node) Set(name string, v Value) bool {
	if n == nil {
		return false
	}
	i := FieldIndex(n.Kind, name)
	if i < 0 {
		return false
	}
	n.fields[i] = v
	n.weight = 0
	return true
}

// At returns field i in schema order.
func (n *Node) At(i int) Value { return n.fields[i] }

// SetAt replaces field i in schema order.
func (n *Node) SetAt(i int, v Value) {
	n.fields[i] = v
	n.weight = 0
}

// NumFields returns the schema length of the node's kind.
func (n *Node) NumFields() int { return len(n.fields) }

// Child returns the named field as a node.
func (n *Node) Child(name string) *Node { return AsNode(n.Field(name)) }

// ListField returns the named field as a list holder.
func (n *Node) ListField(name string) *ListVal { return AsList(n.Field(name)) }

// Body returns the statement list stored in "body".
func (n *Node) Body() *ListVal { return n.ListField("body") }

// Orelse returns the statement list stored in "orelse".
func (n *Node) Orelse() *ListVal { return n.ListField("orelse") }

// Ident returns a string-valued field.
func (n *Node) Ident(name string) string {
	s, _ := n.Field(name).(StrVal)
	return string(s)
}

// Op returns the operator node kind of BinOp, BoolOp, UnaryOp and AugAssign.
func (n *Node) Op() Kind {
	if op := n.Child("op"); op != nil {
		return op.Kind
	}
	return KindInvalid
}

// Is reports whether n is non-nil and of kind k.
func (n *Node) Is(k Kind) bool { return n != nil && n.Kind == k }

// Weight returns the memoized token weight, 0 when not yet computed.
func (n *Node) Weight() int { return n.weight }

// SetWeight memoizes the token weight.
func (n *Node) SetWeight(w int) { n.weight = w }

// Invalidate drops the memoized weight.
func (n *Node) Invalidate() { n.weight = 0 }

// Inherit copies identity, provenance and position from src.
func (n *Node) Inherit(src *Node) *Node {
	if n == nil || src == nil {
		return n
	}
	if src.ID != 0 {
		n.ID = src.ID
	}
	n.Tags |= src.Tags
	m := src.Meta
	if m.OriginalID != "" {
		n.Meta.OriginalID = m.OriginalID
	}
	if m.VarID != 0 {
		n.Meta.VarID = m.VarID
	}
	if m.VarGlobalID != 0 {
		n.Meta.VarGlobalID = m.VarGlobalID
	}
	if m.SecondID != 0 {
		n.Meta.SecondID = m.SecondID
	}
	if m.MovedLine != 0 {
		n.Meta.MovedLine = m.MovedLine
	}
	if m.Type != TypeUnknown {
		n.Meta.Type = m.Type
	}
	if src.Line != 0 {
		n.Line, n.Col = src.Line, src.Col
	}
	return n
}

// Tagged sets tags on n and returns it.
func (n *Node) Tagged(tags ...Tag) *Node {
	for _, t := range tags {
		n.Tags.Set(t)
	}
	return n
}
