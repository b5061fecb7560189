package pyast

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// codecVersion changes whenever the wire layout below does.
const codecVersion uint16 = 1

// ErrCodecVersion reports a blob written by an incompatible codec.
var ErrCodecVersion = errors.New("tree blob has an unknown codec version")

type wireTree struct {
	Version uint16    `msgpack:"v"`
	Root    *wireNode `msgpack:"r"`
}

// wireNode spells the kind by name so blobs survive reordering of the Kind enum.
type wireNode struct {
	Kind      string      `msgpack:"k"`
	ID        ID          `msgpack:"i,omitempty"`
	Tags      Tags        `msgpack:"t,omitempty"`
	Line      int         `msgpack:"l,omitempty"`
	Col       int         `msgpack:"c,omitempty"`
	Orig      string      `msgpack:"o,omitempty"`
	VarID     int         `msgpack:"vi,omitempty"`
	VarGlobal ID          `msgpack:"vg,omitempty"`
	Second    ID          `msgpack:"s2,omitempty"`
	Moved     ID          `msgpack:"ml,omitempty"`
	Type      Type        `msgpack:"ty,omitempty"`
	Fields    []wireValue `msgpack:"f"`
}

const (
	wireNil uint8 = iota
	wireNodeVal
	wireList
	wireStr
	wireInt
	wireFloat
	wireBool
	wireBytes
)

type wireValue struct {
	T uint8       `msgpack:"t"`
	N *wireNode   `msgpack:"n,omitempty"`
	L []wireValue `msgpack:"l,omitempty"`
	S string      `msgpack:"s,omitempty"`
	I int64       `msgpack:"i,omitempty"`
	F float64     `msgpack:"f,omitempty"`
	B bool        `msgpack:"b,omitempty"`
}

// MarshalTree encodes n with msgpack, keeping ids, tags and metadata.
func MarshalTree(n *Node) ([]byte, error) {
	return msgpack.Marshal(&wireTree{Version: codecVersion, Root: toWire(n)})
}

// UnmarshalTree decodes a blob written by MarshalTree.
func UnmarshalTree(b []byte) (*Node, error) {
	var w wireTree
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if w.Version != codecVersion {
		return nil, fmt.Errorf("%w: %d", ErrCodecVersion, w.Version)
	}
	return fromWire(w.Root)
}

func toWire(n *Node) *wireNode {
	if n == nil {
		return nil
	}
	w := &wireNode{
		Kind:      n.Kind.String(),
		ID:        n.ID,
		Tags:      n.Tags,
		Line:      n.Line,
		Col:       n.Col,
		Orig:      n.Meta.OriginalID,
		VarID:     n.Meta.VarID,
		VarGlobal: n.Meta.VarGlobalID,
		Second:    n.Meta.SecondID,
		Moved:     n.Meta.MovedLine,
		Type:      n.Meta.Type,
		Fields:    make([]wireValue, len(n.fields)),
	}
	for i, v := range n.fields {
		w.Fields[i] = valueToWire(v)
	}
	return w
}

func valueToWire(v Value) wireValue {
	switch x := v.(type) {
	case *Node:
		if x == nil {
			return wireValue{T: wireNil}
		}
		return wireValue{T: wireNodeVal, N: toWire(x)}
	case *ListVal:
		if x == nil {
			return wireValue{T: wireNil}
		}
		items := make([]wireValue, len(x.Items))
		for i, it := range x.Items {
			items[i] = valueToWire(it)
		}
		return wireValue{T: wireList, L: items}
	case StrVal:
		return wireValue{T: wireStr, S: string(x)}
	case BytesVal:
		return wireValue{T: wireBytes, S: string(x)}
	case IntVal:
		return wireValue{T: wireInt, I: int64(x)}
	case FloatVal:
		return wireValue{T: wireFloat, F: float64(x)}
	case BoolVal:
		return wireValue{T: wireBool, B: bool(x)}
	}
	return wireValue{T: wireNil}
}

func fromWire(w *wireNode) (*Node, error) {
	if w == nil {
		return nil, nil
	}
	k, ok := KindByName(w.Kind)
	if !ok {
		return nil, fmt.Errorf("decode tree: unknown kind %q", w.Kind)
	}
	if len(w.Fields) != len(Fields(k)) {
		return nil, fmt.Errorf("decode tree: %s has %d fields, blob has %d", k, len(Fields(k)), len(w.Fields))
	}
	n := &Node{
		Kind: k,
		ID:   w.ID,
		Tags: w.Tags,
		Line: w.Line,
		Col:  w.Col,
		Meta: Meta{
			OriginalID:  w.Orig,
			VarID:       w.VarID,
			VarGlobalID: w.VarGlobal,
			SecondID:    w.Second,
			MovedLine:   w.Moved,
			Type:        w.Type,
		},
		fields: make([]Value, len(w.Fields)),
	}
	for i, f := range w.Fields {
		v, err := valueFromWire(f)
		if err != nil {
			return nil, err
		}
		n.fields[i] = v
	}
	return n, nil
}

func valueFromWire(w wireValue) (Value, error) {
	switch w.T {
	case wireNil:
		return nil, nil
	case wireNodeVal:
		return fromWire(w.N)
	case wireList:
		l := &ListVal{Items: make([]Value, len(w.L))}
		for i, it := range w.L {
			v, err := valueFromWire(it)
			if err != nil {
				return nil, err
			}
			l.Items[i] = v
		}
		return l, nil
	case wireStr:
		return StrVal(w.S), nil
	case wireBytes:
		return BytesVal(w.S), nil
	case wireInt:
		return IntVal(w.I), nil
	case wireFloat:
		return FloatVal(w.F), nil
	case wireBool:
		return BoolVal(w.B), nil
	}
	return nil, fmt.Errorf("decode tree: unknown value tag %d", w.T)
}
