package pyast

import "fmt"

// Kind identifies one grammar production.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Statements.
	Module
	FunctionDef
	Return
	Delete
	Assign
	AugAssign
	For
	While
	If
	With
	Raise
	Try
	Assert
	Import
	ImportFrom
	Global
	Expr
	Pass
	Break
	Continue

	// Expressions.
	BoolOp
	BinOp
	UnaryOp
	Lambda
	IfExp
	Dict
	Set
	ListComp
	SetComp
	DictComp
	GeneratorExp
	Compare
	Call
	Num
	Str
	Bytes
	NameConstant
	Attribute
	Subscript
	Starred
	Name
	List
	Tuple
	Slice

	// Operators.
	And
	Or
	Add
	Sub
	Mult
	Div
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
	FloorDiv
	Invert
	Not
	UAdd
	USub
	Eq
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn

	// Auxiliary productions.
	Arguments
	Arg
	Keyword
	Comprehension
	Alias
	ExceptHandler
	WithItem

	kindCount
)

var kindNames = [...]string{
	KindInvalid:   "Invalid",
	Module:        "Module",
	FunctionDef:   "FunctionDef",
	Return:        "Return",
	Delete:        "Delete",
	Assign:        "Assign",
	AugAssign:     "AugAssign",
	For:           "For",
	While:         "While",
	If:            "If",
	With:          "With",
	Raise:         "Raise",
	Try:           "Try",
	Assert:        "Assert",
	Import:        "Import",
	ImportFrom:    "ImportFrom",
	Global:        "Global",
	Expr:          "Expr",
	Pass:          "Pass",
	Break:         "Break",
	Continue:      "Continue",
	BoolOp:        "BoolOp",
	BinOp:         "BinOp",
	UnaryOp:       "UnaryOp",
	Lambda:        "Lambda",
	IfExp:         "IfExp",
	Dict:          "Dict",
	Set:           "Set",
	ListComp:      "ListComp",
	SetComp:       "SetComp",
	DictComp:      "DictComp",
	GeneratorExp:  "GeneratorExp",
	Compare:       "Compare",
	Call:          "Call",
	Num:           "Num",
	Str:           "Str",
	Bytes:         "Bytes",
	NameConstant:  "NameConstant",
	Attribute:     "Attribute",
	Subscript:     "Subscript",
	Starred:       "Starred",
	Name:          "Name",
	List:          "List",
	Tuple:         "Tuple",
	Slice:         "Slice",
	And:           "And",
	Or:            "Or",
	Add:           "Add",
	Sub:           "Sub",
	Mult:          "Mult",
	Div:           "Div",
	Mod:           "Mod",
	Pow:           "Pow",
	LShift:        "LShift",
	RShift:        "RShift",
	BitOr:         "BitOr",
	BitXor:        "BitXor",
	BitAnd:        "BitAnd",
	FloorDiv:      "FloorDiv",
	Invert:        "Invert",
	Not:           "Not",
	UAdd:          "UAdd",
	USub:          "USub",
	Eq:            "Eq",
	NotEq:         "NotEq",
	Lt:            "Lt",
	LtE:           "LtE",
	Gt:            "Gt",
	GtE:           "GtE",
	Is:            "Is",
	IsNot:         "IsNot",
	In:            "In",
	NotIn:         "NotIn",
	Arguments:     "arguments",
	Arg:           "arg",
	Keyword:       "keyword",
	Comprehension: "comprehension",
	Alias:         "alias",
	ExceptHandler: "ExceptHandler",
	WithItem:      "withitem",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// KindByName resolves a production name as printed by String.
func KindByName(name string) (Kind, bool) {
	for k := KindInvalid + 1; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}

func (k Kind) Valid() bool { return k > KindInvalid && k < kindCount }

func (k Kind) IsStmt() bool { return k >= Module && k <= Continue }

func (k Kind) IsExpr() bool { return k >= BoolOp && k <= Slice }

// IsOperator reports operator tokens: boolean, binary, unary and comparison operators.
func (k Kind) IsOperator() bool { return k >= And && k <= NotIn }

func (k Kind) IsBoolOperator() bool { return k == And || k == Or }

func (k Kind) IsUnaryOperator() bool { return k >= Invert && k <= USub }

func (k Kind) IsCmpOperator() bool { return k >= Eq && k <= NotIn }

func (k Kind) IsBinOperator() bool { return k >= Add && k <= FloorDiv }

// IsLiteral reports constant leaf expressions.
func (k Kind) IsLiteral() bool {
	switch k {
	case Num, Str, Bytes, NameConstant:
		return true
	}
	return false
}

// rank orders differing kinds: statements, then expressions, then operators, then
// auxiliary productions.
var rank = func() [kindCount]int {
	order := []Kind{
		Module,
		Break, Continue, Pass, Global,
		Expr, Assign, AugAssign, Return,
		Assert, Delete, If, For, While,
		With, Import, ImportFrom, Raise,
		Try, FunctionDef,

		BinOp, BoolOp, Compare, UnaryOp,
		DictComp, ListComp, SetComp, GeneratorExp,
		Lambda, IfExp, Call, Subscript,
		Attribute, Dict, List, Tuple,
		Set, Name, Str, Bytes, Num,
		NameConstant, Starred,

		Slice,

		And, Or, Add, Sub, Mult, Div,
		Mod, Pow, LShift, RShift, BitOr,
		BitXor, BitAnd, FloorDiv, Invert, Not,
		UAdd, USub, Eq, NotEq, Lt, LtE,
		Gt, GtE, Is, IsNot, In, NotIn,

		Alias, Keyword, Arguments, Arg, Comprehension,
		ExceptHandler, WithItem,
	}
	var r [kindCount]int
	for i, k := range order {
		r[k] = i + 1
	}
	return r
}()

// Rank returns the position of k in the global kind order, 0 when unranked.
func (k Kind) Rank() int {
	if !k.Valid() {
		return 0
	}
	return rank[k]
}
