package pyast

// Shape describes what a field may hold.
type Shape uint8

const (
	ShapeNode      Shape = iota // required child node
	ShapeOptNode                // child node or nil
	ShapeList                   // *ListVal of nodes
	ShapeIdent                  // StrVal identifier
	ShapeOptIdent               // StrVal or nil
	ShapeIdentList              // *ListVal of StrVal
	ShapeConst                  // literal payload
	ShapeInt                    // IntVal
	ShapeOptList                // *ListVal whose items may be nil (Dict keys, kw_defaults)
)

// Field is one entry of a kind's ordered field schema.
type Field struct {
	Name  string
	Shape Shape
}

var schema = [kindCount][]Field{
	Module:      {{"body", ShapeList}},
	FunctionDef: {{"name", ShapeIdent}, {"args", ShapeNode}, {"body", ShapeList}, {"decorator_list", ShapeList}, {"returns", ShapeOptNode}},
	Return:      {{"value", ShapeOptNode}},
	Delete:      {{"targets", ShapeList}},
	Assign:      {{"targets", ShapeList}, {"value", ShapeNode}},
	AugAssign:   {{"target", ShapeNode}, {"op", ShapeNode}, {"value", ShapeNode}},
	For:         {{"target", ShapeNode}, {"iter", ShapeNode}, {"body", ShapeList}, {"orelse", ShapeList}},
	While:       {{"test", ShapeNode}, {"body", ShapeList}, {"orelse", ShapeList}},
	If:          {{"test", ShapeNode}, {"body", ShapeList}, {"orelse", ShapeList}},
	With:        {{"items", ShapeList}, {"body", ShapeList}},
	Raise:       {{"exc", ShapeOptNode}, {"cause", ShapeOptNode}},
	Try:         {{"body", ShapeList}, {"handlers", ShapeList}, {"orelse", ShapeList}, {"finalbody", ShapeList}},
	Assert:      {{"test", ShapeNode}, {"msg", ShapeOptNode}},
	Import:      {{"names", ShapeList}},
	ImportFrom:  {{"module", ShapeOptIdent}, {"names", ShapeList}, {"level", ShapeInt}},
	Global:      {{"names", ShapeIdentList}},
	Expr:        {{"value", ShapeNode}},

	BoolOp:       {{"op", ShapeNode}, {"values", ShapeList}},
	BinOp:        {{"left", ShapeNode}, {"op", ShapeNode}, {"right", ShapeNode}},
	UnaryOp:      {{"op", ShapeNode}, {"operand", ShapeNode}},
	Lambda:       {{"args", ShapeNode}, {"body", ShapeNode}},
	IfExp:        {{"test", ShapeNode}, {"body", ShapeNode}, {"orelse", ShapeNode}},
	Dict:         {{"keys", ShapeOptList}, {"values", ShapeList}},
	Set:          {{"elts", ShapeList}},
	ListComp:     {{"elt", ShapeNode}, {"generators", ShapeList}},
	SetComp:      {{"elt", ShapeNode}, {"generators", ShapeList}},
	DictComp:     {{"key", ShapeNode}, {"value", ShapeNode}, {"generators", ShapeList}},
	GeneratorExp: {{"elt", ShapeNode}, {"generators", ShapeList}},
	Compare:      {{"left", ShapeNode}, {"ops", ShapeList}, {"comparators", ShapeList}},
	Call:         {{"func", ShapeNode}, {"args", ShapeList}, {"keywords", ShapeList}},
	Num:          {{"n", ShapeConst}},
	Str:          {{"s", ShapeConst}},
	Bytes:        {{"s", ShapeConst}},
	NameConstant: {{"value", ShapeConst}},
	Attribute:    {{"value", ShapeNode}, {"attr", ShapeIdent}},
	Subscript:    {{"value", ShapeNode}, {"slice", ShapeNode}},
	Starred:      {{"value", ShapeNode}},
	Name:         {{"id", ShapeIdent}},
	List:         {{"elts", ShapeList}},
	Tuple:        {{"elts", ShapeList}},
	Slice:        {{"lower", ShapeOptNode}, {"upper", ShapeOptNode}, {"step", ShapeOptNode}},

	Arguments:     {{"args", ShapeList}, {"vararg", ShapeOptNode}, {"kwonlyargs", ShapeList}, {"kw_defaults", ShapeOptList}, {"kwarg", ShapeOptNode}, {"defaults", ShapeList}},
	Arg:           {{"arg", ShapeIdent}, {"annotation", ShapeOptNode}},
	Keyword:       {{"arg", ShapeOptIdent}, {"value", ShapeNode}},
	Comprehension: {{"target", ShapeNode}, {"iter", ShapeNode}, {"ifs", ShapeList}},
	Alias:         {{"name", ShapeIdent}, {"asname", ShapeOptIdent}},
	ExceptHandler: {{"type", ShapeOptNode}, {"name", ShapeOptIdent}, {"body", ShapeList}},
	WithItem:      {{"context_expr", ShapeNode}, {"optional_vars", ShapeOptNode}},
}

// Fields returns the ordered field schema of k. Operators and Pass/Break/Continue have none.
func Fields(k Kind) []Field {
	if !k.Valid() {
		return nil
	}
	return schema[k]
}

// FieldIndex locates name in k's schema.
func FieldIndex(k Kind, name string) int {
	for i, f := range Fields(k) {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// HasField reports whether kind k declares a field called name.
func HasField(k Kind, name string) bool { return FieldIndex(k, name) >= 0 }
