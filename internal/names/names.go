// Package names holds the fixed name tables of the Python environment the engine
// reasons about: builtins, supported libraries, exception classes and the display
// labels of node kinds.
package names

import (
	"strings"

	"hintgen/internal/pyast"
)

// SupportedLibraries are the modules a submission may import.
var SupportedLibraries = []string{"string", "math", "random", "__future__", "copy"}

// ExceptionClasses are the builtin exception names.
var ExceptionClasses = []string{
	"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
	"BufferError", "BytesWarning", "DeprecationWarning", "EOFError",
	"EnvironmentError", "Exception", "FloatingPointError", "FutureWarning",
	"GeneratorExit", "IOError", "ImportError", "ImportWarning",
	"IndentationError", "IndexError", "KeyError", "KeyboardInterrupt",
	"LookupError", "MemoryError", "NameError", "NotImplementedError",
	"OSError", "OverflowError", "PendingDeprecationWarning", "ReferenceError",
	"RuntimeError", "RuntimeWarning", "StandardError", "StopIteration",
	"SyntaxError", "SyntaxWarning", "SystemError", "SystemExit",
	"TabError", "TypeError", "UnboundLocalError", "UnicodeDecodeError",
	"UnicodeEncodeError", "UnicodeError", "UnicodeTranslateError", "UnicodeWarning",
	"UserWarning", "ValueError", "Warning", "ZeroDivisionError",
	"WindowsError", "BlockingIOError", "ChildProcessError",
	"ConnectionError", "BrokenPipeError", "ConnectionAbortedError",
	"ConnectionRefusedError", "ConnectionResetError", "FileExistsError",
	"FileNotFoundError", "InterruptedError", "IsADirectoryError", "NotADirectoryError",
	"PermissionError", "ProcessLookupError", "TimeoutError",
	"ResourceWarning", "RecursionError", "StopAsyncIteration",
}

// BuiltinSafeFunctions never raise when called with arguments of a matching signature.
var BuiltinSafeFunctions = []string{
	"abs", "all", "any", "bin", "bool", "cmp", "len",
	"list", "max", "min", "pow", "repr", "round", "slice", "str", "type",
}

// SafeStringFunctions are str methods that do not raise on matching arguments.
var SafeStringFunctions = []string{
	"capitalize", "center", "count", "endswith", "expandtabs", "find",
	"isalnum", "isalpha", "isdigit", "islower", "isspace", "istitle",
	"isupper", "join", "ljust", "lower", "lstrip", "partition", "replace",
	"rfind", "rjust", "rpartition", "rsplit", "rstrip", "split", "splitlines",
	"startswith", "strip", "swapcase", "title", "translate", "upper", "zfill",
	"isdecimal", "isnumeric",
}

// SafeMathFunctions are math functions that do not raise on matching arguments.
var SafeMathFunctions = []string{
	"ceil", "copysign", "fabs", "floor", "fmod", "isinf",
	"isnan", "exp", "expm1", "cos", "hypot", "sin", "tan",
	"degrees", "radians",
}

// SafeListFunctions are list methods that do not raise.
var SafeListFunctions = []string{"append", "extend", "insert", "count", "sort", "reverse"}

// SafeLibraryMap lists the members of each supported library that cannot raise.
var SafeLibraryMap = map[string][]string{
	"string": {"ascii_letters", "ascii_lowercase", "ascii_uppercase",
		"digits", "hexdigits", "letters", "lowercase", "octdigits",
		"punctuation", "printable", "uppercase", "whitespace",
		"capitalize", "expandtabs", "find", "rfind", "count",
		"lower", "split", "rsplit", "splitfields", "join",
		"joinfields", "lstrip", "rstrip", "strip", "swapcase",
		"upper", "ljust", "rjust", "center", "zfill", "replace"},
	"math": {"ceil", "copysign", "fabs", "floor", "fmod",
		"frexp", "fsum", "isinf", "isnan", "ldexp", "modf", "trunc", "exp",
		"expm1", "log", "log1p", "log10", "sqrt", "acos", "asin",
		"atan", "atan2", "cos", "hypot", "sin", "tan", "degrees", "radians",
		"acosh", "asinh", "atanh", "cosh", "sinh", "tanh", "erf", "erfc",
		"gamma", "lgamma", "pi", "e"},
	"random":     {},
	"__future__": {"nested_scopes", "generators", "division", "absolute_import", "with_statement", "print_function", "unicode_literals"},
}

// LibraryMap lists every known member of each supported library.
var LibraryMap = map[string][]string{
	"string": {"ascii_letters", "ascii_lowercase", "ascii_uppercase",
		"digits", "hexdigits", "letters", "lowercase", "octdigits",
		"punctuation", "printable", "uppercase", "whitespace",
		"capwords", "maketrans", "atof", "atoi", "atol", "capitalize",
		"expandtabs", "find", "rfind", "index", "rindex", "count",
		"lower", "split", "rsplit", "splitfields", "join",
		"joinfields", "lstrip", "rstrip", "strip", "swapcase",
		"translate", "upper", "ljust", "rjust", "center", "zfill",
		"replace", "Template", "Formatter"},
	"math": {"ceil", "copysign", "fabs", "factorial", "floor", "fmod",
		"frexp", "fsum", "isinf", "isnan", "ldexp", "modf", "trunc", "exp",
		"expm1", "log", "log1p", "log10", "pow", "sqrt", "acos", "asin",
		"atan", "atan2", "cos", "hypot", "sin", "tan", "degrees", "radians",
		"acosh", "asinh", "atanh", "cosh", "sinh", "tanh", "erf", "erfc",
		"gamma", "lgamma", "pi", "e"},
	"random": {"seed", "getstate", "setstate", "jumpahead", "getrandbits",
		"randrange", "randint", "choice", "shuffle", "sample",
		"random", "uniform", "triangular", "betavariate", "expovariate",
		"gammavariate", "gauss", "lognormvariate", "normalvariate",
		"vonmisesvariate", "paretovariate", "weibullvariate", "WichmannHill",
		"whseed", "SystemRandom"},
	"__future__": {"nested_scopes", "generators", "division", "absolute_import", "with_statement", "print_function", "unicode_literals"},
	"copy":       {"copy", "deepcopy"},
}

var builtinConstants = []string{"None", "True", "False", "NotImplemented", "Ellipsis"}

// TypeCastFunctions are the builtin type constructors.
var TypeCastFunctions = []string{"bool", "bytes", "complex", "dict", "enumerate", "float", "frozenset",
	"int", "list", "memoryview", "object", "property", "reversed", "set", "slice", "str", "tuple", "type",
	"bytearray", "classmethod", "file", "staticmethod", "super"}

var builtinSet = func() map[string]bool {
	m := make(map[string]bool)
	for _, group := range [][]string{builtinConstants, TypeCastFunctions, SupportedLibraries, ExceptionClasses} {
		for _, n := range group {
			m[n] = true
		}
	}
	for n := range AllFunctions {
		m[n] = true
	}
	return m
}()

// IsBuiltin reports names that belong to the environment rather than to the submission.
func IsBuiltin(id string) bool { return builtinSet[id] }

// Contains is a small membership helper over the tables above.
func Contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// IsLibraryMember reports whether lib exports member.
func IsLibraryMember(lib, member string) bool { return Contains(LibraryMap[lib], member) }

// IsSafeLibraryMember reports whether lib.member can be called without raising.
func IsSafeLibraryMember(lib, member string) bool { return Contains(SafeLibraryMap[lib], member) }

var kindLabels = map[pyast.Kind]string{
	pyast.Module: "Module", pyast.FunctionDef: "Function Definition",
	pyast.Return: "Return", pyast.Delete: "Delete", pyast.Assign: "Assign",
	pyast.AugAssign: "AugAssign", pyast.For: "For", pyast.While: "While",
	pyast.If: "If", pyast.With: "With", pyast.Raise: "Raise", pyast.Try: "Try",
	pyast.Assert: "Assert", pyast.Import: "Import", pyast.ImportFrom: "Import From",
	pyast.Global: "Global", pyast.Expr: "Expression", pyast.Pass: "Pass",
	pyast.Break: "Break", pyast.Continue: "Continue",

	pyast.BoolOp: "Boolean Operation", pyast.BinOp: "Binary Operation",
	pyast.UnaryOp: "Unary Operation", pyast.Lambda: "Lambda", pyast.IfExp: "Ternary",
	pyast.Dict: "Dictionary", pyast.Set: "Set", pyast.ListComp: "List Comprehension",
	pyast.SetComp: "Set Comprehension", pyast.DictComp: "Dict Comprehension",
	pyast.GeneratorExp: "Generator", pyast.Compare: "Compare", pyast.Call: "Call",
	pyast.Num: "Number", pyast.Str: "String", pyast.Bytes: "Bytes",
	pyast.NameConstant: "Name Constant", pyast.Attribute: "Attribute",
	pyast.Subscript: "Subscript", pyast.Name: "Name", pyast.List: "List",
	pyast.Tuple: "Tuple", pyast.Starred: "Starred", pyast.Slice: "Slice",

	pyast.And: "And", pyast.Or: "Or", pyast.Add: "Add", pyast.Sub: "Subtract",
	pyast.Mult: "Multiply", pyast.Div: "Divide", pyast.Mod: "Modulo",
	pyast.Pow: "Power", pyast.LShift: "Left Shift", pyast.RShift: "Right Shift",
	pyast.BitOr: "|", pyast.BitXor: "^", pyast.BitAnd: "&", pyast.FloorDiv: "Integer Divide",
	pyast.Invert: "Invert", pyast.Not: "Not", pyast.UAdd: "Unsigned Add",
	pyast.USub: "Unsigned Subtract", pyast.Eq: "==", pyast.NotEq: "!=",
	pyast.Lt: "<", pyast.LtE: "<=", pyast.Gt: ">", pyast.GtE: ">=",
	pyast.Is: "Is", pyast.IsNot: "Is Not", pyast.In: "In", pyast.NotIn: "Not In",

	pyast.Comprehension: "Comprehension", pyast.ExceptHandler: "Except Handler",
	pyast.Arguments: "Arguments", pyast.Arg: "Argument", pyast.Keyword: "Keyword",
	pyast.Alias: "Alias", pyast.WithItem: "With item",
}

// Label returns the human-readable name of a node kind.
func Label(k pyast.Kind) string {
	if s, ok := kindLabels[k]; ok {
		return s
	}
	return k.String()
}

// IsAnonymized reports names produced by the anonymizer: a prefix letter from
// g, p, v, r, n, z followed by digits, then an underscore and the scope.
func IsAnonymized(s string) bool {
	pre, _, _ := strings.Cut(s, "_")
	if len(pre) < 2 || !strings.ContainsRune("gpvrnz", rune(pre[0])) {
		return false
	}
	for _, c := range pre[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParentFunction extracts the scope suffix of an anonymized name, "" for module scope.
func ParentFunction(s string) string {
	_, rest, ok := strings.Cut(s, "_")
	if !ok || rest == "newvar" || rest == "global" {
		return ""
	}
	return rest
}

// IsTokenStep reports placeholder strings of the form ~...~.
func IsTokenStep(s string) bool {
	return len(s) >= 2 && s[0] == '~' && s[len(s)-1] == '~'
}
