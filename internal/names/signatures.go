package names

import "hintgen/internal/pyast"

// Sig is one accepted argument list of a function and its result type.
// A TypeUnknown result means the result type cannot be stated.
type Sig struct {
	Args []pyast.Type
	Ret  pyast.Type
}

// Table maps function names to their signatures. A nil entry marks a known
// function whose signatures are not tabulated.
type Table map[string][]Sig

const (
	tBool    = pyast.TypeBool
	tInt     = pyast.TypeInt
	tFloat   = pyast.TypeFloat
	tComplex = pyast.TypeComplex
	tStr     = pyast.TypeStr
	tList    = pyast.TypeList
	tTuple   = pyast.TypeTuple
	tDict    = pyast.TypeDict
	tObj     = pyast.TypeObject
	tIter    = pyast.TypeIterable
	tFunc    = pyast.TypeFunc
	tUnknown = pyast.TypeUnknown
)

func sig(ret pyast.Type, args ...pyast.Type) Sig { return Sig{Args: args, Ret: ret} }

// numeric1 is the common (int)|(float) -> ret pair.
func numeric1(ret pyast.Type) []Sig { return []Sig{sig(ret, tInt), sig(ret, tFloat)} }

// numeric2 covers every int/float pairing.
func numeric2(ret pyast.Type) []Sig {
	return []Sig{sig(ret, tInt, tInt), sig(ret, tInt, tFloat), sig(ret, tFloat, tInt), sig(ret, tFloat, tFloat)}
}

// BuiltinFunctions covers builtin functions and type constructors.
var BuiltinFunctions = Table{
	"abs":        {sig(tInt, tInt), sig(tFloat, tFloat)},
	"all":        {sig(tBool, tIter)},
	"any":        {sig(tBool, tIter)},
	"bin":        {sig(tStr, tInt)},
	"callable":   {sig(tBool, tObj)},
	"chr":        {sig(tStr, tInt)},
	"cmp":        {sig(tInt, tObj, tObj)},
	"coerce":     nil,
	"compile":    nil,
	"dir":        {sig(tList)},
	"divmod":     numeric2(tTuple),
	"filter":     {sig(tList, tFunc, tIter)},
	"getattr":    nil,
	"globals":    nil,
	"hasattr":    nil,
	"hash":       nil,
	"hex":        nil,
	"id":         nil,
	"isinstance": {sig(tBool, tUnknown, tUnknown)},
	"issubclass": nil,
	"iter":       {sig(tUnknown, tIter), sig(tUnknown, tUnknown, tObj)},
	"len":        {sig(tInt, tStr), sig(tInt, tTuple), sig(tInt, tList), sig(tInt, tDict)},
	"locals":     nil,
	"map":        {sig(tList, tUnknown, tIter)},
	"max":        {sig(tUnknown, tIter)},
	"min":        {sig(tUnknown, tIter)},
	"oct":        {sig(tStr, tInt)},
	"ord":        {sig(tInt, tStr)},
	"pow":        {sig(tInt, tInt, tInt), sig(tFloat, tInt, tFloat), sig(tFloat, tFloat, tInt), sig(tFloat, tFloat, tFloat)},
	"print":      nil,
	"range":      {sig(tList, tInt), sig(tList, tInt, tInt), sig(tList, tInt, tInt, tInt)},
	"repr":       {sig(tStr, tObj)},
	"round":      {sig(tFloat, tInt), sig(tFloat, tFloat), sig(tFloat, tInt, tInt), sig(tFloat, tFloat, tInt)},
	"sorted":     {sig(tList, tIter)},
	"sum":        {sig(tUnknown, tIter)},
	"vars":       nil,
	"zip":        {sig(tList), sig(tList, tIter)},

	"__import__": nil,
	"apply":      nil,
	"delattr":    {sig(tUnknown, tObj, tStr)},
	"eval":       {sig(tUnknown, tStr)},
	"execfile":   nil,
	"format":     nil,
	"input":      {sig(tUnknown), sig(tUnknown, tObj)},
	"intern":     nil,
	"next":       {sig(tUnknown), sig(tUnknown, tUnknown)},
	"open":       nil,
	"raw_input":  {sig(tStr), sig(tStr, tObj)},
	"reduce":     nil,
	"reload":     nil,
	"setattr":    nil,

	"bool":         {sig(tBool, tObj)},
	"bytes":        nil,
	"complex":      {sig(tComplex, tStr, tInt), sig(tComplex, tStr, tFloat), sig(tComplex, tInt, tInt), sig(tComplex, tInt, tFloat), sig(tComplex, tFloat, tInt), sig(tComplex, tFloat, tFloat)},
	"dict":         {sig(tDict, tIter)},
	"enumerate":    {sig(tUnknown, tIter)},
	"float":        {sig(tFloat, tStr), sig(tFloat, tInt), sig(tFloat, tFloat)},
	"frozenset":    nil,
	"int":          {sig(tInt, tStr), sig(tInt, tFloat), sig(tInt, tInt), sig(tInt, tStr, tInt)},
	"list":         {sig(tList, tIter)},
	"memoryview":   nil,
	"object":       {sig(tObj)},
	"property":     nil,
	"reversed":     {sig(tUnknown, tStr), sig(tUnknown, tList)},
	"set":          {sig(tUnknown), sig(tUnknown, tIter)},
	"slice":        {sig(tUnknown, tInt), sig(tUnknown, tInt, tInt), sig(tUnknown, tInt, tInt, tInt)},
	"str":          {sig(tStr, tObj)},
	"tuple":        {sig(tTuple), sig(tTuple, tIter)},
	"type":         {sig(tUnknown, tObj)},
	"bytearray":    {sig(tList)},
	"classmethod":  nil,
	"file":         nil,
	"staticmethod": nil,
	"super":        nil,
}

// StringFunctions are str methods. None of them mutate the receiver.
var StringFunctions = Table{
	"capitalize": {sig(tStr)},
	"center":     {sig(tStr, tInt), sig(tStr, tInt, tStr)},
	"count":      {sig(tInt, tStr), sig(tInt, tStr, tInt), sig(tInt, tStr, tInt, tInt)},
	"decode":     {sig(tStr)},
	"encode":     {sig(tStr)},
	"endswith":   {sig(tBool, tStr)},
	"expandtabs": {sig(tStr), sig(tStr, tInt)},
	"find":       {sig(tInt, tStr), sig(tInt, tStr, tInt), sig(tInt, tStr, tInt, tInt)},
	"format":     {sig(tStr, tList, tList)},
	"index":      {sig(tInt, tStr), sig(tInt, tStr, tInt), sig(tInt, tStr, tInt, tInt)},
	"isalnum":    {sig(tBool)},
	"isalpha":    {sig(tBool)},
	"isdecimal":  {sig(tBool)},
	"isdigit":    {sig(tBool)},
	"islower":    {sig(tBool)},
	"isnumeric":  {sig(tBool)},
	"isspace":    {sig(tBool)},
	"istitle":    {sig(tBool)},
	"isupper":    {sig(tBool)},
	"join":       {sig(tStr, tIter), sig(tStr, tIter, tStr)},
	"ljust":      {sig(tStr, tInt)},
	"lower":      {sig(tStr)},
	"lstrip":     {sig(tStr), sig(tStr, tStr)},
	"partition":  {sig(tTuple, tStr)},
	"replace":    {sig(tStr, tStr, tStr), sig(tStr, tStr, tStr, tInt)},
	"rfind":      {sig(tInt, tStr), sig(tInt, tStr, tInt), sig(tInt, tStr, tInt, tInt)},
	"rindex":     {sig(tInt, tStr)},
	"rjust":      {sig(tStr, tInt)},
	"rpartition": {sig(tTuple, tStr)},
	"rsplit":     {sig(tList)},
	"rstrip":     {sig(tStr)},
	"split":      {sig(tList), sig(tList, tStr), sig(tList, tStr, tInt)},
	"splitlines": {sig(tList)},
	"startswith": {sig(tBool, tStr)},
	"strip":      {sig(tStr), sig(tStr, tStr)},
	"swapcase":   {sig(tStr)},
	"title":      {sig(tStr)},
	"translate":  {sig(tStr, tStr)},
	"upper":      {sig(tStr)},
	"zfill":      {sig(tStr, tInt)},
}

// ListFunctions are list methods.
var ListFunctions = Table{
	"append":  {sig(tUnknown, tObj)},
	"extend":  {sig(tUnknown, tList)},
	"insert":  {sig(tUnknown, tInt, tObj)},
	"remove":  {sig(tUnknown, tObj)},
	"pop":     {sig(tUnknown), sig(tUnknown, tInt)},
	"sort":    {sig(tUnknown)},
	"reverse": {sig(tUnknown)},
	"index":   {sig(tInt, tObj), sig(tInt, tObj, tInt), sig(tInt, tObj, tInt, tInt)},
	"count":   {sig(tInt, tObj), sig(tInt, tObj, tInt), sig(tInt, tObj, tInt, tInt)},
}

// DictFunctions are dict methods.
var DictFunctions = Table{
	"get":   {sig(tObj, tObj), sig(tObj, tObj, tObj)},
	"items": {sig(tList)},
}

// MathFunctions are the members of the math module.
var MathFunctions = Table{
	"ceil":      numeric1(tFloat),
	"copysign":  numeric2(tFloat),
	"fabs":      numeric1(tFloat),
	"factorial": numeric1(tInt),
	"floor":     numeric1(tFloat),
	"fmod":      numeric2(tFloat),
	"frexp":     nil,
	"fsum":      nil,
	"isinf":     numeric1(tBool),
	"isnan":     numeric1(tBool),
	"ldexp":     nil,
	"modf":      nil,
	"trunc":     nil,
	"exp":       numeric1(tFloat),
	"expm1":     numeric1(tFloat),
	"log":       append(numeric1(tFloat), numeric2(tFloat)...),
	"log1p":     numeric1(tFloat),
	"log10":     numeric1(tFloat),
	"pow":       numeric2(tFloat),
	"sqrt":      numeric1(tFloat),
	"acos":      numeric1(tFloat),
	"asin":      numeric1(tFloat),
	"atan":      numeric1(tFloat),
	"atan2":     numeric1(tFloat),
	"cos":       numeric1(tFloat),
	"hypot":     numeric2(tFloat),
	"sin":       numeric1(tFloat),
	"tan":       numeric1(tFloat),
	"degrees":   numeric1(tFloat),
	"radians":   numeric1(tFloat),
	"acosh":     nil,
	"asinh":     nil,
	"atanh":     nil,
	"cosh":      nil,
	"sinh":      nil,
	"tanh":      nil,
	"erf":       nil,
	"erfc":      nil,
	"gamma":     nil,
	"lgamma":    nil,
}

// RandomFunctions are the members of the random module.
var RandomFunctions = Table{
	"seed":        {sig(tUnknown), sig(tUnknown, tObj)},
	"getstate":    {sig(tObj)},
	"setstate":    {sig(tUnknown, tObj)},
	"jumpahead":   {sig(tUnknown, tInt)},
	"getrandbits": {sig(tInt, tInt)},
	"randrange":   {sig(tInt, tInt), sig(tInt, tInt, tInt), sig(tInt, tInt, tInt, tInt)},
	"randint":     {sig(tInt, tInt, tInt)},
	"choice":      {sig(tObj, tIter)},
	"shuffle":     {sig(tUnknown, tIter), sig(tUnknown, tIter, tFunc)},
	"sample":      {sig(tList, tIter, tInt)},
	"random":      {sig(tFloat)},
	"uniform":     {sig(tFloat, tFloat, tFloat)},
}

// FutureFunctions are the __future__ feature names.
var FutureFunctions = Table{
	"nested_scopes": nil, "generators": nil, "division": nil, "absolute_import": nil,
	"with_statement": nil, "print_function": nil, "unicode_literals": nil,
}

// CopyFunctions are the members of the copy module.
var CopyFunctions = Table{"copy": nil, "deepcopy": nil}

// LibraryTables maps a supported library to its function table.
var LibraryTables = map[string]Table{
	"string":     StringFunctions,
	"math":       MathFunctions,
	"random":     RandomFunctions,
	"__future__": FutureFunctions,
	"copy":       CopyFunctions,
}

// StaticFunctions do not mutate their arguments.
var StaticFunctions = merge(BuiltinFunctions, StringFunctions, MathFunctions,
	Table{"index": ListFunctions["index"], "count": ListFunctions["count"]}, DictFunctions)

// AllFunctions is every tabulated function name.
var AllFunctions = merge(StaticFunctions, ListFunctions, RandomFunctions,
	Table{"clock": {sig(tFloat)}, "time": {sig(tFloat)}})

func merge(tables ...Table) Table {
	out := Table{}
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

// Lookup matches argument types against the table entry for fn. Unknown
// argument types match any parameter when lenient is true and none otherwise.
// It returns the set of distinct result types of matching signatures and whether
// fn is tabulated at all.
func (t Table) Lookup(fn string, args []pyast.Type, lenient bool) (results []pyast.Type, known bool) {
	sigs, ok := t[fn]
	if !ok {
		return nil, false
	}
	seen := map[pyast.Type]bool{}
	for _, s := range sigs {
		if len(s.Args) != len(args) {
			continue
		}
		match := true
		for i, p := range s.Args {
			a := args[i]
			if a == pyast.TypeUnknown || p == pyast.TypeUnknown {
				if lenient {
					continue
				}
				if a == pyast.TypeUnknown {
					match = false
					break
				}
				continue
			}
			if !p.Accepts(a) {
				match = false
				break
			}
		}
		if match && !seen[s.Ret] {
			seen[s.Ret] = true
			results = append(results, s.Ret)
		}
	}
	return results, true
}
