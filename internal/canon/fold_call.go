package canon

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"hintgen/internal/astutil"
	"hintgen/internal/pyast"
)

func foldUnary(args []pyast.Value, f func(pyast.Value) (pyast.Value, bool)) (pyast.Value, bool) {
	if len(args) != 1 {
		return nil, false
	}
	return f(args[0])
}

func foldAbs(args []pyast.Value) (pyast.Value, bool) {
	return foldUnary(args, func(v pyast.Value) (pyast.Value, bool) {
		switch x := v.(type) {
		case pyast.IntVal:
			if x == math.MinInt64 {
				return nil, false
			}
			if x < 0 {
				return -x, true
			}
			return x, true
		case pyast.FloatVal:
			return pyast.FloatVal(math.Abs(float64(x))), true
		case pyast.BoolVal:
			if x {
				return pyast.IntVal(1), true
			}
			return pyast.IntVal(0), true
		}
		return nil, false
	})
}

func foldLen(args []pyast.Value) (pyast.Value, bool) {
	return foldUnary(args, func(v pyast.Value) (pyast.Value, bool) {
		if s, ok := v.(pyast.StrVal); ok {
			return pyast.IntVal(utf8.RuneCountInString(string(s))), true
		}
		return nil, false
	})
}

func foldStr(v pyast.Value) (pyast.Value, bool) {
	switch x := v.(type) {
	case pyast.StrVal:
		return x, true
	case pyast.IntVal, pyast.FloatVal:
		return pyast.StrVal(pyast.FormatPrim(x)), true
	case pyast.BoolVal:
		if x {
			return pyast.StrVal("True"), true
		}
		return pyast.StrVal("False"), true
	}
	return nil, false
}

func foldInt(v pyast.Value) (pyast.Value, bool) {
	switch x := v.(type) {
	case pyast.IntVal:
		return x, true
	case pyast.BoolVal:
		if x {
			return pyast.IntVal(1), true
		}
		return pyast.IntVal(0), true
	case pyast.FloatVal:
		f := math.Trunc(float64(x))
		if math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) > 1<<62 {
			return nil, false
		}
		return pyast.IntVal(int64(f)), true
	case pyast.StrVal:
		s := strings.ReplaceAll(strings.TrimSpace(string(x)), "_", "")
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		return pyast.IntVal(i), true
	}
	return nil, false
}

func foldFloat(v pyast.Value) (pyast.Value, bool) {
	switch x := v.(type) {
	case pyast.FloatVal:
		return x, true
	case pyast.IntVal:
		return pyast.FloatVal(float64(x)), true
	case pyast.BoolVal:
		if x {
			return pyast.FloatVal(1), true
		}
		return pyast.FloatVal(0), true
	case pyast.StrVal:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return nil, false
		}
		return pyast.FloatVal(f), true
	}
	return nil, false
}

// foldExtreme evaluates min (dir -1) or max (dir 1) over two or more literals.
func foldExtreme(args []pyast.Value, dir int) (pyast.Value, bool) {
	if len(args) < 2 {
		return nil, false
	}
	best := args[0]
	for _, v := range args[1:] {
		greater, err := astutil.CompareOp(pyast.Gt, v, best)
		if err != nil {
			return nil, false
		}
		less, err := astutil.CompareOp(pyast.Lt, v, best)
		if err != nil {
			return nil, false
		}
		if (dir > 0 && greater) || (dir < 0 && less) {
			best = v
		}
	}
	return best, true
}
