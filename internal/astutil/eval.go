package astutil

import (
	"errors"
	"math"
	"math/bits"
	"strings"

	"hintgen/internal/pyast"
)

var (
	// ErrNotFoldable means the operation has no constant result we are willing to produce.
	ErrNotFoldable = errors.New("not foldable")
	// ErrRepeatingFloat rejects divisions whose decimal expansion would be truncated.
	ErrRepeatingFloat = errors.New("repeating float")
)

// Truthy reports Python truthiness of a literal payload.
func Truthy(v pyast.Value) bool { return truthy(v) }

func truthy(v pyast.Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case pyast.BoolVal:
		return bool(x)
	case pyast.IntVal:
		return x != 0
	case pyast.FloatVal:
		return x != 0
	case pyast.StrVal:
		return x != ""
	case pyast.BytesVal:
		return x != ""
	}
	return true
}

// asInt treats bools as ints, as Python does.
func asInt(v pyast.Value) (int64, bool) {
	switch x := v.(type) {
	case pyast.IntVal:
		return int64(x), true
	case pyast.BoolVal:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v pyast.Value) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	if f, ok := v.(pyast.FloatVal); ok {
		return float64(f), true
	}
	return 0, false
}

func isFloat(v pyast.Value) bool {
	_, ok := v.(pyast.FloatVal)
	return ok
}

func bothBool(l, r pyast.Value) bool {
	_, lb := l.(pyast.BoolVal)
	_, rb := r.(pyast.BoolVal)
	return lb && rb
}

// BinaryOp evaluates l op r over literal payloads.
func BinaryOp(op pyast.Kind, l, r pyast.Value) (pyast.Value, error) {
	li, lInt := asInt(l)
	ri, rInt := asInt(r)
	lf, lNum := toFloat(l)
	rf, rNum := toFloat(r)
	floaty := isFloat(l) || isFloat(r)

	switch op {
	case pyast.Add:
		switch {
		case lInt && rInt:
			s, overflow := addInt(li, ri)
			if overflow {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(s), nil
		case lNum && rNum:
			return pyast.FloatVal(lf + rf), nil
		}
		if ls, ok := l.(pyast.StrVal); ok {
			if rs, ok := r.(pyast.StrVal); ok {
				return ls + rs, nil
			}
		}
		if lb, ok := l.(pyast.BytesVal); ok {
			if rb, ok := r.(pyast.BytesVal); ok {
				return lb + rb, nil
			}
		}
	case pyast.Sub:
		switch {
		case lInt && rInt:
			s, overflow := addInt(li, -ri)
			if overflow || ri == math.MinInt64 {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(s), nil
		case lNum && rNum:
			return pyast.FloatVal(lf - rf), nil
		}
	case pyast.Mult:
		switch {
		case lInt && rInt:
			hi, lo := bits.Mul64(uint64(abs64(li)), uint64(abs64(ri)))
			if hi != 0 || lo > math.MaxInt64 {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(li * ri), nil
		case lNum && rNum:
			return pyast.FloatVal(lf * rf), nil
		}
		if s, n, ok := strTimes(l, r); ok {
			if n < 0 {
				n = 0
			}
			if n > 1000 || len(s)*int(n) > 10000 {
				return nil, ErrNotFoldable
			}
			return pyast.StrVal(strings.Repeat(s, int(n))), nil
		}
	case pyast.Div:
		if !lNum || !rNum || rf == 0 {
			return nil, ErrNotFoldable
		}
		val := lf / rf
		if math.Mod(val*1e10, 1.0) != 0 {
			return nil, ErrRepeatingFloat
		}
		return pyast.FloatVal(val), nil
	case pyast.FloorDiv:
		switch {
		case lInt && rInt:
			if ri == 0 {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(floorDiv(li, ri)), nil
		case lNum && rNum && rf != 0:
			return pyast.FloatVal(math.Floor(lf / rf)), nil
		}
	case pyast.Mod:
		switch {
		case lInt && rInt:
			if ri == 0 {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(li - floorDiv(li, ri)*ri), nil
		case lNum && rNum && rf != 0:
			m := math.Mod(lf, rf)
			if m != 0 && (m < 0) != (rf < 0) {
				m += rf
			}
			return pyast.FloatVal(m), nil
		}
	case pyast.Pow:
		switch {
		case lInt && rInt && ri >= 0:
			p, ok := powInt(li, ri)
			if !ok {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(p), nil
		case lNum && rNum:
			if lf == 0 && rf < 0 {
				return nil, ErrNotFoldable
			}
			p := math.Pow(lf, rf)
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return nil, ErrNotFoldable
			}
			return pyast.FloatVal(p), nil
		}
	case pyast.LShift, pyast.RShift:
		if lInt && rInt && !floaty {
			if ri < 0 || ri > 62 {
				return nil, ErrNotFoldable
			}
			if op == pyast.RShift {
				return pyast.IntVal(li >> uint(ri)), nil
			}
			v := li << uint(ri)
			if v>>uint(ri) != li {
				return nil, ErrNotFoldable
			}
			return pyast.IntVal(v), nil
		}
	case pyast.BitOr, pyast.BitXor, pyast.BitAnd:
		if lInt && rInt {
			var v int64
			switch op {
			case pyast.BitOr:
				v = li | ri
			case pyast.BitXor:
				v = li ^ ri
			default:
				v = li & ri
			}
			if bothBool(l, r) {
				return pyast.BoolVal(v != 0), nil
			}
			return pyast.IntVal(v), nil
		}
	}
	return nil, ErrNotFoldable
}

// UnaryOp evaluates op v over a literal payload.
func UnaryOp(op pyast.Kind, v pyast.Value) (pyast.Value, error) {
	switch op {
	case pyast.Not:
		return pyast.BoolVal(!truthy(v)), nil
	case pyast.Invert:
		if i, ok := asInt(v); ok {
			return pyast.IntVal(^i), nil
		}
	case pyast.UAdd:
		if i, ok := asInt(v); ok {
			return pyast.IntVal(i), nil
		}
		if f, ok := v.(pyast.FloatVal); ok {
			return f, nil
		}
	case pyast.USub:
		if i, ok := asInt(v); ok && i != math.MinInt64 {
			return pyast.IntVal(-i), nil
		}
		if f, ok := v.(pyast.FloatVal); ok {
			return -f, nil
		}
	}
	return nil, ErrNotFoldable
}

// CompareOp evaluates l op r over literal payloads.
func CompareOp(op pyast.Kind, l, r pyast.Value) (bool, error) {
	switch op {
	case pyast.Eq, pyast.NotEq:
		eq := literalEqual(l, r)
		if op == pyast.Eq {
			return eq, nil
		}
		return !eq, nil
	case pyast.Lt, pyast.LtE, pyast.Gt, pyast.GtE:
		c, err := orderLiterals(l, r)
		if err != nil {
			return false, err
		}
		switch op {
		case pyast.Lt:
			return c < 0, nil
		case pyast.LtE:
			return c <= 0, nil
		case pyast.Gt:
			return c > 0, nil
		}
		return c >= 0, nil
	case pyast.Is, pyast.IsNot:
		// identity is only predictable for None and the bool singletons
		if !isSingleton(l) || !isSingleton(r) {
			return false, ErrNotFoldable
		}
		same := pyast.IsNil(l) == pyast.IsNil(r) && (pyast.IsNil(l) || l == r)
		if op == pyast.Is {
			return same, nil
		}
		return !same, nil
	case pyast.In, pyast.NotIn:
		ls, lok := l.(pyast.StrVal)
		rs, rok := r.(pyast.StrVal)
		if !lok || !rok {
			return false, ErrNotFoldable
		}
		in := strings.Contains(string(rs), string(ls))
		if op == pyast.In {
			return in, nil
		}
		return !in, nil
	}
	return false, ErrNotFoldable
}

func isSingleton(v pyast.Value) bool {
	if pyast.IsNil(v) {
		return true
	}
	_, ok := v.(pyast.BoolVal)
	return ok
}

func literalEqual(l, r pyast.Value) bool {
	if lf, ok := toFloat(l); ok {
		if rf, ok := toFloat(r); ok {
			return lf == rf
		}
		return false
	}
	if pyast.IsNil(l) || pyast.IsNil(r) {
		return pyast.IsNil(l) && pyast.IsNil(r)
	}
	return l == r
}

func orderLiterals(l, r pyast.Value) (int, error) {
	if lf, ok := toFloat(l); ok {
		if rf, ok := toFloat(r); ok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			}
			return 0, nil
		}
		return 0, ErrNotFoldable
	}
	if ls, ok := l.(pyast.StrVal); ok {
		if rs, ok := r.(pyast.StrVal); ok {
			return strings.Compare(string(ls), string(rs)), nil
		}
	}
	return 0, ErrNotFoldable
}

func addInt(a, b int64) (int64, bool) {
	s := a + b
	return s, (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0)
}

func abs64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		hi, lo := bits.Mul64(uint64(abs64(result)), uint64(abs64(base)))
		if hi != 0 || lo > math.MaxInt64 {
			return 0, false
		}
		result *= base
		if result == 0 || result == 1 {
			return result, true
		}
	}
	return result, true
}

func strTimes(l, r pyast.Value) (string, int64, bool) {
	if s, ok := l.(pyast.StrVal); ok {
		if n, ok := asInt(r); ok {
			return string(s), n, true
		}
	}
	if s, ok := r.(pyast.StrVal); ok {
		if n, ok := asInt(l); ok {
			return string(s), n, true
		}
	}
	return "", 0, false
}
