package individualize

import (
	"strconv"
	"strings"

	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// nameMap leads from the anonymized names of a canonical tree back to what the
// student wrote.
type nameMap map[string]string

func newNameMap(canon *pyast.Node) nameMap {
	m := nameMap{}
	pyast.Inspect(canon, func(n *pyast.Node) bool {
		var id string
		switch n.Kind {
		case pyast.Name:
			id = n.Ident("id")
		case pyast.Arg:
			id = n.Ident("arg")
		case pyast.FunctionDef:
			id = n.Ident("name")
		default:
			return true
		}
		if _, seen := m[id]; !seen && n.Meta.OriginalID != "" {
			m[id] = n.Meta.OriginalID
		}
		return true
	})
	return m
}

const freshPrefix = "new_var_"

// fresh names a variable the student has not introduced yet.
func (m nameMap) fresh() string {
	next := 0
	for _, v := range m {
		if n, err := strconv.Atoi(strings.TrimPrefix(v, freshPrefix)); err == nil && strings.HasPrefix(v, freshPrefix) && n >= next {
			next = n + 1
		}
	}
	return freshPrefix + strconv.Itoa(next)
}

func (m nameMap) lookup(id string) (string, bool) {
	if to, ok := m[id]; ok {
		return to, true
	}
	if names.IsAnonymized(id) {
		to := m.fresh()
		m[id] = to
		return to, true
	}
	return "", false
}

// restore renames v in place and returns it. A bare identifier is mapped too.
func (m nameMap) restore(v pyast.Value) pyast.Value {
	if s, ok := v.(pyast.StrVal); ok {
		if to, ok := m.lookup(string(s)); ok {
			return pyast.StrVal(to)
		}
		return v
	}
	pyast.InspectValue(v, func(n *pyast.Node) bool {
		var field string
		switch n.Kind {
		case pyast.Name:
			field = "id"
		case pyast.Arg:
			field = "arg"
		case pyast.FunctionDef:
			field = "name"
		default:
			return true
		}
		if to, ok := m.lookup(n.Ident(field)); ok {
			n.Set(field, pyast.StrVal(to))
		}
		return true
	})
	return v
}
