package astutil

import (
	"sort"

	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// NamePair is a current name together with the name it had before anonymization.
// Orig is empty when the name was never renamed.
type NamePair struct {
	Name string
	Orig string
}

// NameSet is a set of name pairs keyed by current name.
type NameSet map[string]string

// Add records name with its original, keeping an already known original.
func (s NameSet) Add(name, orig string) {
	if prev, ok := s[name]; ok && prev != "" {
		return
	}
	s[name] = orig
}

// Pairs returns the set sorted by current name.
func (s NameSet) Pairs() []NamePair {
	out := make([]NamePair, 0, len(s))
	for n, o := range s {
		out = append(out, NamePair{Name: n, Orig: o})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the current names in sorted order.
func (s NameSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// GatherNames collects every Name under v, variable or not.
func GatherNames(v pyast.Value) NameSet {
	s := NameSet{}
	pyast.InspectValue(v, func(n *pyast.Node) bool {
		if n.Is(pyast.Name) {
			s.Add(n.Ident("id"), n.Meta.OriginalID)
		}
		return true
	})
	return s
}

// GatherVariables collects the variables under v: Names and parameters that are
// neither builtins nor pinned by the dontChangeName tag.
func GatherVariables(v pyast.Value) NameSet {
	s := NameSet{}
	pyast.InspectValue(v, func(n *pyast.Node) bool {
		var id string
		switch n.Kind {
		case pyast.Name:
			id = n.Ident("id")
		case pyast.Arg:
			id = n.Ident("arg")
		default:
			return true
		}
		if names.IsBuiltin(id) || n.Tags.Has(pyast.TagDontChangeName) {
			return true
		}
		s.Add(id, n.Meta.OriginalID)
		return true
	})
	return s
}

// GatherParameters collects the parameter names under v.
func GatherParameters(v pyast.Value) NameSet {
	s := NameSet{}
	pyast.InspectValue(v, func(n *pyast.Node) bool {
		if n.Is(pyast.Arg) {
			s.Add(n.Ident("arg"), n.Meta.OriginalID)
		}
		return true
	})
	return s
}

// GatherHelpers collects the top-level functions of a module that were renamed,
// that is every function not pinned and not in restricted.
func GatherHelpers(mod *pyast.Node, restricted []string) NameSet {
	s := NameSet{}
	if !mod.Is(pyast.Module) {
		return s
	}
	for _, item := range mod.Body().Nodes() {
		if !item.Is(pyast.FunctionDef) || item.Tags.Has(pyast.TagDontChangeName) {
			continue
		}
		if name := item.Ident("name"); !names.Contains(restricted, name) {
			s.Add(name, item.Meta.OriginalID)
		}
	}
	return s
}

// GatherFunctionNames collects the names of the top-level functions of a module.
func GatherFunctionNames(mod *pyast.Node) NameSet {
	s := NameSet{}
	if !mod.Is(pyast.Module) {
		return s
	}
	for _, item := range mod.Body().Nodes() {
		if item.Is(pyast.FunctionDef) {
			s.Add(item.Ident("name"), item.Meta.OriginalID)
		}
	}
	return s
}

// AssignedVars flattens assignment targets into the Names, Subscripts and
// Attributes they bind.
func AssignedVars(targets ...*pyast.Node) []*pyast.Node {
	var out []*pyast.Node
	for _, t := range targets {
		switch t.Kind {
		case pyast.Tuple, pyast.List:
			out = append(out, AssignedVars(t.ListField("elts").Nodes()...)...)
		case pyast.Name, pyast.Subscript, pyast.Attribute:
			out = append(out, t)
		}
	}
	return out
}

// AssignedIDs returns the plain variable names bound by targets.
func AssignedIDs(targets ...*pyast.Node) []string {
	var out []string
	for _, t := range AssignedVars(targets...) {
		if t.Is(pyast.Name) {
			out = append(out, t.Ident("id"))
		}
	}
	return out
}

// AllAssignedIDs returns every variable bound by an assignment or loop under n.
func AllAssignedIDs(n *pyast.Node) []string {
	var out []string
	pyast.Inspect(n, func(x *pyast.Node) bool {
		switch x.Kind {
		case pyast.Assign:
			out = append(out, AssignedIDs(x.ListField("targets").Nodes()...)...)
		case pyast.AugAssign, pyast.For:
			out = append(out, AssignedIDs(x.Child("target"))...)
		}
		return true
	})
	return out
}

// AllFunctions lists the names of every function defined under n.
func AllFunctions(n *pyast.Node) []string {
	var out []string
	pyast.Inspect(n, func(x *pyast.Node) bool {
		if x.Is(pyast.FunctionDef) {
			out = append(out, x.Ident("name"))
		}
		return true
	})
	return out
}

// AllImports lists the names that imports under n bring into scope.
// Unsupported modules and members are skipped.
func AllImports(n *pyast.Node) []string {
	var out []string
	bound := func(a *pyast.Node) string {
		if as := a.Ident("asname"); as != "" {
			return as
		}
		return a.Ident("name")
	}
	pyast.Inspect(n, func(x *pyast.Node) bool {
		switch x.Kind {
		case pyast.Import:
			for _, a := range x.ListField("names").Nodes() {
				if names.Contains(names.SupportedLibraries, a.Ident("name")) {
					out = append(out, bound(a))
				}
			}
		case pyast.ImportFrom:
			mod := x.Ident("module")
			if !names.Contains(names.SupportedLibraries, mod) {
				return true
			}
			for _, a := range x.ListField("names").Nodes() {
				if names.IsLibraryMember(mod, a.Ident("name")) {
					out = append(out, bound(a))
				}
			}
		}
		return true
	})
	return out
}

// GlobalNames lists every name reachable at module level: functions,
// assigned variables and imports.
func GlobalNames(mod *pyast.Node) []string {
	if !mod.Is(pyast.Module) {
		return nil
	}
	var out []string
	for _, obj := range mod.Body().Nodes() {
		switch obj.Kind {
		case pyast.FunctionDef:
			out = append(out, obj.Ident("name"))
		case pyast.Assign:
			for _, t := range obj.ListField("targets").Nodes() {
				out = append(out, shallowNames(t)...)
			}
		case pyast.AugAssign:
			out = append(out, shallowNames(obj.Child("target"))...)
		case pyast.Import, pyast.ImportFrom:
			for _, a := range obj.ListField("names").Nodes() {
				if as := a.Ident("asname"); as != "" {
					out = append(out, as)
				} else {
					out = append(out, a.Ident("name"))
				}
			}
		}
	}
	return out
}

func shallowNames(t *pyast.Node) []string {
	switch t.Kind {
	case pyast.Name:
		return []string{t.Ident("id")}
	case pyast.Tuple, pyast.List:
		var out []string
		for _, e := range t.ListField("elts").Nodes() {
			if e.Is(pyast.Name) {
				out = append(out, e.Ident("id"))
			}
		}
		return out
	}
	return nil
}

// CountVariables counts the Names called id under v.
func CountVariables(v pyast.Value, id string) int {
	c := 0
	pyast.InspectValue(v, func(n *pyast.Node) bool {
		if n.Is(pyast.Name) && n.Ident("id") == id {
			c++
		}
		return true
	})
	return c
}

// ContainsTokenStep reports a ~placeholder~ string literal under n.
func ContainsTokenStep(n *pyast.Node) bool {
	found := false
	pyast.Inspect(n, func(x *pyast.Node) bool {
		if found {
			return false
		}
		if s, ok := x.Field("s").(pyast.StrVal); ok && x.Is(pyast.Str) && names.IsTokenStep(string(s)) {
			found = true
		}
		return !found
	})
	return found
}

// ApplyVariableMap renames Names and function definitions under v in place.
func ApplyVariableMap(v pyast.Value, m map[string]string) {
	if len(m) == 0 {
		return
	}
	pyast.InspectValue(v, func(n *pyast.Node) bool {
		switch n.Kind {
		case pyast.Name:
			if to, ok := m[n.Ident("id")]; ok {
				n.Set("id", pyast.StrVal(to))
			}
		case pyast.FunctionDef:
			if to, ok := m[n.Ident("name")]; ok {
				n.Set("name", pyast.StrVal(to))
			}
		}
		return true
	})
}

// IsDefault reports the placeholder program a problem starts from: a single
// function whose body is empty, a bare return or return 42.
func IsDefault(mod *pyast.Node) bool {
	if !mod.Is(pyast.Module) || mod.Body().Len() != 1 {
		return false
	}
	fn := mod.Body().Node(0)
	if !fn.Is(pyast.FunctionDef) {
		return false
	}
	body := fn.Body()
	switch body.Len() {
	case 0:
		return true
	case 1:
		ret := body.Node(0)
		if !ret.Is(pyast.Return) {
			return false
		}
		val := ret.Child("value")
		if val == nil {
			return true
		}
		if v, ok := pyast.NumValue(val); ok {
			if i, ok := v.(pyast.IntVal); ok && i == 42 {
				return true
			}
		}
	}
	return false
}
