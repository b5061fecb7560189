package diag

import (
	"fmt"

	"hintgen/internal/pyast"
)

// Loc points at a node of a program tree.
type Loc struct {
	File string
	Node pyast.ID
	Line int
	Col  int
}

// At returns the location of n, the zero Loc for nil.
func At(n *pyast.Node) Loc {
	if n == nil {
		return Loc{}
	}
	return Loc{Node: n.ID, Line: n.Line, Col: n.Col}
}

// InFile returns l attributed to file.
func (l Loc) InFile(file string) Loc {
	l.File = file
	return l
}

func (l Loc) String() string {
	s := ""
	if l.File != "" {
		s = l.File + ":"
	}
	if l.Line > 0 {
		s += fmt.Sprintf("%d:%d", l.Line, l.Col+1)
	} else {
		s += "-"
	}
	if l.Node != 0 {
		s += fmt.Sprintf("#%d", l.Node)
	}
	return s
}

type Note struct {
	At  Loc
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Loc
	Notes    []Note
}

func New(sev Severity, code Code, primary Loc, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func (d Diagnostic) WithNote(at Loc, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{At: at, Msg: msg})
	return d
}

// Short renders "ERROR CAN2001 3:5#12 message".
func (d Diagnostic) Short() string {
	return fmt.Sprintf("%s %s %s %s", d.Severity, d.Code.ID(), d.Primary, d.Message)
}

// Comparator returns a tree comparator that reports nodes of unranked kinds
// to r as TreeUnknownKind warnings.
func Comparator(r Reporter) pyast.Comparator {
	if r == nil {
		return pyast.Comparator{}
	}
	return pyast.Comparator{Unranked: func(n *pyast.Node) {
		Reportf(r, SevWarning, TreeUnknownKind, At(n), "compare: kind %s has no rank", n.Kind)
	}}
}
