package hint

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"hintgen/internal/astutil"
	"hintgen/internal/change"
	"hintgen/internal/names"
	"hintgen/internal/pyast"
	"hintgen/internal/render"
)

const maxSnippet = 60

// reveal fills h with the part of edit its level allows.
func (g *Generator) reveal(ctx context.Context, h *Hint, sub *Submission, edit []*change.Vector) error {
	n := len(edit)
	switch h.Level {
	case NextStep, Structure:
		n = g.parsablePrefix(ctx, edit, 1)
	case HalfSteps:
		n = g.parsablePrefix(ctx, edit, (len(edit)+1)/2)
	}
	shown := edit[:n]
	after, err := shown[n-1].Apply()
	if err != nil {
		return fmt.Errorf("hint: apply edit: %w", err)
	}
	h.Edit = shown
	h.After = g.studentSource(after, sub.given)

	f := formatter{lines: strings.Split(sub.Text, "\n"), structural: h.Level == Structure}
	for _, v := range shown {
		h.Steps = append(h.Steps, f.describe(v))
	}
	h.Message = strings.Join(h.Steps, "\n")
	switch h.Level {
	case Structure:
		h.Code = render.Options{Placeholders: true}.Source(astutil.StructureTree(after))
	case Solution:
		h.Code = h.After
	}
	return nil
}

// parsablePrefix returns the shortest prefix length, no less than least, whose
// result parses. The whole edit is used when none does.
func (g *Generator) parsablePrefix(ctx context.Context, edit []*change.Vector, least int) int {
	if least < 1 {
		least = 1
	}
	for n := least; n < len(edit); n++ {
		tree, err := edit[n-1].Apply()
		if err != nil {
			continue
		}
		if _, err := g.parser.Parse(ctx, []byte(render.Source(tree))); err == nil {
			return n
		}
	}
	return len(edit)
}

// formatter words change vectors against the student's rendered program.
type formatter struct {
	lines      []string
	structural bool
}

func (f formatter) describe(v *change.Vector) string {
	var what string
	switch v.Kind {
	case change.Replace:
		what = fmt.Sprintf("replace %s with %s", f.snippet(v.Old), f.snippet(v.New))
	case change.Sub:
		what = fmt.Sprintf("extend %s to %s", f.snippet(v.Old), f.snippet(v.New))
	case change.Super:
		what = fmt.Sprintf("reduce %s to %s", f.snippet(v.Old), f.snippet(v.New))
	case change.Add:
		what = "add " + f.snippet(v.New)
	case change.Delete:
		what = "remove " + f.snippet(v.Old)
	case change.Swap:
		a, b := f.swapped(v)
		what = fmt.Sprintf("swap %s with %s", f.snippet(a), f.snippet(b))
	case change.Move:
		what = f.move(v)
	default:
		what = "change " + v.Kind.String()
	}
	if in := container(v); in != "" {
		what += " in the " + in
	}
	line, col := f.position(v)
	if line == 0 {
		return capitalize(what) + "."
	}
	return fmt.Sprintf("At line %d, column %d, %s.", line, col, what)
}

func (f formatter) swapped(v *change.Vector) (pyast.Value, pyast.Value) {
	if v.IsCrossSwap() {
		return v.Swapees()
	}
	l := list(v)
	if l == nil {
		return nil, nil
	}
	return l.Items[v.From], l.Items[v.To]
}

func (f formatter) move(v *change.Vector) string {
	l := list(v)
	if l == nil {
		return "move a line"
	}
	item, anchor := l.Items[v.From], l.Items[v.To]
	if v.To < v.From {
		return fmt.Sprintf("move %s before %s", f.snippet(item), f.snippet(anchor))
	}
	return fmt.Sprintf("move %s after %s", f.snippet(item), f.snippet(anchor))
}

// list returns the list a Swap or Move reorders, read from its start tree.
func list(v *change.Vector) *pyast.ListVal {
	if v.Start == nil || len(v.Path) < 2 {
		return nil
	}
	got, ok := v.Path[1:].Resolve(v.Start)
	l, _ := got.(*pyast.ListVal)
	if !ok || l == nil || v.From >= l.Len() || v.To >= l.Len() || v.From < 0 || v.To < 0 {
		return nil
	}
	return l
}

// snippet renders v on one short line.
func (f formatter) snippet(v pyast.Value) string {
	if v == nil {
		return "nothing"
	}
	var s string
	if n, ok := v.(*pyast.Node); ok && n != nil && f.structural {
		s = render.Options{Placeholders: true}.Source(astutil.StructureTree(n))
	} else {
		s = render.Source(v)
	}
	s = strings.TrimSpace(s)
	if first, _, multi := strings.Cut(s, "\n"); multi {
		s = strings.TrimSpace(first) + " ..."
	}
	s = runewidth.Truncate(s, maxSnippet, "...")
	return "`" + s + "`"
}

// container names the construct that holds the changed value.
func container(v *change.Vector) string {
	p := v.Path
	if v.IsCrossSwap() {
		p = v.OldPath
	}
	if v.Start == nil || len(p) == 0 {
		return ""
	}
	for i := 1; i <= len(p); i++ {
		got, ok := p[i:].Resolve(v.Start)
		if !ok {
			return ""
		}
		if n, _ := got.(*pyast.Node); n != nil {
			if n.Is(pyast.Module) {
				return ""
			}
			return strings.ToLower(names.Label(n.Kind))
		}
	}
	return ""
}

// position returns the 1-based line and display column of the change, 0 when
// no node on its path carries one.
func (f formatter) position(v *change.Vector) (int, int) {
	if n, ok := v.Old.(*pyast.Node); ok && n != nil && n.Line > 0 {
		return f.column(n.Line, n.Col)
	}
	p := v.Path
	if v.IsCrossSwap() {
		p = v.OldPath
	}
	if v.Start == nil {
		return 0, 0
	}
	for i := 0; i <= len(p); i++ {
		got, ok := p[i:].Resolve(v.Start)
		if !ok {
			continue
		}
		if n, _ := got.(*pyast.Node); n != nil && n.Line > 0 {
			return f.column(n.Line, n.Col)
		}
	}
	return 0, 0
}

// column turns a byte offset into the display column of the source line.
func (f formatter) column(line, col int) (int, int) {
	if line > len(f.lines) {
		return line, col + 1
	}
	text := f.lines[line-1]
	if col > len(text) {
		col = len(text)
	}
	return line, runewidth.StringWidth(text[:col]) + 1
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
