package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"hintgen/internal/diag"
)

// Pretty writes each diagnostic as
//
//	<file>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a caret under the column when the text is
// known, then its notes.
func Pretty(w io.Writer, items []diag.Diagnostic, src Sources, opts Options) error {
	p := printer{w: w, src: src, opts: opts}
	for _, d := range selectItems(items, opts) {
		p.diagnostic(d)
	}
	return p.err
}

type printer struct {
	w    io.Writer
	src  Sources
	opts Options
	err  error
}

func (p *printer) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) paint(c *color.Color, s string) string {
	if !p.opts.Color {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func (p *printer) diagnostic(d diag.Diagnostic) {
	sev := p.paint(severityColor(d.Severity), d.Severity.Label())
	code := p.paint(color.New(color.Bold), d.Code.ID())
	p.printf("%s: %s %s: %s\n", where(d.Primary), sev, code, d.Message)
	p.snippet(d.Primary)
	if !p.opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		p.printf("  %s %s: %s\n", p.paint(color.New(color.FgCyan), "note"), where(n.At), n.Msg)
	}
}

func (p *printer) snippet(at diag.Loc) {
	text, ok := p.src.line(at.File, at.Line)
	if !ok {
		return
	}
	gutter := fmt.Sprintf("%4d | ", at.Line)
	p.printf("%s%s\n", gutter, text)
	col := min(max(at.Col, 0), len(text))
	pad := runewidth.StringWidth(text[:col])
	p.printf("%s%s%s\n", strings.Repeat(" ", len(gutter)-2)+"| ", strings.Repeat(" ", pad), p.paint(color.New(color.FgGreen, color.Bold), "^"))
}

// where renders file:line:col with a 1-based column, "-" for unknown lines.
func where(l diag.Loc) string {
	file := l.File
	if file == "" {
		file = "<input>"
	}
	if l.Line <= 0 {
		return file
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Col+1)
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgBlue)
	}
}
