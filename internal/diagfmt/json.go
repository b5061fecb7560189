package diagfmt

import (
	"encoding/json"
	"io"

	"hintgen/internal/diag"
)

// LocationJSON is a node location in JSON output.
type LocationJSON struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Node uint32 `json:"node,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(l diag.Loc) LocationJSON {
	out := LocationJSON{File: l.File, Node: uint32(l.Node)}
	if l.Line > 0 {
		out.Line, out.Col = l.Line, l.Col+1
	}
	return out
}

// JSON writes the diagnostics as one indented document.
func JSON(w io.Writer, items []diag.Diagnostic, opts Options) error {
	sel := selectItems(items, opts)
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(sel)), Count: len(sel)}
	for _, d := range sel {
		dj := DiagnosticJSON{
			Severity: d.Severity.Label(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Primary),
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.At)})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
