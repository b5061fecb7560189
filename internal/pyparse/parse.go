// Package pyparse turns Python source into the pyast tree model using the
// tree-sitter Python grammar.
package pyparse

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"golang.org/x/text/unicode/norm"

	"hintgen/internal/pyast"
)

var (
	// ErrSyntax reports source the grammar rejects.
	ErrSyntax = errors.New("syntax error")
	// ErrUnsupported reports valid Python outside the modelled subset.
	ErrUnsupported = errors.New("unsupported construct")
)

// DefaultMaxSource bounds the accepted source size.
const DefaultMaxSource = 1 << 20

// Error carries the position of a parse failure.
type Error struct {
	Kind error
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %v: %s", e.Line, e.Col, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// Parser converts source text. The zero value is not usable; call New.
type Parser struct {
	maxSource int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxSource overrides DefaultMaxSource.
func WithMaxSource(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxSource = n
		}
	}
}

// New returns a Parser. It is safe for concurrent use; every call builds its own
// tree-sitter parser.
func New(opts ...Option) *Parser {
	p := &Parser{maxSource: DefaultMaxSource}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse returns the Module node of src. Nodes carry positions but no ids.
func (p *Parser) Parse(ctx context.Context, src []byte) (*pyast.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(src) > p.maxSource {
		return nil, &Error{Kind: ErrUnsupported, Line: 1, Msg: fmt.Sprintf("source of %d bytes exceeds %d", len(src), p.maxSource)}
	}
	if !utf8.Valid(src) {
		return nil, &Error{Kind: ErrSyntax, Line: 1, Msg: "source is not valid UTF-8"}
	}

	ts := sitter.NewParser()
	ts.SetLanguage(python.GetLanguage())
	tree, err := ts.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &Error{Kind: ErrSyntax, Line: 1, Msg: "empty parse tree"}
	}
	if root.HasError() {
		return nil, syntaxError(root, src)
	}
	c := &conv{src: src}
	body, err := c.stmts(root)
	if err != nil {
		return nil, err
	}
	return pyast.NewModule(body...), nil
}

// Parse is a convenience wrapper around a default Parser.
func Parse(ctx context.Context, src string) (*pyast.Node, error) {
	return New().Parse(ctx, []byte(src))
}

func syntaxError(root *sitter.Node, src []byte) error {
	bad := firstError(root)
	if bad == nil {
		return &Error{Kind: ErrSyntax, Line: 1, Msg: "invalid syntax"}
	}
	pt := bad.StartPoint()
	msg := "invalid syntax"
	switch {
	case bad.IsMissing():
		msg = fmt.Sprintf("expected %q", bad.Type())
	case bad.EndByte() > bad.StartByte():
		text := bad.Content(src)
		if len(text) > 20 {
			text = text[:20] + "..."
		}
		msg = fmt.Sprintf("unexpected %q", text)
	}
	return &Error{Kind: ErrSyntax, Line: int(pt.Row) + 1, Col: int(pt.Column), Msg: msg}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if hit := firstError(c); hit != nil {
			return hit
		}
	}
	return nil
}

type conv struct {
	src []byte
}

func (c *conv) text(n *sitter.Node) string { return n.Content(c.src) }

func (c *conv) ident(n *sitter.Node) string { return norm.NFKC.String(c.text(n)) }

func (c *conv) unsupported(n *sitter.Node, what string) error {
	pt := n.StartPoint()
	return &Error{Kind: ErrUnsupported, Line: int(pt.Row) + 1, Col: int(pt.Column), Msg: what}
}

func (c *conv) at(out *pyast.Node, n *sitter.Node) *pyast.Node {
	pt := n.StartPoint()
	out.Line, out.Col = int(pt.Row)+1, int(pt.Column)
	return out
}

// named returns the named children of n without comments.
func named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch == nil || ch.Type() == "comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}
