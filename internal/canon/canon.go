// Package canon reduces a program tree to its canonical form.
//
// A Canonicalizer first propagates type metadata, desugars compound syntax and
// anonymizes names. It then repeats helper folding and the simplification passes
// until the tree stops changing. Passes never fail: shapes they do not expect are
// reported and left alone.
package canon

import (
	"context"
	"fmt"

	"hintgen/internal/diag"
	"hintgen/internal/pyast"
	"hintgen/internal/trace"
)

// DefaultMaxIterations bounds the fixed-point loop.
const DefaultMaxIterations = 64

// Options configure one problem's canonicalization.
type Options struct {
	// GivenNames are kept verbatim by the anonymizer.
	GivenNames []string
	// ArgTypes gives parameter types per function name.
	ArgTypes map[string][]pyast.Type
	// MainFunction is never folded into its callers.
	MainFunction  string
	MaxIterations int
}

// Canonicalizer runs the canonical pipeline. It holds no per-tree state and is
// safe for concurrent use when its reporter is.
type Canonicalizer struct {
	opts Options
	rep  diag.Reporter
}

// New builds a Canonicalizer. A nil reporter discards diagnostics.
func New(opts Options, rep diag.Reporter) *Canonicalizer {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Canonicalizer{opts: opts, rep: rep}
}

type run struct {
	opts Options
	rep  diag.Reporter
}

type pass struct {
	name string
	fn   func(*run, *pyast.Node) *pyast.Node
}

var passes = []pass{
	{"constantFolding", (*run).constantFolding},
	{"cleanupEquals", (*run).cleanupEquals},
	{"cleanupBoolOps", (*run).cleanupBoolOps},
	{"cleanupRanges", (*run).cleanupRanges},
	{"cleanupSlices", (*run).cleanupSlices},
	{"cleanupTypes", (*run).cleanupTypes},
	{"cleanupNegations", (*run).cleanupNegations},
	{"conditionalRedundancy", (*run).conditionalRedundancy},
	{"combineConditionals", (*run).combineConditionals},
	{"collapseConditionals", (*run).collapseConditionals},
	{"copyPropagation", (*run).copyPropagation},
	{"deMorganize", (*run).deMorganize},
	{"orderCommutativeOperations", (*run).orderCommutative},
	{"deadCodeRemoval", (*run).deadCodeRemoval},
}

// PassNames lists the fixed-point passes in the order they run.
func PassNames() []string {
	out := make([]string, len(passes))
	for i, p := range passes {
		out[i] = p.name
	}
	return out
}

// Canonicalize returns the canonical form of tree. The input is not modified.
func (c *Canonicalizer) Canonicalize(ctx context.Context, tree *pyast.Node) (*pyast.Node, error) {
	ctx, span := trace.Start(ctx, trace.ScopeStage, "canonicalize")
	iterations := 0
	defer func() { span.End(fmt.Sprintf("iterations=%d", iterations)) }()

	if !tree.Is(pyast.Module) {
		return nil, fmt.Errorf("canonicalize: root is %s, not a module", tree.Kind)
	}
	r := &run{opts: c.opts, rep: c.rep}
	t := pyast.Copy(tree)
	t = r.propagateMetadata(t)
	t = r.simplify(t)
	t = r.anonymizeNames(t)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if iterations == c.opts.MaxIterations {
			diag.Reportf(c.rep, diag.SevWarning, diag.CanonNoFixedPoint, diag.At(t),
				"stopped after %d iterations", iterations)
			break
		}
		iterations++
		before := pyast.Copy(t)
		t = r.helperFolding(t)
		for _, p := range passes {
			_, ps := trace.Start(ctx, trace.ScopePass, p.name)
			t = p.fn(r, t)
			ps.End("")
		}
		if pyast.Equal(before, t) {
			break
		}
	}
	// passes edit deep nodes without touching their ancestors
	pyast.Inspect(t, func(x *pyast.Node) bool {
		x.Invalidate()
		return true
	})
	return t, nil
}

// Anonymize runs only the preparation stages: metadata, desugaring and renaming.
func (c *Canonicalizer) Anonymize(ctx context.Context, tree *pyast.Node) (*pyast.Node, error) {
	_, span := trace.Start(ctx, trace.ScopeStage, "anonymize")
	defer span.End("")
	if !tree.Is(pyast.Module) {
		return nil, fmt.Errorf("anonymize: root is %s, not a module", tree.Kind)
	}
	r := &run{opts: c.opts, rep: c.rep}
	t := pyast.Copy(tree)
	t = r.propagateMetadata(t)
	t = r.simplify(t)
	return r.anonymizeNames(t), nil
}

// GiveIDs stamps every node of an original tree with a fresh arena id.
func GiveIDs(tree *pyast.Node) *pyast.Arena {
	a := pyast.NewArena(256)
	a.Assign(tree)
	return a
}

func (r *run) unknown(n *pyast.Node, where string) {
	diag.Reportf(r.rep, diag.SevWarning, diag.CanonUnknownKind, diag.At(n),
		"%s: unexpected %s", where, n.Kind)
}
