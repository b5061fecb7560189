// Package testkit holds invariant checks shared by package tests.
package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"hintgen/internal/change"
	"hintgen/internal/differ"
	"hintgen/internal/pyast"
	"hintgen/internal/render"
)

// CheckGlobalIDs verifies the provenance of a canonical tree against the
// original it came from:
//  1. every original node carries a distinct, nonzero id;
//  2. every nonzero id in canon names an original node;
//  3. a canonical node without an id carries a tag or sits below a node that
//     has an id or a tag. Operators and the module root are exempt.
func CheckGlobalIDs(canon, orig *pyast.Node) error {
	if canon == nil || orig == nil {
		return errors.New("nil tree")
	}
	count := 0
	known := make(map[pyast.ID]bool)
	var err error
	pyast.Inspect(orig, func(n *pyast.Node) bool {
		count++
		switch {
		case err != nil:
		case n.ID == 0:
			err = fmt.Errorf("original %s at %d:%d has no id", n.Kind, n.Line, n.Col)
		case known[n.ID]:
			err = fmt.Errorf("original id %d used twice", n.ID)
		}
		known[n.ID] = true
		return err == nil
	})
	if err != nil {
		return err
	}
	limit, err := safecast.Conv[pyast.ID](count)
	if err != nil {
		return fmt.Errorf("node count overflow: %w", err)
	}

	var visit func(n *pyast.Node, covered bool) error
	visit = func(n *pyast.Node, covered bool) error {
		switch {
		case n.ID != 0 && (!known[n.ID] || n.ID > limit):
			return fmt.Errorf("canonical %s points at unknown id %d", n.Kind, n.ID)
		case n.ID == 0 && n.Tags == 0 && !covered && !n.Kind.IsOperator() && !n.Is(pyast.Module):
			return fmt.Errorf("canonical %s has neither id nor tag: %s", n.Kind, render.Source(n))
		}
		covered = covered || n.ID != 0 || n.Tags != 0
		for _, c := range pyast.Children(n) {
			if err := visit(c, covered); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(canon, false)
}

// CheckRoundTrip diffs s against t and checks that both ways of replaying the
// vectors rebuild t.
func CheckRoundTrip(s, t *pyast.Node) error {
	vs := differ.Diff(s, t, differ.Options{})
	got, err := change.ApplyAll(s, vs)
	if err != nil {
		return fmt.Errorf("apply all: %w", err)
	}
	if !pyast.Equal(got, t) {
		return fmt.Errorf("apply all built\n%s\nwant\n%s", render.Source(got), render.Source(t))
	}
	chain, end, err := change.Sequence(s, vs)
	if err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	if !pyast.Equal(end, t) {
		return fmt.Errorf("sequence ended at\n%s\nwant\n%s", render.Source(end), render.Source(t))
	}
	got, err = change.ApplyChain(s, chain)
	if err != nil {
		return fmt.Errorf("apply chain: %w", err)
	}
	if !pyast.Equal(got, t) {
		return fmt.Errorf("apply chain built\n%s\nwant\n%s", render.Source(got), render.Source(t))
	}
	return nil
}

var body = pyast.FieldStep("body", pyast.Module)

// labelBase marks statements added during a replay; original ones count from 0.
const labelBase = 100

type listOp struct {
	kind change.Kind
	a, b int
}

func (o listOp) String() string {
	switch o.kind {
	case change.Add, change.Delete:
		return fmt.Sprintf("%s@%d", o.kind, o.a)
	}
	return fmt.Sprintf("%s %d->%d", o.kind, o.a, o.b)
}

func (o listOp) vector(label int) *change.Vector {
	at := pyast.Path{pyast.IndexStep(o.a), body}
	switch o.kind {
	case change.Add:
		return &change.Vector{Kind: change.Add, Path: at, New: numStmt(label)}
	case change.Delete:
		return &change.Vector{Kind: change.Delete, Path: at}
	}
	return &change.Vector{Kind: o.kind, Path: at, From: o.a, To: o.b}
}

func numStmt(v int) *pyast.Node { return pyast.NewExpr(pyast.NewInt(int64(v))) }

func numbered(n int) *pyast.Node {
	stmts := make([]*pyast.Node, n)
	for i := range stmts {
		stmts[i] = numStmt(i)
	}
	return pyast.NewModule(stmts...)
}

func listOps(n int) []listOp {
	var ops []listOp
	for i := 0; i <= n; i++ {
		ops = append(ops, listOp{kind: change.Add, a: i})
	}
	for i := range n {
		ops = append(ops, listOp{kind: change.Delete, a: i})
		for j := range n {
			if i != j {
				ops = append(ops, listOp{kind: change.Move, a: i, b: j})
			}
			if i < j {
				ops = append(ops, listOp{kind: change.Swap, a: i, b: j})
			}
		}
	}
	return ops
}

// CheckPosMap replays every pair of list edits on a module of n numbered
// statements and checks that the position map names the original element in
// each slot afterwards.
func CheckPosMap(n int) error {
	ops := listOps(n)
	for _, first := range ops {
		for _, second := range ops {
			if err := replay(n, []listOp{first, second}); err != nil {
				return err
			}
		}
	}
	return nil
}

func replay(n int, ops []listOp) error {
	pm := change.NewPosMap()
	cur := numbered(n)
	for k, o := range ops {
		v := o.vector(labelBase + k)
		if err := v.Update(cur, pm); err != nil {
			// a later edit may target a slot the earlier one removed
			if k > 0 && (errors.Is(err, change.ErrConflict) || errors.Is(err, change.ErrBadPath)) {
				return nil
			}
			return fmt.Errorf("n=%d %v: update %d: %w", n, ops, k, err)
		}
		if err := v.ApplyTo(cur); err != nil {
			return fmt.Errorf("n=%d %v: apply %d: %w", n, ops, k, err)
		}
	}
	labels, ok := pm.Labels(pyast.Path{body})
	if !ok {
		return fmt.Errorf("n=%d %v: list not tracked", n, ops)
	}
	got, err := numbers(cur)
	if err != nil {
		return fmt.Errorf("n=%d %v: %w", n, ops, err)
	}
	if len(labels) != len(got) {
		return fmt.Errorf("n=%d %v: map has %d slots, list %d", n, ops, len(labels), len(got))
	}
	for i, l := range labels {
		if (l < 0 && got[i] < labelBase) || (l >= 0 && got[i] != l) {
			return fmt.Errorf("n=%d %v: slot %d holds %d but map says %d", n, ops, i, got[i], l)
		}
	}
	return nil
}

func numbers(mod *pyast.Node) ([]int, error) {
	var out []int
	for _, s := range mod.Body().Nodes() {
		v, ok := pyast.NumValue(s.Child("value"))
		if !ok {
			return nil, fmt.Errorf("statement is not a number: %s", s.Kind)
		}
		out = append(out, int(v.(pyast.IntVal)))
	}
	return out, nil
}
