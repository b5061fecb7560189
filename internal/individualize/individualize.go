// Package individualize translates edits computed on a canonical tree back onto
// the tree the student actually wrote.
//
// Canonicalization tags every node it synthesizes and keeps the ID of the node
// it replaced. The mapper follows those tags to find where an edit lands in
// the original tree and rewrites the edit until it applies there.
package individualize

import (
	"context"
	"errors"
	"fmt"

	"hintgen/internal/change"
	"hintgen/internal/diag"
	"hintgen/internal/pyast"
	"hintgen/internal/trace"
)

var (
	// ErrHelperEdit reports an edit that touches a helper call the canonicalizer
	// inlined. No sensible hint exists for it.
	ErrHelperEdit = errors.New("edit touches an inlined helper")
	// ErrMismatch reports input vectors that do not apply to the canonical tree.
	ErrMismatch = errors.New("edit does not apply to the canonical tree")
)

// budget caps how many vectors one edit may expand into.
const budget = 512

// Individualizer maps canonical edits onto original trees.
type Individualizer struct {
	rep diag.Reporter
}

// New returns an individualizer reporting through rep, which may be nil.
func New(rep diag.Reporter) *Individualizer {
	return &Individualizer{rep: rep}
}

// MapEdit returns edit, computed from canonTree, rewritten against orig. The
// input vectors may all start from canonTree (as differ.Diff produces them) or be
// chained already. The result is chained: each vector starts from the original
// tree as the previous ones left it, so the last one's Apply yields the final
// program. Neither tree is modified.
func (in *Individualizer) MapEdit(ctx context.Context, canonTree, orig *pyast.Node, edit []*change.Vector) ([]*change.Vector, error) {
	ctx, span := trace.Start(ctx, trace.ScopeStage, "individualize")
	var out []*change.Vector
	defer func() { span.End(fmt.Sprintf("%d -> %d vectors", len(edit), len(out))) }()

	queue, _, err := change.Sequence(canonTree, edit)
	if err != nil {
		diag.Reportf(in.rep, diag.SevError, diag.IndivMismatch, diag.At(canonTree), "input edit: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrMismatch, err)
	}

	m := &mapper{
		names:  newNameMap(canonTree),
		orig:   pyast.Copy(orig),
		native: map[*change.Vector]bool{},
		rep:    in.rep,
	}
	for steps := 0; len(queue) > 0; steps++ {
		if err := ctx.Err(); err != nil {
			diag.Reportf(in.rep, diag.SevWarning, diag.IndivCanceled, diag.At(orig), "individualization interrupted")
			return nil, err
		}
		if steps == budget {
			diag.Reportf(in.rep, diag.SevWarning, diag.IndivUnsupported, diag.At(orig),
				"edit kept expanding after %d steps, %d vectors dropped", budget, len(queue))
			break
		}
		v := queue[0]
		queue = queue[1:]

		more, res, err := m.mapOne(v)
		if err != nil {
			return nil, err
		}
		if len(more) > 0 {
			queue = append(more, queue...)
			continue
		}
		if res == nil {
			continue
		}
		next, err := res.Apply()
		if err != nil {
			diag.Reportf(in.rep, diag.SevWarning, diag.IndivMismatch, diag.At(pyast.AsNode(res.Old)),
				"%s does not apply to the original tree: %v", res.Kind, err)
			continue
		}
		m.orig = next
		out = append(out, res)
	}
	out = m.dropNoOps(out)
	return out, nil
}

// mapper carries the state of one MapEdit call.
type mapper struct {
	names nameMap
	// orig is the original tree with every mapped vector applied so far.
	orig *pyast.Node
	// native holds queued vectors already written against orig, mapped to
	// whether their paths must be looked up again by ID.
	native map[*change.Vector]bool
	rep    diag.Reporter
}

func (m *mapper) report(code diag.Code, at pyast.Value, format string, args ...any) {
	diag.Reportf(m.rep, diag.SevWarning, code, diag.At(pyast.AsNode(at)), format, args...)
}

func (m *mapper) restoreNames(v *change.Vector) {
	v.Old = m.names.restore(v.Old)
	v.New = m.names.restore(v.New)
}

// mapOne maps one canonical vector. It either expands the vector into several
// that go back on the queue, yields a vector against m.orig, or drops it.
func (m *mapper) mapOne(in *change.Vector) (more []*change.Vector, out *change.Vector, err error) {
	v := in.Clone()
	v.Old, v.New = pyast.CopyValue(v.Old), pyast.CopyValue(v.New)
	if byID, ok := m.native[in]; ok {
		delete(m.native, in)
		if byID {
			m.relocate(v)
		}
		more, out = m.finish(v)
		return more, out, nil
	}
	m.liftPrimitive(v)
	m.restoreNames(v)

	v = m.undoPropagation(v)
	if o := pyast.AsNode(v.Old); o != nil && o.Tags.Any(pyast.HelperTags) {
		m.report(diag.IndivHelperEdit, o, "%s edits a line created by helper inlining", v.Kind)
		return nil, nil, fmt.Errorf("%w: %s at %s", ErrHelperEdit, v.Kind, v.Path)
	}
	v = m.undoAugAssign(v)

	if vs := m.multiComp(v); vs != nil {
		if _, ok := m.native[vs[0]]; len(vs) > 1 || ok {
			return vs, nil, nil
		}
		v = vs[0]
	}
	if vs := m.conditional(v); vs != nil {
		return vs, nil, nil
	}

	if v.Kind == change.Sub {
		m.fillSub(v)
	} else {
		v.Old, v.New = m.undo(v.Old, v.New)
	}
	m.loadedVariable(v)

	if !m.retarget(v) {
		return nil, nil, nil
	}
	more, out = m.finish(v)
	return more, out, nil
}

// inOriginal marks vs as already expressed against the original tree. With
// byID set their paths are looked up again when they are dequeued.
func (m *mapper) inOriginal(byID bool, vs ...*change.Vector) []*change.Vector {
	for _, v := range vs {
		v.Start = m.orig
		m.native[v] = byID
	}
	return vs
}

// relocate re-finds a queued original-tree vector by the ID of what it edits,
// since vectors applied since it was queued may have shifted its position.
func (m *mapper) relocate(v *change.Vector) {
	o := pyast.AsNode(v.Old)
	if v.Kind == change.Add || v.IsRelocation() || o == nil || o.ID == 0 {
		return
	}
	if p, ok := pyast.PathTo(m.orig, o.ID); ok && len(p) > 0 {
		v.Path = p
	}
}

// finish settles a vector already expressed against m.orig. A replacement
// between two nodes of the same shape comes back split into finer edits.
func (m *mapper) finish(v *change.Vector) ([]*change.Vector, *change.Vector) {
	if v.Kind == change.Delete {
		for len(v.Path) > 0 && !v.Path[0].IsIndex() {
			v.Path = v.Path[1:]
		}
		v.Old, _ = v.Path.Resolve(m.orig)
		v.Old = pyast.CopyValue(v.Old)
	}
	if o := pyast.AsNode(v.Old); o != nil && o.ID != 0 {
		if cur := pyast.FindByID(m.orig, o.ID); cur != nil {
			v.Old = pyast.Copy(cur)
		}
	}
	m.restoreNames(v)
	v.Start = m.orig

	if more, ok := m.rediff(v); ok {
		return m.inOriginal(false, more...), nil
	}
	return nil, v
}
