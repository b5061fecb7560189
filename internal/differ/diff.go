// Package differ computes change vectors between two trees and the distance
// they imply.
package differ

import (
	"slices"

	"hintgen/internal/change"
	"hintgen/internal/names"
	"hintgen/internal/pyast"
)

// Options tune a diff.
type Options struct {
	// IgnoreVariables treats any two non-builtin names as equal.
	IgnoreVariables bool
}

// Diff returns the vectors that turn s into t, all starting from s. Applied in order
// through change.ApplyAll they reproduce t.
func Diff(s, t *pyast.Node, opt Options) []*change.Vector {
	vs := diffValues(s, t, pyast.Path{}, opt)
	for _, v := range vs {
		v.Start = s
	}
	return vs
}

func diffValues(x, y pyast.Value, path pyast.Path, opt Options) []*change.Vector {
	xn, xIsNode := x.(*pyast.Node)
	yn, yIsNode := y.(*pyast.Node)
	if xIsNode && xn == nil {
		x, xIsNode = nil, false
	}
	if yIsNode && yn == nil {
		y, yIsNode = nil, false
	}

	switch {
	case xIsNode && yIsNode:
		return diffNodes(xn, yn, path, opt)
	case xIsNode || yIsNode:
		return []*change.Vector{{Kind: change.Replace, Path: path, Old: x, New: y}}
	}
	xl, xIsList := x.(*pyast.ListVal)
	yl, yIsList := y.(*pyast.ListVal)
	if xIsList && yIsList {
		return diffLists(xl, yl, path, opt)
	}
	if pyast.Equal(x, y) {
		return nil
	}
	return []*change.Vector{{Kind: change.Replace, Path: path, Old: x, New: y}}
}

func diffNodes(x, y *pyast.Node, path pyast.Path, opt Options) []*change.Vector {
	if x.Kind != y.Kind {
		kind := change.Replace
		switch {
		case pyast.Occurs(x, y):
			kind = change.Sub
		case pyast.Occurs(y, x):
			kind = change.Super
		}
		return []*change.Vector{{Kind: kind, Path: path, Old: x, New: y}}
	}
	if opt.IgnoreVariables && x.Is(pyast.Name) {
		if !names.IsBuiltin(x.Ident("id")) && !names.IsBuiltin(y.Ident("id")) {
			return nil
		}
	}
	var out []*change.Vector
	for i, f := range pyast.Fields(x.Kind) {
		out = append(out, diffValues(x.At(i), y.At(i), path.Prepend(pyast.FieldStep(f.Name, x.Kind)), opt)...)
	}
	return out
}

// diffLists emits deletions, then relocations, then insertions, then the edits inside
// paired elements. Every index refers to x's numbering.
func diffLists(xl, yl *pyast.ListVal, path pyast.Path, opt Options) []*change.Vector {
	var x, y []pyast.Value
	if xl != nil {
		x = xl.Items
	}
	if yl != nil {
		y = yl.Items
	}
	match := matchLists(x, y)

	paired := make([]bool, len(x))
	partner := make([]int, len(x))
	var end []int
	for j, i := range match {
		if i != noMatch {
			paired[i] = true
			partner[i] = j
			end = append(end, i)
		}
	}

	var out []*change.Vector
	var start []int
	for i := range x {
		if !paired[i] {
			out = append(out, &change.Vector{Kind: change.Delete, Path: path.Prepend(pyast.IndexStep(i)), Old: x[i]})
			continue
		}
		start = append(start, i)
	}

	out = append(out, relocations(start, end, path)...)

	for j, i := range match {
		if i != noMatch {
			continue
		}
		anchor := len(x)
		for k := j + 1; k < len(match); k++ {
			if match[k] != noMatch {
				anchor = match[k]
				break
			}
		}
		out = append(out, &change.Vector{Kind: change.Add, Path: path.Prepend(pyast.IndexStep(anchor)), New: y[j]})
	}

	for _, i := range start {
		out = append(out, diffValues(x[i], y[partner[i]], path.Prepend(pyast.IndexStep(i)), opt)...)
	}
	return out
}

// relocator turns the order of paired elements into Move and Swap vectors.
// Elements are named by their original position; w is the arrangement so far.
type relocator struct {
	w    []int
	path pyast.Path
	out  []*change.Vector
}

func relocations(start, end []int, path pyast.Path) []*change.Vector {
	if slices.Equal(start, end) {
		return nil
	}
	r := &relocator{w: slices.Clone(start), path: path}
	r.arrange(0, len(start), slices.Clone(end))
	return r.out
}

// arrange makes w[lo:hi] read like end, trimming settled ends first.
func (r *relocator) arrange(lo, hi int, end []int) {
	for hi-lo > 1 {
		last := len(end) - 1
		switch {
		case r.w[lo] == end[0]:
			lo++
			end = end[1:]
		case r.w[hi-1] == end[last]:
			hi--
			end = end[:last]
		case r.w[lo] == end[last] && r.w[hi-1] == end[0]:
			r.swap(lo, hi-1)
			lo, hi = lo+1, hi-1
			end = end[1:last]
		case r.w[lo] == end[last]:
			r.move(lo, hi-1)
			hi--
			end = end[:last]
		case r.w[hi-1] == end[0]:
			r.move(hi-1, lo)
			lo++
			end = end[1:]
		default:
			// the front element has to go somewhere inside; place it once the rest is in order
			k := slices.Index(end, r.w[lo])
			rest := slices.Delete(slices.Clone(end), k, k+1)
			r.arrange(lo+1, hi, rest)
			r.move(lo, lo+k)
			return
		}
	}
}

func (r *relocator) move(from, to int) {
	it := r.w[from]
	r.out = append(r.out, &change.Vector{
		Kind: change.Move,
		Path: r.path.Prepend(pyast.IndexStep(it)),
		From: it,
		To:   r.w[to],
	})
	r.w = slices.Delete(r.w, from, from+1)
	r.w = slices.Insert(r.w, to, it)
}

func (r *relocator) swap(a, b int) {
	r.out = append(r.out, &change.Vector{
		Kind: change.Swap,
		Path: r.path.Prepend(pyast.IndexStep(r.w[a])),
		From: r.w[a],
		To:   r.w[b],
	})
	r.w[a], r.w[b] = r.w[b], r.w[a]
}
