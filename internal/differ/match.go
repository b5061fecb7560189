package differ

import (
	"fmt"
	"sort"

	"hintgen/internal/pyast"
)

// noMatch marks a new element without an old counterpart.
const noMatch = -1

type indexed struct {
	v pyast.Value
	i int
}

// bucket groups list items that may be paired with each other.
func bucket(v pyast.Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *pyast.Node:
		if x == nil {
			return "nil"
		}
		return x.Kind.String()
	case *pyast.ListVal:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

// matchLists pairs the elements of y with elements of x. The result holds, for every
// y position, the x position it came from or noMatch. Unpaired x positions are deletions.
func matchLists(x, y []pyast.Value) []int {
	match := make([]int, len(y))
	for j := range match {
		match[j] = noMatch
	}
	usedX := make([]bool, len(x))
	usedY := make([]bool, len(y))
	pair := func(i, j int) {
		match[j] = i
		usedX[i], usedY[j] = true, true
	}

	var order []string
	xs := make(map[string][]indexed)
	ys := make(map[string][]indexed)
	for i, v := range x {
		b := bucket(v)
		if _, ok := xs[b]; !ok {
			if _, seen := ys[b]; !seen {
				order = append(order, b)
			}
		}
		xs[b] = append(xs[b], indexed{v, i})
	}
	for j, v := range y {
		b := bucket(v)
		_, inX := xs[b]
		if _, ok := ys[b]; !ok && !inX {
			order = append(order, b)
		}
		ys[b] = append(ys[b], indexed{v, j})
	}

	for _, b := range order {
		xb, yb := xs[b], ys[b]

		// identical and in place needs no edit at all
		for _, a := range xb {
			for _, c := range yb {
				if !usedY[c.i] && a.i == c.i && pyast.Equal(a.v, c.v) {
					pair(a.i, c.i)
					break
				}
			}
		}
		for _, a := range xb {
			if usedX[a.i] {
				continue
			}
			for _, c := range yb {
				if !usedY[c.i] && pyast.Equal(a.v, c.v) {
					pair(a.i, c.i)
					break
				}
			}
		}

		type cand struct{ d, xi, yj int }
		var cands []cand
		for _, a := range xb {
			if usedX[a.i] {
				continue
			}
			for _, c := range yb {
				if usedY[c.i] {
					continue
				}
				d := valueDistance(a.v, c.v)
				cands = append(cands, cand{int(d * 1000), a.i, c.i})
			}
		}
		sort.SliceStable(cands, func(p, q int) bool {
			if cands[p].d != cands[q].d {
				return cands[p].d < cands[q].d
			}
			return cands[p].xi-cands[p].yj < cands[q].xi-cands[q].yj
		})
		for _, c := range cands {
			if !usedX[c.xi] && !usedY[c.yj] {
				pair(c.xi, c.yj)
			}
		}
	}

	// across kinds: keep positions where both sides are free, then fill in order
	var leftX, leftY []int
	for i := range x {
		if !usedX[i] {
			leftX = append(leftX, i)
		}
	}
	for j := range y {
		if !usedY[j] {
			leftY = append(leftY, j)
		}
	}
	var restX []int
	for _, i := range leftX {
		if i < len(y) && !usedY[i] {
			pair(i, i)
			continue
		}
		restX = append(restX, i)
	}
	var restY []int
	for _, j := range leftY {
		if !usedY[j] {
			restY = append(restY, j)
		}
	}
	for k := 0; k < len(restX) && k < len(restY); k++ {
		pair(restX[k], restY[k])
	}
	return match
}

func valueDistance(a, b pyast.Value) float64 {
	base := max(Weight(a, true), Weight(b, true))
	w := ChangesWeight(diffValues(a, b, nil, Options{}), true)
	if base == 0 {
		if w == 0 {
			return 0
		}
		return 1
	}
	return float64(w) / float64(base)
}
