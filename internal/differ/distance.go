package differ

import (
	"hintgen/internal/change"
	"hintgen/internal/pyast"
)

// ChangesWeight is the token cost of performing vs.
func ChangesWeight(vs []*change.Vector, countTokens bool) int {
	total := 0
	for _, v := range vs {
		oldW := func() int { return Weight(v.Old, countTokens) }
		newW := func() int { return Weight(v.New, countTokens) }
		switch v.Kind {
		case change.Add:
			total += newW()
		case change.Delete:
			total += oldW()
		case change.Swap:
			total += 2
		case change.Move:
			total++
		case change.Sub, change.Super:
			total += abs(newW() - oldW())
		default:
			total += max(oldW(), newW())
		}
	}
	return total
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Distance compares two trees on a 0 (identical) to 1 (unrelated) scale and returns
// the vectors it measured.
func Distance(s, t *pyast.Node, opt Options) (float64, []*change.Vector) {
	if s == nil || t == nil {
		return 1, nil
	}
	vs := Diff(s, t, opt)
	return DistanceOf(s, t, vs), vs
}

// DistanceOf measures vs, already computed between s and t.
func DistanceOf(s, t *pyast.Node, vs []*change.Vector) float64 {
	if s == nil || t == nil {
		return 1
	}
	base := max(Weight(s, true), Weight(t, true))
	w := ChangesWeight(vs, true)
	if base == 0 {
		if w == 0 {
			return 0
		}
		return 1
	}
	return float64(w) / float64(base)
}

// MapDifferences replays the diff from start to end into a fresh position map.
func MapDifferences(start, end *pyast.Node) (*change.PosMap, error) {
	pm := change.NewPosMap()
	cur := pyast.Copy(start)
	for _, v := range Diff(start, end, Options{}) {
		if err := v.Update(cur, pm); err != nil {
			return nil, err
		}
		if err := v.ApplyTo(cur); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Rebase applies vs, computed against oldStart, to newStart. Vectors that no longer
// fit the tree are skipped and returned separately.
func Rebase(vs []*change.Vector, oldStart, newStart *pyast.Node) (tree *pyast.Node, applied, skipped []*change.Vector, err error) {
	pm, err := MapDifferences(oldStart, newStart)
	if err != nil {
		return nil, nil, nil, err
	}
	tree = pyast.Copy(newStart)
	for _, v := range vs {
		c := v.Clone()
		if err := c.Update(tree, pm); err != nil {
			skipped = append(skipped, v)
			continue
		}
		if err := c.ApplyTo(tree); err != nil {
			skipped = append(skipped, v)
			continue
		}
		applied = append(applied, c)
	}
	return tree, applied, skipped, nil
}
