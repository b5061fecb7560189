package search

import (
	"context"
	"math"
	"slices"
	"strconv"

	"hintgen/internal/astutil"
	"hintgen/internal/diag"
	"hintgen/internal/differ"
	"hintgen/internal/pyast"
	"hintgen/internal/render"
	"hintgen/internal/store"
)

// chooseGoal picks the goal whose structure is closest to s, ignoring names,
// and then the renaming of it that lines up best with s's helpers and
// variables. More common goals win ties.
func (sp *space) chooseGoal(ctx context.Context, s *store.State) (*store.State, error) {
	var goal *store.State
	best := math.Inf(1)
	for _, g := range slices.Clone(sp.goals) {
		d, _ := differ.Distance(s.Tree, g.Tree, differ.Options{IgnoreVariables: true})
		if nearer(d, best, g, goal) {
			goal, best = g, d
		}
	}
	if goal == nil {
		return nil, nil
	}

	helpers, err := sp.variants(ctx, s, goal, helperNames(s, goal, sp.opts.Restricted))
	if err != nil {
		return nil, err
	}
	goal = closest(s, goal, helpers)

	vars, err := sp.variants(ctx, s, goal, variableNames(s, goal))
	if err != nil {
		return nil, err
	}
	return closest(s, goal, vars), nil
}

// closest returns the candidate nearest to s, counting names, or goal when there
// are none.
func closest(s, goal *store.State, cands []*store.State) *store.State {
	var pick *store.State
	best := math.Inf(1)
	for _, c := range cands {
		d, _ := distance(s, c)
		if nearer(d, best, c, pick) {
			pick, best = c, d
		}
	}
	if pick == nil {
		return goal
	}
	return pick
}

// nearer reports whether cand at distance d beats cur at distance best. The
// more common state wins a tie; any candidate beats none.
func nearer(d, best float64, cand, cur *store.State) bool {
	switch {
	case cur == nil:
		return true
	case d != best:
		return d < best
	default:
		return cand.Count > cur.Count
	}
}

// nameSets are the names of one kind the student and goal use, and the goal's
// names that cannot be renamed.
type nameSets struct {
	student, goal, fixed astutil.NameSet
	// padding names for the side with fewer names
	goalPad, studentPad func(int) string
}

func helperNames(s, g *store.State, restricted []string) nameSets {
	gh := astutil.GatherHelpers(g.Tree, restricted)
	return nameSets{
		student:    astutil.GatherHelpers(s.Tree, restricted),
		goal:       gh,
		fixed:      minus(astutil.GatherFunctionNames(g.Tree), gh),
		goalPad:    func(i int) string { return "random_fun" + strconv.Itoa(i) },
		studentPad: func(i int) string { return "new_fun" + strconv.Itoa(i) },
	}
}

func variableNames(s, g *store.State) nameSets {
	sp, gp := astutil.GatherParameters(s.Tree), astutil.GatherParameters(g.Tree)
	gv := minus(astutil.GatherVariables(g.Tree), gp)
	return nameSets{
		student:    minus(astutil.GatherVariables(s.Tree), sp),
		goal:       gv,
		fixed:      minus(astutil.GatherNames(g.Tree), gv, gp),
		goalPad:    func(i int) string { return "random" + strconv.Itoa(i) },
		studentPad: func(i int) string { return "n" + strconv.Itoa(i) + "_global" },
	}
}

func minus(a astutil.NameSet, bs ...astutil.NameSet) astutil.NameSet {
	out := astutil.NameSet{}
	for n, o := range a {
		drop := false
		for _, b := range bs {
			if _, ok := b[n]; ok {
				drop = true
			}
		}
		if !drop {
			out[n] = o
		}
	}
	return out
}

// renamings lists the maps from goal names to student names worth trying.
// Student names whose original spelling collides with a fixed goal name are
// sent to padding so they can never take that name.
func (sp *space) renamings(ns nameSets, at *pyast.Node) []map[string]string {
	sList, gList := ns.student.Pairs(), ns.goal.Pairs()
	randomCount, newRandomCount, nCount := 0, 0, 0
	switch {
	case len(sList) > len(gList):
		extra := len(sList) - len(gList)
		for i := 0; i < extra; i++ {
			gList = append(gList, astutil.NamePair{Name: ns.goalPad(i)})
		}
		randomCount, newRandomCount = extra, extra
	case len(gList) > len(sList):
		extra := len(gList) - len(sList)
		for i := 0; i < extra; i++ {
			sList = append(sList, astutil.NamePair{Name: ns.studentPad(i)})
		}
		nCount = extra
	}
	size := len(sList)

	var starter [][2]string
	for i := 0; i < len(sList); i++ {
		orig := sList[i].Orig
		if _, clash := ns.fixed[orig]; orig == "" || !clash {
			continue
		}
		if randomCount > 0 {
			pad := ns.goalPad(randomCount - 1)
			starter = append(starter, [2]string{sList[i].Name, pad})
			sList = slices.Delete(sList, i, i+1)
			gList = slices.DeleteFunc(gList, func(p astutil.NamePair) bool { return p.Name == pad })
			randomCount--
			i--
			continue
		}
		starter = append(starter, [2]string{sList[i].Name, ns.goalPad(newRandomCount)})
		sList[i] = astutil.NamePair{Name: ns.studentPad(nCount)}
		newRandomCount++
		nCount++
	}

	sNames, gNames := pairNames(sList), pairNames(gList)
	var pairings [][][2]string
	if size > sp.opts.MaxVariableMap {
		diag.Reportf(sp.rep, diag.SevInfo, diag.SearchMapTooLarge, diag.At(at),
			"%d names, pairing them in order", size)
		var one [][2]string
		for i := 0; i < min(len(sNames), len(gNames)); i++ {
			one = append(one, [2]string{sNames[i], gNames[i]})
		}
		pairings = [][][2]string{one}
	} else {
		pairings = bijections(sNames, gNames)
	}

	out := make([]map[string]string, 0, len(pairings))
	for _, p := range pairings {
		m := make(map[string]string, len(starter)+len(p))
		for _, pair := range starter {
			m[pair[1]] = pair[0]
		}
		for _, pair := range p {
			m[pair[1]] = pair[0]
		}
		out = append(out, m)
	}
	return out
}

func pairNames(ps []astutil.NamePair) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

// bijections pairs every name of s with a distinct name of g in every possible
// way. Pairs of equal names are left out of the result.
func bijections(s, g []string) [][][2]string {
	if len(s) == 0 {
		return [][][2]string{nil}
	}
	var all [][][2]string
	for i := range g {
		rest := bijections(s[1:], slices.Delete(slices.Clone(g), i, i+1))
		for _, m := range rest {
			if s[0] != g[i] {
				m = append(slices.Clone(m), [2]string{s[0], g[i]})
			}
			all = append(all, m)
		}
	}
	return all
}

// variants renames goal in every way renamings suggests. A renamed program
// already known is reused; otherwise it is scored and recorded. Renamings that
// stop passing are left out.
func (sp *space) variants(ctx context.Context, s, goal *store.State, ns nameSets) ([]*store.State, error) {
	var out []*store.State
	for _, m := range sp.renamings(ns, s.Tree) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree := pyast.Copy(goal.Tree)
		astutil.ApplyVariableMap(tree, m)
		code := render.Source(tree)
		if g := find(sp.goals, code); g != nil {
			out = append(out, g)
			continue
		}
		if n := find(sp.states, code); n != nil {
			if n.IsGoal() {
				out = append(out, n)
			}
			continue
		}
		n := &store.State{Problem: sp.problem, Code: code, Tree: tree}
		if err := sp.score(ctx, n); err != nil {
			return nil, err
		}
		if err := sp.add(ctx, n); err != nil {
			return nil, err
		}
		if !n.IsGoal() {
			diag.Reportf(sp.rep, diag.SevError, diag.SearchBadRemap, diag.At(goal.Tree),
				"renaming %v of goal %s scores %.2f", m, goal.ID, n.Score)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
