package structure

import (
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/dominance"
	"github.com/cs-au-dk/restruct/utils/graph"
	W "github.com/cs-au-dk/restruct/utils/worklist"
)

// exit stands for every edge leaving a region.
const exit cfg.BlockID = -1

type joinPoint struct {
	block cfg.BlockID
	ok    bool
}

// region is the part of the graph a branch at root is structured in: the
// blocks strictly dominated by root that stay inside root's innermost loop.
type region struct {
	root    cfg.BlockID
	members map[cfg.BlockID]bool
	// order lists the members in reverse post-order.
	order []cfg.BlockID
}

func (s *structurer) region(b cfg.BlockID) region {
	loop := s.info.Innermost(b)
	r := region{root: b, members: map[cfg.BlockID]bool{}}

	W.Start(b, func(x cfg.BlockID, add func(cfg.BlockID)) {
		for _, c := range s.info.DomChildren(x) {
			if loop == nil || loop.Contains(c) {
				r.members[c] = true
				r.order = append(r.order, c)
				add(c)
			}
		}
	})
	s.info.SortByRPO(r.order)
	return r
}

// join returns the block the arms of the branch at b continue with, if any.
func (s *structurer) join(b cfg.BlockID) (cfg.BlockID, bool) {
	j, found := s.joins[b]
	if !found {
		j = s.findJoin(b)
		s.joins[b] = j
	}
	return j.block, j.ok
}

func (s *structurer) findJoin(b cfg.BlockID) joinPoint {
	succs := s.info.Successors(b)
	if len(succs) == 1 {
		// Every arm goes to the same place.
		return joinPoint{succs[0], true}
	}

	r := s.region(b)
	reduced := graph.OfHashable(func(x cfg.BlockID) []cfg.BlockID {
		if x == exit {
			return nil
		}
		var ret []cfg.BlockID
		seenExit := false
		for _, y := range s.info.Successors(x) {
			if r.members[y] {
				ret = append(ret, y)
			} else if !seenExit {
				seenExit = true
				ret = append(ret, exit)
			}
		}
		return ret
	})

	nodes := append(append([]cfg.BlockID{b}, r.order...), exit)
	PD := reduced.Reverse(nodes).DominatorTree(exit)
	if !PD.Reachable(b) {
		return s.sharedJoin(r, reduced, succs)
	}

	var images []cfg.BlockID
	seen := map[cfg.BlockID]bool{}
	for _, t := range succs {
		if !r.members[t] {
			t = exit
		}
		// Arms that cannot leave the region do not constrain the join.
		if PD.Reachable(t) && !seen[t] {
			seen[t] = true
			images = append(images, t)
		}
	}

	if j := nearestCommon(PD, images); j != exit {
		return joinPoint{j, true}
	}
	return joinPoint{}
}

// nearestCommon finds the nearest common ancestor of nodes in the tree D.
func nearestCommon(D graph.DomTree[cfg.BlockID], nodes []cfg.BlockID) cfg.BlockID {
	if len(nodes) == 1 {
		return nodes[0]
	}

	tree := graph.OfHashable(D.Children)
	queries := make([]graph.LCAQuery[cfg.BlockID], 0, len(nodes)-1)
	for _, n := range nodes[1:] {
		queries = append(queries, graph.LCAQuery[cfg.BlockID]{A: nodes[0], B: n})
	}
	answers := tree.TarjanOLCA(D.Root(), queries)

	// Every answer is an ancestor of nodes[0]; the highest is common to all nodes.
	best := answers[0]
	for _, a := range answers[1:] {
		if D.Dominates(a, best) {
			best = a
		}
	}
	return best
}

// sharedJoin picks the join of a branch none of whose arms leave its region:
// the block reached from most arms, at least two.
func (s *structurer) sharedJoin(r region, reduced graph.Graph[cfg.BlockID], succs []cfg.BlockID) joinPoint {
	counts := map[cfg.BlockID]int{}
	for _, t := range succs {
		for _, x := range reduced.ReachableFrom(t) {
			if x != exit {
				counts[x]++
			}
		}
	}

	best := joinPoint{}
	bestCount := 1
	for _, x := range r.order {
		if c := counts[x]; c > bestCount {
			best, bestCount = joinPoint{x, true}, c
		}
	}
	return best
}

type followKey struct {
	header  cfg.BlockID
	cont    cfg.BlockID
	hasCont bool
}

// follow picks the block structured after the loop l: the exit target, or
// block reachable from exit targets, that most exits lead to. Exits to other
// blocks are structured inside the loop.
func (s *structurer) follow(l *dominance.Loop, ctx context) (cfg.BlockID, bool) {
	key := followKey{l.Header, ctx.cont, ctx.hasCont}
	if j, found := s.follows[key]; found {
		return j.block, j.ok
	}

	parent := l.Parent
	outside := func(x cfg.BlockID) bool {
		if l.Contains(x) {
			return false
		}
		return parent == nil || parent.Contains(x) && x != parent.Header
	}

	var targets []cfg.BlockID
	seen := map[cfg.BlockID]bool{}
	for _, e := range s.info.Exits(l) {
		if outside(e.To) && !seen[e.To] {
			seen[e.To] = true
			targets = append(targets, e.To)
		}
	}

	G := graph.OfHashable(func(x cfg.BlockID) (ret []cfg.BlockID) {
		for _, y := range s.info.Successors(x) {
			if outside(y) {
				ret = append(ret, y)
			}
		}
		return
	})
	counts := map[cfg.BlockID]int{}
	var cands []cfg.BlockID
	for _, t := range targets {
		for _, x := range G.ReachableFrom(t) {
			if counts[x] == 0 {
				cands = append(cands, x)
			}
			counts[x]++
		}
	}

	direct := map[cfg.BlockID]bool{}
	for _, y := range s.info.Successors(l.Header) {
		direct[y] = true
	}
	better := func(x, y cfg.BlockID) bool {
		if counts[x] != counts[y] {
			return counts[x] > counts[y]
		}
		if xc, yc := ctx.hasCont && x == ctx.cont, ctx.hasCont && y == ctx.cont; xc != yc {
			return xc
		}
		if direct[x] != direct[y] {
			return direct[x]
		}
		return s.info.RPONumber(x) < s.info.RPONumber(y)
	}

	res := joinPoint{}
	for _, x := range cands {
		if !res.ok || better(x, res.block) {
			res = joinPoint{x, true}
		}
	}
	s.follows[key] = res
	return res.block, res.ok
}
