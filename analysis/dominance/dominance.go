// Package dominance computes dominator trees and natural loops of procedure
// graphs, and rejects irreducible control flow.
package dominance

import (
	"sort"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/utils/graph"
)

// Edge is a control-flow edge.
type Edge struct {
	From, To cfg.BlockID
}

// Info holds the dominance facts of one procedure. It is computed once and
// read-only afterwards.
type Info struct {
	Proc *cfg.Procedure
	Dom  graph.DomTree[cfg.BlockID]

	rpo       []cfg.BlockID
	rpoNum    []int
	loops     []*Loop
	byHeader  map[cfg.BlockID]*Loop
	innermost []*Loop
	backEdges []Edge
	succs     [][]cfg.BlockID
}

// Analyze computes the dominator tree and the loop nest of p. Blocks that are
// unreachable from the entry are ignored; callers validate the procedure first.
func Analyze(p *cfg.Procedure) (*Info, error) {
	G := p.Graph()
	D := G.DominatorTree(p.Entry)

	info := &Info{
		Proc:      p,
		Dom:       D,
		rpo:       D.ReversePostOrder(),
		rpoNum:    make([]int, len(p.Blocks)),
		byHeader:  map[cfg.BlockID]*Loop{},
		innermost: make([]*Loop, len(p.Blocks)),
		succs:     make([][]cfg.BlockID, len(p.Blocks)),
	}
	for i := range info.rpoNum {
		info.rpoNum[i] = -1
	}
	for i, b := range info.rpo {
		info.rpoNum[b] = i
		info.succs[b] = G.Edges(b)
	}

	var irreducible []Edge
	for _, u := range info.rpo {
		for _, v := range info.succs[u] {
			if !D.Retreating(u, v) {
				continue
			}
			if D.Dominates(v, u) {
				info.backEdges = append(info.backEdges, Edge{u, v})
			} else {
				irreducible = append(irreducible, Edge{u, v})
			}
		}
	}

	if len(irreducible) > 0 {
		return nil, info.irreducibleError(G, irreducible)
	}

	info.buildLoops()
	return info, nil
}

// RPO lists the reachable blocks in reverse post-order.
func (info *Info) RPO() []cfg.BlockID {
	return info.rpo
}

// RPONumber is the position of b in reverse post-order, or -1 when b is unreachable.
func (info *Info) RPONumber(b cfg.BlockID) int {
	return info.rpoNum[b]
}

// Successors of b without duplicates, in terminator order.
func (info *Info) Successors(b cfg.BlockID) []cfg.BlockID {
	return info.succs[b]
}

func (info *Info) Dominates(a, b cfg.BlockID) bool {
	return info.Dom.Dominates(a, b)
}

// StrictlyDominates is Dominates without reflexivity.
func (info *Info) StrictlyDominates(a, b cfg.BlockID) bool {
	return a != b && info.Dom.Dominates(a, b)
}

func (info *Info) Idom(b cfg.BlockID) (cfg.BlockID, bool) {
	return info.Dom.Idom(b)
}

// BackEdges lists the edges whose target dominates their source, ordered by
// the RPO of the source.
func (info *Info) BackEdges() []Edge {
	return info.backEdges
}

// SortByRPO sorts blocks in place by reverse post-order.
func (info *Info) SortByRPO(blocks []cfg.BlockID) {
	sort.Slice(blocks, func(i, j int) bool {
		return info.rpoNum[blocks[i]] < info.rpoNum[blocks[j]]
	})
}

// DomChildren lists the blocks immediately dominated by b in reverse post-order.
func (info *Info) DomChildren(b cfg.BlockID) []cfg.BlockID {
	return info.Dom.Children(b)
}
