package graph

import (
	"golang.org/x/tools/go/ssa"
)

// Nodes are BB indices.
func FromBasicBlocks(fun *ssa.Function) Graph[int] {
	return OfHashable(func(node int) (ret []int) {
		bb := fun.Blocks[node]
		for _, succ := range bb.Succs {
			ret = append(ret, succ.Index)
		}
		return
	})
}

// FromAdjacency creates a graph over dense integer nodes from an adjacency list.
func FromAdjacency(adj [][]int) Graph[int] {
	return OfHashable(func(node int) []int {
		if node < 0 || node >= len(adj) {
			return nil
		}
		return adj[node]
	})
}
