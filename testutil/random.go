package testutil

import (
	"fmt"
	"math/rand"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/utils/graph"
)

// RandomProcedure generates a reducible procedure with n blocks. Blocks are
// laid out in a topological order of the forward edges; back edges only target
// dominators of their source, which keeps the graph reducible. Every block is
// reachable from block 0, and the last block returns.
func RandomProcedure(rng *rand.Rand, name string, n int) *cfg.Procedure {
	if n < 1 {
		panic("RandomProcedure needs at least one block")
	}

	targets := make([][]int, n)
	terminal := make([]bool, n)

	forward := func(i int) int {
		return i + 1 + rng.Intn(min(4, n-1-i))
	}

	for i := 0; i < n-1; i++ {
		if i > 0 && rng.Intn(100) < 12 {
			terminal[i] = true
			continue
		}
		switch r := rng.Intn(100); {
		case r < 45:
			targets[i] = []int{forward(i)}
		case r < 85:
			targets[i] = []int{forward(i), forward(i)}
		default:
			for k := 2 + rng.Intn(3); k >= 0; k-- {
				targets[i] = append(targets[i], forward(i))
			}
		}
	}
	terminal[n-1] = true

	// Hook up blocks without predecessors to an earlier non-terminal block.
	hasPred := make([]bool, n)
	for i := range targets {
		for _, t := range targets[i] {
			hasPred[t] = true
		}
	}
	for j := 1; j < n; j++ {
		if hasPred[j] {
			continue
		}
		var cands []int
		for i := max(0, j-5); i < j; i++ {
			if !terminal[i] {
				cands = append(cands, i)
			}
		}
		if len(cands) == 0 {
			cands = []int{0}
		}
		i := cands[rng.Intn(len(cands))]
		targets[i] = append(targets[i], j)
	}

	// Back edges to dominators.
	G := graph.FromAdjacency(targets)
	D := G.DominatorTree(0)
	for u := 0; u < n; u++ {
		if terminal[u] || rng.Intn(100) >= 25 {
			continue
		}
		var doms []int
		for v, ok := u, true; ok; v, ok = D.Idom(v) {
			doms = append(doms, v)
		}
		targets[u] = append(targets[u], doms[rng.Intn(len(doms))])
	}

	pb := Proc(name)
	for i := 0; i < n; i++ {
		var stmts []string
		for k := rng.Intn(3); k > 0; k-- {
			stmts = append(stmts, fmt.Sprintf("_2 = f%d_%d(_1)", i, k))
		}
		bb := pb.Block(i, stmts...)

		ts := targets[i]
		switch {
		case terminal[i] && i != n-1 && rng.Intn(3) == 0:
			bb.Panic(fmt.Sprintf("fail%d", i))
		case terminal[i]:
			bb.Return()
		case len(ts) == 1:
			bb.Goto(ts[0])
		case len(ts) == 2:
			bb.If("_1", ts[0], ts[1])
		default:
			var arms []int
			for k, t := range ts[:len(ts)-1] {
				arms = append(arms, k*3+rng.Intn(3), t)
			}
			bb.Switch("_1", ts[len(ts)-1], arms...)
		}
	}
	return pb.Build()
}
