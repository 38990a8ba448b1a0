package dominance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/utils/graph"
)

// IrreducibleError reports a cycle that can be entered at more than one
// block. Such graphs need block duplication before they can be structured.
type IrreducibleError struct {
	Proc string
	// Entries are the blocks of the cycle with a predecessor outside of it.
	Entries []cfg.BlockID
	// Members are all blocks of the strongly connected component.
	Members []cfg.BlockID
}

func (e *IrreducibleError) Error() string {
	strs := make([]string, len(e.Entries))
	for i, b := range e.Entries {
		strs[i] = b.String()
	}
	return fmt.Sprintf("irreducible control flow in %s: cycle of %d blocks entered at %s",
		e.Proc, len(e.Members), strings.Join(strs, ", "))
}

// irreducibleError describes the strongly connected component containing
// the target of the first offending edge.
func (info *Info) irreducibleError(G graph.Graph[cfg.BlockID], offending []Edge) *IrreducibleError {
	scc := G.SCC([]cfg.BlockID{info.Proc.Entry})
	comp := scc.ComponentOf(offending[0].To)

	members := append([]cfg.BlockID(nil), scc.Components[comp]...)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	preds := info.Proc.Predecessors()
	var entries []cfg.BlockID
	for _, b := range members {
		if b == info.Proc.Entry {
			entries = append(entries, b)
			continue
		}
		for _, p := range preds[b] {
			if info.rpoNum[p] >= 0 && scc.ComponentOf(p) != comp {
				entries = append(entries, b)
				break
			}
		}
	}

	return &IrreducibleError{
		Proc:    info.Proc.Name,
		Entries: entries,
		Members: members,
	}
}
