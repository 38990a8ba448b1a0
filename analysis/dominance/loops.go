package dominance

import (
	"sort"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	W "github.com/cs-au-dk/restruct/utils/worklist"
)

// Loop is a natural loop: the header plus every block that reaches one of its
// back edges without passing through the header.
type Loop struct {
	Header cfg.BlockID
	// Body is sorted by reverse post-order; the header comes first.
	Body []cfg.BlockID
	// Latches are the sources of the back edges into the header.
	Latches  []cfg.BlockID
	Parent   *Loop
	Children []*Loop
	// Depth is 1 for outermost loops.
	Depth int

	members map[cfg.BlockID]bool
}

func (l *Loop) Contains(b cfg.BlockID) bool {
	return l != nil && l.members[b]
}

// Exits lists the edges leaving the loop, ordered by the RPO of the source and
// then by terminator order.
func (info *Info) Exits(l *Loop) (exits []Edge) {
	for _, b := range l.Body {
		for _, s := range info.succs[b] {
			if !l.Contains(s) {
				exits = append(exits, Edge{b, s})
			}
		}
	}
	return
}

func (info *Info) buildLoops() {
	preds := info.Proc.Predecessors()

	latches := map[cfg.BlockID][]cfg.BlockID{}
	var headers []cfg.BlockID
	for _, e := range info.backEdges {
		if _, seen := latches[e.To]; !seen {
			headers = append(headers, e.To)
		}
		latches[e.To] = append(latches[e.To], e.From)
	}
	info.SortByRPO(headers)

	for _, h := range headers {
		l := &Loop{
			Header:  h,
			Latches: latches[h],
			members: map[cfg.BlockID]bool{h: true},
		}
		info.SortByRPO(l.Latches)

		W.StartV(l.Latches, func(b cfg.BlockID, add func(cfg.BlockID)) {
			if l.members[b] {
				return
			}
			l.members[b] = true
			for _, p := range preds[b] {
				// Unreachable predecessors are not part of any loop.
				if info.rpoNum[p] >= 0 && !l.members[p] {
					add(p)
				}
			}
		})

		for b := range l.members {
			l.Body = append(l.Body, b)
		}
		info.SortByRPO(l.Body)

		info.loops = append(info.loops, l)
		info.byHeader[h] = l
	}

	// In a reducible graph two natural loops with distinct headers are either
	// disjoint or nested, so the parent of a loop is the smallest other loop
	// containing its header.
	bySize := append([]*Loop(nil), info.loops...)
	sort.SliceStable(bySize, func(i, j int) bool {
		return len(bySize[i].Body) > len(bySize[j].Body)
	})
	for i, l := range bySize {
		for j := i - 1; j >= 0; j-- {
			if cand := bySize[j]; cand.Contains(l.Header) {
				if l.Parent == nil || len(cand.Body) < len(l.Parent.Body) {
					l.Parent = cand
				}
			}
		}
		if l.Parent != nil {
			l.Depth = l.Parent.Depth + 1
		} else {
			l.Depth = 1
		}
		// Larger loops are visited first, so the last writer is the innermost loop.
		for _, b := range l.Body {
			info.innermost[b] = l
		}
	}

	for _, l := range info.loops {
		if l.Parent != nil {
			l.Parent.Children = append(l.Parent.Children, l)
		}
	}
}

// Loops lists all loops ordered by the RPO of their headers.
func (info *Info) Loops() []*Loop {
	return info.loops
}

// Headers lists the loop headers in reverse post-order.
func (info *Info) Headers() (hs []cfg.BlockID) {
	for _, l := range info.loops {
		hs = append(hs, l.Header)
	}
	return
}

func (info *Info) IsHeader(b cfg.BlockID) bool {
	_, ok := info.byHeader[b]
	return ok
}

// LoopOf returns the loop headed by h, or nil.
func (info *Info) LoopOf(h cfg.BlockID) *Loop {
	return info.byHeader[h]
}

// Innermost returns the innermost loop containing b, or nil.
func (info *Info) Innermost(b cfg.BlockID) *Loop {
	return info.innermost[b]
}

// Depth is the number of loops containing b.
func (info *Info) Depth(b cfg.BlockID) int {
	if l := info.innermost[b]; l != nil {
		return l.Depth
	}
	return 0
}

// MaxDepth is the deepest loop nesting of the procedure.
func (info *Info) MaxDepth() (max int) {
	for _, l := range info.loops {
		if l.Depth > max {
			max = l.Depth
		}
	}
	return
}

// Body is the natural loop of header h, or nil when h is not a header.
func (info *Info) Body(h cfg.BlockID) []cfg.BlockID {
	if l := info.byHeader[h]; l != nil {
		return l.Body
	}
	return nil
}

// ParentLoop returns the header of the loop immediately enclosing the loop headed by h.
func (info *Info) ParentLoop(h cfg.BlockID) (cfg.BlockID, bool) {
	if l := info.byHeader[h]; l != nil && l.Parent != nil {
		return l.Parent.Header, true
	}
	return 0, false
}
