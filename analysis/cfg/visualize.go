package cfg

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/restruct/utils/dot"
	"github.com/cs-au-dk/restruct/utils/graph"
)

// edgeLabels maps every distinct successor of blk to the label of the arms
// leading to it.
func edgeLabels(blk *Block) map[BlockID]string {
	labels := map[BlockID][]string{}
	switch t := blk.Terminator.(type) {
	case *If:
		labels[t.Then] = append(labels[t.Then], "true")
		labels[t.Else] = append(labels[t.Else], "false")
	case *SwitchInt:
		for _, arm := range t.Arms {
			labels[arm.Target] = append(labels[arm.Target], arm.Value.String())
		}
		labels[t.Otherwise] = append(labels[t.Otherwise], "otherwise")
	}

	ret := make(map[BlockID]string, len(labels))
	for target, ls := range labels {
		ret[target] = strings.Join(ls, ", ")
	}
	return ret
}

// ToDot builds a Dot graph of the procedure. Blocks for which highlight
// returns true (e.g. loop headers) are drawn in a different color.
func (p *Procedure) ToDot(highlight func(BlockID) bool) *dot.DotGraph {
	nodes := make([]BlockID, 0, len(p.Blocks))
	for _, blk := range p.Blocks {
		nodes = append(nodes, blk.ID)
	}

	return p.Graph().ToDotGraph(nodes, &graph.VisualizationConfig[BlockID]{
		Title: fmt.Sprintf("%s %s", p.Kind, p.Name),
		NodeAttrs: func(b BlockID) (string, dot.DotAttrs) {
			blk := p.Blocks[b]
			lines := []string{b.String() + ":"}
			for _, stmt := range blk.Statements {
				lines = append(lines, stmt.Text)
			}
			if blk.Terminator != nil {
				lines = append(lines, blk.Terminator.String())
			}

			attrs := dot.DotAttrs{
				"label": strings.Join(lines, "\n"),
			}
			switch {
			case b == p.Entry:
				attrs["fillcolor"] = "lightblue"
			case highlight != nil && highlight(b):
				attrs["fillcolor"] = "khaki"
			}
			switch blk.Terminator.(type) {
			case *Return:
				attrs["peripheries"] = "2"
			case *Abort:
				attrs["color"] = "red"
			}
			return b.String(), attrs
		},
		EdgeAttrs: func(from BlockID, _ int, to BlockID) dot.DotAttrs {
			if label, ok := edgeLabels(p.Blocks[from])[to]; ok {
				return dot.DotAttrs{"label": label}
			}
			return nil
		},
	})
}
