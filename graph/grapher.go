package graph

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/dominance"
	"github.com/cs-au-dk/restruct/utils/dot"
)

// Cluster fill colors alternate with the loop nesting depth.
var loopColors = []string{"#cff3ff", "#E0FFE1"}

func makeLoopCluster(h cfg.BlockID, depth int) *dot.DotCluster {
	cluster := dot.NewDotCluster(h.String())
	cluster.Attrs = dot.DotAttrs{
		"penwidth":  "0.8",
		"fontsize":  "16",
		"label":     fmt.Sprintf("loop %s", h),
		"style":     "filled",
		"fillcolor": loopColors[(depth-1)%len(loopColors)],
		"fontname":  "Tahoma bold",
		"tooltip":   fmt.Sprintf("natural loop headed by %s (depth %d)", h, depth),
	}
	return cluster
}

type grapher struct {
	info     *dominance.Info
	clusters map[cfg.BlockID]*dot.DotCluster
	top      []*dot.DotCluster
}

// cluster returns the cluster of the loop headed by h, creating the clusters
// of its enclosing loops on the way.
func (g *grapher) cluster(h cfg.BlockID) *dot.DotCluster {
	if c, ok := g.clusters[h]; ok {
		return c
	}

	c := makeLoopCluster(h, g.info.Depth(h))
	g.clusters[h] = c
	if parent, ok := g.info.ParentLoop(h); ok {
		g.cluster(parent).Clusters[c.ID] = c
	} else {
		g.top = append(g.top, c)
	}
	return c
}

// BuildGraph draws the control-flow graph of p. Every natural loop is drawn as
// a cluster nested inside the cluster of its parent loop, and loop headers are
// highlighted.
func BuildGraph(p *cfg.Procedure, info *dominance.Info) *dot.DotGraph {
	dg := p.ToDot(info.IsHeader)

	g := &grapher{info: info, clusters: map[cfg.BlockID]*dot.DotCluster{}}
	ids := make(map[string]cfg.BlockID, len(p.Blocks))
	for _, blk := range p.Blocks {
		ids[blk.ID.String()] = blk.ID
	}

	var free []*dot.DotNode
	for _, n := range dg.Nodes {
		l := info.Innermost(ids[n.ID])
		if l == nil {
			free = append(free, n)
			continue
		}
		c := g.cluster(l.Header)
		c.Nodes = append(c.Nodes, n)
	}

	dg.Nodes = free
	dg.Clusters = append(dg.Clusters, g.top...)
	return dg
}

// Render writes g to <outfname>.dot and, if format is not empty, renders it to
// an image next to it. It returns the paths of the written files.
func Render(g *dot.DotGraph, outfname, format string, external bool) ([]string, error) {
	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		return nil, errors.Wrap(err, "writing dot graph")
	}

	dotFile := outfname + ".dot"
	if err := os.WriteFile(dotFile, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	files := []string{dotFile}
	log.Debugf("Clusters: %d, nodes: %d, edges: %d", len(g.Clusters), g.CountNodes(), len(g.Edges))

	if format == "" {
		return files, nil
	}
	img, err := dot.DotToImage(outfname, format, buf.Bytes(), external)
	if err != nil {
		return files, errors.WithMessagef(err, "rendering %s", dotFile)
	}
	return append(files, img), nil
}
