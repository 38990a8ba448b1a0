package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/restruct/analysis/dominance"
	"github.com/cs-au-dk/restruct/testutil"
)

func nestedLoops(t *testing.T) *dominance.Info {
	t.Helper()
	p := testutil.Proc("nested").
		Block(0).Goto(1).
		Block(1, "outer").If("_1", 2, 5).
		Block(2, "inner").If("_1", 3, 4).
		Block(3).Goto(2).
		Block(4).Goto(1).
		Block(5, "done").Return().
		Build()
	require.NoError(t, p.Validate())
	info, err := dominance.Analyze(p)
	require.NoError(t, err)
	return info
}

func TestBuildGraphNestsLoops(t *testing.T) {
	info := nestedLoops(t)
	g := BuildGraph(info.Proc, info)

	assert.Equal(t, 6, g.CountNodes())
	require.Len(t, g.Clusters, 1)
	outer := g.Clusters[0]
	assert.Equal(t, "bb1", outer.ID)
	require.Contains(t, outer.Clusters, "bb2")
	inner := outer.Clusters["bb2"]

	var outerIDs, innerIDs, freeIDs []string
	for _, n := range outer.Nodes {
		outerIDs = append(outerIDs, n.ID)
	}
	for _, n := range inner.Nodes {
		innerIDs = append(innerIDs, n.ID)
	}
	for _, n := range g.Nodes {
		freeIDs = append(freeIDs, n.ID)
	}
	assert.ElementsMatch(t, []string{"bb1", "bb4"}, outerIDs)
	assert.ElementsMatch(t, []string{"bb2", "bb3"}, innerIDs)
	assert.ElementsMatch(t, []string{"bb0", "bb5"}, freeIDs)

	var buf bytes.Buffer
	require.NoError(t, g.WriteDot(&buf))
	assert.Contains(t, buf.String(), `subgraph "cluster_bb1"`)
	assert.Contains(t, buf.String(), `subgraph "cluster_bb2"`)
}

func TestRenderDotOnly(t *testing.T) {
	info := nestedLoops(t)
	out := filepath.Join(t.TempDir(), "nested")

	files, err := Render(BuildGraph(info.Proc, info), out, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{out + ".dot"}, files)

	contents, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(contents), "digraph ControlFlow")
}
