package dominance

import (
	"testing"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(xs ...int) []cfg.BlockID {
	ret := make([]cfg.BlockID, len(xs))
	for i, x := range xs {
		ret[i] = cfg.BlockID(x)
	}
	return ret
}

func analyze(t *testing.T, p *cfg.Procedure) *Info {
	t.Helper()
	require.NoError(t, p.Validate())
	info, err := Analyze(p)
	require.NoError(t, err)
	return info
}

func TestDiamond(t *testing.T) {
	info := analyze(t, testutil.Proc("diamond").
		Block(0, "a").If("_1", 1, 2).
		Block(1, "b").Goto(3).
		Block(2, "c").Goto(3).
		Block(3, "d").Return().
		Build())

	for b := 1; b <= 3; b++ {
		idom, ok := info.Idom(cfg.BlockID(b))
		require.True(t, ok)
		assert.Equal(t, cfg.BlockID(0), idom, "idom of bb%d", b)
	}
	_, ok := info.Idom(0)
	assert.False(t, ok, "the entry has no immediate dominator")

	assert.True(t, info.Dominates(0, 3))
	assert.True(t, info.Dominates(3, 3))
	assert.False(t, info.StrictlyDominates(3, 3))
	assert.False(t, info.Dominates(1, 3))

	assert.Empty(t, info.Loops())
	assert.Empty(t, info.BackEdges())
	assert.Equal(t, 0, info.MaxDepth())
	assert.Equal(t, cfg.BlockID(0), info.RPO()[0])
	assert.Equal(t, cfg.BlockID(3), info.RPO()[3])
}

func TestSimpleLoop(t *testing.T) {
	info := analyze(t, testutil.Proc("loop").
		Block(0, "a").If("_1", 1, 2).
		Block(1, "b").Goto(0).
		Block(2, "c").Return().
		Build())

	assert.Equal(t, []Edge{{1, 0}}, info.BackEdges())
	require.Len(t, info.Loops(), 1)

	l := info.LoopOf(0)
	require.NotNil(t, l)
	assert.Equal(t, ids(0, 1), l.Body)
	assert.Equal(t, ids(1), l.Latches)
	assert.Nil(t, l.Parent)
	assert.Equal(t, 1, l.Depth)
	assert.Equal(t, []Edge{{0, 2}}, info.Exits(l))

	assert.True(t, info.IsHeader(0))
	assert.False(t, info.IsHeader(1))
	assert.Same(t, l, info.Innermost(1))
	assert.Nil(t, info.Innermost(2))
	assert.Equal(t, 0, info.Depth(2))
}

func TestSelfLoop(t *testing.T) {
	info := analyze(t, testutil.Proc("spin").
		Block(0).Goto(1).
		Block(1, "x").If("_1", 1, 2).
		Block(2).Return().
		Build())

	assert.Equal(t, []Edge{{1, 1}}, info.BackEdges())
	l := info.LoopOf(1)
	require.NotNil(t, l)
	assert.Equal(t, ids(1), l.Body)
	assert.Equal(t, ids(1), l.Latches)
}

func TestNestedLoops(t *testing.T) {
	// bb1 heads the outer loop, bb2 the inner one. bb3 leaves both loops.
	info := analyze(t, testutil.Proc("nested").
		Block(0).Goto(1).
		Block(1, "outer").If("_1", 2, 5).
		Block(2, "inner").If("_1", 3, 4).
		Block(3).If("_1", 2, 6).
		Block(4).Goto(1).
		Block(5).Return().
		Block(6).Panic("escape").
		Build())

	require.Len(t, info.Loops(), 2)
	assert.Equal(t, ids(1, 2), info.Headers())

	outer, inner := info.LoopOf(1), info.LoopOf(2)
	assert.ElementsMatch(t, ids(1, 2, 3, 4), outer.Body)
	assert.ElementsMatch(t, ids(2, 3), inner.Body)
	assert.Equal(t, cfg.BlockID(2), inner.Body[0], "the header comes first")

	assert.Same(t, outer, inner.Parent)
	assert.Equal(t, []*Loop{inner}, outer.Children)
	assert.Equal(t, 2, inner.Depth)
	assert.Equal(t, 2, info.MaxDepth())
	assert.Same(t, inner, info.Innermost(3))
	assert.Same(t, outer, info.Innermost(4))

	parent, ok := info.ParentLoop(2)
	assert.True(t, ok)
	assert.Equal(t, cfg.BlockID(1), parent)
	_, ok = info.ParentLoop(1)
	assert.False(t, ok)
	assert.Equal(t, inner.Body, info.Body(2))
	assert.Nil(t, info.Body(3))
	assert.ElementsMatch(t, ids(2, 5), info.DomChildren(1))

	assert.ElementsMatch(t, []Edge{{2, 4}, {3, 6}}, info.Exits(inner))
	assert.ElementsMatch(t, []Edge{{1, 5}, {3, 6}}, info.Exits(outer))
}

func TestMultipleLatches(t *testing.T) {
	info := analyze(t, testutil.Proc("latches").
		Block(0, "h").Switch("_1", 3, 0, 1, 1, 2).
		Block(1, "x").Goto(0).
		Block(2, "y").Goto(0).
		Block(3).Return().
		Build())

	require.Len(t, info.Loops(), 1)
	l := info.LoopOf(0)
	assert.ElementsMatch(t, ids(1, 2), l.Latches)
	assert.ElementsMatch(t, ids(0, 1, 2), l.Body)
	assert.Len(t, info.BackEdges(), 2)
}

func TestUnreachableBlocksIgnored(t *testing.T) {
	p := testutil.Proc("dead").
		Block(0).Return().
		Block(1).Goto(1).
		Build()

	info, err := Analyze(p)
	require.NoError(t, err)
	assert.Equal(t, -1, info.RPONumber(1))
	assert.Empty(t, info.Loops())
}

func TestIrreducible(t *testing.T) {
	p := testutil.Proc("irreducible").
		Block(0).If("_1", 1, 2).
		Block(1, "x").If("_1", 2, 3).
		Block(2, "y").Goto(1).
		Block(3).Return().
		Build()

	_, err := Analyze(p)
	require.Error(t, err)

	var irr *IrreducibleError
	require.ErrorAs(t, err, &irr)
	assert.Equal(t, "irreducible", irr.Proc)
	assert.Equal(t, ids(1, 2), irr.Entries)
	assert.Equal(t, ids(1, 2), irr.Members)
	assert.Contains(t, err.Error(), "entered at bb1, bb2")
}

func TestSortByRPO(t *testing.T) {
	info := analyze(t, testutil.Proc("chain").
		Block(0).Goto(2).
		Block(2).Goto(1).
		Block(1).Return().
		Build())

	blocks := ids(1, 0, 2)
	info.SortByRPO(blocks)
	assert.Equal(t, ids(0, 2, 1), blocks)
}
