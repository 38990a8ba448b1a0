package structure

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/dominance"
	"github.com/cs-au-dk/restruct/analysis/interp"
	"github.com/cs-au-dk/restruct/testutil"
)

func init() {
	color.NoColor = true
}

func stmt(text string) ast.Node {
	return &ast.Statement{Statement: cfg.Statement{Kind: cfg.Assign, Text: text, Uses: cfg.UsesOf(text)}}
}

var cond = cfg.LocalOperand(1)

var treeCmp = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b cfg.Scalar) bool { return a.Ty == b.Ty && a.Equal(b) }),
}

func structure(t *testing.T, p *cfg.Procedure) (*ast.Sequence, Stats) {
	t.Helper()
	require.NoError(t, p.Validate())
	info, err := dominance.Analyze(p)
	require.NoError(t, err)

	tree, stats, err := Structure(p, info, Options{})
	require.NoError(t, err)
	require.NoError(t, ast.CheckLevels(tree))
	assert.Equal(t, ast.Count(tree), stats.Nodes)
	require.NoError(t, interp.Equivalent(p, tree, 64, interp.DefaultLimits))
	return tree, stats
}

func assertTree(t *testing.T, want, got ast.Node) {
	t.Helper()
	if diff := cmp.Diff(want, got, treeCmp...); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s\ngot:\n%s", diff, ast.String(got))
	}
}

func assertText(t *testing.T, want string, got ast.Node) {
	t.Helper()
	assert.Equal(t, strings.TrimLeft(want, "\n"), ast.String(got))
}

func TestStraightLine(t *testing.T) {
	tree, stats := structure(t, testutil.Proc("line").
		Block(0, "a", "b").Return().
		Build())

	assertTree(t, ast.Seq(stmt("a"), stmt("b"), &ast.Return{}), tree)
	assert.Zero(t, stats.Loops)
	assert.Zero(t, stats.Duplicated)
	assert.Equal(t, 1, stats.Blocks)
}

func TestGotoChain(t *testing.T) {
	tree, _ := structure(t, testutil.Proc("chain").
		Block(0, "a").Goto(1).
		Block(1).Goto(2).
		Block(2, "c").Return().
		Build())

	assertTree(t, ast.Seq(stmt("a"), stmt("c"), &ast.Return{}), tree)
}

func TestDiamond(t *testing.T) {
	tree, stats := structure(t, testutil.Proc("diamond").
		Block(0, "a").If("_1", 1, 2).
		Block(1, "b").Goto(3).
		Block(2, "c").Goto(3).
		Block(3, "d").Return().
		Build())

	assertTree(t, ast.Seq(
		stmt("a"),
		&ast.If{Cond: cond, Then: ast.Seq(stmt("b")), Else: ast.Seq(stmt("c"))},
		stmt("d"),
		&ast.Return{},
	), tree)
	assert.Equal(t, 1, stats.Joins)
}

func TestWhileLoop(t *testing.T) {
	tree, stats := structure(t, testutil.Proc("while").
		Block(0, "a").If("_1", 1, 2).
		Block(1, "b").Goto(0).
		Block(2, "c").Return().
		Build())

	assertTree(t, ast.Seq(
		&ast.Loop{Body: ast.Seq(
			stmt("a"),
			&ast.If{
				Cond: cond,
				Then: ast.Seq(stmt("b"), &ast.Continue{Level: 0}),
				Else: ast.Seq(&ast.Break{Level: 0}),
			},
		)},
		stmt("c"),
		&ast.Return{},
	), tree)
	assert.Equal(t, 1, stats.Loops)
	assert.Equal(t, 1, stats.MaxDepth)
}

func TestSwitchWithoutJoin(t *testing.T) {
	tree, stats := structure(t, testutil.Proc("switch").
		Block(0, "a").Switch("_1", 3, 0, 1, 1, 2).
		Block(1, "x").Return().
		Block(2, "y").Return().
		Block(3, "z").Return().
		Build())

	assertTree(t, ast.Seq(
		stmt("a"),
		&ast.Switch{
			Discr: cond,
			Ty:    cfg.U32,
			Arms: []ast.SwitchArm{
				{Values: []cfg.Scalar{cfg.MustScalar(cfg.U32, 0)}, Body: ast.Seq(stmt("x"), &ast.Return{})},
				{Values: []cfg.Scalar{cfg.MustScalar(cfg.U32, 1)}, Body: ast.Seq(stmt("y"), &ast.Return{})},
			},
			Default: ast.Seq(stmt("z"), &ast.Return{}),
		},
	), tree)
	assert.Zero(t, stats.Joins)
}

func TestSwitchGroupsArms(t *testing.T) {
	tree, _ := structure(t, testutil.Proc("grouped").
		Block(0).Switch("_1", 2, 4, 1, 9, 2, 5, 1).
		Block(1, "x").Goto(3).
		Block(2, "y").Goto(3).
		Block(3).Return().
		Build())

	assertText(t, `
switch _1: u32 {
  4 | 5 => {
    x
  }
  9 => {
    y
  }
  _ => {
    y
  }
}
return
`, tree)
}

func TestNestedLoopsWithMultiLevelBreak(t *testing.T) {
	tree, stats := structure(t, testutil.Proc("nested").
		Block(0).Goto(1).
		Block(1, "outer").If("_1", 2, 5).
		Block(2, "inner").If("_1", 3, 4).
		Block(3).If("_1", 2, 6).
		Block(4).Goto(1).
		Block(5, "done").Return().
		Block(6, "escape").Goto(5).
		Build())

	assertText(t, `
loop {
  outer
  if _1 {
    loop {
      inner
      if _1 {
        if _1 {
          continue 0
        } else {
          escape
          break 1
        }
      } else {
        break 0
      }
    }
    continue 0
  } else {
    break 0
  }
}
done
return
`, tree)
	assert.Equal(t, 2, stats.Loops)
	assert.Equal(t, 2, stats.MaxDepth)
}

func TestJoinInsideLoop(t *testing.T) {
	tree, _ := structure(t, testutil.Proc("loopjoin").
		Block(0).Goto(1).
		Block(1, "h").If("_1", 2, 5).
		Block(2, "c").If("_1", 3, 4).
		Block(3, "x").Goto(6).
		Block(4, "y").Goto(6).
		Block(6, "z").Goto(1).
		Block(5).Return().
		Build())

	assertText(t, `
loop {
  h
  if _1 {
    c
    if _1 {
      x
    } else {
      y
    }
    z
    continue 0
  } else {
    break 0
  }
}
return
`, tree)
}

func TestGotoChainLoopHeader(t *testing.T) {
	tree, _ := structure(t, testutil.Proc("chainheader").
		Block(0, "init").Goto(1).
		Block(1).Goto(2).
		Block(2, "body").If("_1", 1, 3).
		Block(3).Return().
		Build())

	assertText(t, `
init
loop {
  body
  if _1 {
    continue 0
  } else {
    break 0
  }
}
return
`, tree)
}

func TestTailDuplication(t *testing.T) {
	tree, stats := structure(t, testutil.Proc("dup").
		Block(0).Switch("_1", 3, 0, 1, 1, 2).
		Block(1, "a").Goto(4).
		Block(2, "b").If("_1", 4, 5).
		Block(3, "c").Goto(5).
		Block(4, "x").Return().
		Block(5, "y").Return().
		Build())

	assertText(t, `
switch _1: u32 {
  0 => {
    a
    x
    return
  }
  1 => {
    b
    if _1 {
      x
      return
    }
  }
  _ => {
    c
  }
}
y
return
`, tree)
	assert.Equal(t, 1, stats.Duplicated)
}

func TestEarlyReturnInLoop(t *testing.T) {
	// while _1 { if _1 { return } ; step }
	tree, _ := structure(t, testutil.Proc("early").
		Block(0).Goto(1).
		Block(1, "test").If("_1", 2, 4).
		Block(2, "check").If("_1", 3, 5).
		Block(3, "found").Return().
		Block(5, "step").Goto(1).
		Block(4, "after").Return().
		Build())

	assertText(t, `
loop {
  test
  if _1 {
    check
    if _1 {
      found
      return
    } else {
      step
      continue 0
    }
  } else {
    break 0
  }
}
after
return
`, tree)
}

func TestInfiniteLoop(t *testing.T) {
	tree, _ := structure(t, testutil.Proc("forever").
		Block(0, "a").Goto(1).
		Block(1, "b").Goto(1).
		Build())

	assertText(t, `
a
loop {
  b
  continue 0
}
`, tree)
}

func TestGlobal(t *testing.T) {
	tree, _ := structure(t, testutil.Proc("CONST").Global().
		Block(0, "_0 = const 3").Return().
		Build())
	assertTree(t, ast.Seq(stmt("_0 = const 3"), &ast.Return{}), tree)
}

func TestBudget(t *testing.T) {
	p := testutil.Proc("diamond").
		Block(0, "a").If("_1", 1, 2).
		Block(1, "b").Goto(3).
		Block(2, "c").Goto(3).
		Block(3, "d").Return().
		Build()
	info, err := dominance.Analyze(p)
	require.NoError(t, err)

	tree, _, err := Structure(p, info, Options{MaxNodes: 4})
	assert.Nil(t, tree)
	var budget *BudgetError
	require.ErrorAs(t, err, &budget)
	assert.Equal(t, 4, budget.Limit)
	assert.Contains(t, err.Error(), "diamond")

	tree, _, err = Structure(p, info, Options{MaxNodes: 100})
	assert.NoError(t, err)
	assert.NotNil(t, tree)
}

func TestLimit(t *testing.T) {
	p := testutil.Proc("f").
		Block(0, "a", "b").Goto(1).
		Block(1).Return().
		Build()

	assert.Zero(t, Options{}.Limit(p))
	assert.Equal(t, 7, Options{MaxNodes: 7}.Limit(p))
	assert.Equal(t, 8, Options{NodesPerBlock: 2}.Limit(p))
	assert.Equal(t, 5, Options{MaxNodes: 5, NodesPerBlock: 2}.Limit(p))
	assert.Equal(t, 8, Options{MaxNodes: 100, NodesPerBlock: 2}.Limit(p))
}

func TestLadderDuplication(t *testing.T) {
	const n = 8
	p := testutil.Ladder("ladder", n)
	tree, stats := structure(t, p)

	// Every level is emitted once per path leading to it.
	assert.GreaterOrEqual(t, stats.Nodes, 3*(1<<n-2))
	assert.Greater(t, stats.Duplicated, 1<<(n-1))
	assert.Equal(t, 1, stats.Loops)
	require.NoError(t, interp.Equivalent(p, tree, 40, interp.DefaultLimits))

	// The default budget admits the small ladder.
	info, err := dominance.Analyze(p)
	require.NoError(t, err)
	_, _, err = Structure(p, info, Options{NodesPerBlock: DefaultNodesPerBlock})
	assert.NoError(t, err)
}

func TestLadderExceedsDefaultBudget(t *testing.T) {
	p := testutil.Ladder("ladder", 40)
	info, err := dominance.Analyze(p)
	require.NoError(t, err)

	opts := Options{NodesPerBlock: DefaultNodesPerBlock}
	tree, stats, err := Structure(p, info, opts)
	assert.Nil(t, tree)
	assert.Zero(t, stats)

	var budget *BudgetError
	require.ErrorAs(t, err, &budget)
	assert.Equal(t, DefaultNodesPerBlock*len(p.Blocks), budget.Limit)
	assert.Equal(t, opts.Limit(p), budget.Limit)
}

func TestDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		p := testutil.RandomProcedure(rng, "det", 12)
		info, err := dominance.Analyze(p)
		require.NoError(t, err)

		a, _, err := Structure(p, info, Options{})
		require.NoError(t, err)
		b, _, err := Structure(p, info, Options{})
		require.NoError(t, err)
		assert.Equal(t, ast.String(a), ast.String(b))
		assert.Equal(t, ast.Hash(a), ast.Hash(b))
	}
}

func TestRandomEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	skipped := 0
	const procs = 300

	for i := 0; i < procs; i++ {
		p := testutil.RandomProcedure(rng, "rand", 2+rng.Intn(24))
		require.NoError(t, p.Validate(), "generated procedure:\n%s", p)

		info, err := dominance.Analyze(p)
		require.NoError(t, err, "generated procedure:\n%s", p)

		tree, stats, err := Structure(p, info, Options{MaxNodes: 50000})
		if _, ok := err.(*BudgetError); ok {
			skipped++
			continue
		}
		require.NoError(t, err)
		require.NoError(t, ast.CheckLevels(tree))
		assert.Equal(t, ast.Count(tree), stats.Nodes)

		if err := interp.Equivalent(p, tree, 40, interp.DefaultLimits); err != nil {
			t.Fatalf("%v\ngraph:\n%s\ntree:\n%s", err, p, ast.String(tree))
		}
	}
	assert.Less(t, skipped, procs/20, "too many procedures exceeded the budget")
}
