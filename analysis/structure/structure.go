// Package structure rebuilds nested control constructs from a reducible
// control-flow graph.
//
// A block is structured by emitting its statements and then resolving its
// terminator. Every jump either completes the enclosing construct (the target
// is the block the construct continues with), becomes a continue or break of an
// open loop, or structures the target in place. Branches continue with their
// join point after all arms have run; blocks that are reached from several arms
// without being a join are structured once per arm.
package structure

import (
	"fmt"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/dominance"
)

type Options struct {
	// MaxNodes bounds the size of the produced tree. Zero means unbounded.
	MaxNodes int
	// NodesPerBlock, when positive, also bounds the tree to that many nodes
	// per block and statement of the input.
	NodesPerBlock int
}

// DefaultNodesPerBlock leaves ample room for ordinary tail duplication while
// still stopping graphs whose duplicated tails multiply through nested
// branches.
const DefaultNodesPerBlock = 256

// Limit is the node budget for p. Zero means unbounded.
func (o Options) Limit(p *cfg.Procedure) int {
	limit := o.MaxNodes
	if o.NodesPerBlock > 0 {
		scaled := o.NodesPerBlock * (len(p.Blocks) + p.StatementCount())
		if limit == 0 || scaled < limit {
			limit = scaled
		}
	}
	return limit
}

// Stats describes one structuring run.
type Stats struct {
	// Blocks is the number of reachable blocks.
	Blocks int
	// Loops is the number of Loop nodes emitted.
	Loops    int
	MaxDepth int
	// Joins is the number of branch blocks with a join point.
	Joins int
	// Duplicated counts block emissions beyond the first one.
	Duplicated int
	Nodes      int
}

type budgetExceeded struct{}

type structurer struct {
	p     *cfg.Procedure
	info  *dominance.Info
	limit int

	joins   map[cfg.BlockID]joinPoint
	follows map[followKey]joinPoint
	emitted []int
	stats   Stats
}

// Structure turns the graph of p into a tree. info must have been computed
// for p. On a budget overrun no tree is returned.
func Structure(p *cfg.Procedure, info *dominance.Info, opts Options) (tree *ast.Sequence, stats Stats, err error) {
	s := &structurer{
		p:       p,
		info:    info,
		limit:   opts.Limit(p),
		joins:   map[cfg.BlockID]joinPoint{},
		follows: map[followKey]joinPoint{},
		emitted: make([]int, len(p.Blocks)),
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(budgetExceeded); !ok {
				panic(r)
			}
			tree, stats = nil, Stats{}
			err = &BudgetError{Proc: p.Name, Limit: s.limit}
		}
	}()

	tree = s.seq(s.structure(p.Entry, rootContext()))

	if err := ast.CheckLevels(tree); err != nil {
		panic(&ast.InternalError{Proc: p.Name, Err: err})
	}

	for _, n := range s.joins {
		if n.ok {
			s.stats.Joins++
		}
	}
	s.stats.Blocks = len(info.RPO())
	s.stats.MaxDepth = info.MaxDepth()
	return tree, s.stats, nil
}

func (s *structurer) count(n ast.Node) ast.Node {
	s.stats.Nodes++
	if s.limit > 0 && s.stats.Nodes > s.limit {
		panic(budgetExceeded{})
	}
	return n
}

func (s *structurer) seq(nodes []ast.Node) *ast.Sequence {
	return s.count(ast.Seq(nodes...)).(*ast.Sequence)
}

// structure emits b and everything it leads to under ctx.
func (s *structurer) structure(b cfg.BlockID, ctx context) []ast.Node {
	if s.info.IsHeader(b) && !ctx.isOpen(b) {
		return s.loop(b, ctx)
	}
	return s.contents(b, ctx)
}

// edge emits a jump to b.
func (s *structurer) edge(b cfg.BlockID, ctx context) []ast.Node {
	if leaf, ok := ctx.jump(b); ok {
		if leaf == nil {
			return nil
		}
		return []ast.Node{s.count(leaf)}
	}
	return s.structure(b, ctx)
}

func (s *structurer) loop(h cfg.BlockID, ctx context) []ast.Node {
	l := s.info.LoopOf(h)
	follow, hasFollow := s.follow(l, ctx)

	inner := ctx.enter(frame{header: h, follow: follow, hasFollow: hasFollow})
	s.stats.Loops++
	out := []ast.Node{s.count(&ast.Loop{Body: s.seq(s.contents(h, inner))})}
	if hasFollow {
		out = append(out, s.edge(follow, ctx)...)
	}
	return out
}

// contents emits the statements of b and resolves its terminator.
func (s *structurer) contents(b cfg.BlockID, ctx context) []ast.Node {
	blk := s.p.Block(b)
	if s.emitted[b]++; s.emitted[b] > 1 {
		s.stats.Duplicated++
	}

	out := make([]ast.Node, 0, len(blk.Statements)+1)
	for _, stmt := range blk.Statements {
		out = append(out, s.count(&ast.Statement{Statement: stmt}))
	}

	switch t := blk.Terminator.(type) {
	case *cfg.Return:
		return append(out, s.count(&ast.Return{}))
	case *cfg.Abort:
		return append(out, s.count(&ast.Abort{Kind: t.Kind, Name: t.Name}))
	case *cfg.Goto:
		return append(out, s.edge(t.Target, ctx)...)
	case *cfg.If:
		j, hasJoin := s.join(b)
		arms := ctx
		if hasJoin {
			arms = ctx.continueWith(j)
		}
		out = append(out, s.count(&ast.If{
			Cond: t.Cond,
			Then: s.seq(s.edge(t.Then, arms)),
			Else: s.seq(s.edge(t.Else, arms)),
		}))
		if hasJoin {
			out = append(out, s.edge(j, ctx)...)
		}
		return out
	case *cfg.SwitchInt:
		j, hasJoin := s.join(b)
		arms := ctx
		if hasJoin {
			arms = ctx.continueWith(j)
		}
		out = append(out, s.count(s.switchNode(t, arms)))
		if hasJoin {
			out = append(out, s.edge(j, ctx)...)
		}
		return out
	}

	panic(&ast.InternalError{
		Proc: s.p.Name,
		Err:  fmt.Errorf("%v: unexpected terminator %T", b, blk.Terminator),
	})
}

// switchNode groups arms with the same target into one arm, in order of first
// occurrence.
func (s *structurer) switchNode(t *cfg.SwitchInt, ctx context) *ast.Switch {
	sw := &ast.Switch{Discr: t.Discr, Ty: t.Ty}
	byTarget := map[cfg.BlockID]int{}
	for _, arm := range t.Arms {
		if i, ok := byTarget[arm.Target]; ok {
			sw.Arms[i].Values = append(sw.Arms[i].Values, arm.Value)
			continue
		}
		byTarget[arm.Target] = len(sw.Arms)
		sw.Arms = append(sw.Arms, ast.SwitchArm{
			Values: []cfg.Scalar{arm.Value},
			Body:   s.seq(s.edge(arm.Target, ctx)),
		})
	}
	sw.Default = s.seq(s.edge(t.Otherwise, ctx))
	return sw
}

// BudgetError reports a procedure whose tree outgrew its node budget.
type BudgetError struct {
	Proc  string
	Limit int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("structuring %s exceeds the budget of %d nodes", e.Proc, e.Limit)
}
