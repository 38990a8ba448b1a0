package testutil

import (
	"fmt"

	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// ProcBuilder assembles procedures for tests:
//
//	p := testutil.Proc("f").
//		Block(0, "_2 = const 1").If("_1", 1, 2).
//		Block(1).Goto(2).
//		Block(2).Return().
//		Build()
type ProcBuilder struct {
	p      *cfg.Procedure
	blocks map[cfg.BlockID]*cfg.Block
	max    cfg.BlockID
}

type BlockBuilder struct {
	pb  *ProcBuilder
	blk *cfg.Block
}

// Proc starts a function with one argument, _1.
func Proc(name string) *ProcBuilder {
	return &ProcBuilder{
		p:      &cfg.Procedure{Name: name, Kind: cfg.Function, ArgCount: 1},
		blocks: map[cfg.BlockID]*cfg.Block{},
		max:    -1,
	}
}

// Global turns the procedure into an argument-less global initializer.
func (pb *ProcBuilder) Global() *ProcBuilder {
	pb.p.Kind = cfg.Global
	pb.p.ArgCount = 0
	return pb
}

func (pb *ProcBuilder) Args(n int) *ProcBuilder {
	pb.p.ArgCount = n
	return pb
}

func (pb *ProcBuilder) Entry(id int) *ProcBuilder {
	pb.p.Entry = cfg.BlockID(id)
	return pb
}

// Block starts block id. Statements are assignments whose uses are read off
// their text.
func (pb *ProcBuilder) Block(id int, stmts ...string) *BlockBuilder {
	blk := &cfg.Block{ID: cfg.BlockID(id)}
	for _, text := range stmts {
		blk.Statements = append(blk.Statements, cfg.Statement{
			Kind: cfg.Assign,
			Text: text,
			Uses: cfg.UsesOf(text),
		})
	}
	pb.blocks[blk.ID] = blk
	pb.max = max(pb.max, blk.ID)
	return &BlockBuilder{pb, blk}
}

func (bb *BlockBuilder) end(t cfg.Terminator) *ProcBuilder {
	bb.blk.Terminator = t
	return bb.pb
}

func (bb *BlockBuilder) Goto(target int) *ProcBuilder {
	return bb.end(&cfg.Goto{Target: cfg.BlockID(target)})
}

func (bb *BlockBuilder) If(cond string, then, els int) *ProcBuilder {
	return bb.end(&cfg.If{
		Cond: cfg.ParseOperand(cond),
		Then: cfg.BlockID(then),
		Else: cfg.BlockID(els),
	})
}

// Switch ends the block with a u32 switch. arms alternate values and targets.
func (bb *BlockBuilder) Switch(discr string, otherwise int, arms ...int) *ProcBuilder {
	if len(arms)%2 != 0 {
		panic(fmt.Sprintf("switch arms must come in value/target pairs: %v", arms))
	}
	sw := &cfg.SwitchInt{
		Discr:     cfg.ParseOperand(discr),
		Ty:        cfg.U32,
		Otherwise: cfg.BlockID(otherwise),
	}
	for i := 0; i < len(arms); i += 2 {
		sw.Arms = append(sw.Arms, cfg.Arm{
			Value:  cfg.MustScalar(cfg.U32, int64(arms[i])),
			Target: cfg.BlockID(arms[i+1]),
		})
	}
	return bb.end(sw)
}

func (bb *BlockBuilder) Return() *ProcBuilder {
	return bb.end(&cfg.Return{})
}

func (bb *BlockBuilder) Panic(name string) *ProcBuilder {
	return bb.end(&cfg.Abort{Kind: cfg.Panic, Name: name})
}

func (bb *BlockBuilder) Unreachable() *ProcBuilder {
	return bb.end(&cfg.Abort{Kind: cfg.UndefinedBehavior})
}

// Build lays the blocks out by id and declares every local up to the highest
// one mentioned.
func (pb *ProcBuilder) Build() *cfg.Procedure {
	p := pb.p
	p.Blocks = make([]*cfg.Block, pb.max+1)
	for id, blk := range pb.blocks {
		p.Blocks[id] = blk
	}

	top := cfg.LocalID(p.ArgCount)
	note := func(id cfg.LocalID) { top = max(top, id) }
	for _, blk := range p.Blocks {
		if blk == nil {
			continue
		}
		for _, stmt := range blk.Statements {
			for _, u := range stmt.Uses {
				note(u)
			}
		}
		if blk.Terminator != nil {
			for _, op := range cfg.Operands(blk.Terminator) {
				if !op.IsConst {
					note(op.Local)
				}
			}
		}
	}
	for i := cfg.LocalID(0); i <= top; i++ {
		p.Locals = append(p.Locals, cfg.Local{ID: i})
	}
	return p
}

// Ladder builds a loop whose body is n levels of two blocks each. Every block
// of a level branches to both blocks of the next level, so no block below the
// first branch is a join point and every level doubles the number of paths.
//
//	0: if _1 -> 1, exit
//	1: if _1 -> level 1
//	level i: if _1 -> level i+1; the last level goes to the latch
//	latch: goto 0
func Ladder(name string, n int) *cfg.Procedure {
	latch, exit := 2*n+2, 2*n+3
	pb := Proc(name).
		Block(0).If("_1", 1, exit).
		Block(1).If("_1", 2, 3)
	for i := 1; i <= n; i++ {
		for _, b := range []int{2 * i, 2*i + 1} {
			if i == n {
				pb.Block(b).Goto(latch)
			} else {
				pb.Block(b).If("_1", 2*(i+1), 2*(i+1)+1)
			}
		}
	}
	return pb.
		Block(latch).Goto(0).
		Block(exit).Return().
		Build()
}
