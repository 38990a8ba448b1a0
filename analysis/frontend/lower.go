// Package frontend lowers functions in SSA form into the procedure graphs the
// structurer consumes.
package frontend

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/utils/graph"
)

type lowerer struct {
	fn     *ssa.Function
	p      *cfg.Procedure
	locals map[ssa.Value]cfg.LocalID
	blocks map[int]cfg.BlockID
	qual   types.Qualifier
}

// Function lowers the body of fn. Blocks that cannot be reached from the entry
// (such as the recover block) are dropped and the remaining blocks renumbered
// in SSA order.
func Function(fn *ssa.Function) (*cfg.Procedure, error) {
	if len(fn.Blocks) == 0 {
		return nil, errors.Errorf("%s has no body", fn)
	}

	l := &lowerer{
		fn:     fn,
		locals: map[ssa.Value]cfg.LocalID{},
		blocks: map[int]cfg.BlockID{},
		qual:   qualifier(fn),
		p: &cfg.Procedure{
			Name:     fn.String(),
			Kind:     kindOf(fn),
			ArgCount: len(fn.Params),
		},
	}
	l.declareLocals()

	reachable := graph.FromBasicBlocks(fn).ReachableFrom(0)
	keep := make([]bool, len(fn.Blocks))
	for _, i := range reachable {
		keep[i] = true
	}
	for _, bb := range fn.Blocks {
		if keep[bb.Index] {
			l.blocks[bb.Index] = cfg.BlockID(len(l.blocks))
		}
	}

	for _, bb := range fn.Blocks {
		if !keep[bb.Index] {
			continue
		}
		blk, err := l.block(bb)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: block %d", fn, bb.Index)
		}
		l.p.Blocks = append(l.p.Blocks, blk)
	}
	return l.p, nil
}

func kindOf(fn *ssa.Function) cfg.ProcKind {
	if fn.Parent() == nil && (fn.Name() == "init" || strings.HasPrefix(fn.Name(), "init#")) {
		return cfg.Global
	}
	return cfg.Function
}

func qualifier(fn *ssa.Function) types.Qualifier {
	if fn.Pkg == nil {
		return nil
	}
	return types.RelativeTo(fn.Pkg.Pkg)
}

func isVoid(v ssa.Value) bool {
	t, ok := v.Type().(*types.Tuple)
	return ok && t.Len() == 0
}

func (l *lowerer) declare(v ssa.Value, name string, ty types.Type) {
	id := cfg.LocalID(len(l.p.Locals))
	if v != nil {
		l.locals[v] = id
	}
	local := cfg.Local{ID: id, Name: name}
	if ty != nil {
		local.Ty = types.TypeString(ty, l.qual)
	}
	l.p.Locals = append(l.p.Locals, local)
}

// declareLocals lays out the return place, the parameters, the free variables
// and then every register in instruction order.
func (l *lowerer) declareLocals() {
	var ret types.Type
	switch results := l.fn.Signature.Results(); results.Len() {
	case 0:
	case 1:
		ret = results.At(0).Type()
	default:
		ret = results
	}
	l.declare(nil, "", ret)

	for _, param := range l.fn.Params {
		l.declare(param, param.Name(), param.Type())
	}
	for _, fv := range l.fn.FreeVars {
		l.declare(fv, fv.Name(), fv.Type())
	}
	for _, bb := range l.fn.Blocks {
		for _, instr := range bb.Instrs {
			if v, ok := instr.(ssa.Value); ok && !isVoid(v) {
				l.declare(v, v.Name(), v.Type())
			}
		}
	}
}

// operand is the local holding v, or its text when v is a constant, global or
// function.
func (l *lowerer) operand(v ssa.Value) cfg.Operand {
	if id, ok := l.locals[v]; ok {
		return cfg.LocalOperand(id)
	}
	return cfg.ConstOperand(v.Name())
}

func (l *lowerer) uses(instr ssa.Instruction) (uses []cfg.LocalID) {
	seen := map[cfg.LocalID]bool{}
	note := func(v ssa.Value) {
		if id, ok := l.locals[v]; ok && !seen[id] {
			seen[id] = true
			uses = append(uses, id)
		}
	}

	if v, ok := instr.(ssa.Value); ok {
		note(v)
	}
	for _, op := range instr.Operands(nil) {
		if op != nil && *op != nil {
			note(*op)
		}
	}
	return
}

func (l *lowerer) target(bb *ssa.BasicBlock) cfg.BlockID {
	return l.blocks[bb.Index]
}

func (l *lowerer) block(bb *ssa.BasicBlock) (*cfg.Block, error) {
	blk := &cfg.Block{ID: l.target(bb)}
	if len(bb.Instrs) == 0 {
		return nil, errors.New("empty block")
	}

	body, last := bb.Instrs[:len(bb.Instrs)-1], bb.Instrs[len(bb.Instrs)-1]
	for _, instr := range body {
		blk.Statements = append(blk.Statements, l.statement(instr))
	}

	switch term := last.(type) {
	case *ssa.Jump:
		blk.Terminator = &cfg.Goto{Target: l.target(bb.Succs[0])}
	case *ssa.If:
		blk.Terminator = &cfg.If{
			Cond: l.operand(term.Cond),
			Then: l.target(bb.Succs[0]),
			Else: l.target(bb.Succs[1]),
		}
	case *ssa.Return:
		if len(term.Results) > 0 {
			blk.Statements = append(blk.Statements, l.returnPlace(term))
		}
		blk.Terminator = &cfg.Return{}
	case *ssa.Panic:
		blk.Terminator = &cfg.Abort{Kind: cfg.Panic, Name: "panic"}
	default:
		return nil, errors.Errorf("unexpected terminator %T: %s", last, last)
	}
	return blk, nil
}

// returnPlace writes the results of a return into local 0.
func (l *lowerer) returnPlace(ret *ssa.Return) cfg.Statement {
	names := make([]string, len(ret.Results))
	for i, v := range ret.Results {
		names[i] = v.Name()
	}
	return cfg.Statement{
		Kind: cfg.Assign,
		Text: fmt.Sprintf("_0 = %s", strings.Join(names, ", ")),
		Uses: append([]cfg.LocalID{0}, l.uses(ret)...),
	}
}

func kindOfInstr(instr ssa.Instruction) cfg.StatementKind {
	switch instr := instr.(type) {
	case *ssa.Call, *ssa.Go, *ssa.Defer, *ssa.RunDefers, *ssa.Send:
		return cfg.Call
	case *ssa.TypeAssert:
		if !instr.CommaOk {
			return cfg.Assert
		}
	case *ssa.DebugRef:
		return cfg.FakeRead
	}
	return cfg.Assign
}

func (l *lowerer) statement(instr ssa.Instruction) cfg.Statement {
	stmt := cfg.Statement{Kind: kindOfInstr(instr), Uses: l.uses(instr)}

	v, isValue := instr.(ssa.Value)
	switch {
	case !isValue:
		stmt.Text = instr.String()
	case isVoid(v):
		stmt.Text = v.String()
	default:
		stmt.Text = fmt.Sprintf("%s = %s", v.Name(), l.rhs(v))
	}
	return stmt
}

// rhs is the text of the value computed by v. Phi edges refer to predecessor
// blocks, which do not survive structuring, so only the incoming values are
// kept.
func (l *lowerer) rhs(v ssa.Value) string {
	phi, ok := v.(*ssa.Phi)
	if !ok {
		return v.String()
	}
	edges := make([]string, len(phi.Edges))
	for i, e := range phi.Edges {
		edges[i] = e.Name()
	}
	return fmt.Sprintf("phi(%s)", strings.Join(edges, ", "))
}
