package cfg

import (
	"fmt"
	"sort"
	"strings"
)

// Reason classifies a malformed procedure.
type Reason string

const (
	BadEntry                 Reason = "bad-entry"
	BadBlockID               Reason = "bad-block-id"
	BadLocals                Reason = "bad-locals"
	MissingTerminator        Reason = "missing-terminator"
	StatementAfterTerminator Reason = "statement-after-terminator"
	DanglingTarget           Reason = "dangling-target"
	DuplicateArm             Reason = "duplicate-arm"
	ScalarTypeMismatch       Reason = "scalar-type-mismatch"
	DanglingLocal            Reason = "dangling-local"
	UnreachableBlock         Reason = "unreachable-block"
)

// MalformedError rejects an input graph at the model boundary, before any
// analysis runs.
type MalformedError struct {
	Proc   string
	Reason Reason
	Blocks []BlockID
	Detail string
}

func (e *MalformedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "malformed procedure %s: %s", e.Proc, e.Reason)
	if len(e.Blocks) > 0 {
		strs := make([]string, len(e.Blocks))
		for i, b := range e.Blocks {
			strs[i] = b.String()
		}
		fmt.Fprintf(&sb, " at %s", strings.Join(strs, ", "))
	}
	if e.Detail != "" {
		sb.WriteString(": " + e.Detail)
	}
	return sb.String()
}

func (p *Procedure) malformed(reason Reason, detail string, blocks ...BlockID) *MalformedError {
	return &MalformedError{
		Proc:   p.Name,
		Reason: reason,
		Blocks: blocks,
		Detail: detail,
	}
}

// Validate checks the structural invariants every consumer relies on:
// dense block ids, one terminator per block, in-range targets, disjoint switch
// arms, a dense locals table covering every referenced local, and reachability
// of every block from the entry.
func (p *Procedure) Validate() error {
	if p.defect != nil {
		return p.defect
	}
	if p.Block(p.Entry) == nil {
		return p.malformed(BadEntry, fmt.Sprintf("entry %s does not exist", p.Entry))
	}

	for i, blk := range p.Blocks {
		if blk == nil || blk.ID != BlockID(i) {
			return p.malformed(BadBlockID, fmt.Sprintf("position %d holds a block with a different id", i), BlockID(i))
		}
	}

	if p.ArgCount < 0 || len(p.Locals) < p.ArgCount+1 {
		return p.malformed(BadLocals, fmt.Sprintf("%d locals cannot hold the return place and %d arguments", len(p.Locals), p.ArgCount))
	}
	for i, l := range p.Locals {
		if l.ID != LocalID(i) {
			return p.malformed(BadLocals, fmt.Sprintf("local at position %d has id %s", i, l.ID))
		}
	}

	validLocal := func(id LocalID) bool {
		return id >= 0 && int(id) < len(p.Locals)
	}

	for _, blk := range p.Blocks {
		if blk.Terminator == nil {
			return p.malformed(MissingTerminator, "", blk.ID)
		}

		for _, stmt := range blk.Statements {
			for _, use := range stmt.Uses {
				if !validLocal(use) {
					return p.malformed(DanglingLocal, fmt.Sprintf("statement %q uses %s", stmt.Text, use), blk.ID)
				}
			}
		}
		for _, op := range Operands(blk.Terminator) {
			if !op.IsConst && !validLocal(op.Local) {
				return p.malformed(DanglingLocal, fmt.Sprintf("terminator uses %s", op.Local), blk.ID)
			}
		}

		for _, succ := range blk.Terminator.Successors() {
			if p.Block(succ) == nil {
				return p.malformed(DanglingTarget, fmt.Sprintf("target %s does not exist", succ), blk.ID)
			}
		}

		if sw, ok := blk.Terminator.(*SwitchInt); ok {
			values := make([]Scalar, 0, len(sw.Arms))
			for _, arm := range sw.Arms {
				if arm.Value.Ty != sw.Ty {
					return p.malformed(ScalarTypeMismatch,
						fmt.Sprintf("arm value %s in a switch over %s", arm.Value.TypedString(), sw.Ty), blk.ID)
				}
				values = append(values, arm.Value)
			}
			sort.Slice(values, func(i, j int) bool { return values[i].Cmp(values[j]) < 0 })
			for i := 1; i < len(values); i++ {
				if values[i-1].Cmp(values[i]) == 0 {
					return p.malformed(DuplicateArm, fmt.Sprintf("value %s appears twice", values[i]), blk.ID)
				}
			}
		}
	}

	return p.checkReachability()
}

func (p *Procedure) checkReachability() error {
	reached := make([]bool, len(p.Blocks))
	p.Graph().BFS(p.Entry, func(b BlockID) bool {
		reached[b] = true
		return false
	})

	var unreachable []BlockID
	for i, ok := range reached {
		if !ok {
			unreachable = append(unreachable, BlockID(i))
		}
	}
	if len(unreachable) > 0 {
		return p.malformed(UnreachableBlock, "", unreachable...)
	}
	return nil
}

// Reachable lists the blocks reachable from the entry in BFS order.
func (p *Procedure) Reachable() []BlockID {
	return p.Graph().ReachableFrom(p.Entry)
}
