package cfg

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/restruct/utils/graph"
)

// BlockID is a dense block index, unique within a procedure.
type BlockID int

// LocalID indexes the locals table of a procedure. Local 0 is the return
// place and locals 1..ArgCount are the parameters.
type LocalID int

func (b BlockID) String() string { return fmt.Sprintf("bb%d", int(b)) }
func (l LocalID) String() string { return fmt.Sprintf("_%d", int(l)) }

// ProcKind distinguishes function bodies from constant/static initializers.
type ProcKind int

const (
	Function ProcKind = iota
	Global
)

var procKinds = []string{"function", "global"}

func (k ProcKind) String() string {
	if int(k) < len(procKinds) {
		return procKinds[k]
	}
	return fmt.Sprintf("ProcKind(%d)", int(k))
}

// Local is an entry of the locals table.
type Local struct {
	ID   LocalID
	Name string
	Ty   string
}

// Span is a source range.
type Span struct {
	File    string
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

func (s Span) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.Line, s.Col, s.EndLine, s.EndCol)
}

// LineComment is a group of source comment lines attached to a source line.
type LineComment struct {
	Line  int
	Lines []string
}

// Block is a basic block: statements followed by exactly one terminator.
type Block struct {
	ID         BlockID
	Statements []Statement
	Terminator Terminator
}

// IsGotoChain is true for blocks with no statements that end in a Goto.
func (b *Block) IsGotoChain() bool {
	_, isGoto := b.Terminator.(*Goto)
	return isGoto && len(b.Statements) == 0
}

// Procedure is the unstructured control-flow graph of one body.
type Procedure struct {
	Name     string
	Kind     ProcKind
	Entry    BlockID
	Blocks   []*Block
	Locals   []Local
	ArgCount int
	Span     Span
	Comments []LineComment

	// defect records malformedness found while decoding, reported by Validate.
	defect *MalformedError
}

// Block returns the block with the given id, or nil if there is none.
func (p *Procedure) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(p.Blocks) {
		return nil
	}
	return p.Blocks[id]
}

// Successors of b in terminator order. A target appearing in several arms is
// listed once per arm.
func (p *Procedure) Successors(b BlockID) []BlockID {
	blk := p.Block(b)
	if blk == nil || blk.Terminator == nil {
		return nil
	}
	return blk.Terminator.Successors()
}

// Predecessors computes the predecessor lists of all blocks. Each list is
// sorted and free of duplicates.
func (p *Procedure) Predecessors() [][]BlockID {
	preds := make([][]BlockID, len(p.Blocks))
	for _, blk := range p.Blocks {
		if blk == nil || blk.Terminator == nil {
			continue
		}
		for _, succ := range uniqueTargets(blk.Terminator.Successors()) {
			if p.Block(succ) != nil {
				preds[succ] = append(preds[succ], blk.ID)
			}
		}
	}
	for _, ps := range preds {
		sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	}
	return preds
}

// Graph exposes the successor relation for the generic graph algorithms.
// Successor lists are deduplicated, keeping the first occurrence.
func (p *Procedure) Graph() graph.Graph[BlockID] {
	return graph.OfHashable(func(b BlockID) []BlockID {
		return uniqueTargets(p.Successors(b))
	})
}

// StatementCount is the total number of statements over all blocks.
func (p *Procedure) StatementCount() (n int) {
	for _, blk := range p.Blocks {
		if blk != nil {
			n += len(blk.Statements)
		}
	}
	return
}

func uniqueTargets(targets []BlockID) []BlockID {
	ret := make([]BlockID, 0, len(targets))
	seen := make(map[BlockID]bool, len(targets))
	for _, t := range targets {
		if !seen[t] {
			seen[t] = true
			ret = append(ret, t)
		}
	}
	return ret
}
