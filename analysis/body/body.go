// Package body packages a structured tree together with the metadata of the
// procedure it was built from.
package body

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// Body is the structured form of a function or global initializer. Block ids
// do not survive into it.
type Body struct {
	Kind     cfg.ProcKind
	Name     string
	Span     cfg.Span
	ArgCount int
	// Locals[0] is the return place, Locals[1..ArgCount] are the parameters.
	Locals   []cfg.Local
	Comments []cfg.LineComment
	Tree     *ast.Sequence
}

// Assemble combines the structured tree of p with its locals and source
// metadata. A tree that breaks out of a loop it is not in, or mentions a local
// p does not declare, is a defect of the structurer and panics with an
// *ast.InternalError.
func Assemble(p *cfg.Procedure, tree *ast.Sequence) (*Body, error) {
	if p.ArgCount < 0 || len(p.Locals) < p.ArgCount+1 {
		return nil, &cfg.MalformedError{
			Proc:   p.Name,
			Reason: cfg.BadLocals,
			Detail: fmt.Sprintf("%d locals cannot hold the return place and %d arguments", len(p.Locals), p.ArgCount),
		}
	}
	if tree == nil {
		tree = &ast.Sequence{}
	}

	if err := ast.CheckLevels(tree); err != nil {
		panic(&ast.InternalError{Proc: p.Name, Err: err})
	}
	for _, id := range ast.Uses(tree) {
		if id < 0 || int(id) >= len(p.Locals) {
			panic(&ast.InternalError{
				Proc: p.Name,
				Err:  errors.Errorf("%s is not declared (%d locals)", id, len(p.Locals)),
			})
		}
	}

	return &Body{
		Kind:     p.Kind,
		Name:     p.Name,
		Span:     p.Span,
		ArgCount: p.ArgCount,
		Locals:   append([]cfg.Local(nil), p.Locals...),
		Comments: append([]cfg.LineComment(nil), p.Comments...),
		Tree:     tree,
	}, nil
}

// Params are the parameter locals.
func (b *Body) Params() []cfg.Local {
	return b.Locals[1 : b.ArgCount+1]
}

// Vars are the locals that are neither the return place nor parameters.
func (b *Body) Vars() []cfg.Local {
	return b.Locals[b.ArgCount+1:]
}
