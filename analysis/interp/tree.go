package interp

import (
	"fmt"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/pkg/errors"
)

type signal int

const (
	normal signal = iota
	breaking
	continuing
	returning
	aborting
)

type treeRun struct {
	*recorder
	o Oracle
}

// RunTree executes a structured tree.
func RunTree(root ast.Node, o Oracle, lim Limits) Trace {
	r := &treeRun{&recorder{lim: lim}, o}
	return r.run(func() {
		if sig, _ := r.exec(root); sig != returning && sig != aborting {
			r.trace.Outcome = Incomplete
		}
	})
}

func (r *treeRun) exec(n ast.Node) (signal, int) {
	r.step()

	switch n := n.(type) {
	case *ast.Sequence:
		for _, m := range n.Nodes {
			if sig, level := r.exec(m); sig != normal {
				return sig, level
			}
		}
		return normal, 0
	case *ast.Statement:
		r.event("%s", n.Text)
		return normal, 0
	case *ast.If:
		if r.branchIf(r.o, n.Cond) {
			return r.exec(n.Then)
		}
		return r.exec(n.Else)
	case *ast.Switch:
		if v, ok := r.branchSwitch(r.o, n.Discr, n.Values()); ok {
			return r.exec(n.ArmFor(v))
		}
		return r.exec(n.Default)
	case *ast.Loop:
		for {
			sig, level := r.exec(n.Body)
			switch {
			case sig == normal, sig == continuing && level == 0:
				r.step()
			case sig == breaking && level == 0:
				return normal, 0
			case sig == breaking, sig == continuing:
				return sig, level - 1
			default:
				return sig, level
			}
		}
	case *ast.Break:
		return breaking, n.Level
	case *ast.Continue:
		return continuing, n.Level
	case *ast.Return:
		r.trace.Outcome = Returned
		return returning, 0
	case *ast.Abort:
		r.abort(n.Kind, n.Name)
		return aborting, 0
	}
	panic(fmt.Sprintf("unknown node %T", n))
}

func errTerminator(b cfg.BlockID, t cfg.Terminator) error {
	return errors.Errorf("%v: cannot execute terminator %T", b, t)
}
