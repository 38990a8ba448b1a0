package interp

import (
	"sort"

	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// RunGraph executes p from its entry block.
func RunGraph(p *cfg.Procedure, o Oracle, lim Limits) Trace {
	r := &recorder{lim: lim}
	return r.run(func() {
		b := p.Entry
		for {
			r.step()
			blk := p.Block(b)
			for _, stmt := range blk.Statements {
				r.event("%s", stmt.Text)
			}

			switch t := blk.Terminator.(type) {
			case *cfg.Goto:
				b = t.Target
			case *cfg.If:
				if r.branchIf(o, t.Cond) {
					b = t.Then
				} else {
					b = t.Else
				}
			case *cfg.SwitchInt:
				values := make([]cfg.Scalar, len(t.Arms))
				for i, arm := range t.Arms {
					values[i] = arm.Value
				}
				sort.Slice(values, func(i, j int) bool { return values[i].Cmp(values[j]) < 0 })

				b = t.Otherwise
				if v, ok := r.branchSwitch(o, t.Discr, values); ok {
					for _, arm := range t.Arms {
						if arm.Value.Equal(v) {
							b = arm.Target
						}
					}
				}
			case *cfg.Return:
				r.trace.Outcome = Returned
				return
			case *cfg.Abort:
				r.abort(t.Kind, t.Name)
				return
			default:
				panic(errTerminator(b, blk.Terminator))
			}
		}
	})
}
