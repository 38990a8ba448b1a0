package main

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/body"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/dominance"
	"github.com/cs-au-dk/restruct/analysis/structure"
)

// Encoding of per-procedure outcomes.
var (
	OUTCOME_STRUCTURED  = "Structured"
	OUTCOME_MALFORMED   = "Malformed"
	OUTCOME_IRREDUCIBLE = "Irreducible"
	OUTCOME_BUDGET      = "Over budget"
	OUTCOME_DEFECT      = "Internal error"
)

// result of structuring one procedure. Exactly one of body and err is set.
type result struct {
	proc    *cfg.Procedure
	body    *body.Body
	stats   structure.Stats
	outcome string
	err     error
	time    time.Duration

	// defect is a recovered panic, re-raised once all workers have stopped.
	defect *ast.InternalError
	stack  []byte
}

func (r result) failed() bool {
	return r.err != nil || r.defect != nil
}

func outcomeOf(err error) string {
	var (
		malformed   *cfg.MalformedError
		irreducible *dominance.IrreducibleError
		budget      *structure.BudgetError
	)
	switch {
	case errors.As(err, &malformed):
		return OUTCOME_MALFORMED
	case errors.As(err, &irreducible):
		return OUTCOME_IRREDUCIBLE
	case errors.As(err, &budget):
		return OUTCOME_BUDGET
	}
	return OUTCOME_DEFECT
}

// structureOne validates, analyzes, structures and assembles one procedure.
// Panics escape; the pipeline recovers them.
func structureOne(p *cfg.Procedure, opts structure.Options) (res result) {
	res.proc = p
	start := time.Now()
	defer func() {
		res.time = time.Since(start)
	}()

	fail := func(err error) result {
		res.err = err
		res.outcome = outcomeOf(err)
		return res
	}

	if err := p.Validate(); err != nil {
		return fail(err)
	}
	info, err := dominance.Analyze(p)
	if err != nil {
		return fail(err)
	}
	tree, stats, err := structure.Structure(p, info, opts)
	res.stats = stats
	if err != nil {
		return fail(err)
	}
	if res.body, err = body.Assemble(p, tree); err != nil {
		return fail(err)
	}

	res.outcome = OUTCOME_STRUCTURED
	return res
}

// pipeline structures a batch of independent procedures.
type pipeline struct {
	opts structure.Options
	jobs int
}

// run structures every procedure, at most jobs at a time. Results are in
// input order. Per-procedure errors do not stop the batch. A panic in any
// worker is re-raised after all workers have stopped, wrapped in an
// *ast.InternalError naming the procedure.
func (pl pipeline) run(ctx context.Context, procs []*cfg.Procedure) ([]result, error) {
	results := make([]result, len(procs))

	g, ctx := errgroup.WithContext(ctx)
	if pl.jobs > 0 {
		g.SetLimit(pl.jobs)
	}

	for i, p := range procs {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					results[i] = result{
						proc:    p,
						outcome: OUTCOME_DEFECT,
						defect:  asInternalError(p.Name, r),
						stack:   debug.Stack(),
					}
				}
			}()

			log.Debugf("Structuring %s", p.Name)
			results[i] = structureOne(p, pl.opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.defect != nil {
			log.Errorf("Internal error while structuring %s\n%s\n%s", r.proc.Name, r.proc, r.stack)
			panic(r.defect)
		}
	}
	return results, nil
}

func asInternalError(proc string, r any) *ast.InternalError {
	switch r := r.(type) {
	case *ast.InternalError:
		return r
	case error:
		return &ast.InternalError{Proc: proc, Err: r}
	}
	return &ast.InternalError{Proc: proc, Err: fmt.Errorf("%v", r)}
}

// bodies collects the structured bodies in input order.
func bodies(results []result) []*body.Body {
	var bs []*body.Body
	for _, r := range results {
		if r.body != nil {
			bs = append(bs, r.body)
		}
	}
	return bs
}
