package interp

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// Equivalent runs p and tree under the oracles seeded 0 to runs-1 and reports
// the first run on which their traces differ.
func Equivalent(p *cfg.Procedure, tree ast.Node, runs int, lim Limits) error {
	for seed := int64(0); seed < int64(runs); seed++ {
		g := RunGraph(p, NewOracle(seed), lim)
		t := RunTree(tree, NewOracle(seed), lim)
		if diff := cmp.Diff(g, t, cmpopts.EquateEmpty()); diff != "" {
			return errors.Errorf("%s: traces differ on seed %d (-graph +tree):\n%s", p.Name, seed, diff)
		}
	}
	return nil
}
