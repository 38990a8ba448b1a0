package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/body"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/frontend"
	"github.com/cs-au-dk/restruct/analysis/structure"
	"github.com/cs-au-dk/restruct/pkgutil"
	"github.com/cs-au-dk/restruct/testutil"
)

func sample(t *testing.T) []*cfg.Procedure {
	t.Helper()
	f, err := os.Open("analysis/cfg/testdata/sample.yaml")
	require.NoError(t, err)
	defer f.Close()

	procs, err := cfg.Decode(f)
	require.NoError(t, err)
	return procs
}

var irreducible = testutil.Proc("irreducible").
	Block(0).If("_1", 1, 2).
	Block(1).Goto(2).
	Block(2).Goto(1).
	Build()

var malformed = testutil.Proc("malformed").
	Block(0).Goto(7).
	Build()

var loop = testutil.Proc("loop").
	Block(0).Goto(1).
	Block(1).If("_1", 2, 3).
	Block(2).Goto(1).
	Block(3).Return().
	Build()

func TestPipelineSample(t *testing.T) {
	procs := sample(t)
	results, err := pipeline{jobs: 2}.run(context.Background(), procs)
	require.NoError(t, err)
	require.Len(t, results, len(procs))

	for i, r := range results {
		assert.Same(t, procs[i], r.proc)
		assert.Equal(t, OUTCOME_STRUCTURED, r.outcome, "%s: %v", r.proc.Name, r.err)
		require.NotNil(t, r.body)
		assert.Equal(t, r.proc.Name, r.body.Name)
	}
	assert.Zero(t, exitCode(results))
}

func TestPipelineOutcomes(t *testing.T) {
	procs := []*cfg.Procedure{loop, irreducible, malformed}
	results, err := pipeline{jobs: 1}.run(context.Background(), procs)
	require.NoError(t, err)

	outcomes := make([]string, len(results))
	for i, r := range results {
		outcomes[i] = r.outcome
	}
	assert.Equal(t, []string{OUTCOME_STRUCTURED, OUTCOME_IRREDUCIBLE, OUTCOME_MALFORMED}, outcomes)

	assert.Equal(t, 1, results[0].stats.Loops)
	assert.Nil(t, results[1].body)
	assert.Error(t, results[2].err)
	assert.Equal(t, 1, exitCode(results))
	assert.Len(t, bodies(results), 1)
}

func TestPipelineBudget(t *testing.T) {
	results, err := pipeline{opts: structure.Options{MaxNodes: 2}}.run(context.Background(), []*cfg.Procedure{loop})
	require.NoError(t, err)
	assert.Equal(t, OUTCOME_BUDGET, results[0].outcome)
}

func TestPipelineDefaultBudget(t *testing.T) {
	pl := pipeline{opts: structure.Options{NodesPerBlock: structure.DefaultNodesPerBlock}}
	procs := []*cfg.Procedure{testutil.Ladder("deep", 40), testutil.Ladder("shallow", 4), loop}
	results, err := pl.run(context.Background(), procs)
	require.NoError(t, err)

	assert.Equal(t, OUTCOME_BUDGET, results[0].outcome)
	assert.Nil(t, results[0].body)
	assert.Equal(t, OUTCOME_STRUCTURED, results[1].outcome)
	assert.Equal(t, OUTCOME_STRUCTURED, results[2].outcome)
	assert.Equal(t, 1, exitCode(results))
}

func TestOutcomeOf(t *testing.T) {
	p := testutil.Proc("f").Args(2).Block(0).Return().Build()
	p.Locals = p.Locals[:1]
	_, err := body.Assemble(p, nil)
	assert.Equal(t, OUTCOME_MALFORMED, outcomeOf(err))

	assert.Equal(t, OUTCOME_BUDGET, outcomeOf(&structure.BudgetError{Proc: "f", Limit: 1}))
	assert.Equal(t, OUTCOME_DEFECT, outcomeOf(assert.AnError))
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline{}.run(ctx, []*cfg.Procedure{loop})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsInternalError(t *testing.T) {
	ie := &ast.InternalError{Proc: "f", Err: assert.AnError}
	assert.Same(t, ie, asInternalError("g", ie))

	wrapped := asInternalError("g", assert.AnError)
	assert.Equal(t, "g", wrapped.Proc)
	assert.ErrorIs(t, wrapped.Err, assert.AnError)

	assert.Contains(t, asInternalError("g", "boom").Err.Error(), "boom")
}

func TestReport(t *testing.T) {
	results, err := pipeline{}.run(context.Background(), []*cfg.Procedure{loop, irreducible})
	require.NoError(t, err)

	var buf bytes.Buffer
	report(&buf, results, true)
	out := buf.String()

	assert.Contains(t, out, "Results")
	assert.Contains(t, out, "Failures:")
	assert.Contains(t, out, "irreducible")
	assert.Contains(t, out, "2 procedures")
	assert.Contains(t, out, OUTCOME_IRREDUCIBLE)

	buf.Reset()
	report(&buf, results[:1], false)
	assert.NotContains(t, buf.String(), "Results")
	assert.NotContains(t, buf.String(), "Failures:")
	assert.Contains(t, buf.String(), "1 procedure:")
}

func TestControlFlowProgram(t *testing.T) {
	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{GoPath: "testdata"}, "controlflow")
	require.NoError(t, err)

	procs, err := frontend.Program(pkgs, frontend.Config{Globals: true})
	require.NoError(t, err)
	require.NotEmpty(t, procs)

	results, err := pipeline{jobs: 4}.run(context.Background(), procs)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, OUTCOME_STRUCTURED, r.outcome, "%s: %v", r.proc.Name, r.err)
	}

	// Every format can be written.
	bs := bodies(results)
	var text, yml, mp bytes.Buffer
	require.NoError(t, body.Fprint(&text, bs))
	require.NoError(t, body.EncodeYAML(&yml, bs))
	require.NoError(t, body.EncodeMsgpack(&mp, bs))

	assert.Contains(t, text.String(), "controlflow.collatz")
	decoded, err := body.DecodeMsgpack(&mp)
	require.NoError(t, err)
	assert.Len(t, decoded, len(bs))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "__p.counter_.incr", fileName("(*p.counter).incr"))
	assert.False(t, strings.ContainsAny(fileName("p.f$1#2"), "$#"))
}
