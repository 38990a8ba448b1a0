package cfg

import (
	"bytes"
	"math/big"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func loadSample(t *testing.T) []*Procedure {
	t.Helper()
	f, err := os.Open("testdata/sample.yaml")
	require.NoError(t, err)
	defer f.Close()

	procs, err := Decode(f)
	require.NoError(t, err)
	require.Len(t, procs, 2)
	return procs
}

func TestDecode(t *testing.T) {
	procs := loadSample(t)
	p := procs[0]

	assert.Equal(t, "demo::choose", p.Name)
	assert.Equal(t, Function, p.Kind)
	assert.Equal(t, BlockID(0), p.Entry)
	assert.Equal(t, 1, p.ArgCount)
	assert.Len(t, p.Locals, 4, "locals are synthesized up to the highest referenced one")
	assert.Equal(t, Span{"src/lib.rs", 3, 1, 12, 2}, p.Span)
	assert.Equal(t, []LineComment{{4, []string{"pick a branch"}}}, p.Comments)

	entry := p.Blocks[0]
	require.Len(t, entry.Statements, 2)
	assert.Equal(t, Assign, entry.Statements[0].Kind)
	assert.Equal(t, []LocalID{2, 1}, entry.Statements[0].Uses)
	assert.Equal(t, StorageLive, entry.Statements[1].Kind)

	sw, ok := entry.Terminator.(*SwitchInt)
	require.True(t, ok, "expected a switch, got %v", entry.Terminator)
	assert.Equal(t, U8, sw.Ty)
	assert.Equal(t, LocalOperand(2), sw.Discr)
	require.Len(t, sw.Arms, 2)
	assert.Equal(t, "16", sw.Arms[1].Value.String())
	assert.Equal(t, []BlockID{1, 2, 3}, p.Successors(0))

	assert.IsType(t, &Abort{}, p.Blocks[3].Terminator)
	assert.IsType(t, &Return{}, p.Blocks[4].Terminator)
	assert.NoError(t, p.Validate())

	g := procs[1]
	assert.Equal(t, Global, g.Kind)
	assert.Equal(t, &Abort{Kind: UndefinedBehavior}, g.Blocks[0].Terminator)
	assert.NoError(t, g.Validate())
}

func TestPredecessors(t *testing.T) {
	p := loadSample(t)[0]
	preds := p.Predecessors()

	assert.Empty(t, preds[0])
	assert.Equal(t, []BlockID{0, 2}, preds[3])
	assert.Equal(t, []BlockID{1, 2}, preds[4])
}

func TestEncodeRoundTrip(t *testing.T) {
	procs := loadSample(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, procs))

	again, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(procs))
	for i := range procs {
		assert.Equal(t, procs[i].String(), again[i].String())
	}
}

func TestProcedureString(t *testing.T) {
	p := loadSample(t)[0]
	goldie.New(t).Assert(t, t.Name(), []byte(p.String()))
}

func TestToDot(t *testing.T) {
	p := loadSample(t)[0]
	dg := p.ToDot(func(b BlockID) bool { return b == 2 })

	assert.Equal(t, 5, dg.CountNodes())
	assert.Len(t, dg.Edges, 6)
	assert.Equal(t, "lightblue", dg.Nodes[0].Attrs["fillcolor"])
	assert.Equal(t, "khaki", dg.Nodes[2].Attrs["fillcolor"])

	var buf bytes.Buffer
	require.NoError(t, dg.WriteDot(&buf))
	assert.Contains(t, buf.String(), `"bb0" -> "bb2" [ label="16"; ]`)
	assert.Contains(t, buf.String(), `"bb2" -> "bb3" [ label="false"; ]`)
}

func TestScalarBounds(t *testing.T) {
	for _, test := range []struct {
		ty   IntTy
		text string
		ok   bool
	}{
		{U8, "255", true},
		{U8, "256", false},
		{U8, "-1", false},
		{I8, "-128", true},
		{I8, "128", false},
		{I128, "-170141183460469231731687303715884105728", true},
		{U128, "340282366920938463463374607431768211455", true},
		{U128, "340282366920938463463374607431768211456", false},
		{Usize, "18446744073709551615", true},
		{Isize, "zero", false},
	} {
		_, err := ParseScalar(test.ty, test.text)
		assert.Equal(t, test.ok, err == nil, "%s %s: %v", test.ty, test.text, err)
	}

	a, b := MustScalar(I32, -3), MustScalar(I32, 2)
	assert.Equal(t, -1, a.Cmp(b))
	assert.True(t, a.Equal(MustScalar(I32, -3)))
	assert.False(t, a.Equal(MustScalar(I64, -3)))
	assert.Equal(t, "-3_i32", a.TypedString())
	assert.Equal(t, big.NewInt(2), b.Int())
}

func validProc() *Procedure {
	return &Procedure{
		Name:     "p",
		ArgCount: 1,
		Locals:   []Local{{ID: 0}, {ID: 1}},
		Blocks: []*Block{
			{ID: 0, Statements: []Statement{{Text: "_0 = _1", Uses: []LocalID{0, 1}}}, Terminator: &If{LocalOperand(1), 1, 2}},
			{ID: 1, Terminator: &Goto{2}},
			{ID: 2, Terminator: &Return{}},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validProc().Validate())

	for _, test := range []struct {
		name   string
		mutate func(p *Procedure)
		reason Reason
	}{
		{"bad entry", func(p *Procedure) { p.Entry = 7 }, BadEntry},
		{"bad block id", func(p *Procedure) { p.Blocks[1].ID = 5 }, BadBlockID},
		{"too few locals", func(p *Procedure) { p.ArgCount = 3 }, BadLocals},
		{"missing terminator", func(p *Procedure) { p.Blocks[1].Terminator = nil }, MissingTerminator},
		{"dangling target", func(p *Procedure) { p.Blocks[1].Terminator = &Goto{9} }, DanglingTarget},
		{"dangling local", func(p *Procedure) { p.Blocks[0].Terminator = &If{LocalOperand(4), 1, 2} }, DanglingLocal},
		{"dangling statement local", func(p *Procedure) { p.Blocks[1].Statements = []Statement{{Uses: []LocalID{2}}} }, DanglingLocal},
		{"unreachable", func(p *Procedure) { p.Blocks[0].Terminator = &Goto{2} }, UnreachableBlock},
		{"duplicate arm", func(p *Procedure) {
			p.Blocks[0].Terminator = &SwitchInt{LocalOperand(1), U8, []Arm{{MustScalar(U8, 1), 1}, {MustScalar(U8, 1), 2}}, 2}
		}, DuplicateArm},
		{"arm type", func(p *Procedure) {
			p.Blocks[0].Terminator = &SwitchInt{LocalOperand(1), U8, []Arm{{MustScalar(I8, 1), 1}}, 2}
		}, ScalarTypeMismatch},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := validProc()
			test.mutate(p)

			err := p.Validate()
			var merr *MalformedError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, test.reason, merr.Reason)
			assert.Equal(t, "p", merr.Proc)
		})
	}
}

func TestDecodeRejectsTerminatorStatements(t *testing.T) {
	src := `
procedures:
  - name: bad
    blocks:
      - id: 0
        statements:
          - {kind: return, text: "return"}
        terminator: return
  - name: twice
    blocks:
      - id: 0
        terminator: {goto: 0, return: {}}
`
	procs, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	for _, p := range procs {
		var merr *MalformedError
		require.ErrorAs(t, p.Validate(), &merr, p.Name)
		assert.Equal(t, StatementAfterTerminator, merr.Reason)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, src := range []string{
		"procedures: [{name: a, kind: lambda, blocks: []}]",
		"procedures: [{name: a, blocks: [{id: 0, terminator: jump}]}]",
		"procedures: [{name: a, blocks: [{id: 0, terminator: {switch: {discr: _0, ty: u7, otherwise: 0}}}]}]",
		"procedures: [{name: a, blocks: [{id: 0, terminator: {switch: {discr: _0, ty: u8, arms: [{value: 300, target: 0}], otherwise: 0}}}]}]",
		"procedures: [{name: a, blocks: [{id: 0, statements: [{kind: jump, text: x}], terminator: return}]}]",
	} {
		_, err := Decode(strings.NewReader(src))
		assert.Error(t, err, src)
	}
}

func TestOperands(t *testing.T) {
	assert.Equal(t, LocalOperand(3), ParseOperand("_3"))
	assert.Equal(t, ConstOperand("true"), ParseOperand("true"))
	assert.Equal(t, ConstOperand("_3 + 1"), ParseOperand("_3 + 1"))
	assert.Equal(t, []LocalID{1, 12}, UsesOf("_1 = Add(_12, _1)"))
	assert.Empty(t, UsesOf("x_1 = foo()"))
}
