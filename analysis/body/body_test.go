package body

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/testutil"
)

func init() {
	color.NoColor = true
}

func stmt(text string) ast.Node {
	return &ast.Statement{Statement: cfg.Statement{Kind: cfg.Assign, Text: text, Uses: cfg.UsesOf(text)}}
}

func proc() *cfg.Procedure {
	p := testutil.Proc("f").
		Block(0, "_2 = const 1").Goto(1).
		Block(1).If("_1", 1, 2).
		Block(2).Return().
		Build()
	p.Locals[0].Ty = "i32"
	p.Locals[1].Name, p.Locals[1].Ty = "x", "bool"
	p.Locals[2].Ty = "i32"
	p.Span = cfg.Span{File: "src/f.rs", Line: 1, Col: 1, EndLine: 5, EndCol: 2}
	p.Comments = []cfg.LineComment{{Line: 2, Lines: []string{"spin until x is false"}}}
	return p
}

func tree() *ast.Sequence {
	return ast.Seq(
		stmt("_2 = const 1"),
		&ast.Loop{Body: ast.Seq(&ast.If{
			Cond: cfg.LocalOperand(1),
			Then: ast.Seq(&ast.Continue{Level: 0}),
			Else: ast.Seq(&ast.Break{Level: 0}),
		})},
		&ast.Return{},
	)
}

func assemble(t *testing.T) *Body {
	t.Helper()
	b, err := Assemble(proc(), tree())
	require.NoError(t, err)
	return b
}

var scalarCmp = cmp.Comparer(func(a, b cfg.Scalar) bool {
	return a.Equal(b)
})

func TestAssemble(t *testing.T) {
	b := assemble(t)
	assert.Equal(t, cfg.Function, b.Kind)
	assert.Equal(t, "f", b.Name)
	assert.Equal(t, 1, b.ArgCount)
	assert.Len(t, b.Locals, 3)
	assert.Equal(t, "x", b.Params()[0].Name)
	assert.Equal(t, []cfg.Local{{ID: 2, Ty: "i32"}}, b.Vars())
	assert.Equal(t, "src/f.rs", b.Span.File)
	assert.Len(t, b.Comments, 1)
}

func TestAssembleCopiesLocals(t *testing.T) {
	p := proc()
	b, err := Assemble(p, tree())
	require.NoError(t, err)

	p.Locals[2].Name = "changed"
	assert.Empty(t, b.Locals[2].Name)
}

func TestAssembleGlobal(t *testing.T) {
	p := testutil.Proc("G").Global().
		Block(0, "_0 = const 7").Return().
		Build()
	b, err := Assemble(p, ast.Seq(stmt("_0 = const 7"), &ast.Return{}))
	require.NoError(t, err)
	assert.Equal(t, cfg.Global, b.Kind)
	assert.Empty(t, b.Params())
	assert.Empty(t, b.Vars())
}

func TestAssembleEmptyTree(t *testing.T) {
	b, err := Assemble(proc(), nil)
	require.NoError(t, err)
	assert.True(t, b.Tree.IsEmpty())
}

func TestAssembleBadLocals(t *testing.T) {
	p := proc()
	p.Locals = p.Locals[:1]
	_, err := Assemble(p, tree())

	var malformed *cfg.MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, cfg.BadLocals, malformed.Reason)
	assert.Equal(t, p.Name, malformed.Proc)
}

func internalError(t *testing.T, do func()) (err *ast.InternalError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		err, ok = r.(*ast.InternalError)
		require.True(t, ok, "panic with %T", r)
	}()
	do()
	return
}

func TestAssembleDefects(t *testing.T) {
	err := internalError(t, func() {
		Assemble(proc(), ast.Seq(&ast.Break{Level: 0}))
	})
	assert.Equal(t, "f", err.Proc)

	err = internalError(t, func() {
		Assemble(proc(), ast.Seq(stmt("_9 = move _1")))
	})
	assert.Contains(t, err.Error(), "_9 is not declared")

	err = internalError(t, func() {
		Assemble(proc(), ast.Seq(&ast.If{Cond: cfg.LocalOperand(4), Then: ast.Seq(), Else: ast.Seq()}))
	})
	assert.Contains(t, err.Error(), "_4")
}

func TestString(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, t.Name(), []byte(assemble(t).String()))
}

func TestFprint(t *testing.T) {
	b := assemble(t)
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, []*Body{b, b}))
	assert.Equal(t, b.String()+"\n"+b.String(), buf.String())
}

func TestYAMLRoundTrip(t *testing.T) {
	b := assemble(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, []*Body{b}))
	assert.Contains(t, buf.String(), "arg_count: 1")
	assert.Contains(t, buf.String(), "kind: loop")

	back, err := DecodeYAML(&buf)
	require.NoError(t, err)
	require.Len(t, back, 1)
	if diff := cmp.Diff(b, back[0], scalarCmp, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("YAML round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMsgpackStream(t *testing.T) {
	g, err := Assemble(testutil.Proc("G").Global().Block(0).Return().Build(), ast.Seq(&ast.Return{}))
	require.NoError(t, err)
	bodies := []*Body{assemble(t), g}

	var buf bytes.Buffer
	require.NoError(t, EncodeMsgpack(&buf, bodies))
	back, err := DecodeMsgpack(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(bodies, back, scalarCmp, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("MessagePack round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromWireErrors(t *testing.T) {
	valid := func() Wire { return assemble(t).ToWire() }

	tests := map[string]func(w *Wire){
		"kind":       func(w *Wire) { w.Kind = "closure" },
		"locals":     func(w *Wire) { w.Locals = w.Locals[:1] },
		"arg count":  func(w *Wire) { w.ArgCount = -1 },
		"tree":       func(w *Wire) { w.Body = []ast.Wire{{Kind: "goto"}} },
		"level":      func(w *Wire) { w.Body = []ast.Wire{{Kind: "break", Level: new(int)}} },
		"undeclared": func(w *Wire) { w.Locals = w.Locals[:2] },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			w := valid()
			mutate(&w)
			_, err := FromWire(w)
			assert.Error(t, err)
		})
	}
}
