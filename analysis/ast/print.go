package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/restruct/utils"
)

const indentUnit = "  "

// Fprint writes n as indented pseudo-code.
func Fprint(w io.Writer, n Node) error {
	p := &printer{}
	p.node(n, 0)
	_, err := io.WriteString(w, p.sb.String())
	return err
}

// String renders n as indented pseudo-code.
func String(n Node) string {
	p := &printer{}
	p.node(n, 0)
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) line(depth int, format string, args ...any) {
	p.sb.WriteString(strings.Repeat(indentUnit, depth))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) block(s *Sequence, depth int) {
	if s == nil {
		return
	}
	for _, n := range s.Nodes {
		p.node(n, depth)
	}
}

func (p *printer) node(n Node, depth int) {
	kw := utils.KeywordColor

	switch n := n.(type) {
	case *Sequence:
		p.block(n, depth)
	case *Statement:
		p.line(depth, "%s", utils.StmtColor(n.Text))
	case *If:
		p.line(depth, "%s %s {", kw("if"), n.Cond)
		p.block(n.Then, depth+1)
		if n.Else.IsEmpty() {
			p.line(depth, "}")
			return
		}
		p.line(depth, "} %s {", kw("else"))
		p.block(n.Else, depth+1)
		p.line(depth, "}")
	case *Switch:
		p.line(depth, "%s %s: %s {", kw("switch"), n.Discr, n.Ty)
		for _, arm := range n.Arms {
			vals := make([]string, len(arm.Values))
			for i, v := range arm.Values {
				vals[i] = utils.ValueColor(v.String())
			}
			p.line(depth+1, "%s => {", strings.Join(vals, " | "))
			p.block(arm.Body, depth+2)
			p.line(depth+1, "}")
		}
		p.line(depth+1, "_ => {")
		p.block(n.Default, depth+2)
		p.line(depth+1, "}")
		p.line(depth, "}")
	case *Loop:
		p.line(depth, "%s {", kw("loop"))
		p.block(n.Body, depth+1)
		p.line(depth, "}")
	case *Break:
		p.line(depth, "%s %s", kw("break"), utils.LevelColor(n.Level))
	case *Continue:
		p.line(depth, "%s %s", kw("continue"), utils.LevelColor(n.Level))
	case *Return:
		p.line(depth, "%s", kw("return"))
	case *Abort:
		if n.Name != "" {
			p.line(depth, "%s(%s %s)", kw("abort"), n.Kind, n.Name)
		} else {
			p.line(depth, "%s(%s)", kw("abort"), n.Kind)
		}
	default:
		panic(fmt.Sprintf("unknown node %T", n))
	}
}
