package body

import (
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/utils"
)

func localString(l cfg.Local) string {
	str := l.ID.String()
	if l.Name != "" {
		str += " " + l.Name
	}
	if l.Ty != "" {
		str += ": " + l.Ty
	}
	return str
}

// String renders the body as a signature, the declared locals, the source
// comments and the indented tree.
func (b *Body) String() string {
	var sb strings.Builder

	params := make([]string, 0, b.ArgCount)
	for _, l := range b.Params() {
		params = append(params, localString(l))
	}
	fmt.Fprintf(&sb, "%s %s(%s)", utils.KeywordColor(b.Kind.String()), utils.NameColor(b.Name), strings.Join(params, ", "))
	if ret := b.Locals[0]; ret.Ty != "" {
		fmt.Fprintf(&sb, " -> %s", ret.Ty)
	}
	if b.Span.File != "" {
		fmt.Fprintf(&sb, " @ %s", b.Span)
	}
	sb.WriteString(" {\n")

	for _, l := range b.Vars() {
		fmt.Fprintf(&sb, "  %s %s;\n", utils.KeywordColor("let"), localString(l))
	}
	for _, c := range b.Comments {
		for _, line := range c.Lines {
			fmt.Fprintf(&sb, "  %s\n", utils.StmtColor(fmt.Sprintf("// %d: %s", c.Line, line)))
		}
	}

	tree := ast.String(b.Tree)
	for _, line := range strings.SplitAfter(tree, "\n") {
		if line != "" {
			sb.WriteString("  " + line)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Fprint writes the text form of every body, separated by blank lines.
func Fprint(w io.Writer, bodies []*Body) error {
	for i, b := range bodies {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
