package cfg

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/restruct/utils"
)

// String renders the procedure as an indented block listing.
func (p *Procedure) String() string {
	var sb strings.Builder

	params := make([]string, 0, p.ArgCount)
	for i := 1; i <= p.ArgCount && i < len(p.Locals); i++ {
		params = append(params, p.localString(LocalID(i)))
	}
	fmt.Fprintf(&sb, "%s %s(%s)", utils.KeywordColor(p.Kind.String()), utils.NameColor(p.Name), strings.Join(params, ", "))
	if p.Span.File != "" {
		fmt.Fprintf(&sb, " @ %s", p.Span)
	}
	sb.WriteString("\n")

	for _, l := range p.Locals[min(len(p.Locals), p.ArgCount+1):] {
		fmt.Fprintf(&sb, "  let %s;\n", p.localString(l.ID))
	}

	for _, blk := range p.Blocks {
		if blk == nil {
			continue
		}
		marker := ""
		if blk.ID == p.Entry {
			marker = " (entry)"
		}
		fmt.Fprintf(&sb, "  %s:%s\n", utils.BlockColor(blk.ID.String()), marker)
		for _, stmt := range blk.Statements {
			fmt.Fprintf(&sb, "    %s\n", utils.StmtColor(stmt.Text))
		}
		if blk.Terminator != nil {
			fmt.Fprintf(&sb, "    %s\n", utils.KeywordColor(blk.Terminator.String()))
		} else {
			fmt.Fprintf(&sb, "    %s\n", utils.ErrorColor("<no terminator>"))
		}
	}
	return sb.String()
}

func (p *Procedure) localString(id LocalID) string {
	l := p.Locals[id]
	str := id.String()
	if l.Name != "" {
		str += " " + l.Name
	}
	if l.Ty != "" {
		str += ": " + l.Ty
	}
	return str
}
