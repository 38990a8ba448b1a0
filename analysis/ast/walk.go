package ast

import (
	"sort"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/pkg/errors"
)

func sortScalars(vs []cfg.Scalar) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Cmp(vs[j]) < 0 })
}

// Walk visits n and its descendants in pre-order. loops is the number of Loop
// nodes enclosing the visited node. Returning false skips the children.
func Walk(n Node, visit func(n Node, loops int) bool) {
	walk(n, 0, visit)
}

func walk(n Node, loops int, visit func(Node, int) bool) {
	if s, ok := n.(*Sequence); n == nil || ok && s == nil {
		return
	}
	if !visit(n, loops) {
		return
	}

	switch n := n.(type) {
	case *Sequence:
		for _, m := range n.Nodes {
			walk(m, loops, visit)
		}
	case *If:
		walk(n.Then, loops, visit)
		walk(n.Else, loops, visit)
	case *Switch:
		for _, arm := range n.Arms {
			walk(arm.Body, loops, visit)
		}
		walk(n.Default, loops, visit)
	case *Loop:
		walk(n.Body, loops+1, visit)
	}
}

// Count is the number of nodes in the tree, sequences included.
func Count(n Node) (c int) {
	Walk(n, func(Node, int) bool {
		c++
		return true
	})
	return
}

// CheckLevels verifies that every Break and Continue refers to an enclosing loop.
func CheckLevels(n Node) (err error) {
	Walk(n, func(m Node, loops int) bool {
		if err != nil {
			return false
		}
		switch m := m.(type) {
		case *Break:
			if m.Level < 0 || m.Level >= loops {
				err = errors.Errorf("break %d under %d loops", m.Level, loops)
			}
		case *Continue:
			if m.Level < 0 || m.Level >= loops {
				err = errors.Errorf("continue %d under %d loops", m.Level, loops)
			}
		}
		return true
	})
	return
}

// Uses lists every local referenced by statements and branch operands, in
// order of first appearance.
func Uses(n Node) (uses []cfg.LocalID) {
	seen := map[cfg.LocalID]bool{}
	note := func(ids ...cfg.LocalID) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				uses = append(uses, id)
			}
		}
	}
	operand := func(op cfg.Operand) {
		if !op.IsConst {
			note(op.Local)
		}
	}

	Walk(n, func(m Node, _ int) bool {
		switch m := m.(type) {
		case *Statement:
			note(m.Uses...)
		case *If:
			operand(m.Cond)
		case *Switch:
			operand(m.Discr)
		}
		return true
	})
	return
}
