// Package ast defines the structured statement tree produced from a
// control-flow graph. Trees refer to locals but never to blocks.
package ast

import (
	"fmt"

	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// Node is a structured statement.
type Node interface {
	node()
}

type (
	// Sequence runs its nodes in order.
	Sequence struct {
		Nodes []Node
	}

	// Statement is an opaque leaf copied from the input graph.
	Statement struct {
		cfg.Statement
	}

	If struct {
		Cond       cfg.Operand
		Then, Else *Sequence
	}

	// Switch selects the first arm listing the discriminant's value, or
	// Default when none does. Arms keep the order of first occurrence in
	// the input switch.
	Switch struct {
		Discr   cfg.Operand
		Ty      cfg.IntTy
		Arms    []SwitchArm
		Default *Sequence
	}

	SwitchArm struct {
		Values []cfg.Scalar
		Body   *Sequence
	}

	// Loop repeats its body until a Break leaves it.
	Loop struct {
		Body *Sequence
	}

	// Break exits Level+1 enclosing loops. Level 0 is the innermost loop.
	Break struct {
		Level int
	}

	// Continue restarts the loop Level levels up. Level 0 is the innermost loop.
	Continue struct {
		Level int
	}

	Return struct{}

	Abort struct {
		Kind cfg.AbortKind
		Name string
	}
)

func (*Sequence) node()  {}
func (*Statement) node() {}
func (*If) node()        {}
func (*Switch) node()    {}
func (*Loop) node()      {}
func (*Break) node()     {}
func (*Continue) node()  {}
func (*Return) node()    {}
func (*Abort) node()     {}

// Seq builds a sequence, splicing nested sequences into it.
func Seq(nodes ...Node) *Sequence {
	s := &Sequence{Nodes: make([]Node, 0, len(nodes))}
	for _, n := range nodes {
		s.Append(n)
	}
	return s
}

// Append adds n at the end of the sequence. Nested sequences are flattened.
func (s *Sequence) Append(n Node) {
	if inner, ok := n.(*Sequence); ok {
		for _, m := range inner.Nodes {
			s.Append(m)
		}
		return
	}
	s.Nodes = append(s.Nodes, n)
}

// IsEmpty holds for sequences without nodes.
func (s *Sequence) IsEmpty() bool {
	return s == nil || len(s.Nodes) == 0
}

// Values lists the values of all arms sorted numerically.
func (s *Switch) Values() []cfg.Scalar {
	var vs []cfg.Scalar
	for _, arm := range s.Arms {
		vs = append(vs, arm.Values...)
	}
	sortScalars(vs)
	return vs
}

// ArmFor returns the body selected by v.
func (s *Switch) ArmFor(v cfg.Scalar) *Sequence {
	for _, arm := range s.Arms {
		for _, av := range arm.Values {
			if av.Cmp(v) == 0 {
				return arm.Body
			}
		}
	}
	return s.Default
}

// InternalError is a broken invariant of the structurer. It is raised with
// panic: continuing would produce silently incorrect output.
type InternalError struct {
	Proc string
	Err  error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error while structuring %s: %v", e.Proc, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
