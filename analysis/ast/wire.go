package ast

import (
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/pkg/errors"
)

// Wire is the serializable form of a node, shared by the YAML and MessagePack
// encodings. Sequences are lists of Wire values.
type Wire struct {
	Kind string `yaml:"kind" msgpack:"kind"`

	// Statements.
	Stmt string        `yaml:"stmt,omitempty" msgpack:"stmt,omitempty"`
	Text string        `yaml:"text,omitempty" msgpack:"text,omitempty"`
	Uses []cfg.LocalID `yaml:"uses,omitempty,flow" msgpack:"uses,omitempty"`

	// Branches.
	Cond    string    `yaml:"cond,omitempty" msgpack:"cond,omitempty"`
	Ty      string    `yaml:"ty,omitempty" msgpack:"ty,omitempty"`
	Then    []Wire    `yaml:"then,omitempty" msgpack:"then,omitempty"`
	Else    []Wire    `yaml:"else,omitempty" msgpack:"else,omitempty"`
	Arms    []WireArm `yaml:"arms,omitempty" msgpack:"arms,omitempty"`
	Default []Wire    `yaml:"default,omitempty" msgpack:"default,omitempty"`

	Body  []Wire `yaml:"body,omitempty" msgpack:"body,omitempty"`
	Level *int   `yaml:"level,omitempty" msgpack:"level,omitempty"`

	// Aborts.
	Reason string `yaml:"reason,omitempty" msgpack:"reason,omitempty"`
	Name   string `yaml:"name,omitempty" msgpack:"name,omitempty"`
}

type WireArm struct {
	Values []string `yaml:"values,flow" msgpack:"values"`
	Body   []Wire   `yaml:"body,omitempty" msgpack:"body,omitempty"`
}

const (
	kindStmt     = "stmt"
	kindIf       = "if"
	kindSwitch   = "switch"
	kindLoop     = "loop"
	kindBreak    = "break"
	kindContinue = "continue"
	kindReturn   = "return"
	kindAbort    = "abort"
)

// ToWire converts a sequence to its serializable form.
func ToWire(s *Sequence) []Wire {
	if s.IsEmpty() {
		return nil
	}
	ws := make([]Wire, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ws = append(ws, toWire(n))
	}
	return ws
}

func toWire(n Node) Wire {
	level := func(l int) *int { return &l }

	switch n := n.(type) {
	case *Statement:
		return Wire{Kind: kindStmt, Stmt: n.Kind.String(), Text: n.Text, Uses: n.Uses}
	case *If:
		return Wire{Kind: kindIf, Cond: n.Cond.String(), Then: ToWire(n.Then), Else: ToWire(n.Else)}
	case *Switch:
		w := Wire{Kind: kindSwitch, Cond: n.Discr.String(), Ty: n.Ty.String(), Default: ToWire(n.Default)}
		for _, arm := range n.Arms {
			wa := WireArm{Body: ToWire(arm.Body)}
			for _, v := range arm.Values {
				wa.Values = append(wa.Values, v.String())
			}
			w.Arms = append(w.Arms, wa)
		}
		return w
	case *Loop:
		return Wire{Kind: kindLoop, Body: ToWire(n.Body)}
	case *Break:
		return Wire{Kind: kindBreak, Level: level(n.Level)}
	case *Continue:
		return Wire{Kind: kindContinue, Level: level(n.Level)}
	case *Return:
		return Wire{Kind: kindReturn}
	case *Abort:
		return Wire{Kind: kindAbort, Reason: n.Kind.String(), Name: n.Name}
	}
	panic(errors.Errorf("cannot serialize %T", n))
}

// FromWire rebuilds a sequence from its serializable form.
func FromWire(ws []Wire) (*Sequence, error) {
	s := &Sequence{}
	for i, w := range ws {
		n, err := fromWire(w)
		if err != nil {
			return nil, errors.WithMessagef(err, "node %d", i)
		}
		s.Nodes = append(s.Nodes, n)
	}
	return s, nil
}

func fromWire(w Wire) (Node, error) {
	levelOf := func() (int, error) {
		if w.Level == nil {
			return 0, errors.Errorf("%s without a level", w.Kind)
		}
		return *w.Level, nil
	}

	switch w.Kind {
	case kindStmt:
		kind, ok := cfg.ParseStatementKind(w.Stmt)
		if !ok {
			return nil, errors.Errorf("unknown statement kind %q", w.Stmt)
		}
		return &Statement{cfg.Statement{Kind: kind, Text: w.Text, Uses: w.Uses}}, nil
	case kindIf:
		then, err := FromWire(w.Then)
		if err != nil {
			return nil, err
		}
		els, err := FromWire(w.Else)
		if err != nil {
			return nil, err
		}
		return &If{Cond: cfg.ParseOperand(w.Cond), Then: then, Else: els}, nil
	case kindSwitch:
		ty, err := cfg.ParseIntTy(w.Ty)
		if err != nil {
			return nil, err
		}
		sw := &Switch{Discr: cfg.ParseOperand(w.Cond), Ty: ty}
		for _, wa := range w.Arms {
			arm := SwitchArm{}
			for _, text := range wa.Values {
				v, err := cfg.ParseScalar(ty, text)
				if err != nil {
					return nil, err
				}
				arm.Values = append(arm.Values, v)
			}
			if arm.Body, err = FromWire(wa.Body); err != nil {
				return nil, err
			}
			sw.Arms = append(sw.Arms, arm)
		}
		if sw.Default, err = FromWire(w.Default); err != nil {
			return nil, err
		}
		return sw, nil
	case kindLoop:
		body, err := FromWire(w.Body)
		if err != nil {
			return nil, err
		}
		return &Loop{Body: body}, nil
	case kindBreak:
		l, err := levelOf()
		return &Break{Level: l}, err
	case kindContinue:
		l, err := levelOf()
		return &Continue{Level: l}, err
	case kindReturn:
		return &Return{}, nil
	case kindAbort:
		kind, ok := cfg.ParseAbortKind(w.Reason)
		if !ok {
			return nil, errors.Errorf("unknown abort reason %q", w.Reason)
		}
		return &Abort{Kind: kind, Name: w.Name}, nil
	}
	return nil, errors.Errorf("unknown node kind %q", w.Kind)
}
