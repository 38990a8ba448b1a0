package cfg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StatementKind classifies leaf statements. The structurer never looks at it;
// it is kept for printing and for downstream consumers.
type StatementKind int

const (
	Assign StatementKind = iota
	Call
	Assert
	SetDiscriminant
	Deinit
	StorageLive
	StorageDead
	Drop
	FakeRead
	Nop
)

var statementKinds = []string{
	"assign", "call", "assert", "set-discriminant", "deinit",
	"storage-live", "storage-dead", "drop", "fake-read", "nop",
}

func (k StatementKind) String() string {
	if int(k) < len(statementKinds) {
		return statementKinds[k]
	}
	return fmt.Sprintf("StatementKind(%d)", int(k))
}

// ParseStatementKind is the inverse of StatementKind.String.
func ParseStatementKind(s string) (StatementKind, bool) {
	for i, name := range statementKinds {
		if name == s {
			return StatementKind(i), true
		}
	}
	return 0, false
}

// Statement is an opaque leaf effect.
type Statement struct {
	Kind StatementKind
	Text string
	// Uses lists every local mentioned by the statement.
	Uses []LocalID
}

func (s Statement) String() string {
	return s.Text
}

var localRef = regexp.MustCompile(`\b_(\d+)\b`)

// UsesOf extracts the locals referenced as _N in text, in order of first appearance.
func UsesOf(text string) (uses []LocalID) {
	seen := map[LocalID]bool{}
	for _, m := range localRef.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if id := LocalID(n); !seen[id] {
			seen[id] = true
			uses = append(uses, id)
		}
	}
	return
}

// Operand is a branch condition or switch discriminant: a local or a constant.
type Operand struct {
	Local   LocalID
	Const   string
	IsConst bool
}

func LocalOperand(id LocalID) Operand { return Operand{Local: id} }
func ConstOperand(text string) Operand { return Operand{Const: text, IsConst: true} }

// ParseOperand reads "_N" as a local and anything else as a constant.
func ParseOperand(s string) Operand {
	s = strings.TrimSpace(s)
	if m := localRef.FindStringSubmatch(s); m != nil && m[0] == s {
		n, _ := strconv.Atoi(m[1])
		return LocalOperand(LocalID(n))
	}
	return ConstOperand(s)
}

func (o Operand) String() string {
	if o.IsConst {
		return o.Const
	}
	return o.Local.String()
}

// Terminator ends a block and transfers control.
type Terminator interface {
	// Successors lists the targets in arm order.
	Successors() []BlockID
	String() string
	terminator()
}

type (
	Goto struct {
		Target BlockID
	}

	// If is the boolean two-way form of a switch.
	If struct {
		Cond       Operand
		Then, Else BlockID
	}

	// SwitchInt is the integer multi-way form of a switch. Arms are disjoint by
	// value; Otherwise is taken when no arm matches.
	SwitchInt struct {
		Discr     Operand
		Ty        IntTy
		Arms      []Arm
		Otherwise BlockID
	}

	Arm struct {
		Value  Scalar
		Target BlockID
	}

	Return struct{}

	Abort struct {
		Kind AbortKind
		// Name of the divergent function for panics.
		Name string
	}
)

// AbortKind is the reason a procedure stops without returning.
type AbortKind int

const (
	UndefinedBehavior AbortKind = iota
	Panic
)

var abortKinds = []string{"undefined-behavior", "panic"}

func (k AbortKind) String() string {
	if int(k) < len(abortKinds) {
		return abortKinds[k]
	}
	return fmt.Sprintf("AbortKind(%d)", int(k))
}

func ParseAbortKind(s string) (AbortKind, bool) {
	for i, name := range abortKinds {
		if name == s {
			return AbortKind(i), true
		}
	}
	return 0, false
}

func (*Goto) terminator()      {}
func (*If) terminator()        {}
func (*SwitchInt) terminator() {}
func (*Return) terminator()    {}
func (*Abort) terminator()     {}

func (t *Goto) Successors() []BlockID { return []BlockID{t.Target} }
func (t *If) Successors() []BlockID   { return []BlockID{t.Then, t.Else} }
func (t *SwitchInt) Successors() []BlockID {
	ret := make([]BlockID, 0, len(t.Arms)+1)
	for _, arm := range t.Arms {
		ret = append(ret, arm.Target)
	}
	return append(ret, t.Otherwise)
}
func (*Return) Successors() []BlockID { return nil }
func (*Abort) Successors() []BlockID  { return nil }

func (t *Goto) String() string { return "goto " + t.Target.String() }
func (t *If) String() string {
	return fmt.Sprintf("if %s then %s else %s", t.Cond, t.Then, t.Else)
}
func (t *SwitchInt) String() string {
	arms := make([]string, 0, len(t.Arms)+1)
	for _, arm := range t.Arms {
		arms = append(arms, fmt.Sprintf("%s: %s", arm.Value, arm.Target))
	}
	arms = append(arms, "otherwise: "+t.Otherwise.String())
	return fmt.Sprintf("switch %s: %s [%s]", t.Discr, t.Ty, strings.Join(arms, ", "))
}
func (*Return) String() string { return "return" }
func (t *Abort) String() string {
	if t.Kind == Panic {
		return fmt.Sprintf("abort(panic %s)", t.Name)
	}
	return "abort(" + t.Kind.String() + ")"
}

// Operands returns the locals read by the terminator.
func Operands(t Terminator) []Operand {
	switch t := t.(type) {
	case *If:
		return []Operand{t.Cond}
	case *SwitchInt:
		return []Operand{t.Discr}
	}
	return nil
}
