// Package interp executes control-flow graphs and structured trees under the
// same branch oracle, producing traces that can be compared for equality.
//
// Statements are not evaluated. Every branch asks the oracle which way to go,
// so two programs with the same control behavior ask the same questions in
// the same order.
package interp

import (
	"fmt"
	"math/rand"

	"github.com/cs-au-dk/restruct/analysis/cfg"
)

type Outcome int

const (
	Returned Outcome = iota
	Aborted
	// Diverged runs exceeded the step limit without producing an event.
	Diverged
	// Exhausted runs hit the event limit.
	Exhausted
	// Incomplete runs left a tree without reaching a terminal node.
	Incomplete
)

func (o Outcome) String() string {
	switch o {
	case Returned:
		return "returned"
	case Aborted:
		return "aborted"
	case Diverged:
		return "diverged"
	case Exhausted:
		return "exhausted"
	case Incomplete:
		return "incomplete"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Trace is the observable behavior of a run: executed statements and taken
// branches, in order, and how the run ended.
type Trace struct {
	Events    []string
	Outcome   Outcome
	AbortKind cfg.AbortKind
	AbortName string
}

func (t Trace) String() string {
	end := t.Outcome.String()
	if t.Outcome == Aborted {
		end = fmt.Sprintf("%s(%s %s)", end, t.AbortKind, t.AbortName)
	}
	return fmt.Sprintf("%d events, %s", len(t.Events), end)
}

// Limits bound a run.
type Limits struct {
	// Events is the maximal trace length.
	Events int
	// Steps bounds the number of blocks or nodes visited.
	Steps int
}

var DefaultLimits = Limits{Events: 200, Steps: 20000}

// Oracle decides branches.
type Oracle interface {
	// Choose picks one of n alternatives.
	Choose(n int) int
}

type seeded struct {
	rng *rand.Rand
}

// NewOracle returns a pseudo-random oracle. Equal seeds make equal choices.
func NewOracle(seed int64) Oracle {
	return seeded{rand.New(rand.NewSource(seed))}
}

func (o seeded) Choose(n int) int {
	return o.rng.Intn(n)
}

// recorder accumulates a trace and enforces the limits.
type recorder struct {
	lim   Limits
	trace Trace
	steps int
}

// stop ends a run early.
type stop struct {
	outcome Outcome
}

func (r *recorder) event(format string, args ...any) {
	if len(r.trace.Events) >= r.lim.Events {
		panic(stop{Exhausted})
	}
	r.trace.Events = append(r.trace.Events, fmt.Sprintf(format, args...))
}

func (r *recorder) step() {
	if r.steps++; r.steps > r.lim.Steps {
		panic(stop{Diverged})
	}
}

// run calls body and turns early stops into trace outcomes.
func (r *recorder) run(body func()) Trace {
	func() {
		defer func() {
			if p := recover(); p != nil {
				s, ok := p.(stop)
				if !ok {
					panic(p)
				}
				r.trace.Outcome = s.outcome
			}
		}()
		body()
	}()
	return r.trace
}

func (r *recorder) abort(kind cfg.AbortKind, name string) {
	r.trace.Outcome = Aborted
	r.trace.AbortKind = kind
	r.trace.AbortName = name
}

func (r *recorder) branchIf(o Oracle, cond cfg.Operand) bool {
	taken := o.Choose(2) == 0
	r.event("if %s = %t", cond, taken)
	return taken
}

// branchSwitch picks among the sorted values and the default. It returns the
// picked value, or false for the default.
func (r *recorder) branchSwitch(o Oracle, discr cfg.Operand, values []cfg.Scalar) (cfg.Scalar, bool) {
	i := o.Choose(len(values) + 1)
	if i == len(values) {
		r.event("switch %s = otherwise", discr)
		return cfg.Scalar{}, false
	}
	r.event("switch %s = %s", discr, values[i])
	return values[i], true
}
