package graph

import (
	"fmt"

	uf "github.com/spakin/disjoint"
)

// LCAQuery asks for the lowest common ancestor of A and B.
type LCAQuery[T any] struct {
	A, B T
}

type olcaState[T any] struct {
	G        Graph[T]
	elements Mapper[T]
	black    Mapper[T]
	pending  Mapper[T]
	answers  []T
	answered []bool
}

// TarjanOLCA answers all queries offline on the tree spanned by the edges of
// G from root. The edge relation must form a tree (every node reachable along
// exactly one path). Answers are returned in query order.
func (G Graph[T]) TarjanOLCA(root T, queries []LCAQuery[T]) []T {
	st := &olcaState[T]{
		G:        G,
		elements: G.mapFactory(),
		black:    G.mapFactory(),
		pending:  G.mapFactory(),
		answers:  make([]T, len(queries)),
		answered: make([]bool, len(queries)),
	}

	for i, q := range queries {
		st.addPending(q.A, i, q.B)
		st.addPending(q.B, i, q.A)
	}

	st.visit(root)

	for i, ok := range st.answered {
		if !ok {
			panic(fmt.Errorf("LCA query %v: node is not part of the tree rooted at %v", queries[i], root))
		}
	}
	return st.answers
}

type olcaPending[T any] struct {
	query int
	other T
}

func (st *olcaState[T]) addPending(node T, query int, other T) {
	var ps []olcaPending[T]
	if itf, found := st.pending.Get(node); found {
		ps = itf.([]olcaPending[T])
	}
	st.pending.Set(node, append(ps, olcaPending[T]{query, other}))
}

func (st *olcaState[T]) element(node T) *uf.Element {
	if el, found := st.elements.Get(node); found {
		return el.(*uf.Element)
	}
	el := uf.NewElement()
	st.elements.Set(node, el)
	return el
}

func (st *olcaState[T]) visit(u T) {
	uEl := st.element(u)
	uEl.Data = u
	for _, v := range st.G.Edges(u) {
		st.visit(v)
		uf.Union(uEl, st.element(v))
		// The representative holds the ancestor of the merged set.
		uEl.Find().Data = u
	}

	st.black.Set(u, true)
	if itf, found := st.pending.Get(u); found {
		for _, p := range itf.([]olcaPending[T]) {
			if _, isBlack := st.black.Get(p.other); isBlack && !st.answered[p.query] {
				st.answers[p.query] = st.element(p.other).Find().Data.(T)
				st.answered[p.query] = true
			}
		}
	}
}
