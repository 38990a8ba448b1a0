package graph

import "fmt"

// Source: https://www.cs.rice.edu/~keith/EMBED/dom.pdf

// DomTree is the dominator tree of the subgraph reachable from a root.
// Nodes are internally identified by their DFS post-order number, which makes
// the root the node with the highest number and every immediate dominator
// numbered higher than the nodes it dominates.
type DomTree[T any] struct {
	order    []T
	postTime Mapper[T]
	preTime  []int
	doms     []int
	children [][]int
}

func (G Graph[T]) DominatorTree(root T) DomTree[T] {
	postorderTime := G.mapFactory()
	pred := G.mapFactory()

	// Compute DFS post-order ordering
	time, preCounter := 0, 0
	order := []T{}
	pre := []int{}
	preOf := G.mapFactory()

	var dfs func(T)
	dfs = func(node T) {
		if _, seen := postorderTime.Get(node); seen {
			return
		}

		postorderTime.Set(node, -1)
		preOf.Set(node, preCounter)
		preCounter++

		for _, e := range G.Edges(node) {
			var preds []T
			if predsItf, found := pred.Get(e); found {
				preds = predsItf.([]T)
			}

			pred.Set(e, append(preds, node))

			dfs(e)
		}

		postorderTime.Set(node, time)
		order = append(order, node)
		p, _ := preOf.Get(node)
		pre = append(pre, p.(int))
		time++
	}

	dfs(root)

	// Initialize doms to "Undefined"
	doms := make([]int, time)
	for i := 0; i < time; i++ {
		doms[i] = -1
	}
	doms[time-1] = time - 1

	intersect := func(a, b int) int {
		for a != b {
			if a < b {
				a = doms[a]
			} else {
				b = doms[b]
			}
		}
		return a
	}

	for {
		changed := false

		// Process nodes in reverse post-order (except for root)
		for i := time - 2; i >= 0; i-- {
			node := order[i]

			newIdom := -1
			predsItf, _ := pred.Get(node)

			for _, predecessor := range predsItf.([]T) {
				jItf, _ := postorderTime.Get(predecessor)
				j := jItf.(int)

				if doms[j] != -1 {
					if newIdom == -1 {
						newIdom = j
					} else {
						newIdom = intersect(j, newIdom)
					}
				}
			}

			if newIdom != doms[i] {
				doms[i] = newIdom
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	children := make([][]int, time)
	// Iterating in reverse post-order leaves children sorted by RPO.
	for i := time - 2; i >= 0; i-- {
		children[doms[i]] = append(children[doms[i]], i)
	}

	return DomTree[T]{
		order:    order,
		postTime: postorderTime,
		preTime:  pre,
		doms:     doms,
		children: children,
	}
}

func (D DomTree[T]) index(node T) int {
	iItf, found := D.postTime.Get(node)
	if !found {
		panic(fmt.Errorf("%v was not reachable when computing the dominator tree", node))
	}
	return iItf.(int)
}

func (D DomTree[T]) intersect(a, b int) int {
	for a != b {
		if a < b {
			a = D.doms[a]
		} else {
			b = D.doms[b]
		}
	}
	return a
}

// Root is the node the tree was computed from.
func (D DomTree[T]) Root() T {
	return D.order[len(D.order)-1]
}

// Size is the number of reachable nodes.
func (D DomTree[T]) Size() int {
	return len(D.order)
}

func (D DomTree[T]) Reachable(node T) bool {
	_, found := D.postTime.Get(node)
	return found
}

// Idom returns the immediate dominator of node. The root has none.
func (D DomTree[T]) Idom(node T) (idom T, ok bool) {
	i := D.index(node)
	if i == len(D.order)-1 {
		return idom, false
	}
	return D.order[D.doms[i]], true
}

// Dominates reports whether a dominates b. Every node dominates itself.
func (D DomTree[T]) Dominates(a, b T) bool {
	ia, ib := D.index(a), D.index(b)
	for ib < ia {
		ib = D.doms[ib]
	}
	return ia == ib
}

// Children returns the nodes immediately dominated by node in reverse post-order.
func (D DomTree[T]) Children(node T) []T {
	cs := D.children[D.index(node)]
	ret := make([]T, len(cs))
	for i, c := range cs {
		ret[i] = D.order[c]
	}
	return ret
}

// NCA returns the nearest common dominator of the given nodes.
func (D DomTree[T]) NCA(nodes ...T) T {
	if len(nodes) == 0 {
		panic("Empty list of nodes for dominator computation")
	}

	dom := -1
	for _, node := range nodes {
		i := D.index(node)
		if dom == -1 {
			dom = i
		} else {
			dom = D.intersect(i, dom)
		}
	}

	return D.order[dom]
}

// RPONumber is the position of node in reverse post-order. The root is 0.
func (D DomTree[T]) RPONumber(node T) int {
	return len(D.order) - 1 - D.index(node)
}

// ReversePostOrder lists the reachable nodes in reverse DFS post-order.
func (D DomTree[T]) ReversePostOrder() []T {
	ret := make([]T, len(D.order))
	for i, node := range D.order {
		ret[len(D.order)-1-i] = node
	}
	return ret
}

// Retreating reports whether the edge from -> to goes to an ancestor of from
// in the DFS tree used to build the dominator tree (self loops included).
func (D DomTree[T]) Retreating(from, to T) bool {
	f, t := D.index(from), D.index(to)
	return D.preTime[t] <= D.preTime[f] && t >= f
}
