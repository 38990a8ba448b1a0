package graph

/*
	This package exposes utilities for working with graph structures.

	Control-flow graphs, dominator trees and post-dominator trees over
	reduced regions all need the same handful of algorithms. The goal of
	this package is to provide easy access to them on any data that has a
	graph representation, by only requiring the caller to provide a function
	describing the edge relation (and a key-value map factory for the node type).
*/

type Mapper[K any] interface {
	Get(key K) (any, bool)
	Set(key K, value any)
}

type mapFactory[K any] func() Mapper[K]
type edgesOf[T any] func(node T) []T

type Graph[T any] struct {
	mapFactory  mapFactory[T]
	edgesOf     edgesOf[T]
	cachedEdges Mapper[T]
}

// Edges returns the successors of node. Results are cached, so the edge
// function is called at most once per node.
func (G Graph[T]) Edges(node T) []T {
	if cached, found := G.cachedEdges.Get(node); found {
		return cached.([]T)
	}

	es := G.edgesOf(node)
	G.cachedEdges.Set(node, es)
	return es
}

func Of[T any](mapFactory mapFactory[T], edgesOf edgesOf[T]) Graph[T] {
	return Graph[T]{
		mapFactory,
		edgesOf,
		mapFactory(),
	}
}

// Mapper implementation using Go's builtin maps
type mapMapper[K comparable] map[K]any

func (m mapMapper[K]) Get(key K) (any, bool) {
	value, ok := m[key]
	return value, ok
}

func (m mapMapper[K]) Set(key K, value any) {
	m[key] = value
}

func OfHashable[K comparable](edgesOf edgesOf[K]) Graph[K] {
	return Of(func() Mapper[K] { return mapMapper[K]{} }, edgesOf)
}

// Reverse returns the transposed graph restricted to the given nodes.
// Predecessor lists are ordered by the position of the source in nodes,
// so the result is deterministic when nodes is.
func (G Graph[T]) Reverse(nodes []T) Graph[T] {
	inSet := G.mapFactory()
	for _, node := range nodes {
		inSet.Set(node, true)
	}

	preds := G.mapFactory()
	for _, node := range nodes {
		for _, succ := range G.Edges(node) {
			if _, ok := inSet.Get(succ); !ok {
				continue
			}
			var ps []T
			if itf, found := preds.Get(succ); found {
				ps = itf.([]T)
			}
			preds.Set(succ, append(ps, node))
		}
	}

	return Of(G.mapFactory, func(node T) []T {
		if itf, found := preds.Get(node); found {
			return itf.([]T)
		}
		return nil
	})
}
