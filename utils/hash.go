package utils

import (
	"github.com/benbjohnson/immutable"
)

// IntHasher hashes integer-like keys, including named integer types,
// which immutable's default hasher does not recognize.
type IntHasher[K ~int] struct{}

// Hash computes the uint32 hash of k.
func (IntHasher[K]) Hash(k K) uint32 {
	return immutable.NewHasher(int(k)).Hash(int(k))
}

// Equal checks that a and b are the same key.
func (IntHasher[K]) Equal(a, b K) bool { return a == b }

var _ immutable.Hasher[int] = IntHasher[int]{}

// NewIntMap creates an empty immutable map keyed by an integer-like type.
func NewIntMap[K ~int, V any]() *immutable.Map[K, V] {
	return immutable.NewMap[K, V](IntHasher[K]{})
}

// HashString hashes s with immutable's string hasher.
func HashString(s string) uint32 {
	return immutable.NewHasher(s).Hash(s)
}

// HashCombine uses the C++ boost algorithm for combining multiple hash values.
func HashCombine(hs ...uint32) (seed uint32) {
	for _, v := range hs {
		seed = v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}

	return
}
