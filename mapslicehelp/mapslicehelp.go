package mapslicehelp

import (
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/constraints"
)

// OrderedMapValues returns the values in insertion order of their keys.
// A key that was set more than once keeps its first position and its last value.
func OrderedMapValues[K comparable, V any](m *orderedmap.OrderedMap[K, V]) []V {
	l := make([]V, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		l = append(l, p.Value)
	}
	return l
}

func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GroupBy splits elements into groups sharing the same key, ordered by ascending key.
// The relative order of elements inside a group is kept.
func GroupBy[T any, K constraints.Ordered](elements []T, key func(T) K) [][]T {
	groups := make(map[K][]T)
	for _, e := range elements {
		k := key(e)
		groups[k] = append(groups[k], e)
	}
	result := make([][]T, 0, len(groups))
	for _, k := range SortedKeys(groups) {
		result = append(result, groups[k])
	}
	return result
}
