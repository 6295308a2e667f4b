package pimdb

import "github.com/google/btree"

// treeDegree is the B-tree node degree used by every index.
const treeDegree = 16

// orderedTree is the part of btree.BTreeG the indexes rely on.
type orderedTree[T any] interface {
	ReplaceOrInsert(item T) (T, bool)
	Delete(item T) (T, bool)
	Len() int

	Ascend(fn btree.ItemIteratorG[T])
	AscendGreaterOrEqual(pivot T, fn btree.ItemIteratorG[T])

	Min() (T, bool)
	Max() (T, bool)
}

func newTree[T any](less btree.LessFunc[T]) orderedTree[T] {
	return btree.NewG(treeDegree, less)
}

// collect appends the documents yielded by a tree walk to a fresh slice.
// The walk stops as soon as keep returns false.
func collect[I any, T Document](walk func(btree.ItemIteratorG[I]), doc func(I) T, keep func(I) bool) []T {
	out := []T{}
	walk(func(it I) bool {
		if keep != nil && !keep(it) {
			return false
		}
		out = append(out, doc(it))
		return true
	})
	return out
}
