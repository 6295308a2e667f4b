// Package pimdb file: sorted.go

package pimdb

import (
	"fmt"

	"github.com/google/btree"
)

type sortedItem[T Document] struct {
	key Key
	id  string
	doc T
}

func lessSorted[T Document](a, b sortedItem[T]) bool {
	if c := a.key.Compare(b.key); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

// SortedIndex keeps documents ordered by one scalar field, ties broken by
// ascending id, and answers exact and inclusive range queries.
//
// The order lives in a B-tree keyed by (value, id). A second map remembers
// the key each document was indexed under, so Update and Delete locate the
// old entry by id in O(log n) even after the document was mutated in place.
type SortedIndex[T Document] struct {
	field fieldSelector[T]
	tree  orderedTree[sortedItem[T]]
	byID  map[string]sortedItem[T]
}

// NewSortedIndex creates an index over the named field. For struct
// documents the field must be an exported string or number field, matched
// by Go name or json tag.
func NewSortedIndex[T Document](field string) (*SortedIndex[T], error) {
	sel, err := newFieldSelector[T](field)
	if err != nil {
		return nil, fmt.Errorf("sorted index: %w", err)
	}
	return &SortedIndex[T]{
		field: sel,
		tree:  newTree[sortedItem[T]](lessSorted[T]),
		byID:  make(map[string]sortedItem[T]),
	}, nil
}

// MustSortedIndex is like NewSortedIndex but panics on error.
func MustSortedIndex[T Document](field string) *SortedIndex[T] {
	idx, err := NewSortedIndex[T](field)
	if err != nil {
		panic(err)
	}
	return idx
}

func (s *SortedIndex[T]) Field() string {
	return s.field.name
}

// Insert reports false if the id is already indexed or the document has no
// scalar value for the field.
func (s *SortedIndex[T]) Insert(doc T) bool {
	id := doc.GetID()
	if _, ok := s.byID[id]; ok {
		return false
	}
	key, ok := s.field.key(doc)
	if !ok {
		return false
	}
	it := sortedItem[T]{key: key, id: id, doc: doc}
	s.tree.ReplaceOrInsert(it)
	s.byID[id] = it
	return true
}

// Update moves the document to the position of its current field value.
func (s *SortedIndex[T]) Update(doc T) bool {
	id := doc.GetID()
	old, ok := s.byID[id]
	if !ok {
		return false
	}
	key, ok := s.field.key(doc)
	if !ok {
		return false
	}
	s.tree.Delete(old)
	it := sortedItem[T]{key: key, id: id, doc: doc}
	s.tree.ReplaceOrInsert(it)
	s.byID[id] = it
	return true
}

func (s *SortedIndex[T]) Delete(doc T) bool {
	id := doc.GetID()
	old, ok := s.byID[id]
	if !ok {
		return false
	}
	s.tree.Delete(old)
	delete(s.byID, id)
	return true
}

func (s *SortedIndex[T]) accepts(doc T) bool {
	_, ok := s.field.key(doc)
	return ok
}

func (s *SortedIndex[T]) isNil() bool {
	return s == nil
}

// All returns every document in index order.
func (s *SortedIndex[T]) All() []T {
	return collect(s.tree.Ascend, itemDoc[T], nil)
}

// Find returns the documents whose field equals value, ordered by id. A nil
// value returns every document, like All.
func (s *SortedIndex[T]) Find(value any) []T {
	if value == nil {
		return s.All()
	}
	key, ok := KeyOf(value)
	if !ok {
		return []T{}
	}
	return collect(s.from(key), itemDoc[T], func(it sortedItem[T]) bool {
		return it.key.Compare(key) == 0
	})
}

// FindInRange returns the documents with GTE <= value <= LTE in index order.
// Values of the other kind never match a bound, so a single bound only
// yields values of its own kind. A zero Range returns every document. Bounds that are not scalars, that
// disagree in kind with each other or with a struct field's type are
// rejected.
func (s *SortedIndex[T]) FindInRange(r Range) ([]T, error) {
	lo, hi, hasLo, hasHi, err := r.bounds()
	if err != nil {
		return nil, err
	}
	if s.field.kind != KindInvalid {
		for _, b := range []struct {
			set bool
			key Key
		}{{hasLo, lo}, {hasHi, hi}} {
			if b.set && b.key.kind != s.field.kind {
				return nil, fmt.Errorf("%w: field %q holds a %s, bound is a %s", ErrMixedKinds, s.field.name, s.field.kind, b.key.kind)
			}
		}
	}

	walk := s.tree.Ascend
	switch {
	case hasLo:
		walk = s.from(lo)
	case hasHi:
		walk = s.from(kindStart(hi.kind))
	}
	var keep func(sortedItem[T]) bool
	switch {
	case hasHi:
		keep = func(it sortedItem[T]) bool {
			return it.key.Compare(hi) <= 0
		}
	case hasLo:
		keep = func(it sortedItem[T]) bool {
			return it.key.kind == lo.kind
		}
	}
	return collect(walk, itemDoc[T], keep), nil
}

// Min returns the first document in index order.
func (s *SortedIndex[T]) Min() (T, bool) {
	it, ok := s.tree.Min()
	return it.doc, ok
}

// Max returns the last document in index order.
func (s *SortedIndex[T]) Max() (T, bool) {
	it, ok := s.tree.Max()
	return it.doc, ok
}

func (s *SortedIndex[T]) Len() int {
	return s.tree.Len()
}

// from walks the tree starting at the first entry whose key is >= key. The
// empty id sorts before every other id, so the pivot precedes all entries
// sharing key.
func (s *SortedIndex[T]) from(key Key) func(btree.ItemIteratorG[sortedItem[T]]) {
	pivot := sortedItem[T]{key: key}
	return func(fn btree.ItemIteratorG[sortedItem[T]]) {
		s.tree.AscendGreaterOrEqual(pivot, fn)
	}
}

func itemDoc[T Document](it sortedItem[T]) T {
	return it.doc
}
