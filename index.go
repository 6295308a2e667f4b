// Package pimdb file: index.go
package pimdb

import "fmt"

// Index is the write contract every index of a Collection implements.
//
// Each method reports whether it applied the change; a false result leaves
// the index untouched.
type Index[T Document] interface {
	// Insert fails when a document with the same id is already indexed.
	Insert(doc T) bool
	// Update fails when no document with doc's id is indexed.
	Update(doc T) bool
	// Delete fails when no document with doc's id is indexed.
	Delete(doc T) bool
}

// Range bounds a SortedIndex query. Both bounds are inclusive and a nil
// bound is open.
type Range struct {
	GTE any
	LTE any
}

func (r Range) bounds() (lo, hi Key, hasLo, hasHi bool, err error) {
	if r.GTE != nil {
		if lo, hasLo = KeyOf(r.GTE); !hasLo {
			return lo, hi, false, false, fmt.Errorf("%w: gte %v (%T)", ErrInvalidBound, r.GTE, r.GTE)
		}
	}
	if r.LTE != nil {
		if hi, hasHi = KeyOf(r.LTE); !hasHi {
			return lo, hi, false, false, fmt.Errorf("%w: lte %v (%T)", ErrInvalidBound, r.LTE, r.LTE)
		}
	}
	if hasLo && hasHi && lo.kind != hi.kind {
		return lo, hi, false, false, fmt.Errorf("%w: gte is a %s, lte is a %s", ErrMixedKinds, lo.kind, hi.kind)
	}
	return lo, hi, hasLo, hasHi, nil
}
