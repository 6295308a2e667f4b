// Package pimdb file: collection.go

package pimdb

import (
	"fmt"
	"slices"
	"strings"
)

// Collection keeps one PrimaryIndex and any number of named secondary
// indexes consistent with each other.
//
// Every write first asks the secondary indexes of this package whether they
// can index the document, and is refused untouched if one cannot. It then
// goes to the primary index and to each secondary index in name order. When
// a secondary index still refuses the write, the ones
// already written and the primary are rolled back before the failure is
// reported, so callers never observe a partially applied write.
type Collection[T Document] struct {
	primary *PrimaryIndex[T]
	indexes map[string]Index[T]
	names   []string
}

// NewCollection creates a collection over primary and the named secondary
// indexes. The primary index is required.
func NewCollection[T Document](primary *PrimaryIndex[T], secondary map[string]Index[T]) (*Collection[T], error) {
	if primary == nil {
		return nil, ErrNoPrimaryIndex
	}
	c := &Collection[T]{
		primary: primary,
		indexes: make(map[string]Index[T], len(secondary)),
	}
	for name, idx := range secondary {
		if err := c.register(name, idx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustCollection is like NewCollection but panics on error.
func MustCollection[T Document](primary *PrimaryIndex[T], secondary map[string]Index[T]) *Collection[T] {
	c, err := NewCollection(primary, secondary)
	if err != nil {
		panic(err)
	}
	return c
}

// nilIndex is implemented by the index types of this package so a typed
// nil pointer stored in an Index is caught at registration.
type nilIndex interface {
	isNil() bool
}

// acceptor is implemented by indexes whose writes fail only when a document
// has no indexable value. The collection asks every acceptor before writing
// anything.
type acceptor[T Document] interface {
	accepts(doc T) bool
}

func (c *Collection[T]) check(name string, idx Index[T]) error {
	if name == "" {
		return fmt.Errorf("%w: empty index name", ErrInvalidIndex)
	}
	if idx == nil {
		return fmt.Errorf("%w: index %q is nil", ErrInvalidIndex, name)
	}
	if n, ok := idx.(nilIndex); ok && n.isNil() {
		return fmt.Errorf("%w: index %q is nil", ErrInvalidIndex, name)
	}
	if p, ok := idx.(*PrimaryIndex[T]); ok && p == c.primary {
		return fmt.Errorf("%w: index %q is the primary index", ErrInvalidIndex, name)
	}
	if _, ok := c.indexes[name]; ok {
		return fmt.Errorf("%w: index %q already exists", ErrInvalidIndex, name)
	}
	return nil
}

func (c *Collection[T]) register(name string, idx Index[T]) error {
	if err := c.check(name, idx); err != nil {
		return err
	}
	c.indexes[name] = idx
	pos, _ := slices.BinarySearch(c.names, name)
	c.names = slices.Insert(c.names, pos, name)
	return nil
}

// acceptable reports whether every secondary index that can tell in
// advance would take doc.
func (c *Collection[T]) acceptable(doc T) bool {
	for _, name := range c.names {
		if a, ok := c.indexes[name].(acceptor[T]); ok && !a.accepts(doc) {
			return false
		}
	}
	return true
}

// Insert adds doc to every index. It fails on an empty or duplicate id and
// when any secondary index refuses the document.
func (c *Collection[T]) Insert(doc T) bool {
	if doc.GetID() == "" || !c.acceptable(doc) {
		return false
	}
	if !c.primary.Insert(doc) {
		return false
	}
	for i, name := range c.names {
		if !c.indexes[name].Insert(doc) {
			for _, done := range c.names[:i] {
				c.indexes[done].Delete(doc)
			}
			c.primary.Delete(doc)
			return false
		}
	}
	return true
}

// Update applies doc's fields to the stored document and re-indexes it
// everywhere. It fails when the id is unknown or a secondary index refuses
// the new values, in which case the stored document keeps its old values.
func (c *Collection[T]) Update(doc T) bool {
	stored, ok := c.primary.Get(doc.GetID())
	if !ok || !c.acceptable(doc) {
		return false
	}
	before := snapshotDocument(stored)
	if !c.primary.Update(doc) {
		return false
	}
	current, _ := c.primary.Get(doc.GetID())
	for i, name := range c.names {
		if !c.indexes[name].Update(current) {
			c.primary.Update(before)
			restored, _ := c.primary.Get(doc.GetID())
			for _, done := range c.names[:i] {
				c.indexes[done].Update(restored)
			}
			return false
		}
	}
	return true
}

// Delete removes the document with the given id from every index.
func (c *Collection[T]) Delete(id string) bool {
	doc, ok := c.primary.Get(id)
	if !ok {
		return false
	}
	c.primary.Delete(doc)
	for _, name := range c.names {
		c.indexes[name].Delete(doc)
	}
	return true
}

// AddIndex registers a new secondary index and fills it with the documents
// already stored. If any document cannot be indexed the index is emptied
// again and not registered.
func (c *Collection[T]) AddIndex(name string, idx Index[T]) error {
	if err := c.check(name, idx); err != nil {
		return err
	}
	docs := c.primary.All()
	for i, doc := range docs {
		if !idx.Insert(doc) {
			for _, done := range docs[:i] {
				idx.Delete(done)
			}
			return fmt.Errorf("%w: index %q refused document %q", ErrInvalidIndex, name, doc.GetID())
		}
	}
	return c.register(name, idx)
}

// Get returns the document stored under id.
func (c *Collection[T]) Get(id string) (T, bool) {
	return c.primary.Get(id)
}

func (c *Collection[T]) Primary() *PrimaryIndex[T] {
	return c.primary
}

// Index returns the secondary index registered under name.
func (c *Collection[T]) Index(name string) (Index[T], bool) {
	idx, ok := c.indexes[name]
	return idx, ok
}

// IndexNames returns the secondary index names in sorted order.
func (c *Collection[T]) IndexNames() []string {
	return slices.Clone(c.names)
}

func (c *Collection[T]) Len() int {
	return c.primary.Len()
}

// String implements fmt.Stringer
func (c *Collection[T]) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, doc := range c.primary.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v", doc)
	}
	sb.WriteString("]")
	return sb.String()
}
