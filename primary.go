// Package pimdb file: primary.go

package pimdb

import (
	"reflect"
	"slices"
	"strings"
)

// PrimaryIndex is the unique id index of a collection.
//
// Writes keep the references they are given. Update copies the fields of the
// passed document into the stored instance, so every other holder of that
// instance observes the change. Reads return fresh slices of references.
type PrimaryIndex[T Document] struct {
	docs map[string]T
}

func NewPrimaryIndex[T Document]() *PrimaryIndex[T] {
	return &PrimaryIndex[T]{docs: make(map[string]T)}
}

// Insert reports false if a document with the same id is already stored.
func (p *PrimaryIndex[T]) Insert(doc T) bool {
	id := doc.GetID()
	if _, ok := p.docs[id]; ok {
		return false
	}
	p.docs[id] = doc
	return true
}

// Update synchronizes the stored document with doc. It reports false if the
// id is unknown.
func (p *PrimaryIndex[T]) Update(doc T) bool {
	id := doc.GetID()
	stored, ok := p.docs[id]
	if !ok {
		return false
	}
	if !syncDocument(stored, doc) {
		p.docs[id] = doc
	}
	return true
}

// Delete reports false if the id is unknown.
func (p *PrimaryIndex[T]) Delete(doc T) bool {
	id := doc.GetID()
	if _, ok := p.docs[id]; !ok {
		return false
	}
	delete(p.docs, id)
	return true
}

func (p *PrimaryIndex[T]) Get(id string) (T, bool) {
	doc, ok := p.docs[id]
	return doc, ok
}

// All returns every stored document ordered by id.
func (p *PrimaryIndex[T]) All() []T {
	out := make([]T, 0, len(p.docs))
	for _, doc := range p.docs {
		out = append(out, doc)
	}
	slices.SortFunc(out, func(a, b T) int {
		return strings.Compare(a.GetID(), b.GetID())
	})
	return out
}

func (p *PrimaryIndex[T]) Len() int {
	return len(p.docs)
}

func (p *PrimaryIndex[T]) isNil() bool {
	return p == nil
}

// syncDocument writes the state of src into dst in place. It reports false
// when T has no shared instance to write through (value types), in which
// case the caller has to store src instead.
func syncDocument[T any](dst, src T) bool {
	dv, sv := reflect.ValueOf(dst), reflect.ValueOf(src)
	if !dv.IsValid() || !sv.IsValid() || dv.Type() != sv.Type() {
		return false
	}
	switch dv.Kind() {
	case reflect.Pointer:
		if dv.IsNil() || sv.IsNil() {
			return false
		}
		if dv.Pointer() != sv.Pointer() {
			dv.Elem().Set(sv.Elem())
		}
		return true
	case reflect.Map:
		if dv.IsNil() || sv.IsNil() {
			return false
		}
		if dv.Pointer() != sv.Pointer() {
			dv.Clear()
			iter := sv.MapRange()
			for iter.Next() {
				dv.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		return true
	}
	return false
}

// snapshotDocument returns a shallow copy of doc that syncDocument can later
// write back into the original instance.
func snapshotDocument[T any](doc T) T {
	v := reflect.ValueOf(doc)
	if !v.IsValid() {
		return doc
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return doc
		}
		cp := reflect.New(v.Elem().Type())
		cp.Elem().Set(v.Elem())
		return cp.Convert(v.Type()).Interface().(T)
	case reflect.Map:
		if v.IsNil() {
			return doc
		}
		cp := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface().(T)
	}
	return doc
}
