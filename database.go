// Package pimdb file: database.go

package pimdb

import (
	"fmt"
	"slices"
)

// Store is the document-type independent view of a Collection.
type Store interface {
	Len() int
	IndexNames() []string
	Delete(id string) bool
}

// Database groups collections by name. It holds no index logic of its own.
type Database struct {
	collections map[string]Store
}

func NewDatabase() *Database {
	return &Database{collections: make(map[string]Store)}
}

// Register adds a collection under name.
func (db *Database) Register(name string, c Store) error {
	if name == "" || c == nil {
		return fmt.Errorf("%w: name %q", ErrInvalidCollection, name)
	}
	if _, ok := db.collections[name]; ok {
		return fmt.Errorf("%w: %q", ErrCollectionExists, name)
	}
	db.collections[name] = c
	return nil
}

func (db *Database) Collection(name string) (Store, bool) {
	c, ok := db.collections[name]
	return c, ok
}

// Drop forgets the collection registered under name.
func (db *Database) Drop(name string) bool {
	if _, ok := db.collections[name]; !ok {
		return false
	}
	delete(db.collections, name)
	return true
}

// Names returns the registered collection names in sorted order.
func (db *Database) Names() []string {
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the collection registered under name with its document
// type.
func Lookup[T Document](db *Database, name string) (*Collection[T], error) {
	s, ok := db.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	c, ok := s.(*Collection[T])
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %T", ErrCollectionType, name, s)
	}
	return c, nil
}
