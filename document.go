// Package pimdb file: document.go

// Package pimdb is an embedded, in-memory multi-index document store.
//
// A Collection owns one PrimaryIndex and any number of secondary indexes
// (SortedIndex, SubstringIndex) and keeps all of them consistent across
// insert, update and delete. Reads go straight to the index the caller wants.
//
// Indexes hold references to the caller's documents, never copies: a
// document mutated through an update is observed by every index and by every
// caller holding a previous query result. The store is not safe for
// concurrent mutation.
package pimdb

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNoPrimaryIndex    = errors.New("pimdb: primary index not found")
	ErrInvalidIndex      = errors.New("pimdb: invalid index")
	ErrInvalidField      = errors.New("pimdb: invalid index field")
	ErrInvalidBound      = errors.New("pimdb: range bound is not a scalar")
	ErrMixedKinds        = errors.New("pimdb: mixed value kinds")
	ErrInvalidCollection = errors.New("pimdb: invalid collection")
	ErrUnknownCollection = errors.New("pimdb: unknown collection")
	ErrCollectionExists  = errors.New("pimdb: collection already registered")
	ErrCollectionType    = errors.New("pimdb: collection has a different document type")
)

// Document is anything stored in a collection.
type Document interface {
	// GetID returns the primary key. It must not change once the document
	// was inserted.
	GetID() string
}

// BaseDocument provides the primary key field for struct documents.
type BaseDocument struct {
	ID string `json:"id" yaml:"id"`
}

func (b *BaseDocument) GetID() string {
	return b.ID
}

// Record is a schemaless document keyed by field name. Its primary key is
// the string stored under "id".
type Record map[string]any

func (r Record) GetID() string {
	id, _ := r["id"].(string)
	return id
}

// NewID returns a random identifier suitable as a primary key.
func NewID() string {
	return uuid.NewString()
}
