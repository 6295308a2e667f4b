// Package pimdb file: substring.go

package pimdb

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// gramSize is the longest n-gram kept in the inverted index. Queries up to
// this many runes are answered by a single posting lookup.
const gramSize = 3

type substringEntry[T Document] struct {
	seq  uint64
	id   string
	doc  T
	text string // case folded field value
}

type posting[T Document] map[*substringEntry[T]]struct{}

// SubstringIndex answers case-insensitive substring queries over one field.
//
// Every distinct 1, 2 and 3 rune gram of the folded value maps to the
// entries containing it. Longer queries intersect the postings of their
// trigrams, starting from the smallest, and confirm the survivors with a
// plain substring check. Results come back in insertion order, kept in a
// B-tree keyed by a sequence number that Update does not change.
type SubstringIndex[T Document] struct {
	field   fieldSelector[T]
	fold    cases.Caser
	entries map[string]*substringEntry[T]
	order   orderedTree[*substringEntry[T]]
	grams   map[string]posting[T]
	seq     uint64
}

// NewSubstringIndex creates an index over the named string or number
// field. Numbers are searched through their decimal text.
func NewSubstringIndex[T Document](field string) (*SubstringIndex[T], error) {
	sel, err := newFieldSelector[T](field)
	if err != nil {
		return nil, fmt.Errorf("substring index: %w", err)
	}
	return &SubstringIndex[T]{
		field:   sel,
		fold:    cases.Fold(),
		entries: make(map[string]*substringEntry[T]),
		order: newTree[*substringEntry[T]](func(a, b *substringEntry[T]) bool {
			return a.seq < b.seq
		}),
		grams: make(map[string]posting[T]),
	}, nil
}

// MustSubstringIndex is like NewSubstringIndex but panics on error.
func MustSubstringIndex[T Document](field string) *SubstringIndex[T] {
	idx, err := NewSubstringIndex[T](field)
	if err != nil {
		panic(err)
	}
	return idx
}

func (s *SubstringIndex[T]) Field() string {
	return s.field.name
}

// Insert reports false if the id is already indexed or the document has no
// scalar value for the field.
func (s *SubstringIndex[T]) Insert(doc T) bool {
	id := doc.GetID()
	if _, ok := s.entries[id]; ok {
		return false
	}
	text, ok := s.text(doc)
	if !ok {
		return false
	}
	s.seq++
	e := &substringEntry[T]{seq: s.seq, id: id, doc: doc, text: text}
	s.entries[id] = e
	s.order.ReplaceOrInsert(e)
	s.link(e)
	return true
}

// Update re-registers the document under its current field value. Its
// position in insertion order is kept.
func (s *SubstringIndex[T]) Update(doc T) bool {
	e, ok := s.entries[doc.GetID()]
	if !ok {
		return false
	}
	text, ok := s.text(doc)
	if !ok {
		return false
	}
	s.unlink(e)
	e.doc = doc
	e.text = text
	s.link(e)
	return true
}

func (s *SubstringIndex[T]) Delete(doc T) bool {
	id := doc.GetID()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.unlink(e)
	s.order.Delete(e)
	delete(s.entries, id)
	return true
}

// Search returns the documents whose field contains query, ignoring case,
// in insertion order. An empty query matches every document.
func (s *SubstringIndex[T]) Search(query string) []T {
	q := s.fold.String(query)
	if q == "" {
		return s.All()
	}

	var matches []*substringEntry[T]
	if utf8.RuneCountInString(q) <= gramSize {
		for e := range s.grams[q] {
			matches = append(matches, e)
		}
	} else {
		lists := make([]posting[T], 0, len(q))
		for _, g := range windows(q, gramSize) {
			p, ok := s.grams[g]
			if !ok {
				return []T{}
			}
			lists = append(lists, p)
		}
		slices.SortFunc(lists, func(a, b posting[T]) int {
			return cmp.Compare(len(a), len(b))
		})
	candidates:
		for e := range lists[0] {
			for _, p := range lists[1:] {
				if _, ok := p[e]; !ok {
					continue candidates
				}
			}
			if strings.Contains(e.text, q) {
				matches = append(matches, e)
			}
		}
	}

	slices.SortFunc(matches, func(a, b *substringEntry[T]) int {
		return cmp.Compare(a.seq, b.seq)
	})
	out := make([]T, len(matches))
	for i, e := range matches {
		out[i] = e.doc
	}
	return out
}

// All returns every document in insertion order.
func (s *SubstringIndex[T]) All() []T {
	return collect(s.order.Ascend, func(e *substringEntry[T]) T { return e.doc }, nil)
}

func (s *SubstringIndex[T]) Len() int {
	return len(s.entries)
}

func (s *SubstringIndex[T]) accepts(doc T) bool {
	_, ok := s.field.key(doc)
	return ok
}

func (s *SubstringIndex[T]) isNil() bool {
	return s == nil
}

func (s *SubstringIndex[T]) text(doc T) (string, bool) {
	key, ok := s.field.key(doc)
	if !ok {
		return "", false
	}
	return s.fold.String(key.String()), true
}

func (s *SubstringIndex[T]) link(e *substringEntry[T]) {
	for _, g := range ngrams(e.text, gramSize) {
		p, ok := s.grams[g]
		if !ok {
			p = make(posting[T])
			s.grams[g] = p
		}
		p[e] = struct{}{}
	}
}

func (s *SubstringIndex[T]) unlink(e *substringEntry[T]) {
	for _, g := range ngrams(e.text, gramSize) {
		p := s.grams[g]
		delete(p, e)
		if len(p) == 0 {
			delete(s.grams, g)
		}
	}
}

// runeBounds returns the byte offset of every rune in text followed by
// len(text).
func runeBounds(text string) []int {
	bounds := make([]int, 0, len(text)+1)
	for i := range text {
		bounds = append(bounds, i)
	}
	return append(bounds, len(text))
}

// ngrams returns the distinct substrings of text that are 1 to n runes long.
func ngrams(text string, n int) []string {
	bounds := runeBounds(text)
	runes := len(bounds) - 1
	seen := make(map[string]struct{}, runes*n)
	out := make([]string, 0, runes*n)
	for i := 0; i < runes; i++ {
		for l := 1; l <= n && i+l <= runes; l++ {
			g := text[bounds[i]:bounds[i+l]]
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}

// windows returns every substring of text that is exactly n runes long.
func windows(text string, n int) []string {
	bounds := runeBounds(text)
	runes := len(bounds) - 1
	if runes < n {
		return nil
	}
	out := make([]string, 0, runes-n+1)
	for i := 0; i+n <= runes; i++ {
		out = append(out, text[bounds[i]:bounds[i+n]])
	}
	return out
}
