// Package pimdb file: field.go

package pimdb

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind classifies the scalar values an index can hold.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "invalid"
}

// Key is a normalized scalar field value.
//
// Keys are totally ordered: numbers sort before strings, numbers compare by
// value regardless of their Go type and strings compare bytewise.
type Key struct {
	kind  Kind
	str   string
	i     int64
	f     float64
	exact bool // value held in i
}

// KeyOf converts a scalar Go value into a Key. It reports false for nil and
// for anything that is not a string, integer or float.
func KeyOf(v any) (Key, bool) {
	switch x := v.(type) {
	case nil:
		return Key{}, false
	case Key:
		return x, x.kind != KindInvalid
	case string:
		return Key{kind: KindString, str: x}, true
	case int:
		return Key{kind: KindNumber, i: int64(x), exact: true}, true
	case int64:
		return Key{kind: KindNumber, i: x, exact: true}, true
	case float64:
		return Key{kind: KindNumber, f: x}, true
	}
	return keyOfValue(reflect.ValueOf(v))
}

func keyOfValue(rv reflect.Value) (Key, bool) {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Key{}, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Key{}, false
	}
	switch rv.Kind() {
	case reflect.String:
		return Key{kind: KindString, str: rv.String()}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Key{kind: KindNumber, i: rv.Int(), exact: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return Key{kind: KindNumber, i: int64(u), exact: true}, true
		}
		return Key{kind: KindNumber, f: float64(u)}, true
	case reflect.Float32, reflect.Float64:
		return Key{kind: KindNumber, f: rv.Float()}, true
	}
	return Key{}, false
}

func (k Key) Kind() Kind {
	return k.kind
}

// Compare returns -1, 0 or +1 depending on whether k sorts before, equal to
// or after o.
func (k Key) Compare(o Key) int {
	if k.kind != o.kind {
		return cmp.Compare(k.kind, o.kind)
	}
	if k.kind == KindString {
		return strings.Compare(k.str, o.str)
	}
	switch {
	case k.exact && o.exact:
		return cmp.Compare(k.i, o.i)
	case k.exact:
		return compareIntFloat(k.i, o.f)
	case o.exact:
		return -compareIntFloat(o.i, k.f)
	}
	return cmp.Compare(k.f, o.f)
}

// compareIntFloat compares i and f without rounding i to a float64. NaN
// sorts before every number, as in cmp.Compare.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= 1<<63:
		return -1
	case f < -(1 << 63):
		return 1
	}
	whole, frac := math.Modf(f)
	if c := cmp.Compare(i, int64(whole)); c != 0 {
		return c
	}
	return cmp.Compare(0, frac)
}

// kindStart returns the first key of kind that a range bound can match.
// Only NaN sorts below it.
func kindStart(kind Kind) Key {
	if kind == KindNumber {
		return Key{kind: KindNumber, f: math.Inf(-1)}
	}
	return Key{kind: kind}
}

// String returns the text a substring index searches for this value.
func (k Key) String() string {
	switch k.kind {
	case KindString:
		return k.str
	case KindNumber:
		if k.exact {
			return strconv.FormatInt(k.i, 10)
		}
		return strconv.FormatFloat(k.f, 'f', -1, 64)
	}
	return ""
}

// fieldSelector extracts the Key of one named field from documents of type T.
//
// For struct documents the field is resolved once, at construction. Maps and
// interface-typed documents are resolved per document.
type fieldSelector[T Document] struct {
	name  string
	kind  Kind  // KindInvalid unless fixed by a struct field type
	index []int // struct field path, nil for per-document lookup
	ptr   bool
}

func newFieldSelector[T Document](name string) (fieldSelector[T], error) {
	sel := fieldSelector[T]{name: name}
	if name == "" {
		return sel, fmt.Errorf("%w: empty field name", ErrInvalidField)
	}
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		sel.ptr = true
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		sf, ok := structField(t, name)
		if !ok {
			return sel, fmt.Errorf("%w: %s has no field %q", ErrInvalidField, t, name)
		}
		if !sf.IsExported() {
			return sel, fmt.Errorf("%w: field %q of %s is not exported", ErrInvalidField, name, t)
		}
		sel.kind = scalarKind(sf.Type)
		if sel.kind == KindInvalid {
			return sel, fmt.Errorf("%w: field %q of %s has type %s, want a string or a number", ErrInvalidField, name, t, sf.Type)
		}
		sel.index = sf.Index
	case reflect.Map:
		if sel.ptr || t.Key().Kind() != reflect.String {
			return sel, fmt.Errorf("%w: %s documents must be maps keyed by string", ErrInvalidField, reflect.TypeFor[T]())
		}
	case reflect.Interface:
		if sel.ptr {
			return sel, fmt.Errorf("%w: pointer to interface %s", ErrInvalidField, t)
		}
	default:
		return sel, fmt.Errorf("%w: %s documents have no fields", ErrInvalidField, reflect.TypeFor[T]())
	}
	return sel, nil
}

// key reports false when the document has no indexable value for the field.
func (s fieldSelector[T]) key(doc T) (Key, bool) {
	rv := reflect.ValueOf(doc)
	if s.index == nil {
		return lookupKey(rv, s.name)
	}
	if s.ptr {
		if rv.IsNil() {
			return Key{}, false
		}
		rv = rv.Elem()
	}
	fv, err := rv.FieldByIndexErr(s.index)
	if err != nil {
		return Key{}, false
	}
	return keyOfValue(fv)
}

func lookupKey(rv reflect.Value, name string) (Key, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return Key{}, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Key{}, false
	}
	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		if kt.Kind() != reflect.String {
			return Key{}, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(kt))
		if !v.IsValid() {
			return Key{}, false
		}
		return keyOfValue(v)
	case reflect.Struct:
		sf, ok := structField(rv.Type(), name)
		if !ok || !sf.IsExported() {
			return Key{}, false
		}
		fv, err := rv.FieldByIndexErr(sf.Index)
		if err != nil {
			return Key{}, false
		}
		return keyOfValue(fv)
	}
	return Key{}, false
}

// structField finds a field by Go name first, then by json tag name.
func structField(t reflect.Type, name string) (reflect.StructField, bool) {
	if sf, ok := t.FieldByName(name); ok {
		return sf, true
	}
	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == name {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

func scalarKind(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return KindNumber
	}
	return KindInvalid
}
