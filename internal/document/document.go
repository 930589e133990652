// Package document provides an order-preserving YAML document model.
package document

import "fmt"

// Document is a mapping from string keys to values that remembers insertion
// order. Values are scalars (string, int, float64, bool, nil), nested
// *Document mappings, or []any sequences.
type Document struct {
	keys   []string
	values map[string]any
}

// New creates an empty document.
func New() *Document {
	return &Document{values: make(map[string]any)}
}

// FromPairs creates a document from alternating key/value arguments.
// It panics on an odd argument count or a non-string key; it is intended
// for literals in tests and fixtures.
func FromPairs(pairs ...any) *Document {
	if len(pairs)%2 != 0 {
		panic("document.FromPairs: odd number of arguments")
	}
	d := New()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("document.FromPairs: key %v is not a string", pairs[i]))
		}
		d.Set(key, pairs[i+1])
	}
	return d
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// String returns the value under key if it is a string scalar.
func (d *Document) String(key string) (string, bool) {
	v, ok := d.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Mapping returns the value under key if it is a nested document.
func (d *Document) Mapping(key string) (*Document, bool) {
	v, ok := d.values[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(*Document)
	return m, ok
}

// Sequence returns the value under key if it is a sequence.
func (d *Document) Sequence(key string) ([]any, bool) {
	v, ok := d.values[key]
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

// Set stores value under key, appending the key if it is new and keeping
// its original position if it already exists.
func (d *Document) Set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Delete removes key and its value. Removing an absent key is a no-op.
func (d *Document) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := New()
	for _, k := range d.keys {
		out.Set(k, cloneValue(d.values[k]))
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *Document:
		return val.Clone()
	case []any:
		seq := make([]any, len(val))
		for i, item := range val {
			seq[i] = cloneValue(item)
		}
		return seq
	default:
		return val
	}
}

// Equal reports deep equality including key order.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.keys) != len(other.keys) {
		return false
	}
	for i, k := range d.keys {
		if other.keys[i] != k {
			return false
		}
		if !valueEqual(d.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case *Document:
		bv, ok := b.(*Document)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
