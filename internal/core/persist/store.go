// Package persist implements the per-entity durable key/value store and the
// union merge run when two craft join.
package persist

import (
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// MissingInt is what IntOr callers conventionally pass when an absent key
// must be distinguishable from any stored setting.
const MissingInt = math.MaxInt32

// Store maps names to typed values. It is owned by one entity and is not
// safe for concurrent use.
type Store struct {
	values map[string]Value
}

func New() *Store {
	return &Store{values: make(map[string]Value)}
}

func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

func (s *Store) Set(name string, v Value) {
	s.values[name] = v
}

func (s *Store) Delete(name string) {
	delete(s.values, name)
}

func (s *Store) Len() int {
	return len(s.values)
}

// IntOr returns the integer stored under name, or fallback when the key is
// absent. Booleans read as 0/1 and floats are truncated.
func (s *Store) IntOr(name string, fallback int64) int64 {
	v, ok := s.values[name]
	if !ok {
		return fallback
	}
	switch v.tag {
	case TagBool:
		if v.b {
			return 1
		}
		return 0
	case TagInt:
		return v.i
	default:
		return int64(v.f)
	}
}

// Keys returns the stored names in lexical order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Clone() *Store {
	c := &Store{values: make(map[string]Value, len(s.values))}
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// Merge copies every key of other that s does not hold yet; keys already in
// s keep their value. Afterwards other holds a copy of the merged content, so
// both sides are identical. It returns the number of keys added to s.
// Merging an already merged pair adds nothing.
func (s *Store) Merge(other *Store) int {
	if other == nil || other == s {
		return 0
	}
	added := 0
	for k, v := range other.values {
		if _, ok := s.values[k]; !ok {
			s.values[k] = v
			added++
		}
	}
	other.values = s.Clone().values
	return added
}

// Equal reports whether both stores hold the same keys with the same values.
// NaN floats compare equal to each other; a nil store equals only nil.
func (s *Store) Equal(other *Store) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Digest is a content hash over the sorted records, used to skip writing
// stores that did not change since they were loaded or flushed.
func (s *Store) Digest() uint64 {
	h := xxhash.New()
	for _, k := range s.Keys() {
		v := s.values[k]
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(v.String())
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}
