package evaluator

import (
	"errors"

	"github.com/zeusync/telemetry/internal/core/vars"
)

var ErrNotProvided = errors.New("variable not provided by source")

type mapEntry struct {
	cacheable bool
	fn        func() (vars.Variant, error)
}

// MapSource is a Source backed by a fixed set of named functions.
type MapSource struct {
	entries map[string]mapEntry
}

func NewMapSource() *MapSource {
	return &MapSource{entries: make(map[string]mapEntry)}
}

func (m *MapSource) Add(name string, cacheable bool, fn func() (vars.Variant, error)) *MapSource {
	m.entries[name] = mapEntry{cacheable: cacheable, fn: fn}
	return m
}

// Const registers a cacheable constant.
func (m *MapSource) Const(name string, v vars.Variant) *MapSource {
	return m.Add(name, true, func() (vars.Variant, error) { return v, nil })
}

func (m *MapSource) Lookup(name string) (bool, bool) {
	e, ok := m.entries[name]
	return e.cacheable, ok
}

func (m *MapSource) Evaluate(name string) (vars.Variant, error) {
	e, ok := m.entries[name]
	if !ok {
		return vars.NaN(), ErrNotProvided
	}
	return e.fn()
}
