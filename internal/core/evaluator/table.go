package evaluator

import (
	"sort"
	"strings"
)

// PrefixResolver decides at resolve time whether a prefixed name is known.
// Unknown names fall through to the external sources.
type PrefixResolver func(name string) (fn Func, cacheable bool, ok bool)

type tableEntry struct {
	fn        Func
	cacheable bool
}

type prefixEntry struct {
	prefix  string
	resolve PrefixResolver
}

// Table is the builtin evaluator table. It is built once per session and
// shared read-only by every entity.
type Table struct {
	exact    map[string]tableEntry
	prefixes []prefixEntry
}

func NewTable() *Table {
	return &Table{exact: make(map[string]tableEntry)}
}

func (t *Table) Add(name string, cacheable bool, fn Func) {
	t.exact[name] = tableEntry{fn: fn, cacheable: cacheable}
}

// AddPrefix registers a resolver for every name starting with prefix.
// Longer prefixes are tried first.
func (t *Table) AddPrefix(prefix string, resolve PrefixResolver) {
	t.prefixes = append(t.prefixes, prefixEntry{prefix: prefix, resolve: resolve})
	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return len(t.prefixes[i].prefix) > len(t.prefixes[j].prefix)
	})
}

func (t *Table) Lookup(name string) (Func, bool, bool) {
	if e, ok := t.exact[name]; ok {
		return e.fn, e.cacheable, true
	}
	for _, p := range t.prefixes {
		if !strings.HasPrefix(name, p.prefix) {
			continue
		}
		if fn, cacheable, ok := p.resolve(name); ok {
			return fn, cacheable, true
		}
	}
	return nil, false, false
}

func (t *Table) Len() int { return len(t.exact) }
