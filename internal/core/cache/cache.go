// Package cache implements the generation-stamped frame cache. Within one
// generation a cacheable name is evaluated at most once; non-cacheable names
// are evaluated on every query.
package cache

import (
	"errors"
	"sort"

	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/observability/metrics"
	"github.com/zeusync/telemetry/internal/core/vars"
)

var ErrCycle = errors.New("variable depends on itself")

// Resolver maps a name to its evaluator. evaluator.Registry implements it.
type Resolver interface {
	Resolve(name string) (evaluator.Evaluator, bool)
}

type entry struct {
	eval      evaluator.Evaluator
	cacheable bool
	value     vars.Variant
	stamp     uint64
	settled   bool

	queries     uint64
	invocations uint64
}

// Cache is owned by one entity and used from its tick thread only.
type Cache struct {
	resolver   Resolver
	env        evaluator.Env
	logger     log.Log
	recorder   metrics.Recorder
	entries    map[string]*entry
	inflight   map[string]struct{}
	generation uint64
}

func New(resolver Resolver, env evaluator.Env, logger log.Log, recorder metrics.Recorder) *Cache {
	if logger == nil {
		logger = log.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Cache{
		resolver: resolver,
		env:      env,
		logger:   logger,
		recorder: recorder,
		entries:  make(map[string]*entry),
		inflight: make(map[string]struct{}),
	}
}

func (c *Cache) Generation() uint64 { return c.generation }

// Advance starts a new generation. Cached values stay in place and are
// revalidated lazily on their next query.
func (c *Cache) Advance() uint64 {
	c.generation++
	return c.generation
}

// Query returns the current value of name. Failures yield NaN, or the empty
// text when the evaluator or the entry's last value was text, and are
// retried on the next query.
func (c *Cache) Query(name string) vars.Variant {
	e, ok := c.entries[name]
	if !ok {
		ev, cacheable := c.resolver.Resolve(name)
		e = &entry{eval: ev, cacheable: cacheable}
		c.entries[name] = e
	}
	e.queries++

	if e.cacheable && e.settled && e.stamp == c.generation {
		c.recorder.CacheHit()
		return e.value
	}

	if _, busy := c.inflight[name]; busy {
		c.logger.Warn("Recursive variable reference", log.String("name", name), log.Error(ErrCycle))
		return sentinel(e)
	}
	c.inflight[name] = struct{}{}
	v, err := e.eval.Invoke(c.env)
	delete(c.inflight, name)

	kind := e.eval.Kind()
	c.recorder.Evaluation(kind.String(), err != nil)
	if err != nil {
		c.logger.Warn("Variable evaluation failed",
			log.String("name", name),
			log.Stringer("kind", kind),
			log.Error(err),
		)
		e.settled = false
		if v.IsText() {
			return vars.Text("")
		}
		return sentinel(e)
	}

	e.invocations++
	e.value = v
	e.stamp = c.generation
	e.settled = true
	return v
}

func sentinel(e *entry) vars.Variant {
	if e.value.IsText() || e.eval.Kind() == evaluator.KindLiteral {
		return vars.Text("")
	}
	return vars.NaN()
}

// DropTransient forgets plugin and literal entries so the next query
// resolves them again. Called when the set of sources changes.
func (c *Cache) DropTransient() int {
	n := 0
	for name, e := range c.entries {
		if e.eval.Kind() != evaluator.KindBuiltin {
			delete(c.entries, name)
			n++
		}
	}
	return n
}

// Invalidate marks every entry stale without forgetting its resolution.
func (c *Cache) Invalidate() {
	for _, e := range c.entries {
		e.settled = false
	}
}

func (c *Cache) Len() int { return len(c.entries) }

// Invocations reports how often the evaluator behind name completed
// successfully.
func (c *Cache) Invocations(name string) uint64 {
	if e, ok := c.entries[name]; ok {
		return e.invocations
	}
	return 0
}

// Kind reports how name was resolved, if it has been queried.
func (c *Cache) Kind(name string) (evaluator.Kind, bool) {
	e, ok := c.entries[name]
	if !ok {
		return 0, false
	}
	return e.eval.Kind(), true
}

type CallCount struct {
	Name  string
	Count uint64
}

// CallCounts returns the number of queries per name, least queried first.
func (c *Cache) CallCounts() []CallCount {
	out := make([]CallCount, 0, len(c.entries))
	for name, e := range c.entries {
		out = append(out, CallCount{Name: name, Count: e.queries})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
