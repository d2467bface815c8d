// Package entity holds the per-craft computer: frame cache, persistent
// store, subscriptions and join state of one live entity.
package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/cache"
	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/notify"
	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/observability/metrics"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/vars"
)

var ErrDestroyed = errors.New("entity destroyed")

// JoinState tracks the dock/undock protocol of one entity.
type JoinState uint8

const (
	JoinNone JoinState = iota
	JoinSplitPending
	JoinJoined
)

func (s JoinState) String() string {
	switch s {
	case JoinNone:
		return "none"
	case JoinSplitPending:
		return "split-pending"
	case JoinJoined:
		return "joined"
	default:
		return "unknown"
	}
}

type Options struct {
	Table     *evaluator.Table
	Source    datasource.Source
	Store     *persist.Store
	Tolerance float64
	Logger    log.Log
	Recorder  metrics.Recorder
}

// Computer answers variable queries for one entity. All methods must be
// called from the tick thread.
type Computer struct {
	id        uuid.UUID
	logger    log.Log
	source    datasource.Source
	readings  datasource.Readings
	registry  *evaluator.Registry
	cache     *cache.Cache
	store     *persist.Store
	notifier  *notify.Notifier
	join      JoinState
	destroyed bool
	flushed   uint64
}

func New(id uuid.UUID, opts Options) *Computer {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = persist.New()
	}
	c := &Computer{
		id:       id,
		logger:   logger.With(log.Stringer("entity", id)),
		source:   opts.Source,
		registry: evaluator.NewRegistry(opts.Table),
		store:    store,
		notifier: notify.New(opts.Tolerance, opts.Recorder),
	}
	c.cache = cache.New(c.registry, c, c.logger, opts.Recorder)
	c.flushed = store.Digest()
	return c
}

func (c *Computer) ID() uuid.UUID { return c.id }

func (c *Computer) Alive() bool { return !c.destroyed }

func (c *Computer) Generation() uint64 { return c.cache.Generation() }

func (c *Computer) Readings() datasource.Readings { return c.readings }

func (c *Computer) Persistent() *persist.Store { return c.store }

// Query returns the value of name for the current generation. Querying a
// destroyed computer is a programming error and panics.
func (c *Computer) Query(name string) vars.Variant {
	c.mustBeAlive()
	return c.cache.Query(name)
}

func (c *Computer) Subscribe(name string, cb notify.Callback) notify.Subscription {
	c.mustBeAlive()
	return c.notifier.Subscribe(name, cb)
}

func (c *Computer) Unsubscribe(sub notify.Subscription) bool {
	return c.notifier.Unsubscribe(sub)
}

// RegisterSource adds an external evaluator source. Names that previously
// fell back to the literal evaluator are resolved again.
func (c *Computer) RegisterSource(src evaluator.Source) {
	c.mustBeAlive()
	c.registry.AddSource(src)
	c.cache.DropTransient()
}

// Reresolve forgets plugin and literal cache entries so names defined after
// they were first queried resolve to their new definition.
func (c *Computer) Reresolve() int {
	c.mustBeAlive()
	return c.cache.DropTransient()
}

// Tick refreshes readings, starts a new generation and runs the
// subscription sweep. A failing data source keeps the previous readings.
func (c *Computer) Tick(ctx context.Context) (int, error) {
	if c.destroyed {
		return 0, fmt.Errorf("tick %s: %w", c.id, ErrDestroyed)
	}
	if c.source != nil {
		r, err := c.source.Fetch(ctx, c.id)
		if err != nil {
			c.logger.Warn("Failed to fetch readings", log.Error(err))
		} else {
			c.readings = r
		}
	}
	c.cache.Advance()
	return c.notifier.Sweep(c), nil
}

// Refresh discards transient cache entries and re-delivers every
// subscribed value on the next sweep.
func (c *Computer) Refresh() {
	c.cache.DropTransient()
	c.cache.Invalidate()
	c.notifier.Reset()
}

func (c *Computer) JoinState() JoinState { return c.join }

func (c *Computer) SetJoinState(s JoinState) {
	if c.join != s {
		c.logger.Debug("Join state changed",
			log.Stringer("from", c.join),
			log.Stringer("to", s),
		)
	}
	c.join = s
}

// Dirty returns the current store digest and whether it differs from the
// digest at load or last flush.
func (c *Computer) Dirty() (uint64, bool) {
	d := c.store.Digest()
	return d, d != c.flushed
}

func (c *Computer) MarkFlushed(digest uint64) { c.flushed = digest }

func (c *Computer) CallCounts() []cache.CallCount { return c.cache.CallCounts() }

func (c *Computer) Invocations(name string) uint64 { return c.cache.Invocations(name) }

func (c *Computer) Subscriptions() int { return c.notifier.Len() }

func (c *Computer) Destroy() {
	c.destroyed = true
}

func (c *Computer) mustBeAlive() {
	if c.destroyed {
		panic(fmt.Errorf("query %s: %w", c.id, ErrDestroyed))
	}
}
