// Package engine is the host-facing API of the telemetry core. The host
// reports entity lifecycle, ticks and join/split events; consumers query
// variables and subscribe to changes. Everything runs on the host's tick
// thread.
package engine

import (
	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/entity"
	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/notify"
	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/observability/metrics"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/registry"
	"github.com/zeusync/telemetry/internal/core/storage"
	"github.com/zeusync/telemetry/internal/core/vars"
)

var (
	ErrUnknownEntity   = registry.ErrUnknownEntity
	ErrDuplicateEntity = registry.ErrDuplicateEntity
)

type Engine struct {
	cfg      Config
	logger   log.Log
	recorder metrics.Recorder
	storage  storage.Storage
	source   datasource.Source

	// Session state. The table is built when the first entity is observed
	// and released by EndSession.
	catalog  *evaluator.Catalog
	table    *evaluator.Table
	entities *registry.Registry

	active    uuid.UUID
	refresh   int
	countdown int
	due       bool
}

// New creates an engine. store and recorder may be nil: persistent values
// then live only as long as their entity, and metrics are discarded.
func New(cfg Config, source datasource.Source, store storage.Storage, logger log.Log, recorder metrics.Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Engine{
		cfg:       cfg,
		logger:    logger.With(log.String("component", "engine")),
		recorder:  recorder,
		storage:   store,
		source:    source,
		catalog:   evaluator.NewCatalog(),
		entities:  registry.New(),
		refresh:   cfg.RefreshRate,
		countdown: cfg.RefreshRate,
	}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Computer exposes the computer of a live entity.
func (e *Engine) Computer(id uuid.UUID) (*entity.Computer, error) {
	return e.entities.Get(id)
}

func (e *Engine) Entities() []uuid.UUID { return e.entities.IDs() }

func (e *Engine) Query(id uuid.UUID, name string) (vars.Variant, error) {
	c, err := e.entities.Get(id)
	if err != nil {
		return vars.NaN(), err
	}
	return c.Query(name), nil
}

func (e *Engine) Subscribe(id uuid.UUID, name string, cb notify.Callback) (notify.Subscription, error) {
	c, err := e.entities.Get(id)
	if err != nil {
		return notify.Subscription{}, err
	}
	return c.Subscribe(name, cb), nil
}

// Unsubscribe is idempotent; unsubscribing from an entity that is already
// gone succeeds too.
func (e *Engine) Unsubscribe(id uuid.UUID, sub notify.Subscription) error {
	c, ok := e.entities.TryGet(id)
	if !ok {
		return nil
	}
	c.Unsubscribe(sub)
	return nil
}

func (e *Engine) RegisterEvaluatorSource(id uuid.UUID, src evaluator.Source) error {
	c, err := e.entities.Get(id)
	if err != nil {
		return err
	}
	c.RegisterSource(src)
	return nil
}

// Persistent returns the store of a live entity, for device glue such as
// persist.Adjuster.
func (e *Engine) Persistent(id uuid.UUID) (*persist.Store, error) {
	c, err := e.entities.Get(id)
	if err != nil {
		return nil, err
	}
	return c.Persistent(), nil
}

// RegisterComplex defines a complex variable for the session. Live entities
// that already fell back to the literal for name pick up the definition on
// their next query.
func (e *Engine) RegisterComplex(name string, v evaluator.Complex) error {
	if err := e.catalog.RegisterComplex(name, v); err != nil {
		return err
	}
	e.reresolve()
	return nil
}

func (e *Engine) RegisterModules(names ...string) {
	e.catalog.RegisterModules(names...)
	e.reresolve()
}

func (e *Engine) RegisterResources(names ...string) {
	e.catalog.RegisterResources(names...)
	e.reresolve()
}

func (e *Engine) reresolve() {
	for _, c := range e.entities.Computers() {
		if n := c.Reresolve(); n > 0 {
			e.logger.Debug("Dropped transient entries", log.Stringer("entity", c.ID()), log.Int("entries", n))
		}
	}
}

func (e *Engine) builtins() *evaluator.Table {
	if e.table == nil {
		e.table = evaluator.Builtins(e.catalog)
		e.logger.Debug("Builtin table initialised", log.Int("builtins", e.table.Len()))
	}
	return e.table
}
