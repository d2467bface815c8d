package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/entity"
	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/storage"
	"github.com/zeusync/telemetry/pkg/concurrent"
)

// StorageKey is the key the record set of id is stored under.
func StorageKey(id uuid.UUID) string {
	return "persistent/" + id.String()
}

// OnEntityCreated registers a computer for id and loads its persistent
// values. Creating a live id again fails with ErrDuplicateEntity and leaves
// the existing computer untouched.
func (e *Engine) OnEntityCreated(ctx context.Context, id uuid.UUID) error {
	if _, ok := e.entities.TryGet(id); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, id)
	}

	store := e.load(ctx, id)
	c := entity.New(id, entity.Options{
		Table:     e.builtins(),
		Source:    e.source,
		Store:     store,
		Tolerance: e.cfg.Tolerance,
		Logger:    e.logger,
		Recorder:  e.recorder,
	})
	if err := e.entities.Add(c); err != nil {
		return err
	}
	e.recorder.Entities(e.entities.Len())
	e.logger.Info("Entity created",
		log.Stringer("entity", id),
		log.Int("persistent", store.Len()),
	)
	return nil
}

// OnEntityDestroyed flushes the store of id and releases its slot. The
// entity is removed even when the flush fails; the flush error is returned.
func (e *Engine) OnEntityDestroyed(ctx context.Context, id uuid.UUID) error {
	c, err := e.entities.Get(id)
	if err != nil {
		return err
	}

	flushErr := e.flush(ctx, c)
	e.teardown(c)
	e.recorder.Entities(e.entities.Len())
	e.logger.Info("Entity destroyed", log.Stringer("entity", id))
	return flushErr
}

// OnTick refreshes the readings of id, starts its next generation and
// delivers change callbacks.
func (e *Engine) OnTick(ctx context.Context, id uuid.UUID) error {
	c, err := e.entities.Get(id)
	if err != nil {
		return err
	}
	return e.tick(ctx, c)
}

func (e *Engine) tick(ctx context.Context, c *entity.Computer) error {
	start := time.Now()
	_, err := c.Tick(ctx)
	e.recorder.Tick(time.Since(start))
	return err
}

// EndSession flushes every live store in parallel, then drops all entities
// and the session-wide tables. Flush failures are joined into the result.
func (e *Engine) EndSession(ctx context.Context) error {
	computers := e.entities.Computers()
	err := concurrent.ForEachAll(ctx, computers, e.cfg.FlushWorkers, e.flush)

	for _, c := range computers {
		e.teardown(c)
	}
	e.entities.Clear()
	e.table = nil
	e.catalog.Reset()
	e.active = uuid.Nil
	e.due = false
	e.recorder.Entities(0)

	e.logger.Info("Session ended", log.Int("entities", len(computers)))
	return err
}

func (e *Engine) teardown(c *entity.Computer) {
	if e.cfg.ShowCallCount {
		for _, cc := range c.CallCounts() {
			e.logger.Debug("Variable call count",
				log.Stringer("entity", c.ID()),
				log.String("name", cc.Name),
				log.Uint64("calls", cc.Count),
			)
		}
	}
	c.Destroy()
	e.entities.Remove(c.ID())
	if e.active == c.ID() {
		e.active = uuid.Nil
	}
}

func (e *Engine) load(ctx context.Context, id uuid.UUID) *persist.Store {
	if e.storage == nil {
		return persist.New()
	}
	data, err := e.storage.Read(ctx, StorageKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return persist.New()
	}
	if err != nil {
		e.logger.Warn("Failed to read persistent values", log.Stringer("entity", id), log.Error(err))
		return persist.New()
	}

	s, skipped, err := persist.Unmarshal(data)
	if err != nil {
		e.logger.Warn("Failed to decode persistent values", log.Stringer("entity", id), log.Error(err))
		return persist.New()
	}
	for _, se := range skipped {
		e.logger.Warn("Skipped persistent record", log.Stringer("entity", id), log.Error(se))
	}
	return s
}

// flush writes the store of c unless it is unchanged since load or the last
// flush. It may run concurrently for distinct computers.
func (e *Engine) flush(ctx context.Context, c *entity.Computer) error {
	if e.storage == nil {
		return nil
	}
	digest, dirty := c.Dirty()
	if !dirty {
		e.recorder.Flush(true, false)
		return nil
	}
	data, err := persist.Marshal(c.Persistent())
	if err == nil {
		err = e.storage.Write(ctx, StorageKey(c.ID()), data)
	}
	if err != nil {
		e.recorder.Flush(false, true)
		e.logger.Error("Failed to flush persistent values", log.Stringer("entity", c.ID()), log.Error(err))
		return fmt.Errorf("flush %s: %w", c.ID(), err)
	}
	c.MarkFlushed(digest)
	e.recorder.Flush(false, false)
	return nil
}
