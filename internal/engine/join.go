package engine

import (
	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/entity"
	"github.com/zeusync/telemetry/internal/core/observability/log"
)

// OnJoin merges the store of joined into survivor after two craft dock.
// Keys already held by survivor keep their value; afterwards both stores
// are identical. A joined entity that is not registered is logged and
// ignored.
func (e *Engine) OnJoin(survivor, joined uuid.UUID) error {
	s, err := e.entities.Get(survivor)
	if err != nil {
		return err
	}
	j, ok := e.entities.TryGet(joined)
	if !ok {
		e.logger.Warn("Join with unregistered entity ignored",
			log.Stringer("survivor", survivor),
			log.Stringer("joined", joined),
		)
		e.forceRefresh()
		return nil
	}
	if s != j {
		e.merge(s, j)
	}
	s.SetJoinState(entity.JoinJoined)
	j.SetJoinState(entity.JoinJoined)
	e.forceRefresh()
	return nil
}

// OnSplit records that id expects to undock. The stores are reconciled by
// the modification events that follow.
func (e *Engine) OnSplit(id uuid.UUID) error {
	c, err := e.entities.Get(id)
	if err != nil {
		return err
	}
	c.SetJoinState(entity.JoinSplitPending)
	return nil
}

// OnModified is reported when the structure of id changed, for instance
// right after an undock. Every other live entity observes it: when either
// side has a split pending, the observer merges the modified entity's store
// into its own and both leave the pending state.
func (e *Engine) OnModified(id uuid.UUID) error {
	modified, err := e.entities.Get(id)
	if err != nil {
		return err
	}
	if id == e.active {
		e.forceRefresh()
	}
	for _, observer := range e.entities.Computers() {
		if observer == modified {
			continue
		}
		if observer.JoinState() != entity.JoinSplitPending && modified.JoinState() != entity.JoinSplitPending {
			continue
		}
		observer.SetJoinState(entity.JoinNone)
		modified.SetJoinState(entity.JoinNone)
		e.merge(observer, modified)
	}
	return nil
}

func (e *Engine) merge(into, from *entity.Computer) {
	added := into.Persistent().Merge(from.Persistent())
	e.logger.Info("Persistent values merged",
		log.Stringer("survivor", into.ID()),
		log.Stringer("other", from.ID()),
		log.Int("added", added),
	)
}
