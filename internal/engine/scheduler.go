package engine

import (
	"context"

	"github.com/google/uuid"
)

// SetActive selects the entity whose data is refreshed by the frame
// scheduler. Switching entities drops transient results and re-delivers
// every subscribed value.
func (e *Engine) SetActive(id uuid.UUID) error {
	c, err := e.entities.Get(id)
	if err != nil {
		return err
	}
	if e.active != id {
		e.active = id
		c.Refresh()
	}
	e.forceRefresh()
	return nil
}

func (e *Engine) Active() (uuid.UUID, bool) {
	return e.active, e.active != uuid.Nil
}

// SetRefreshRate lowers the number of frames between refreshes. A higher
// rate than the current one is ignored; the floor is one frame.
func (e *Engine) SetRefreshRate(frames int) {
	if frames < 1 {
		frames = 1
	}
	if frames < e.refresh {
		e.refresh = frames
	}
	if e.countdown > e.refresh {
		e.countdown = e.refresh
	}
}

func (e *Engine) RefreshRate() int { return e.refresh }

// Update is called once per render frame and counts down to the next
// refresh.
func (e *Engine) Update() {
	if e.active == uuid.Nil {
		return
	}
	e.countdown--
	if e.countdown <= 0 {
		e.due = true
		e.countdown = e.refresh
	}
}

// FixedUpdate is called once per physics step and ticks the active entity
// when a refresh is due. It reports whether a tick ran. Destroying the
// active entity clears the selection, so a selected id is always live.
func (e *Engine) FixedUpdate(ctx context.Context) (bool, error) {
	if !e.due || e.active == uuid.Nil {
		return false, nil
	}
	e.due = false
	return true, e.tick(ctx, e.entities.MustGet(e.active))
}

func (e *Engine) forceRefresh() {
	e.due = true
	e.countdown = e.refresh
}
