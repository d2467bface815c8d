package datasource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Scripted replays a fixed sequence of frames. Every Fetch for an entity
// returns the frame at that entity's cursor and advances it; the last frame
// repeats once the script is exhausted.
type Scripted struct {
	frames  map[uuid.UUID][]Readings
	cursors map[uuid.UUID]int
}

func NewScripted() *Scripted {
	return &Scripted{
		frames:  make(map[uuid.UUID][]Readings),
		cursors: make(map[uuid.UUID]int),
	}
}

// Append queues one more frame for id.
func (s *Scripted) Append(id uuid.UUID, r Readings) {
	s.frames[id] = append(s.frames[id], r)
}

func (s *Scripted) Fetch(_ context.Context, id uuid.UUID) (Readings, error) {
	frames := s.frames[id]
	if len(frames) == 0 {
		return Readings{}, fmt.Errorf("%w: entity %s", ErrNoReadings, id)
	}
	i := s.cursors[id]
	if i >= len(frames) {
		i = len(frames) - 1
	} else {
		s.cursors[id] = i + 1
	}
	return frames[i], nil
}
