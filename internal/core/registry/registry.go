// Package registry maps live entity ids to their computers.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/entity"
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrDuplicateEntity = errors.New("entity already registered")
)

// Registry holds exactly one computer per live id.
type Registry struct {
	entries map[uuid.UUID]*entity.Computer
}

func New() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*entity.Computer)}
}

// Add registers c. An id that is already registered keeps its computer and
// ErrDuplicateEntity is returned.
func (r *Registry) Add(c *entity.Computer) error {
	if _, ok := r.entries[c.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, c.ID())
	}
	r.entries[c.ID()] = c
	return nil
}

func (r *Registry) Get(id uuid.UUID) (*entity.Computer, error) {
	c, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	return c, nil
}

// MustGet is for callers that already established that id is live; a miss
// is a programming error.
func (r *Registry) MustGet(id uuid.UUID) *entity.Computer {
	c, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return c
}

func (r *Registry) TryGet(id uuid.UUID) (*entity.Computer, bool) {
	c, ok := r.entries[id]
	return c, ok
}

func (r *Registry) Remove(id uuid.UUID) (*entity.Computer, bool) {
	c, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return c, ok
}

func (r *Registry) Len() int { return len(r.entries) }

// IDs returns the registered ids in byte order.
func (r *Registry) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Computers returns the registered computers in IDs order.
func (r *Registry) Computers() []*entity.Computer {
	ids := r.IDs()
	out := make([]*entity.Computer, len(ids))
	for i, id := range ids {
		out[i] = r.entries[id]
	}
	return out
}

func (r *Registry) Clear() {
	r.entries = make(map[uuid.UUID]*entity.Computer)
}
