// Package datasource defines the boundary to the vessel simulation. The
// engine never computes telemetry itself; it asks a Source for a snapshot of
// raw readings once per tick and hands that snapshot to evaluators.
package datasource

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrNoReadings = errors.New("no readings available")

// Source fetches the raw readings of one entity. Implementations are called
// from the tick thread and should return within the tick budget.
type Source interface {
	Fetch(ctx context.Context, id uuid.UUID) (Readings, error)
}

// Resource is the amount and capacity of one resource across the craft.
type Resource struct {
	Amount float64 `yaml:"amount"`
	Max    float64 `yaml:"max"`
}

// Readings is an immutable snapshot of raw telemetry for one tick.
type Readings struct {
	Values    map[string]float64  `yaml:"values,omitempty"`
	Flags     map[string]bool     `yaml:"flags,omitempty"`
	Text      map[string]string   `yaml:"text,omitempty"`
	Resources map[string]Resource `yaml:"resources,omitempty"`
}

func (r Readings) Value(key string) (float64, bool) {
	v, ok := r.Values[key]
	return v, ok
}

func (r Readings) Flag(key string) (bool, bool) {
	v, ok := r.Flags[key]
	return v, ok
}

func (r Readings) TextValue(key string) (string, bool) {
	v, ok := r.Text[key]
	return v, ok
}

func (r Readings) Resource(name string) (Resource, bool) {
	v, ok := r.Resources[name]
	return v, ok
}

// ResourceVarName converts a resource name into its variable form:
// upper case, with spaces and underscores replaced by dashes.
func ResourceVarName(name string) string {
	return strings.NewReplacer(" ", "-", "_", "-").Replace(strings.ToUpper(name))
}

// Static serves the same readings for every entity.
type Static struct {
	Readings Readings
	Err      error
}

func (s *Static) Fetch(_ context.Context, _ uuid.UUID) (Readings, error) {
	if s.Err != nil {
		return Readings{}, s.Err
	}
	return s.Readings, nil
}
