package scenario

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/vars"
)

// Adjuster declares an integer persistent setting driven by relative input,
// such as an autopilot altitude knob. Default, Min and Max are numbers or
// variable names.
type Adjuster struct {
	Name    string  `yaml:"name"`
	Default string  `yaml:"default"`
	Min     string  `yaml:"min,omitempty"`
	Max     string  `yaml:"max,omitempty"`
	Step    float64 `yaml:"step,omitempty"`
}

// Adjust turns the knob of a declared adjuster on one entity.
type Adjust struct {
	Entity uuid.UUID `yaml:"entity"`
	Name   string    `yaml:"name"`
	Change float64   `yaml:"change"`
}

func (a Adjuster) Build() *persist.Adjuster {
	out := &persist.Adjuster{
		Name:    a.Name,
		Default: vars.ParseOperand(a.Default),
		Step:    a.Step,
	}
	if a.Min != "" {
		lo := vars.ParseOperand(a.Min)
		out.Min = &lo
	}
	if a.Max != "" {
		hi := vars.ParseOperand(a.Max)
		out.Max = &hi
	}
	return out
}

type knob struct {
	entity uuid.UUID
	name   string
}

// adjust applies one step to the entity's adjuster, creating and seeding it
// on first use. Each entity keeps its own carried remainder.
func (r *Runner) adjust(a *Adjust) error {
	decl, ok := r.adjusters[a.Name]
	if !ok {
		return fmt.Errorf("%w: no adjuster named %s", ErrInvalidScenario, a.Name)
	}
	c, err := r.engine.Computer(a.Entity)
	if err != nil {
		return err
	}
	store := c.Persistent()

	k := knob{entity: a.Entity, name: a.Name}
	adj, ok := r.knobs[k]
	if !ok {
		adj = decl.Build()
		if err := adj.Init(store, c); err != nil {
			r.logger.Warn("Adjuster starts from zero", log.Stringer("entity", a.Entity), log.Error(err))
		}
		r.knobs[k] = adj
	}

	out := adj.Apply(store, c, a.Change)
	r.record("adjust", a.Entity, a.Name, vars.Number(float64(out)))
	return nil
}
