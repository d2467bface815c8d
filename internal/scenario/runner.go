package scenario

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/storage"
	"github.com/zeusync/telemetry/internal/core/vars"
	"github.com/zeusync/telemetry/internal/engine"
	"github.com/zeusync/telemetry/pkg/concurrent"
)

// Event is one observable outcome of a replay.
type Event struct {
	Step   int       `yaml:"step"`
	Kind   string    `yaml:"kind"`
	Entity uuid.UUID `yaml:"entity"`
	Name   string    `yaml:"name"`
	Value  string    `yaml:"value"`
}

type Report struct {
	Scenario string  `yaml:"scenario"`
	Events   []Event `yaml:"events"`
}

func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// Runner drives an engine through a scenario. The scripted source must be
// the one the engine fetches readings from; store, when set, must be the
// engine's storage.
type Runner struct {
	engine *engine.Engine
	source *datasource.Scripted
	store  storage.Storage
	logger log.Log

	// OnChange, when set, also receives every change delivered during the
	// replay.
	OnChange func(entity uuid.UUID, name string, value float64)

	adjusters map[string]Adjuster
	knobs     map[knob]*persist.Adjuster

	report Report
	step   int
}

func NewRunner(eng *engine.Engine, src *datasource.Scripted, store storage.Storage, logger log.Log) *Runner {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Runner{
		engine: eng,
		source: src,
		store:  store,
		logger: logger.With(log.String("component", "scenario")),
	}
}

// Run replays every step and ends the session.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if err := r.Prepare(ctx, sc); err != nil {
		return nil, err
	}
	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.Step(ctx, i, st); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	if err := r.engine.EndSession(ctx); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	return r.Report(), nil
}

// Prepare registers the session definitions, seeds stored values and
// creates the listed entities.
func (r *Runner) Prepare(ctx context.Context, sc *Scenario) error {
	r.report = Report{Scenario: sc.Name}
	r.step = -1
	r.adjusters = make(map[string]Adjuster, len(sc.Adjusters))
	r.knobs = make(map[knob]*persist.Adjuster)
	for _, a := range sc.Adjusters {
		r.adjusters[a.Name] = a
	}

	r.engine.RegisterModules(sc.Modules...)
	r.engine.RegisterResources(sc.Resources...)
	for _, c := range sc.Complex {
		v, err := c.Build()
		if err != nil {
			return err
		}
		if err := r.engine.RegisterComplex(c.Name, v); err != nil {
			return err
		}
	}

	var stored []Entity
	for _, e := range sc.Entities {
		if len(e.Stored) > 0 {
			stored = append(stored, e)
		}
	}
	if err := concurrent.ForEach(ctx, stored, 0, r.seed); err != nil {
		return err
	}

	for _, e := range sc.Entities {
		for _, rd := range e.Readings {
			r.source.Append(e.ID, rd)
		}
		if err := r.engine.OnEntityCreated(ctx, e.ID); err != nil {
			return err
		}
		for _, name := range e.Subscribe {
			if err := r.subscribe(e.ID, name); err != nil {
				return err
			}
		}
		if e.Active {
			if err := r.engine.SetActive(e.ID); err != nil {
				return err
			}
		}
	}
	r.logger.Info("Scenario prepared",
		log.String("scenario", sc.Name),
		log.Int("entities", len(sc.Entities)),
		log.Int("steps", len(sc.Steps)),
	)
	return nil
}

func (r *Runner) seed(ctx context.Context, e Entity) error {
	if r.store == nil {
		return fmt.Errorf("%w: entity %s has stored values but no storage is configured", ErrInvalidScenario, e.ID)
	}
	data, err := yaml.Marshal(map[string][]persist.Record{"vars": e.Stored})
	if err != nil {
		return err
	}
	return r.store.Write(ctx, engine.StorageKey(e.ID), data)
}

func (r *Runner) subscribe(id uuid.UUID, name string) error {
	_, err := r.engine.Subscribe(id, name, func(n string, v float64) {
		r.record("change", id, n, vars.Number(v))
		if r.OnChange != nil {
			r.OnChange(id, n, v)
		}
	})
	return err
}

// Step applies one host action.
func (r *Runner) Step(ctx context.Context, i int, st Step) error {
	r.step = i
	switch {
	case len(st.Tick) > 0:
		for _, id := range st.Tick {
			if err := r.engine.OnTick(ctx, id); err != nil {
				return err
			}
		}
		return nil
	case st.Create != nil:
		return r.engine.OnEntityCreated(ctx, *st.Create)
	case st.Destroy != nil:
		for k := range r.knobs {
			if k.entity == *st.Destroy {
				delete(r.knobs, k)
			}
		}
		return r.engine.OnEntityDestroyed(ctx, *st.Destroy)
	case st.Join != nil:
		return r.engine.OnJoin(st.Join.Survivor, st.Join.Joined)
	case st.Split != nil:
		return r.engine.OnSplit(*st.Split)
	case st.Modified != nil:
		return r.engine.OnModified(*st.Modified)
	case st.Query != nil:
		for _, name := range st.Query.Names {
			v, err := r.engine.Query(st.Query.Entity, name)
			if err != nil {
				return err
			}
			r.record("query", st.Query.Entity, name, v)
		}
		return nil
	case st.Set != nil:
		name, v, err := st.Set.Record.Decode()
		if err != nil {
			return err
		}
		s, err := r.engine.Persistent(st.Set.Entity)
		if err != nil {
			return err
		}
		s.Set(name, v)
		return nil
	case st.Adjust != nil:
		return r.adjust(st.Adjust)
	default:
		return fmt.Errorf("%w: empty step", ErrInvalidScenario)
	}
}

// TickAll ticks every live entity; used to keep a served session running
// after its steps are exhausted.
func (r *Runner) TickAll(ctx context.Context) error {
	for _, id := range r.engine.Entities() {
		if err := r.engine.OnTick(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) Report() *Report {
	out := r.report
	out.Events = append([]Event(nil), r.report.Events...)
	return &out
}

func (r *Runner) record(kind string, id uuid.UUID, name string, v vars.Variant) {
	r.report.Events = append(r.report.Events, Event{
		Step:   r.step,
		Kind:   kind,
		Entity: id,
		Name:   name,
		Value:  format(v),
	})
}

func format(v vars.Variant) string {
	if s, ok := v.Text(); ok {
		return s
	}
	f, _ := v.Float()
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
