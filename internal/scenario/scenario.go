// Package scenario replays scripted host sessions against an engine: entity
// creation with stored persistent values, per-tick readings, join and split
// events, queries and subscriptions.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/persist"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type Scenario struct {
	Name      string     `yaml:"name"`
	Modules   []string   `yaml:"modules,omitempty"`
	Resources []string   `yaml:"resources,omitempty"`
	Complex   []Complex  `yaml:"complex,omitempty"`
	Adjusters []Adjuster `yaml:"adjusters,omitempty"`
	Entities  []Entity   `yaml:"entities"`
	Steps     []Step     `yaml:"steps"`
}

type Entity struct {
	ID uuid.UUID `yaml:"id"`
	// Stored is written to storage before the entity is created, as if a
	// previous session had flushed it.
	Stored    []persist.Record      `yaml:"stored,omitempty"`
	Readings  []datasource.Readings `yaml:"readings,omitempty"`
	Subscribe []string              `yaml:"subscribe,omitempty"`
	Active    bool                  `yaml:"active,omitempty"`
}

// Step is one host action. Exactly one field is set.
type Step struct {
	Tick     []uuid.UUID `yaml:"tick,omitempty"`
	Create   *uuid.UUID  `yaml:"create,omitempty"`
	Destroy  *uuid.UUID  `yaml:"destroy,omitempty"`
	Join     *Join       `yaml:"join,omitempty"`
	Split    *uuid.UUID  `yaml:"split,omitempty"`
	Modified *uuid.UUID  `yaml:"modified,omitempty"`
	Query    *Query      `yaml:"query,omitempty"`
	Set      *Set        `yaml:"set,omitempty"`
	Adjust   *Adjust     `yaml:"adjust,omitempty"`
}

type Join struct {
	Survivor uuid.UUID `yaml:"survivor"`
	Joined   uuid.UUID `yaml:"joined"`
}

type Query struct {
	Entity uuid.UUID `yaml:"entity"`
	Names  []string  `yaml:"names"`
}

// Set writes one persistent value, the way a cockpit switch would.
type Set struct {
	Entity uuid.UUID      `yaml:"entity"`
	Record persist.Record `yaml:",inline"`
}

func (s Step) kinds() int {
	n := 0
	if len(s.Tick) > 0 {
		n++
	}
	for _, set := range []bool{s.Create != nil, s.Destroy != nil, s.Join != nil, s.Split != nil, s.Modified != nil, s.Query != nil, s.Set != nil, s.Adjust != nil} {
		if set {
			n++
		}
	}
	return n
}

// Load decodes and checks a scenario document.
func Load(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (sc *Scenario) Validate() error {
	seen := make(map[uuid.UUID]struct{}, len(sc.Entities))
	for i, e := range sc.Entities {
		if e.ID == uuid.Nil {
			return fmt.Errorf("%w: entity %d has no id", ErrInvalidScenario, i)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: entity %s listed twice", ErrInvalidScenario, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	adjusters := make(map[string]struct{}, len(sc.Adjusters))
	for i, a := range sc.Adjusters {
		if a.Name == "" {
			return fmt.Errorf("%w: adjuster %d has no name", ErrInvalidScenario, i)
		}
		adjusters[a.Name] = struct{}{}
	}
	for i, s := range sc.Steps {
		if s.kinds() != 1 {
			return fmt.Errorf("%w: step %d must hold exactly one action", ErrInvalidScenario, i)
		}
		if s.Adjust != nil {
			if _, ok := adjusters[s.Adjust.Name]; !ok {
				return fmt.Errorf("%w: step %d adjusts undeclared %s", ErrInvalidScenario, i, s.Adjust.Name)
			}
		}
	}
	for i, c := range sc.Complex {
		if c.Name == "" {
			return fmt.Errorf("%w: complex variable %d has no name", ErrInvalidScenario, i)
		}
	}
	return nil
}
