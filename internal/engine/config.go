package engine

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/zeusync/telemetry/internal/core/vars"
)

type Config struct {
	// RefreshRate is the number of render frames between data refreshes of
	// the active entity.
	RefreshRate int `yaml:"refresh_rate" validate:"min=1"`
	// Tolerance is the relative epsilon used by change detection.
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0"`
	ShowCallCount bool    `yaml:"show_call_count"`
	// FlushWorkers bounds parallel store writes at session end; 0 means
	// one goroutine per entity.
	FlushWorkers int `yaml:"flush_workers" validate:"min=0"`
}

func DefaultConfig() Config {
	return Config{
		RefreshRate:  10,
		Tolerance:    vars.DefaultTolerance,
		FlushWorkers: 4,
	}
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}
