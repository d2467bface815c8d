// Package config loads the daemon configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/core/storage"
	"github.com/zeusync/telemetry/internal/engine"
	"github.com/zeusync/telemetry/internal/server"
)

type Config struct {
	Engine  engine.Config  `yaml:"engine"`
	Log     log.Config     `yaml:"log"`
	Storage storage.Config `yaml:"storage"`
	Feed    server.Config  `yaml:"feed"`
}

func Default() Config {
	return Config{
		Engine:  engine.DefaultConfig(),
		Log:     log.DefaultConfig(),
		Storage: storage.DefaultConfig(),
		Feed:    server.DefaultConfig(),
	}
}

// Load reads a YAML document over the defaults. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile loads path, or returns the defaults when path is empty.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
