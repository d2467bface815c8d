// Package storage holds the backends that persistent record sets are
// flushed to and loaded from. Keys are entity ids, values are the encoded
// record sets.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrClosed        = errors.New("storage closed")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverBadger = "badger"
)

type Config struct {
	Driver     string `yaml:"driver" validate:"oneof=memory badger"`
	Path       string `yaml:"path" validate:"required_if=Driver badger InMemory false"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

func DefaultConfig() Config {
	return Config{Driver: DriverMemory}
}

// Open returns the backend selected by cfg.Driver.
func Open(cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverBadger:
		return OpenBadger(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
