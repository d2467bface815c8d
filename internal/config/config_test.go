package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/telemetry/internal/core/storage"
)

func TestDefaultsAreValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(`
engine:
  refresh_rate: 3
  show_call_count: true
storage:
  driver: badger
  path: /tmp/telemetry
feed:
  write_timeout: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.RefreshRate)
	assert.True(t, cfg.Engine.ShowCallCount)
	assert.Equal(t, 1e-6, cfg.Engine.Tolerance)
	assert.Equal(t, storage.DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Second, cfg.Feed.WriteTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"zero refresh":     "engine:\n  refresh_rate: 0\n",
		"unknown driver":   "storage:\n  driver: etcd\n",
		"badger w/o path":  "storage:\n  driver: badger\n",
		"unknown key":      "engine:\n  refresh: 3\n",
		"bad log encoding": "log:\n  encoding: xml\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
