package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/vars"
)

func newComputer(t *testing.T, src datasource.Source) *Computer {
	t.Helper()
	return New(uuid.New(), Options{
		Table:  evaluator.Builtins(evaluator.NewCatalog()),
		Source: src,
	})
}

func TestTickBumpsGenerationOnce(t *testing.T) {
	c := newComputer(t, nil)
	for i := 1; i <= 3; i++ {
		_, err := c.Tick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), c.Generation())
	}
}

func TestTickRefreshesReadingsAndSweeps(t *testing.T) {
	id := uuid.New()
	src := datasource.NewScripted()
	src.Append(id, datasource.Readings{Flags: map[string]bool{"GEAR": false}})
	src.Append(id, datasource.Readings{Flags: map[string]bool{"GEAR": false}})
	src.Append(id, datasource.Readings{Flags: map[string]bool{"GEAR": true}})
	src.Append(id, datasource.Readings{Flags: map[string]bool{"GEAR": true}})

	c := New(id, Options{Table: evaluator.Builtins(evaluator.NewCatalog()), Source: src})
	var got []float64
	c.Subscribe("GEAR", func(_ string, v float64) { got = append(got, v) })

	for i := 0; i < 4; i++ {
		_, err := c.Tick(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{0, 1}, got)
}

func TestFetchFailureKeepsPreviousReadings(t *testing.T) {
	src := &datasource.Static{Readings: datasource.Readings{Values: map[string]float64{"ALTITUDE": 10}}}
	c := newComputer(t, src)
	_, err := c.Tick(context.Background())
	require.NoError(t, err)

	src.Err = errors.New("link lost")
	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vars.Number(10), c.Query("ALTITUDE"))
}

func TestCallbackMayQueryWithoutBumpingGeneration(t *testing.T) {
	c := newComputer(t, &datasource.Static{Readings: datasource.Readings{
		Values: map[string]float64{"ALTITUDE": 10, "VERTSPEED": -1},
	}})
	var seen []uint64
	c.Subscribe("ALTITUDE", func(string, float64) {
		c.Query("VERTSPEED")
		seen = append(seen, c.Generation())
	})
	_, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, seen)
	assert.Equal(t, uint64(1), c.Invocations("ALTITUDE"))
}

func TestRegisterSourceReplacesLiteral(t *testing.T) {
	c := newComputer(t, nil)
	assert.Equal(t, vars.Text("MJ_DV"), c.Query("MJ_DV"))

	c.RegisterSource(evaluator.NewMapSource().Const("MJ_DV", vars.Number(1500)))
	assert.Equal(t, vars.Number(1500), c.Query("MJ_DV"))
}

func TestDestroyedComputerPanics(t *testing.T) {
	c := newComputer(t, nil)
	c.Destroy()
	assert.False(t, c.Alive())
	assert.PanicsWithError(t, "query "+c.ID().String()+": entity destroyed", func() {
		c.Query("ALTITUDE")
	})
	_, err := c.Tick(context.Background())
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestDirtyTracksStoreChanges(t *testing.T) {
	store := persist.New()
	store.Set("ALTITUDE_LOCK", persist.IntValue(1))
	c := New(uuid.New(), Options{Store: store})
	_, dirty := c.Dirty()
	assert.False(t, dirty)

	store.Set("ALTITUDE_LOCK", persist.IntValue(2))
	d, dirty := c.Dirty()
	assert.True(t, dirty)
	c.MarkFlushed(d)
	_, dirty = c.Dirty()
	assert.False(t, dirty)
}

func TestPersistentVariableSeesWritesImmediately(t *testing.T) {
	c := newComputer(t, nil)
	assert.Equal(t, vars.Number(0), c.Query("PERSISTENT_MODE"))
	c.Persistent().Set("MODE", persist.IntValue(3))
	assert.Equal(t, vars.Number(3), c.Query("PERSISTENT_MODE"))
}
