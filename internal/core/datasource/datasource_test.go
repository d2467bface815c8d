package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedRepeatsLastFrame(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	s := NewScripted()
	s.Append(id, Readings{Flags: map[string]bool{"GEAR": false}})
	s.Append(id, Readings{Flags: map[string]bool{"GEAR": true}})

	for _, want := range []bool{false, true, true} {
		r, err := s.Fetch(ctx, id)
		require.NoError(t, err)
		gear, ok := r.Flag("GEAR")
		require.True(t, ok)
		assert.Equal(t, want, gear)
	}

	_, err := s.Fetch(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoReadings)
}

func TestStatic(t *testing.T) {
	s := &Static{Readings: Readings{Values: map[string]float64{"ALTITUDE": 1200}}}
	r, err := s.Fetch(context.Background(), uuid.New())
	require.NoError(t, err)
	alt, ok := r.Value("ALTITUDE")
	assert.True(t, ok)
	assert.Equal(t, 1200.0, alt)
	_, ok = r.TextValue("NAME")
	assert.False(t, ok)

	s.Err = errors.New("simulation paused")
	_, err = s.Fetch(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestResourceVarName(t *testing.T) {
	assert.Equal(t, "LIQUID-FUEL", ResourceVarName("Liquid Fuel"))
	assert.Equal(t, "ELECTRIC-CHARGE", ResourceVarName("electric_charge"))
}
