package notify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zeusync/telemetry/internal/core/vars"
)

type values map[string]vars.Variant

func (v values) Query(name string) vars.Variant {
	if x, ok := v[name]; ok {
		return x
	}
	return vars.Text(name)
}

type call struct {
	who   string
	name  string
	value float64
}

func TestGearSequenceFiresOnChangeOnly(t *testing.T) {
	n := New(0, nil)
	var calls []call
	n.Subscribe("GEAR", func(name string, v float64) { calls = append(calls, call{"a", name, v}) })
	n.Subscribe("GEAR", func(name string, v float64) { calls = append(calls, call{"b", name, v}) })

	for _, g := range []bool{false, false, true, true} {
		n.Sweep(values{"GEAR": vars.Bool(g)})
	}

	assert.Equal(t, []call{
		{"a", "GEAR", 0}, {"b", "GEAR", 0},
		{"a", "GEAR", 1}, {"b", "GEAR", 1},
	}, calls)
}

func TestSeededGearFiresOnlyOnTransition(t *testing.T) {
	n := New(0, nil)
	var order []string
	tick := -1
	var ticks []int
	n.Subscribe("GEAR", func(string, float64) { order = append(order, "a"); ticks = append(ticks, tick) })
	n.Subscribe("GEAR", func(string, float64) { order = append(order, "b"); ticks = append(ticks, tick) })

	// Seed delivery on the sweep that follows subscribing.
	n.Sweep(values{"GEAR": vars.Bool(false)})
	order, ticks = nil, nil

	for i, g := range []bool{false, false, true, true} {
		tick = i
		n.Sweep(values{"GEAR": vars.Bool(g)})
	}

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, []int{2, 2}, ticks)
}

func TestFirstSweepAlwaysFires(t *testing.T) {
	n := New(0, nil)
	fired := 0
	n.Subscribe("X", func(string, float64) { fired++ })
	n.Sweep(values{"X": vars.Number(0)})
	assert.Equal(t, 1, fired)

	// A late subscriber gets its own first delivery without refiring the
	// earlier one.
	late := 0
	n.Subscribe("X", func(string, float64) { late++ })
	n.Sweep(values{"X": vars.Number(0)})
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, late)
}

func TestToleranceSuppressesNoise(t *testing.T) {
	n := New(1e-6, nil)
	var got []float64
	n.Subscribe("ALT", func(_ string, v float64) { got = append(got, v) })

	n.Sweep(values{"ALT": vars.Number(1000)})
	n.Sweep(values{"ALT": vars.Number(1000.0000001)})
	n.Sweep(values{"ALT": vars.Number(1001)})

	assert.Equal(t, []float64{1000, 1001}, got)
}

func TestNaNComparesEqualToNaN(t *testing.T) {
	n := New(0, nil)
	fired := 0
	n.Subscribe("BROKEN", func(string, float64) { fired++ })
	n.Sweep(values{"BROKEN": vars.NaN()})
	n.Sweep(values{"BROKEN": vars.Number(math.NaN())})
	assert.Equal(t, 1, fired)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	n := New(0, nil)
	fired := 0
	sub := n.Subscribe("X", func(string, float64) { fired++ })

	assert.True(t, n.Unsubscribe(sub))
	assert.False(t, n.Unsubscribe(sub))
	assert.False(t, n.Unsubscribe(Subscription{}))
	assert.Empty(t, n.Names())

	n.Sweep(values{"X": vars.Number(1)})
	assert.Zero(t, fired)
}

func TestUnsubscribeDuringSweep(t *testing.T) {
	n := New(0, nil)
	var order []string
	var second Subscription
	n.Subscribe("X", func(string, float64) {
		order = append(order, "first")
		n.Unsubscribe(second)
	})
	second = n.Subscribe("X", func(string, float64) { order = append(order, "second") })

	n.Sweep(values{"X": vars.Number(1)})
	assert.Equal(t, []string{"first"}, order)
}

func TestSubscribeDuringSweepFiresNextSweep(t *testing.T) {
	n := New(0, nil)
	var got []string
	n.Subscribe("A", func(name string, _ float64) {
		got = append(got, name)
		if len(got) == 1 {
			n.Subscribe("B", func(name string, _ float64) { got = append(got, name) })
		}
	})

	n.Sweep(values{"A": vars.Number(1), "B": vars.Number(2)})
	assert.Equal(t, []string{"A"}, got)
	n.Sweep(values{"A": vars.Number(1), "B": vars.Number(2)})
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestResetRefiresAll(t *testing.T) {
	n := New(0, nil)
	fired := 0
	n.Subscribe("X", func(string, float64) { fired++ })
	n.Sweep(values{"X": vars.Number(1)})
	n.Reset()
	n.Sweep(values{"X": vars.Number(1)})
	assert.Equal(t, 2, fired)
}

func TestTextValuesReportNaN(t *testing.T) {
	n := New(0, nil)
	var got float64
	n.Subscribe("VESSELNAME", func(_ string, v float64) { got = v })
	n.Sweep(values{"VESSELNAME": vars.Text("Kerbal X")})
	assert.True(t, math.IsNaN(got))
}
