package cache

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/vars"
)

type testEnv struct {
	cache    *Cache
	readings datasource.Readings
	store    *persist.Store
}

func (e *testEnv) Query(name string) vars.Variant { return e.cache.Query(name) }

func (e *testEnv) Readings() datasource.Readings { return e.readings }

func (e *testEnv) Persistent() *persist.Store { return e.store }

type counter struct {
	calls int
	fn    func(call int) (vars.Variant, error)
}

func (c *counter) eval() (vars.Variant, error) {
	c.calls++
	return c.fn(c.calls)
}

func setup(t *testing.T, sources ...evaluator.Source) (*Cache, *testEnv) {
	t.Helper()
	reg := evaluator.NewRegistry(evaluator.Builtins(evaluator.NewCatalog()))
	for _, s := range sources {
		reg.AddSource(s)
	}
	env := &testEnv{store: persist.New()}
	env.cache = New(reg, env, nil, nil)
	return env.cache, env
}

func TestCacheableInvokedOncePerGeneration(t *testing.T) {
	x := &counter{fn: func(int) (vars.Variant, error) { return vars.Number(42), nil }}
	c, _ := setup(t, evaluator.NewMapSource().Add("X", true, x.eval))

	for i := 0; i < 5; i++ {
		assert.Equal(t, vars.Number(42), c.Query("X"))
	}
	assert.Equal(t, 1, x.calls)

	c.Advance()
	c.Query("X")
	c.Query("X")
	assert.Equal(t, 2, x.calls)
	assert.Equal(t, uint64(2), c.Invocations("X"))
}

func TestNonCacheableInvokedEveryQuery(t *testing.T) {
	y := &counter{fn: func(n int) (vars.Variant, error) { return vars.Number(float64(n)), nil }}
	c, _ := setup(t, evaluator.NewMapSource().Add("Y", false, y.eval))

	for i := 1; i <= 3; i++ {
		assert.Equal(t, vars.Number(float64(i)), c.Query("Y"))
	}
	assert.Equal(t, 3, y.calls)
}

func TestFailureIsRetriedInSameGeneration(t *testing.T) {
	throttle := &counter{fn: func(n int) (vars.Variant, error) {
		if n == 1 {
			return vars.NaN(), errors.New("sensor offline")
		}
		return vars.Number(0.5), nil
	}}
	c, _ := setup(t, evaluator.NewMapSource().Add("THROTTLE_CMD", true, throttle.eval))

	f, _ := c.Query("THROTTLE_CMD").Float()
	assert.True(t, math.IsNaN(f))

	assert.Equal(t, vars.Number(0.5), c.Query("THROTTLE_CMD"))
	assert.Equal(t, vars.Number(0.5), c.Query("THROTTLE_CMD"))
	assert.Equal(t, 2, throttle.calls)
}

func TestFailureAfterTextYieldsEmptyText(t *testing.T) {
	fail := false
	c, _ := setup(t, evaluator.NewMapSource().Add("NAME", true, func() (vars.Variant, error) {
		if fail {
			return vars.NaN(), errors.New("gone")
		}
		return vars.Text("Kerbal X"), nil
	}))

	assert.Equal(t, vars.Text("Kerbal X"), c.Query("NAME"))
	fail = true
	c.Advance()
	assert.Equal(t, vars.Text(""), c.Query("NAME"))
}

func TestTextBuiltinFailingFirstYieldsEmptyText(t *testing.T) {
	c, env := setup(t)
	assert.Equal(t, vars.Text(""), c.Query("VESSELNAME"))

	env.readings = datasource.Readings{Text: map[string]string{"VESSELNAME": "Kerbal X"}}
	assert.Equal(t, vars.Text("Kerbal X"), c.Query("VESSELNAME"))
}

func TestLiteralFallback(t *testing.T) {
	c, _ := setup(t)
	assert.Equal(t, vars.Text("NO SUCH THING"), c.Query("NO SUCH THING"))
	k, ok := c.Kind("NO SUCH THING")
	require.True(t, ok)
	assert.Equal(t, evaluator.KindLiteral, k)
}

func TestBuiltinReadsCurrentReadings(t *testing.T) {
	c, env := setup(t)
	env.readings = datasource.Readings{Values: map[string]float64{"ALTITUDE": 100}}
	assert.Equal(t, vars.Number(100), c.Query("ALTITUDE"))

	env.readings = datasource.Readings{Values: map[string]float64{"ALTITUDE": 200}}
	assert.Equal(t, vars.Number(100), c.Query("ALTITUDE"))
	c.Advance()
	assert.Equal(t, vars.Number(200), c.Query("ALTITUDE"))
}

func TestRecursiveComplexIsCut(t *testing.T) {
	cat := evaluator.NewCatalog()
	require.NoError(t, cat.RegisterComplex("MATH_LOOP", evaluator.Math{
		Op: evaluator.OpSum, Operands: []vars.Operand{vars.ParseOperand("MATH_LOOP")},
	}))
	env := &testEnv{store: persist.New()}
	env.cache = New(evaluator.NewRegistry(evaluator.Builtins(cat)), env, nil, nil)

	f, _ := env.cache.Query("MATH_LOOP").Float()
	assert.True(t, math.IsNaN(f))
}

func TestDropTransientKeepsBuiltins(t *testing.T) {
	c, env := setup(t, evaluator.NewMapSource().Const("P", vars.Number(1)))
	env.readings = datasource.Readings{Values: map[string]float64{"ALTITUDE": 1}}
	c.Query("ALTITUDE")
	c.Query("P")
	c.Query("literal")

	assert.Equal(t, 2, c.DropTransient())
	assert.Equal(t, 1, c.Len())
}

func TestCallCountsSortedAscending(t *testing.T) {
	c, _ := setup(t)
	c.Query("A")
	c.Query("B")
	c.Query("B")
	c.Query("C")
	c.Query("C")
	c.Query("C")

	assert.Equal(t, []CallCount{{"A", 1}, {"B", 2}, {"C", 3}}, c.CallCounts())
}
