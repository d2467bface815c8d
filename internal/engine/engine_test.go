package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/entity"
	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/storage"
	"github.com/zeusync/telemetry/internal/core/vars"
)

// countingStorage counts writes on top of the memory backend.
type countingStorage struct {
	*storage.Memory
	mu     sync.Mutex
	writes int
	fail   error
}

func (c *countingStorage) Write(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.writes++
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return fail
	}
	return c.Memory.Write(ctx, key, value)
}

func (c *countingStorage) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func newEngine(t *testing.T, src datasource.Source, store storage.Storage) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), src, store, nil, nil)
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, store storage.Storage, id uuid.UUID, s *persist.Store) {
	t.Helper()
	data, err := persist.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), StorageKey(id), data))
}

func TestJoinMergesPersistentValues(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	e1, e2 := uuid.New(), uuid.New()

	s1 := persist.New()
	s1.Set("ALTITUDE_LOCK", persist.IntValue(1))
	seed(t, mem, e1, s1)
	s2 := persist.New()
	s2.Set("RADIO_FREQ", persist.FloatValue(121.5))
	s2.Set("ALTITUDE_LOCK", persist.IntValue(0))
	seed(t, mem, e2, s2)

	e := newEngine(t, nil, mem)
	require.NoError(t, e.OnEntityCreated(ctx, e1))
	require.NoError(t, e.OnEntityCreated(ctx, e2))
	require.NoError(t, e.OnJoin(e1, e2))

	for _, id := range []uuid.UUID{e1, e2} {
		v, err := e.Query(id, "PERSISTENT_ALTITUDE_LOCK")
		require.NoError(t, err)
		assert.Equal(t, vars.Number(1), v)
		v, err = e.Query(id, "PERSISTENT_RADIO_FREQ")
		require.NoError(t, err)
		assert.Equal(t, vars.Number(121.5), v)

		c, err := e.Computer(id)
		require.NoError(t, err)
		assert.Equal(t, entity.JoinJoined, c.JoinState())
	}

	// Re-merging changes nothing.
	require.NoError(t, e.OnJoin(e1, e2))
	st, err := e.Persistent(e1)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
}

func TestJoinWithUnknownEntityIsNoOp(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil)
	id := uuid.New()
	require.NoError(t, e.OnEntityCreated(ctx, id))

	assert.NoError(t, e.OnJoin(id, uuid.New()))
	assert.ErrorIs(t, e.OnJoin(uuid.New(), id), ErrUnknownEntity)
}

func TestSplitReconciliation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b, c} {
		require.NoError(t, e.OnEntityCreated(ctx, id))
	}
	sa, _ := e.Persistent(a)
	sa.Set("MODE", persist.IntValue(2))
	sb, _ := e.Persistent(b)
	sb.Set("CHANNEL", persist.IntValue(5))

	// Without a pending split a modification does not share anything.
	require.NoError(t, e.OnModified(b))
	assert.False(t, sa.Has("CHANNEL"))

	require.NoError(t, e.OnSplit(a))
	require.NoError(t, e.OnModified(b))

	assert.True(t, sa.Has("CHANNEL"))
	assert.True(t, sb.Has("MODE"))
	ca, _ := e.Computer(a)
	cb, _ := e.Computer(b)
	assert.Equal(t, entity.JoinNone, ca.JoinState())
	assert.Equal(t, entity.JoinNone, cb.JoinState())

	sc, _ := e.Persistent(c)
	assert.Zero(t, sc.Len())
}

func TestDuplicateCreationLeavesExistingEntity(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil)
	id := uuid.New()
	require.NoError(t, e.OnEntityCreated(ctx, id))
	st, _ := e.Persistent(id)
	st.Set("KEEP", persist.BoolValue(true))

	assert.ErrorIs(t, e.OnEntityCreated(ctx, id), ErrDuplicateEntity)
	again, _ := e.Persistent(id)
	assert.Same(t, st, again)
}

func TestUnknownEntity(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil)
	id := uuid.New()

	_, err := e.Query(id, "ALTITUDE")
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.ErrorIs(t, e.OnTick(ctx, id), ErrUnknownEntity)
	assert.ErrorIs(t, e.OnEntityDestroyed(ctx, id), ErrUnknownEntity)
	assert.ErrorIs(t, e.OnSplit(id), ErrUnknownEntity)
	assert.NoError(t, e.Unsubscribe(id, noSubscription()))

	require.NoError(t, e.OnEntityCreated(ctx, id))
	require.NoError(t, e.OnEntityDestroyed(ctx, id))
	_, err = e.Query(id, "ALTITUDE")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestDestroyFlushesAndCreateLoads(t *testing.T) {
	ctx := context.Background()
	store := &countingStorage{Memory: storage.NewMemory()}
	e := newEngine(t, nil, store)
	id := uuid.New()

	require.NoError(t, e.OnEntityCreated(ctx, id))
	st, _ := e.Persistent(id)
	st.Set("ALTITUDE_LOCK", persist.IntValue(1))
	require.NoError(t, e.OnEntityDestroyed(ctx, id))
	assert.Equal(t, 1, store.Writes())

	require.NoError(t, e.OnEntityCreated(ctx, id))
	v, err := e.Query(id, "PERSISTENT_ALTITUDE_LOCK")
	require.NoError(t, err)
	assert.Equal(t, vars.Number(1), v)

	// Unchanged since load: nothing to write.
	require.NoError(t, e.OnEntityDestroyed(ctx, id))
	assert.Equal(t, 1, store.Writes())
}

func TestFlushFailureStillRemovesEntity(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := &countingStorage{Memory: storage.NewMemory(), fail: boom}
	e := newEngine(t, nil, store)
	id := uuid.New()
	require.NoError(t, e.OnEntityCreated(ctx, id))
	st, _ := e.Persistent(id)
	st.Set("X", persist.IntValue(1))

	assert.ErrorIs(t, e.OnEntityDestroyed(ctx, id), boom)
	_, err := e.Computer(id)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	id := uuid.New()
	require.NoError(t, mem.Write(ctx, StorageKey(id), []byte(`vars:
  - {name: GOOD, type: int, value: "4"}
  - {name: BAD, type: int, value: "four"}
  - {name: ODD, type: string, value: "x"}
`)))

	e := newEngine(t, nil, mem)
	require.NoError(t, e.OnEntityCreated(ctx, id))
	st, _ := e.Persistent(id)
	assert.Equal(t, []string{"GOOD"}, st.Keys())
}

func TestEndSessionFlushesEverything(t *testing.T) {
	ctx := context.Background()
	store := &countingStorage{Memory: storage.NewMemory()}
	e := newEngine(t, nil, store)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, id := range ids {
		require.NoError(t, e.OnEntityCreated(ctx, id))
		st, _ := e.Persistent(id)
		st.Set("N", persist.IntValue(int64(i)))
	}
	require.NoError(t, e.RegisterComplex("MATH_ONE", evaluator.Math{
		Op: evaluator.OpSum, Operands: []vars.Operand{vars.ConstOperand(1)},
	}))

	require.NoError(t, e.EndSession(ctx))
	assert.Equal(t, 3, store.Writes())
	assert.Empty(t, e.Entities())
	assert.Equal(t, 3, store.Len())

	// Session-scoped definitions are gone too.
	require.NoError(t, e.OnEntityCreated(ctx, ids[0]))
	v, err := e.Query(ids[0], "MATH_ONE")
	require.NoError(t, err)
	assert.Equal(t, vars.Text("MATH_ONE"), v)
}

func TestTickAndSubscribe(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	src := datasource.NewScripted()
	for _, g := range []bool{false, false, true, true} {
		src.Append(id, datasource.Readings{Flags: map[string]bool{"GEAR": g}})
	}
	e := newEngine(t, src, nil)
	require.NoError(t, e.OnEntityCreated(ctx, id))

	var got []float64
	sub, err := e.Subscribe(id, "GEAR", func(_ string, v float64) { got = append(got, v) })
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, e.OnTick(ctx, id))
	}
	assert.Equal(t, []float64{0, 1}, got)

	require.NoError(t, e.Unsubscribe(id, sub))
	require.NoError(t, e.Unsubscribe(id, sub))
}

func TestRegisterEvaluatorSource(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil)
	id := uuid.New()
	require.NoError(t, e.OnEntityCreated(ctx, id))

	calls := 0
	src := evaluator.NewMapSource().Add("THROTTLE_CMD", true, func() (vars.Variant, error) {
		calls++
		if calls == 1 {
			return vars.NaN(), errors.New("not ready")
		}
		return vars.Number(0.5), nil
	})
	require.NoError(t, e.RegisterEvaluatorSource(id, src))
	require.NoError(t, e.OnTick(ctx, id))

	v, _ := e.Query(id, "THROTTLE_CMD")
	f, _ := v.Float()
	assert.NotEqual(t, 0.5, f)
	v, _ = e.Query(id, "THROTTLE_CMD")
	assert.Equal(t, vars.Number(0.5), v)
	assert.ErrorIs(t, e.RegisterEvaluatorSource(uuid.New(), src), ErrUnknownEntity)
}

func TestComplexRegisteredAfterQueryIsResolved(t *testing.T) {
	ctx := context.Background()
	src := &datasource.Static{Readings: datasource.Readings{Values: map[string]float64{"ALTITUDE": 500}}}
	e := newEngine(t, src, nil)
	early, late := uuid.New(), uuid.New()
	require.NoError(t, e.OnEntityCreated(ctx, early))
	require.NoError(t, e.OnTick(ctx, early))

	v, err := e.Query(early, "MATH_ALT2")
	require.NoError(t, err)
	assert.Equal(t, vars.Text("MATH_ALT2"), v)

	require.NoError(t, e.RegisterComplex("MATH_ALT2", evaluator.Math{
		Op:       evaluator.OpSum,
		Operands: []vars.Operand{vars.ParseOperand("ALTITUDE"), vars.ParseOperand("ALTITUDE")},
	}))
	require.NoError(t, e.OnEntityCreated(ctx, late))
	for _, id := range []uuid.UUID{early, late} {
		require.NoError(t, e.OnTick(ctx, id))
		v, err = e.Query(id, "MATH_ALT2")
		require.NoError(t, err)
		assert.Equal(t, vars.Number(1000), v)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefreshRate = 0
	_, err := New(cfg, nil, nil, nil, nil)
	assert.Error(t, err)
}
