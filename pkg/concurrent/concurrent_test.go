package concurrent

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachVisitsAll(t *testing.T) {
	var sum atomic.Int64
	err := ForEach(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, v int) error {
		sum.Add(int64(v))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}

func TestForEachReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestForEachAllJoinsErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	var mu sync.Mutex
	var seen []int
	err := ForEachAll(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, v int) error {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
		switch v {
		case 1:
			return a
		case 3:
			return b
		}
		return nil
	})
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	sort.Ints(seen)
	assert.Equal(t, []int{1, 2, 3}, seen)
}
