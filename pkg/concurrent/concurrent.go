package concurrent

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for each element in a separate goroutine, at most
// limit at a time (unbounded when limit <= 0). It waits for all goroutines
// and returns the first error; the context passed to action is cancelled
// once any action fails.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			return action(gctx, item)
		})
	}
	return g.Wait()
}

// ForEachAll runs action for each element like ForEach, but never cancels
// the remaining actions and returns every error joined.
func ForEachAll[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	g := errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, item := range items {
		g.Go(func() error {
			if err := action(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
