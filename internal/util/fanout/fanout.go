// Package fanout runs independent units of work concurrently and joins all of their outcomes.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Func is one unit of work. i is the index of the unit in [0, n).
type Func func(ctx context.Context, i int) error

// Run launches n units with at most limit of them running at a time and waits
// for every unit to finish. Unlike a bare errgroup, a failing unit does not
// cancel its siblings: every outcome is collected and the errors are returned
// joined, in unit order. A limit <= 0 means runtime.NumCPU().
//
// A unit that has not started when ctx is done is skipped and reports ctx.Err().
func Run(ctx context.Context, limit int, n int, fn Func) error {
	if n == 0 {
		return nil
	}

	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	var (
		group errgroup.Group
		errs  = make([]error, n)
	)

	group.SetLimit(limit)

	for i := range n {
		group.Go(func() error {
			if errs[i] = ctx.Err(); errs[i] == nil {
				errs[i] = invoke(ctx, fn, i)
			}

			return nil
		})
	}

	_ = group.Wait()

	return errors.Join(errs...)
}

// Each is Run over a slice.
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	return Run(ctx, limit, len(items), func(ctx context.Context, i int) error {
		return fn(ctx, items[i])
	})
}

// Collect is Run over a slice, gathering one result per item. Results of
// failed items are left as the zero value.
func Collect[T, R any](
	ctx context.Context,
	limit int,
	items []T,
	fn func(ctx context.Context, item T) (R, error),
) ([]R, error) {
	results := make([]R, len(items))

	err := Run(ctx, limit, len(items), func(ctx context.Context, i int) error {
		result, err := fn(ctx, items[i])
		if err != nil {
			return err
		}

		results[i] = result

		return nil
	})

	return results, err
}

func invoke(ctx context.Context, fn Func, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	return fn(ctx, i)
}

// ErrPanic is returned for a unit that panicked.
var ErrPanic = errors.New("fanout unit panicked")
