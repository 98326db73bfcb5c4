package utils

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// IndexedFunc is one unit of work of ForEachParallel.
type IndexedFunc func(ctx context.Context, i int) error

// ForEachParallel calls f for every index in [0, n), running at most ParallelFactor calls at
// once. A failing or panicking call does not stop the others; all errors are combined in
// index order.
func ForEachParallel(ctx context.Context, n int, f IndexedFunc) error {
	errs := make([]error, n)
	var group errgroup.Group
	group.SetLimit(ParallelFactor)
	for i := 0; i < n; i++ {
		group.Go(func() error {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					errs[i] = fmt.Errorf("got panic running something in parallel: %v", thePanic)
				}
			}()
			errs[i] = f(ctx, i)
			return nil
		})
	}
	//nolint:errcheck
	group.Wait()
	return multierr.Combine(errs...)
}
