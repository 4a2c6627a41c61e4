// Package workers provides a bounded concurrent fan-out helper used by the
// snapshot ingestor (C9) to fetch multiple title XML documents for one
// release point in parallel. Adapted from the teacher's SimpleWorkerPool:
// semaphore-based concurrency control with no task abstraction overhead,
// since every call site here runs one homogeneous fetch-and-parse operation
// per title.
package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of concurrently in-flight operations submitted via Run.
type Pool struct {
	limit int
}

// New creates a Pool with the given concurrency limit. A limit <= 0 defaults
// to runtime.NumCPU().
func New(limit int) *Pool {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &Pool{limit: limit}
}

// Run executes fn(ctx, i) for i in [0, n) with at most p.limit running
// concurrently. It returns the first error encountered; remaining in-flight
// calls are allowed to finish (errgroup does not cancel siblings unless ctx
// is derived from the group, which Run does here so the caller's cancellation
// propagates to items not yet started).
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.limit)

	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			return fn(gctx, i)
		})
	}

	return group.Wait()
}
