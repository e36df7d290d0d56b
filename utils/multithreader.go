// Package utils holds the concurrency helpers shared by the other packages.
package utils

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForEach runs f for every integer in [0, n), with at most limit calls running at once. A limit
// of zero or less means one goroutine per CPU.
//
// The first error returned by f cancels the context given to the remaining calls, and is
// returned once all calls have finished. If ctx is already done, ForEach returns its error
// without calling f.
func ForEach(ctx context.Context, n, limit int, f func(context.Context, int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(gctx, i)
		})
	}

	return g.Wait()
}

// Range splits [start, end) into chunks of at most chunkSize and runs f on each chunk
// concurrently, in the same manner as ForEach. f is given the bounds of its chunk.
func Range(ctx context.Context, start, end, chunkSize int, f func(lo, hi int)) error {
	if chunkSize < 1 {
		chunkSize = 1
	}

	numChunks := (end - start + chunkSize - 1) / chunkSize
	return ForEach(ctx, numChunks, 0, func(_ context.Context, c int) error {
		lo := start + c*chunkSize
		hi := lo + chunkSize
		if hi > end {
			hi = end
		}

		f(lo, hi)
		return nil
	})
}
