// Package parallel runs independent loop iterations on a bounded number of
// goroutines.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunksPerWorker controls how finely the index range is split so that
// uneven iterations still balance across workers.
const chunksPerWorker = 4

// Workers resolves a configured worker count; values <= 0 mean one worker per
// CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// For calls fn(i) for every i in [0, n) using at most workers goroutines and
// returns once all calls have finished.
func For(n, workers int, fn func(i int)) {
	_ = ForErr(n, workers, func(i int) error {
		fn(i)
		return nil
	})
}

// ForErr is For for iterations that can fail. The first error is returned
// after all started chunks have finished; chunks not yet started are skipped.
func ForErr(n, workers int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers)

	chunk := (n + workers*chunksPerWorker - 1) / (workers * chunksPerWorker)
	if chunk < 1 {
		chunk = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
