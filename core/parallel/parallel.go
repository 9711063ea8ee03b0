// Package parallel splits element-wise column work across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the column length at or below which Map runs inline.
// Scaling a few thousand values is faster than starting goroutines.
const DefaultThreshold = 4096

// Parallelize divides items into contiguous ranges, one per worker, and runs
// fn(start, end) for each range concurrently. It returns once every range is done.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) inline when items <= threshold
// and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Map writes f(src[i]) into dst[i] for every i. dst and src must have equal length.
func Map(dst, src []float64, f func(float64) float64) {
	ParallelizeWithThreshold(len(src), DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(src[i])
		}
	})
}
