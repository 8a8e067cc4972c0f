package utils

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// MultiThread runs f for every integer in [start, end), spread across a pool
// of goroutines. It blocks until the whole range has been handled.
//
// should be called sequentially, not from a separate thread; it is meant for
// the mass calculations of callers whose per-index work touches no shared
// mutable state (disjoint rows of a matrix, for instance)
//
// 'opsPerThread' is the number of indices a goroutine claims at a time
// 'threadsPerCPU' is the number of goroutines created per CPU
// both must be >= 1
func MultiThread(start, end int, f func(int), opsPerThread, threadsPerCPU int) {
	if end <= start {
		return
	}

	numThreads := runtime.NumCPU() * threadsPerCPU
	next := int64(start)

	var wg sync.WaitGroup
	wg.Add(numThreads)

	for t := 0; t < numThreads; t++ {
		go func() {
			defer wg.Done()

			for {
				i := int(atomic.AddInt64(&next, int64(opsPerThread))) - opsPerThread
				if i >= end {
					return
				}

				e := i + opsPerThread
				if e > end {
					e = end
				}

				for ; i < e; i++ {
					f(i)
				}
			}
		}()
	}

	wg.Wait()
}
