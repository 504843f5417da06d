// Package pool is the shared worker-pool primitive scheduling per-sequence
// and per-shard tasks for index build. A Pool holds only its configured
// size; each Each call schedules its tasks through traverse.Each, and each
// Submit call starts its own goroutine.
package pool

import (
	"runtime"
	"sync"

	"github.com/grailbio/base/traverse"
)

// Pool bounds concurrent work to a configured size and exposes both a
// bounded parallel-for (Each) and a one-off submit/future primitive.
//
// traverse.Each schedules across GOMAXPROCS goroutines, so a Pool pins
// GOMAXPROCS to its configured size for the duration of Each calls; this
// mirrors the runtime.GOMAXPROCS(numCPU) tuning used elsewhere in the
// corpus rather than inventing an unverified traverse concurrency knob.
type Pool struct {
	size int
}

// New returns a Pool bounded to size concurrent tasks. size < 1 is
// treated as 1 (single-threaded, still schedules through the same path).
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size}
}

// Size reports the pool's configured concurrency bound.
func (p *Pool) Size() int {
	return p.size
}

// Each runs fn(i) for every i in [0, n) and returns the first non-nil
// error encountered (if any). The scatter phase of index build (one task
// per sequence) and the sort-and-runify phase (one task per shard) go
// through Each; query mapping does not (the overlap command maps queries
// one after another).
func (p *Pool) Each(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	prev := runtime.GOMAXPROCS(p.size)
	defer runtime.GOMAXPROCS(prev)
	return traverse.Each(n, fn)
}

// Future holds the pending result of a Submit call.
type Future[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// Get blocks until the task completes and returns its result.
func (f *Future[T]) Get() (T, error) {
	f.wg.Wait()
	return f.val, f.err
}

// Submit schedules fn on its own goroutine and returns a Future for its
// result. Unlike Each, a single Submit is not throttled by the pool's
// size — it mirrors the source engine's one-off `thread_pool_->Submit`
// calls (e.g. begin/end sub-mapping) rather than the bulk-parallel phases.
func Submit[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.val, f.err = fn()
	}()
	return f
}
