// Package workerpool provides a fixed-size pool of goroutines for data
// parallel passes over independent units of work.
//
// Work is partitioned statically: [Pool.ParallelFor] splits [0, n) into at
// most NumWorkers contiguous chunks and hands each chunk its index, so the
// caller can give every chunk a buffer it owns exclusively for the duration
// of the call.
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	scratch := make([][]complex64, pool.Chunks(rows))
//	for i := range scratch {
//	    scratch[i] = make([]complex64, size)
//	}
//
//	pool.ParallelFor(rows, func(chunk, start, end int) {
//	    for r := start; r < end; r++ {
//	        process(r, scratch[chunk])
//	    }
//	})
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. Workers are spawned once by [New] and
// reused by every [Pool.ParallelFor] until [Pool.Close].
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with numWorkers goroutines.
// If numWorkers <= 0, GOMAXPROCS is used.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts the pool down after pending work completes.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Chunks returns how many chunks [Pool.ParallelFor] will use for n units.
// Chunk indices passed to fn are always in [0, Chunks(n)).
func (p *Pool) Chunks(n int) int {
	return p.ChunksLimit(n, p.numWorkers)
}

// ChunksLimit is [Pool.Chunks] with at most limit chunks. A limit below one
// is treated as one.
func (p *Pool) ChunksLimit(n, limit int) int {
	if n <= 0 {
		return 0
	}

	size := p.chunkSize(n, limit)

	return (n + size - 1) / size
}

func (p *Pool) chunkSize(n, limit int) int {
	workers := max(1, min(p.numWorkers, limit, n))

	return (n + workers - 1) / workers
}

// ParallelFor calls fn(chunk, start, end) for contiguous ranges covering
// [0, n) and blocks until every call has returned. Writes made by fn are
// visible to the caller afterwards.
//
// A closed pool, or a single chunk, runs fn on the calling goroutine.
func (p *Pool) ParallelFor(n int, fn func(chunk, start, end int)) {
	p.ParallelForLimit(n, p.numWorkers, fn)
}

// ParallelForLimit is [Pool.ParallelFor] with at most limit chunks in
// flight, for callers whose per-chunk buffers are bounded. Chunk indices are
// in [0, ChunksLimit(n, limit)).
func (p *Pool) ParallelForLimit(n, limit int, fn func(chunk, start, end int)) {
	if n <= 0 {
		return
	}

	size := p.chunkSize(n, limit)
	chunks := (n + size - 1) / size

	if chunks == 1 || p.closed.Load() {
		for chunk := range chunks {
			start := chunk * size
			fn(chunk, start, min(start+size, n))
		}

		return
	}

	var wg sync.WaitGroup
	wg.Add(chunks)

	for chunk := range chunks {
		start := chunk * size
		end := min(start+size, n)

		p.workC <- workItem{
			fn: func() {
				fn(chunk, start, end)
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}
