// Package imgops implements the whole-image operations of gigo on tiled
// images: frequency windows, reductions, region copies, pixel algebra and
// point spread kernels.
//
// Every operation walks the image tile by tile, so it touches the mapping in
// file order, and splits the tiles over a worker pool. Operations that write
// do so in place; callers sync and close the store afterwards.
//
//	store, err := tiled.Open(path, params, tiled.Options{})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	sums, err := imgops.Measure(store, imgops.Sum, imgops.Options{})
package imgops

import (
	"errors"
	"log/slog"

	"github.com/calvinalkan/gigo/internal/workerpool"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// Sentinel errors returned by imgops operations.
var (
	// ErrShape indicates that two images taking part in one operation have
	// different parameters.
	ErrShape = errors.New("imgops: image shapes differ")

	// ErrRegion indicates a region or center outside an image.
	ErrRegion = errors.New("imgops: region outside image")

	// ErrWindow indicates an invalid window or kernel definition.
	ErrWindow = errors.New("imgops: invalid window")

	// ErrUnknownOp indicates an unknown operation name or a zero operation.
	ErrUnknownOp = errors.New("imgops: unknown operation")
)

// Image is the view of a tiled image the operations need. [*tiled.Store]
// satisfies it.
type Image interface {
	Params() tiled.Params
	Tile(r, c int) []complex64
	Component(y, x int) []complex64
}

// Options configures every operation.
type Options struct {
	// Workers is the number of goroutines. Zero or less uses GOMAXPROCS.
	Workers int

	// Logger receives timings (debug level). Nil discards everything.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return o.Logger
}

// forTiles calls fn for every tile of a grid shaped like params, tiles split
// into contiguous runs over pool. fn receives the chunk index of its run.
func forTiles(pool *workerpool.Pool, params tiled.Params, fn func(chunk, r, c int)) {
	w := params.GridWidth()

	pool.ParallelFor(params.GridHeight()*w, func(chunk, start, end int) {
		for u := start; u < end; u++ {
			fn(chunk, u/w, u%w)
		}
	})
}

// tileChunks is the number of chunk indices forTiles hands out.
func tileChunks(pool *workerpool.Pool, params tiled.Params) int {
	return pool.Chunks(params.GridHeight() * params.GridWidth())
}
