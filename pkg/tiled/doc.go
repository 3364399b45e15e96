// Package tiled provides a memory-mapped, tile-blocked store of complex pixels
// for images far larger than memory.
//
// An image cache file is a headerless array of complex64 components. Pixels
// are grouped into square tiles of 2^L × 2^L, each tile is contiguous, and
// tiles are laid out in row-major order of the tile grid. Within a tile,
// pixels are row-major and the P channels of a pixel are interleaved. Passes
// that walk the image tile by tile touch a minimal set of pages.
//
// # Basic Usage
//
//	params := tiled.Params{L: 5, N: 14, M: 14, P: 3}
//
//	err := tiled.Reserve("/data/big.img", params, 0, tiled.Options{})
//	if err != nil {
//	    // handle [ErrParameter]/[ErrIO]
//	}
//
//	store, err := tiled.Open("/data/big.img", params, tiled.Options{})
//	if err != nil {
//	    // handle
//	}
//	defer store.Close()
//
//	px := store.Component(y, x) // len(px) == params.P, aliases the mapping
//	px[0] = complex(1, 0)
//
// # Shape
//
// The file carries no header. The shape (L, N, M, P) is supplied by the
// caller, or guessed from the file size with [GuessParams] (the tile size
// cannot be guessed).
//
// # Concurrency
//
// A [Store] holds an exclusive advisory lock on its file for its lifetime.
// Accessors are not synchronized: concurrent goroutines must touch disjoint
// pixels, which is how the transform passes partition their work.
//
// # Error Handling
//
// Errors wrap one of [ErrParameter], [ErrIO], [ErrBusy] or [ErrClosed] and
// should be checked with [errors.Is]. There are no retries; every failure is
// terminal for the operation that reported it.
package tiled
