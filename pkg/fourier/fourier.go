// Package fourier runs the 2D Fourier transform of a tiled image one tile
// row (or tile column) at a time, so only a strip of the image is ever held
// in scratch memory.
//
// A pass gathers the strip into per-channel lines, placing each sample at
// its bit-reversed position, transforms every line with [fft.Transform], and
// scatters the result back into the tiles. Forward output is centered: the
// zero frequency lands at (H/2, W/2). Inverse passes expect centered input.
//
// Basic usage:
//
//	store, err := tiled.Open(path, params, tiled.Options{})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = fourier.Transform2D(store, false, fourier.Options{})
//
// Units are independent. They are split into contiguous chunks over a worker
// pool and every chunk owns its scratch buffer. A pass returns after all
// chunks have finished.
package fourier

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinalkan/gigo/internal/workerpool"
	"github.com/calvinalkan/gigo/pkg/fft"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// Image is the view of a tiled image a pass needs. [*tiled.Store] satisfies it.
type Image interface {
	Params() tiled.Params
	Pixel(r, c, i, j int) []complex64
}

// Options configures [Run] and [Transform2D].
type Options struct {
	// Workers is the number of goroutines. Zero or less uses GOMAXPROCS.
	Workers int

	// MaxScratchBytes bounds the scratch buffers plus the bit-reversal table
	// of a pass. A pass runs fewer chunks than Workers when their strips do
	// not all fit, and is refused only when a single strip does not. Zero
	// means unlimited.
	MaxScratchBytes int64

	// Logger receives pass timings (debug level) and failures (error level).
	// Nil discards everything.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return o.Logger
}

// Run performs one 1D pass over img: along rows, or along columns with
// [Transpose]. Two passes with the same direction, one of them transposed,
// give the 2D transform.
//
// Possible errors:
//   - [ErrInvalidFlags]: unknown bits in flags
//   - [ErrAllocation]: one strip does not fit the scratch limit; img is untouched
func Run(img Image, flags Flags, opts Options) error {
	if flags&^flagMask != 0 {
		return fmt.Errorf("run %#x: %w", uint8(flags), ErrInvalidFlags)
	}

	log := opts.logger()

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	pl, err := newPlan(img.Params(), flags, pool, opts.MaxScratchBytes)
	if err != nil {
		log.Error("pass refused", "flags", flags.String(), "err", err)

		return err
	}

	return pl.run(img, pool, log)
}

// Transform2D runs the row pass and then the column pass on one shared
// worker pool. Both passes are planned before either touches img.
//
// Possible errors: [ErrAllocation].
func Transform2D(img Image, inverse bool, opts Options) error {
	var flags Flags
	if inverse {
		flags = Inverse
	}

	log := opts.logger()

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	params := img.Params()

	rows, err := newPlan(params, flags, pool, opts.MaxScratchBytes)
	if err != nil {
		log.Error("pass refused", "flags", flags.String(), "err", err)

		return err
	}

	cols, err := newPlan(params, flags|Transpose, pool, opts.MaxScratchBytes)
	if err != nil {
		log.Error("pass refused", "flags", (flags | Transpose).String(), "err", err)

		return err
	}

	err = rows.run(img, pool, log)
	if err != nil {
		return err
	}

	return cols.run(img, pool, log)
}

// plan holds the geometry and the buffers of one pass.
type plan struct {
	flags     Flags
	sign      fft.Sign
	transpose bool

	l, s, p int // tile log2, tile edge, channels
	units   int // tile rows, or tile columns with Transpose
	across  int // tiles along a line
	lineLen int
	dimLog2 int

	rev     []int
	limit   int           // chunk cap passed to the pool
	scratch [][]complex64 // one per chunk
}

func newPlan(params tiled.Params, flags Flags, pool *workerpool.Pool, maxBytes int64) (*plan, error) {
	pl := &plan{
		flags:     flags,
		sign:      flags.sign(),
		transpose: flags&Transpose != 0,
		l:         params.L,
		s:         params.TileEdge(),
		p:         params.P,
	}

	if pl.transpose {
		pl.units, pl.across = params.GridWidth(), params.GridHeight()
		pl.lineLen, pl.dimLog2 = params.Height(), params.N
	} else {
		pl.units, pl.across = params.GridHeight(), params.GridWidth()
		pl.lineLen, pl.dimLog2 = params.Width(), params.M
	}

	strip := pl.p * pl.s * pl.lineLen
	pl.limit = pool.NumWorkers()

	// 8 bytes per complex64 and per table entry.
	if maxBytes > 0 {
		table, stripBytes := int64(pl.lineLen)*8, int64(strip)*8

		fit := (maxBytes - table) / stripBytes
		if maxBytes < table || fit < 1 {
			return nil, fmt.Errorf("%s pass needs at least %d scratch bytes, limit %d: %w",
				flags, table+stripBytes, maxBytes, ErrAllocation)
		}

		pl.limit = int(min(fit, int64(pl.limit)))
	}

	chunks := pool.ChunksLimit(pl.units, pl.limit)

	rev, err := fft.BitReversal(pl.lineLen)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", flags, err)
	}

	pl.rev = rev

	pl.scratch = make([][]complex64, chunks)
	for i := range pl.scratch {
		pl.scratch[i] = make([]complex64, strip)
	}

	return pl, nil
}

func (pl *plan) run(img Image, pool *workerpool.Pool, log *slog.Logger) error {
	start := time.Now()
	errs := make([]error, len(pl.scratch))

	pool.ParallelForLimit(pl.units, pl.limit, func(chunk, first, end int) {
		buf := pl.scratch[chunk]

		for u := first; u < end; u++ {
			pl.gather(img, u, buf)

			err := pl.transform(buf)
			if err != nil {
				errs[chunk] = fmt.Errorf("%s pass unit %d: %w", pl.flags, u, err)

				return
			}

			pl.scatter(img, u, buf)
		}
	})

	err := errors.Join(errs...)
	if err != nil {
		log.Error("pass failed", "flags", pl.flags.String(), "err", err)

		return err
	}

	log.Debug("pass done",
		"flags", pl.flags.String(),
		"units", pl.units,
		"chunks", len(pl.scratch),
		"line", pl.lineLen,
		"elapsed", time.Since(start))

	return nil
}

// Scratch layout: channel k, line i starts at k·s·L + i·L.

func (pl *plan) gather(img Image, unit int, buf []complex64) {
	lineLen, plane := pl.lineLen, pl.s*pl.lineLen

	for a := range pl.across {
		r, c := unit, a
		if pl.transpose {
			r, c = a, unit
		}

		for i := range pl.s {
			for j := range pl.s {
				line, x := i, (a<<pl.l)+j
				if pl.transpose {
					line, x = j, (a<<pl.l)+i
				}

				at := line*lineLen + pl.rev[Offset(x, pl.dimLog2, pl.sign)]

				for k, v := range img.Pixel(r, c, i, j) {
					buf[k*plane+at] = v
				}
			}
		}
	}
}

func (pl *plan) transform(buf []complex64) error {
	for off := 0; off < len(buf); off += pl.lineLen {
		err := fft.Transform(pl.sign, buf[off:off+pl.lineLen])
		if err != nil {
			return err
		}
	}

	return nil
}

func (pl *plan) scatter(img Image, unit int, buf []complex64) {
	lineLen, plane := pl.lineLen, pl.s*pl.lineLen
	back := pl.sign.Neg()

	for a := range pl.across {
		r, c := unit, a
		if pl.transpose {
			r, c = a, unit
		}

		for i := range pl.s {
			for j := range pl.s {
				line, x := i, (a<<pl.l)+j
				if pl.transpose {
					line, x = j, (a<<pl.l)+i
				}

				at := line*lineLen + Offset(x, pl.dimLog2, back)

				px := img.Pixel(r, c, i, j)
				for k := range px {
					px[k] = buf[k*plane+at]
				}
			}
		}
	}
}
