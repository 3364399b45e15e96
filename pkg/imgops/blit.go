package imgops

import (
	"fmt"
	"time"

	"github.com/calvinalkan/gigo/internal/workerpool"
)

// Region is a pixel rectangle of a source image. A zero W or H means the
// full source width or height.
type Region struct {
	X, Y, W, H int
}

// Blit copies the src pixels inside from to dst with the region's top-left
// corner at (x, y). The first min(src P, dst P) channels are copied; the
// remaining dst channels keep their values.
//
// dst and src must be different stores: a file can only be opened once.
//
// Possible errors: [ErrRegion].
func Blit(dst Image, x, y int, src Image, from Region, opts Options) error {
	start := time.Now()
	sp, dp := src.Params(), dst.Params()

	if from.W == 0 {
		from.W = sp.Width()
	}

	if from.H == 0 {
		from.H = sp.Height()
	}

	switch {
	case from.X < 0 || from.Y < 0 || from.W < 0 || from.H < 0,
		from.X+from.W > sp.Width() || from.Y+from.H > sp.Height():
		return fmt.Errorf("blit: source region %+v in %dx%d image: %w",
			from, sp.Height(), sp.Width(), ErrRegion)
	case x < 0 || y < 0 || x+from.W > dp.Width() || y+from.H > dp.Height():
		return fmt.Errorf("blit: %dx%d region at (%d, %d) in %dx%d image: %w",
			from.H, from.W, y, x, dp.Height(), dp.Width(), ErrRegion)
	}

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	pool.ParallelFor(from.H, func(_, first, end int) {
		for i := first; i < end; i++ {
			for j := range from.W {
				copy(dst.Component(y+i, x+j), src.Component(from.Y+i, from.X+j))
			}
		}
	})

	opts.logger().Debug("blit done", "rows", from.H, "cols", from.W, "elapsed", time.Since(start))

	return nil
}
