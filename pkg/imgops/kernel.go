package imgops

import (
	"fmt"
	"math"
	"time"

	"github.com/calvinalkan/gigo/internal/workerpool"
)

// KernelShape is the profile of a point spread kernel.
type KernelShape uint8

const (
	// KernelDisc is 1 inside the radius and 0 outside.
	KernelDisc KernelShape = iota + 1

	// KernelGauss is the normal density with standard deviation radius.
	KernelGauss
)

func (k KernelShape) String() string {
	switch k {
	case KernelDisc:
		return "disc"
	case KernelGauss:
		return "gauss"
	default:
		return fmt.Sprintf("KernelShape(%d)", uint8(k))
	}
}

// ParseKernelShape returns the kernel shape named by [KernelShape.String].
func ParseKernelShape(name string) (KernelShape, error) {
	for _, k := range []KernelShape{KernelDisc, KernelGauss} {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("kernel %q: %w", name, ErrUnknownOp)
}

// Kernel overwrites every channel of img with a point spread kernel centered
// on pixel (0, 0), wrapping around the edges, and normalized to sum to one.
// Its forward transform carries no phase ramp, so multiplying it with a
// transformed image and transforming back convolves.
//
// Possible errors: [ErrWindow] (unknown shape, radius not positive, or a
// kernel with no weight at all).
func Kernel(img Image, shape KernelShape, radius float64, opts Options) error {
	if shape != KernelDisc && shape != KernelGauss {
		return fmt.Errorf("kernel: %s: %w", shape, ErrWindow)
	}

	if !(radius > 0) {
		return fmt.Errorf("kernel: radius %g is not positive: %w", radius, ErrWindow)
	}

	start := time.Now()
	params := img.Params()
	l, s, p := params.L, params.TileEdge(), params.P
	halfH, halfW := params.Height()/2, params.Width()/2
	rr := radius * radius

	weight := func(y, x int) float64 {
		dy := (y ^ halfH) - halfH
		dx := (x ^ halfW) - halfW
		dd := float64(dy*dy + dx*dx)

		if shape == KernelDisc {
			if dd < rr {
				return 1
			}

			return 0
		}

		return math.Exp(-dd/(2*rr)) / (2 * math.Pi * rr)
	}

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	sums := make([]float64, tileChunks(pool, params))

	forTiles(pool, params, func(chunk, r, c int) {
		for i := range s {
			for j := range s {
				sums[chunk] += weight(r<<l+i, c<<l+j)
			}
		}
	})

	var total float64
	for _, v := range sums {
		total += v
	}

	if total == 0 {
		return fmt.Errorf("kernel: %s of radius %g has no weight: %w", shape, radius, ErrWindow)
	}

	forTiles(pool, params, func(_, r, c int) {
		tile := img.Tile(r, c)

		for i := range s {
			for j := range s {
				v := complex(float32(weight(r<<l+i, c<<l+j)/total), 0)

				px := tile[(s*i+j)*p : (s*i+j+1)*p]
				for q := range px {
					px[q] = v
				}
			}
		}
	})

	opts.logger().Debug("kernel done", "shape", shape.String(), "sum", total, "elapsed", time.Since(start))

	return nil
}
