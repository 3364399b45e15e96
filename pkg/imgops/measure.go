package imgops

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/calvinalkan/gigo/internal/workerpool"
)

// Stat selects the reduction computed by [Measure].
type Stat uint8

const (
	// Sum adds the magnitudes of all components.
	Sum Stat = iota

	// MinMagnitude is the smallest magnitude.
	MinMagnitude

	// MaxMagnitude is the largest magnitude.
	MaxMagnitude

	// MinReal is the smallest real part.
	MinReal

	// MaxReal is the largest real part.
	MaxReal
)

var statNames = [...]string{"sum", "min", "max", "rmin", "rmax"}

func (s Stat) String() string {
	if int(s) < len(statNames) {
		return statNames[s]
	}

	return fmt.Sprintf("Stat(%d)", uint8(s))
}

// ParseStat returns the stat named by [Stat.String].
func ParseStat(name string) (Stat, error) {
	for i, n := range statNames {
		if n == name {
			return Stat(i), nil
		}
	}

	return 0, fmt.Errorf("stat %q: %w", name, ErrUnknownOp)
}

// Measure reduces every channel of img on its own and returns one value per
// channel.
//
// Possible errors: [ErrUnknownOp].
func Measure(img Image, stat Stat, opts Options) ([]float64, error) {
	if int(stat) >= len(statNames) {
		return nil, fmt.Errorf("measure: %s: %w", stat, ErrUnknownOp)
	}

	start := time.Now()
	params := img.Params()

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	partial := make([][]float64, tileChunks(pool, params))
	for i := range partial {
		partial[i] = make([]float64, params.P)
		for k := range partial[i] {
			partial[i][k] = stat.identity()
		}
	}

	forTiles(pool, params, func(chunk, r, c int) {
		acc := partial[chunk]

		for q, z := range img.Tile(r, c) {
			k := q % params.P
			acc[k] = stat.fold(acc[k], z)
		}
	})

	out := make([]float64, params.P)
	for k := range out {
		out[k] = stat.identity()

		for _, acc := range partial {
			out[k] = stat.combine(out[k], acc[k])
		}
	}

	opts.logger().Debug("measure done", "stat", stat.String(), "elapsed", time.Since(start))

	return out, nil
}

func (s Stat) identity() float64 {
	switch s {
	case MinMagnitude, MinReal:
		return math.Inf(1)
	case MaxMagnitude, MaxReal:
		return math.Inf(-1)
	default:
		return 0
	}
}

func (s Stat) fold(acc float64, z complex64) float64 {
	switch s {
	case Sum:
		return acc + cmplx.Abs(complex128(z))
	case MinMagnitude:
		return min(acc, cmplx.Abs(complex128(z)))
	case MaxMagnitude:
		return max(acc, cmplx.Abs(complex128(z)))
	case MinReal:
		return min(acc, float64(real(z)))
	default:
		return max(acc, float64(real(z)))
	}
}

func (s Stat) combine(a, b float64) float64 {
	switch s {
	case Sum:
		return a + b
	case MinMagnitude, MinReal:
		return min(a, b)
	default:
		return max(a, b)
	}
}
