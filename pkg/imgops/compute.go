package imgops

import (
	"fmt"
	"math/cmplx"
	"time"

	"github.com/calvinalkan/gigo/internal/workerpool"
)

// UnaryOp rewrites every component of an image on its own.
type UnaryOp struct {
	name string
	fn   func(z complex64) complex64
}

func (op UnaryOp) String() string { return op.name }

// BinaryOp combines every component of a destination image with the
// component at the same position of a source image.
type BinaryOp struct {
	name string
	fn   func(d, s complex64) complex64
}

func (op BinaryOp) String() string { return op.name }

// Unary operations.
var (
	// Invert maps z to 1 − |z|.
	Invert = UnaryOp{"invert", func(z complex64) complex64 {
		return complex(1-abs(z), 0)
	}}

	// Exp is the complex exponential.
	Exp = UnaryOp{"exp", func(z complex64) complex64 {
		return complex64(cmplx.Exp(complex128(z)))
	}}

	// Log is the principal complex logarithm.
	Log = UnaryOp{"log", func(z complex64) complex64 {
		return complex64(cmplx.Log(complex128(z)))
	}}

	// NonZero maps z to 1 if |z| > 0, else 0.
	NonZero = UnaryOp{"nonzero", func(z complex64) complex64 {
		if abs(z) > 0 {
			return 1
		}

		return 0
	}}
)

// Scale multiplies every component by k.
func Scale(k float32) UnaryOp {
	return UnaryOp{fmt.Sprintf("scale(%g)", k), func(z complex64) complex64 {
		return z * complex(k, 0)
	}}
}

// Threshold maps z to 1 if lo ≤ |z| ≤ hi, else 0.
func Threshold(lo, hi float32) UnaryOp {
	return UnaryOp{fmt.Sprintf("threshold(%g, %g)", lo, hi), func(z complex64) complex64 {
		if m := abs(z); m >= lo && m <= hi {
			return 1
		}

		return 0
	}}
}

// Binary operations. Min and Max compare by magnitude.
var (
	Add = BinaryOp{"add", func(d, s complex64) complex64 { return d + s }}
	Sub = BinaryOp{"sub", func(d, s complex64) complex64 { return d - s }}
	Mul = BinaryOp{"mul", func(d, s complex64) complex64 { return d * s }}
	Div = BinaryOp{"div", func(d, s complex64) complex64 { return d / s }}

	Pow = BinaryOp{"pow", func(d, s complex64) complex64 {
		return complex64(cmplx.Pow(complex128(d), complex128(s)))
	}}

	Min = BinaryOp{"min", func(d, s complex64) complex64 {
		if abs(d) < abs(s) {
			return d
		}

		return s
	}}

	Max = BinaryOp{"max", func(d, s complex64) complex64 {
		if abs(d) > abs(s) {
			return d
		}

		return s
	}}
)

// Interpolate blends d toward s in polar form: magnitude and phase move
// linearly by t.
func Interpolate(t float32) BinaryOp {
	return BinaryOp{fmt.Sprintf("interpolate(%g)", t), func(d, s complex64) complex64 {
		u := float64(t)
		m := float64(abs(d))*(1-u) + float64(abs(s))*u
		p := cmplx.Phase(complex128(d))*(1-u) + cmplx.Phase(complex128(s))*u

		return complex64(cmplx.Rect(m, p))
	}}
}

// Wiener deconvolves d by the transfer function s with noise to signal
// ratio k: d·|s|² / (s·(|s|² + k)).
func Wiener(k float32) BinaryOp {
	return BinaryOp{fmt.Sprintf("wiener(%g)", k), func(d, s complex64) complex64 {
		m := abs(s)
		mm := m * m

		return d * complex(mm, 0) / (s * complex(mm+k, 0))
	}}
}

// Apply runs op over every component of dst.
//
// Possible errors: [ErrUnknownOp] (zero op).
func Apply(dst Image, op UnaryOp, opts Options) error {
	if op.fn == nil {
		return fmt.Errorf("apply: %w", ErrUnknownOp)
	}

	start := time.Now()
	params := dst.Params()

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	forTiles(pool, params, func(_, r, c int) {
		tile := dst.Tile(r, c)
		for q, z := range tile {
			tile[q] = op.fn(z)
		}
	})

	opts.logger().Debug("apply done", "op", op.name, "elapsed", time.Since(start))

	return nil
}

// Combine sets every component of dst to op(dst, src). Both images must
// have identical parameters, tile size included.
//
// Possible errors: [ErrUnknownOp] (zero op), [ErrShape].
func Combine(dst, src Image, op BinaryOp, opts Options) error {
	if op.fn == nil {
		return fmt.Errorf("combine: %w", ErrUnknownOp)
	}

	params := dst.Params()
	if sp := src.Params(); sp != params {
		return fmt.Errorf("combine: %s with %s: %w", params, sp, ErrShape)
	}

	start := time.Now()

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	forTiles(pool, params, func(_, r, c int) {
		d, s := dst.Tile(r, c), src.Tile(r, c)
		for q := range d {
			d[q] = op.fn(d[q], s[q])
		}
	})

	opts.logger().Debug("combine done", "op", op.name, "elapsed", time.Since(start))

	return nil
}

func abs(z complex64) float32 {
	return float32(cmplx.Abs(complex128(z)))
}
