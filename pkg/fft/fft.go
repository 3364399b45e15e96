// Package fft provides the radix-2 building blocks used by the out-of-core
// image transform: a bit-reversal permutation table and an in-place iterative
// decimation-in-time kernel over complex64 lines.
//
// The kernel knows nothing about tiles, channels or images. Callers are
// expected to place their input at bit-reversed positions while copying it
// into the line, which removes the separate permutation pass:
//
//	rev, _ := fft.BitReversal(len(line))
//	for k, v := range input {
//	    line[rev[k]] = v
//	}
//	_ = fft.Transform(fft.Forward, line)
package fft

import (
	"fmt"
	"math"
)

// Sign selects the transform direction.
type Sign int

const (
	// Forward applies the unnormalized transform with rotation e^{+iθ}.
	Forward Sign = 1

	// Inverse applies the e^{-iθ} rotation and divides every element by the
	// line length.
	Inverse Sign = -1
)

// Neg returns the opposite direction.
func (s Sign) Neg() Sign {
	return -s
}

// String implements [fmt.Stringer].
func (s Sign) String() string {
	switch s {
	case Forward:
		return "forward"
	case Inverse:
		return "inverse"
	default:
		return fmt.Sprintf("Sign(%d)", int(s))
	}
}

// Transform runs the in-place radix-2 transform on buf, whose length must be
// a power of two and whose contents must already be in bit-reversed order.
//
// The twiddle factor of each stage is advanced by the recurrence w += w·k,
// with k derived from the half-angle identity cos θ − 1 = −2·sin²(θ/2), so
// each stage costs two sine evaluations regardless of its width.
func Transform(sign Sign, buf []complex64) error {
	if sign != Forward && sign != Inverse {
		return fmt.Errorf("transform: %w: %d", ErrInvalidSign, int(sign))
	}

	n := len(buf)
	if !IsPow2(n) {
		return fmt.Errorf("transform of length %d: %w", n, ErrInvalidLength)
	}

	s := float64(sign)

	for stage := 1; stage < n; stage *= 2 {
		a := math.Sin(0.5 * s * math.Pi / float64(stage))
		b := math.Sin(s * math.Pi / float64(stage))
		k := complex(-2.0*a*a, b)
		w := complex(1.0, 0.0)

		for m := range stage {
			w64 := complex64(w)

			for i := m; i < n; i += stage * 2 {
				t := w64 * buf[i+stage]
				buf[i+stage] = buf[i] - t
				buf[i] += t
			}

			w += w * k
		}
	}

	if sign == Inverse {
		scale := complex(1/float32(n), 0)
		for i := range buf {
			buf[i] *= scale
		}
	}

	return nil
}
