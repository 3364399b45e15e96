package fourier

import (
	"strings"

	"github.com/calvinalkan/gigo/pkg/fft"
)

// Flags select the direction and orientation of a pass. Zero is a forward
// transform along rows.
type Flags uint8

const (
	// Inverse runs the inverse transform and expects centered input.
	Inverse Flags = 1 << iota

	// Transpose transforms columns (one unit per tile column) instead of rows.
	Transpose

	flagMask = Inverse | Transpose
)

func (f Flags) sign() fft.Sign {
	if f&Inverse != 0 {
		return fft.Inverse
	}

	return fft.Forward
}

// String implements [fmt.Stringer].
func (f Flags) String() string {
	parts := make([]string, 0, 2)

	if f&Inverse != 0 {
		parts = append(parts, "inverse")
	} else {
		parts = append(parts, "forward")
	}

	if f&Transpose != 0 {
		parts = append(parts, "columns")
	} else {
		parts = append(parts, "rows")
	}

	return strings.Join(parts, "|")
}

// Offset maps position x of a line of length 2^dimLog2 to its transform
// index. A positive sign is the identity; a negative sign rotates by half a
// line, which moves the zero frequency to the center:
//
//	(x + 2^(dimLog2−1)) & (2^dimLog2 − 1)
func Offset(x, dimLog2 int, sign fft.Sign) int {
	if sign > 0 {
		return x
	}

	n := 1 << dimLog2

	return (x + n>>1) & (n - 1)
}
