package tiled

import (
	"fmt"
	"math"
	"math/bits"
	"os"
)

// Params is the shape of an image cache file. All fields except P are log2
// values.
type Params struct {
	// L is the log2 tile edge length.
	L int

	// N is the log2 image height in pixels.
	N int

	// M is the log2 image width in pixels.
	M int

	// P is the number of complex components (channels) per pixel.
	P int
}

// String implements [fmt.Stringer].
func (p Params) String() string {
	return fmt.Sprintf("l=%d n=%d m=%d p=%d", p.L, p.N, p.M, p.P)
}

// Validate checks the shape invariants (n ≥ l, m ≥ l, p ≥ 1) and the
// implementation limits.
//
// Possible errors: [ErrParameter].
func (p Params) Validate() error {
	if p.L < 0 || p.L > maxTileLog2 {
		return fmt.Errorf("tile log2 %d outside [0, %d]: %w", p.L, maxTileLog2, ErrParameter)
	}

	if p.N < p.L || p.N > maxDimLog2 {
		return fmt.Errorf("height log2 %d outside [%d, %d]: %w", p.N, p.L, maxDimLog2, ErrParameter)
	}

	if p.M < p.L || p.M > maxDimLog2 {
		return fmt.Errorf("width log2 %d outside [%d, %d]: %w", p.M, p.L, maxDimLog2, ErrParameter)
	}

	if p.P < 1 || p.P > maxChannels {
		return fmt.Errorf("channel count %d outside [1, %d]: %w", p.P, maxChannels, ErrParameter)
	}

	// Check the exponent before shifting so Size cannot overflow.
	if p.N+p.M+3 > bits.Len64(uint64(maxFileSizeBytes)) {
		return fmt.Errorf("image of %s exceeds max file size %d: %w", p, maxFileSizeBytes, ErrParameter)
	}

	if size := p.Size(); size > maxFileSizeBytes {
		return fmt.Errorf("image size %d exceeds max file size %d: %w", size, maxFileSizeBytes, ErrParameter)
	}

	return checkMappable(p.Size(), math.MaxInt)
}

// checkMappable rejects sizes a single mapping cannot address, which on
// 32-bit platforms is far below maxFileSizeBytes.
func checkMappable(size, maxInt int64) error {
	if size > maxInt {
		return fmt.Errorf("image size %d exceeds address space %d: %w", size, maxInt, ErrParameter)
	}

	return nil
}

// TileEdge returns s = 2^L, the tile edge in pixels.
func (p Params) TileEdge() int { return 1 << p.L }

// TileLen returns t = P·s·s, the number of components per tile.
func (p Params) TileLen() int { return p.P << (2 * p.L) }

// GridHeight returns h = 2^(N−L), the tile grid height.
func (p Params) GridHeight() int { return 1 << (p.N - p.L) }

// GridWidth returns w = 2^(M−L), the tile grid width.
func (p Params) GridWidth() int { return 1 << (p.M - p.L) }

// Height returns the image height in pixels.
func (p Params) Height() int { return 1 << p.N }

// Width returns the image width in pixels.
func (p Params) Width() int { return 1 << p.M }

// Components returns the number of complex components in the image.
func (p Params) Components() int { return p.P << (p.N + p.M) }

// Size returns the image cache file size in bytes: 8·P·2^(N+M).
func (p Params) Size() int64 {
	return int64(componentSize*p.P) << (p.N + p.M)
}

// GuessParams infers N, M and P from the size of the file at path.
//
// The channel count is assumed to be 3 when the component count is divisible
// by 3 and 1 otherwise, and the per-channel sample count must be a power of
// two. An odd log2 sample count k is split into N = (k−1)/2, M = (k+1)/2,
// i.e. a 2:1 landscape image. The tile size cannot be guessed and L is
// returned as zero.
//
// Possible errors:
//   - [ErrParameter]: size is not a power of two (times 1 or 3 channels)
//   - [ErrIO]: stat failed
func GuessParams(path string) (Params, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Params{}, fmt.Errorf("stat image %s: %w: %w", path, ErrIO, err)
	}

	return guessFromSize(path, info.Size())
}

func guessFromSize(path string, size int64) (Params, error) {
	if size <= 0 || size%componentSize != 0 {
		return Params{}, fmt.Errorf("file %s size %d is not a power of two: %w", path, size, ErrParameter)
	}

	whp := uint64(size / componentSize)

	p := 1
	if whp%3 == 0 {
		p = 3
	}

	samples := whp / uint64(p)
	if samples&(samples-1) != 0 {
		return Params{}, fmt.Errorf("file %s size %d is not a power of two: %w", path, size, ErrParameter)
	}

	k := bits.Len64(samples) - 1

	params := Params{N: k / 2, M: k / 2, P: p}
	if k%2 == 1 {
		params.N = (k - 1) / 2
		params.M = (k + 1) / 2
	}

	return params, nil
}
