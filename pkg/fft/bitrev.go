package fft

import (
	"fmt"
	"math/bits"
)

// maxLength bounds table and line lengths. A longer line would need a scratch
// buffer far beyond anything a single worker can hold.
const maxLength = 1 << 30

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns the base-2 logarithm of n, assuming n is a power of two.
func Log2(n int) int {
	return bits.Len(uint(n)) - 1
}

// BitReversal returns the bit-reversal permutation for a radix-2 transform of
// the given length: entry k holds k with its log2(length) low bits reversed.
//
// The table is an involution, so it serves both to scatter inputs into
// bit-reversed positions and to read them back.
func BitReversal(length int) ([]int, error) {
	if !IsPow2(length) {
		return nil, fmt.Errorf("bit reversal of length %d: %w", length, ErrInvalidLength)
	}

	if length > maxLength {
		return nil, fmt.Errorf("bit reversal of length %d exceeds max %d: %w", length, maxLength, ErrAllocation)
	}

	table := make([]int, length)
	fillReversal(0, 1, table)

	return table, nil
}

// fillReversal places a into the left half and a+d into the right half of x,
// doubling the stride on each halving until blocks have size one.
func fillReversal(a, d int, x []int) {
	if len(x) == 1 {
		x[0] = a

		return
	}

	half := len(x) / 2

	fillReversal(a, d*2, x[:half])
	fillReversal(a+d, d*2, x[half:])
}
