package fourier

import (
	"errors"

	"github.com/calvinalkan/gigo/pkg/fft"
)

var (
	// ErrAllocation is returned when the scratch buffers or the bit-reversal
	// table of a pass would exceed [Options.MaxScratchBytes] or the kernel
	// limits. The image is not touched.
	//
	// It is the same value as [fft.ErrAllocation].
	ErrAllocation = fft.ErrAllocation

	// ErrInvalidFlags is returned when [Flags] carries unknown bits.
	ErrInvalidFlags = errors.New("fourier: invalid flags")
)
