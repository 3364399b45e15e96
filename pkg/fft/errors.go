package fft

import "errors"

// Sentinel errors returned by fft operations.
var (
	// ErrInvalidLength is returned when a length is not a positive power of two.
	ErrInvalidLength = errors.New("fft: invalid length")

	// ErrInvalidSign is returned when a sign is neither [Forward] nor [Inverse].
	ErrInvalidSign = errors.New("fft: invalid sign")

	// ErrAllocation is returned when a table or buffer would exceed the
	// implementation limits.
	ErrAllocation = errors.New("fft: allocation refused")
)
