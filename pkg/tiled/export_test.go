package tiled

// Export internal functions for testing.
// This file is only compiled during tests.

// CheckByteOrderForTesting reports the error Open returns on a CPU of the
// given byte order.
func CheckByteOrderForTesting(little bool) error {
	return checkByteOrder(little)
}

// CheckMappableForTesting reports whether size is mappable on a platform
// whose int tops out at maxInt.
func CheckMappableForTesting(size, maxInt int64) error {
	return checkMappable(size, maxInt)
}
