package tiled

// Hardcoded implementation limits.
//
// They keep shift arithmetic away from overflow and bound the size of a
// single mapping. All limit violations return ErrParameter.
const (
	// Maximum log2 tile edge. A 2^16 tile of 16 channels is already 512 GiB.
	maxTileLog2 = 16

	// Maximum log2 image height or width.
	maxDimLog2 = 30

	// Maximum channels per pixel.
	maxChannels = 16

	// Maximum image cache file size (bytes).
	//
	// This is a safety guardrail, not a RAM limit. mmap does not load the
	// whole file, but larger mappings are outside what we claim to support.
	maxFileSizeBytes = int64(1) << 40 // 1 TiB

	// Components written per chunk by Reserve.
	reserveChunk = 1024

	// Bytes per complex64 component.
	componentSize = 8

	// Mode of files created by Reserve.
	newFileMode = 0o644
)
