package tiled

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/natefinch/atomic"
)

// Reserve creates (or replaces) the image cache file at path with the size
// implied by params, every component set to fill.
//
// The content is streamed through a fixed buffer of reserveChunk components,
// so memory use does not depend on the image size. The file is written to a
// temporary sibling and renamed over path; a failed Reserve leaves any
// previous file untouched. A new file is created with mode 0644; a replaced
// file keeps its mode.
//
// Possible errors:
//   - [ErrParameter]: invalid params
//   - [ErrIO]: create, write, sync or rename failed, or the written file is short
func Reserve(path string, params Params, fill complex64, opts Options) error {
	log := opts.logger().With("op", "reserve", "path", path)

	err := params.Validate()
	if err != nil {
		log.Error("invalid parameters", "params", params.String(), "err", err)

		return fmt.Errorf("reserve %s: %w", path, err)
	}

	size := params.Size()

	// atomic.WriteFile keeps the mode of a file it replaces; new files start
	// out at the temp file's 0600.
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	err = atomic.WriteFile(path, newFillReader(fill, size))
	if err != nil {
		log.Error("write failed", "err", err)

		return fmt.Errorf("reserve %s: write: %w: %w", path, ErrIO, err)
	}

	if created {
		err = os.Chmod(path, newFileMode)
		if err != nil {
			log.Error("chmod failed", "err", err)

			return fmt.Errorf("reserve %s: chmod: %w: %w", path, ErrIO, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Error("stat failed", "err", err)

		return fmt.Errorf("reserve %s: stat: %w: %w", path, ErrIO, err)
	}

	if info.Size() != size {
		log.Error("short write", "want", size, "got", info.Size())

		return fmt.Errorf("reserve %s: short write: %d of %d bytes: %w", path, info.Size(), size, ErrIO)
	}

	log.Debug("reserved", "params", params.String(), "bytes", size)

	return nil
}

// fillReader yields exactly remaining bytes of a repeated complex64 value.
type fillReader struct {
	pattern   []byte
	pos       int
	remaining int64
}

func newFillReader(fill complex64, size int64) *fillReader {
	pattern := make([]byte, reserveChunk*componentSize)

	for i := 0; i < len(pattern); i += componentSize {
		binary.LittleEndian.PutUint32(pattern[i:], math.Float32bits(real(fill)))
		binary.LittleEndian.PutUint32(pattern[i+4:], math.Float32bits(imag(fill)))
	}

	return &fillReader{pattern: pattern, remaining: size}
}

func (r *fillReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n := 0
	for n < len(p) {
		c := copy(p[n:], r.pattern[r.pos:])
		n += c
		r.pos = (r.pos + c) % len(r.pattern)
	}

	r.remaining -= int64(n)

	return n, nil
}
