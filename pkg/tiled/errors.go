package tiled

import "errors"

// Sentinel errors returned by tiled operations.
//
// Callers should use [errors.Is] to check error kinds:
//
//	if errors.Is(err, tiled.ErrParameter) {
//	    // wrong shape for this file, or unguessable size
//	}
var (
	// ErrParameter indicates that image parameters are invalid, cannot be
	// guessed from the file size, or do not match the size of the file.
	//
	// This is a caller error.
	ErrParameter = errors.New("gigo: parameter error")

	// ErrIO indicates that a system call failed (stat, open, write, mmap,
	// munmap, msync, close). The underlying error is wrapped as well.
	ErrIO = errors.New("gigo: i/o error")

	// ErrBusy indicates that the image file is already mapped by another
	// [Store], in this process or in another one.
	//
	// Recovery: close the other store first.
	ErrBusy = errors.New("gigo: image busy")

	// ErrClosed indicates the [Store] has already been closed.
	//
	// This is a programming error.
	ErrClosed = errors.New("gigo: closed")
)
