package tiled

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Options configures [Open] and [Reserve].
type Options struct {
	// Logger receives failures (error level) and lifecycle events (debug
	// level). Nil discards everything.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return o.Logger
}

// Store is an open, memory-mapped image cache file.
//
// Component slices returned by the accessors alias the mapping and are valid
// until [Store.Close]. Using them afterwards faults.
type Store struct {
	fd     int
	data   []byte      // mmap'd file, nil after Close
	z      []complex64 // data viewed as components
	path   string
	params Params
	log    *slog.Logger

	// Derived shape, cached for the accessors.
	l, s, mask, t, w, h, p int
	height, width          int
}

// Open maps the image cache file at path read/write.
//
// The file size must equal params.Size() exactly. The store takes an
// exclusive, non-blocking advisory lock on the file, so no second mapping of
// the same file can be opened while this one is alive.
//
// Possible errors:
//   - [ErrParameter]: invalid params, or file size does not match params
//   - [errors.ErrUnsupported]: big-endian CPU
//   - [ErrBusy]: the file is locked by another Store
//   - [ErrIO]: open, stat, lock or mmap failed
func Open(path string, params Params, opts Options) (*Store, error) {
	log := opts.logger().With("op", "open", "path", path)

	err := checkByteOrder(isLittleEndian)
	if err != nil {
		log.Error("unsupported platform", "err", err)

		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	err = params.Validate()
	if err != nil {
		log.Error("invalid parameters", "params", params.String(), "err", err)

		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		log.Error("open failed", "err", err)

		return nil, fmt.Errorf("open %s: %w: %w", path, ErrIO, err)
	}

	var stat unix.Stat_t

	err = unix.Fstat(fd, &stat)
	if err != nil {
		_ = unix.Close(fd)

		log.Error("stat failed", "err", err)

		return nil, fmt.Errorf("open %s: stat: %w: %w", path, ErrIO, err)
	}

	size := params.Size()
	if stat.Size != size {
		_ = unix.Close(fd)

		log.Error("size does not match parameters", "params", params.String(), "want", size, "got", stat.Size)

		return nil, fmt.Errorf("open %s: size %d does not match %s (%d bytes): %w",
			path, stat.Size, params, size, ErrParameter)
	}

	err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		_ = unix.Close(fd)

		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			log.Error("image is mapped elsewhere")

			return nil, fmt.Errorf("open %s: %w", path, ErrBusy)
		}

		log.Error("lock failed", "err", err)

		return nil, fmt.Errorf("open %s: flock: %w: %w", path, ErrIO, err)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)

		log.Error("mmap failed", "err", err)

		return nil, fmt.Errorf("open %s: mmap: %w: %w", path, ErrIO, err)
	}

	st := &Store{
		fd:     fd,
		data:   data,
		z:      unsafe.Slice((*complex64)(unsafe.Pointer(&data[0])), len(data)/componentSize),
		path:   path,
		params: params,
		log:    opts.logger().With("path", path),
		l:      params.L,
		s:      params.TileEdge(),
		mask:   params.TileEdge() - 1,
		t:      params.TileLen(),
		w:      params.GridWidth(),
		h:      params.GridHeight(),
		p:      params.P,
		height: params.Height(),
		width:  params.Width(),
	}

	log.Debug("mapped", "params", params.String(), "bytes", size)

	return st, nil
}

// Close unmaps the image and releases the file handle and its lock.
// Calling Close on a closed store is a no-op.
//
// Possible errors: [ErrIO] (munmap or close failed).
func (st *Store) Close() error {
	if st.data == nil {
		return nil
	}

	err := unix.Munmap(st.data)
	if err != nil {
		st.log.Error("munmap failed", "op", "close", "err", err)

		return fmt.Errorf("close %s: munmap: %w: %w", st.path, ErrIO, err)
	}

	st.data = nil
	st.z = nil

	err = unix.Close(st.fd)
	st.fd = -1

	if err != nil {
		st.log.Error("close failed", "op", "close", "err", err)

		return fmt.Errorf("close %s: %w: %w", st.path, ErrIO, err)
	}

	st.log.Debug("closed", "op", "close")

	return nil
}

// Sync flushes the mapping to the file and waits for completion.
//
// Possible errors: [ErrClosed], [ErrIO].
func (st *Store) Sync() error {
	if st.data == nil {
		return ErrClosed
	}

	err := unix.Msync(st.data, unix.MS_SYNC)
	if err != nil {
		st.log.Error("msync failed", "op", "sync", "err", err)

		return fmt.Errorf("sync %s: msync: %w: %w", st.path, ErrIO, err)
	}

	return nil
}

// Params returns the shape the store was opened with.
func (st *Store) Params() Params { return st.params }

// Path returns the file path the store was opened from.
func (st *Store) Path() string { return st.path }

// Offset returns the component offset of pixel (y, x):
//
//	(w·(y>>l) + (x>>l))·t + (s·(y&(s−1)) + (x&(s−1)))·p
func (st *Store) Offset(y, x int) int {
	r, i := y>>st.l, y&st.mask
	c, j := x>>st.l, x&st.mask

	return (st.w*r+c)*st.t + (st.s*i+j)*st.p
}

// Component returns the P interleaved components of pixel (y, x).
//
// Panics if (y, x) lies outside the image.
func (st *Store) Component(y, x int) []complex64 {
	if uint(y) >= uint(st.height) || uint(x) >= uint(st.width) {
		panic(fmt.Sprintf("tiled: pixel (%d, %d) outside %dx%d image", y, x, st.height, st.width))
	}

	off := st.Offset(y, x)

	return st.z[off : off+st.p : off+st.p]
}

// Pixel returns the P interleaved components of intra-tile pixel (i, j) of
// tile (r, c). It is the accessor for passes that already iterate tile-major.
//
// Panics if any coordinate is out of range.
func (st *Store) Pixel(r, c, i, j int) []complex64 {
	if uint(r) >= uint(st.h) || uint(c) >= uint(st.w) || uint(i) >= uint(st.s) || uint(j) >= uint(st.s) {
		panic(fmt.Sprintf("tiled: tile (%d, %d) pixel (%d, %d) outside %dx%d grid of %d",
			r, c, i, j, st.h, st.w, st.s))
	}

	off := (st.w*r+c)*st.t + (st.s*i+j)*st.p

	return st.z[off : off+st.p : off+st.p]
}

// Tile returns the s·s·P components of tile (r, c), pixels row-major with
// interleaved channels. Element-wise passes walk tiles instead of pixels.
//
// Panics if (r, c) lies outside the grid.
func (st *Store) Tile(r, c int) []complex64 {
	if uint(r) >= uint(st.h) || uint(c) >= uint(st.w) {
		panic(fmt.Sprintf("tiled: tile (%d, %d) outside %dx%d grid", r, c, st.h, st.w))
	}

	off := (st.w*r + c) * st.t

	return st.z[off : off+st.t : off+st.t]
}

// Gather de-interleaves the channels of pixel (i, j) of tile (r, c) into dst,
// channel k going to dst[k·stride].
func (st *Store) Gather(r, c, i, j int, dst []complex64, stride int) {
	for k, v := range st.Pixel(r, c, i, j) {
		dst[k*stride] = v
	}
}

// Scatter re-interleaves channel k of pixel (i, j) of tile (r, c) from
// src[k·stride].
func (st *Store) Scatter(r, c, i, j int, src []complex64, stride int) {
	px := st.Pixel(r, c, i, j)
	for k := range px {
		px[k] = src[k*stride]
	}
}

// checkByteOrder refuses big-endian CPUs. Files are little-endian on disk
// and the mapping is read in native order.
func checkByteOrder(little bool) error {
	if !little {
		return fmt.Errorf("big-endian CPUs: %w", errors.ErrUnsupported)
	}

	return nil
}

// isLittleEndian is true if the CPU uses little-endian byte order.
// Components are viewed in native order straight out of the mapping.
var isLittleEndian = func() bool {
	var buf [2]byte
	buf[0] = 0x01

	return binary.NativeEndian.Uint16(buf[:]) == 0x01
}()
