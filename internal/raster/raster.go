// Package raster converts between ordinary raster files (PNG, TIFF) and
// tiled complex images.
//
// Import places each normalized sample in the real part and zero in the
// imaginary part. Export writes the magnitude of every component, scaled
// and clamped to [0, 1], at 16 bits per sample.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/calvinalkan/gigo/pkg/fft"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

var (
	// ErrFormat is returned for file extensions other than .png, .tif and .tiff.
	ErrFormat = errors.New("raster: unsupported format")

	// ErrShape is returned when raster dimensions are not powers of two.
	ErrShape = errors.New("raster: dimensions must be powers of two")

	// ErrChannels is returned when exporting an image with a channel count
	// other than 1 or 3.
	ErrChannels = errors.New("raster: only 1 or 3 channels can be exported")
)

const maxSample = 0xffff

// Source is the read view Export needs. [*tiled.Store] satisfies it.
type Source interface {
	Params() tiled.Params
	Component(y, x int) []complex64
}

// Sink is the write view Import needs. [*tiled.Store] satisfies it.
type Sink interface {
	Params() tiled.Params
	Component(y, x int) []complex64
	Sync() error
}

// ImportOptions configures [Import].
type ImportOptions struct {
	// TileLog2 is the requested tile size. It is lowered to fit images
	// smaller than one tile.
	TileLog2 int

	// Fit rescales rasters whose sides are not powers of two down to the
	// nearest power of two instead of failing.
	Fit bool

	// Store configures the reserved image.
	Store tiled.Options
}

// Read decodes the raster at path. The format is chosen by extension.
func Read(path string) (image.Image, error) {
	ext, err := format(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read raster: %w", err)
	}
	defer f.Close()

	var img image.Image

	switch ext {
	case ".png":
		img, err = png.Decode(f)
	default:
		img, err = tiff.Decode(f)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return img, nil
}

// Params derives the image shape for src: one channel for gray rasters,
// three otherwise.
func Params(src image.Image, tileLog2 int, fit bool) (tiled.Params, error) {
	b := src.Bounds()
	h, w := b.Dy(), b.Dx()

	if !fft.IsPow2(h) || !fft.IsPow2(w) {
		if !fit || h < 1 || w < 1 {
			return tiled.Params{}, fmt.Errorf("%dx%d: %w", w, h, ErrShape)
		}

		h, w = floorPow2(h), floorPow2(w)
	}

	n, m := fft.Log2(h), fft.Log2(w)

	p := 3
	if isGray(src) {
		p = 1
	}

	return tiled.Params{L: min(tileLog2, n, m), N: n, M: m, P: p}, nil
}

// Import reserves dst with the shape of src and fills it. It returns the
// params the image was reserved with.
func Import(src image.Image, dst string, opts ImportOptions) (tiled.Params, error) {
	params, err := Params(src, opts.TileLog2, opts.Fit)
	if err != nil {
		return tiled.Params{}, fmt.Errorf("import %s: %w", dst, err)
	}

	err = tiled.Reserve(dst, params, 0, opts.Store)
	if err != nil {
		return tiled.Params{}, fmt.Errorf("import: %w", err)
	}

	store, err := tiled.Open(dst, params, opts.Store)
	if err != nil {
		return tiled.Params{}, fmt.Errorf("import: %w", err)
	}

	err = Fill(store, src)
	if err != nil {
		_ = store.Close()

		return tiled.Params{}, fmt.Errorf("import %s: %w", dst, err)
	}

	err = store.Close()
	if err != nil {
		return tiled.Params{}, fmt.Errorf("import: %w", err)
	}

	return params, nil
}

// Fill copies src into dst, rescaling when the sizes differ, and syncs.
func Fill(dst Sink, src image.Image) error {
	params := dst.Params()
	h, w := params.Height(), params.Width()
	rect := image.Rect(0, 0, w, h)

	if params.P == 1 {
		gray := image.NewGray16(rect)
		convert(gray, src)

		for y := range h {
			for x := range w {
				v := gray.Gray16At(x, y).Y
				dst.Component(y, x)[0] = complex(float32(v)/maxSample, 0)
			}
		}

		return dst.Sync()
	}

	rgb := image.NewNRGBA64(rect)
	convert(rgb, src)

	for y := range h {
		for x := range w {
			c := rgb.NRGBA64At(x, y)
			px := dst.Component(y, x)
			px[0] = complex(float32(c.R)/maxSample, 0)
			px[1] = complex(float32(c.G)/maxSample, 0)
			px[2] = complex(float32(c.B)/maxSample, 0)
		}
	}

	return dst.Sync()
}

func convert(dst draw.Image, src image.Image) {
	if dst.Bounds().Size() == src.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

		return
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}

// Render builds the magnitude image of src: Gray16 for one channel,
// opaque NRGBA64 for three.
func Render(src Source, scale float64) (image.Image, error) {
	params := src.Params()
	h, w := params.Height(), params.Width()
	rect := image.Rect(0, 0, w, h)

	switch params.P {
	case 1:
		img := image.NewGray16(rect)

		for y := range h {
			for x := range w {
				img.SetGray16(x, y, color.Gray16{Y: sample(src.Component(y, x)[0], scale)})
			}
		}

		return img, nil
	case 3:
		img := image.NewNRGBA64(rect)

		for y := range h {
			for x := range w {
				px := src.Component(y, x)
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: sample(px[0], scale),
					G: sample(px[1], scale),
					B: sample(px[2], scale),
					A: maxSample,
				})
			}
		}

		return img, nil
	default:
		return nil, fmt.Errorf("p=%d: %w", params.P, ErrChannels)
	}
}

// Export renders src and writes it to dst atomically.
func Export(src Source, dst string, scale float64) error {
	img, err := Render(src, scale)
	if err != nil {
		return fmt.Errorf("export %s: %w", dst, err)
	}

	return Write(dst, img)
}

// Write encodes img by the extension of path (PNG, or deflate TIFF) and
// replaces path atomically.
func Write(path string, img image.Image) error {
	ext, err := format(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	switch ext {
	case ".png":
		err = png.Encode(&buf, img)
	default:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	}

	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	err = atomic.WriteFile(path, &buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func sample(z complex64, scale float64) uint16 {
	v := cmplx.Abs(complex128(z)) * scale
	if math.IsNaN(v) || v <= 0 {
		return 0
	}

	if v >= 1 {
		return maxSample
	}

	return uint16(math.Round(v * maxSample))
}

func format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".png", ".tif", ".tiff":
		return ext, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrFormat)
	}
}

func isGray(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	default:
		return false
	}
}

func floorPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}

	return p
}
