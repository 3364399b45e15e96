package raster_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/gigo/internal/raster"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func grayRamp(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))

	for y := range h {
		for x := range w {
			img.SetGray(x, y, color.Gray{Y: uint8((y*w + x) * 7)})
		}
	}

	return img
}

func openStore(t *testing.T, path string, params tiled.Params) *tiled.Store {
	t.Helper()

	store, err := tiled.Open(path, params, tiled.Options{})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func Test_Import_Fills_Real_Part_When_Raster_Is_Gray(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := grayRamp(8, 4)
	writePNG(t, filepath.Join(dir, "in.png"), src)

	img, err := raster.Read(filepath.Join(dir, "in.png"))
	require.NoError(t, err)

	params, err := raster.Import(img, filepath.Join(dir, "out.img"), raster.ImportOptions{TileLog2: 5})
	require.NoError(t, err)
	assert.Equal(t, tiled.Params{L: 2, N: 2, M: 3, P: 1}, params)

	store := openStore(t, filepath.Join(dir, "out.img"), params)

	for y := range 4 {
		for x := range 8 {
			want := float32(src.GrayAt(x, y).Y) / 255
			got := store.Component(y, x)[0]

			assert.InDelta(t, want, real(got), 1e-6, "pixel (%d,%d)", y, x)
			assert.Zero(t, imag(got))
		}
	}
}

func Test_Import_Uses_Three_Channels_When_Raster_Is_Color(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	writePNG(t, filepath.Join(dir, "in.png"), src)

	img, err := raster.Read(filepath.Join(dir, "in.png"))
	require.NoError(t, err)

	params, err := raster.Import(img, filepath.Join(dir, "out.img"), raster.ImportOptions{TileLog2: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, params.P)

	store := openStore(t, filepath.Join(dir, "out.img"), params)

	px := store.Component(0, 1)
	assert.InDelta(t, 1.0, real(px[0]), 1e-6)
	assert.InDelta(t, 0.0, real(px[1]), 1e-6)
	assert.InDelta(t, 0.2, real(px[2]), 1e-6)
}

func Test_Import_Returns_ErrShape_When_Side_Not_Power_Of_Two(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := raster.Import(grayRamp(6, 4), filepath.Join(dir, "out.img"), raster.ImportOptions{})
	require.ErrorIs(t, err, raster.ErrShape)

	_, statErr := os.Stat(filepath.Join(dir, "out.img"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func Test_Import_Rescales_When_Fit_Requested(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	params, err := raster.Import(grayRamp(12, 5), filepath.Join(dir, "out.img"), raster.ImportOptions{TileLog2: 1, Fit: true})
	require.NoError(t, err)
	assert.Equal(t, tiled.Params{L: 1, N: 2, M: 3, P: 1}, params)
}

func Test_Read_Returns_ErrFormat_When_Extension_Unknown(t *testing.T) {
	t.Parallel()

	_, err := raster.Read(filepath.Join(t.TempDir(), "image.jpg"))
	require.ErrorIs(t, err, raster.ErrFormat)

	err = raster.Write(filepath.Join(t.TempDir(), "image.bmp"), grayRamp(2, 2))
	require.ErrorIs(t, err, raster.ErrFormat)
}

func Test_Export_Round_Trips_Import_When_Scale_Is_One(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{".png", ".tif", ".tiff"} {
		t.Run(ext, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			src := grayRamp(4, 4)

			params, err := raster.Import(src, filepath.Join(dir, "img.img"), raster.ImportOptions{TileLog2: 1})
			require.NoError(t, err)

			store := openStore(t, filepath.Join(dir, "img.img"), params)
			out := filepath.Join(dir, "out"+ext)
			require.NoError(t, raster.Export(store, out, 1))

			back, err := raster.Read(out)
			require.NoError(t, err)

			got := image.NewGray(back.Bounds())

			for y := range 4 {
				for x := range 4 {
					got.Set(x, y, back.At(x, y))
				}
			}

			if diff := cmp.Diff(src.Pix, got.Pix); diff != "" {
				t.Fatalf("pixels differ (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Render_Clamps_Magnitude_When_Scaled(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 0, N: 0, M: 2, P: 1}
	path := filepath.Join(t.TempDir(), "mag.img")
	require.NoError(t, tiled.Reserve(path, params, 0, tiled.Options{}))

	store := openStore(t, path, params)
	store.Component(0, 0)[0] = complex(3, 4) // magnitude 5
	store.Component(0, 1)[0] = complex(0, -0.5)
	store.Component(0, 2)[0] = complex(-0.1, 0)

	img, err := raster.Render(store, 0.5)
	require.NoError(t, err)

	gray, ok := img.(*image.Gray16)
	require.True(t, ok)

	assert.Equal(t, uint16(0xffff), gray.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(16384), gray.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(3277), gray.Gray16At(2, 0).Y)
	assert.Equal(t, uint16(0), gray.Gray16At(3, 0).Y)
}

func Test_Render_Returns_ErrChannels_When_P_Is_Two(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 0, N: 1, M: 1, P: 2}
	path := filepath.Join(t.TempDir(), "two.img")
	require.NoError(t, tiled.Reserve(path, params, 0, tiled.Options{}))

	_, err := raster.Render(openStore(t, path, params), 1)
	require.ErrorIs(t, err, raster.ErrChannels)
}
