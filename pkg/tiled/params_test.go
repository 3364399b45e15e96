package tiled_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/gigo/pkg/tiled"
)

func Test_Params_Derives_Tile_Grid_When_Valid(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 2, N: 5, M: 6, P: 3}
	require.NoError(t, params.Validate())

	assert.Equal(t, 4, params.TileEdge())
	assert.Equal(t, 3*4*4, params.TileLen())
	assert.Equal(t, 8, params.GridHeight())
	assert.Equal(t, 16, params.GridWidth())
	assert.Equal(t, 32, params.Height())
	assert.Equal(t, 64, params.Width())
	assert.Equal(t, 3*32*64, params.Components())
	assert.Equal(t, int64(8*3*32*64), params.Size())
	assert.Equal(t, "l=2 n=5 m=6 p=3", params.String())
}

func Test_Params_Validate_Returns_ErrParameter_When_Shape_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		params tiled.Params
	}{
		{"NegativeTile", tiled.Params{L: -1, N: 4, M: 4, P: 1}},
		{"HeightBelowTile", tiled.Params{L: 3, N: 2, M: 4, P: 1}},
		{"WidthBelowTile", tiled.Params{L: 3, N: 4, M: 2, P: 1}},
		{"ZeroChannels", tiled.Params{L: 0, N: 4, M: 4, P: 0}},
		{"TooManyChannels", tiled.Params{L: 0, N: 4, M: 4, P: 17}},
		{"TileTooLarge", tiled.Params{L: 17, N: 20, M: 20, P: 1}},
		{"HeightTooLarge", tiled.Params{L: 0, N: 31, M: 1, P: 1}},
		{"FileTooLarge", tiled.Params{L: 5, N: 20, M: 20, P: 1}},
		{"FileTooLargeWithChannels", tiled.Params{L: 5, N: 18, M: 19, P: 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, tc.params.Validate(), tiled.ErrParameter)
		})
	}
}

func Test_Params_Validate_Accepts_Single_Tile_Image(t *testing.T) {
	t.Parallel()

	require.NoError(t, tiled.Params{L: 4, N: 4, M: 4, P: 1}.Validate())
	require.NoError(t, tiled.Params{L: 0, N: 0, M: 0, P: 1}.Validate())
}

func writeSparse(t *testing.T, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "guess.img")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	return path
}

func Test_GuessParams_Infers_Shape_When_Size_Is_Power_Of_Two(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		size int64
		want tiled.Params
	}{
		{"ThreeChannelsSquare", 8 * 3 << 20, tiled.Params{N: 10, M: 10, P: 3}},
		{"OneChannelLandscape", 8 * 1 << 21, tiled.Params{N: 10, M: 11, P: 1}},
		{"OneChannelSquare", 8 * 1 << 4, tiled.Params{N: 2, M: 2, P: 1}},
		{"SinglePixel", 8, tiled.Params{N: 0, M: 0, P: 1}},
		{"ThreeChannelsTwoPixels", 8 * 3 * 2, tiled.Params{N: 0, M: 1, P: 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := tiled.GuessParams(writeSparse(t, tc.size))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_GuessParams_Returns_ErrParameter_When_Size_Not_Power_Of_Two(t *testing.T) {
	t.Parallel()

	for _, size := range []int64{0, 7, 8 * 5, 8 * 10, 8 * 3 * 5, 8*16 + 4} {
		_, err := tiled.GuessParams(writeSparse(t, size))
		require.ErrorIs(t, err, tiled.ErrParameter, "size %d", size)
		require.ErrorContains(t, err, "not a power of two")
	}
}

func Test_GuessParams_Returns_ErrIO_When_File_Missing(t *testing.T) {
	t.Parallel()

	_, err := tiled.GuessParams(filepath.Join(t.TempDir(), "missing.img"))
	require.ErrorIs(t, err, tiled.ErrIO)
	require.ErrorIs(t, err, os.ErrNotExist)
}
