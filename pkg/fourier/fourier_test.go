// Orchestrator tests: single passes and full 2D transforms on memory-mapped
// images against a naive centered DFT, round trips, worker-count
// independence and the scratch limit.
//
// Oracle: O(H²W²) DFT with the e^{+iθ} convention, shifted by (H/2, W/2).
// Technique: seeded random images in t.TempDir(), tolerance comparison.

package fourier_test

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/gigo/pkg/fft"
	"github.com/calvinalkan/gigo/pkg/fourier"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

func openImage(t *testing.T, params tiled.Params) *tiled.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "image.img")
	require.NoError(t, tiled.Reserve(path, params, 0, tiled.Options{}))

	store, err := tiled.Open(path, params, tiled.Options{})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// fillRandom writes seeded random components and returns them in
// (y, x, k) row-major order.
func fillRandom(store *tiled.Store, seed uint64) []complex64 {
	params := store.Params()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]complex64, 0, params.Components())

	for y := range params.Height() {
		for x := range params.Width() {
			px := store.Component(y, x)
			for k := range px {
				px[k] = complex(rng.Float32()*2-1, rng.Float32()*2-1)
				out = append(out, px[k])
			}
		}
	}

	return out
}

// snapshot returns the image in (y, x, k) row-major order.
func snapshot(store *tiled.Store) []complex64 {
	params := store.Params()
	out := make([]complex64, 0, params.Components())

	for y := range params.Height() {
		for x := range params.Width() {
			out = append(out, store.Component(y, x)...)
		}
	}

	return out
}

// naiveCentered computes the 2D DFT of a (y, x, k) row-major image with the
// zero frequency moved to (H/2, W/2). rows and cols select which axes are
// transformed.
func naiveCentered(in []complex64, params tiled.Params, rows, cols bool) []complex128 {
	h, w, p := params.Height(), params.Width(), params.P
	out := make([]complex128, len(in))

	at := func(y, x, k int) int { return (y*w+x)*p + k }

	for k := range p {
		for u := range h {
			for v := range w {
				var sum complex128

				for y := range h {
					if !cols && y != u {
						continue
					}

					for x := range w {
						if !rows && x != v {
							continue
						}

						theta := 0.0
						if cols {
							theta += 2 * math.Pi * float64(u*y) / float64(h)
						}

						if rows {
							theta += 2 * math.Pi * float64(v*x) / float64(w)
						}

						sum += complex128(in[at(y, x, k)]) * cmplx.Rect(1, theta)
					}
				}

				cu, cv := u, v
				if cols {
					cu = (u + h/2) % h
				}

				if rows {
					cv = (v + w/2) % w
				}

				out[at(cu, cv, k)] = sum
			}
		}
	}

	return out
}

func requireClose(t *testing.T, want []complex128, got []complex64, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))

	for i := range want {
		if d := cmplx.Abs(want[i] - complex128(got[i])); d > tol {
			t.Fatalf("component %d: got %v, want %v (diff %g > %g)", i, got[i], want[i], d, tol)
		}
	}
}

func Test_Offset_Centers_Index_When_Sign_Negative(t *testing.T) {
	t.Parallel()

	cases := []struct {
		x, dim int
		sign   fft.Sign
		want   int
	}{
		{0, 3, fft.Forward, 0},
		{5, 3, fft.Forward, 5},
		{0, 3, fft.Inverse, 4},
		{3, 3, fft.Inverse, 7},
		{4, 3, fft.Inverse, 0},
		{7, 3, fft.Inverse, 3},
		{1, 1, fft.Inverse, 0},
		{0, 0, fft.Inverse, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, fourier.Offset(tc.x, tc.dim, tc.sign), "Offset(%d, %d, %v)", tc.x, tc.dim, tc.sign)
	}
}

func Test_Offset_Is_Involution_When_Sign_Negative(t *testing.T) {
	t.Parallel()

	for dim := range 8 {
		for x := range 1 << dim {
			once := fourier.Offset(x, dim, fft.Inverse)
			require.Equal(t, x, fourier.Offset(once, dim, fft.Inverse))
		}
	}
}

func Test_Flags_String_Names_Direction_And_Orientation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "forward|rows", fourier.Flags(0).String())
	assert.Equal(t, "inverse|rows", fourier.Inverse.String())
	assert.Equal(t, "forward|columns", fourier.Transpose.String())
	assert.Equal(t, "inverse|columns", (fourier.Inverse | fourier.Transpose).String())
}

func Test_Run_Returns_ErrInvalidFlags_When_Unknown_Bits_Set(t *testing.T) {
	t.Parallel()

	store := openImage(t, tiled.Params{L: 1, N: 2, M: 2, P: 1})

	err := fourier.Run(store, fourier.Flags(0x80), fourier.Options{})
	require.ErrorIs(t, err, fourier.ErrInvalidFlags)
}

func Test_Transform2D_Yields_Unit_Magnitude_When_Forward_On_Impulse(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 1, N: 2, M: 2, P: 1}
	store := openImage(t, params)
	store.Component(0, 0)[0] = 1

	require.NoError(t, fourier.Transform2D(store, false, fourier.Options{}))

	for y := range params.Height() {
		for x := range params.Width() {
			assert.InDelta(t, 1.0, cmplx.Abs(complex128(store.Component(y, x)[0])), 1e-6, "pixel (%d,%d)", y, x)
		}
	}
}

func Test_Transform2D_Yields_Sixteenth_When_Inverse_On_Impulse(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 1, N: 2, M: 2, P: 1}
	store := openImage(t, params)
	store.Component(0, 0)[0] = 1

	require.NoError(t, fourier.Transform2D(store, true, fourier.Options{}))

	for y := range params.Height() {
		for x := range params.Width() {
			assert.InDelta(t, 1.0/16, cmplx.Abs(complex128(store.Component(y, x)[0])), 1e-7, "pixel (%d,%d)", y, x)
		}
	}
}

func Test_Transform2D_Puts_DC_At_Center_When_Forward_On_Constant(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 2, N: 3, M: 4, P: 1}
	store := openImage(t, params)

	for y := range params.Height() {
		for x := range params.Width() {
			store.Component(y, x)[0] = 1
		}
	}

	require.NoError(t, fourier.Transform2D(store, false, fourier.Options{}))

	h, w := params.Height(), params.Width()

	for y := range h {
		for x := range w {
			got := cmplx.Abs(complex128(store.Component(y, x)[0]))
			if y == h/2 && x == w/2 {
				assert.InDelta(t, float64(h*w), got, 1e-3)
			} else {
				assert.InDelta(t, 0, got, 1e-3, "pixel (%d,%d)", y, x)
			}
		}
	}
}

func Test_Transform2D_Matches_Naive_DFT_When_Forward(t *testing.T) {
	t.Parallel()

	cases := []tiled.Params{
		{L: 0, N: 2, M: 3, P: 1},
		{L: 1, N: 3, M: 4, P: 1},
		{L: 2, N: 4, M: 3, P: 2},
		{L: 2, N: 4, M: 4, P: 3},
	}

	for i, params := range cases {
		t.Run(params.String(), func(t *testing.T) {
			t.Parallel()

			store := openImage(t, params)
			in := fillRandom(store, uint64(i+1))

			require.NoError(t, fourier.Transform2D(store, false, fourier.Options{Workers: 3}))

			requireClose(t, naiveCentered(in, params, true, true), snapshot(store), 1e-3)
		})
	}
}

func Test_Run_Matches_Naive_DFT_When_Single_Pass(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 1, N: 3, M: 4, P: 2}

	cases := []struct {
		name  string
		flags fourier.Flags
		rows  bool
		cols  bool
	}{
		{"Rows", 0, true, false},
		{"Columns", fourier.Transpose, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := openImage(t, params)
			in := fillRandom(store, 42)

			require.NoError(t, fourier.Run(store, tc.flags, fourier.Options{Workers: 2}))

			requireClose(t, naiveCentered(in, params, tc.rows, tc.cols), snapshot(store), 1e-4)
		})
	}
}

func Test_Run_Restores_Input_When_Inverse_Follows_Forward(t *testing.T) {
	t.Parallel()

	for _, transpose := range []fourier.Flags{0, fourier.Transpose} {
		t.Run(transpose.String(), func(t *testing.T) {
			t.Parallel()

			store := openImage(t, tiled.Params{L: 2, N: 4, M: 5, P: 3})
			in := fillRandom(store, 7)

			require.NoError(t, fourier.Run(store, transpose, fourier.Options{}))
			require.NoError(t, fourier.Run(store, transpose|fourier.Inverse, fourier.Options{}))

			if diff := cmp.Diff(in, snapshot(store), approxComplex(1e-5)); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Transform2D_Restores_Input_When_Inverse_Follows_Forward(t *testing.T) {
	t.Parallel()

	cases := []tiled.Params{
		{L: 0, N: 0, M: 0, P: 1},
		{L: 2, N: 4, M: 4, P: 1},
		{L: 1, N: 5, M: 3, P: 3},
		{L: 3, N: 6, M: 6, P: 1},
	}

	for i, params := range cases {
		t.Run(params.String(), func(t *testing.T) {
			t.Parallel()

			store := openImage(t, params)
			in := fillRandom(store, uint64(100+i))

			require.NoError(t, fourier.Transform2D(store, false, fourier.Options{}))
			require.NoError(t, fourier.Transform2D(store, true, fourier.Options{}))

			if diff := cmp.Diff(in, snapshot(store), approxComplex(1e-4)); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Transform2D_Is_Identical_When_Worker_Count_Varies(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 1, N: 5, M: 4, P: 2}

	var want []complex64

	for _, workers := range []int{1, 2, 3, 8, 64} {
		store := openImage(t, params)
		fillRandom(store, 9)

		require.NoError(t, fourier.Transform2D(store, false, fourier.Options{Workers: workers}))

		got := snapshot(store)
		if want == nil {
			want = got

			continue
		}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("workers=%d differs from workers=1 (-want +got):\n%s", workers, diff)
		}
	}
}

func Test_Transform2D_Keeps_Channels_Independent_When_P_Is_Three(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 1, N: 3, M: 3, P: 3}
	store := openImage(t, params)

	// Impulse in channel 1 only.
	store.Component(2, 5)[1] = 1

	require.NoError(t, fourier.Transform2D(store, false, fourier.Options{}))

	for y := range params.Height() {
		for x := range params.Width() {
			px := store.Component(y, x)
			assert.Equal(t, complex64(0), px[0], "channel 0 at (%d,%d)", y, x)
			assert.Equal(t, complex64(0), px[2], "channel 2 at (%d,%d)", y, x)
			assert.InDelta(t, 1.0, cmplx.Abs(complex128(px[1])), 1e-5)
		}
	}
}

func Test_Run_Returns_ErrAllocation_When_Scratch_Exceeds_Limit(t *testing.T) {
	t.Parallel()

	params := tiled.Params{L: 2, N: 4, M: 4, P: 1}
	store := openImage(t, params)
	in := fillRandom(store, 3)

	opts := fourier.Options{Workers: 1, MaxScratchBytes: 64}

	err := fourier.Run(store, 0, opts)
	require.ErrorIs(t, err, fourier.ErrAllocation)
	require.ErrorIs(t, err, fft.ErrAllocation)

	err = fourier.Transform2D(store, false, opts)
	require.ErrorIs(t, err, fourier.ErrAllocation)

	if diff := cmp.Diff(in, snapshot(store)); diff != "" {
		t.Fatalf("refused pass touched the image (-want +got):\n%s", diff)
	}
}

func Test_Run_Succeeds_When_Scratch_Fits_Limit_Exactly(t *testing.T) {
	t.Parallel()

	// One worker, one 4x16 strip (64 components) plus a 16 entry table.
	params := tiled.Params{L: 2, N: 4, M: 4, P: 1}
	store := openImage(t, params)

	err := fourier.Run(store, 0, fourier.Options{Workers: 1, MaxScratchBytes: (64 + 16) * 8})
	require.NoError(t, err)
}

func Test_Transform2D_Runs_Fewer_Chunks_When_Limit_Fits_Fewer_Strips_Than_Workers(t *testing.T) {
	t.Parallel()

	// 16 entry table (128 bytes) plus two 2x16 strips (256 bytes each).
	// Eight workers would need 2176 bytes.
	params := tiled.Params{L: 1, N: 4, M: 4, P: 1}
	limit := int64(128 + 2*256)

	want := openImage(t, params)
	fillRandom(want, 21)
	require.NoError(t, fourier.Transform2D(want, false, fourier.Options{Workers: 2}))

	got := openImage(t, params)
	fillRandom(got, 21)
	require.NoError(t, fourier.Transform2D(got, false, fourier.Options{Workers: 8, MaxScratchBytes: limit}))

	if diff := cmp.Diff(snapshot(want), snapshot(got)); diff != "" {
		t.Fatalf("capped run differs from two workers (-want +got):\n%s", diff)
	}

	err := fourier.Run(got, 0, fourier.Options{Workers: 8, MaxScratchBytes: 128 + 255})
	require.ErrorIs(t, err, fourier.ErrAllocation)
}

func approxComplex(tol float64) cmp.Option {
	return cmp.Comparer(func(a, b complex64) bool {
		return cmplx.Abs(complex128(a)-complex128(b)) <= tol
	})
}

func Example() {
	dir, _ := os.MkdirTemp("", "fourier")
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "example.img")
	params := tiled.Params{L: 1, N: 2, M: 2, P: 1}

	_ = tiled.Reserve(path, params, 0, tiled.Options{})

	store, _ := tiled.Open(path, params, tiled.Options{})
	defer store.Close()

	// An impulse at the corner is the highest frequency of a centered
	// spectrum: the inverse alternates in sign with magnitude 1/16.
	store.Component(0, 0)[0] = 1

	_ = fourier.Transform2D(store, true, fourier.Options{})

	fmt.Printf("%.4f %.4f\n", real(store.Component(3, 1)[0]), real(store.Component(0, 1)[0]))
	// Output: 0.0625 -0.0625
}
