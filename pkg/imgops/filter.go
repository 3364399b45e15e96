package imgops

import (
	"fmt"
	"math"
	"time"

	"github.com/calvinalkan/gigo/internal/workerpool"
)

// Shape is the profile of a frequency window.
type Shape uint8

const (
	// WindowRect keeps everything within Radius.
	WindowRect Shape = iota + 1

	// WindowTriangle falls linearly from 1 to 0 over Width around Radius.
	WindowTriangle

	// WindowHann is the raised cosine of the triangle.
	WindowHann

	// WindowNormal is the normal density with standard deviation Radius.
	WindowNormal

	// WindowGauss is the unit-peak Gaussian with standard deviation Radius.
	WindowGauss

	// WindowButterworth is the Butterworth low pass of order Width.
	WindowButterworth
)

var shapeNames = [...]string{"", "rect", "triangle", "hann", "normal", "gauss", "butterworth"}

func (s Shape) String() string {
	if s != 0 && int(s) < len(shapeNames) {
		return shapeNames[s]
	}

	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// ParseShape returns the window shape named by [Shape.String].
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if i > 0 && n == name {
			return Shape(i), nil
		}
	}

	return 0, fmt.Errorf("window %q: %w", name, ErrUnknownOp)
}

// Window is a radial weight centered on a pixel, usually the zero frequency
// (W/2, H/2) of a centered spectrum. Distances along x are scaled by H/W, so
// the window is elliptical on non-square images and reaches the same
// relative frequency in both directions.
type Window struct {
	Shape Shape

	// X and Y are the center pixel.
	X, Y int

	// Radius is the cutoff (rect, triangle, hann, butterworth) or the
	// standard deviation (normal, gauss). Must be positive.
	Radius float64

	// Width is the transition width (triangle, hann) or the order
	// (butterworth). Must be positive for those shapes.
	Width float64

	// Inverse multiplies by one minus the weight inside the window's box
	// and leaves the rest of the image alone, turning a low pass into a
	// high pass.
	Inverse bool
}

// Validate checks the window on its own, without an image.
//
// Possible errors: [ErrWindow].
func (w Window) Validate() error {
	if w.Shape == 0 || int(w.Shape) >= len(shapeNames) {
		return fmt.Errorf("%s: %w", w.Shape, ErrWindow)
	}

	if !(w.Radius > 0) {
		return fmt.Errorf("%s radius %g is not positive: %w", w.Shape, w.Radius, ErrWindow)
	}

	switch w.Shape {
	case WindowTriangle, WindowHann, WindowButterworth:
		if !(w.Width > 0) {
			return fmt.Errorf("%s width %g is not positive: %w", w.Shape, w.Width, ErrWindow)
		}
	}

	return nil
}

// weight is the window value at distance k from the center.
func (w Window) weight(k float64) float64 {
	r, width := w.Radius, w.Width

	switch w.Shape {
	case WindowRect:
		if k > r {
			return 0
		}

		return 1
	case WindowTriangle:
		return triangle(k, r, width)
	case WindowHann:
		return 0.5 - math.Cos(math.Pi*triangle(k, r, width))/2
	case WindowNormal:
		return math.Exp(-k*k/(2*r*r)) / (2 * math.Pi * r * r)
	case WindowGauss:
		return math.Exp(-0.5 * k * k / (r * r))
	default:
		return 1 / (1 + math.Pow(k/r, 2*width))
	}
}

func triangle(k, r, w float64) float64 {
	switch {
	case k > r+w/2:
		return 0
	case k < r-w/2:
		return 1
	default:
		return 0.5 - k/w + r/w
	}
}

// reach returns the half extents of the window's box in rows and columns.
// Profiles with unbounded support reach across the whole image.
func (w Window) reach(height, width int) (int, int) {
	var n int

	switch w.Shape {
	case WindowRect:
		n = int(math.Ceil(w.Radius))
	case WindowTriangle, WindowHann:
		n = int(math.Ceil(w.Radius + w.Width/2))
	default:
		n = height
	}

	if w.Shape == WindowNormal {
		return n, n
	}

	return n, n * width / height
}

// Filter multiplies every channel of img by the window. Outside the window's
// box the image is zeroed, or left untouched with [Window.Inverse].
//
// Possible errors: [ErrWindow], [ErrRegion] (center outside the image).
func Filter(img Image, w Window, opts Options) error {
	err := w.Validate()
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	params := img.Params()
	height, width := params.Height(), params.Width()

	if w.X < 0 || w.X >= width || w.Y < 0 || w.Y >= height {
		return fmt.Errorf("filter: center (%d, %d) outside %dx%d image: %w",
			w.Y, w.X, height, width, ErrRegion)
	}

	start := time.Now()

	n, m := w.reach(height, width)

	aspect := 1.0
	if w.Shape != WindowNormal {
		aspect = float64(height) / float64(width)
	}

	l, s, p := params.L, params.TileEdge(), params.P

	pool := workerpool.New(opts.Workers)
	defer pool.Close()

	forTiles(pool, params, func(_, r, c int) {
		tile := img.Tile(r, c)

		for i := range s {
			dy := (r<<l + i) - w.Y

			for j := range s {
				dx := (c<<l + j) - w.X
				px := tile[(s*i+j)*p : (s*i+j+1)*p]

				if absInt(dy) > n || absInt(dx) > m {
					if !w.Inverse {
						clear(px)
					}

					continue
				}

				t := float32(w.weight(math.Hypot(float64(dy), float64(dx)*aspect)))
				if w.Inverse {
					t = 1 - t
				}

				for q := range px {
					px[q] *= complex(t, 0)
				}
			}
		}
	})

	opts.logger().Debug("filter done", "window", w.Shape.String(), "elapsed", time.Since(start))

	return nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
