package cli

import (
	"context"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/fourier"
	"github.com/calvinalkan/gigo/pkg/imgops"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// FilterCmd returns the filter command.
func FilterCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	window := fs.StringP("shape", "s", "gauss", "window: rect, triangle, hann, normal, gauss, butterworth")
	x := fs.IntP("center-x", "x", 0, "window center column (default width/2)")
	y := fs.IntP("center-y", "y", 0, "window center row (default height/2)")
	radius := fs.Float64P("radius", "r", 0, "cutoff radius or standard deviation, in pixels")
	band := fs.Float64P("band", "b", 0, "transition band (triangle, hann) or order (butterworth)")
	inverse := fs.BoolP("inverse", "I", false, "keep what the window removes (high pass)")
	spatial := fs.Bool("spatial", false, "image is spatial: transform, filter, transform back")
	workers := fs.IntP("workers", "w", 0, "worker goroutines (default from config, 0 = GOMAXPROCS)")

	return &Command{
		Flags: fs,
		Usage: "filter [-s shape] -r R [-b B] [-x X -y Y] [-I] [--spatial] [-l L] [-n N -m M -p P] <image>",
		Short: "Apply a frequency window in place",
		Group: groupTransform,
		Long: `Multiply a centered spectrum by a radial window around (x, y), by default
the zero frequency. Outside the window's reach the image is zeroed; with -I
the window is inverted and the rest of the image is kept.

With --spatial the image is transformed forward first and back afterwards,
so a spatial image is low (or, with -I, high) pass filtered in one step.`,
		Exec: func(ctx context.Context, _ *IO, args []string) error {
			err := imageArg(args, 1)
			if err != nil {
				return err
			}

			path := resolvePath(cfg, args[0])

			params, err := shape.resolve(cfg, path, true)
			if err != nil {
				return err
			}

			kind, err := imgops.ParseShape(*window)
			if err != nil {
				return err
			}

			w := imgops.Window{
				Shape:   kind,
				X:       params.Width() / 2,
				Y:       params.Height() / 2,
				Radius:  *radius,
				Width:   *band,
				Inverse: *inverse,
			}

			if fs.Changed("center-x") {
				w.X = *x
			}

			if fs.Changed("center-y") {
				w.Y = *y
			}

			err = w.Validate()
			if err != nil {
				return err
			}

			topts := transformOptions(cfg, fs, *workers, log)
			opts := opsOptions(cfg, fs, *workers, log)

			return withImage(ctx, path, params, log, false, func(store *tiled.Store) error {
				if *spatial {
					err := fourier.Transform2D(store, false, topts)
					if err != nil {
						return err
					}
				}

				err := imgops.Filter(store, w, opts)
				if err != nil {
					return err
				}

				if *spatial {
					return fourier.Transform2D(store, true, topts)
				}

				return nil
			})
		},
	}
}
