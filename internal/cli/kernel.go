package cli

import (
	"context"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/imgops"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// KernelCmd returns the kernel command.
func KernelCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("kernel", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	kind := fs.StringP("shape", "s", "gauss", "kernel: disc or gauss")
	radius := fs.Float64P("radius", "r", 0, "disc radius or standard deviation, in pixels")
	workers := fs.IntP("workers", "w", 0, "worker goroutines (default from config, 0 = GOMAXPROCS)")

	return &Command{
		Flags: fs,
		Usage: "kernel [-s disc|gauss] -r R [-l L] [-n N -m M -p P] <image>",
		Short: "Write a normalized blur kernel",
		Group: groupTransform,
		Long: `Overwrite every channel of an image with a disc or Gaussian kernel around
pixel (0, 0), wrapping around the edges, scaled to sum to one. Transform it
and an image forward, multiply them with 'compute mul' and transform back
to blur the image.`,
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

			ks, err := imgops.ParseKernelShape(*kind)
			if err != nil {
				return err
			}

			opts := opsOptions(cfg, fs, *workers, log)

			return withImage(ctx, path, params, log, false, func(store *tiled.Store) error {
				return imgops.Kernel(store, ks, *radius, opts)
			})
		},
	}
}
