package cli

import (
	"context"
	"fmt"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/imgops"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// MeasureCmd returns the measure command.
func MeasureCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("measure", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	stat := fs.StringP("stat", "s", "sum", "reduction: sum, min, max (magnitudes), rmin, rmax (real parts)")
	workers := fs.IntP("workers", "w", 0, "worker goroutines (default from config, 0 = GOMAXPROCS)")

	return &Command{
		Flags: fs,
		Usage: "measure [-s stat] [-l L] [-n N -m M -p P] <image>",
		Short: "Print a per-channel reduction",
		Group: groupPixels,
		Long: `Reduce every channel of an image on its own and print one value per
channel: the sum, minimum or maximum of the magnitudes, or the minimum or
maximum of the real parts.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			err := imageArg(args, 1)
			if err != nil {
				return err
			}

			path := resolvePath(cfg, args[0])

			params, err := shape.resolve(cfg, path, true)
			if err != nil {
				return err
			}

			which, err := imgops.ParseStat(*stat)
			if err != nil {
				return err
			}

			opts := opsOptions(cfg, fs, *workers, log)

			var values []float64

			err = withImage(ctx, path, params, log, true, func(store *tiled.Store) error {
				values, err = imgops.Measure(store, which, opts)

				return err
			})
			if err != nil {
				return err
			}

			for _, v := range values {
				o.Println(fmt.Sprintf("%e", v))
			}

			return nil
		},
	}
}
