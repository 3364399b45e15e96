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

// FourierCmd returns the fourier command.
func FourierCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("fourier", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	inverse := fs.BoolP("inverse", "I", false, "inverse transform (expects centered input)")
	transpose := fs.BoolP("transpose", "T", false, "transform columns instead of rows")
	both := fs.Bool("2d", false, "transform rows, then columns")
	workers := fs.IntP("workers", "w", 0, "worker goroutines (default from config, 0 = GOMAXPROCS)")

	return &Command{
		Flags: fs,
		Usage: "fourier [-I] [-T] [--2d] [-l L] [-n N -m M -p P] [-w workers] <image>",
		Short: "Transform an image in place",
		Group: groupTransform,
		Long: `Run one 1D transform pass over the rows (or, with -T, the columns) of an
image in place, or both passes with --2d. Forward output is centered.

Without -n/-m/-p the shape is guessed from the file size.`,
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

			opts := transformOptions(cfg, fs, *workers, log)

			return withImage(ctx, path, params, log, false, func(store *tiled.Store) error {
				if *both {
					return fourier.Transform2D(store, *inverse, opts)
				}

				var flags fourier.Flags
				if *inverse {
					flags |= fourier.Inverse
				}

				if *transpose {
					flags |= fourier.Transpose
				}

				return fourier.Run(store, flags, opts)
			})
		},
	}
}

// transformOptions builds orchestrator options from the config, with a
// --workers flag on fs taking precedence when given.
func transformOptions(cfg *config.Config, fs *flag.FlagSet, workers int, log *slog.Logger) fourier.Options {
	opts := fourier.Options{
		Workers:         cfg.Workers,
		MaxScratchBytes: cfg.MaxScratchBytes(),
		Logger:          log,
	}

	if fs.Changed("workers") {
		opts.Workers = workers
	}

	return opts
}

// opsOptions is transformOptions for whole-image operations.
func opsOptions(cfg *config.Config, fs *flag.FlagSet, workers int, log *slog.Logger) imgops.Options {
	return imgops.Options{
		Workers: transformOptions(cfg, fs, workers, log).Workers,
		Logger:  log,
	}
}
