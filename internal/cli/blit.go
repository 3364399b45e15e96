package cli

import (
	"context"
	"errors"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/imgops"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

var errSameImage = errors.New("source and destination must be different images")

// BlitCmd returns the blit command.
func BlitCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("blit", flag.ContinueOnError)
	dstShape := addShapeFlags(fs)
	srcShape := addSourceShapeFlags(fs)
	x := fs.IntP("dst-x", "x", 0, "destination column")
	y := fs.IntP("dst-y", "y", 0, "destination row")
	fromX := fs.IntP("src-x", "X", 0, "source region column")
	fromY := fs.IntP("src-y", "Y", 0, "source region row")
	fromW := fs.IntP("src-w", "W", 0, "source region width (default full width)")
	fromH := fs.IntP("src-h", "H", 0, "source region height (default full height)")
	workers := fs.IntP("workers", "w", 0, "worker goroutines (default from config, 0 = GOMAXPROCS)")

	return &Command{
		Flags: fs,
		Usage: "blit [-x X -y Y] [-X X -Y Y -W W -H H] [-l L -n N -m M -p P] [-L L -N N -M M -P P] <dst> <src>",
		Short: "Copy a region between images",
		Group: groupPixels,
		Long: `Copy the W x H source region at (X, Y) of <src> into <dst> with its
top-left corner at (x, y). Channels present in both images are copied; the
other destination channels are kept. Both regions must lie inside their
images.

Without shape flags each image's shape is guessed from its file size.`,
		Exec: func(ctx context.Context, _ *IO, args []string) error {
			err := imageArg(args, 2)
			if err != nil {
				return err
			}

			dstPath, srcPath := resolvePath(cfg, args[0]), resolvePath(cfg, args[1])
			if dstPath == srcPath {
				return errSameImage
			}

			dstParams, err := dstShape.resolve(cfg, dstPath, true)
			if err != nil {
				return err
			}

			srcParams, err := srcShape.resolve(cfg, srcPath, true)
			if err != nil {
				return err
			}

			region := imgops.Region{X: *fromX, Y: *fromY, W: *fromW, H: *fromH}
			opts := opsOptions(cfg, fs, *workers, log)

			return withImage(ctx, srcPath, srcParams, log, true, func(src *tiled.Store) error {
				return withImage(ctx, dstPath, dstParams, log, false, func(dst *tiled.Store) error {
					return imgops.Blit(dst, *x, *y, src, region, opts)
				})
			})
		},
	}
}
