package cli

import (
	"context"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/internal/raster"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// ImportCmd returns the import command.
func ImportCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	tile := fs.IntP("tile", "l", 0, "log2 of the tile edge (default from config)")
	fit := fs.Bool("fit", false, "rescale sides that are not powers of two")

	return &Command{
		Flags: fs,
		Usage: "import [-l L] [--fit] <raster> <image>",
		Short: "Create an image from a PNG or TIFF file",
		Group: groupImage,
		Long: `Create an image from a PNG or TIFF raster. Gray rasters give one channel,
all others three (RGB). Each sample, normalized to [0, 1], becomes the real
part of a component. Sides must be powers of two unless --fit is given.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			err := imageArg(args, 2)
			if err != nil {
				return err
			}

			img, err := raster.Read(resolvePath(cfg, args[0]))
			if err != nil {
				return err
			}

			err = ctx.Err()
			if err != nil {
				return err
			}

			tileLog2 := cfg.TileLog2
			if fs.Changed("tile") {
				tileLog2 = *tile
			}

			params, err := raster.Import(img, resolvePath(cfg, args[1]), raster.ImportOptions{
				TileLog2: tileLog2,
				Fit:      *fit,
				Store:    tiled.Options{Logger: log},
			})
			if err != nil {
				return err
			}

			o.Println(params.String())

			return nil
		},
	}
}

// ExportCmd returns the export command.
func ExportCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	scale := fs.Float64("scale", 1, "multiply magnitudes before clamping to [0, 1]")

	return &Command{
		Flags: fs,
		Usage: "export [-l L] [-n N -m M -p P] [--scale k] <image> <raster>",
		Short: "Write image magnitudes to a PNG or TIFF file",
		Group: groupImage,
		Long: `Write the magnitude of every component, multiplied by --scale and clamped
to [0, 1], as a 16-bit PNG or deflate-compressed TIFF. The raster is
replaced atomically. Only images with 1 or 3 channels can be exported.`,
		Exec: func(ctx context.Context, _ *IO, args []string) error {
			err := imageArg(args, 2)
			if err != nil {
				return err
			}

			params, err := shape.resolve(cfg, resolvePath(cfg, args[0]), true)
			if err != nil {
				return err
			}

			store, err := tiled.Open(resolvePath(cfg, args[0]), params, tiled.Options{Logger: log})
			if err != nil {
				return err
			}
			defer store.Close()

			err = ctx.Err()
			if err != nil {
				return err
			}

			return raster.Export(store, resolvePath(cfg, args[1]), *scale)
		},
	}
}
