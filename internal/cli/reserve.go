package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

var errFillFormat = errors.New("--fill must be re,im")

// ReserveCmd returns the reserve command.
func ReserveCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("reserve", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	one := fs.Bool("one", false, "set every component to 1+0i")
	fill := fs.String("fill", "", "set every component to re,im")

	return &Command{
		Flags: fs,
		Usage: "reserve [-l L] -n N -m M -p P [--one | --fill re,im] <image>",
		Short: "Create an image file of the given shape",
		Group: groupImage,
		Long: `Create (or replace) an image file of 2^n x 2^m pixels with p complex
channels. Every component is zero unless --one or --fill is given.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			err := imageArg(args, 1)
			if err != nil {
				return err
			}

			path := resolvePath(cfg, args[0])

			params, err := shape.resolve(cfg, "", false)
			if err != nil {
				return err
			}

			value, err := fillValue(*one, *fill)
			if err != nil {
				return err
			}

			err = ctx.Err()
			if err != nil {
				return err
			}

			err = tiled.Reserve(path, params, value, tiled.Options{Logger: log})
			if err != nil {
				return err
			}

			o.Println(params.String(), "bytes="+strconv.FormatInt(params.Size(), 10))

			return nil
		},
	}
}

func fillValue(one bool, fill string) (complex64, error) {
	switch {
	case one && fill != "":
		return 0, errors.New("--one and --fill are mutually exclusive")
	case one:
		return 1, nil
	case fill == "":
		return 0, nil
	}

	reStr, imStr, ok := strings.Cut(fill, ",")
	if !ok {
		return 0, errFillFormat
	}

	re, err := strconv.ParseFloat(strings.TrimSpace(reStr), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errFillFormat, err)
	}

	im, err := strconv.ParseFloat(strings.TrimSpace(imStr), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errFillFormat, err)
	}

	return complex(float32(re), float32(im)), nil
}
