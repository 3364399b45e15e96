package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

var (
	errShapePartial = errors.New("shape flags must be given together")
	errShapeMissing = errors.New("-n, -m and -p are required")
	errImageArg     = errors.New("image path is required")
)

// shapeFlags are the -l/-n/-m/-p flags shared by commands that open or
// create an image.
type shapeFlags struct {
	fs    *flag.FlagSet
	names [4]string // tile, height, width, channels

	l, n, m, p *int
}

func addShapeFlags(fs *flag.FlagSet) *shapeFlags {
	return &shapeFlags{
		fs:    fs,
		names: [4]string{"tile", "height", "width", "channels"},
		l:     fs.IntP("tile", "l", 0, "log2 of the tile edge (default from config)"),
		n:     fs.IntP("height", "n", 0, "log2 of the image height"),
		m:     fs.IntP("width", "m", 0, "log2 of the image width"),
		p:     fs.IntP("channels", "p", 0, "channels per pixel"),
	}
}

// addSourceShapeFlags adds -L/-N/-M/-P for the second image of a two-image
// command.
func addSourceShapeFlags(fs *flag.FlagSet) *shapeFlags {
	return &shapeFlags{
		fs:    fs,
		names: [4]string{"src-tile", "src-height", "src-width", "src-channels"},
		l:     fs.IntP("src-tile", "L", 0, "source log2 of the tile edge (default from config)"),
		n:     fs.IntP("src-height", "N", 0, "source log2 of the image height"),
		m:     fs.IntP("src-width", "M", 0, "source log2 of the image width"),
		p:     fs.IntP("src-channels", "P", 0, "source channels per pixel"),
	}
}

func (s *shapeFlags) explicit() (bool, error) {
	set := 0

	for _, name := range s.names[1:] {
		if s.fs.Changed(name) {
			set++
		}
	}

	switch set {
	case 0:
		return false, nil
	case 3:
		return true, nil
	default:
		return false, fmt.Errorf("%w: --%s", errShapePartial, strings.Join(s.names[1:], ", --"))
	}
}

// resolve returns the params given on the command line, or guesses them
// from the size of the file at path when none of -n/-m/-p is set and
// guessing is allowed.
//
// Without -l the configured tile size is used, lowered to fit small images.
func (s *shapeFlags) resolve(cfg *config.Config, path string, guess bool) (tiled.Params, error) {
	explicit, err := s.explicit()
	if err != nil {
		return tiled.Params{}, err
	}

	var params tiled.Params

	switch {
	case explicit:
		params = tiled.Params{N: *s.n, M: *s.m, P: *s.p}
	case guess:
		params, err = tiled.GuessParams(path)
		if err != nil {
			return tiled.Params{}, fmt.Errorf("guess: %w", err)
		}
	default:
		return tiled.Params{}, errShapeMissing
	}

	if s.fs.Changed(s.names[0]) {
		params.L = *s.l
	} else {
		params.L = max(0, min(cfg.TileLog2, params.N, params.M))
	}

	return params, nil
}

func imageArg(args []string, want int) error {
	if len(args) < want {
		return errImageArg
	}

	if len(args) > want {
		return fmt.Errorf("unexpected arguments: %v", args[want:])
	}

	return nil
}

// resolvePath makes p absolute against the effective working directory, so
// -C applies to path arguments too.
func resolvePath(cfg *config.Config, p string) string {
	if filepath.IsAbs(p) || cfg.EffectiveCwd == "" {
		return p
	}

	return filepath.Join(cfg.EffectiveCwd, p)
}
