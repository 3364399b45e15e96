package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/imgops"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

var errComputeArgs = errors.New("usage: compute <op> <dst> [src]")

// computeOp is an operation name resolved against the command's flags.
// Exactly one of unary and binary is set.
type computeOp struct {
	unary  imgops.UnaryOp
	binary imgops.BinaryOp
	isBin  bool
}

func lookupComputeOp(name string, coeff *float32, lo, hi float32) (computeOp, error) {
	needCoeff := func() (float32, error) {
		if coeff == nil {
			return 0, fmt.Errorf("%s needs -k", name)
		}

		return *coeff, nil
	}

	binary := func(op imgops.BinaryOp) (computeOp, error) {
		return computeOp{binary: op, isBin: true}, nil
	}

	switch name {
	case "add":
		return binary(imgops.Add)
	case "sub":
		return binary(imgops.Sub)
	case "mul":
		return binary(imgops.Mul)
	case "div":
		return binary(imgops.Div)
	case "pow":
		return binary(imgops.Pow)
	case "min":
		return binary(imgops.Min)
	case "max":
		return binary(imgops.Max)
	case "interpolate", "wiener":
		k, err := needCoeff()
		if err != nil {
			return computeOp{}, err
		}

		if name == "wiener" {
			return binary(imgops.Wiener(k))
		}

		return binary(imgops.Interpolate(k))
	case "scale":
		k, err := needCoeff()
		if err != nil {
			return computeOp{}, err
		}

		return computeOp{unary: imgops.Scale(k)}, nil
	case "threshold":
		return computeOp{unary: imgops.Threshold(lo, hi)}, nil
	case "invert":
		return computeOp{unary: imgops.Invert}, nil
	case "exp":
		return computeOp{unary: imgops.Exp}, nil
	case "log":
		return computeOp{unary: imgops.Log}, nil
	case "nonzero":
		return computeOp{unary: imgops.NonZero}, nil
	}

	return computeOp{}, fmt.Errorf("compute %q: %w", name, imgops.ErrUnknownOp)
}

// ComputeCmd returns the compute command.
func ComputeCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("compute", flag.ContinueOnError)
	shape := addShapeFlags(fs)
	coeff := fs.Float32P("coeff", "k", 0, "coefficient of scale, interpolate and wiener")
	lo := fs.Float32("min", -math.MaxFloat32, "threshold: lowest magnitude mapped to 1")
	hi := fs.Float32("max", math.MaxFloat32, "threshold: highest magnitude mapped to 1")
	workers := fs.IntP("workers", "w", 0, "worker goroutines (default from config, 0 = GOMAXPROCS)")

	return &Command{
		Flags: fs,
		Usage: "compute [-k K] [--min A] [--max B] [-l L] [-n N -m M -p P] <op> <dst> [src]",
		Short: "Apply pixel algebra in place",
		Group: groupPixels,
		Long: `Rewrite every component of <dst>.

Binary operations combine <dst> with <src>, which must have the same shape:
  add, sub, mul, div, pow      complex arithmetic
  min, max                     the operand of smaller or larger magnitude
  interpolate -k T             polar blend from dst (T=0) to src (T=1)
  wiener -k K                  deconvolve by src with noise ratio K

Unary operations:
  scale -k K                   multiply by K
  threshold [--min A] [--max B]  1 where A <= |z| <= B, else 0
  invert                       1 - |z|
  exp, log                     complex exponential and logarithm
  nonzero                      1 where |z| > 0, else 0`,
		Exec: func(ctx context.Context, _ *IO, args []string) error {
			if len(args) < 2 {
				return errComputeArgs
			}

			var k *float32
			if fs.Changed("coeff") {
				k = coeff
			}

			op, err := lookupComputeOp(args[0], k, *lo, *hi)
			if err != nil {
				return err
			}

			want := 2
			if op.isBin {
				want = 3
			}

			if len(args) != want {
				return fmt.Errorf("%s takes %d image(s): %w", args[0], want-1, errComputeArgs)
			}

			dstPath := resolvePath(cfg, args[1])

			params, err := shape.resolve(cfg, dstPath, true)
			if err != nil {
				return err
			}

			opts := opsOptions(cfg, fs, *workers, log)

			if !op.isBin {
				return withImage(ctx, dstPath, params, log, false, func(dst *tiled.Store) error {
					return imgops.Apply(dst, op.unary, opts)
				})
			}

			srcPath := resolvePath(cfg, args[2])
			if srcPath == dstPath {
				return errSameImage
			}

			return withImage(ctx, srcPath, params, log, true, func(src *tiled.Store) error {
				return withImage(ctx, dstPath, params, log, false, func(dst *tiled.Store) error {
					return imgops.Combine(dst, src, op.binary, opts)
				})
			})
		},
	}
}
