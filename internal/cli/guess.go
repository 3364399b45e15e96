package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// GuessCmd returns the guess command.
func GuessCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("guess", flag.ContinueOnError),
		Usage: "guess <image>",
		Short: "Infer image shape from file size",
		Group: groupImage,
		Long: `Print the shape implied by the size of an image file: three channels if
the component count divides by three, otherwise one; the pixel count split
into the squarest power-of-two rectangle, width >= height. The tile size
cannot be inferred.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			err := imageArg(args, 1)
			if err != nil {
				return err
			}

			params, err := tiled.GuessParams(resolvePath(cfg, args[0]))
			if err != nil {
				return err
			}

			o.Println(fmt.Sprintf("n=%d m=%d p=%d", params.N, params.M, params.P))

			return nil
		},
	}
}
