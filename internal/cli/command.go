package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/gigo/pkg/fourier"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

// Exit codes. Scripts chaining gigo commands over one image can retry on
// exitBusy and lower workers or raise max_scratch_mb on exitAllocation.
const (
	exitOK         = 0
	exitFailure    = 1
	exitBusy       = 3
	exitAllocation = 4
)

// Help listing groups, in display order.
const (
	groupImage     = "Images"
	groupTransform = "Transforms"
	groupPixels    = "Pixel operations"
	groupMisc      = "Other"
)

var groupOrder = []string{groupImage, groupTransform, groupPixels, groupMisc}

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	Flags *flag.FlagSet

	// Usage is the usage string shown after "gigo" in help, command name
	// first. Example: "reserve -n N -m M -p P <image>"
	Usage string

	// Short is the one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Group is the heading the command is listed under.
	Group string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-14s %s", c.Name(), c.Short)
}

// PrintHelp prints the full help output for "gigo <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: gigo", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder

		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns the exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return exitOK
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return exitFailure
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return exitCode(err, o)
	}

	return exitOK
}

// exitCode maps err to an exit code and prints a hint for the errors a
// user can act on.
func exitCode(err error, o *IO) int {
	switch {
	case errors.Is(err, tiled.ErrBusy):
		o.ErrPrintln("hint: another gigo process has the image open; retry when it exits")

		return exitBusy
	case errors.Is(err, fourier.ErrAllocation):
		o.ErrPrintln("hint: raise max_scratch_mb or use a smaller tile size")

		return exitAllocation
	default:
		return exitFailure
	}
}

// withImage opens the image at path, runs fn on it and closes it. Unless
// readOnly, the mapping is synced before close so fn's writes are on disk
// when the command exits. Cancellation is checked once the image is open,
// before fn starts.
func withImage(ctx context.Context, path string, params tiled.Params, log *slog.Logger, readOnly bool, fn func(*tiled.Store) error) error {
	store, err := tiled.Open(path, params, tiled.Options{Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()

	err = ctx.Err()
	if err != nil {
		return err
	}

	err = fn(store)
	if err != nil {
		return err
	}

	if !readOnly {
		err = store.Sync()
		if err != nil {
			return err
		}
	}

	return store.Close()
}
