package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/calvinalkan/gigo/internal/config"
)

// Error variables for global flag parsing.
var (
	ErrFlagRequiresArg = errors.New("flag requires an argument")
	ErrUnknownFlag     = errors.New("unknown flag")
)

const (
	consumedNone = 0
	consumedOne  = 1
	consumedTwo  = 2
	helpFlag     = "--help"
)

// Run is the main entry point. Returns the exit code: 0 on success, 3 when
// the image is busy, 4 when a transform's scratch memory is refused, and 1
// for every other failure.
//
// sigCh may be nil. The first signal cancels the command context; image
// commands check it once the image is open, before they start writing.
func Run(in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	if len(args) < 2 {
		printUsage(out, nil)

		return exitOK
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)

		return exitFailure
	}

	if len(flags.remaining) == 0 || flags.remaining[0] == helpFlag {
		printUsage(out, nil)

		return exitOK
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return exitFailure
	}

	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.Level()}))

	commands := allCommands(&cfg, log)

	name := flags.remaining[0]

	cmd, ok := commands[name]
	if !ok {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut, commands)

		return exitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	start := time.Now()
	code := cmd.Run(ctx, NewIO(in, out, errOut), flags.remaining[1:])

	if flags.time {
		fprintln(errOut, fmt.Sprintf("%s: %.3fs", name, time.Since(start).Seconds()))
	}

	return code
}

// commandOrder is the order of the help listing within a group.
var commandOrder = []string{
	"reserve", "guess", "import", "export",
	"fourier", "filter", "kernel",
	"compute", "measure", "blit",
	"shell", "print-config",
}

func allCommands(cfg *config.Config, log *slog.Logger) map[string]*Command {
	return map[string]*Command{
		"reserve":      ReserveCmd(cfg, log),
		"guess":        GuessCmd(cfg),
		"import":       ImportCmd(cfg, log),
		"export":       ExportCmd(cfg, log),
		"fourier":      FourierCmd(cfg, log),
		"filter":       FilterCmd(cfg, log),
		"kernel":       KernelCmd(cfg, log),
		"compute":      ComputeCmd(cfg, log),
		"measure":      MeasureCmd(cfg, log),
		"blit":         BlitCmd(cfg, log),
		"shell":        ShellCmd(cfg, log),
		"print-config": PrintConfigCmd(cfg),
	}
}

type globalFlags struct {
	workDir    string
	configPath string
	time       bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == consumedNone {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	switch {
	case arg == "-C" || arg == "--cwd":
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
		}

		flags.workDir = args[idx+1]

		return consumedTwo, nil

	case strings.HasPrefix(arg, "--cwd="):
		flags.workDir = strings.TrimPrefix(arg, "--cwd=")

		return consumedOne, nil

	case arg == "-c" || arg == "--config":
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil

	case strings.HasPrefix(arg, "--config="):
		flags.configPath = strings.TrimPrefix(arg, "--config=")

		return consumedOne, nil

	case arg == "-t" || arg == "--time":
		flags.time = true

		return consumedOne, nil

	case arg == "-h" || arg == helpFlag:
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil

	case strings.HasPrefix(arg, "-") && arg != "-":
		return consumedNone, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}

	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands map[string]*Command) {
	fprintln(w, `gigo - out-of-core Fourier transforms of tiled complex images

Usage: gigo [options] <command> [args]

Options:
  -C, --cwd <dir>        Run as if started in <dir>
  -c, --config <file>    Use specified config file
  -t, --time             Print elapsed wall time to stderr`)

	if commands == nil {
		commands = allCommands(&config.Config{}, slog.New(slog.DiscardHandler))
	}

	for _, group := range groupOrder {
		fprintln(w)
		fprintln(w, group+":")

		for _, name := range commandOrder {
			if cmd := commands[name]; cmd != nil && cmd.Group == group {
				fprintln(w, cmd.HelpLine())
			}
		}
	}

	fprintln(w, `
Run 'gigo <command> --help' for command flags.`)
}
