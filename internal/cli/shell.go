package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/cmplx"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/gigo/internal/config"
	"github.com/calvinalkan/gigo/pkg/tiled"
)

var errUsage = errors.New("usage")

// ShellCmd returns the shell command.
func ShellCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	shape := addShapeFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "shell [-l L] [-n N -m M -p P] <image>",
		Short: "Inspect and edit pixels interactively",
		Group: groupMisc,
		Long: `Open an image and read commands from stdin: info, get, set, tile, sync,
help and quit. Line editing and history are enabled on a terminal.

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

			store, err := tiled.Open(path, params, tiled.Options{Logger: log})
			if err != nil {
				return err
			}
			defer store.Close()

			sh := &shell{store: store, o: o}

			if f, ok := o.In().(*os.File); ok && isTerminal(f) {
				err = sh.runTerminal(ctx)
			} else {
				err = sh.runLines(ctx, o.In())
			}

			if err != nil {
				return err
			}

			return store.Close()
		},
	}
}

type shell struct {
	store *tiled.Store
	o     *IO
}

var shellCommands = []string{"info", "get", "set", "tile", "sync", "help", "quit", "exit"}

func (sh *shell) runTerminal(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string

		for _, c := range shellCommands {
			if strings.HasPrefix(c, strings.ToLower(prefix)) {
				out = append(out, c)
			}
		}

		return out
	})

	history := sh.historyFile()
	if f, err := os.Open(history); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	sh.o.Printf("%s (%s), type 'help' for commands\n", sh.store.Path(), sh.store.Params())

	for ctx.Err() == nil {
		input, err := line.Prompt("gigo> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if sh.exec(input) {
			break
		}
	}

	if history != "" {
		if f, err := os.Create(history); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}

	return sh.store.Sync()
}

func (sh *shell) runLines(ctx context.Context, in io.Reader) error {
	if in == nil {
		return sh.store.Sync()
	}

	scanner := bufio.NewScanner(in)

	for ctx.Err() == nil && scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}

		if sh.exec(input) {
			break
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return sh.store.Sync()
}

func (sh *shell) historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".gigo_history")
}

// exec runs one command line and reports whether the shell should exit.
// Command errors are printed and do not end the session.
func (sh *shell) exec(input string) bool {
	fields := strings.Fields(input)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		sh.help()
	case "info":
		sh.info()
	case "get":
		err = sh.get(args)
	case "set":
		err = sh.set(args)
	case "tile":
		err = sh.tile(args)
	case "sync":
		err = sh.store.Sync()
		if err == nil {
			sh.o.Println("synced")
		}
	default:
		err = fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}

	if err != nil {
		sh.o.ErrPrintln("error:", err)
	}

	return false
}

func (sh *shell) help() {
	sh.o.Println(`Commands:
  info                 Show image shape
  get <y> <x>          Print the components of pixel (y, x)
  set <y> <x> <k> <re> <im>
                       Set channel k of pixel (y, x)
  tile <r> <c> <i> <j> Print pixel (i, j) of tile (r, c)
  sync                 Flush changes to disk
  help                 Show this help
  quit                 Exit (changes are synced)`)
}

func (sh *shell) info() {
	params := sh.store.Params()

	sh.o.Printf("path=%s\n", sh.store.Path())
	sh.o.Printf("%s\n", params)
	sh.o.Printf("size=%dx%d tile=%d grid=%dx%d bytes=%d\n",
		params.Height(), params.Width(), params.TileEdge(),
		params.GridHeight(), params.GridWidth(), params.Size())
}

func (sh *shell) get(args []string) error {
	v, err := ints(args, 2, "get <y> <x>")
	if err != nil {
		return err
	}

	y, x := v[0], v[1]

	params := sh.store.Params()
	if !inRange(y, params.Height()) || !inRange(x, params.Width()) {
		return fmt.Errorf("pixel (%d, %d) outside %dx%d image", y, x, params.Height(), params.Width())
	}

	sh.printPixel(sh.store.Component(y, x))

	return nil
}

func (sh *shell) set(args []string) error {
	const usage = "set <y> <x> <k> <re> <im>"

	if len(args) != 5 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}

	v, err := ints(args[:3], 3, usage)
	if err != nil {
		return err
	}

	y, x, k := v[0], v[1], v[2]

	params := sh.store.Params()
	if !inRange(y, params.Height()) || !inRange(x, params.Width()) || !inRange(k, params.P) {
		return fmt.Errorf("pixel (%d, %d) channel %d outside %dx%d image with %d channels",
			y, x, k, params.Height(), params.Width(), params.P)
	}

	re, err := strconv.ParseFloat(args[3], 32)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, usage, err)
	}

	im, err := strconv.ParseFloat(args[4], 32)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, usage, err)
	}

	sh.store.Component(y, x)[k] = complex(float32(re), float32(im))

	return nil
}

func (sh *shell) tile(args []string) error {
	v, err := ints(args, 4, "tile <r> <c> <i> <j>")
	if err != nil {
		return err
	}

	r, c, i, j := v[0], v[1], v[2], v[3]

	params := sh.store.Params()
	s := params.TileEdge()

	if !inRange(r, params.GridHeight()) || !inRange(c, params.GridWidth()) || !inRange(i, s) || !inRange(j, s) {
		return fmt.Errorf("tile (%d, %d) pixel (%d, %d) outside %dx%d grid of %dx%d tiles",
			r, c, i, j, params.GridHeight(), params.GridWidth(), s, s)
	}

	sh.o.Printf("pixel (%d, %d)\n", r*s+i, c*s+j)
	sh.printPixel(sh.store.Pixel(r, c, i, j))

	return nil
}

func (sh *shell) printPixel(px []complex64) {
	for k, z := range px {
		sh.o.Printf("%d: %g %g |%g|\n", k, real(z), imag(z), cmplx.Abs(complex128(z)))
	}
}

func ints(args []string, n int, usage string) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: %s", errUsage, usage)
	}

	out := make([]int, n)

	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errUsage, usage, err)
		}

		out[i] = v
	}

	return out, nil
}

func inRange(v, n int) bool {
	return v >= 0 && v < n
}

func isTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), ioctlReadTermios)

	return err == nil
}
