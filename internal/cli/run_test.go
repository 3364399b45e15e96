package cli_test

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/gigo/internal/cli"
)

func Test_Usage_Lists_Commands_When_No_Args(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := cli.Run(nil, &out, &errOut, []string{"gigo"}, map[string]string{}, nil)

	if got, want := code, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	for _, name := range []string{
		"reserve", "guess", "import", "export", "fourier", "filter", "kernel",
		"compute", "measure", "blit", "shell", "print-config",
	} {
		cli.AssertContains(t, out.String(), "  "+name)
	}

	for _, group := range []string{"Images:", "Transforms:", "Pixel operations:", "Other:"} {
		cli.AssertContains(t, out.String(), group)
	}

	cli.AssertContains(t, out.String(), "--cwd")
	cli.AssertContains(t, out.String(), "--time")
}

func Test_Help_Flag_Prints_Usage_When_Given_Before_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("--help")

	cli.AssertContains(t, stdout, "Usage: gigo [options] <command> [args]")
}

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "guess", "x.img")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
	cli.AssertContains(t, stderr, "--cwd")
	cli.AssertContains(t, stderr, "--config")
}

func Test_Config_Flag_Requires_Argument_When_Last(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("-c")

	cli.AssertContains(t, stderr, "flag requires an argument: -c")
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("transmogrify")

	cli.AssertContains(t, stderr, "unknown command: transmogrify")
	cli.AssertContains(t, stderr, "Transforms:")
}

func Test_Command_Help_Shows_Flags_When_Requested(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("fourier", "--help")

	cli.AssertContains(t, stdout, "Usage: gigo fourier")
	cli.AssertContains(t, stdout, "--inverse")
	cli.AssertContains(t, stdout, "--transpose")
	cli.AssertContains(t, stdout, "--2d")
	cli.AssertContains(t, stdout, "--workers")
}

func Test_Command_Flag_Error_Shows_Help_When_Flag_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("reserve", "--bogus", "x.img")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stderr, "error: unknown flag: --bogus")
	cli.AssertContains(t, stdout, "Usage: gigo reserve")
}

func Test_Time_Flag_Reports_Elapsed_When_Set(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("reserve", "-n", "1", "-m", "1", "-p", "1", "t.img")

	_, stderr, code := c.Run("-t", "guess", "t.img")

	if got, want := code, 0; got != want {
		t.Fatalf("exitCode=%d, want=%d\nstderr: %s", got, want, stderr)
	}

	cli.AssertContains(t, stderr, "guess: ")
	cli.AssertContains(t, stderr, "s\n")
}
