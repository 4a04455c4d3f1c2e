package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/tasq/lang"
	"github.com/ardnew/tasq/pkg"
	"github.com/ardnew/tasq/run"
)

// CLI is the top-level command-line interface for tasq.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	File    string           `default:"tasks.sx" help:"Task program file, or '-' for stdin." short:"f"`
	List    bool             `help:"List tasks and groups without running anything." short:"l"`
	Verbose bool             `help:"Include descriptions, commands, and steps in listings." short:"v"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Tasks []string `arg:"" help:"Tasks or groups to run." name:"task" optional:""`

	// extra holds arguments after "--", passed through to the command line
	// of each requested task.
	extra []string
}

// Run executes the tasq CLI with the given context and arguments.
// The exit function is called with the appropriate exit code when kong
// handles the invocation itself (--help, parse errors).
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	args, cli.extra = splitExtra(args)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags so early diagnostics honor them regardless
	// of flag position. TextUnmarshaler on logFormat/logLevel handles those
	// flags during normal parsing, but this also catches boolean flags like
	// --log-pretty.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.Vars{"version": pkg.Version}.CloneWith(cli.Pprof.vars()),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact: true,
				Summary: true,
			}),
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	// No-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run()
}

// Run loads the task program and either lists its runnables or dispatches
// the requested tasks. It is invoked by kong after parsing.
func (c *CLI) Run(ctx context.Context) error {
	src, err := c.source()
	if err != nil {
		return err
	}

	rt := lang.NewRuntime(&run.ShellRunner{})

	prog, err := lang.Load(ctx, src, rt)
	if err != nil {
		return err
	}

	if c.List || len(c.Tasks) == 0 {
		fmt.Print(run.List(prog, c.Verbose))

		return nil
	}

	return run.NewDispatcher(prog, rt).Dispatch(ctx, c.Tasks, c.extra)
}

// source reads the task program text from the configured file, or from
// standard input when the file is "-".
func (c *CLI) source() (string, error) {
	if c.File == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", lang.ErrReadInput.Wrap(err).With(
				slog.String("file", "stdin"),
			)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return "", lang.ErrReadInput.Wrap(err).With(
			slog.String("file", c.File),
		)
	}

	return string(data), nil
}

// splitExtra separates the arguments owned by the CLI from passthrough
// arguments following the first "--".
func splitExtra(args []string) (own, extra []string) {
	for i, arg := range args {
		if arg == "--" {
			return args[:i], args[i+1:]
		}
	}

	return args, nil
}
