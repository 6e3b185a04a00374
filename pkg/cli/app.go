package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mchmarny/devpoints/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName = "devpoints"

	formatJSON = "json"
	formatYAML = "yaml"

	debugFlagName  = "debug"
	formatFlagName = "format"

	exitCodeOK             = 0
	exitCodeFailure        = 1
	exitCodeMalformedInput = 2
	exitCodeMissingWeight  = 3
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// exitErr carries the process exit status for an error.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string {
	return e.err.Error()
}

func (e *exitErr) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitErr{code: code, err: err}
}

// Execute creates and runs the CLI application.
func Execute() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// run executes the app and maps the outcome to a process exit code.
// Results go to stdout. Logs, errors, help and usage go to stderr so a
// failed run never leaves partial output on stdout.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logging.Init(stderr, "info")

	root := newApp(stdin, stdout, stderr)
	if err := root.Run(ctx, args); err != nil {
		slog.Error(err.Error())

		var ee *exitErr
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitCodeFailure
	}

	return exitCodeOK
}

// app holds the streams the command actions read from and write results to.
type app struct {
	in  io.Reader
	out io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *urfave.Command {
	a := &app{in: stdin, out: stdout}

	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:                 "Compute contributor points from contribution records and category weights",
		ArgsUsage:             "<contributions-json> <weights-json>",
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Reader:                stdin,
		Writer:                stderr,
		ErrWriter:             stderr,
		Flags: append([]urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
				Validator: func(s string) error {
					if s != formatJSON && s != formatYAML {
						return fmt.Errorf("unsupported output format: %s", s)
					}
					return nil
				},
			},
		}, pointsFlags()...),
		Commands: []*urfave.Command{
			a.newCollectCmd(),
			newAuthCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			if cmd.Bool(debugFlagName) {
				logging.Init(cmd.Root().ErrWriter, "debug")
			}
			return ctx, nil
		},
		Action: a.cmdPoints,
	}
}

// encode writes v to w in the selected format.
// JSON output is a single line with sorted map keys.
func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		if err := e.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return e.Close()
	}

	e := json.NewEncoder(w)
	e.SetEscapeHTML(false)
	if err := e.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
