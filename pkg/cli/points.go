package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mchmarny/devpoints/pkg/config"
	"github.com/mchmarny/devpoints/pkg/score"
	urfave "github.com/urfave/cli/v3"
)

const (
	contributionsFileFlagName = "contributions-file"
	weightsFileFlagName       = "weights-file"
	breakdownFlagName         = "breakdown"

	stdinArg = "-"
)

func pointsFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{
			Name:    contributionsFileFlagName,
			Aliases: []string{"c"},
			Usage:   "Read the contributions JSON array from a file instead of the first argument (- for stdin)",
			Local:   true,
		},
		&urfave.StringFlag{
			Name:    weightsFileFlagName,
			Aliases: []string{"w"},
			Usage:   "Read category weights from a YAML or JSON file instead of an argument (- for stdin)",
		},
		&urfave.BoolFlag{
			Name:  breakdownFlagName,
			Usage: "Include per-category points for each login",
		},
	}
}

func (a *app) cmdPoints(_ context.Context, cmd *urfave.Command) error {
	args := cmd.Args().Slice()

	want := 0
	if cmd.String(contributionsFileFlagName) == "" {
		want++
	}
	if cmd.String(weightsFileFlagName) == "" {
		want++
	}
	if len(args) != want {
		return fmt.Errorf("expected %d argument(s), got %d, usage: %s [flags] %s",
			want, len(args), appName, cmd.ArgsUsage)
	}

	contribFile := cmd.String(contributionsFileFlagName)
	if contribFile == stdinArg && cmd.String(weightsFileFlagName) == stdinArg {
		return errors.New("only one input can be read from stdin")
	}

	var contribJSON []byte
	if contribFile != "" {
		b, err := a.readInput(contribFile)
		if err != nil {
			return err
		}
		contribJSON = b
	} else {
		contribJSON = []byte(args[0])
		args = args[1:]
	}

	list, err := parseContributions(contribJSON)
	if err != nil {
		return err
	}

	w, err := a.loadWeights(cmd, args)
	if err != nil {
		return err
	}

	return a.writeSummary(cmd, list, w)
}

// writeSummary scores list and prints the result to stdout.
func (a *app) writeSummary(cmd *urfave.Command, list []score.Contribution, w score.Weights) error {
	s, err := score.Summarize(list, w)
	if err != nil {
		switch {
		case errors.Is(err, score.ErrMissingWeight):
			return withExitCode(exitCodeMissingWeight, err)
		case errors.Is(err, score.ErrOverflow):
			return withExitCode(exitCodeMalformedInput, err)
		}
		return err
	}

	if !cmd.Bool(breakdownFlagName) {
		s.Breakdown = nil
	}

	slog.Debug("points calculated", "contributors", len(s.Points))

	return encode(a.out, cmd.String(formatFlagName), s)
}

func parseContributions(b []byte) ([]score.Contribution, error) {
	var list []score.Contribution
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, withExitCode(exitCodeMalformedInput, fmt.Errorf("parsing contributions: %w", err))
	}
	return list, nil
}

// loadWeights reads weights from the weights file flag when set,
// otherwise from the first remaining positional argument.
func (a *app) loadWeights(cmd *urfave.Command, args []string) (score.Weights, error) {
	if p := cmd.String(weightsFileFlagName); p != "" {
		b, err := a.readInput(p)
		if err != nil {
			return nil, err
		}
		w, err := config.ParseWeights(b)
		if err != nil {
			return nil, withExitCode(exitCodeMalformedInput, err)
		}
		return w, nil
	}

	if len(args) == 0 {
		return nil, errors.New("weights are required")
	}

	var w score.Weights
	if err := json.Unmarshal([]byte(args[0]), &w); err != nil {
		return nil, withExitCode(exitCodeMalformedInput, fmt.Errorf("parsing weights: %w", err))
	}
	return w, nil
}

// readInput reads the named file, or stdin when path is "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == stdinArg {
		in := a.in
		if in == nil {
			in = os.Stdin
		}
		b, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return b, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return b, nil
}
