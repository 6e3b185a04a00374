package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/devpoints/pkg/collect"
	"github.com/mchmarny/devpoints/pkg/net"
	urfave "github.com/urfave/cli/v3"
)

const (
	repoFlagName   = "repo"
	sinceFlagName  = "since"
	monthsFlagName = "months"
	apiURLFlagName = "api-url"

	dateLayout    = "2006-01-02"
	defaultMonths = 1
)

func (a *app) newCollectCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "collect",
		HideHelpCommand: true,
		Usage:           "Collect contribution records from a GitHub repository",
		UsageText: "devpoints collect --repo owner/name [--since YYYY-MM-DD | --months N] [weights-json]\n\n" +
			"Prints the collected records, or their points when weights are provided.",
		ArgsUsage: "[weights-json]",
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     repoFlagName,
				Aliases:  []string{"r"},
				Usage:    "GitHub repository (owner/name)",
				Required: true,
			},
			&urfave.StringFlag{
				Name:    sinceFlagName,
				Aliases: []string{"s"},
				Usage:   "Collect activity on or after this date (YYYY-MM-DD), overrides --months",
			},
			&urfave.IntFlag{
				Name:    monthsFlagName,
				Aliases: []string{"m"},
				Usage:   "Collect activity from this many months back",
				Value:   defaultMonths,
			},
			&urfave.StringFlag{
				Name:    apiURLFlagName,
				Usage:   "GitHub Enterprise API base URL",
				Sources: urfave.EnvVars("GITHUB_API_URL"),
			},
		},
		Action: a.cmdCollect,
	}
}

func (a *app) cmdCollect(ctx context.Context, cmd *urfave.Command) error {
	owner, repo, err := collect.ParseRepo(cmd.String(repoFlagName))
	if err != nil {
		return err
	}

	since, err := sinceDate(cmd.String(sinceFlagName), int(cmd.Int(monthsFlagName)), time.Now().UTC())
	if err != nil {
		return err
	}

	if cmd.NArg() > 1 {
		return fmt.Errorf("expected at most 1 argument, got %d", cmd.NArg())
	}

	token, err := getGitHubToken()
	if err != nil {
		return fmt.Errorf("getting GitHub token, run '%s auth' or set %s: %w", appName, tokenEnvVar, err)
	}

	client, err := newGitHubClient(ctx, token, cmd.String(apiURLFlagName))
	if err != nil {
		return err
	}

	c, err := collect.New(client, collect.Options{Owner: owner, Repo: repo, Since: since})
	if err != nil {
		return err
	}

	list, err := c.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collecting %s/%s: %w", owner, repo, err)
	}

	for kind, n := range c.Counts() {
		slog.Debug("collected", "repo", owner+"/"+repo, "kind", kind, "records", n)
	}

	if cmd.String(weightsFileFlagName) == "" && cmd.NArg() == 0 {
		return encode(a.out, cmd.String(formatFlagName), list)
	}

	w, err := a.loadWeights(cmd, cmd.Args().Slice())
	if err != nil {
		return err
	}

	return a.writeSummary(cmd, list, w)
}

func newGitHubClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	client := github.NewClient(net.GetOAuthClient(ctx, token))
	if apiURL == "" {
		return client, nil
	}

	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("configuring API URL %s: %w", apiURL, err)
	}
	return client, nil
}

// sinceDate parses the since flag, or counts months back from now when it is empty.
func sinceDate(since string, months int, now time.Time) (time.Time, error) {
	since = strings.TrimSpace(since)
	if since == "" {
		if months < 1 {
			return time.Time{}, fmt.Errorf("months must be positive, got %d", months)
		}
		y, m, d := now.AddDate(0, -months, 0).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	t, err := time.Parse(dateLayout, since)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since date %q, expected YYYY-MM-DD: %w", since, err)
	}
	return t, nil
}
