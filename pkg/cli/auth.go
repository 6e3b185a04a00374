package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/devpoints/pkg/auth"
	"github.com/mchmarny/devpoints/pkg/config"
	urfave "github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	clientIDFlagName = "client-id"
	tokenEnvVar      = "GITHUB_TOKEN"
	tokenFileName    = "github_token"
	keyringService   = "devpoints"
	keyringUser      = "github_token"
	tokenFileMode    = 0600
)

var errNoToken = errors.New("no GitHub token found")

func newAuthCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Authenticate to GitHub to obtain an access token",
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     clientIDFlagName,
				Usage:    "GitHub OAuth app client ID with device flow enabled",
				Sources:  urfave.EnvVars("DEVPOINTS_CLIENT_ID"),
				Required: true,
			},
		},
		Action: cmdInitAuthFlow,
	}
}

func cmdInitAuthFlow(ctx context.Context, cmd *urfave.Command) error {
	flow := auth.NewDeviceFlow(cmd.String(clientIDFlagName))

	code, err := flow.GetDeviceCode(ctx)
	if err != nil {
		return fmt.Errorf("getting device code: %w", err)
	}

	// prompts go to stderr, stdout carries results only
	out := cmd.Root().ErrWriter
	fmt.Fprintf(out, "1). Copy this code: %s\n", code.UserCode)
	fmt.Fprintf(out, "2). Navigate to this URL in your browser to authenticate: %s\n", code.VerificationURL)
	fmt.Fprintln(out, "3). Waiting for authorization...")

	token, err := flow.WaitForToken(ctx, code)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	where, err := saveGitHubToken(token.AccessToken)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintf(out, "Token saved to %s\n", where)
	return nil
}

// saveGitHubToken stores token in the OS keychain, or in a file under the
// app home dir when the keychain is not available. It returns where the
// token was saved.
func saveGitHubToken(token string) (string, error) {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		p, err := tokenFilePath()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(p, []byte(token), tokenFileMode); err != nil {
			return "", fmt.Errorf("writing token file %s: %w", p, err)
		}
		return p, nil
	}

	// token now lives in the keychain
	if p, err := tokenFilePath(); err == nil {
		_ = os.Remove(p)
	}

	return "OS keychain", nil
}

// getGitHubToken resolves the token from the environment, then the OS
// keychain, then the token file.
func getGitHubToken() (string, error) {
	if t := strings.TrimSpace(os.Getenv(tokenEnvVar)); t != "" {
		return t, nil
	}

	t, err := keyring.Get(keyringService, keyringUser)
	if err == nil && t != "" {
		return t, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("keychain lookup failed", "error", err)
	}

	p, err := tokenFilePath()
	if err != nil {
		return "", err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errNoToken
		}
		return "", fmt.Errorf("reading token file %s: %w", p, err)
	}

	t = strings.TrimSpace(string(b))
	if t == "" {
		return "", errNoToken
	}
	return t, nil
}

func tokenFilePath() (string, error) {
	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(dir, tokenFileName), nil
}
