package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/devpoints/pkg/score"
	"gopkg.in/yaml.v3"
)

const (
	dirMode = 0700
)

// ErrEmptyWeights is returned when a weights document holds no mapping.
var ErrEmptyWeights = errors.New("weights document is empty")

// ParseWeights decodes a YAML or JSON mapping of category name to integer weight.
func ParseWeights(b []byte) (score.Weights, error) {
	var w score.Weights
	if err := yaml.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parsing weights: %w", err)
	}
	if w == nil {
		return nil, ErrEmptyWeights
	}
	return w, nil
}

// GetOrCreateHomeDir returns ~/.<name>, creating it when missing.
// The created flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("getting user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("creating dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
