package config

import (
	"path/filepath"
	"testing"

	"github.com/mchmarny/devpoints/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeights(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want score.Weights
	}{
		{"json", `{"code": 10, "review": 6, "documentation": 4, "community": 3}`,
			score.Weights{"code": 10, "review": 6, "documentation": 4, "community": 3}},
		{"yaml", "code: 8\nreview: 2\n", score.Weights{"code": 8, "review": 2}},
		{"extra keys kept", `{"code": 1, "other": 9}`, score.Weights{"code": 1, "other": 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseWeights([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, w)
		})
	}
}

func TestParseWeights_Invalid(t *testing.T) {
	for _, in := range []string{
		`{"code": "ten"}`,
		`[1, 2]`,
		`{"code": `,
	} {
		_, err := ParseWeights([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestParseWeights_Empty(t *testing.T) {
	_, err := ParseWeights([]byte(""))
	assert.ErrorIs(t, err, ErrEmptyWeights)
}

func TestGetOrCreateHomeDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, created, err := GetOrCreateHomeDir("devpoints-test")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ".devpoints-test", filepath.Base(dir))

	again, created, err := GetOrCreateHomeDir(".devpoints-test")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dir, again)
}

func TestGetOrCreateHomeDir_EmptyName(t *testing.T) {
	_, _, err := GetOrCreateHomeDir("")
	assert.Error(t, err)
}
