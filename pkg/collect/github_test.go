package collect

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/stretchr/testify/assert"
)

func TestLogin(t *testing.T) {
	assert.Equal(t, "", login(nil))
	assert.Equal(t, "alice", login(&github.User{Login: github.Ptr(" alice ")}))
	assert.Equal(t, "", login(&github.User{Login: github.Ptr("dependabot[bot]")}))
	assert.Equal(t, "", login(&github.User{}))
}

func TestRateInfo(t *testing.T) {
	assert.Equal(t, "", rateInfo(nil))

	info := rateInfo(&github.Rate{
		Remaining: 4999,
		Limit:     5000,
		Reset:     github.Timestamp{Time: time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)},
	})
	assert.Contains(t, info, "4999/5000")
}

func TestInWindow(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, inWindow(nil, since))
	assert.True(t, inWindow(&github.Timestamp{Time: since}, since))
	assert.True(t, inWindow(&github.Timestamp{Time: since.Add(time.Hour)}, since))
	assert.False(t, inWindow(&github.Timestamp{Time: since.Add(-time.Hour)}, since))
}

func TestIssueNumberFromURL(t *testing.T) {
	n, ok := issueNumberFromURL("https://api.github.com/repos/o/r/issues/42")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	for _, u := range []string{"", "no-slash", "https://api.github.com/repos/o/r/issues/", "https://x/issues/abc"} {
		_, ok := issueNumberFromURL(u)
		assert.False(t, ok, u)
	}
}

func TestCheckRateLimit_Nil(t *testing.T) {
	assert.NoError(t, checkRateLimit(context.Background(), nil))
}

func TestCheckRateLimit_HighRemaining(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 100,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	assert.NoError(t, checkRateLimit(context.Background(), resp))
}

func TestCheckRateLimit_ResetInPast(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 0,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(-time.Hour)},
		},
	}
	assert.NoError(t, checkRateLimit(context.Background(), resp))
}

func TestCheckRateLimit_Canceled(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 0,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, checkRateLimit(ctx, resp), context.Canceled)
}

func TestIsDocFile(t *testing.T) {
	tests := map[string]bool{
		"README.md":             true,
		"CHANGELOG.MD":          true,
		"site/page.mdx":         true,
		"guide.rst":             true,
		"manual.adoc":           true,
		"NOTICE.txt":            true,
		"docs/config.yaml":      true,
		"api/doc/openapi.json":  true,
		"pkg/score/score.go":    false,
		"docsite/index.html":    false,
		"cmd/devpoints/main.go": false,
		"":                      false,
	}
	for name, want := range tests {
		assert.Equal(t, want, isDocFile(name), name)
	}
}
