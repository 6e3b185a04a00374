package collect

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v83/github"
)

const (
	rateLimitThreshold = 10
	botSuffix          = "[bot]"
)

// login returns the trimmed user login, or an empty string for bots and
// missing users.
func login(u *github.User) string {
	if u == nil {
		return ""
	}
	l := strings.TrimSpace(u.GetLogin())
	if strings.HasSuffix(strings.ToLower(l), botSuffix) {
		return ""
	}
	return l
}

func rateInfo(r *github.Rate) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("rate:%d/%d until:%s", r.Remaining, r.Limit, r.Reset.Format("15:04"))
}

// inWindow reports whether ts is set and not before since.
func inWindow(ts *github.Timestamp, since time.Time) bool {
	return ts != nil && !ts.Before(since)
}

// issueNumberFromURL extracts the trailing number of an issue API URL.
func issueNumberFromURL(u string) (int, bool) {
	i := strings.LastIndex(u, "/")
	if i < 0 || i == len(u)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(u[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// checkRateLimit waits for the rate limit reset when the remaining budget is low.
func checkRateLimit(ctx context.Context, resp *github.Response) error {
	if resp == nil {
		return nil
	}

	if resp.Rate.Remaining > rateLimitThreshold {
		return nil
	}

	resetAt := resp.Rate.Reset.Time
	wait := time.Until(resetAt)
	if wait <= 0 {
		return nil
	}

	jitter := time.Duration(rand.IntN(2000)) * time.Millisecond
	total := wait + jitter

	slog.Info("rate limit approaching, waiting",
		"remaining", resp.Rate.Remaining,
		"reset_at", resetAt.Format(time.RFC3339),
		"wait", total.String(),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(total):
		return nil
	}
}
