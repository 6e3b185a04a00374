// Package collect gathers contribution records from a GitHub repository.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/devpoints/pkg/score"
)

const (
	pageSizeDefault = 100

	sortUpdated   = "updated"
	sortCreated   = "created"
	sortDirection = "desc"

	reviewStatePending = "PENDING"

	kindPullRequests = "pull_requests"
)

// Options select the repository and time window to collect.
type Options struct {
	Owner string
	Repo  string
	Since time.Time
}

// ParseRepo splits an owner/name repository reference.
func ParseRepo(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", s)
	}
	return parts[0], parts[1], nil
}

type issueInfo struct {
	author      string
	pullRequest bool
}

// Collector walks one repository and emits one record per contribution.
type Collector struct {
	client *github.Client
	owner  string
	repo   string
	since  time.Time

	issues map[int]issueInfo
	list   []score.Contribution
	counts map[string]int
}

// New creates a collector for the repository in opt.
func New(client *github.Client, opt Options) (*Collector, error) {
	if client == nil {
		return nil, errors.New("github client is required")
	}
	if opt.Owner == "" || opt.Repo == "" {
		return nil, errors.New("owner and repo are required")
	}
	if opt.Since.IsZero() {
		return nil, errors.New("since is required")
	}

	return &Collector{
		client: client,
		owner:  opt.Owner,
		repo:   opt.Repo,
		since:  opt.Since.UTC(),
		issues: make(map[int]issueInfo),
		counts: make(map[string]int),
	}, nil
}

// Counts returns the number of records emitted per kind.
func (c *Collector) Counts() map[string]int {
	return c.counts
}

// Collect gathers merged pull requests with their reviews and review
// comments, opened issues, and help comments on other people's issues.
func (c *Collector) Collect(ctx context.Context) ([]score.Contribution, error) {
	c.list = make([]score.Contribution, 0)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"pull requests", c.collectPullRequests},
		{"issues", c.collectIssues},
		{"issue comments", c.collectIssueComments},
	}

	for _, s := range steps {
		slog.Debug("collecting", "step", s.name, "repo", c.owner+"/"+c.repo)
		if err := s.fn(ctx); err != nil {
			return nil, fmt.Errorf("collecting %s for %s/%s: %w", s.name, c.owner, c.repo, err)
		}
	}

	slog.Info("contributions collected",
		"repo", c.owner+"/"+c.repo,
		"since", c.since.Format(time.DateOnly),
		"records", len(c.list),
	)

	return c.list, nil
}

func (c *Collector) add(kind string, r *score.Contribution) {
	c.list = append(c.list, *r)
	c.counts[kind]++
}

func (c *Collector) collectPullRequests(ctx context.Context) error {
	opt := &github.PullRequestListOptions{
		State:       "closed",
		Sort:        sortUpdated,
		Direction:   sortDirection,
		ListOptions: github.ListOptions{PerPage: pageSizeDefault},
	}

	for {
		prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opt)
		if err != nil {
			return fmt.Errorf("listing pull requests: %w", err)
		}
		slog.Debug("pull request page", "page", opt.ListOptions.Page, "items", len(prs), "rate", rateInfo(&resp.Rate))

		done := false
		for _, pr := range prs {
			if pr.UpdatedAt != nil && pr.UpdatedAt.Before(c.since) {
				done = true
				break
			}
			if !inWindow(pr.MergedAt, c.since) {
				continue
			}
			if err := c.collectPullRequest(ctx, pr.GetNumber()); err != nil {
				return err
			}
		}

		if err := checkRateLimit(ctx, resp); err != nil {
			return err
		}
		if done || resp.NextPage == 0 {
			return nil
		}
		opt.ListOptions.Page = resp.NextPage
	}
}

func (c *Collector) collectPullRequest(ctx context.Context, number int) error {
	pr, resp, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return fmt.Errorf("getting pull request %d: %w", number, err)
	}
	if err := checkRateLimit(ctx, resp); err != nil {
		return err
	}

	docs, err := c.countDocFiles(ctx, number)
	if err != nil {
		return err
	}

	if author := login(pr.GetUser()); author != "" {
		r := score.NewContribution(author)
		r.Add(score.CounterAdditions, int64(pr.GetAdditions()))
		r.Add(score.CounterDeletions, int64(pr.GetDeletions()))
		r.Add(score.CounterCommits, int64(pr.GetCommits()))
		r.Add(score.CounterDocChanges, int64(docs))
		c.add(kindPullRequests, r)
	}

	if err := c.collectReviews(ctx, number, docs > 0); err != nil {
		return err
	}

	return c.collectReviewComments(ctx, number)
}

func (c *Collector) countDocFiles(ctx context.Context, number int) (int, error) {
	opt := &github.ListOptions{PerPage: pageSizeDefault}
	count := 0

	for {
		files, resp, err := c.client.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opt)
		if err != nil {
			return 0, fmt.Errorf("listing files of pull request %d: %w", number, err)
		}
		for _, f := range files {
			if isDocFile(f.GetFilename()) {
				count++
			}
		}
		if err := checkRateLimit(ctx, resp); err != nil {
			return 0, err
		}
		if resp.NextPage == 0 {
			return count, nil
		}
		opt.Page = resp.NextPage
	}
}

func (c *Collector) collectReviews(ctx context.Context, number int, docs bool) error {
	opt := &github.ListOptions{PerPage: pageSizeDefault}

	for {
		reviews, resp, err := c.client.PullRequests.ListReviews(ctx, c.owner, c.repo, number, opt)
		if err != nil {
			return fmt.Errorf("listing reviews of pull request %d: %w", number, err)
		}
		for _, rv := range reviews {
			if strings.EqualFold(rv.GetState(), reviewStatePending) || !inWindow(rv.SubmittedAt, c.since) {
				continue
			}
			reviewer := login(rv.GetUser())
			if reviewer == "" {
				continue
			}
			r := score.NewContribution(reviewer)
			r.Add(score.CounterReviews, 1)
			if docs {
				r.Add(score.CounterDocReviews, 1)
			}
			c.add(score.CounterReviews, r)
		}
		if err := checkRateLimit(ctx, resp); err != nil {
			return err
		}
		if resp.NextPage == 0 {
			return nil
		}
		opt.Page = resp.NextPage
	}
}

func (c *Collector) collectReviewComments(ctx context.Context, number int) error {
	opt := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: pageSizeDefault},
	}

	for {
		comments, resp, err := c.client.PullRequests.ListComments(ctx, c.owner, c.repo, number, opt)
		if err != nil {
			return fmt.Errorf("listing review comments of pull request %d: %w", number, err)
		}
		for _, cm := range comments {
			if !inWindow(cm.CreatedAt, c.since) {
				continue
			}
			if author := login(cm.GetUser()); author != "" {
				r := score.NewContribution(author)
				r.Add(score.CounterReviewComments, 1)
				c.add(score.CounterReviewComments, r)
			}
		}
		if err := checkRateLimit(ctx, resp); err != nil {
			return err
		}
		if resp.NextPage == 0 {
			return nil
		}
		opt.ListOptions.Page = resp.NextPage
	}
}

func (c *Collector) collectIssues(ctx context.Context) error {
	opt := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        sortCreated,
		Direction:   sortDirection,
		Since:       c.since,
		ListOptions: github.ListOptions{PerPage: pageSizeDefault},
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opt)
		if err != nil {
			return fmt.Errorf("listing issues: %w", err)
		}
		for _, is := range issues {
			author := login(is.GetUser())
			c.issues[is.GetNumber()] = issueInfo{
				author:      author,
				pullRequest: is.IsPullRequest(),
			}
			if is.IsPullRequest() || author == "" || !inWindow(is.CreatedAt, c.since) {
				continue
			}
			r := score.NewContribution(author)
			r.Add(score.CounterIssues, 1)
			c.add(score.CounterIssues, r)
		}
		if err := checkRateLimit(ctx, resp); err != nil {
			return err
		}
		if resp.NextPage == 0 {
			return nil
		}
		opt.ListOptions.Page = resp.NextPage
	}
}

func (c *Collector) collectIssueComments(ctx context.Context) error {
	since := c.since
	sort := sortCreated
	dir := sortDirection
	opt := &github.IssueListCommentsOptions{
		Sort:        &sort,
		Direction:   &dir,
		Since:       &since,
		ListOptions: github.ListOptions{PerPage: pageSizeDefault},
	}

	for {
		// issue number 0 lists comments across the whole repository
		comments, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, 0, opt)
		if err != nil {
			return fmt.Errorf("listing issue comments: %w", err)
		}
		for _, cm := range comments {
			if !inWindow(cm.CreatedAt, c.since) {
				continue
			}
			n, ok := issueNumberFromURL(cm.GetIssueURL())
			if !ok {
				continue
			}
			info, known := c.issues[n]
			author := login(cm.GetUser())
			if !known || info.pullRequest || author == "" || author == info.author {
				continue
			}
			r := score.NewContribution(author)
			r.Add(score.CounterHelpComments, 1)
			c.add(score.CounterHelpComments, r)
		}
		if err := checkRateLimit(ctx, resp); err != nil {
			return err
		}
		if resp.NextPage == 0 {
			return nil
		}
		opt.ListOptions.Page = resp.NextPage
	}
}
