package score

import (
	"fmt"
	"log/slog"
)

const linesPerCodeUnit = 100

// Points maps contributor login to accumulated points.
type Points map[string]int64

// Breakdown holds points per category.
type Breakdown map[Category]int64

// Total sums all categories.
func (b Breakdown) Total() (int64, error) {
	var k calc
	var t int64
	for _, v := range b {
		t = k.add(t, v)
	}
	return t, k.err
}

// Summary is the result of scoring a list of contributions.
type Summary struct {
	Points    Points               `json:"points" yaml:"points"`
	Breakdown map[string]Breakdown `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// CodePoints scores changed lines (per 100) and commits.
func CodePoints(c Contribution, weight int64) (int64, error) {
	var k calc
	lines := k.add(c.Count(CounterAdditions), c.Count(CounterDeletions))
	v := k.add(k.mul(floorDiv(lines, linesPerCodeUnit), weight), k.mul(c.Count(CounterCommits), half(weight)))
	return v, k.err
}

// ReviewPoints scores reviews and review comments.
func ReviewPoints(c Contribution, weight int64) (int64, error) {
	var k calc
	v := k.add(k.mul(c.Count(CounterReviews), weight), k.mul(c.Count(CounterReviewComments), half(weight)))
	return v, k.err
}

// DocumentationPoints scores documentation changes and documentation reviews.
func DocumentationPoints(c Contribution, weight int64) (int64, error) {
	var k calc
	v := k.add(k.mul(c.Count(CounterDocChanges), weight), k.mul(c.Count(CounterDocReviews), half(weight)))
	return v, k.err
}

// CommunityPoints scores issues, discussions, and help comments.
func CommunityPoints(c Contribution, weight int64) (int64, error) {
	var k calc
	opened := k.add(c.Count(CounterIssues), c.Count(CounterDiscussions))
	v := k.add(k.mul(opened, weight), k.mul(c.Count(CounterHelpComments), half(weight)))
	return v, k.err
}

// Score evaluates every category for a single contribution.
// Each category needs a weight even when the record has no matching counters.
func Score(c Contribution, w Weights) (Breakdown, error) {
	b := make(Breakdown, len(Categories()))

	for _, cat := range Categories() {
		weight, err := w.Get(cat)
		if err != nil {
			return nil, err
		}

		var v int64
		switch cat {
		case CategoryCode:
			v, err = CodePoints(c, weight)
		case CategoryReview:
			v, err = ReviewPoints(c, weight)
		case CategoryDocumentation:
			v, err = DocumentationPoints(c, weight)
		case CategoryCommunity:
			v, err = CommunityPoints(c, weight)
		}
		if err != nil {
			return nil, fmt.Errorf("%s points: %w", cat, err)
		}
		b[cat] = v
	}

	return b, nil
}

// CalculateTotalPoints sums the points of all contributions per login.
// Records without a login are skipped. Any error aborts the whole calculation.
func CalculateTotalPoints(list []Contribution, w Weights) (Points, error) {
	s, err := Summarize(list, w)
	if err != nil {
		return nil, err
	}
	return s.Points, nil
}

// Summarize is CalculateTotalPoints with a per-category breakdown per login.
func Summarize(list []Contribution, w Weights) (*Summary, error) {
	s := &Summary{
		Points:    make(Points),
		Breakdown: make(map[string]Breakdown),
	}

	skipped := 0
	for i, c := range list {
		login := c.Login()
		if login == "" {
			skipped++
			continue
		}

		b, err := Score(c, w)
		if err != nil {
			return nil, fmt.Errorf("scoring contribution %d by %s: %w", i, login, err)
		}

		acc, ok := s.Breakdown[login]
		if !ok {
			acc = make(Breakdown, len(b))
			s.Breakdown[login] = acc
		}
		var k calc
		for cat, v := range b {
			acc[cat] = k.add(acc[cat], v)
		}
		total, err := b.Total()
		if err == nil {
			s.Points[login] = k.add(s.Points[login], total)
			err = k.err
		}
		if err != nil {
			return nil, fmt.Errorf("summing points for %s: %w", login, err)
		}

		slog.Debug("scored contribution",
			"login", login,
			"code", b[CategoryCode],
			"review", b[CategoryReview],
			"documentation", b[CategoryDocumentation],
			"community", b[CategoryCommunity],
		)
	}

	slog.Debug("contributions scored", "records", len(list), "skipped", skipped, "contributors", len(s.Points))

	return s, nil
}
