package score

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Counter names read from a contribution record.
const (
	CounterAdditions      = "additions"
	CounterDeletions      = "deletions"
	CounterCommits        = "commits"
	CounterReviews        = "reviews"
	CounterReviewComments = "review_comments"
	CounterDocChanges     = "doc_changes"
	CounterDocReviews     = "doc_reviews"
	CounterIssues         = "issues"
	CounterDiscussions    = "discussions"
	CounterHelpComments   = "help_comments"

	authorKey = "author"
	loginKey  = "login"
)

// Author identifies who made a contribution.
type Author struct {
	Login string `json:"login,omitempty" yaml:"login,omitempty"`
}

// Contribution is one unit of recorded activity: an author plus named
// numeric counters. On the wire the counters are top-level fields next to
// the author object.
type Contribution struct {
	Author   *Author
	Counters map[string]int64
}

// NewContribution creates a record for login with no counters set.
func NewContribution(login string) *Contribution {
	return &Contribution{
		Author:   &Author{Login: login},
		Counters: make(map[string]int64),
	}
}

// Login returns the author login or an empty string when there is none.
func (c Contribution) Login() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.Login
}

// Count returns the named counter, or 0 when the record does not carry it.
func (c Contribution) Count(name string) int64 {
	return c.Counters[name]
}

// Add increments the named counter by n.
func (c *Contribution) Add(name string, n int64) {
	if c.Counters == nil {
		c.Counters = make(map[string]int64)
	}
	c.Counters[name] += n
}

// UnmarshalJSON reads the author login and every numeric top-level field.
// Non-numeric fields are ignored and fractional values are truncated.
// A number outside the int64 range is an error wrapping ErrOverflow.
// An author that is not an object, or a login that is not a string, leaves
// the record without a login.
func (c *Contribution) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("decoding contribution: %w", err)
	}

	c.Author = nil
	c.Counters = make(map[string]int64, len(fields))

	for k, raw := range fields {
		if k == authorKey {
			c.Author = parseAuthor(raw)
			continue
		}
		v, ok, err := parseCounter(raw)
		if err != nil {
			return fmt.Errorf("decoding counter %s: %w", k, err)
		}
		if ok {
			c.Counters[k] = v
		}
	}

	return nil
}

// MarshalJSON writes the counters as top-level fields next to the author.
func (c Contribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.fields())
}

// MarshalYAML uses the same flat layout as MarshalJSON.
func (c Contribution) MarshalYAML() (any, error) {
	return c.fields(), nil
}

func (c Contribution) fields() map[string]any {
	m := make(map[string]any, len(c.Counters)+1)
	for k, v := range c.Counters {
		m[k] = v
	}
	if c.Author != nil {
		m[authorKey] = c.Author
	}
	return m
}

func parseAuthor(raw json.RawMessage) *Author {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}

	var login string
	if err := json.Unmarshal(fields[loginKey], &login); err != nil {
		return nil
	}

	return &Author{Login: login}
}

// 2^63 as a float64, the first value past the int64 range.
const int64Limit = float64(1 << 63)

func parseCounter(raw json.RawMessage) (int64, bool, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return 0, false, nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false, fmt.Errorf("%w: %s", ErrOverflow, s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if !errors.Is(err, strconv.ErrRange) {
			return 0, false, nil
		}
		if f == 0 {
			// underflow, e.g. 1e-400
			return 0, true, nil
		}
	}
	f = math.Trunc(f)
	if math.IsInf(f, 0) || math.IsNaN(f) || f >= int64Limit || f < -int64Limit {
		return 0, false, fmt.Errorf("%w: %s", ErrOverflow, s)
	}

	return int64(f), true, nil
}
