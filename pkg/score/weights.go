package score

import (
	"errors"
	"fmt"
)

// ErrMissingWeight is returned when a category is evaluated without a weight.
var ErrMissingWeight = errors.New("missing weight")

// Weights maps category names to per-unit point values.
// Keys other than the four categories are ignored.
type Weights map[string]int64

// Get returns the weight for c or an error wrapping ErrMissingWeight.
func (w Weights) Get(c Category) (int64, error) {
	v, ok := w[string(c)]
	if !ok {
		return 0, fmt.Errorf("%w for category: %s", ErrMissingWeight, c)
	}
	return v, nil
}

