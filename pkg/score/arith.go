package score

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when points do not fit in an int64.
var ErrOverflow = errors.New("points out of range")

// calc does checked int64 arithmetic. After the first overflow every
// operation returns 0 and err holds the failure.
type calc struct {
	err error
}

func (k *calc) add(a, b int64) int64 {
	if k.err != nil {
		return 0
	}
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		k.err = fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
		return 0
	}
	return s
}

func (k *calc) mul(a, b int64) int64 {
	if k.err != nil || a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		k.err = fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
		return 0
	}
	return p
}

// half is floor(w / 2).
func half(w int64) int64 {
	return floorDiv(w, 2)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
