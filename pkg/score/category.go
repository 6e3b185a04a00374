// Package score converts contribution counters into integer points using a
// per-category weight table and sums them per contributor login.
package score

// Category is one of the fixed contribution kinds.
type Category string

const (
	CategoryCode          Category = "code"
	CategoryReview        Category = "review"
	CategoryDocumentation Category = "documentation"
	CategoryCommunity     Category = "community"
)

// Categories returns all categories in evaluation order.
func Categories() []Category {
	return []Category{
		CategoryCode,
		CategoryReview,
		CategoryDocumentation,
		CategoryCommunity,
	}
}

func (c Category) String() string {
	return string(c)
}
