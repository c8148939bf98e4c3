package pricing

import (
	"errors"

	"github.com/sahilchouksey/coursekart/model"
)

// ErrMissingPrice indicates a catalog row without pricing data. Callers must
// treat this as a data-integrity failure, never as a free course.
var ErrMissingPrice = errors.New("course has no price configured")

// Resolve returns the amount due for a course in INR. DiscountedPrice wins
// over Price whenever it is set.
//
// TODO: DiscountStartDate/DiscountEndDate are stored on the course but not
// checked here; the discount applies unconditionally until product decides
// whether the window should be honored.
func Resolve(course *model.Course) (float64, error) {
	if course == nil {
		return 0, ErrMissingPrice
	}
	if course.DiscountedPrice != nil {
		return *course.DiscountedPrice, nil
	}
	if course.Price < 0 {
		return 0, ErrMissingPrice
	}
	return course.Price, nil
}

// IsFree reports whether the resolved amount selects the free enrollment path.
func IsFree(amount float64) bool {
	return amount == 0
}
