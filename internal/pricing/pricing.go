// Package pricing derives discount rate and outlet eligibility from tag
// price vs. selling price. Prices are integer won.
package pricing

import "math"

// OutletThreshold: a style is outlet when its cheapest variant sells at 50%
// off or more. The boundary is closed (exactly 50% off is outlet).
const OutletThreshold = 0.5

// DiscountRate returns round((1 - selling/tag) * 100), or 0 when the tag
// price is not positive.
func DiscountRate(tagPrice, sellingPrice int64) int {
	if tagPrice <= 0 {
		return 0
	}

	return int(math.Round((1 - float64(sellingPrice)/float64(tagPrice)) * 100))
}

// IsOutlet reports whether sellingPrice <= tagPrice * 0.5. Integer form so
// an odd tag price cannot misclassify the boundary.
func IsOutlet(tagPrice, sellingPrice int64) bool {
	if tagPrice <= 0 {
		return false
	}

	return sellingPrice*2 <= tagPrice
}
