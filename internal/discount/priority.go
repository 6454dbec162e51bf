package discount

import (
	"math"
	"slices"
)

// SourcePriority orders sources for application; lower applies first.
var SourcePriority = map[Source]int{
	SourceCoupon:   1,
	SourceOnTop:    2,
	SourceSeasonal: 3,
}

// Priority returns the priority of s. Unknown sources rank after all known ones.
func Priority(s Source) int {
	if p, ok := SourcePriority[s]; ok {
		return p
	}
	return math.MaxInt
}

// SortByPriority returns a copy of discounts stably ordered by source
// priority. The mechanism plays no part in the order.
func SortByPriority(discounts []Discount) []Discount {
	sorted := slices.Clone(discounts)
	slices.SortStableFunc(sorted, func(a, b Discount) int {
		pa, pb := Priority(a.Source), Priority(b.Source)
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
