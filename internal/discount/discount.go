// Package discount holds the discount computation core: the cart data model,
// the calculation rules, one handler per discount mechanism, the handler
// registry and the source priority order.
package discount

// Source is the commercial origin of a discount. It decides application order.
type Source string

const (
	SourceCoupon   Source = "COUPON"
	SourceOnTop    Source = "ON_TOP"
	SourceSeasonal Source = "SEASONAL"
)

// Mechanism is the calculation strategy of a discount.
type Mechanism string

const (
	MechanismFixed                Mechanism = "FIXED"
	MechanismPercentage           Mechanism = "PERCENTAGE"
	MechanismPercentageByCategory Mechanism = "PERCENTAGE_BY_CATEGORY"
	MechanismUsePoint             Mechanism = "USE_POINT"
	MechanismEveryXGetY           Mechanism = "EVERY_X_GET_Y"
)

// ProductCategory classifies cart items for category-scoped discounts.
type ProductCategory string

const (
	CategoryClothing    ProductCategory = "CLOTHING"
	CategoryAccessories ProductCategory = "ACCESSORIES"
	CategoryElectronics ProductCategory = "ELECTRONICS"
)

// Categories lists every known product category.
var Categories = []ProductCategory{CategoryClothing, CategoryAccessories, CategoryElectronics}

// Valid reports whether c is a known category.
func (c ProductCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CartItem is a single line of the cart as supplied by the caller.
type CartItem struct {
	Name            string          `json:"name" yaml:"name"`
	UnitPrice       float64         `json:"unitPrice" yaml:"unitPrice"`
	Quantity        int             `json:"quantity" yaml:"quantity"`
	ProductCategory ProductCategory `json:"productCategory" yaml:"productCategory"`
}

// Subtotal returns unit price times quantity.
func (it CartItem) Subtotal() float64 {
	return it.UnitPrice * float64(it.Quantity)
}

// AppliedDiscount records how much one mechanism took off one item.
type AppliedDiscount struct {
	Mechanism Mechanism `json:"mechanism"`
	Amount    float64   `json:"amount"`
}

// Snapshot tracks one cart item through the discount pipeline.
//
// Subtotal is fixed at creation. DiscountedSubtotal only ever decreases and
// never drops below zero. AppliedDiscounts is append-only and exists for audit.
type Snapshot struct {
	CartItem
	Subtotal           float64           `json:"subtotal"`
	DiscountedSubtotal float64           `json:"discountedSubtotal"`
	AppliedDiscounts   []AppliedDiscount `json:"appliedDiscounts"`
}

// NewSnapshot starts a snapshot for item with an empty trail.
func NewSnapshot(item CartItem) Snapshot {
	subtotal := item.Subtotal()
	return Snapshot{
		CartItem:           item,
		Subtotal:           subtotal,
		DiscountedSubtotal: subtotal,
		AppliedDiscounts:   []AppliedDiscount{},
	}
}

// withDiscount returns a copy of s with a new discounted subtotal and one more
// trail entry. The trail is copied so earlier stages keep their own view.
func (s Snapshot) withDiscount(m Mechanism, amount, discounted float64) Snapshot {
	trail := make([]AppliedDiscount, len(s.AppliedDiscounts), len(s.AppliedDiscounts)+1)
	copy(trail, s.AppliedDiscounts)
	s.AppliedDiscounts = append(trail, AppliedDiscount{Mechanism: m, Amount: amount})
	s.DiscountedSubtotal = discounted
	return s
}

// Discount pairs a source and a mechanism with the mechanism's parameters.
type Discount struct {
	Source    Source
	Mechanism Mechanism
	Context   Context
}

// AllowedPairs lists which mechanisms each source may carry.
var AllowedPairs = map[Source][]Mechanism{
	SourceCoupon:   {MechanismFixed, MechanismPercentage},
	SourceOnTop:    {MechanismPercentageByCategory, MechanismUsePoint},
	SourceSeasonal: {MechanismEveryXGetY},
}

// PairAllowed reports whether the source may carry the mechanism.
func PairAllowed(s Source, m Mechanism) bool {
	for _, allowed := range AllowedPairs[s] {
		if allowed == m {
			return true
		}
	}
	return false
}

// TotalDiscounted sums the running discounted subtotals of the snapshots.
func TotalDiscounted(snapshots []Snapshot) float64 {
	var total float64
	for _, s := range snapshots {
		total += s.DiscountedSubtotal
	}
	return total
}
