package pricing

import (
	"github.com/noah-isme/toko-discount/internal/discount"
)

// Result aggregates the outcome of one discount computation.
type Result struct {
	DiscountedPrice      float64             `json:"discountedPrice"`
	TotalDiscountApplied float64             `json:"totalDiscountApplied"`
	Details              []discount.Snapshot `json:"details"`
}

// Engine runs the compute-discounts pipeline: validate the request, build one
// snapshot per cart item, fold the priority-ordered discounts through their
// handlers and aggregate the totals. It holds no per-request state.
type Engine struct {
	Registry *discount.Registry
	// Policy is the point policy bound into Registry's USE_POINT handler.
	Policy discount.PointPolicy
}

// NewEngine returns an engine over the built-in handlers and the given point policy.
func NewEngine(policy discount.PointPolicy) *Engine {
	return &Engine{Registry: discount.DefaultRegistry(policy), Policy: policy}
}

// Compute applies discounts to items. The first error aborts the whole
// computation and no partial result is returned.
func (e *Engine) Compute(items []discount.CartItem, discounts []discount.Discount) (Result, error) {
	if len(items) == 0 {
		return Result{}, discount.ErrEmptyCart
	}
	if err := EnsureUniqueSources(discounts); err != nil {
		return Result{}, err
	}

	snapshots := make([]discount.Snapshot, 0, len(items))
	for _, it := range items {
		snapshots = append(snapshots, discount.NewSnapshot(it))
	}

	for _, d := range discount.SortByPriority(discounts) {
		handler, err := e.Registry.Handler(d.Mechanism)
		if err != nil {
			return Result{}, err
		}
		snapshots, err = discount.Execute(handler, snapshots, d.Context)
		if err != nil {
			return Result{}, err
		}
	}

	return Aggregate(snapshots), nil
}

// Aggregate totals the final snapshots.
func Aggregate(snapshots []discount.Snapshot) Result {
	var price, applied float64
	for _, s := range snapshots {
		price += s.DiscountedSubtotal
		applied += s.Subtotal - s.DiscountedSubtotal
	}
	return Result{
		DiscountedPrice:      price,
		TotalDiscountApplied: applied,
		Details:              snapshots,
	}
}

// EnsureUniqueSources fails on the first source that appears twice, in
// encounter order.
func EnsureUniqueSources(discounts []discount.Discount) error {
	seen := make(map[discount.Source]struct{}, len(discounts))
	for _, d := range discounts {
		if _, dup := seen[d.Source]; dup {
			return &discount.DuplicateSourceError{Source: d.Source}
		}
		seen[d.Source] = struct{}{}
	}
	return nil
}
