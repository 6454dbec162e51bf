package discount

import (
	"fmt"
	"math"
)

// Handler applies one discount mechanism to the running snapshot list.
//
// Validate must reject any context that is not the handler's own shape.
// Compute may assume Validate succeeded and must not mutate its input.
type Handler interface {
	Mechanism() Mechanism
	Validate(ctx Context) error
	Compute(snapshots []Snapshot, ctx Context) []Snapshot
}

// Execute validates ctx for h and, when valid, returns h's output for the
// snapshots. A validation failure returns no snapshots.
func Execute(h Handler, snapshots []Snapshot, ctx Context) ([]Snapshot, error) {
	m := h.Mechanism()
	if ctx == nil {
		return nil, EmptyContextError(m)
	}
	if ctx.Mechanism() != m {
		return nil, contextErr(m, "expected %s context, got %s", m, ctx.Mechanism())
	}
	if err := h.Validate(ctx); err != nil {
		return nil, err
	}
	return h.Compute(snapshots, ctx), nil
}

// contextAs asserts ctx to the concrete context type of mechanism m.
func contextAs[T Context](m Mechanism, ctx Context) (T, error) {
	c, ok := ctx.(T)
	if !ok {
		var zero T
		return zero, contextErr(m, "unexpected context type %T", ctx)
	}
	return c, nil
}

func requireFinite(m Mechanism, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return contextErr(m, "%s must be a finite number", field)
	}
	return nil
}

func requireRange(m Mechanism, field string, v, min, max float64) error {
	if err := requireFinite(m, field, v); err != nil {
		return err
	}
	if v < min || v > max {
		return contextErr(m, "%s must be between %s and %s", field, formatBound(min), formatBound(max))
	}
	return nil
}

func formatBound(v float64) string {
	return fmt.Sprintf("%g", v)
}

// distribute spreads a cart-level amount over the items in proportion to each
// item's current discounted subtotal, the fairness factor. Because the weight
// is the already-discounted subtotal, every stage re-normalizes against the
// output of the stage before it. A cart whose discounted total is zero is
// returned untouched.
func distribute(snapshots []Snapshot, m Mechanism, amount float64) []Snapshot {
	out := make([]Snapshot, len(snapshots))
	total := TotalDiscounted(snapshots)
	if total <= 0 {
		copy(out, snapshots)
		return out
	}
	for i, s := range snapshots {
		factor := s.DiscountedSubtotal / total
		next := ApplyFixed(s.DiscountedSubtotal, amount*factor)
		out[i] = s.withDiscount(m, s.DiscountedSubtotal-next, next)
	}
	return out
}
