package discount

import (
	"fmt"
	"math"
)

const (
	// DefaultPointConversionRate is the money value of one point.
	DefaultPointConversionRate = 1.0
	// DefaultPointCapRatio is the share of the cart total points may cover.
	DefaultPointCapRatio = 0.20
)

// PointPolicy converts points to money and caps how much of a cart they may pay for.
type PointPolicy struct {
	ConversionRate float64
	CapRatio       float64
}

// DefaultPointPolicy returns the standard 1:1 rate with a 20% cap.
func DefaultPointPolicy() PointPolicy {
	return PointPolicy{ConversionRate: DefaultPointConversionRate, CapRatio: DefaultPointCapRatio}
}

// Validate rejects policies that cannot convert points.
func (p PointPolicy) Validate() error {
	if math.IsNaN(p.ConversionRate) || math.IsInf(p.ConversionRate, 0) || p.ConversionRate <= 0 {
		return fmt.Errorf("%w: point conversion rate must be greater than 0", ErrInvalidPolicy)
	}
	if math.IsNaN(p.CapRatio) || p.CapRatio <= 0 || p.CapRatio > 1 {
		return fmt.Errorf("%w: point cap ratio must be within (0, 1]", ErrInvalidPolicy)
	}
	return nil
}

// ToMoney converts points into currency.
func (p PointPolicy) ToMoney(points float64) float64 { return points * p.ConversionRate }

// ToPoints converts currency into points.
func (p PointPolicy) ToPoints(money float64) float64 { return money / p.ConversionRate }

// MaxUsablePoints is the whole number of points redeemable against total.
func (p PointPolicy) MaxUsablePoints(total float64) float64 {
	return math.Floor(p.ToPoints(total * p.CapRatio))
}

// PointsHandler redeems points against the cart, capped by its policy, and
// spreads the resulting amount by fairness factor.
type PointsHandler struct {
	Policy PointPolicy
}

// NewPointsHandler builds a handler for policy. It panics on an invalid policy.
func NewPointsHandler(policy PointPolicy) PointsHandler {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	return PointsHandler{Policy: policy}
}

// Mechanism implements Handler.
func (PointsHandler) Mechanism() Mechanism { return MechanismUsePoint }

// Validate implements Handler. A handler built around an invalid policy
// rejects every context rather than guessing a rate.
func (h PointsHandler) Validate(ctx Context) error {
	if err := h.Policy.Validate(); err != nil {
		return err
	}
	c, err := contextAs[PointsContext](MechanismUsePoint, ctx)
	if err != nil {
		return err
	}
	if err := requireFinite(MechanismUsePoint, "points", c.Points); err != nil {
		return err
	}
	if c.Points < 0 {
		return contextErr(MechanismUsePoint, "Points cannot be negative")
	}
	return nil
}

// Compute implements Handler.
func (h PointsHandler) Compute(snapshots []Snapshot, ctx Context) []Snapshot {
	c := ctx.(PointsContext)
	maxPoints := h.Policy.MaxUsablePoints(TotalDiscounted(snapshots))
	used := math.Min(c.Points, maxPoints)
	return distribute(snapshots, MechanismUsePoint, h.Policy.ToMoney(used))
}
