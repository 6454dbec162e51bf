package discount

import "math"

// ThresholdHandler rewards GetY for every full EveryX of the cart's running
// total and spreads the reward by fairness factor.
type ThresholdHandler struct{}

// Mechanism implements Handler.
func (ThresholdHandler) Mechanism() Mechanism { return MechanismEveryXGetY }

// Validate implements Handler.
func (ThresholdHandler) Validate(ctx Context) error {
	c, err := contextAs[ThresholdContext](MechanismEveryXGetY, ctx)
	if err != nil {
		return err
	}
	if err := requireFinite(MechanismEveryXGetY, "everyX", c.EveryX); err != nil {
		return err
	}
	if err := requireFinite(MechanismEveryXGetY, "getY", c.GetY); err != nil {
		return err
	}
	if c.EveryX <= 0 {
		return contextErr(MechanismEveryXGetY, "Every X must be greater than 0")
	}
	if c.GetY <= 0 {
		return contextErr(MechanismEveryXGetY, "Get Y must be greater than 0")
	}
	return nil
}

// Compute implements Handler.
func (ThresholdHandler) Compute(snapshots []Snapshot, ctx Context) []Snapshot {
	c := ctx.(ThresholdContext)
	multiples := math.Floor(TotalDiscounted(snapshots) / c.EveryX)
	return distribute(snapshots, MechanismEveryXGetY, multiples*c.GetY)
}
