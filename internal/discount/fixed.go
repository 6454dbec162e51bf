package discount

// FixedHandler takes a fixed amount off the cart, spread by fairness factor.
type FixedHandler struct{}

// Mechanism implements Handler.
func (FixedHandler) Mechanism() Mechanism { return MechanismFixed }

// Validate implements Handler.
func (FixedHandler) Validate(ctx Context) error {
	c, err := contextAs[FixedContext](MechanismFixed, ctx)
	if err != nil {
		return err
	}
	if err := requireFinite(MechanismFixed, "amount", c.Amount); err != nil {
		return err
	}
	if c.Amount < 0 {
		return contextErr(MechanismFixed, "Discount amount must equal or greater than 0")
	}
	return nil
}

// Compute implements Handler.
func (FixedHandler) Compute(snapshots []Snapshot, ctx Context) []Snapshot {
	c := ctx.(FixedContext)
	return distribute(snapshots, MechanismFixed, c.Amount)
}
