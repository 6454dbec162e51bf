package discount

// PercentageHandler takes the same percentage off every item independently.
type PercentageHandler struct{}

// Mechanism implements Handler.
func (PercentageHandler) Mechanism() Mechanism { return MechanismPercentage }

// Validate implements Handler.
func (PercentageHandler) Validate(ctx Context) error {
	c, err := contextAs[PercentageContext](MechanismPercentage, ctx)
	if err != nil {
		return err
	}
	return requireRange(MechanismPercentage, "percentage", c.Percentage, 0, 100)
}

// Compute implements Handler.
func (PercentageHandler) Compute(snapshots []Snapshot, ctx Context) []Snapshot {
	c := ctx.(PercentageContext)
	out := make([]Snapshot, len(snapshots))
	for i, s := range snapshots {
		out[i] = applyPercentageTo(s, MechanismPercentage, c.Percentage)
	}
	return out
}

// CategoryPercentageHandler takes a percentage off items of a single category.
// Items of other categories pass through without a trail entry.
type CategoryPercentageHandler struct{}

// Mechanism implements Handler.
func (CategoryPercentageHandler) Mechanism() Mechanism { return MechanismPercentageByCategory }

// Validate implements Handler.
func (CategoryPercentageHandler) Validate(ctx Context) error {
	c, err := contextAs[CategoryPercentageContext](MechanismPercentageByCategory, ctx)
	if err != nil {
		return err
	}
	if err := requireRange(MechanismPercentageByCategory, "percentage", c.Percentage, 1, 100); err != nil {
		return err
	}
	if c.ProductCategory == "" {
		return contextErr(MechanismPercentageByCategory, "Category must be specified for percentage by category discount")
	}
	return nil
}

// Compute implements Handler.
func (CategoryPercentageHandler) Compute(snapshots []Snapshot, ctx Context) []Snapshot {
	c := ctx.(CategoryPercentageContext)
	out := make([]Snapshot, len(snapshots))
	for i, s := range snapshots {
		if s.ProductCategory != c.ProductCategory {
			out[i] = s
			continue
		}
		out[i] = applyPercentageTo(s, MechanismPercentageByCategory, c.Percentage)
	}
	return out
}

func applyPercentageTo(s Snapshot, m Mechanism, percentage float64) Snapshot {
	next := ApplyPercentage(s.DiscountedSubtotal, percentage)
	return s.withDiscount(m, s.DiscountedSubtotal-next, next)
}
