package discount

// ApplyPercentage returns price reduced by percentage percent, floored at zero.
func ApplyPercentage(price, percentage float64) float64 {
	discounted := price - price*percentage/100
	if discounted > 0 {
		return discounted
	}
	return 0
}

// ApplyFixed returns price reduced by amount, floored at zero. Any excess is
// absorbed by the item and not carried to other items.
func ApplyFixed(price, amount float64) float64 {
	discounted := price - amount
	if discounted > 0 {
		return discounted
	}
	return 0
}
