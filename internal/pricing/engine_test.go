package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-discount/internal/discount"
)

const tolerance = 1e-6

func twoItemCart() []discount.CartItem {
	return []discount.CartItem{
		{Name: "T-Shirt", UnitPrice: 300, Quantity: 1, ProductCategory: discount.CategoryClothing},
		{Name: "Hat", UnitPrice: 200, Quantity: 1, ProductCategory: discount.CategoryAccessories},
	}
}

func couponFixed(amount float64) discount.Discount {
	return discount.Discount{Source: discount.SourceCoupon, Mechanism: discount.MechanismFixed, Context: discount.FixedContext{Amount: amount}}
}

func onTopClothing(pct float64) discount.Discount {
	return discount.Discount{
		Source:    discount.SourceOnTop,
		Mechanism: discount.MechanismPercentageByCategory,
		Context:   discount.CategoryPercentageContext{Percentage: pct, ProductCategory: discount.CategoryClothing},
	}
}

func seasonal(everyX, getY float64) discount.Discount {
	return discount.Discount{Source: discount.SourceSeasonal, Mechanism: discount.MechanismEveryXGetY, Context: discount.ThresholdContext{EveryX: everyX, GetY: getY}}
}

func newTestEngine() *Engine {
	return NewEngine(discount.DefaultPointPolicy())
}

func TestComputeWithoutDiscounts(t *testing.T) {
	res, err := newTestEngine().Compute(twoItemCart(), nil)
	require.NoError(t, err)
	require.Equal(t, 500.0, res.DiscountedPrice)
	require.Equal(t, 0.0, res.TotalDiscountApplied)
	require.Len(t, res.Details, 2)
	for _, d := range res.Details {
		require.Empty(t, d.AppliedDiscounts)
		require.Equal(t, d.Subtotal, d.DiscountedSubtotal)
	}
}

func TestComputeCouponThenCategory(t *testing.T) {
	res, err := newTestEngine().Compute(twoItemCart(), []discount.Discount{couponFixed(50), onTopClothing(10)})
	require.NoError(t, err)
	require.InDelta(t, 423, res.DiscountedPrice, tolerance)
	require.InDelta(t, 77, res.TotalDiscountApplied, tolerance)

	shirt := res.Details[0]
	require.Len(t, shirt.AppliedDiscounts, 2)
	require.Equal(t, discount.MechanismFixed, shirt.AppliedDiscounts[0].Mechanism)
	require.InDelta(t, 30, shirt.AppliedDiscounts[0].Amount, tolerance)
	require.Equal(t, discount.MechanismPercentageByCategory, shirt.AppliedDiscounts[1].Mechanism)
	require.InDelta(t, 27, shirt.AppliedDiscounts[1].Amount, tolerance)

	hat := res.Details[1]
	require.Len(t, hat.AppliedDiscounts, 1)
	require.InDelta(t, 180, hat.DiscountedSubtotal, tolerance)
}

func TestComputeAppliesCouponFirstRegardlessOfInputOrder(t *testing.T) {
	sorted := []discount.Discount{couponFixed(50), onTopClothing(10), seasonal(100, 20)}
	unsorted := []discount.Discount{onTopClothing(10), seasonal(100, 20), couponFixed(50)}

	a, err := newTestEngine().Compute(twoItemCart(), sorted)
	require.NoError(t, err)
	b, err := newTestEngine().Compute(twoItemCart(), unsorted)
	require.NoError(t, err)

	require.InDelta(t, 343, a.DiscountedPrice, tolerance)
	require.InDelta(t, 157, a.TotalDiscountApplied, tolerance)
	require.Equal(t, a, b)
	// unsorted input is left as given
	require.Equal(t, discount.SourceOnTop, unsorted[0].Source)
}

func TestComputePointsCap(t *testing.T) {
	items := []discount.CartItem{
		{Name: "T-Shirt", UnitPrice: 350, Quantity: 1, ProductCategory: discount.CategoryClothing},
		{Name: "Hat", UnitPrice: 250, Quantity: 1, ProductCategory: discount.CategoryAccessories},
		{Name: "Belt", UnitPrice: 230, Quantity: 1, ProductCategory: discount.CategoryAccessories},
	}
	points := discount.Discount{Source: discount.SourceOnTop, Mechanism: discount.MechanismUsePoint, Context: discount.PointsContext{Points: 300}}
	res, err := newTestEngine().Compute(items, []discount.Discount{points})
	require.NoError(t, err)
	require.InDelta(t, 664, res.DiscountedPrice, tolerance)
	require.InDelta(t, 166, res.TotalDiscountApplied, tolerance)
}

func TestComputeEmptyCart(t *testing.T) {
	_, err := newTestEngine().Compute(nil, []discount.Discount{couponFixed(10)})
	require.ErrorIs(t, err, discount.ErrEmptyCart)
}

func TestComputeDuplicateSourceAnyPosition(t *testing.T) {
	lists := [][]discount.Discount{
		{couponFixed(50), {Source: discount.SourceCoupon, Mechanism: discount.MechanismPercentage, Context: discount.PercentageContext{Percentage: 10}}},
		{seasonal(100, 10), onTopClothing(5), seasonal(200, 10)},
	}
	want := []discount.Source{discount.SourceCoupon, discount.SourceSeasonal}
	for i, list := range lists {
		_, err := newTestEngine().Compute(twoItemCart(), list)
		require.ErrorIs(t, err, discount.ErrDuplicateSource)
		var dup *discount.DuplicateSourceError
		require.ErrorAs(t, err, &dup)
		require.Equal(t, want[i], dup.Source)
		require.Equal(t, "Duplicate discount source detected: "+string(want[i]), err.Error())
	}
}

func TestComputeFailsFastOnInvalidContext(t *testing.T) {
	bad := discount.Discount{Source: discount.SourceOnTop, Mechanism: discount.MechanismPercentageByCategory, Context: discount.CategoryPercentageContext{Percentage: 150, ProductCategory: discount.CategoryClothing}}
	res, err := newTestEngine().Compute(twoItemCart(), []discount.Discount{couponFixed(50), bad})
	require.ErrorIs(t, err, discount.ErrInvalidContext)
	require.Equal(t, Result{}, res)
}

func TestComputeUnregisteredMechanism(t *testing.T) {
	engine := &Engine{Registry: discount.NewRegistry(discount.FixedHandler{})}
	_, err := engine.Compute(twoItemCart(), []discount.Discount{seasonal(100, 10)})
	require.True(t, errors.Is(err, discount.ErrUnregisteredMechanism))
}

func TestComputeConservationAcrossRandomCarts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	categories := discount.Categories
	engine := newTestEngine()
	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(5)
		items := make([]discount.CartItem, n)
		var gross float64
		for i := range items {
			items[i] = discount.CartItem{
				Name:            "item",
				UnitPrice:       float64(1 + rng.Intn(1000)),
				Quantity:        1 + rng.Intn(4),
				ProductCategory: categories[rng.Intn(len(categories))],
			}
			gross += items[i].Subtotal()
		}
		discounts := []discount.Discount{
			couponFixed(float64(rng.Intn(3000))),
			{Source: discount.SourceOnTop, Mechanism: discount.MechanismUsePoint, Context: discount.PointsContext{Points: float64(rng.Intn(500))}},
			seasonal(float64(1+rng.Intn(400)), float64(1+rng.Intn(80))),
		}
		rng.Shuffle(len(discounts), func(i, j int) { discounts[i], discounts[j] = discounts[j], discounts[i] })

		res, err := engine.Compute(items, discounts)
		require.NoError(t, err)
		require.InDelta(t, gross, res.DiscountedPrice+res.TotalDiscountApplied, 1e-6)
		for _, d := range res.Details {
			require.GreaterOrEqual(t, d.DiscountedSubtotal, 0.0)
			require.LessOrEqual(t, d.DiscountedSubtotal, d.Subtotal)
			var trail float64
			for _, a := range d.AppliedDiscounts {
				trail += a.Amount
			}
			require.InDelta(t, d.Subtotal, trail+d.DiscountedSubtotal, 1e-6)
		}
	}
}
