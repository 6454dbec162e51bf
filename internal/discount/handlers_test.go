package discount_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-discount/internal/discount"
)

const tolerance = 1e-9

func snapshots(items ...discount.CartItem) []discount.Snapshot {
	out := make([]discount.Snapshot, 0, len(items))
	for _, it := range items {
		out = append(out, discount.NewSnapshot(it))
	}
	return out
}

// threeItemCart totals 830.
func threeItemCart() []discount.Snapshot {
	return snapshots(
		discount.CartItem{Name: "T-Shirt", UnitPrice: 350, Quantity: 1, ProductCategory: discount.CategoryClothing},
		discount.CartItem{Name: "Hat", UnitPrice: 250, Quantity: 1, ProductCategory: discount.CategoryAccessories},
		discount.CartItem{Name: "Belt", UnitPrice: 230, Quantity: 1, ProductCategory: discount.CategoryAccessories},
	)
}

func totalApplied(snaps []discount.Snapshot) float64 {
	var total float64
	for _, s := range snaps {
		for _, d := range s.AppliedDiscounts {
			total += d.Amount
		}
	}
	return total
}

func TestFixedHandlerDistributesProportionally(t *testing.T) {
	cart := snapshots(
		discount.CartItem{Name: "T-Shirt", UnitPrice: 350, Quantity: 1, ProductCategory: discount.CategoryClothing},
		discount.CartItem{Name: "Hat", UnitPrice: 250, Quantity: 1, ProductCategory: discount.CategoryAccessories},
	)
	out, err := discount.Execute(discount.FixedHandler{}, cart, discount.FixedContext{Amount: 50})
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.InDelta(t, 50, totalApplied(out), tolerance)
	require.InDelta(t, 550, discount.TotalDiscounted(out), tolerance)
	require.InDelta(t, 350-50*350.0/600, out[0].DiscountedSubtotal, tolerance)
	for _, s := range out {
		require.Len(t, s.AppliedDiscounts, 1)
		require.Equal(t, discount.MechanismFixed, s.AppliedDiscounts[0].Mechanism)
	}
	// input untouched
	require.Equal(t, 350.0, cart[0].DiscountedSubtotal)
	require.Empty(t, cart[0].AppliedDiscounts)
}

func TestFixedHandlerZeroTotalIsNoop(t *testing.T) {
	cart := snapshots(discount.CartItem{Name: "Free", UnitPrice: 0, Quantity: 1, ProductCategory: discount.CategoryClothing})
	out, err := discount.Execute(discount.FixedHandler{}, cart, discount.FixedContext{Amount: 10})
	require.NoError(t, err)
	require.Equal(t, 0.0, out[0].DiscountedSubtotal)
	require.Empty(t, out[0].AppliedDiscounts)
}

func TestFixedHandlerExcessFloorsEachItem(t *testing.T) {
	out, err := discount.Execute(discount.FixedHandler{}, threeItemCart(), discount.FixedContext{Amount: 5000})
	require.NoError(t, err)
	for _, s := range out {
		require.Equal(t, 0.0, s.DiscountedSubtotal)
		require.InDelta(t, s.Subtotal, s.AppliedDiscounts[0].Amount, tolerance)
	}
}

func TestPercentageHandler(t *testing.T) {
	cart := snapshots(
		discount.CartItem{Name: "T-Shirt", UnitPrice: 350, Quantity: 1, ProductCategory: discount.CategoryClothing},
		discount.CartItem{Name: "Hat", UnitPrice: 250, Quantity: 1, ProductCategory: discount.CategoryAccessories},
	)
	out, err := discount.Execute(discount.PercentageHandler{}, cart, discount.PercentageContext{Percentage: 10})
	require.NoError(t, err)
	require.InDelta(t, 60, totalApplied(out), tolerance)
	require.InDelta(t, 540, discount.TotalDiscounted(out), tolerance)
	require.Equal(t, discount.MechanismPercentage, out[1].AppliedDiscounts[0].Mechanism)
}

func TestCategoryPercentageHandlerOnlyTouchesCategory(t *testing.T) {
	cart := snapshots(
		discount.CartItem{Name: "T-Shirt", UnitPrice: 350, Quantity: 1, ProductCategory: discount.CategoryClothing},
		discount.CartItem{Name: "Hoodie", UnitPrice: 700, Quantity: 1, ProductCategory: discount.CategoryClothing},
		discount.CartItem{Name: "Watch", UnitPrice: 850, Quantity: 1, ProductCategory: discount.CategoryAccessories},
		discount.CartItem{Name: "Bag", UnitPrice: 640, Quantity: 1, ProductCategory: discount.CategoryAccessories},
	)
	ctx := discount.CategoryPercentageContext{Percentage: 15, ProductCategory: discount.CategoryClothing}
	out, err := discount.Execute(discount.CategoryPercentageHandler{}, cart, ctx)
	require.NoError(t, err)

	require.InDelta(t, 157.5, totalApplied(out), tolerance)
	require.InDelta(t, 2382.5, discount.TotalDiscounted(out), tolerance)
	for _, s := range out {
		if s.ProductCategory == discount.CategoryClothing {
			require.Len(t, s.AppliedDiscounts, 1)
			require.Equal(t, discount.MechanismPercentageByCategory, s.AppliedDiscounts[0].Mechanism)
			continue
		}
		require.Empty(t, s.AppliedDiscounts)
		require.Equal(t, s.Subtotal, s.DiscountedSubtotal)
	}
}

func TestPointsHandlerWithinCap(t *testing.T) {
	h := discount.NewPointsHandler(discount.DefaultPointPolicy())
	out, err := discount.Execute(h, threeItemCart(), discount.PointsContext{Points: 68})
	require.NoError(t, err)
	require.InDelta(t, 68, totalApplied(out), tolerance)
	require.InDelta(t, 762, discount.TotalDiscounted(out), tolerance)
	for _, s := range out {
		require.Equal(t, discount.MechanismUsePoint, s.AppliedDiscounts[0].Mechanism)
	}
}

func TestPointsHandlerCapsRedemption(t *testing.T) {
	h := discount.NewPointsHandler(discount.DefaultPointPolicy())
	out, err := discount.Execute(h, threeItemCart(), discount.PointsContext{Points: 300})
	require.NoError(t, err)
	require.InDelta(t, math.Floor(830*0.20), totalApplied(out), tolerance)
	require.InDelta(t, 664, discount.TotalDiscounted(out), tolerance)
}

func TestPointsHandlerUsesInjectedPolicy(t *testing.T) {
	// 1 point = 0.5 money, 10% cap: cap is 83 money = 166 points, floored.
	h := discount.NewPointsHandler(discount.PointPolicy{ConversionRate: 0.5, CapRatio: 0.10})
	out, err := discount.Execute(h, threeItemCart(), discount.PointsContext{Points: 1000})
	require.NoError(t, err)
	require.InDelta(t, 83, totalApplied(out), tolerance)

	out, err = discount.Execute(h, threeItemCart(), discount.PointsContext{Points: 40})
	require.NoError(t, err)
	require.InDelta(t, 20, totalApplied(out), tolerance)
}

func TestNewPointsHandlerRejectsInvalidPolicy(t *testing.T) {
	require.Panics(t, func() { discount.NewPointsHandler(discount.PointPolicy{ConversionRate: 0, CapRatio: 0.2}) })
	require.Panics(t, func() { discount.NewPointsHandler(discount.PointPolicy{ConversionRate: 1, CapRatio: 1.5}) })
}

func TestPointsHandlerRejectsInvalidPolicyOnExecute(t *testing.T) {
	cases := []discount.PointPolicy{
		{ConversionRate: -1, CapRatio: 0.5},
		{ConversionRate: 0, CapRatio: 0.2},
		{ConversionRate: 1, CapRatio: 0},
		{ConversionRate: math.NaN(), CapRatio: 0.2},
	}
	for _, policy := range cases {
		out, err := discount.Execute(discount.PointsHandler{Policy: policy}, threeItemCart(), discount.PointsContext{Points: 300})
		require.Nil(t, out)
		require.ErrorIs(t, err, discount.ErrInvalidPolicy)
	}
}

func TestPointsHandlerHonoursStructPolicy(t *testing.T) {
	h := discount.PointsHandler{Policy: discount.PointPolicy{ConversionRate: 1, CapRatio: 0.5}}
	out, err := discount.Execute(h, threeItemCart(), discount.PointsContext{Points: 300})
	require.NoError(t, err)
	require.InDelta(t, 300, totalApplied(out), tolerance)
	require.InDelta(t, 530, discount.TotalDiscounted(out), tolerance)
}

func TestThresholdHandler(t *testing.T) {
	out, err := discount.Execute(discount.ThresholdHandler{}, threeItemCart(), discount.ThresholdContext{EveryX: 300, GetY: 40})
	require.NoError(t, err)
	require.InDelta(t, 80, totalApplied(out), tolerance)
	require.InDelta(t, 750, discount.TotalDiscounted(out), tolerance)
	for _, s := range out {
		require.Equal(t, discount.MechanismEveryXGetY, s.AppliedDiscounts[0].Mechanism)
	}
}

func TestThresholdHandlerBelowThreshold(t *testing.T) {
	out, err := discount.Execute(discount.ThresholdHandler{}, threeItemCart(), discount.ThresholdContext{EveryX: 1000, GetY: 40})
	require.NoError(t, err)
	require.InDelta(t, 830, discount.TotalDiscounted(out), tolerance)
	require.InDelta(t, 0, totalApplied(out), tolerance)
}

func TestHandlersRejectInvalidContexts(t *testing.T) {
	points := discount.NewPointsHandler(discount.DefaultPointPolicy())
	cases := []struct {
		name    string
		handler discount.Handler
		ctx     discount.Context
	}{
		{"nil context", discount.FixedHandler{}, nil},
		{"negative amount", discount.FixedHandler{}, discount.FixedContext{Amount: -1}},
		{"nan amount", discount.FixedHandler{}, discount.FixedContext{Amount: math.NaN()}},
		{"percentage above 100", discount.PercentageHandler{}, discount.PercentageContext{Percentage: 101}},
		{"negative percentage", discount.PercentageHandler{}, discount.PercentageContext{Percentage: -5}},
		{"category percentage below 1", discount.CategoryPercentageHandler{}, discount.CategoryPercentageContext{Percentage: 0, ProductCategory: discount.CategoryClothing}},
		{"missing category", discount.CategoryPercentageHandler{}, discount.CategoryPercentageContext{Percentage: 10}},
		{"negative points", points, discount.PointsContext{Points: -1}},
		{"zero everyX", discount.ThresholdHandler{}, discount.ThresholdContext{EveryX: 0, GetY: 10}},
		{"zero getY", discount.ThresholdHandler{}, discount.ThresholdContext{EveryX: 100, GetY: 0}},
		{"foreign context shape", discount.FixedHandler{}, discount.PercentageContext{Percentage: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := discount.Execute(tc.handler, threeItemCart(), tc.ctx)
			require.Nil(t, out)
			require.True(t, errors.Is(err, discount.ErrInvalidContext), "got %v", err)
			var ctxErr *discount.ContextError
			require.ErrorAs(t, err, &ctxErr)
			require.Equal(t, tc.handler.Mechanism(), ctxErr.Mechanism)
		})
	}
}

func TestPercentageAcceptsBoundaries(t *testing.T) {
	for _, p := range []float64{0, 100} {
		_, err := discount.Execute(discount.PercentageHandler{}, threeItemCart(), discount.PercentageContext{Percentage: p})
		require.NoError(t, err)
	}
}
