package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func flatLine(price string, qty int) Line {
	return Line{
		ID:             uuid.New(),
		ProductID:      99,
		Quantity:       qty,
		UnitPrice:      dec(price),
		ReferencePrice: dec(price),
		Strategy:       enums.PricingStrategyFlat,
		PromoScope:     enums.PromoScopeNormal,
	}
}

func TestAggregateEmptyCartHasNoFee(t *testing.T) {
	t.Parallel()

	totals, err := Aggregate(nil, nil, delivery.DefaultTable())
	require.NoError(t, err)
	assertMoney(t, "0.00", totals.Subtotal)
	assertMoney(t, "0.00", totals.DeliveryFee)
	assertMoney(t, "0.00", totals.GrandTotal)
	assert.NotNil(t, totals.AppliedPromos)
}

func TestAggregateDeliveryBrackets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subtotal string
		fee      string
		total    string
	}{
		{subtotal: "49.99", fee: "5.00", total: "54.99"},
		{subtotal: "50.00", fee: "3.00", total: "53.00"},
		{subtotal: "99.99", fee: "3.00", total: "102.99"},
		{subtotal: "100.00", fee: "0.00", total: "100.00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.subtotal, func(t *testing.T) {
			t.Parallel()
			totals, err := Aggregate([]Line{flatLine(tt.subtotal, 1)}, nil, delivery.DefaultTable())
			require.NoError(t, err)
			assertMoney(t, tt.subtotal, totals.Subtotal)
			assertMoney(t, tt.fee, totals.DeliveryFee)
			assertMoney(t, tt.total, totals.GrandTotal)
		})
	}
}

func TestAggregateFeeUsesDiscountedSubtotal(t *testing.T) {
	t.Parallel()

	line := flatLine("52.50", 2)
	promos := []AppliedPromo{{Code: "TEN", LineID: line.ID, DiscountPercentage: dec("10")}}

	totals, err := Aggregate([]Line{line}, promos, delivery.DefaultTable())
	require.NoError(t, err)
	assertMoney(t, "105.00", totals.Subtotal)
	assertMoney(t, "10.50", totals.PromoSavings)
	assertMoney(t, "3.00", totals.DeliveryFee, "94.50 falls in the middle bracket")
	assertMoney(t, "97.50", totals.GrandTotal)
	require.Len(t, totals.AppliedPromos, 1)
	assertMoney(t, "10.50", totals.AppliedPromos[0].Savings)
	assertMoney(t, "10.50", totals.Savings.PromoCode)
}

func TestAggregateSavingsBreakdown(t *testing.T) {
	t.Parallel()

	quantity := flatLine("18.00", 5)
	quantity.ReferencePrice = dec("20.00")
	quantity.Strategy = enums.PricingStrategyQuantityDiscount

	promotion := flatLine("8.00", 2)
	promotion.ReferencePrice = dec("10.00")
	promotion.Strategy = enums.PricingStrategyPromotion

	person := flatLine("0", 1)
	person.PriceOverride = decPtr("36.00")
	person.ReferencePrice = dec("40.00")
	person.Strategy = enums.PricingStrategyPerson

	tier := flatLine("0", 1)
	tier.PriceOverride = decPtr("25.00")
	tier.ReferencePrice = dec("30.00")
	tier.Strategy = enums.PricingStrategyTier

	section := flatLine("0", 1)
	section.PriceOverride = decPtr("12.00")
	section.ReferencePrice = dec("12.00")
	section.Strategy = enums.PricingStrategySection

	promos := []AppliedPromo{
		{Code: "TEN", LineID: section.ID, DiscountPercentage: dec("10")},
		{Code: "GONE", LineID: uuid.New(), DiscountPercentage: dec("50")},
	}
	totals, err := Aggregate([]Line{quantity, promotion, person, tier, section}, promos, delivery.DefaultTable())
	require.NoError(t, err)

	assert.Equal(t, 10, totals.ItemCount)
	assertMoney(t, "179.00", totals.Subtotal)
	assertMoney(t, "14.00", totals.Savings.QuantityDiscount, "quantity ladder and person pricing")
	assertMoney(t, "9.00", totals.Savings.Promotion, "promotion and tier promo prices")
	assertMoney(t, "1.20", totals.Savings.PromoCode)
	assertMoney(t, "24.20", totals.Savings.Total)
	assert.Len(t, totals.AppliedPromos, 1, "promos of removed lines are ignored")
	assertMoney(t, "0.00", totals.DeliveryFee)
	assertMoney(t, "177.80", totals.GrandTotal)
}

func TestAggregateUsesStoredBrackets(t *testing.T) {
	t.Parallel()

	table, err := delivery.NewTable([]delivery.RateTier{
		{MinAmount: dec("0"), MaxAmount: decPtr("19.99"), Fee: dec("2.00")},
		{MinAmount: dec("20.00"), Fee: dec("0")},
	})
	require.NoError(t, err)

	totals, err := Aggregate([]Line{flatLine("10.00", 1)}, nil, table)
	require.NoError(t, err)
	assertMoney(t, "2.00", totals.DeliveryFee)

	totals, err = Aggregate([]Line{flatLine("10.00", 2)}, nil, table)
	require.NoError(t, err)
	assertMoney(t, "0.00", totals.DeliveryFee)
}
