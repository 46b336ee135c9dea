package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// AppliedPromo is a promo code accepted for one line.
type AppliedPromo struct {
	Code               string           `json:"code"`
	LineID             uuid.UUID        `json:"lineId"`
	Scope              enums.PromoScope `json:"scope"`
	ItemID             *int64           `json:"itemId,omitempty"`
	DiscountPercentage decimal.Decimal  `json:"discountPercentage"`
	Wildcard           bool             `json:"wildcard,omitempty"`
	// Savings is filled in by Aggregate from the line's current total.
	Savings decimal.Decimal `json:"savings"`
}

// SavingsBreakdown itemizes savings by category.
type SavingsBreakdown struct {
	Promotion        decimal.Decimal `json:"promotion"`
	QuantityDiscount decimal.Decimal `json:"quantityDiscount"`
	PromoCode        decimal.Decimal `json:"promoCode"`
	Total            decimal.Decimal `json:"total"`
}

// Totals is the folded view of a cart.
type Totals struct {
	ItemCount     int              `json:"itemCount"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	PromoSavings  decimal.Decimal  `json:"promoSavings"`
	DeliveryFee   decimal.Decimal  `json:"deliveryFee"`
	GrandTotal    decimal.Decimal  `json:"grandTotal"`
	Savings       SavingsBreakdown `json:"savings"`
	AppliedPromos []AppliedPromo   `json:"appliedPromos"`
}

// Aggregate folds line totals, promo code savings and the delivery fee into
// order totals. The fee is looked up on the subtotal after promo savings.
// An empty cart has no delivery fee. A nil table uses the default brackets.
func Aggregate(lines []Line, promos []AppliedPromo, rates *delivery.Table) (Totals, error) {
	totals := Totals{
		Subtotal:      decimal.Zero,
		PromoSavings:  decimal.Zero,
		DeliveryFee:   decimal.Zero,
		GrandTotal:    decimal.Zero,
		AppliedPromos: []AppliedPromo{},
		Savings: SavingsBreakdown{
			Promotion:        decimal.Zero,
			QuantityDiscount: decimal.Zero,
			PromoCode:        decimal.Zero,
			Total:            decimal.Zero,
		},
	}
	if len(lines) == 0 {
		return totals, nil
	}

	byID := make(map[uuid.UUID]Line, len(lines))
	for _, line := range lines {
		byID[line.ID] = line
		totals.ItemCount += line.Quantity
		totals.Subtotal = totals.Subtotal.Add(line.Total())

		category, ok := line.SavingsCategory()
		if !ok {
			continue
		}
		switch category {
		case enums.SavingsCategoryPromotion:
			totals.Savings.Promotion = totals.Savings.Promotion.Add(line.Savings())
		case enums.SavingsCategoryQuantityDiscount:
			totals.Savings.QuantityDiscount = totals.Savings.QuantityDiscount.Add(line.Savings())
		}
	}

	for _, promo := range promos {
		line, ok := byID[promo.LineID]
		if !ok {
			continue
		}
		promo.Savings = money.Round(money.PercentOf(line.Total(), promo.DiscountPercentage))
		totals.PromoSavings = totals.PromoSavings.Add(promo.Savings)
		totals.AppliedPromos = append(totals.AppliedPromos, promo)
	}
	if totals.PromoSavings.GreaterThan(totals.Subtotal) {
		totals.PromoSavings = totals.Subtotal
	}

	if rates == nil {
		rates = delivery.DefaultTable()
	}
	discounted := totals.Subtotal.Sub(totals.PromoSavings)
	fee, err := rates.FeeFor(discounted)
	if err != nil {
		if errors.Is(err, delivery.ErrNoBracket) {
			return Totals{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "no delivery bracket for order amount").
				WithDetails(map[string]string{"amount": money.Format(discounted)})
		}
		return Totals{}, err
	}

	totals.DeliveryFee = fee
	totals.GrandTotal = money.Round(discounted.Add(fee))
	totals.Savings.PromoCode = totals.PromoSavings
	totals.Savings.Total = totals.Savings.Promotion.Add(totals.Savings.QuantityDiscount).Add(totals.Savings.PromoCode)
	return totals, nil
}
