package cart

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Selection is the metadata recorded with a line. It identifies what was
// picked and drives promo scope matching.
type Selection struct {
	TierID       *int64 `json:"tierId,omitempty"`
	WeightTierID *int64 `json:"weightTierId,omitempty"`
	RangeID      *int64 `json:"rangeId,omitempty"`
	SectionID    *int64 `json:"sectionId,omitempty"`
	PersonCount  *int   `json:"personCount,omitempty"`
}

// Pricing converts the selection into a resolver input for quantity.
func (s Selection) Pricing(quantity int) pricing.Selection {
	return pricing.Selection{
		Quantity:     quantity,
		TierID:       s.TierID,
		WeightTierID: s.WeightTierID,
		RangeID:      s.RangeID,
		SectionID:    s.SectionID,
		PersonCount:  s.PersonCount,
	}
}

func (s Selection) signature() string {
	parts := []string{
		optional(s.TierID),
		optional(s.WeightTierID),
		optional(s.RangeID),
		optional(s.SectionID),
	}
	if s.PersonCount != nil {
		parts = append(parts, fmt.Sprintf("%d", *s.PersonCount))
	} else {
		parts = append(parts, "-")
	}
	return strings.Join(parts, "/")
}

func optional(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// Line is one cart entry.
type Line struct {
	ID             uuid.UUID             `json:"id"`
	ProductID      int64                 `json:"productId"`
	ProductName    string                `json:"productName"`
	Category       string                `json:"category,omitempty"`
	Quantity       int                   `json:"quantity"`
	UnitPrice      decimal.Decimal       `json:"unitPrice"`
	ReferencePrice decimal.Decimal       `json:"referencePrice"`
	PriceOverride  *decimal.Decimal      `json:"priceOverride,omitempty"`
	Strategy       enums.PricingStrategy `json:"strategy"`
	Selection      Selection             `json:"selection"`
	ItemName       string                `json:"itemName,omitempty"`
	PromoScope     enums.PromoScope      `json:"promoScope"`
	PromoItemID    *int64                `json:"promoItemId,omitempty"`
	PickupDate     *civil.Date           `json:"pickupDate,omitempty"`
	AddedAt        time.Time             `json:"addedAt"`
}

// NewLine builds a line from a resolved quote. Lines priced by a fixed-price
// strategy capture the unit price as an override.
func NewLine(product pricing.Product, selection Selection, quote pricing.Quote, now time.Time) Line {
	line := Line{
		ID:          uuid.New(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Selection:   selection,
		AddedAt:     now.UTC(),
	}
	if quote.PersonCount != nil {
		count := *quote.PersonCount
		line.Selection.PersonCount = &count
	}
	line.applyQuote(quote)
	return line
}

func (l *Line) applyQuote(quote pricing.Quote) {
	l.Quantity = quote.Quantity
	l.UnitPrice = quote.UnitPrice
	l.ReferencePrice = quote.ReferencePrice
	l.Strategy = quote.Strategy
	l.ItemName = quote.ItemName
	l.PromoScope = quote.PromoScope
	l.PromoItemID = quote.PromoItemID
	l.PriceOverride = nil
	if quote.FixedPrice {
		override := quote.UnitPrice
		l.PriceOverride = &override
	}
}

// Fixed reports whether the unit price was captured when the line was added.
func (l Line) Fixed() bool {
	return l.PriceOverride != nil
}

// EffectiveUnitPrice is the override when captured, else the resolved unit price.
func (l Line) EffectiveUnitPrice() decimal.Decimal {
	if l.PriceOverride != nil {
		return *l.PriceOverride
	}
	return l.UnitPrice
}

// Total is the effective unit price times the current quantity.
func (l Line) Total() decimal.Decimal {
	return money.Times(l.EffectiveUnitPrice(), l.Quantity)
}

// Savings is what the line saves against its reference price, never negative.
func (l Line) Savings() decimal.Decimal {
	return money.NonNegative(money.Times(l.ReferencePrice.Sub(l.EffectiveUnitPrice()), l.Quantity))
}

// SavingsCategory buckets the line's savings for the order breakdown.
func (l Line) SavingsCategory() (enums.SavingsCategory, bool) {
	switch l.Strategy {
	case enums.PricingStrategyPromotion, enums.PricingStrategyTier:
		return enums.SavingsCategoryPromotion, true
	case enums.PricingStrategyQuantityDiscount, enums.PricingStrategyRange, enums.PricingStrategyPerson:
		return enums.SavingsCategoryQuantityDiscount, true
	}
	return "", false
}

// mergeKey identifies lines that are incremented instead of duplicated.
func (l Line) mergeKey() string {
	return fmt.Sprintf("%d|%s", l.ProductID, l.Selection.signature())
}
