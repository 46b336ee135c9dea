package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

var (
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidPersonCount    = errors.New("person count must be at least 1")
	ErrPersonCountOutOfRange = errors.New("person count outside range bounds")
)

// Selection is what the customer picked for one product line.
type Selection struct {
	Quantity     int
	TierID       *int64
	WeightTierID *int64
	RangeID      *int64
	SectionID    *int64
	PersonCount  *int
}

// Quote is the resolved price of one product line.
type Quote struct {
	Strategy           enums.PricingStrategy
	Quantity           int
	PersonCount        *int
	UnitPrice          decimal.Decimal
	ReferencePrice     decimal.Decimal
	TotalPrice         decimal.Decimal
	DiscountPercentage decimal.Decimal
	Savings            decimal.Decimal
	ItemName           string
	PromoScope         enums.PromoScope
	PromoItemID        *int64
	// FixedPrice marks lines whose unit price is captured when added to the
	// cart and not recomputed from quantity afterwards.
	FixedPrice bool
}

type strategyRecorder interface {
	IncStrategy(strategy string)
}

// Resolver turns a product, its tier tables and a selection into a Quote.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	loc      *time.Location
	recorder strategyRecorder
}

// NewResolver builds a resolver comparing promotion days in loc.
func NewResolver(loc *time.Location, recorder strategyRecorder) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, recorder: recorder}
}

// Resolve applies the first matching pricing strategy.
func (r *Resolver) Resolve(product Product, tables Tables, selection Selection, now time.Time) (Quote, error) {
	if selection.Quantity < 1 {
		return Quote{}, ErrInvalidQuantity
	}
	if selection.PersonCount != nil && *selection.PersonCount < 1 {
		return Quote{}, ErrInvalidPersonCount
	}

	match := ResolveStrategy(product, tables, selection, Today(now, r.loc))
	quote, err := r.price(product, match, selection, now)
	if err != nil {
		return Quote{}, err
	}
	if r.recorder != nil {
		r.recorder.IncStrategy(quote.Strategy.String())
	}
	return quote, nil
}

func (r *Resolver) price(product Product, match Match, selection Selection, now time.Time) (Quote, error) {
	q := Quote{
		Strategy:   match.Strategy,
		Quantity:   selection.Quantity,
		PromoScope: enums.PromoScopeNormal,
	}

	switch match.Strategy {
	case enums.PricingStrategySection:
		q.Quantity = 1
		q.UnitPrice = match.Section.Price
		q.ReferencePrice = match.Section.Price
		q.ItemName = match.Section.Name
		q.PromoScope = enums.PromoScopeSection
		q.PromoItemID = int64Ptr(match.Section.ID)
		q.FixedPrice = true

	case enums.PricingStrategyRange:
		persons := *selection.PersonCount
		if !match.Range.Accepts(persons) {
			return Quote{}, fmt.Errorf("%w: %q accepts %s", ErrPersonCountOutOfRange, match.Range.Name, describeBounds(match.Range.MinPersons, match.Range.MaxPersons))
		}
		base := money.Times(match.Range.PricePerPerson, persons)
		discount := decimal.Zero
		if match.RangeDiscount != nil {
			discount = match.RangeDiscount.DiscountPercentage
		}
		q.PersonCount = intPtr(persons)
		q.ReferencePrice = base
		q.UnitPrice = money.ApplyPercentOff(base, discount)
		q.DiscountPercentage = discount
		q.ItemName = match.Range.Name
		q.PromoScope = enums.PromoScopeRange
		q.PromoItemID = int64Ptr(match.Range.ID)
		q.FixedPrice = true

	case enums.PricingStrategyPerson:
		persons := *selection.PersonCount
		base := money.Times(product.BasePrice, persons)
		q.PersonCount = intPtr(persons)
		q.ReferencePrice = base
		q.UnitPrice = base
		q.PromoScope = enums.PromoScopePerson
		q.FixedPrice = true
		if tier := match.PersonTier; tier != nil {
			q.PromoItemID = int64Ptr(tier.ID)
			switch tier.DiscountKind {
			case enums.DiscountKindPercentage:
				pct := decimal.Zero
				if tier.DiscountPercentage != nil {
					pct = *tier.DiscountPercentage
				}
				q.UnitPrice = money.ApplyPercentOff(base, pct)
				q.DiscountPercentage = pct
			default:
				q.UnitPrice = money.Times(tier.PricePerPerson, persons)
			}
		}

	case enums.PricingStrategyWeight:
		q.UnitPrice = match.WeightTier.Price
		q.ReferencePrice = match.WeightTier.Price
		q.ItemName = fmt.Sprintf("%dg", match.WeightTier.WeightGrams)
		q.PromoScope = enums.PromoScopeWeight
		q.PromoItemID = int64Ptr(match.WeightTier.ID)
		q.FixedPrice = true

	case enums.PricingStrategyTier:
		unit, _ := match.PriceTier.EffectivePrice(Today(now, r.loc))
		q.UnitPrice = unit
		q.ReferencePrice = match.PriceTier.Price
		q.ItemName = fmt.Sprintf("%d units", match.PriceTier.UnitsPerTier)
		q.PromoScope = enums.PromoScopeTier
		q.PromoItemID = int64Ptr(match.PriceTier.ID)
		q.FixedPrice = true

	case enums.PricingStrategyPromotion:
		q.UnitPrice = *product.Promotion.Price
		q.ReferencePrice = product.BasePrice

	case enums.PricingStrategyQuantityDiscount:
		q.ReferencePrice = product.BasePrice
		q.UnitPrice = money.ApplyPercentOff(product.BasePrice, match.QuantityDiscount.DiscountPercentage)
		q.DiscountPercentage = match.QuantityDiscount.DiscountPercentage

	default:
		q.Strategy = enums.PricingStrategyFlat
		q.UnitPrice = product.BasePrice
		q.ReferencePrice = product.BasePrice
	}

	q.UnitPrice = money.Round(q.UnitPrice)
	q.ReferencePrice = money.Round(q.ReferencePrice)
	if q.DiscountPercentage.IsZero() {
		q.DiscountPercentage = impliedDiscount(q.ReferencePrice, q.UnitPrice)
	}
	q.TotalPrice = money.Times(q.UnitPrice, q.Quantity)
	q.Savings = money.NonNegative(money.Times(q.ReferencePrice.Sub(q.UnitPrice), q.Quantity))
	return q, nil
}

func impliedDiscount(reference, unit decimal.Decimal) decimal.Decimal {
	if !reference.IsPositive() || !unit.LessThan(reference) {
		return decimal.Zero
	}
	return money.Round(reference.Sub(unit).Div(reference).Mul(decimal.NewFromInt(100)))
}

func describeBounds(min int, max *int) string {
	if max == nil {
		return fmt.Sprintf("%d+ persons", min)
	}
	return fmt.Sprintf("%d-%d persons", min, *max)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
