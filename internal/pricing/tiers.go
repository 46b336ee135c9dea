package pricing

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// QuantityDiscountTier grants DiscountPercentage from MinQuantity units upward.
type QuantityDiscountTier struct {
	ProductID          int64
	MinQuantity        int
	DiscountPercentage decimal.Decimal
}

// PriceTier is a fixed price for a number of units (e.g. "serves 6").
type PriceTier struct {
	ID           int64
	ProductID    int64
	Order        int
	UnitsPerTier int
	Price        decimal.Decimal
	// Promotion carries the tier-level promo price and window; it is live
	// whenever a promo price is set.
	Promotion Promotion
}

// EffectivePrice returns the tier promo price when its window is open, else Price.
func (t PriceTier) EffectivePrice(today civil.Date) (decimal.Decimal, bool) {
	promo := t.Promotion
	promo.Active = promo.Price != nil
	if promo.Applies(t.Price, today) {
		return *promo.Price, true
	}
	return t.Price, false
}

// WeightTier is a fixed price for a weight in grams.
type WeightTier struct {
	ID          int64
	ProductID   int64
	WeightGrams int
	Price       decimal.Decimal
}

// PersonPriceTier prices person-based products for a head-count interval.
type PersonPriceTier struct {
	ID                 int64
	ProductID          int64
	MinPersons         int
	MaxPersons         *int
	PricePerPerson     decimal.Decimal
	DiscountKind       enums.DiscountKind
	DiscountPercentage *decimal.Decimal
}

// Range is a named per-person bundle with its own discount ladder.
type Range struct {
	ID             int64
	ProductID      int64
	Name           string
	PricePerPerson decimal.Decimal
	MinPersons     int
	MaxPersons     *int
	Discounts      []RangeDiscountTier
}

// Accepts reports whether persons falls within the range bounds.
func (r Range) Accepts(persons int) bool {
	return within(persons, r.MinPersons, r.MaxPersons)
}

// RangeDiscountTier discounts a range for a head-count interval.
type RangeDiscountTier struct {
	ID                 int64
	RangeID            int64
	MinPersons         int
	MaxPersons         *int
	DiscountPercentage decimal.Decimal
	Active             bool
}

// Section is a fixed-price portion, independent of quantity.
type Section struct {
	ID        int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
}

// Tables groups every tier table loaded for one product. A table that could
// not be loaded is left empty.
type Tables struct {
	QuantityDiscounts []QuantityDiscountTier
	PriceTiers        []PriceTier
	WeightTiers       []WeightTier
	PersonTiers       []PersonPriceTier
	Ranges            []Range
	Sections          []Section
}

// SelectQuantityDiscount returns the tier with the highest MinQuantity not
// above qty, or nil when qty is below every tier.
func SelectQuantityDiscount(qty int, tiers []QuantityDiscountTier) *QuantityDiscountTier {
	sorted := make([]QuantityDiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity < sorted[j].MinQuantity
	})
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].MinQuantity <= qty {
			selected := sorted[i]
			return &selected
		}
	}
	return nil
}

// SortPriceTiers orders tiers by UnitsPerTier, then Order.
func SortPriceTiers(tiers []PriceTier) []PriceTier {
	sorted := make([]PriceTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UnitsPerTier == sorted[j].UnitsPerTier {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].UnitsPerTier < sorted[j].UnitsPerTier
	})
	return sorted
}

// SortWeightTiers orders tiers by WeightGrams.
func SortWeightTiers(tiers []WeightTier) []WeightTier {
	sorted := make([]WeightTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WeightGrams < sorted[j].WeightGrams
	})
	return sorted
}

// MatchPersonTier returns the first tier, by MinPersons, whose interval contains persons.
func MatchPersonTier(persons int, tiers []PersonPriceTier) *PersonPriceTier {
	sorted := make([]PersonPriceTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPersons < sorted[j].MinPersons
	})
	for _, tier := range sorted {
		if within(persons, tier.MinPersons, tier.MaxPersons) {
			matched := tier
			return &matched
		}
	}
	return nil
}

// MatchRangeDiscount returns the first active tier, by MinPersons, whose
// interval contains persons.
func MatchRangeDiscount(persons int, tiers []RangeDiscountTier) *RangeDiscountTier {
	sorted := make([]RangeDiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPersons < sorted[j].MinPersons
	})
	for _, tier := range sorted {
		if !tier.Active {
			continue
		}
		if within(persons, tier.MinPersons, tier.MaxPersons) {
			matched := tier
			return &matched
		}
	}
	return nil
}

func within(value, min int, max *int) bool {
	if value < min {
		return false
	}
	return max == nil || value <= *max
}
