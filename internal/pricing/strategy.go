package pricing

import (
	"cloud.google.com/go/civil"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Match is the outcome of strategy resolution: the effective strategy and the
// table entry it selected, if any.
type Match struct {
	Strategy         enums.PricingStrategy
	Section          *Section
	Range            *Range
	RangeDiscount    *RangeDiscountTier
	PersonTier       *PersonPriceTier
	WeightTier       *WeightTier
	PriceTier        *PriceTier
	QuantityDiscount *QuantityDiscountTier
}

type matchInput struct {
	product   Product
	tables    Tables
	selection Selection
	today     civil.Date
}

type precedenceRule struct {
	strategy enums.PricingStrategy
	match    func(in matchInput) (Match, bool)
}

// precedence is evaluated top to bottom; the first rule that matches wins and
// every other configured mode is ignored.
var precedence = []precedenceRule{
	{strategy: enums.PricingStrategySection, match: matchSection},
	{strategy: enums.PricingStrategyRange, match: matchRange},
	{strategy: enums.PricingStrategyPerson, match: matchPerson},
	{strategy: enums.PricingStrategyWeight, match: matchWeight},
	{strategy: enums.PricingStrategyTier, match: matchPriceTier},
	{strategy: enums.PricingStrategyPromotion, match: matchPromotion},
	{strategy: enums.PricingStrategyQuantityDiscount, match: matchQuantityDiscount},
	{strategy: enums.PricingStrategyFlat, match: func(matchInput) (Match, bool) { return Match{}, true }},
}

// Precedence lists the strategies in the order they are tried.
func Precedence() []enums.PricingStrategy {
	out := make([]enums.PricingStrategy, 0, len(precedence))
	for _, rule := range precedence {
		out = append(out, rule.strategy)
	}
	return out
}

// ResolveStrategy picks the single effective strategy for a product and selection.
func ResolveStrategy(product Product, tables Tables, selection Selection, today civil.Date) Match {
	in := matchInput{product: product, tables: tables, selection: selection, today: today}
	for _, rule := range precedence {
		if m, ok := rule.match(in); ok {
			m.Strategy = rule.strategy
			return m
		}
	}
	return Match{Strategy: enums.PricingStrategyFlat}
}

func matchSection(in matchInput) (Match, bool) {
	if !in.product.Modes.SectionPricing || in.selection.SectionID == nil {
		return Match{}, false
	}
	for _, section := range in.tables.Sections {
		if section.ID == *in.selection.SectionID {
			s := section
			return Match{Section: &s}, true
		}
	}
	return Match{}, false
}

func matchRange(in matchInput) (Match, bool) {
	if !in.product.Modes.RangePricing || in.selection.RangeID == nil || in.selection.PersonCount == nil {
		return Match{}, false
	}
	for _, r := range in.tables.Ranges {
		if r.ID == *in.selection.RangeID {
			selected := r
			return Match{
				Range:         &selected,
				RangeDiscount: MatchRangeDiscount(*in.selection.PersonCount, r.Discounts),
			}, true
		}
	}
	return Match{}, false
}

func matchPerson(in matchInput) (Match, bool) {
	if !in.product.Modes.PersonPricing || in.selection.PersonCount == nil {
		return Match{}, false
	}
	return Match{PersonTier: MatchPersonTier(*in.selection.PersonCount, in.tables.PersonTiers)}, true
}

func matchWeight(in matchInput) (Match, bool) {
	if !in.product.Modes.WeightTiers || in.selection.WeightTierID == nil {
		return Match{}, false
	}
	for _, tier := range SortWeightTiers(in.tables.WeightTiers) {
		if tier.ID == *in.selection.WeightTierID {
			w := tier
			return Match{WeightTier: &w}, true
		}
	}
	return Match{}, false
}

func matchPriceTier(in matchInput) (Match, bool) {
	if !in.product.Modes.QuantityTiers || in.selection.TierID == nil {
		return Match{}, false
	}
	for _, tier := range SortPriceTiers(in.tables.PriceTiers) {
		if tier.ID == *in.selection.TierID {
			t := tier
			return Match{PriceTier: &t}, true
		}
	}
	return Match{}, false
}

func matchPromotion(in matchInput) (Match, bool) {
	return Match{}, in.product.Promotion.Applies(in.product.BasePrice, in.today)
}

func matchQuantityDiscount(in matchInput) (Match, bool) {
	tier := SelectQuantityDiscount(in.selection.Quantity, in.tables.QuantityDiscounts)
	if tier == nil || !tier.DiscountPercentage.IsPositive() {
		return Match{}, false
	}
	return Match{QuantityDiscount: tier}, true
}
