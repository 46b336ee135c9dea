package enums

import "fmt"

// PricingStrategy identifies the single pricing rule applied to a cart line.
type PricingStrategy string

const (
	PricingStrategySection          PricingStrategy = "section"
	PricingStrategyRange            PricingStrategy = "range"
	PricingStrategyPerson           PricingStrategy = "person"
	PricingStrategyWeight           PricingStrategy = "weight"
	PricingStrategyTier             PricingStrategy = "tier"
	PricingStrategyPromotion        PricingStrategy = "promotion"
	PricingStrategyQuantityDiscount PricingStrategy = "quantity_discount"
	PricingStrategyFlat             PricingStrategy = "flat"
)

var validPricingStrategies = []PricingStrategy{
	PricingStrategySection,
	PricingStrategyRange,
	PricingStrategyPerson,
	PricingStrategyWeight,
	PricingStrategyTier,
	PricingStrategyPromotion,
	PricingStrategyQuantityDiscount,
	PricingStrategyFlat,
}

// String implements fmt.Stringer.
func (v PricingStrategy) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PricingStrategy.
func (v PricingStrategy) IsValid() bool {
	for _, candidate := range validPricingStrategies {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePricingStrategy converts raw input into a PricingStrategy.
func ParsePricingStrategy(value string) (PricingStrategy, error) {
	for _, candidate := range validPricingStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing strategy %q", value)
}
