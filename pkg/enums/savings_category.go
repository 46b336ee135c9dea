package enums

import "fmt"

// SavingsCategory buckets order savings for the customer-facing breakdown.
type SavingsCategory string

const (
	SavingsCategoryPromotion        SavingsCategory = "promotion"
	SavingsCategoryQuantityDiscount SavingsCategory = "quantity_discount"
	SavingsCategoryPromoCode        SavingsCategory = "promo_code"
)

var validSavingsCategories = []SavingsCategory{
	SavingsCategoryPromotion,
	SavingsCategoryQuantityDiscount,
	SavingsCategoryPromoCode,
}

// String implements fmt.Stringer.
func (v SavingsCategory) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SavingsCategory.
func (v SavingsCategory) IsValid() bool {
	for _, candidate := range validSavingsCategories {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSavingsCategory converts raw input into a SavingsCategory.
func ParseSavingsCategory(value string) (SavingsCategory, error) {
	for _, candidate := range validSavingsCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid savings category %q", value)
}
