package enums

import "fmt"

// PromoScope is the pricing scope a promo code is validated against.
type PromoScope string

const (
	PromoScopeNormal  PromoScope = "normal"
	PromoScopeSection PromoScope = "section"
	PromoScopeRange   PromoScope = "range"
	PromoScopeWeight  PromoScope = "weight"
	PromoScopeTier    PromoScope = "tier"
	PromoScopePerson  PromoScope = "person"
)

var validPromoScopes = []PromoScope{
	PromoScopeNormal,
	PromoScopeSection,
	PromoScopeRange,
	PromoScopeWeight,
	PromoScopeTier,
	PromoScopePerson,
}

// String implements fmt.Stringer.
func (v PromoScope) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PromoScope.
func (v PromoScope) IsValid() bool {
	for _, candidate := range validPromoScopes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePromoScope converts raw input into a PromoScope.
func ParsePromoScope(value string) (PromoScope, error) {
	for _, candidate := range validPromoScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo scope %q", value)
}
