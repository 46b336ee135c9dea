package enums

import "fmt"

// TierKind names a catalog tier table.
type TierKind string

const (
	TierKindQuantity TierKind = "quantity"
	TierKindWeight   TierKind = "weight"
	TierKindPerson   TierKind = "person"
	TierKindRange    TierKind = "range"
	TierKindSection  TierKind = "section"
)

var validTierKinds = []TierKind{
	TierKindQuantity,
	TierKindWeight,
	TierKindPerson,
	TierKindRange,
	TierKindSection,
}

// String implements fmt.Stringer.
func (v TierKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TierKind.
func (v TierKind) IsValid() bool {
	for _, candidate := range validTierKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTierKind converts raw input into a TierKind.
func ParseTierKind(value string) (TierKind, error) {
	for _, candidate := range validTierKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier kind %q", value)
}
