package enums

import "fmt"

// DiscountKind describes how a person price tier is applied.
type DiscountKind string

const (
	DiscountKindFlat       DiscountKind = "FLAT"
	DiscountKindPercentage DiscountKind = "PERCENTAGE"
)

var validDiscountKinds = []DiscountKind{
	DiscountKindFlat,
	DiscountKindPercentage,
}

// String implements fmt.Stringer.
func (v DiscountKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DiscountKind.
func (v DiscountKind) IsValid() bool {
	for _, candidate := range validDiscountKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDiscountKind converts raw input into a DiscountKind.
func ParseDiscountKind(value string) (DiscountKind, error) {
	for _, candidate := range validDiscountKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount kind %q", value)
}
