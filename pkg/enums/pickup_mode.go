package enums

import "fmt"

// PickupMode is how the customer collects an order.
type PickupMode string

const (
	PickupModeImmediate PickupMode = "immediate"
	PickupModeScheduled PickupMode = "scheduled"
)

var validPickupModes = []PickupMode{
	PickupModeImmediate,
	PickupModeScheduled,
}

// String implements fmt.Stringer.
func (v PickupMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PickupMode.
func (v PickupMode) IsValid() bool {
	for _, candidate := range validPickupModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePickupMode converts raw input into a PickupMode.
func ParsePickupMode(value string) (PickupMode, error) {
	for _, candidate := range validPickupModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup mode %q", value)
}
