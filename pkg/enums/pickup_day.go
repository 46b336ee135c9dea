package enums

import "fmt"

// PickupDay tells which day an immediate pickup lands on.
type PickupDay string

const (
	PickupDayToday       PickupDay = "today"
	PickupDayNextOpening PickupDay = "next_opening"
	PickupDayNextDay     PickupDay = "next_day"
)

var validPickupDays = []PickupDay{
	PickupDayToday,
	PickupDayNextOpening,
	PickupDayNextDay,
}

// String implements fmt.Stringer.
func (v PickupDay) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PickupDay.
func (v PickupDay) IsValid() bool {
	for _, candidate := range validPickupDays {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePickupDay converts raw input into a PickupDay.
func ParsePickupDay(value string) (PickupDay, error) {
	for _, candidate := range validPickupDays {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup day %q", value)
}
