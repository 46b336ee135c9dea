package enums

import "fmt"

// ServiceState is the position of a wall-clock instant within the day's opening hours.
type ServiceState string

const (
	ServiceStateClosed          ServiceState = "CLOSED"
	ServiceStateBeforeOpening   ServiceState = "BEFORE_OPENING"
	ServiceStateMorningOpen     ServiceState = "MORNING_OPEN"
	ServiceStateBetweenServices ServiceState = "BETWEEN_SERVICES"
	ServiceStateAfternoonOpen   ServiceState = "AFTERNOON_OPEN"
	ServiceStateAfterClosing    ServiceState = "AFTER_CLOSING"
)

var validServiceStates = []ServiceState{
	ServiceStateClosed,
	ServiceStateBeforeOpening,
	ServiceStateMorningOpen,
	ServiceStateBetweenServices,
	ServiceStateAfternoonOpen,
	ServiceStateAfterClosing,
}

// String implements fmt.Stringer.
func (v ServiceState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ServiceState.
func (v ServiceState) IsValid() bool {
	for _, candidate := range validServiceStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseServiceState converts raw input into a ServiceState.
func ParseServiceState(value string) (ServiceState, error) {
	for _, candidate := range validServiceStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service state %q", value)
}
