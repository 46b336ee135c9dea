package schedule

import (
	"encoding/json"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"go.uber.org/multierr"
)

// DefaultPostReturnDelayDays applies when a vacation period does not set its own delay.
const DefaultPostReturnDelayDays = 4

// VacationPeriod closes the store between Start and End, both inclusive.
// Pickups resume PostReturnDelayDays after End.
type VacationPeriod struct {
	ID                  int64      `json:"id"`
	Start               civil.Date `json:"startDate"`
	End                 civil.Date `json:"endDate"`
	Active              bool       `json:"active"`
	PostReturnDelayDays *int       `json:"postReturnDelayDays,omitempty"`
}

// Delay returns the post-return delay, defaulting when unset or negative.
func (v VacationPeriod) Delay() int {
	if v.PostReturnDelayDays == nil || *v.PostReturnDelayDays < 0 {
		return DefaultPostReturnDelayDays
	}
	return *v.PostReturnDelayDays
}

// Contains reports whether date falls inside the period.
func (v VacationPeriod) Contains(date civil.Date) bool {
	return !date.Before(v.Start) && !date.After(v.End)
}

// ResumeDate is the first day past the period once the delay is applied. It is
// always strictly after End.
func (v VacationPeriod) ResumeDate() civil.Date {
	resume := v.End.AddDays(v.Delay())
	if !resume.After(v.End) {
		return v.End.AddDays(1)
	}
	return resume
}

// Vacations is the set of configured closures.
type Vacations []VacationPeriod

// Active returns the active periods ordered by start date.
func (vs Vacations) Active() Vacations {
	out := make(Vacations, 0, len(vs))
	for _, v := range vs {
		if v.Active {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Containing returns the first active period containing date.
func (vs Vacations) Containing(date civil.Date) *VacationPeriod {
	for _, v := range vs {
		if v.Active && v.Contains(date) {
			found := v
			return &found
		}
	}
	return nil
}

// Validate reports every period whose bounds are not usable.
func (vs Vacations) Validate() error {
	var errs error
	for _, v := range vs {
		if !v.Start.IsValid() || !v.End.IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("vacation %d has an invalid date", v.ID))
			continue
		}
		if v.End.Before(v.Start) {
			errs = multierr.Append(errs, fmt.Errorf("vacation %d ends %s before it starts %s", v.ID, v.End, v.Start))
		}
	}
	return errs
}

// ParseVacations decodes a JSON list of vacation periods.
func ParseVacations(data []byte) (Vacations, error) {
	var periods Vacations
	if err := json.Unmarshal(data, &periods); err != nil {
		return nil, fmt.Errorf("decode vacation periods: %w", err)
	}
	if err := periods.Validate(); err != nil {
		return nil, err
	}
	return periods, nil
}
