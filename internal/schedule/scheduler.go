package schedule

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	DefaultLateOrderThreshold = 90 * time.Minute
	DefaultPickupLead         = 60 * time.Minute
	DefaultBaseDelayDays      = 4
)

// Options tunes the scheduler. Zero values fall back to the defaults above.
// VacationDelayDays applies to vacation periods without their own delay.
type Options struct {
	Location           *time.Location
	LateOrderThreshold time.Duration
	PickupLead         time.Duration
	DefaultOpening     *Clock
	BaseDelayDays      int
	VacationDelayDays  int
	ClosedWeekdays     []time.Weekday
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.LateOrderThreshold <= 0 {
		o.LateOrderThreshold = DefaultLateOrderThreshold
	}
	if o.PickupLead <= 0 {
		o.PickupLead = DefaultPickupLead
	}
	if o.DefaultOpening == nil {
		opening := MustClock("10:00")
		o.DefaultOpening = &opening
	}
	if o.BaseDelayDays <= 0 {
		o.BaseDelayDays = DefaultBaseDelayDays
	}
	if o.VacationDelayDays <= 0 {
		o.VacationDelayDays = DefaultPostReturnDelayDays
	}
	if len(o.ClosedWeekdays) == 0 {
		o.ClosedWeekdays = []time.Weekday{time.Sunday, time.Monday}
	}
	return o
}

// Pickup describes when an order placed now can be collected.
type Pickup struct {
	Day  enums.PickupDay `json:"day"`
	Time Clock           `json:"time"`
}

// Text renders the pickup for display, e.g. "today at 18:35".
func (p Pickup) Text() string {
	switch p.Day {
	case enums.PickupDayToday:
		return fmt.Sprintf("today at %s", p.Time)
	case enums.PickupDayNextOpening:
		return fmt.Sprintf("next opening, %s", p.Time)
	default:
		return fmt.Sprintf("next day, %s", p.Time)
	}
}

// Unavailability reasons returned by CheckDate.
const (
	ReasonPast          = "past"
	ReasonClosedWeekday = "closed_weekday"
	ReasonBeforeMinimum = "before_minimum"
	ReasonVacation      = "vacation"
)

// DateAvailability is the outcome of checking one pickup date.
type DateAvailability struct {
	Date      civil.Date `json:"date"`
	Available bool       `json:"available"`
	Reason    string     `json:"reason,omitempty"`
	Minimum   civil.Date `json:"minimumDate"`
}

// Summary aggregates what a storefront needs to render fulfillment options.
type Summary struct {
	State               enums.ServiceState `json:"state"`
	LateOrder           bool               `json:"lateOrder"`
	ImmediatePickup     Pickup             `json:"immediatePickup"`
	ImmediatePickupText string             `json:"immediatePickupText"`
	MinimumPickupDate   civil.Date         `json:"minimumPickupDate"`
	Today               civil.Date         `json:"today"`
}

// Scheduler answers fulfillment questions from opening hours and vacations.
// It keeps no mutable state; "now" is always passed in.
type Scheduler struct {
	hours     OpeningHours
	vacations Vacations
	opts      Options
	closed    [7]bool
}

func NewScheduler(hours OpeningHours, vacations Vacations, opts Options) *Scheduler {
	opts = opts.withDefaults()
	s := &Scheduler{
		hours:     hours,
		vacations: vacations.Active(),
		opts:      opts,
	}
	for i := range s.vacations {
		if s.vacations[i].PostReturnDelayDays == nil {
			delay := opts.VacationDelayDays
			s.vacations[i].PostReturnDelayDays = &delay
		}
	}
	for _, day := range opts.ClosedWeekdays {
		s.closed[day] = true
	}
	return s
}

// Location returns the store location all day boundaries are computed in.
func (s *Scheduler) Location() *time.Location {
	return s.opts.Location
}

// Today returns the store-local calendar day of now.
func (s *Scheduler) Today(now time.Time) civil.Date {
	return civil.DateOf(now.In(s.opts.Location))
}

// State positions now within today's opening hours.
func (s *Scheduler) State(now time.Time) enums.ServiceState {
	local := now.In(s.opts.Location)
	day := s.hours.Day(local.Weekday())
	if !day.Open() {
		return enums.ServiceStateClosed
	}
	clock := ClockOf(local)
	first, _ := day.FirstOpening()

	switch {
	case clock < first:
		return enums.ServiceStateBeforeOpening
	case day.Morning != nil && day.Morning.Contains(clock):
		return enums.ServiceStateMorningOpen
	case day.Afternoon != nil && day.Afternoon.Contains(clock):
		return enums.ServiceStateAfternoonOpen
	case day.Morning != nil && day.Afternoon != nil && clock < day.Afternoon.Open:
		return enums.ServiceStateBetweenServices
	default:
		return enums.ServiceStateAfterClosing
	}
}

// IsLateOrder reports whether an order placed now misses today's service.
// Before opening counts as a continuation of the previous evening. The
// threshold is inclusive: exactly LateOrderThreshold before closing is late.
func (s *Scheduler) IsLateOrder(now time.Time) bool {
	local := now.In(s.opts.Location)
	day := s.hours.Day(local.Weekday())
	if !day.Open() {
		return true
	}
	if s.State(now) == enums.ServiceStateBeforeOpening {
		return true
	}
	closing, _ := day.Closing()
	untilClosing := closing.On(local).Sub(local)
	return untilClosing <= s.opts.LateOrderThreshold
}

// ImmediatePickup computes the earliest pickup for an order placed now.
func (s *Scheduler) ImmediatePickup(now time.Time) Pickup {
	local := now.In(s.opts.Location)
	day := s.hours.Day(local.Weekday())
	nextDay := Pickup{Day: enums.PickupDayNextDay, Time: *s.opts.DefaultOpening}

	switch s.State(now) {
	case enums.ServiceStateClosed, enums.ServiceStateBeforeOpening:
		return Pickup{Day: enums.PickupDayNextOpening, Time: *s.opts.DefaultOpening}

	case enums.ServiceStateMorningOpen:
		ready := ClockOf(local).Add(s.opts.PickupLead)
		if ready < day.Morning.Close {
			return Pickup{Day: enums.PickupDayToday, Time: ready}
		}
		if day.Afternoon != nil {
			return Pickup{Day: enums.PickupDayToday, Time: day.Afternoon.Open}
		}
		return nextDay

	case enums.ServiceStateAfternoonOpen:
		ready := ClockOf(local).Add(s.opts.PickupLead)
		if s.IsLateOrder(now) || ready >= day.Afternoon.Close {
			return nextDay
		}
		return Pickup{Day: enums.PickupDayToday, Time: ready}

	default:
		return nextDay
	}
}

// MinimumPickupDate is the earliest date selectable for a scheduled pickup,
// using the configured base delay.
func (s *Scheduler) MinimumPickupDate(now time.Time) civil.Date {
	return s.MinimumPickupDateAfter(now, s.opts.BaseDelayDays)
}

// MinimumPickupDateAfter starts baseDelayDays after today, skips closed
// weekdays, then pushes past every active vacation containing the candidate.
// Each push lands strictly after a period's end, so a period is crossed at
// most once and the loop is capped at len(periods)+1 passes.
func (s *Scheduler) MinimumPickupDateAfter(now time.Time, baseDelayDays int) civil.Date {
	if baseDelayDays < 0 {
		baseDelayDays = 0
	}
	date := s.skipClosedWeekdays(s.Today(now).AddDays(baseDelayDays))
	for i := 0; i <= len(s.vacations); i++ {
		period := s.vacations.Containing(date)
		if period == nil {
			return date
		}
		date = s.skipClosedWeekdays(period.ResumeDate())
	}
	return date
}

// CheckDate evaluates every rule a pickup date must satisfy, reporting the first failure.
func (s *Scheduler) CheckDate(now time.Time, date civil.Date) DateAvailability {
	minimum := s.MinimumPickupDate(now)
	out := DateAvailability{Date: date, Minimum: minimum}

	switch {
	case date.Before(s.Today(now)):
		out.Reason = ReasonPast
	case s.isClosedWeekday(date):
		out.Reason = ReasonClosedWeekday
	case date.Before(minimum):
		out.Reason = ReasonBeforeMinimum
	case s.vacations.Containing(date) != nil:
		out.Reason = ReasonVacation
	default:
		out.Available = true
	}
	return out
}

// IsDateAvailable reports whether date can be chosen for pickup.
func (s *Scheduler) IsDateAvailable(now time.Time, date civil.Date) bool {
	return s.CheckDate(now, date).Available
}

// ValidatePickupDate rejects unavailable dates with a user-facing message.
// The date is never adjusted.
func (s *Scheduler) ValidatePickupDate(now time.Time, date civil.Date) error {
	check := s.CheckDate(now, date)
	if check.Available {
		return nil
	}

	var msg string
	switch check.Reason {
	case ReasonPast:
		msg = fmt.Sprintf("pickup date %s is in the past", date)
	case ReasonClosedWeekday:
		msg = fmt.Sprintf("the store is closed on %s", date.In(s.opts.Location).Weekday())
	case ReasonVacation:
		msg = fmt.Sprintf("the store is closed for holidays on %s", date)
	default:
		msg = fmt.Sprintf("the earliest available pickup date is %s", check.Minimum)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(check)
}

// Summary gathers the fulfillment view for now.
func (s *Scheduler) Summary(now time.Time) Summary {
	pickup := s.ImmediatePickup(now)
	return Summary{
		State:               s.State(now),
		LateOrder:           s.IsLateOrder(now),
		ImmediatePickup:     pickup,
		ImmediatePickupText: pickup.Text(),
		MinimumPickupDate:   s.MinimumPickupDate(now),
		Today:               s.Today(now),
	}
}

func (s *Scheduler) isClosedWeekday(date civil.Date) bool {
	return s.closed[date.In(time.UTC).Weekday()]
}

func (s *Scheduler) skipClosedWeekdays(date civil.Date) civil.Date {
	for i := 0; i < 7 && s.isClosedWeekday(date); i++ {
		date = date.AddDays(1)
	}
	return date
}
