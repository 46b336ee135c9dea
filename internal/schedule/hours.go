package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Clock is a wall-clock time of day, stored as minutes after midnight.
type Clock int

// MustClock parses a literal such as "09:30" and panics on bad input.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock parses "HH:MM".
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid clock %q: bad hour", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock %q: bad minute", raw)
	}
	return Clock(hours*60 + minutes), nil
}

// ClockOf truncates t to the minute.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// Add shifts the clock by d, truncated to whole minutes.
func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Minute)
}

// On places the clock on the calendar day of day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, day.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clock must be a string: %w", err)
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is a service period, open inclusive and close exclusive.
type Window struct {
	Open  Clock `json:"open"`
	Close Clock `json:"close"`
}

// Contains reports whether c is within [Open, Close).
func (w Window) Contains(c Clock) bool {
	return c >= w.Open && c < w.Close
}

// DayHours is the opening schedule of one weekday.
type DayHours struct {
	Weekday   time.Weekday `json:"weekday"`
	IsOpen    bool         `json:"isOpen"`
	Morning   *Window      `json:"morning,omitempty"`
	Afternoon *Window      `json:"afternoon,omitempty"`
}

// Open reports whether the store serves customers at all on this day.
func (d DayHours) Open() bool {
	return d.IsOpen && (d.Morning != nil || d.Afternoon != nil)
}

// FirstOpening is the morning opening, or the afternoon one on afternoon-only days.
func (d DayHours) FirstOpening() (Clock, bool) {
	switch {
	case d.Morning != nil:
		return d.Morning.Open, true
	case d.Afternoon != nil:
		return d.Afternoon.Open, true
	}
	return 0, false
}

// Closing is the afternoon close when present, else the morning close.
func (d DayHours) Closing() (Clock, bool) {
	switch {
	case d.Afternoon != nil:
		return d.Afternoon.Close, true
	case d.Morning != nil:
		return d.Morning.Close, true
	}
	return 0, false
}

// OpeningHours holds one entry per weekday, indexed by time.Weekday.
type OpeningHours [7]DayHours

// DefaultOpeningHours is used whenever the stored hours are missing or malformed:
// Tuesday to Saturday 09:00-12:30 and 14:00-19:00, closed Sunday and Monday.
func DefaultOpeningHours() OpeningHours {
	var hours OpeningHours
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours[day] = DayHours{Weekday: day}
		if day == time.Sunday || day == time.Monday {
			continue
		}
		hours[day].IsOpen = true
		hours[day].Morning = &Window{Open: MustClock("09:00"), Close: MustClock("12:30")}
		hours[day].Afternoon = &Window{Open: MustClock("14:00"), Close: MustClock("19:00")}
	}
	return hours
}

// Day returns the hours for weekday.
func (h OpeningHours) Day(weekday time.Weekday) DayHours {
	return h[weekday]
}

// Validate reports every inconsistent window.
func (h OpeningHours) Validate() error {
	var errs error
	for i, day := range h {
		if day.Weekday != time.Weekday(i) {
			errs = multierr.Append(errs, fmt.Errorf("entry %d holds %s", i, day.Weekday))
		}
		if !day.IsOpen {
			continue
		}
		if day.Morning == nil && day.Afternoon == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s is open without any window", day.Weekday))
		}
		for _, w := range []*Window{day.Morning, day.Afternoon} {
			if w != nil && w.Open >= w.Close {
				errs = multierr.Append(errs, fmt.Errorf("%s window %s-%s closes before it opens", day.Weekday, w.Open, w.Close))
			}
		}
		if day.Morning != nil && day.Afternoon != nil && day.Morning.Close > day.Afternoon.Open {
			errs = multierr.Append(errs, fmt.Errorf("%s morning overlaps afternoon", day.Weekday))
		}
	}
	return errs
}

// ParseOpeningHours decodes a JSON list of day entries. Every weekday must be
// present exactly once.
func ParseOpeningHours(data []byte) (OpeningHours, error) {
	var entries []DayHours
	if err := json.Unmarshal(data, &entries); err != nil {
		return OpeningHours{}, fmt.Errorf("decode opening hours: %w", err)
	}
	if len(entries) != 7 {
		return OpeningHours{}, fmt.Errorf("opening hours need 7 entries, got %d", len(entries))
	}

	var hours OpeningHours
	var seen [7]bool
	for _, entry := range entries {
		if entry.Weekday < time.Sunday || entry.Weekday > time.Saturday {
			return OpeningHours{}, fmt.Errorf("invalid weekday %d", entry.Weekday)
		}
		if seen[entry.Weekday] {
			return OpeningHours{}, fmt.Errorf("duplicate entry for %s", entry.Weekday)
		}
		seen[entry.Weekday] = true
		hours[entry.Weekday] = entry
	}
	if err := hours.Validate(); err != nil {
		return OpeningHours{}, err
	}
	return hours, nil
}

func (h OpeningHours) MarshalJSON() ([]byte, error) {
	return json.Marshal([7]DayHours(h))
}
