package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// 2024-06-12 is a Wednesday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.June, day, hour, minute, 0, 0, time.UTC)
}

func date(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}

func intPtr(v int) *int { return &v }

func newDefaultScheduler(vacations ...VacationPeriod) *Scheduler {
	return NewScheduler(DefaultOpeningHours(), vacations, Options{Location: time.UTC})
}

func TestState(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler()
	tests := []struct {
		name string
		now  time.Time
		want enums.ServiceState
	}{
		{name: "early morning", now: at(12, 8, 0), want: enums.ServiceStateBeforeOpening},
		{name: "morning opening", now: at(12, 9, 0), want: enums.ServiceStateMorningOpen},
		{name: "morning close", now: at(12, 12, 30), want: enums.ServiceStateBetweenServices},
		{name: "lunch", now: at(12, 13, 15), want: enums.ServiceStateBetweenServices},
		{name: "afternoon opening", now: at(12, 14, 0), want: enums.ServiceStateAfternoonOpen},
		{name: "closing", now: at(12, 19, 0), want: enums.ServiceStateAfterClosing},
		{name: "sunday", now: at(16, 11, 0), want: enums.ServiceStateClosed},
		{name: "monday", now: at(17, 15, 0), want: enums.ServiceStateClosed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, s.State(tt.now))
		})
	}
}

func TestIsLateOrderThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler()
	assert.False(t, s.IsLateOrder(at(12, 17, 29)), "91 minutes before closing")
	assert.True(t, s.IsLateOrder(at(12, 17, 30)), "90 minutes before closing")
	assert.True(t, s.IsLateOrder(at(12, 17, 31)), "89 minutes before closing")
	assert.True(t, s.IsLateOrder(at(12, 8, 30)), "before opening")
	assert.True(t, s.IsLateOrder(at(12, 20, 0)), "after closing")
	assert.True(t, s.IsLateOrder(at(16, 11, 0)), "closed day")
	assert.False(t, s.IsLateOrder(at(12, 10, 0)))
	assert.False(t, s.IsLateOrder(at(12, 13, 0)))
}

func TestImmediatePickup(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler()
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "afternoon before threshold", now: at(12, 17, 25), want: "today at 18:25"},
		{name: "afternoon past threshold", now: at(12, 17, 31), want: "next day, 10:00"},
		{name: "morning with room", now: at(12, 10, 0), want: "today at 11:00"},
		{name: "morning crossing close", now: at(12, 11, 45), want: "today at 14:00"},
		{name: "between services", now: at(12, 13, 0), want: "next day, 10:00"},
		{name: "before opening", now: at(12, 8, 0), want: "next opening, 10:00"},
		{name: "closed day", now: at(16, 12, 0), want: "next opening, 10:00"},
		{name: "after closing", now: at(12, 19, 30), want: "next day, 10:00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, s.ImmediatePickup(tt.now).Text())
		})
	}
}

func TestImmediatePickupWithLaterClosing(t *testing.T) {
	t.Parallel()

	hours := DefaultOpeningHours()
	hours[time.Wednesday].Afternoon = &Window{Open: MustClock("14:00"), Close: MustClock("19:30")}
	s := NewScheduler(hours, nil, Options{Location: time.UTC})

	now := at(12, 17, 35)
	assert.False(t, s.IsLateOrder(now))
	pickup := s.ImmediatePickup(now)
	assert.Equal(t, enums.PickupDayToday, pickup.Day)
	assert.Equal(t, "today at 18:35", pickup.Text())
}

func TestSchedulerUsesStoreLocation(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	s := NewScheduler(DefaultOpeningHours(), nil, Options{Location: paris})

	// 15:25 UTC is 17:25 in Paris during summer time.
	now := time.Date(2024, time.June, 12, 15, 25, 0, 0, time.UTC)
	assert.False(t, s.IsLateOrder(now))
	assert.Equal(t, "today at 18:25", s.ImmediatePickup(now).Text())

	// 22:30 UTC on Saturday is already Sunday in Paris.
	saturdayNight := time.Date(2024, time.June, 15, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, enums.ServiceStateClosed, s.State(saturdayNight))
	assert.Equal(t, date(2024, time.June, 16), s.Today(saturdayNight))
}

func TestMinimumPickupDateSkipsClosedWeekdays(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler()
	assert.Equal(t, date(2024, time.June, 15), s.MinimumPickupDate(at(11, 10, 0)), "tuesday + 4 is saturday")
	assert.Equal(t, date(2024, time.June, 18), s.MinimumPickupDate(at(12, 10, 0)), "sunday moves to tuesday")
	assert.Equal(t, date(2024, time.June, 18), s.MinimumPickupDate(at(13, 10, 0)), "monday moves to tuesday")
	assert.Equal(t, date(2024, time.June, 14), s.MinimumPickupDateAfter(at(12, 10, 0), 2))
}

func TestMinimumPickupDateAfterVacation(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.August, 14, 10, 0, 0, 0, time.UTC)
	s := newDefaultScheduler(VacationPeriod{
		ID:                  1,
		Start:               date(2024, time.August, 10),
		End:                 date(2024, time.August, 20),
		Active:              true,
		PostReturnDelayDays: intPtr(4),
	})

	assert.Equal(t, date(2024, time.August, 24), s.MinimumPickupDate(now))
}

func TestMinimumPickupDateChainsPeriodsAndWeekdays(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.August, 14, 10, 0, 0, 0, time.UTC)
	s := newDefaultScheduler(
		VacationPeriod{ID: 1, Start: date(2024, time.August, 10), End: date(2024, time.August, 21), Active: true, PostReturnDelayDays: intPtr(4)},
		VacationPeriod{ID: 2, Start: date(2024, time.August, 26), End: date(2024, time.August, 30), Active: true},
		VacationPeriod{ID: 3, Start: date(2024, time.September, 1), End: date(2024, time.September, 30), Active: false},
	)

	// 21st + 4 lands on Sunday 25th, skipped to Tuesday 27th, inside period 2,
	// whose default delay gives Tuesday 3 September.
	assert.Equal(t, date(2024, time.September, 3), s.MinimumPickupDate(now))
}

func TestMinimumPickupDateTerminatesOnBackToBackPeriods(t *testing.T) {
	t.Parallel()

	var periods []VacationPeriod
	start := date(2024, time.June, 14)
	for i := 0; i < 20; i++ {
		p := VacationPeriod{ID: int64(i), Start: start, End: start.AddDays(2), Active: true, PostReturnDelayDays: intPtr(0)}
		periods = append(periods, p)
		start = p.End.AddDays(1)
	}
	s := newDefaultScheduler(periods...)

	got := s.MinimumPickupDate(at(11, 10, 0))
	assert.Nil(t, Vacations(periods).Containing(got))
	assert.False(t, s.isClosedWeekday(got))
}

func TestMinimumPickupDateNeverClosedNorInVacation(t *testing.T) {
	t.Parallel()

	periods := Vacations{
		{ID: 1, Start: date(2024, time.July, 29), End: date(2024, time.August, 18), Active: true},
		{ID: 2, Start: date(2024, time.August, 23), End: date(2024, time.August, 24), Active: true, PostReturnDelayDays: intPtr(1)},
		{ID: 3, Start: date(2024, time.December, 24), End: date(2025, time.January, 2), Active: true, PostReturnDelayDays: intPtr(2)},
	}
	s := newDefaultScheduler(periods...)

	day := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		now := day.AddDate(0, 0, i)
		got := s.MinimumPickupDate(now)
		require.Nil(t, periods.Containing(got), "now=%s got=%s", now.Format("2006-01-02"), got)
		require.False(t, s.isClosedWeekday(got), "now=%s got=%s", now.Format("2006-01-02"), got)
		require.True(t, s.IsDateAvailable(now, got), "now=%s got=%s", now.Format("2006-01-02"), got)
	}
}

func TestCheckDate(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler(VacationPeriod{ID: 1, Start: date(2024, time.July, 2), End: date(2024, time.July, 6), Active: true})
	now := at(12, 10, 0)

	tests := []struct {
		name   string
		date   civil.Date
		reason string
	}{
		{name: "past", date: date(2024, time.June, 11), reason: ReasonPast},
		{name: "sunday", date: date(2024, time.June, 23), reason: ReasonClosedWeekday},
		{name: "monday", date: date(2024, time.June, 24), reason: ReasonClosedWeekday},
		{name: "before minimum", date: date(2024, time.June, 14), reason: ReasonBeforeMinimum},
		{name: "vacation", date: date(2024, time.July, 3), reason: ReasonVacation},
		{name: "available", date: date(2024, time.June, 18)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.CheckDate(now, tt.date)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.reason == "", got.Available)
			assert.Equal(t, date(2024, time.June, 18), got.Minimum)
		})
	}
}

func TestValidatePickupDateRejectsWithoutClamping(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler()
	now := at(12, 10, 0)

	err := s.ValidatePickupDate(now, date(2024, time.June, 17))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "Monday")

	err = s.ValidatePickupDate(now, date(2024, time.June, 15))
	require.Error(t, err)
	assert.Contains(t, pkgerrors.As(err).Message(), "2024-06-18")

	require.NoError(t, s.ValidatePickupDate(now, date(2024, time.June, 19)))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	s := newDefaultScheduler()
	summary := s.Summary(at(12, 17, 31))
	assert.Equal(t, enums.ServiceStateAfternoonOpen, summary.State)
	assert.True(t, summary.LateOrder)
	assert.Equal(t, "next day, 10:00", summary.ImmediatePickupText)
	assert.Equal(t, date(2024, time.June, 18), summary.MinimumPickupDate)
	assert.Equal(t, date(2024, time.June, 12), summary.Today)
}

func TestVacationDelayDaysOption(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.August, 14, 10, 0, 0, 0, time.UTC)
	period := VacationPeriod{ID: 1, Start: date(2024, time.August, 10), End: date(2024, time.August, 20), Active: true}

	s := NewScheduler(DefaultOpeningHours(), Vacations{period}, Options{Location: time.UTC, VacationDelayDays: 2})
	assert.Equal(t, date(2024, time.August, 22), s.MinimumPickupDate(now))

	period.PostReturnDelayDays = intPtr(4)
	s = NewScheduler(DefaultOpeningHours(), Vacations{period}, Options{Location: time.UTC, VacationDelayDays: 2})
	assert.Equal(t, date(2024, time.August, 24), s.MinimumPickupDate(now), "a period's own delay wins")
}
