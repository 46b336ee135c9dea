package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/internal/schedule"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultDateWindow = 14
	maxDateWindow     = 60
)

// FulfillmentSource builds schedulers and rate tables from the live settings.
type FulfillmentSource interface {
	Scheduler(ctx context.Context, opts schedule.Options) *schedule.Scheduler
	DeliveryRates(ctx context.Context) settings.Result[*delivery.Table]
}

// Clock returns the current instant.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// ScheduleSummary reports the service state and pickup options for now.
func ScheduleSummary(src FulfillmentSource, opts schedule.Options, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduler := src.Scheduler(r.Context(), opts)
		responses.WriteSuccess(w, scheduler.Summary(clock.now()))
	}
}

// ScheduleDates lists the next ?days calendar days with their availability.
func ScheduleDates(src FulfillmentSource, opts schedule.Options, clock Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := validators.ParseQueryInt(r, "days", defaultDateWindow, 1, maxDateWindow)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := clock.now()
		scheduler := src.Scheduler(r.Context(), opts)
		today := scheduler.Today(now)
		out := make([]schedule.DateAvailability, 0, days)
		for i := 0; i < days; i++ {
			out = append(out, scheduler.CheckDate(now, today.AddDays(i)))
		}
		responses.WriteSuccess(w, out)
	}
}

// ScheduleCheckDate evaluates one pickup date.
func ScheduleCheckDate(src FulfillmentSource, opts schedule.Options, clock Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.ParseDate(chi.URLParam(r, "date"), "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scheduler := src.Scheduler(r.Context(), opts)
		responses.WriteSuccess(w, scheduler.CheckDate(clock.now(), date))
	}
}

// DeliveryRates lists the fee brackets currently in force.
func DeliveryRates(src FulfillmentSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rates := src.DeliveryRates(r.Context())
		responses.WriteSuccess(w, map[string]any{
			"tiers":  rates.Value.Tiers(),
			"source": rates.Source,
		})
	}
}
