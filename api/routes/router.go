package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/schedule"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer uses.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps collects what the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       redisStore
	RedisPinger controllers.Pinger
	Cart        controllers.CartService
	Fulfillment controllers.FulfillmentSource
	Schedule    schedule.Options
	Metrics     *metrics.StorefrontMetrics
	Gatherer    prometheus.Gatherer
	Clock       controllers.Clock
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.RedisPinger,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	promoPolicy := middleware.NewRateLimitPolicy(
		"promo",
		cfg.Promo.AttemptWindow,
		cfg.Promo.AttemptLimit*3,
		cfg.Promo.AttemptLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/products/{productId}/quote", controllers.ProductQuote(deps.Cart, logg))

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", controllers.ScheduleSummary(deps.Fulfillment, deps.Schedule, deps.Clock))
			r.Get("/dates", controllers.ScheduleDates(deps.Fulfillment, deps.Schedule, deps.Clock, logg))
			r.Get("/dates/{date}", controllers.ScheduleCheckDate(deps.Fulfillment, deps.Schedule, deps.Clock, logg))
		})
		r.Get("/delivery-rates", controllers.DeliveryRates(deps.Fulfillment))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartSession(logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/lines", controllers.CartAddLine(deps.Cart, logg))
			r.Patch("/lines/{lineId}", controllers.CartUpdateLine(deps.Cart, logg))
			r.Delete("/lines/{lineId}", controllers.CartRemoveLine(deps.Cart, logg))
			r.With(middleware.RateLimit(promoPolicy, deps.Redis, logg)).Post("/promos", controllers.CartApplyPromo(deps.Cart, logg))
			r.Post("/checkout", controllers.CartCheckout(deps.Cart, logg))
		})
	})

	return r
}
