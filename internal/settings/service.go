package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/schedule"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	KeyOpeningHours      = "opening_hours"
	KeyVacationPeriods   = "vacation_periods"
	KeyDeliveryRates     = "delivery_rates"
	KeyQuantityDiscounts = "quantity_discounts"
)

// Source tells where a Result value came from.
type Source string

const (
	SourceLoaded  Source = "loaded"
	SourceCached  Source = "cached"
	SourceDefault Source = "default"
)

// Result is a configuration value with its provenance. Err is set whenever the
// stored entry was missing or unusable and Value holds the default instead.
type Result[T any] struct {
	Value  T
	Source Source
	Err    error
}

// Defaulted reports whether Value is a fallback.
func (r Result[T]) Defaulted() bool {
	return r.Source == SourceDefault
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SettingsKey(name string) string
}

type fallbackRecorder interface {
	IncConfigFallback(table, reason string)
}

// Service resolves typed configuration from the settings table.
type Service struct {
	store   store
	cache   cache
	ttl     time.Duration
	logg    *logger.Logger
	metrics fallbackRecorder
}

// Options wires the optional collaborators of Service.
type Options struct {
	Cache    cache
	CacheTTL time.Duration
	Logger   *logger.Logger
	Metrics  fallbackRecorder
}

func NewService(store store, opts Options) *Service {
	return &Service{
		store:   store,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		logg:    opts.Logger,
		metrics: opts.Metrics,
	}
}

// OpeningHours falls back to schedule.DefaultOpeningHours.
func (s *Service) OpeningHours(ctx context.Context) Result[schedule.OpeningHours] {
	return load(ctx, s, KeyOpeningHours, schedule.ParseOpeningHours, schedule.DefaultOpeningHours)
}

// VacationPeriods falls back to no closures.
func (s *Service) VacationPeriods(ctx context.Context) Result[schedule.Vacations] {
	return load(ctx, s, KeyVacationPeriods, schedule.ParseVacations, func() schedule.Vacations { return nil })
}

// DeliveryRates falls back to delivery.DefaultTiers. Overlapping or otherwise
// invalid brackets are reported in Err and never partially used.
func (s *Service) DeliveryRates(ctx context.Context) Result[*delivery.Table] {
	return load(ctx, s, KeyDeliveryRates, delivery.ParseTiers, delivery.DefaultTable)
}

// QuantityDiscounts is the store-wide ladder applied to products without their own.
func (s *Service) QuantityDiscounts(ctx context.Context) Result[[]pricing.QuantityDiscountTier] {
	return load(ctx, s, KeyQuantityDiscounts, parseQuantityDiscounts, func() []pricing.QuantityDiscountTier { return nil })
}

// Scheduler builds a fulfillment scheduler from the current hours and vacations.
func (s *Service) Scheduler(ctx context.Context, opts schedule.Options) *schedule.Scheduler {
	hours := s.OpeningHours(ctx)
	vacations := s.VacationPeriods(ctx)
	return schedule.NewScheduler(hours.Value, vacations.Value, opts)
}

func load[T any](ctx context.Context, s *Service, key string, parse func([]byte) (T, error), def func() T) Result[T] {
	if raw, ok := s.fromCache(ctx, key); ok {
		if value, err := parse([]byte(raw)); err == nil {
			return Result[T]{Value: value, Source: SourceCached}
		}
	}

	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		s.fallback(ctx, key, "missing", err)
		return Result[T]{Value: def(), Source: SourceDefault, Err: pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("setting %s not configured", key))}
	}
	if err != nil {
		s.fallback(ctx, key, "load_error", err)
		return Result[T]{Value: def(), Source: SourceDefault, Err: pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("setting %s unavailable", key))}
	}

	value, err := parse([]byte(raw))
	if err != nil {
		s.fallback(ctx, key, "malformed", err)
		if !pkgerrors.IsCode(err, pkgerrors.CodeConfiguration) {
			err = pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, fmt.Sprintf("setting %s is malformed", key))
		}
		return Result[T]{Value: def(), Source: SourceDefault, Err: err}
	}

	s.toCache(ctx, key, raw)
	return Result[T]{Value: value, Source: SourceLoaded}
}

func (s *Service) fromCache(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	raw, err := s.cache.Get(ctx, s.cache.SettingsKey(key))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.warn(ctx, key, "settings cache read failed", err)
		}
		return "", false
	}
	return raw, true
}

func (s *Service) toCache(ctx context.Context, key, raw string) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, s.cache.SettingsKey(key), raw, s.ttl); err != nil {
		s.warn(ctx, key, "settings cache write failed", err)
	}
}

func (s *Service) fallback(ctx context.Context, key, reason string, err error) {
	if s.metrics != nil {
		s.metrics.IncConfigFallback(key, reason)
	}
	s.warn(ctx, key, "setting fell back to default", err)
}

func (s *Service) warn(ctx context.Context, key, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"setting": key, "error": err.Error()})
	s.logg.Warn(ctx, msg)
}

var hundred = decimal.NewFromInt(100)

type quantityDiscountEntry struct {
	MinQuantity        int             `json:"minQuantity"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

func parseQuantityDiscounts(data []byte) ([]pricing.QuantityDiscountTier, error) {
	var entries []quantityDiscountEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode quantity discounts: %w", err)
	}
	out := make([]pricing.QuantityDiscountTier, 0, len(entries))
	for i, entry := range entries {
		if entry.MinQuantity < 1 {
			return nil, fmt.Errorf("quantity discount %d: minQuantity must be positive", i)
		}
		if !entry.DiscountPercentage.IsPositive() || entry.DiscountPercentage.GreaterThan(hundred) {
			return nil, fmt.Errorf("quantity discount %d: percentage out of range", i)
		}
		out = append(out, pricing.QuantityDiscountTier{
			MinQuantity:        entry.MinQuantity,
			DiscountPercentage: entry.DiscountPercentage,
		})
	}
	return out, nil
}
