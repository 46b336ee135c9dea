package promo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	validatePath          = "/v1/promo-codes/validate"
	responseBodyReadLimit = 64 * 1024
)

var (
	errBaseURLRequired = errors.New("promo service base url is required")
	hundred            = decimal.NewFromInt(100)
)

// HTTPConfig tunes timeouts, retries and the circuit breaker.
type HTTPConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetries       uint64
	RetryBaseDelay   time.Duration
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenDelay <= 0 {
		c.BreakerOpenDelay = 30 * time.Second
	}
	return c
}

// HTTPSource queries the external promo code service.
type HTTPSource struct {
	httpClient *http.Client
	cfg        HTTPConfig
	breaker    *gobreaker.CircuitBreaker
	logg       *logger.Logger
}

// Option configures optional HTTPSource behavior.
type Option func(*HTTPSource)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger logs breaker state changes.
func WithLogger(logg *logger.Logger) Option {
	return func(s *HTTPSource) {
		s.logg = logg
	}
}

func NewHTTPSource(cfg HTTPConfig, opts ...Option) (*HTTPSource, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errBaseURLRequired
	}
	cfg = cfg.withDefaults()

	s := &HTTPSource{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "promo-service",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if s.logg == nil {
				return
			}
			ctx := s.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			s.logg.Warn(ctx, "promo service circuit breaker state changed")
		},
	})
	return s, nil
}

type validateResponse struct {
	Valid              bool             `json:"valid"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage"`
}

// Lookup asks the service about one code. 404 and 422 answers mean the code
// does not apply; 5xx and network failures are retried, then reported.
func (s *HTTPSource) Lookup(ctx context.Context, lookup Lookup) (Result, error) {
	payload, err := json.Marshal(lookup)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal promo lookup")
	}

	var result Result
	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewExponential(s.cfg.RetryBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := s.breaker.Execute(func() (interface{}, error) {
			r, err := s.attempt(ctx, payload)
			return r, err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return err
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		result = out.(Result)
		return nil
	})
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promo service unavailable")
	}
	return result, nil
}

func (s *HTTPSource) attempt(ctx context.Context, payload []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+validatePath, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build promo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call promo service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return Result{}, fmt.Errorf("read promo response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return Result{}, nil
	case resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("promo service returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Result{}, nil
	}

	var decoded validateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode promo response: %w", err)
	}
	if !decoded.Valid || decoded.DiscountPercentage == nil {
		return Result{}, nil
	}
	pct := *decoded.DiscountPercentage
	if !pct.IsPositive() || pct.GreaterThan(hundred) {
		return Result{}, nil
	}
	return Result{IsValid: true, DiscountPercentage: pct}, nil
}
