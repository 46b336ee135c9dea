package promo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// WildcardProduct is the product key of codes that apply to every product.
const WildcardProduct = "*"

// Request identifies a code and the pricing scope it should apply to.
type Request struct {
	Code      string
	ProductID int64
	Scope     enums.PromoScope
	ItemID    *int64
}

// Result is the outcome of a validation. An inapplicable code is a Result
// with IsValid false, not an error.
type Result struct {
	IsValid            bool            `json:"isValid"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Wildcard           bool            `json:"wildcard,omitempty"`
}

// Validator checks promo codes against a pricing scope.
type Validator interface {
	Validate(ctx context.Context, req Request) (Result, error)
}

// Lookup is one query against a promo source.
type Lookup struct {
	Code       string           `json:"code"`
	ProductKey string           `json:"productId"`
	Scope      enums.PromoScope `json:"scope"`
	ItemID     *int64           `json:"itemId,omitempty"`
}

// Source answers a single lookup. Errors are reserved for transport failures.
type Source interface {
	Lookup(ctx context.Context, lookup Lookup) (Result, error)
}

type validationRecorder interface {
	ObservePromoValidation(outcome string, duration time.Duration)
}

// ScopedValidator tries the exact product first, then codes valid for all products.
type ScopedValidator struct {
	source  Source
	metrics validationRecorder
}

func NewScopedValidator(source Source, metrics validationRecorder) *ScopedValidator {
	return &ScopedValidator{source: source, metrics: metrics}
}

// NormalizeCode trims and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (v *ScopedValidator) Validate(ctx context.Context, req Request) (result Result, err error) {
	start := time.Now()
	defer func() {
		v.observe(result, err, time.Since(start))
	}()

	code := NormalizeCode(req.Code)
	if code == "" {
		return Result{}, nil
	}
	scope := req.Scope
	if !scope.IsValid() {
		scope = enums.PromoScopeNormal
	}

	exact, err := v.source.Lookup(ctx, Lookup{
		Code:       code,
		ProductKey: strconv.FormatInt(req.ProductID, 10),
		Scope:      scope,
		ItemID:     req.ItemID,
	})
	if err != nil {
		return Result{}, err
	}
	if exact.IsValid {
		return exact, nil
	}

	wildcard, err := v.source.Lookup(ctx, Lookup{
		Code:       code,
		ProductKey: WildcardProduct,
		Scope:      enums.PromoScopeNormal,
	})
	if err != nil {
		return Result{}, err
	}
	if !wildcard.IsValid {
		return Result{}, nil
	}
	wildcard.Wildcard = true
	return wildcard, nil
}

func (v *ScopedValidator) observe(result Result, err error, elapsed time.Duration) {
	if v.metrics == nil {
		return
	}
	outcome := "invalid"
	switch {
	case err != nil:
		outcome = "error"
	case result.IsValid:
		outcome = "valid"
	}
	v.metrics.ObservePromoValidation(outcome, elapsed)
}

// Disabled is used when no promo service is configured: every code is inapplicable.
type Disabled struct{}

func (Disabled) Validate(context.Context, Request) (Result, error) {
	return Result{}, nil
}
