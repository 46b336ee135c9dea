package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ParsePathID reads a positive integer URL parameter.
func ParsePathID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParsePathUUID reads a UUID URL parameter.
func ParsePathUUID(r *http.Request, key string) (uuid.UUID, error) {
	value, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "path parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw, field string) (civil.Date, error) {
	date, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD").WithDetails(map[string]any{"field": field})
	}
	return date, nil
}

// ParseQueryInt reads an optional bounded integer query parameter.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// PromoCode trims a customer typed code. Codes are single tokens of at most maxLen characters.
func PromoCode(raw string, maxLen int) (string, error) {
	code := strings.TrimSpace(raw)
	switch {
	case code == "":
		return "", pkgerrors.New(pkgerrors.CodeValidation, "promo code is required").WithDetails(map[string]any{"field": "code"})
	case maxLen > 0 && len(code) > maxLen:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "promo code is too long").WithDetails(map[string]any{"field": "code", "max": maxLen})
	case strings.IndexFunc(code, unicode.IsSpace) >= 0:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "promo code must not contain spaces").WithDetails(map[string]any{"field": "code"})
	}
	return code, nil
}
