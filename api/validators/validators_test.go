package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type quoteBody struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Mode     string `json:"mode" validate:"omitempty,oneof=immediate scheduled"`
}

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func requireValidation(t *testing.T, err error) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	return typed
}

func TestDecodeJSONBody(t *testing.T) {
	var body quoteBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2,"mode":"scheduled"}`))
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Quantity != 2 {
		t.Fatalf("unexpected quantity %d", body.Quantity)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	var body quoteBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0,"mode":"later"}`))
	typed := requireValidation(t, DecodeJSONBody(req, &body))

	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["quantity"] != "is required" {
		t.Fatalf("unexpected quantity message %q", details["quantity"])
	}
	if details["mode"] != "must be one of [immediate scheduled]" {
		t.Fatalf("unexpected mode message %q", details["mode"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var body quoteBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"price":"0.01"}`))
	requireValidation(t, DecodeJSONBody(req, &body))
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingInput(t *testing.T) {
	var body quoteBody
	typed := requireValidation(t, DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body))
	if typed.Message() != "request body is empty" {
		t.Fatalf("unexpected message %q", typed.Message())
	}

	trailing := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1}{"quantity":2}`))
	requireValidation(t, DecodeJSONBody(trailing, &body))
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	var body quoteBody
	huge := `{"quantity":1,"mode":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	requireValidation(t, DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge)), &body))
}

func TestParsePathParams(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", "42")
	id, err := ParsePathID(req, "productId")
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}

	bad := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", "-1")
	if _, err := ParsePathID(bad, "productId"); err == nil {
		t.Fatal("expected error for negative id")
	}

	line := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "lineId", "not-a-uuid")
	requireValidation(t, func() error { _, err := ParsePathUUID(line, "lineId"); return err }())
}

func TestParseDate(t *testing.T) {
	date, err := ParseDate("2024-06-18", "date")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if date.Day != 18 {
		t.Fatalf("unexpected date %v", date)
	}
	requireValidation(t, func() error { _, err := ParseDate("18/06/2024", "date"); return err }())
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?days=14", nil)
	days, err := ParseQueryInt(req, "days", 7, 1, 60)
	if err != nil || days != 14 {
		t.Fatalf("expected 14, got %d (%v)", days, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?days=90", nil)
	requireValidation(t, func() error { _, err := ParseQueryInt(req, "days", 7, 1, 60); return err }())
}

func TestPromoCode(t *testing.T) {
	code, err := PromoCode("  summer10  ", 64)
	if err != nil || code != "summer10" {
		t.Fatalf("expected trimmed code, got %q (%v)", code, err)
	}
	requireValidation(t, func() error { _, err := PromoCode("   ", 64); return err }())
	requireValidation(t, func() error { _, err := PromoCode("summer10", 6); return err }())
	requireValidation(t, func() error { _, err := PromoCode("summer 10", 64); return err }())
}
