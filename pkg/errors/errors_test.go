package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeDuplicate, status: http.StatusConflict, publicMsg: "already applied", detailsOK: true},
		{code: CodeConfiguration, status: http.StatusInternalServerError, publicMsg: "store configuration invalid"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeDuplicate, "already there"))
	if got := As(err); got == nil || got.Code() != CodeDuplicate {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpWalksChain(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := fmt.Errorf("load settings: %w", Wrap(CodeDependency, cause, "settings unavailable"))

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.PGCode != "" {
		t.Fatalf("expected no pg code, got %q", dump.PGCode)
	}
}

func TestIsCodeAndMessageIncludesCause(t *testing.T) {
	err := fmt.Errorf("apply promo: %w", Wrap(CodeDependency, stdErrors.New("timeout"), "promo service unavailable"))
	if !IsCode(err, CodeDependency) {
		t.Fatalf("expected dependency code in chain")
	}
	if IsCode(err, CodeValidation) || IsCode(nil, CodeValidation) {
		t.Fatalf("unexpected code match")
	}
	want := "apply promo: DEPENDENCY_ERROR: promo service unavailable: timeout"
	if err.Error() != want {
		t.Fatalf("expected %q got %q", want, err.Error())
	}
}

func TestDumpLiftsPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "price_tiers" does not exist`, TableName: "price_tiers"}
	dump := Dump(Wrap(CodeDependency, fmt.Errorf("load tiers: %w", pgErr), "catalog unavailable"))
	if dump.PGCode != "42P01" || dump.PGTable != "price_tiers" {
		t.Fatalf("expected pgx diagnostics, got %+v", dump)
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "idx_quantity_discounts_product_min"}
	dump = Dump(fmt.Errorf("seed: %w", pqErr))
	if dump.PGCode != "23505" || dump.PGConstraint != "idx_quantity_discounts_product_min" {
		t.Fatalf("expected pq diagnostics, got %+v", dump)
	}
}
