package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	quoteFn      func(productID int64, selection cart.Selection, quantity int) (cart.QuoteView, error)
	addFn        func(sessionID string, input cart.AddLineInput) (cart.View, error)
	updateFn     func(sessionID string, lineID uuid.UUID, input cart.UpdateLineInput) (cart.View, error)
	applyPromoFn func(sessionID string, input cart.ApplyPromoInput) (cart.PromoOutcome, error)
	checkoutFn   func(sessionID string, input cart.CheckoutInput) (cart.OrderSubmission, error)
	getErr       error
}

func (s stubCartService) Quote(_ context.Context, productID int64, selection cart.Selection, quantity int) (cart.QuoteView, error) {
	return s.quoteFn(productID, selection, quantity)
}

func (s stubCartService) Get(_ context.Context, sessionID string) (cart.View, error) {
	return cart.View{SessionID: sessionID}, s.getErr
}

func (s stubCartService) AddLine(_ context.Context, sessionID string, input cart.AddLineInput) (cart.View, error) {
	return s.addFn(sessionID, input)
}

func (s stubCartService) UpdateLine(_ context.Context, sessionID string, lineID uuid.UUID, input cart.UpdateLineInput) (cart.View, error) {
	return s.updateFn(sessionID, lineID, input)
}

func (s stubCartService) RemoveLine(_ context.Context, sessionID string, _ uuid.UUID) (cart.View, error) {
	return cart.View{SessionID: sessionID}, nil
}

func (s stubCartService) Clear(_ context.Context, sessionID string) (cart.View, error) {
	return cart.View{SessionID: sessionID}, nil
}

func (s stubCartService) ApplyPromo(_ context.Context, sessionID string, input cart.ApplyPromoInput) (cart.PromoOutcome, error) {
	return s.applyPromoFn(sessionID, input)
}

func (s stubCartService) Checkout(_ context.Context, sessionID string, input cart.CheckoutInput) (cart.OrderSubmission, error) {
	return s.checkoutFn(sessionID, input)
}

func cartRequest(method, target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithSessionID(req.Context(), "session-1")
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

func TestProductQuoteSuccess(t *testing.T) {
	svc := stubCartService{quoteFn: func(productID int64, selection cart.Selection, quantity int) (cart.QuoteView, error) {
		if productID != 42 || quantity != 3 || selection.TierID == nil || *selection.TierID != 7 {
			t.Fatalf("unexpected quote input %d %d %+v", productID, quantity, selection)
		}
		return cart.QuoteView{ProductID: productID, Quantity: quantity, UnitPrice: decimal.RequireFromString("30.00")}, nil
	}}

	resp := httptest.NewRecorder()
	ProductQuote(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/products/42/quote", `{"quantity":3,"tierId":7}`, map[string]string{"productId": "42"}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			UnitPrice string `json:"unitPrice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.UnitPrice != "30" {
		t.Fatalf("unexpected unit price %q", envelope.Data.UnitPrice)
	}
}

func TestProductQuoteRejectsBadInput(t *testing.T) {
	svc := stubCartService{quoteFn: func(int64, cart.Selection, int) (cart.QuoteView, error) {
		t.Fatal("service must not be called")
		return cart.QuoteView{}, nil
	}}

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{name: "bad id", id: "abc", body: `{"quantity":1}`, status: http.StatusBadRequest},
		{name: "zero quantity", id: "1", body: `{"quantity":0}`, status: http.StatusBadRequest},
		{name: "negative person count", id: "1", body: `{"quantity":1,"personCount":-2}`, status: http.StatusBadRequest},
		{name: "client price", id: "1", body: `{"quantity":1,"unitPrice":"0.01"}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		ProductQuote(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/", tt.body, map[string]string{"productId": tt.id}))
		if resp.Code != tt.status {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.status, resp.Code)
		}
	}
}

func TestCartAddLineCreated(t *testing.T) {
	svc := stubCartService{addFn: func(sessionID string, input cart.AddLineInput) (cart.View, error) {
		if sessionID != "session-1" {
			t.Fatalf("unexpected session %q", sessionID)
		}
		if input.ProductID != 5 || input.Quantity != 2 || input.PickupDate == nil || input.PickupDate.Day != 18 {
			t.Fatalf("unexpected input %+v", input)
		}
		return cart.View{SessionID: sessionID, Version: 1}, nil
	}}

	resp := httptest.NewRecorder()
	CartAddLine(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/lines", `{"productId":5,"quantity":2,"pickupDate":"2024-06-18"}`, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCartAddLineRejectsBadDate(t *testing.T) {
	svc := stubCartService{addFn: func(string, cart.AddLineInput) (cart.View, error) {
		t.Fatal("service must not be called")
		return cart.View{}, nil
	}}

	resp := httptest.NewRecorder()
	CartAddLine(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/lines", `{"productId":5,"quantity":2,"pickupDate":"18/06"}`, nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartUpdateLine(t *testing.T) {
	lineID := uuid.New()
	svc := stubCartService{updateFn: func(_ string, got uuid.UUID, input cart.UpdateLineInput) (cart.View, error) {
		if got != lineID || input.Quantity == nil || *input.Quantity != 4 {
			t.Fatalf("unexpected update %s %+v", got, input)
		}
		return cart.View{}, nil
	}}
	params := map[string]string{"lineId": lineID.String()}

	resp := httptest.NewRecorder()
	CartUpdateLine(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPatch, "/", `{"quantity":4}`, params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	CartUpdateLine(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPatch, "/", `{}`, params))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty update got %d", resp.Code)
	}
}

func TestCartApplyPromoNotApplicableIsOK(t *testing.T) {
	lineID := uuid.New()
	svc := stubCartService{applyPromoFn: func(_ string, input cart.ApplyPromoInput) (cart.PromoOutcome, error) {
		if input.Code != "SUMMER10" || input.LineID != lineID {
			t.Fatalf("unexpected promo input %+v", input)
		}
		return cart.PromoOutcome{Applied: false, Message: "promo code not applicable"}, nil
	}}

	resp := httptest.NewRecorder()
	body := `{"code":"  SUMMER10 ","lineId":"` + lineID.String() + `"}`
	CartApplyPromo(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/promos", body, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Applied bool   `json:"applied"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Applied || envelope.Data.Message == "" {
		t.Fatalf("unexpected outcome %+v", envelope.Data)
	}
}

func TestCartApplyPromoDuplicateIsConflict(t *testing.T) {
	svc := stubCartService{applyPromoFn: func(string, cart.ApplyPromoInput) (cart.PromoOutcome, error) {
		return cart.PromoOutcome{}, pkgerrors.New(pkgerrors.CodeDuplicate, "promo code already applied to this line")
	}}

	resp := httptest.NewRecorder()
	body := `{"code":"SUMMER10","lineId":"` + uuid.NewString() + `"}`
	CartApplyPromo(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/promos", body, nil))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeDuplicate) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCartCheckout(t *testing.T) {
	svc := stubCartService{checkoutFn: func(_ string, input cart.CheckoutInput) (cart.OrderSubmission, error) {
		if input.PickupMode != enums.PickupModeScheduled || input.PickupDate == nil {
			t.Fatalf("unexpected checkout input %+v", input)
		}
		return cart.OrderSubmission{SessionID: "session-1"}, nil
	}}

	resp := httptest.NewRecorder()
	CartCheckout(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/checkout", `{"pickupMode":"scheduled","pickupDate":"2024-06-18"}`, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	CartCheckout(svc, nil).ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/checkout", `{"pickupMode":"delivery"}`, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode got %d", resp.Code)
	}
}

func TestCartFetchMapsServiceErrors(t *testing.T) {
	svc := stubCartService{getErr: pkgerrors.New(pkgerrors.CodeDependency, "cart store unavailable")}

	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, cartRequest(http.MethodGet, "/api/v1/cart", "", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
