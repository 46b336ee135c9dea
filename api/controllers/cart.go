package controllers

import (
	"context"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxPromoCodeLength = 64

// CartService is the cart surface the HTTP layer depends on.
type CartService interface {
	Quote(ctx context.Context, productID int64, selection cart.Selection, quantity int) (cart.QuoteView, error)
	Get(ctx context.Context, sessionID string) (cart.View, error)
	AddLine(ctx context.Context, sessionID string, input cart.AddLineInput) (cart.View, error)
	UpdateLine(ctx context.Context, sessionID string, lineID uuid.UUID, input cart.UpdateLineInput) (cart.View, error)
	RemoveLine(ctx context.Context, sessionID string, lineID uuid.UUID) (cart.View, error)
	Clear(ctx context.Context, sessionID string) (cart.View, error)
	ApplyPromo(ctx context.Context, sessionID string, input cart.ApplyPromoInput) (cart.PromoOutcome, error)
	Checkout(ctx context.Context, sessionID string, input cart.CheckoutInput) (cart.OrderSubmission, error)
}

type selectionPayload struct {
	TierID       *int64 `json:"tierId" validate:"omitempty,gt=0"`
	WeightTierID *int64 `json:"weightTierId" validate:"omitempty,gt=0"`
	RangeID      *int64 `json:"rangeId" validate:"omitempty,gt=0"`
	SectionID    *int64 `json:"sectionId" validate:"omitempty,gt=0"`
	PersonCount  *int   `json:"personCount" validate:"omitempty,min=1"`
}

func (p selectionPayload) toSelection() cart.Selection {
	return cart.Selection{
		TierID:       p.TierID,
		WeightTierID: p.WeightTierID,
		RangeID:      p.RangeID,
		SectionID:    p.SectionID,
		PersonCount:  p.PersonCount,
	}
}

type quoteRequest struct {
	selectionPayload
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type addLineRequest struct {
	selectionPayload
	ProductID  int64   `json:"productId" validate:"required,gt=0"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
	PickupDate *string `json:"pickupDate"`
}

type updateLineRequest struct {
	Quantity        *int    `json:"quantity" validate:"omitempty,min=1"`
	PickupDate      *string `json:"pickupDate"`
	ClearPickupDate bool    `json:"clearPickupDate"`
}

type applyPromoRequest struct {
	Code   string `json:"code" validate:"required,max=64"`
	LineID string `json:"lineId" validate:"required,uuid"`
}

type checkoutRequest struct {
	PickupMode string  `json:"pickupMode" validate:"omitempty,oneof=immediate scheduled"`
	PickupDate *string `json:"pickupDate"`
}

func optionalDate(raw *string, field string) (*civil.Date, error) {
	if raw == nil {
		return nil, nil
	}
	date, err := validators.ParseDate(*raw, field)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// ProductQuote prices a selection without touching the cart.
func ProductQuote(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProductID(ctx, productID)
		}
		quote, err := svc.Quote(ctx, productID, payload.toSelection(), payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CartFetch returns the session's cart with live totals.
func CartFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddLine adds a product selection, merging into a matching line.
func CartAddLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pickupDate, err := optionalDate(payload.PickupDate, "pickupDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProductID(ctx, payload.ProductID)
		}
		view, err := svc.AddLine(ctx, middleware.SessionIDFromContext(ctx), cart.AddLineInput{
			ProductID:  payload.ProductID,
			Quantity:   payload.Quantity,
			Selection:  payload.toSelection(),
			PickupDate: pickupDate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// CartUpdateLine changes a line's quantity or pickup date.
func CartUpdateLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == nil && payload.PickupDate == nil && !payload.ClearPickupDate {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}
		pickupDate, err := optionalDate(payload.PickupDate, "pickupDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateLine(r.Context(), middleware.SessionIDFromContext(r.Context()), lineID, cart.UpdateLineInput{
			Quantity:        payload.Quantity,
			PickupDate:      pickupDate,
			ClearPickupDate: payload.ClearPickupDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveLine drops a line and the promos applied to it.
func CartRemoveLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.RemoveLine(r.Context(), middleware.SessionIDFromContext(r.Context()), lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartClear empties the cart.
func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Clear(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartApplyPromo validates a code against one line. A rejected code answers
// 200 with applied=false.
func CartApplyPromo(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload applyPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code, err := validators.PromoCode(payload.Code, maxPromoCodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineID, err := uuid.Parse(payload.LineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id"))
			return
		}

		outcome, err := svc.ApplyPromo(r.Context(), middleware.SessionIDFromContext(r.Context()), cart.ApplyPromoInput{
			Code:   code,
			LineID: lineID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// CartCheckout builds the order submission and empties the cart.
func CartCheckout(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pickupDate, err := optionalDate(payload.PickupDate, "pickupDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		submission, err := svc.Checkout(r.Context(), middleware.SessionIDFromContext(r.Context()), cart.CheckoutInput{
			PickupMode: enums.PickupMode(payload.PickupMode),
			PickupDate: pickupDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, submission)
	}
}
