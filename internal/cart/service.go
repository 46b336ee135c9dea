package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promo"
	"github.com/angelmondragon/storefront-backend/internal/schedule"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type productLoader interface {
	Load(ctx context.Context, id int64) (pricing.Product, pricing.Tables, error)
}

type configLoader interface {
	DeliveryRates(ctx context.Context) settings.Result[*delivery.Table]
	QuantityDiscounts(ctx context.Context) settings.Result[[]pricing.QuantityDiscountTier]
	Scheduler(ctx context.Context, opts schedule.Options) *schedule.Scheduler
}

type sessionRepository interface {
	Load(ctx context.Context, sessionID string) (Snapshot, error)
	Save(ctx context.Context, sessionID string, snapshot Snapshot) error
}

type sessionLocker interface {
	Lock(ctx context.Context, name string) (func(context.Context) error, error)
}

type priceResolver interface {
	Resolve(product pricing.Product, tables pricing.Tables, selection pricing.Selection, now time.Time) (pricing.Quote, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Catalog  productLoader
	Settings configLoader
	Sessions sessionRepository
	Resolver priceResolver
	Promo    promo.Validator
	Locker   sessionLocker
	Logger   *logger.Logger
	Schedule schedule.Options
	Clock    func() time.Time
}

// Service runs the cart commands of a storefront session.
type Service struct {
	catalog  productLoader
	settings configLoader
	sessions sessionRepository
	resolver priceResolver
	promo    promo.Validator
	locker   sessionLocker
	logg     *logger.Logger
	schedule schedule.Options
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings loader required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	validator := params.Promo
	if validator == nil {
		validator = promo.Disabled{}
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		catalog:  params.Catalog,
		settings: params.Settings,
		sessions: params.Sessions,
		resolver: params.Resolver,
		promo:    validator,
		locker:   params.Locker,
		logg:     params.Logger,
		schedule: params.Schedule,
		now:      clock,
	}, nil
}

// QuoteView is a resolved price ready for display.
type QuoteView struct {
	ProductID          int64                 `json:"productId"`
	Strategy           enums.PricingStrategy `json:"strategy"`
	Quantity           int                   `json:"quantity"`
	PersonCount        *int                  `json:"personCount,omitempty"`
	UnitPrice          decimal.Decimal       `json:"unitPrice"`
	ReferencePrice     decimal.Decimal       `json:"referencePrice"`
	TotalPrice         decimal.Decimal       `json:"totalPrice"`
	DiscountPercentage decimal.Decimal       `json:"discountPercentage"`
	Savings            decimal.Decimal       `json:"savings"`
	ItemName           string                `json:"itemName,omitempty"`
	PromoScope         enums.PromoScope      `json:"promoScope"`
	PromoItemID        *int64                `json:"promoItemId,omitempty"`
	FixedPrice         bool                  `json:"fixedPrice"`
}

// View is the cart as returned to clients.
type View struct {
	SessionID string `json:"sessionId"`
	Lines     []Line `json:"lines"`
	Totals    Totals `json:"totals"`
	Version   int64  `json:"version"`
}

// AddLineInput adds a product selection to the cart.
type AddLineInput struct {
	ProductID  int64
	Quantity   int
	Selection  Selection
	PickupDate *civil.Date
}

// UpdateLineInput changes a line. Nil fields are left untouched.
type UpdateLineInput struct {
	Quantity        *int
	PickupDate      *civil.Date
	ClearPickupDate bool
}

// ApplyPromoInput targets one line with a promo code.
type ApplyPromoInput struct {
	Code   string
	LineID uuid.UUID
}

// PromoOutcome reports whether a code was accepted. A rejected code is not an error.
type PromoOutcome struct {
	Applied bool         `json:"applied"`
	Result  promo.Result `json:"result"`
	Message string       `json:"message,omitempty"`
	Cart    View         `json:"cart"`
}

// CheckoutInput selects how the order is collected.
type CheckoutInput struct {
	PickupMode enums.PickupMode
	PickupDate *civil.Date
}

// OrderLine is one submitted line.
type OrderLine struct {
	LineID      uuid.UUID             `json:"lineId"`
	ProductID   int64                 `json:"productId"`
	ProductName string                `json:"productName"`
	ItemName    string                `json:"itemName,omitempty"`
	Quantity    int                   `json:"quantity"`
	UnitPrice   decimal.Decimal       `json:"unitPrice"`
	Total       decimal.Decimal       `json:"total"`
	Strategy    enums.PricingStrategy `json:"strategy"`
	Selection   Selection             `json:"selection"`
	PickupDate  *civil.Date           `json:"pickupDate,omitempty"`
}

// OrderPickup is the collection choice attached to an order.
type OrderPickup struct {
	Mode enums.PickupMode `json:"mode"`
	Date *civil.Date      `json:"date,omitempty"`
	Text string           `json:"text,omitempty"`
}

// OrderSubmission is the payload handed to the order collaborator.
type OrderSubmission struct {
	SessionID   string           `json:"sessionId"`
	Lines       []OrderLine      `json:"lines"`
	Promos      []AppliedPromo   `json:"promos"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	DeliveryFee decimal.Decimal  `json:"deliveryFee"`
	Total       decimal.Decimal  `json:"total"`
	Savings     SavingsBreakdown `json:"savings"`
	Pickup      OrderPickup      `json:"pickup"`
	LateOrder   bool             `json:"lateOrder"`
	SubmittedAt time.Time        `json:"submittedAt"`
}

// Quote resolves the price of a selection without touching the cart.
func (s *Service) Quote(ctx context.Context, productID int64, selection Selection, quantity int) (QuoteView, error) {
	ctx = s.logg.WithProductID(ctx, productID)
	product, tables, err := s.loadProduct(ctx, productID)
	if err != nil {
		return QuoteView{}, err
	}
	quote, err := s.resolver.Resolve(product, tables, selection.Pricing(quantity), s.now())
	if err != nil {
		return QuoteView{}, mapError(err)
	}
	s.logg.Debug(s.logg.WithStrategy(ctx, quote.Strategy.String()), "price resolved")
	return toQuoteView(productID, quote), nil
}

// Get returns the cart of a session.
func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	if sessionID == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	cart, err := s.open(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return view(sessionID, cart)
}

// AddLine prices a selection and adds it, incrementing a matching line.
func (s *Service) AddLine(ctx context.Context, sessionID string, input AddLineInput) (View, error) {
	ctx = s.logg.WithProductID(ctx, input.ProductID)
	if input.Quantity < 1 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	now := s.now()
	if input.PickupDate != nil {
		if err := s.settings.Scheduler(ctx, s.schedule).ValidatePickupDate(now, *input.PickupDate); err != nil {
			return View{}, err
		}
	}

	product, tables, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return View{}, err
	}
	quote, err := s.resolver.Resolve(product, tables, input.Selection.Pricing(input.Quantity), now)
	if err != nil {
		return View{}, mapError(err)
	}
	line := NewLine(product, input.Selection, quote, now)
	line.PickupDate = input.PickupDate

	return s.mutate(ctx, sessionID, func(ctx context.Context, cart *Store) error {
		added, merged, err := cart.AddLine(line, s.repricer(product, tables, now))
		if err != nil {
			return err
		}
		ctx = s.logg.WithFields(ctx, map[string]any{
			"line_id":  added.ID.String(),
			"strategy": added.Strategy.String(),
			"quantity": added.Quantity,
			"merged":   merged,
		})
		s.logg.Info(ctx, "cart line added")
		return nil
	})
}

// UpdateLine changes the quantity or pickup date of a line.
func (s *Service) UpdateLine(ctx context.Context, sessionID string, lineID uuid.UUID, input UpdateLineInput) (View, error) {
	now := s.now()
	if input.PickupDate != nil {
		if err := s.settings.Scheduler(ctx, s.schedule).ValidatePickupDate(now, *input.PickupDate); err != nil {
			return View{}, err
		}
	}

	return s.mutate(ctx, sessionID, func(ctx context.Context, cart *Store) error {
		line, err := cart.Line(lineID)
		if err != nil {
			return err
		}
		if input.Quantity != nil {
			var reprice Repricer
			if !line.Fixed() {
				product, tables, err := s.loadProduct(ctx, line.ProductID)
				if err != nil {
					return err
				}
				reprice = s.repricer(product, tables, now)
			}
			if _, err := cart.SetQuantity(lineID, *input.Quantity, reprice); err != nil {
				return err
			}
		}
		switch {
		case input.ClearPickupDate:
			_, err = cart.SetPickupDate(lineID, nil)
		case input.PickupDate != nil:
			_, err = cart.SetPickupDate(lineID, input.PickupDate)
		}
		return err
	})
}

// RemoveLine deletes a line and its promo codes.
func (s *Service) RemoveLine(ctx context.Context, sessionID string, lineID uuid.UUID) (View, error) {
	return s.mutate(ctx, sessionID, func(_ context.Context, cart *Store) error {
		return cart.Remove(lineID)
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sessionID string) (View, error) {
	return s.mutate(ctx, sessionID, func(_ context.Context, cart *Store) error {
		cart.Clear()
		return nil
	})
}

// ApplyPromo validates code against the pricing scope of the line and
// records it when accepted.
func (s *Service) ApplyPromo(ctx context.Context, sessionID string, input ApplyPromoInput) (PromoOutcome, error) {
	code := promo.NormalizeCode(input.Code)
	if code == "" {
		return PromoOutcome{}, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}

	var outcome PromoOutcome
	cartView, err := s.mutate(ctx, sessionID, func(ctx context.Context, cart *Store) error {
		line, err := cart.Line(input.LineID)
		if err != nil {
			return err
		}
		result, err := s.promo.Validate(ctx, promo.Request{
			Code:      code,
			ProductID: line.ProductID,
			Scope:     line.PromoScope,
			ItemID:    line.PromoItemID,
		})
		if err != nil {
			return err
		}
		outcome.Result = result
		if !result.IsValid {
			outcome.Message = "promo code not applicable"
			s.logg.Info(s.logg.WithField(ctx, "promo_code", code), "promo code rejected")
			return nil
		}
		if err := cart.ApplyPromo(AppliedPromo{
			Code:               code,
			LineID:             line.ID,
			Scope:              line.PromoScope,
			ItemID:             line.PromoItemID,
			DiscountPercentage: result.DiscountPercentage,
			Wildcard:           result.Wildcard,
		}); err != nil {
			return err
		}
		outcome.Applied = true
		s.logg.Info(s.logg.WithField(ctx, "promo_code", code), "promo code applied")
		return nil
	})
	if err != nil {
		return PromoOutcome{}, err
	}
	outcome.Cart = cartView
	return outcome, nil
}

// Checkout validates pickup choices and builds the order submission. The cart
// is cleared once the submission is built.
func (s *Service) Checkout(ctx context.Context, sessionID string, input CheckoutInput) (OrderSubmission, error) {
	now := s.now()
	scheduler := s.settings.Scheduler(ctx, s.schedule)

	pickup, err := resolvePickup(scheduler, now, input)
	if err != nil {
		return OrderSubmission{}, err
	}

	var submission OrderSubmission
	_, err = s.mutate(ctx, sessionID, func(ctx context.Context, cart *Store) error {
		if cart.Empty() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		snapshot := cart.Snapshot()
		for _, line := range snapshot.Lines {
			if line.PickupDate == nil {
				continue
			}
			if err := scheduler.ValidatePickupDate(now, *line.PickupDate); err != nil {
				return err
			}
		}
		totals, err := cart.Totals()
		if err != nil {
			return err
		}
		submission = buildSubmission(sessionID, snapshot.Lines, totals, pickup, now)
		submission.LateOrder = scheduler.IsLateOrder(now)

		cart.Clear()
		ctx = s.logg.WithFields(ctx, map[string]any{
			"lines":       len(submission.Lines),
			"total":       submission.Total.StringFixed(2),
			"pickup_mode": pickup.Mode.String(),
		})
		s.logg.Info(ctx, "order submission built")
		return nil
	})
	if err != nil {
		return OrderSubmission{}, err
	}
	return submission, nil
}

func resolvePickup(scheduler *schedule.Scheduler, now time.Time, input CheckoutInput) (OrderPickup, error) {
	mode := input.PickupMode
	if mode == "" {
		mode = enums.PickupModeImmediate
		if input.PickupDate != nil {
			mode = enums.PickupModeScheduled
		}
	}
	switch mode {
	case enums.PickupModeImmediate:
		return OrderPickup{Mode: mode, Text: scheduler.ImmediatePickup(now).Text()}, nil
	case enums.PickupModeScheduled:
		if input.PickupDate == nil {
			return OrderPickup{}, pkgerrors.New(pkgerrors.CodeValidation, "pickup date is required for a scheduled pickup")
		}
		if err := scheduler.ValidatePickupDate(now, *input.PickupDate); err != nil {
			return OrderPickup{}, err
		}
		date := *input.PickupDate
		return OrderPickup{Mode: mode, Date: &date}, nil
	}
	return OrderPickup{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid pickup mode %q", input.PickupMode))
}

func buildSubmission(sessionID string, lines []Line, totals Totals, pickup OrderPickup, now time.Time) OrderSubmission {
	out := OrderSubmission{
		SessionID:   sessionID,
		Lines:       make([]OrderLine, 0, len(lines)),
		Promos:      totals.AppliedPromos,
		Subtotal:    totals.Subtotal,
		DeliveryFee: totals.DeliveryFee,
		Total:       totals.GrandTotal,
		Savings:     totals.Savings,
		Pickup:      pickup,
		SubmittedAt: now.UTC(),
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, OrderLine{
			LineID:      line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ItemName:    line.ItemName,
			Quantity:    line.Quantity,
			UnitPrice:   line.EffectiveUnitPrice(),
			Total:       line.Total(),
			Strategy:    line.Strategy,
			Selection:   line.Selection,
			PickupDate:  line.PickupDate,
		})
	}
	return out
}

// mutate runs fn on the session cart under the session lock and persists the result.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(ctx context.Context, cart *Store) error) (View, error) {
	if sessionID == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, "cart:"+sessionID)
		if err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart is being updated, retry shortly")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart lock release failed")
			}
		}()
	}

	cart, err := s.open(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if err := fn(ctx, cart); err != nil {
		return View{}, mapError(err)
	}
	if err := s.sessions.Save(ctx, sessionID, cart.Snapshot()); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart could not be saved")
	}
	return view(sessionID, cart)
}

func (s *Service) open(ctx context.Context, sessionID string) (*Store, error) {
	snapshot, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart could not be loaded")
	}
	rates := s.settings.DeliveryRates(ctx)
	return Restore(snapshot, rates.Value), nil
}

// loadProduct fills in the store-wide quantity ladder for products without their own.
func (s *Service) loadProduct(ctx context.Context, productID int64) (pricing.Product, pricing.Tables, error) {
	product, tables, err := s.catalog.Load(ctx, productID)
	if err != nil {
		return pricing.Product{}, pricing.Tables{}, err
	}
	if len(tables.QuantityDiscounts) == 0 {
		tables.QuantityDiscounts = s.settings.QuantityDiscounts(ctx).Value
	}
	return product, tables, nil
}

func (s *Service) repricer(product pricing.Product, tables pricing.Tables, now time.Time) Repricer {
	return func(line Line, quantity int) (Line, error) {
		quote, err := s.resolver.Resolve(product, tables, line.Selection.Pricing(quantity), now)
		if err != nil {
			return Line{}, err
		}
		line.applyQuote(quote)
		return line, nil
	}
}

func view(sessionID string, cart *Store) (View, error) {
	totals, err := cart.Totals()
	if err != nil {
		return View{}, mapError(err)
	}
	snapshot := cart.Snapshot()
	return View{
		SessionID: sessionID,
		Lines:     snapshot.Lines,
		Totals:    totals,
		Version:   snapshot.Version,
	}, nil
}

func toQuoteView(productID int64, quote pricing.Quote) QuoteView {
	return QuoteView{
		ProductID:          productID,
		Strategy:           quote.Strategy,
		Quantity:           quote.Quantity,
		PersonCount:        quote.PersonCount,
		UnitPrice:          quote.UnitPrice,
		ReferencePrice:     quote.ReferencePrice,
		TotalPrice:         quote.TotalPrice,
		DiscountPercentage: quote.DiscountPercentage,
		Savings:            quote.Savings,
		ItemName:           quote.ItemName,
		PromoScope:         quote.PromoScope,
		PromoItemID:        quote.PromoItemID,
		FixedPrice:         quote.FixedPrice,
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	switch {
	case errors.Is(err, ErrLineNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart line not found")
	case errors.Is(err, ErrDuplicatePromo):
		return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "promo code already applied to this line")
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidPersonCount),
		errors.Is(err, pricing.ErrPersonCountOutOfRange):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart operation failed")
}
