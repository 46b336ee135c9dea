package pricing

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Product is the pricing view of a catalog product.
type Product struct {
	ID        int64
	Name      string
	Category  string
	BasePrice decimal.Decimal
	Modes     Modes
	Promotion Promotion
}

// Modes mirrors the independent pricing flags stored on a product. Several
// flags may be set at once; ResolveStrategy decides which one is effective.
type Modes struct {
	QuantityTiers  bool
	WeightTiers    bool
	PersonPricing  bool
	RangePricing   bool
	SectionPricing bool
}

// Promotion is an optional promotional price bounded by calendar days.
// A nil bound leaves that side of the window open.
type Promotion struct {
	Active bool
	Price  *decimal.Decimal
	Start  *civil.Date
	End    *civil.Date
}

// ValidFor reports whether the promotional price undercuts reference and is positive.
func (p Promotion) ValidFor(reference decimal.Decimal) bool {
	if p.Price == nil {
		return false
	}
	return p.Price.IsPositive() && p.Price.LessThan(reference)
}

// InWindow compares whole days: the start day counts from 00:00:00 and the
// end day through 23:59:59.
func (p Promotion) InWindow(today civil.Date) bool {
	if p.Start != nil && today.Before(*p.Start) {
		return false
	}
	if p.End != nil && today.After(*p.End) {
		return false
	}
	return true
}

// Applies reports whether the promotion replaces reference on the given day.
func (p Promotion) Applies(reference decimal.Decimal, today civil.Date) bool {
	return p.Active && p.ValidFor(reference) && p.InWindow(today)
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}
