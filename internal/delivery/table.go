package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// ErrNoBracket is returned when an amount falls outside every configured bracket.
// A validated table covers every non-negative amount, so only negative amounts hit it.
var ErrNoBracket = errors.New("no delivery bracket matches amount")

// cent is the amount resolution. Consecutive brackets must touch at this step.
var cent = decimal.New(1, -2)

// RateTier charges Fee for amounts in [MinAmount, MaxAmount]. A nil MaxAmount
// leaves the bracket open-ended.
type RateTier struct {
	MinAmount decimal.Decimal  `json:"minAmount"`
	MaxAmount *decimal.Decimal `json:"maxAmount,omitempty"`
	Fee       decimal.Decimal  `json:"fee"`
}

// Table is a validated, ordered set of delivery brackets.
type Table struct {
	tiers []RateTier
}

// DefaultTiers are served whenever the stored brackets are missing or invalid.
func DefaultTiers() []RateTier {
	under50 := money.MustParse("49.99")
	under100 := money.MustParse("99.99")
	return []RateTier{
		{MinAmount: decimal.Zero, MaxAmount: &under50, Fee: money.MustParse("5.00")},
		{MinAmount: money.MustParse("50.00"), MaxAmount: &under100, Fee: money.MustParse("3.00")},
		{MinAmount: money.MustParse("100.00"), Fee: decimal.Zero},
	}
}

// DefaultTable wraps DefaultTiers.
func DefaultTable() *Table {
	table, err := NewTable(DefaultTiers())
	if err != nil {
		panic(err)
	}
	return table
}

// NewTable sorts tiers by MinAmount and checks that they cover [0, ∞) exactly
// once: the first bracket starts at 0, each next one starts one cent after the
// previous maximum and only the last is open-ended. Negative amounts and
// inverted bounds are rejected too. Every problem is reported in a single
// CONFIGURATION_ERROR.
func NewTable(tiers []RateTier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "delivery rates: no brackets configured")
	}

	sorted := make([]RateTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAmount.LessThan(sorted[j].MinAmount)
	})

	var errs error
	for i, tier := range sorted {
		if tier.MinAmount.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("bracket %d: negative minimum %s", i, money.Format(tier.MinAmount)))
		}
		if tier.Fee.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("bracket %d: negative fee %s", i, money.Format(tier.Fee)))
		}
		if tier.MaxAmount != nil && tier.MaxAmount.LessThan(tier.MinAmount) {
			errs = multierr.Append(errs, fmt.Errorf("bracket %d: maximum %s below minimum %s", i, money.Format(*tier.MaxAmount), money.Format(tier.MinAmount)))
		}
		if i == 0 {
			if !tier.MinAmount.IsZero() {
				errs = multierr.Append(errs, fmt.Errorf("bracket 0: starts at %s, amounts below it have no fee", money.Format(tier.MinAmount)))
			}
			continue
		}
		prev := sorted[i-1]
		if prev.MaxAmount == nil {
			errs = multierr.Append(errs, fmt.Errorf("bracket %d: open-ended bracket from %s is not last", i-1, money.Format(prev.MinAmount)))
			continue
		}
		next := prev.MaxAmount.Add(cent)
		switch {
		case !tier.MinAmount.GreaterThan(*prev.MaxAmount):
			errs = multierr.Append(errs, fmt.Errorf("bracket %d: starts at %s inside bracket ending %s", i, money.Format(tier.MinAmount), money.Format(*prev.MaxAmount)))
		case !tier.MinAmount.Equal(next):
			errs = multierr.Append(errs, fmt.Errorf("bracket %d: gap from %s to %s", i, money.Format(next), money.Format(tier.MinAmount)))
		}
	}
	if last := sorted[len(sorted)-1]; last.MaxAmount != nil {
		errs = multierr.Append(errs, fmt.Errorf("bracket %d: last bracket ends at %s, larger amounts have no fee", len(sorted)-1, money.Format(*last.MaxAmount)))
	}
	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, errs, "delivery rates: invalid brackets").
			WithDetails(problems(errs))
	}
	return &Table{tiers: sorted}, nil
}

// ParseTiers decodes a JSON list of brackets and validates them.
func ParseTiers(data []byte) (*Table, error) {
	var tiers []RateTier
	if err := json.Unmarshal(data, &tiers); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "delivery rates: malformed brackets")
	}
	return NewTable(tiers)
}

// Tiers returns a copy of the ordered brackets.
func (t *Table) Tiers() []RateTier {
	out := make([]RateTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// FeeFor returns the fee of the bracket containing amount.
func (t *Table) FeeFor(amount decimal.Decimal) (decimal.Decimal, error) {
	for _, tier := range t.tiers {
		if amount.LessThan(tier.MinAmount) {
			break
		}
		if tier.MaxAmount == nil || !amount.GreaterThan(*tier.MaxAmount) {
			return tier.Fee, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrNoBracket, money.Format(amount))
}

func problems(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
