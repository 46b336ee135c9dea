package delivery

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

func amountPtr(raw string) *decimal.Decimal {
	d := money.MustParse(raw)
	return &d
}

func TestDefaultTableBoundaries(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	tests := []struct {
		amount string
		fee    string
	}{
		{amount: "0", fee: "5.00"},
		{amount: "49.99", fee: "5.00"},
		{amount: "50.00", fee: "3.00"},
		{amount: "99.99", fee: "3.00"},
		{amount: "100.00", fee: "0.00"},
		{amount: "1250.40", fee: "0.00"},
	}
	for _, tt := range tests {
		fee, err := table.FeeFor(money.MustParse(tt.amount))
		require.NoError(t, err, tt.amount)
		assert.Equal(t, tt.fee, money.Format(fee), tt.amount)
	}
}

func TestDefaultTableMatchesExactlyOneBracket(t *testing.T) {
	t.Parallel()

	tiers := DefaultTable().Tiers()
	for _, raw := range []string{"50.00", "99.99"} {
		amount := money.MustParse(raw)
		matches := 0
		for _, tier := range tiers {
			if amount.LessThan(tier.MinAmount) {
				continue
			}
			if tier.MaxAmount == nil || !amount.GreaterThan(*tier.MaxAmount) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, raw)
	}
}

func TestFeeForRejectsNegativeAmounts(t *testing.T) {
	t.Parallel()

	_, err := DefaultTable().FeeFor(money.MustParse("-0.01"))
	require.ErrorIs(t, err, ErrNoBracket)
}

func TestNewTableRequiresFullCoverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tiers   []RateTier
		problem string
	}{
		{
			name: "gap between brackets",
			tiers: []RateTier{
				{MinAmount: money.MustParse("0"), MaxAmount: amountPtr("40"), Fee: money.MustParse("5")},
				{MinAmount: money.MustParse("50"), Fee: money.MustParse("0")},
			},
			problem: "gap from 40.01 to 50.00",
		},
		{
			name:    "first bracket above zero",
			tiers:   []RateTier{{MinAmount: money.MustParse("10"), Fee: money.MustParse("2")}},
			problem: "starts at 10.00",
		},
		{
			name: "closed last bracket",
			tiers: []RateTier{
				{MinAmount: money.MustParse("0"), MaxAmount: amountPtr("20"), Fee: money.MustParse("2")},
			},
			problem: "last bracket ends at 20.00",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTable(tt.tiers)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeConfiguration, typed.Code())
			details, ok := typed.Details().([]string)
			require.True(t, ok)
			require.Len(t, details, 1)
			assert.Contains(t, details[0], tt.problem)
		})
	}
}

func TestNewTableAcceptsContiguousBrackets(t *testing.T) {
	t.Parallel()

	table, err := NewTable([]RateTier{
		{MinAmount: money.MustParse("0"), MaxAmount: amountPtr("29.99"), Fee: money.MustParse("4.50")},
		{MinAmount: money.MustParse("30"), Fee: money.MustParse("0")},
	})
	require.NoError(t, err)

	for amount, want := range map[string]string{"0": "4.50", "29.99": "4.50", "30.00": "0.00"} {
		fee, err := table.FeeFor(money.MustParse(amount))
		require.NoError(t, err, amount)
		assert.Equal(t, want, money.Format(fee), amount)
	}
}

func TestNewTableSortsInput(t *testing.T) {
	t.Parallel()

	reversed := DefaultTiers()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	table, err := NewTable(reversed)
	require.NoError(t, err)

	fee, err := table.FeeFor(money.MustParse("10"))
	require.NoError(t, err)
	assert.Equal(t, "5.00", money.Format(fee))
}

func TestNewTableReportsEveryProblem(t *testing.T) {
	t.Parallel()

	_, err := NewTable([]RateTier{
		{MinAmount: money.MustParse("0"), MaxAmount: amountPtr("60"), Fee: money.MustParse("5")},
		{MinAmount: money.MustParse("50"), Fee: money.MustParse("3")},
		{MinAmount: money.MustParse("80"), MaxAmount: amountPtr("70"), Fee: money.MustParse("-1")},
	})
	require.Error(t, err)
	// overlap, open-ended not last, inverted bounds, negative fee, closed last bracket

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConfiguration, typed.Code())
	details, ok := typed.Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 5)

	_, err = NewTable([]RateTier{
		{MinAmount: money.MustParse("5"), MaxAmount: amountPtr("40"), Fee: money.MustParse("5")},
		{MinAmount: money.MustParse("50"), Fee: money.MustParse("0")},
	})
	require.Error(t, err)
	details, ok = pkgerrors.As(err).Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 2, "first bracket above zero and gap")

	_, err = NewTable(nil)
	require.Error(t, err)
}

func TestParseTiers(t *testing.T) {
	t.Parallel()

	table, err := ParseTiers([]byte(`[
		{"minAmount":"0","maxAmount":"29.99","fee":"4.50"},
		{"minAmount":30,"fee":0}
	]`))
	require.NoError(t, err)
	fee, err := table.FeeFor(money.MustParse("29.99"))
	require.NoError(t, err)
	assert.Equal(t, "4.50", money.Format(fee))

	_, err = ParseTiers([]byte(`{"minAmount":0}`))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.As(err).Code())
}
