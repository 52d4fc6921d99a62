package reconciliation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrTime(t time.Time) *time.Time { return &t }

func testAccounts() []LedgerAccount {
	return []LedgerAccount{
		{ID: "acc-8000", Number: 8000, Name: "Revenue high"},
		{ID: "acc-8010", Number: 8010, Name: "Revenue low"},
		{ID: "acc-8020", Number: 8020, Name: "Revenue zero"},
	}
}

func TestTaxRate_ValidAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rate     TaxRate
		expected bool
	}{
		{"open bounds", TaxRate{}, true},
		{"started before", TaxRate{ValidFrom: ptrTime(now.Add(-time.Hour))}, true},
		{"starts exactly now", TaxRate{ValidFrom: ptrTime(now)}, false},
		{"ends exactly now", TaxRate{ValidUntil: ptrTime(now)}, true},
		{"ended before", TaxRate{ValidUntil: ptrTime(now.Add(-time.Second))}, false},
		{"future", TaxRate{ValidFrom: ptrTime(now.Add(24 * time.Hour))}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.rate.ValidAt(now))
		})
	}
}

func TestTaxTranslator_Resolve(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rates := []TaxRate{
		{Name: "High", Percentage: decimal.NewFromInt(21)},
		{Name: "Low", Percentage: decimal.NewFromInt(9)},
		{Name: "Low_old", Percentage: decimal.NewFromInt(6), ValidUntil: ptrTime(now.AddDate(-5, 0, 0))},
		{Name: "Zero", Percentage: decimal.Zero},
		{Name: "Exempt", Percentage: decimal.Zero},
		{Name: "Special", Percentage: decimal.NewFromInt(12)},
	}
	codes := LedgerCodes{"high": 8000, "low": 8010, "zero": 8020}

	translator, err := NewTaxTranslator(rates, testAccounts(), codes, now)
	require.NoError(t, err)

	t.Run("unique match", func(t *testing.T) {
		b, err := translator.Resolve(decimal.RequireFromString("21.00"))
		require.NoError(t, err)
		assert.Equal(t, "high", b.Name)
		assert.Equal(t, "acc-8000", b.LedgerAccountID)
	})

	t.Run("expired bracket is ignored", func(t *testing.T) {
		_, err := translator.Resolve(decimal.NewFromInt(6))
		assert.ErrorIs(t, err, ErrTaxBracketNotFound)
		var te *TranslationError
		assert.True(t, errors.As(err, &te))
	})

	t.Run("ambiguous match", func(t *testing.T) {
		_, err := translator.Resolve(decimal.Zero)
		assert.ErrorIs(t, err, ErrTaxBracketAmbiguous)
	})

	t.Run("bracket without ledger code", func(t *testing.T) {
		_, err := translator.Resolve(decimal.NewFromInt(12))
		assert.ErrorIs(t, err, ErrLedgerAccountNotFound)
	})
}

func TestNewTaxTranslator_UnknownLedgerCode(t *testing.T) {
	_, err := NewTaxTranslator(nil, testAccounts(), LedgerCodes{"high": 9999}, time.Now())

	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, LedgerCodeKey("high"), ce.Setting)
	assert.ErrorIs(t, err, ErrSettingInvalid)
}

func TestGroupTaxLines(t *testing.T) {
	t.Run("rounds after summation", func(t *testing.T) {
		lines := GroupTaxLines([]TaxAmount{
			{Bracket: "high", Amount: decimal.RequireFromString("100.004")},
			{Bracket: "high", Amount: decimal.RequireFromString("50.004")},
		})
		require.Len(t, lines, 1)
		assert.Equal(t, "150.01", lines[0].Amount.StringFixed(2))
	})

	t.Run("keeps first-seen bracket order", func(t *testing.T) {
		lines := GroupTaxLines([]TaxAmount{
			{Bracket: "low", Amount: decimal.RequireFromString("0.9")},
			{Bracket: "high", Amount: decimal.RequireFromString("2.1")},
			{Bracket: "low", Amount: decimal.RequireFromString("0.9")},
		})
		require.Len(t, lines, 2)
		assert.Equal(t, "low", lines[0].Bracket)
		assert.True(t, lines[0].Amount.Equal(decimal.RequireFromString("1.8")))
		assert.Equal(t, "high", lines[1].Bracket)
	})

	t.Run("negative amounts round away from zero", func(t *testing.T) {
		lines := GroupTaxLines([]TaxAmount{
			{Bracket: "high", Amount: decimal.RequireFromString("-0.005")},
		})
		assert.Equal(t, "-0.01", lines[0].Amount.StringFixed(2))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, GroupTaxLines(nil))
	})
}
