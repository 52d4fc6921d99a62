package reconciliation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// centPlaces is the precision of every amount submitted to a target system
const centPlaces = 2

// TaxBracket is a named tax rate valid now, bound to the ledger account that
// books revenue taxed at that rate.
type TaxBracket struct {
	Name            string
	Percentage      decimal.Decimal
	LedgerAccountID string
}

// LedgerCodes maps a lowercased tax bracket name to a ledger account number
type LedgerCodes map[string]int

// TaxTranslator resolves tax percentages to brackets and ledger accounts.
// It is built once per run during setup and is read-only afterwards.
type TaxTranslator struct {
	brackets []TaxBracket
}

// NewTaxTranslator builds the brackets valid at now. A configured ledger code
// that does not exist in the chart of accounts is a configuration error.
func NewTaxTranslator(rates []TaxRate, accounts []LedgerAccount, codes LedgerCodes, now time.Time) (*TaxTranslator, error) {
	byNumber := make(map[int]LedgerAccount, len(accounts))
	for _, a := range accounts {
		byNumber[a.Number] = a
	}

	accountFor := make(map[string]string, len(codes))
	for name, number := range codes {
		account, ok := byNumber[number]
		if !ok {
			return nil, NewConfigurationError(LedgerCodeKey(name), ErrSettingInvalid,
				fmt.Sprintf("ledger account %d does not exist", number))
		}
		accountFor[strings.ToLower(name)] = account.ID
	}

	brackets := make([]TaxBracket, 0, len(rates))
	for _, r := range rates {
		if !r.ValidAt(now) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(r.Name))
		brackets = append(brackets, TaxBracket{
			Name:            name,
			Percentage:      r.Percentage,
			LedgerAccountID: accountFor[name],
		})
	}
	sort.SliceStable(brackets, func(i, j int) bool {
		return brackets[i].Percentage.LessThan(brackets[j].Percentage)
	})

	return &TaxTranslator{brackets: brackets}, nil
}

// Brackets returns the brackets valid at construction time
func (t *TaxTranslator) Brackets() []TaxBracket {
	return append([]TaxBracket(nil), t.brackets...)
}

// Resolve returns the single bracket for a percentage. Zero or several
// matches, or a bracket without a ledger account, fail translation.
func (t *TaxTranslator) Resolve(percentage decimal.Decimal) (TaxBracket, error) {
	var matches []TaxBracket
	for _, b := range t.brackets {
		if b.Percentage.Equal(percentage) {
			matches = append(matches, b)
		}
	}

	switch len(matches) {
	case 0:
		return TaxBracket{}, NewTranslationError("tax_level", ErrTaxBracketNotFound, percentage.String()+"%")
	case 1:
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return TaxBracket{}, NewTranslationError("tax_level", ErrTaxBracketAmbiguous,
			fmt.Sprintf("%s%% matches %s", percentage.String(), strings.Join(names, ", ")))
	}

	b := matches[0]
	if b.LedgerAccountID == "" {
		return TaxBracket{}, NewTranslationError("tax_level", ErrLedgerAccountNotFound,
			fmt.Sprintf("no ledger code configured for bracket %q", b.Name))
	}
	return b, nil
}

// TaxAmount is the unrounded tax of one source line
type TaxAmount struct {
	Bracket string
	Amount  decimal.Decimal
}

// TaxLine is one grouped tax line of a sales entry
type TaxLine struct {
	Bracket string
	Amount  decimal.Decimal
}

// GroupTaxLines sums amounts per bracket in first-seen order and rounds each
// group to cents after summation.
func GroupTaxLines(amounts []TaxAmount) []TaxLine {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, a := range amounts {
		sum, seen := totals[a.Bracket]
		if !seen {
			order = append(order, a.Bracket)
		}
		totals[a.Bracket] = sum.Add(a.Amount)
	}

	lines := make([]TaxLine, 0, len(order))
	for _, name := range order {
		lines = append(lines, TaxLine{Bracket: name, Amount: RoundCents(totals[name])})
	}
	return lines
}

// RoundCents rounds half away from zero to two decimals
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centPlaces)
}
