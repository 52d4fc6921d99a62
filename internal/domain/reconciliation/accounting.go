package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerAccount is an account in the accounting system's chart of accounts
type LedgerAccount struct {
	ID       string
	Number   int
	Name     string
	Function string
}

// TaxRate is a tax rate published by the accounting system. A nil bound is open.
type TaxRate struct {
	Name       string
	Percentage decimal.Decimal
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

// ValidAt reports whether from < now <= until
func (r TaxRate) ValidAt(now time.Time) bool {
	if r.ValidFrom != nil && !r.ValidFrom.Before(now) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Relation is a counterparty record in the accounting system
type Relation struct {
	ID           string
	RelationCode int
	Name         string
	Email        string
}

// RelationFilter narrows relation listings
type RelationFilter struct {
	Name  string
	Email string
}

// NewRelation holds the data needed to create a relation
type NewRelation struct {
	Name      string
	Email     string
	Phone     string
	VATNumber string
	Address   Address
}

// SaleEntryLine is one revenue line of a sales ledger entry
type SaleEntryLine struct {
	LedgerAccountID string
	Description     string
	Amount          decimal.Decimal
	TaxBracket      string
}

// SaleEntry is the accounting-system representation of an invoice or credit note
type SaleEntry struct {
	InvoiceNumber   string
	RelationID      string
	Date            time.Time
	PaymentTermDays int
	Description     string
	Lines           []SaleEntryLine
	TaxLines        []TaxLine
	// NetTotal excludes tax; Total includes it
	NetTotal decimal.Decimal
	Total    decimal.Decimal
}

// LedgerMutationFilter narrows ledger mutation listings
type LedgerMutationFilter struct {
	LedgerAccountID string
	NegativeOnly    bool
}

// LedgerMutation is a booking on a ledger account. Payments received on the
// debtor account appear as negative mutations referencing an invoice number.
type LedgerMutation struct {
	ID              string
	LedgerAccountID string
	InvoiceNumber   string
	Description     string
	Amount          decimal.Decimal
	Date            time.Time
	ModifiedOn      time.Time
}

// SourceID implements RemoteObject
func (m *LedgerMutation) SourceID() string {
	return m.ID
}

// AccountingGateway is the typed client of the accounting back-end
type AccountingGateway interface {
	ListLedgerAccounts(ctx context.Context) ([]LedgerAccount, error)
	ListTaxRates(ctx context.Context) ([]TaxRate, error)
	ListRelations(ctx context.Context, filter RelationFilter) ([]Relation, error)
	CreateRelation(ctx context.Context, relation NewRelation) (*Relation, error)

	// CreateSaleEntry books a sales ledger entry and returns its id
	CreateSaleEntry(ctx context.Context, entry SaleEntry) (string, error)
	UpdateSaleEntry(ctx context.Context, id string, entry SaleEntry) error
	DeleteSaleEntry(ctx context.Context, id string) error

	// ListLedgerMutations returns mutations matching the filter modified since the given time
	ListLedgerMutations(ctx context.Context, filter LedgerMutationFilter, since time.Time) ([]LedgerMutation, error)
	GetLedgerMutation(ctx context.Context, id string) (*LedgerMutation, error)
}
