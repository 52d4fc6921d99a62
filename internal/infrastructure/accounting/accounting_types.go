package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type createdDTO struct {
	ID string `json:"id"`
}

type ledgerAccountDTO struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Function string `json:"function"`
}

type taxRateDTO struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	ValidFrom  *time.Time      `json:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until"`
}

type addressDTO struct {
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
}

type relationDTO struct {
	ID           string      `json:"id,omitempty"`
	RelationCode int         `json:"relation_code,omitempty"`
	Name         string      `json:"name"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	VATNumber    string      `json:"vat_number,omitempty"`
	Address      *addressDTO `json:"address,omitempty"`
}

func (r relationDTO) toDomain() reconciliation.Relation {
	return reconciliation.Relation{
		ID:           r.ID,
		RelationCode: r.RelationCode,
		Name:         r.Name,
		Email:        r.Email,
	}
}

type saleEntryLineDTO struct {
	LedgerAccountID string `json:"ledger_account_id"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	TaxBracket      string `json:"tax_bracket"`
}

type taxLineDTO struct {
	Bracket string `json:"bracket"`
	Amount  string `json:"amount"`
}

type saleEntryDTO struct {
	InvoiceNumber   string             `json:"invoice_number"`
	RelationID      string             `json:"relation_id"`
	Date            string             `json:"date"`
	PaymentTermDays int                `json:"payment_term_days"`
	Description     string             `json:"description"`
	Lines           []saleEntryLineDTO `json:"lines"`
	TaxLines        []taxLineDTO       `json:"tax_lines"`
	NetTotal        string             `json:"net_total"`
	Total           string             `json:"total"`
}

// newSaleEntryDTO formats amounts with exactly two decimals
func newSaleEntryDTO(e reconciliation.SaleEntry) saleEntryDTO {
	dto := saleEntryDTO{
		InvoiceNumber:   e.InvoiceNumber,
		RelationID:      e.RelationID,
		Date:            e.Date.Format("2006-01-02"),
		PaymentTermDays: e.PaymentTermDays,
		Description:     e.Description,
		Lines:           make([]saleEntryLineDTO, len(e.Lines)),
		TaxLines:        make([]taxLineDTO, len(e.TaxLines)),
		NetTotal:        e.NetTotal.StringFixed(2),
		Total:           e.Total.StringFixed(2),
	}
	for i, l := range e.Lines {
		dto.Lines[i] = saleEntryLineDTO{
			LedgerAccountID: l.LedgerAccountID,
			Description:     l.Description,
			Amount:          l.Amount.StringFixed(2),
			TaxBracket:      l.TaxBracket,
		}
	}
	for i, tl := range e.TaxLines {
		dto.TaxLines[i] = taxLineDTO{Bracket: tl.Bracket, Amount: tl.Amount.StringFixed(2)}
	}
	return dto
}

type ledgerMutationDTO struct {
	ID              string          `json:"id"`
	LedgerAccountID string          `json:"ledger_account_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	ModifiedOn      time.Time       `json:"modified_on"`
}

func (m ledgerMutationDTO) toDomain() reconciliation.LedgerMutation {
	return reconciliation.LedgerMutation(m)
}
