package reconciliation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Line items
// ---------------------------------------------------------------------------

// LineQuantity is one size/variant quantity of a line item
type LineQuantity struct {
	Size     string
	Quantity int64
}

// LineItem is a product line on an invoice, credit note or pick-ticket
type LineItem struct {
	ProductName   string
	SKU           string
	UnitPrice     decimal.Decimal
	UnitTax       decimal.Decimal
	OriginalPrice decimal.Decimal
	// TaxLevel is the tax percentage applied to the line, e.g. 21
	TaxLevel   decimal.Decimal
	Quantities []LineQuantity
}

// TotalQuantity sums every line quantity sub-entry
func (l LineItem) TotalQuantity() int64 {
	var total int64
	for _, q := range l.Quantities {
		total += q.Quantity
	}
	return total
}

// Amount returns price × summed quantity, unrounded
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.TotalQuantity()))
}

// TaxAmount returns unit tax × summed quantity, unrounded
func (l LineItem) TaxAmount() decimal.Decimal {
	return l.UnitTax.Mul(decimal.NewFromInt(l.TotalQuantity()))
}

// Negated returns a copy with every monetary field multiplied by -1
func (l LineItem) Negated() LineItem {
	n := l
	n.UnitPrice = l.UnitPrice.Neg()
	n.UnitTax = l.UnitTax.Neg()
	n.OriginalPrice = l.OriginalPrice.Neg()
	n.Quantities = append([]LineQuantity(nil), l.Quantities...)
	return n
}

// ---------------------------------------------------------------------------
// Invoice
// ---------------------------------------------------------------------------

// Invoice is a sales invoice in the order-management system
type Invoice struct {
	ID            int64
	InvoiceNumber string
	CustomerID    int64
	OrderID       int64
	OrderNumber   string
	Currency      string
	IssuedAt      time.Time
	// DueDate is kept as received; it is parsed during translation
	DueDate    string
	ItemsTotal decimal.Decimal
	ItemsTax   decimal.Decimal
	GrandTotal decimal.Decimal
	LineItems  []LineItem
}

// SourceID implements RemoteObject
func (i *Invoice) SourceID() string {
	return strconv.FormatInt(i.ID, 10)
}

// ---------------------------------------------------------------------------
// CreditNote
// ---------------------------------------------------------------------------

// freeformLineName labels the synthetic line injected for freeform amounts
const freeformLineName = "Freeform amount"

// CreditNote is a credit note in the order-management system. Amounts are
// positive at the source; the accounting system expects them negated.
type CreditNote struct {
	ID               int64
	CreditNoteNumber string
	InvoiceID        int64
	CustomerID       int64
	Currency         string
	IssuedAt         time.Time
	DueDate          string
	ItemsTotal       decimal.Decimal
	ItemsTax         decimal.Decimal
	GrandTotal       decimal.Decimal
	FreeformAmount   decimal.Decimal
	FreeformTax      decimal.Decimal
	LineItems        []LineItem
}

// SourceID implements RemoteObject
func (c *CreditNote) SourceID() string {
	return strconv.FormatInt(c.ID, 10)
}

// Negated returns a copy with every monetary field multiplied by -1.
// Negating twice yields the original amounts.
func (c *CreditNote) Negated() *CreditNote {
	n := *c
	n.ItemsTotal = c.ItemsTotal.Neg()
	n.ItemsTax = c.ItemsTax.Neg()
	n.GrandTotal = c.GrandTotal.Neg()
	n.FreeformAmount = c.FreeformAmount.Neg()
	n.FreeformTax = c.FreeformTax.Neg()
	n.LineItems = make([]LineItem, len(c.LineItems))
	for i, li := range c.LineItems {
		n.LineItems[i] = li.Negated()
	}
	return &n
}

// HasFreeform reports whether the credit note carries a freeform amount or tax
func (c *CreditNote) HasFreeform() bool {
	return !c.FreeformAmount.IsZero() || !c.FreeformTax.IsZero()
}

// FreeformTaxPercentage computes freeform_tax / (freeform_amount / 100)
func (c *CreditNote) FreeformTaxPercentage() decimal.Decimal {
	if c.FreeformAmount.IsZero() {
		return decimal.Zero
	}
	return c.FreeformTax.Div(c.FreeformAmount.Div(decimal.NewFromInt(100))).Round(2)
}

// AsInvoice converts the credit note into an invoice for translation,
// injecting a synthetic line for a non-zero freeform amount or tax.
func (c *CreditNote) AsInvoice() *Invoice {
	lines := append([]LineItem(nil), c.LineItems...)
	if c.HasFreeform() {
		lines = append(lines, LineItem{
			ProductName:   freeformLineName,
			UnitPrice:     c.FreeformAmount,
			UnitTax:       c.FreeformTax,
			OriginalPrice: c.FreeformAmount,
			TaxLevel:      c.FreeformTaxPercentage(),
			Quantities:    []LineQuantity{{Quantity: 1}},
		})
	}
	return &Invoice{
		ID:            c.ID,
		InvoiceNumber: c.CreditNoteNumber,
		CustomerID:    c.CustomerID,
		Currency:      c.Currency,
		IssuedAt:      c.IssuedAt,
		DueDate:       c.DueDate,
		ItemsTotal:    c.ItemsTotal,
		ItemsTax:      c.ItemsTax,
		GrandTotal:    c.GrandTotal,
		LineItems:     lines,
	}
}

// ---------------------------------------------------------------------------
// PickTicket
// ---------------------------------------------------------------------------

// Pick-ticket statuses that may be handed to the carrier
const (
	PickTicketStatusReadyToShip = "ready_to_ship"
	PickTicketStatusShipped     = "shipped"
)

// Address is a postal address
type Address struct {
	Line1    string
	Line2    string
	City     string
	Postcode string
	State    string
	Country  string
}

// PickTicket is a fulfilment record in the order-management system
type PickTicket struct {
	ID             int64
	OrderID        int64
	OrderNumber    string
	CustomerID     int64
	Status         string
	ContactName    string
	CompanyName    string
	Email          string
	Phone          string
	Address        Address
	GrossWeight    decimal.Decimal
	TrackingNumber string
	LineItems      []LineItem
	UpdatedAt      time.Time
}

// SourceID implements RemoteObject
func (p *PickTicket) SourceID() string {
	return strconv.FormatInt(p.ID, 10)
}

// Shippable reports whether the status allows handing the parcel to the carrier
func (p *PickTicket) Shippable() bool {
	switch strings.ToLower(p.Status) {
	case PickTicketStatusReadyToShip, PickTicketStatusShipped:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Customer / Order / Payment
// ---------------------------------------------------------------------------

// Customer is a customer record in the order-management system
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	VATNumber string
	Address   Address
}

// Order is a sales order in the order-management system
type Order struct {
	ID          int64
	OrderNumber string
	CustomerID  int64
	Email       string
	Phone       string
}

// PaymentRequest registers a received payment against an invoice
type PaymentRequest struct {
	InvoiceID int64
	Amount    decimal.Decimal
	Date      time.Time
	Reference string
	Method    string
}

// ---------------------------------------------------------------------------
// Gateway port
// ---------------------------------------------------------------------------

// OrderManagementGateway is the typed client of the order-management system
type OrderManagementGateway interface {
	// ListInvoices returns one page of invoices with an id greater than sinceID
	ListInvoices(ctx context.Context, sinceID int64, page int) ([]Invoice, error)
	// ListCreditNotes returns one page of credit notes with an id greater than sinceID
	ListCreditNotes(ctx context.Context, sinceID int64, page int) ([]CreditNote, error)
	// ListPickTickets returns pick-tickets with an id greater than sinceID
	ListPickTickets(ctx context.Context, sinceID int64) ([]PickTicket, error)

	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetCreditNote(ctx context.Context, id int64) (*CreditNote, error)
	GetPickTicket(ctx context.Context, id int64) (*PickTicket, error)
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	GetOrder(ctx context.Context, orderNumber string) (*Order, error)

	// AddPayment registers a payment and returns its id
	AddPayment(ctx context.Context, payment PaymentRequest) (int64, error)
	SetActiveOrganisation(ctx context.Context, organisationID int64) error

	// Decode converts a webhook payload of the given type into a typed record
	Decode(t ObjectType, payload []byte) (RemoteObject, error)
}
