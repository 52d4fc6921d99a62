package ordermgmt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// listResponse is the envelope of every listing endpoint
type listResponse[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		Page    int `json:"page"`
		PerPage int `json:"per_page"`
		Total   int `json:"total"`
	} `json:"meta"`
}

type quantityDTO struct {
	Size     string `json:"size"`
	Quantity int64  `json:"quantity"`
}

type lineItemDTO struct {
	ProductName   string          `json:"product_name"`
	SKU           string          `json:"sku"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitTax       decimal.Decimal `json:"unit_tax"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	TaxLevel      decimal.Decimal `json:"tax_level"`
	Quantities    []quantityDTO   `json:"quantities"`
}

func (l lineItemDTO) toDomain() reconciliation.LineItem {
	item := reconciliation.LineItem{
		ProductName:   l.ProductName,
		SKU:           l.SKU,
		UnitPrice:     l.UnitPrice,
		UnitTax:       l.UnitTax,
		OriginalPrice: l.OriginalPrice,
		TaxLevel:      l.TaxLevel,
		Quantities:    make([]reconciliation.LineQuantity, len(l.Quantities)),
	}
	for i, q := range l.Quantities {
		item.Quantities[i] = reconciliation.LineQuantity{Size: q.Size, Quantity: q.Quantity}
	}
	return item
}

func lineItems(dtos []lineItemDTO) []reconciliation.LineItem {
	items := make([]reconciliation.LineItem, len(dtos))
	for i, l := range dtos {
		items[i] = l.toDomain()
	}
	return items
}

type invoiceDTO struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    int64           `json:"customer_id"`
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Currency      string          `json:"currency"`
	IssuedAt      time.Time       `json:"issued_at"`
	DueDate       string          `json:"due_date"`
	ItemsTotal    decimal.Decimal `json:"items_total"`
	ItemsTax      decimal.Decimal `json:"items_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	LineItems     []lineItemDTO   `json:"line_items"`
}

func (d invoiceDTO) toDomain() reconciliation.Invoice {
	return reconciliation.Invoice{
		ID:            d.ID,
		InvoiceNumber: d.InvoiceNumber,
		CustomerID:    d.CustomerID,
		OrderID:       d.OrderID,
		OrderNumber:   d.OrderNumber,
		Currency:      d.Currency,
		IssuedAt:      d.IssuedAt,
		DueDate:       d.DueDate,
		ItemsTotal:    d.ItemsTotal,
		ItemsTax:      d.ItemsTax,
		GrandTotal:    d.GrandTotal,
		LineItems:     lineItems(d.LineItems),
	}
}

type creditNoteDTO struct {
	ID               int64           `json:"id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	InvoiceID        int64           `json:"invoice_id"`
	CustomerID       int64           `json:"customer_id"`
	Currency         string          `json:"currency"`
	IssuedAt         time.Time       `json:"issued_at"`
	DueDate          string          `json:"due_date"`
	ItemsTotal       decimal.Decimal `json:"items_total"`
	ItemsTax         decimal.Decimal `json:"items_tax"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	FreeformAmount   decimal.Decimal `json:"freeform_amount"`
	FreeformTax      decimal.Decimal `json:"freeform_tax"`
	LineItems        []lineItemDTO   `json:"line_items"`
}

func (d creditNoteDTO) toDomain() reconciliation.CreditNote {
	return reconciliation.CreditNote{
		ID:               d.ID,
		CreditNoteNumber: d.CreditNoteNumber,
		InvoiceID:        d.InvoiceID,
		CustomerID:       d.CustomerID,
		Currency:         d.Currency,
		IssuedAt:         d.IssuedAt,
		DueDate:          d.DueDate,
		ItemsTotal:       d.ItemsTotal,
		ItemsTax:         d.ItemsTax,
		GrandTotal:       d.GrandTotal,
		FreeformAmount:   d.FreeformAmount,
		FreeformTax:      d.FreeformTax,
		LineItems:        lineItems(d.LineItems),
	}
}

type addressDTO struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

func (a addressDTO) toDomain() reconciliation.Address {
	return reconciliation.Address(a)
}

type pickTicketDTO struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     int64           `json:"customer_id"`
	Status         string          `json:"status"`
	ContactName    string          `json:"contact_name"`
	CompanyName    string          `json:"company_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        addressDTO      `json:"shipping_address"`
	GrossWeight    decimal.Decimal `json:"gross_weight"`
	TrackingNumber string          `json:"tracking_number"`
	LineItems      []lineItemDTO   `json:"line_items"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (d pickTicketDTO) toDomain() reconciliation.PickTicket {
	return reconciliation.PickTicket{
		ID:             d.ID,
		OrderID:        d.OrderID,
		OrderNumber:    d.OrderNumber,
		CustomerID:     d.CustomerID,
		Status:         d.Status,
		ContactName:    d.ContactName,
		CompanyName:    d.CompanyName,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address.toDomain(),
		GrossWeight:    d.GrossWeight,
		TrackingNumber: d.TrackingNumber,
		LineItems:      lineItems(d.LineItems),
		UpdatedAt:      d.UpdatedAt,
	}
}

type customerDTO struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	VATNumber string     `json:"vat_number"`
	Address   addressDTO `json:"billing_address"`
}

type orderDTO struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	CustomerID  int64  `json:"customer_id"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type paymentDTO struct {
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Reference string `json:"reference"`
	Method    string `json:"method"`
}

type createdDTO struct {
	ID int64 `json:"id"`
}
