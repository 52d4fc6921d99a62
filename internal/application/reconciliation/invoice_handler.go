package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// InvoiceHandler books order-management invoices as accounting sale entries
type InvoiceHandler struct {
	orders     reconciliation.OrderManagementGateway
	accounting reconciliation.AccountingGateway
	ledger     *salesLedger
	opts       handlerOptions
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(
	orders reconciliation.OrderManagementGateway,
	accounting reconciliation.AccountingGateway,
	config *ConfigurationService,
	opts ...HandlerOption,
) *InvoiceHandler {
	o := defaultHandlerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &InvoiceHandler{
		orders:     orders,
		accounting: accounting,
		ledger:     newSalesLedger(orders, accounting, config, o),
		opts:       o,
	}
}

func (h *InvoiceHandler) ObjectType() reconciliation.ObjectType {
	return reconciliation.ObjectTypeInvoice
}

func (h *InvoiceHandler) SourceService() reconciliation.Service {
	return reconciliation.ServiceOrderManagement
}

func (h *InvoiceHandler) TargetService() reconciliation.Service {
	return reconciliation.ServiceAccounting
}

// Prepare loads tax brackets and ledger codes
func (h *InvoiceHandler) Prepare(ctx context.Context) error {
	return h.ledger.prepare(ctx)
}

// Fetch walks invoice pages after the cursor until limit objects are collected
func (h *InvoiceHandler) Fetch(ctx context.Context, cursor string, limit *int) ([]reconciliation.RemoteObject, error) {
	sinceID, err := parseSinceID(h.ObjectType(), cursor)
	if err != nil {
		return nil, err
	}

	search := reconciliation.NewPaginatedSearch(
		func(ctx context.Context, page int) ([]reconciliation.Invoice, error) {
			return h.orders.ListInvoices(ctx, sinceID, page)
		},
		func(inv reconciliation.Invoice) string { return inv.InvoiceNumber },
	)
	invoices := search.Take(ctx, limitOf(limit))
	if err := search.Err(); err != nil && len(invoices) == 0 {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	sort.SliceStable(invoices, func(i, j int) bool { return invoices[i].ID < invoices[j].ID })
	objects := make([]reconciliation.RemoteObject, len(invoices))
	for i := range invoices {
		objects[i] = &invoices[i]
	}
	return objects, nil
}

func (h *InvoiceHandler) Get(ctx context.Context, id string) (reconciliation.RemoteObject, error) {
	invoiceID, err := parseObjectID("id", id)
	if err != nil {
		return nil, err
	}
	inv, err := h.orders.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (h *InvoiceHandler) Decode(payload []byte) (reconciliation.RemoteObject, error) {
	return h.orders.Decode(reconciliation.ObjectTypeInvoice, payload)
}

func (h *InvoiceHandler) Create(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	inv, ok := obj.(*reconciliation.Invoice)
	if !ok {
		return "", unexpectedObject("invoice", obj)
	}
	entry, err := h.ledger.translate(ctx, inv, "Invoice "+inv.InvoiceNumber)
	if err != nil {
		return "", err
	}
	return h.accounting.CreateSaleEntry(ctx, entry)
}

func (h *InvoiceHandler) Update(ctx context.Context, obj reconciliation.RemoteObject, targetID string) error {
	inv, ok := obj.(*reconciliation.Invoice)
	if !ok {
		return unexpectedObject("invoice", obj)
	}
	entry, err := h.ledger.translate(ctx, inv, "Invoice "+inv.InvoiceNumber)
	if err != nil {
		return err
	}
	return h.accounting.UpdateSaleEntry(ctx, targetID, entry)
}

func (h *InvoiceHandler) Delete(ctx context.Context, targetID string) error {
	return h.accounting.DeleteSaleEntry(ctx, targetID)
}

func (h *InvoiceHandler) ObjectURL(objectID string) string {
	return h.opts.objectURL("invoices", objectID)
}

func (h *InvoiceHandler) NextCursor(obj reconciliation.RemoteObject) string {
	return obj.SourceID()
}

var _ Handler = (*InvoiceHandler)(nil)
