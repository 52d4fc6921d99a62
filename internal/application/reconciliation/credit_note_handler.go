package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// CreditNoteHandler books order-management credit notes as negative sale entries
type CreditNoteHandler struct {
	orders     reconciliation.OrderManagementGateway
	accounting reconciliation.AccountingGateway
	ledger     *salesLedger
	opts       handlerOptions
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(
	orders reconciliation.OrderManagementGateway,
	accounting reconciliation.AccountingGateway,
	config *ConfigurationService,
	opts ...HandlerOption,
) *CreditNoteHandler {
	o := defaultHandlerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CreditNoteHandler{
		orders:     orders,
		accounting: accounting,
		ledger:     newSalesLedger(orders, accounting, config, o),
		opts:       o,
	}
}

func (h *CreditNoteHandler) ObjectType() reconciliation.ObjectType {
	return reconciliation.ObjectTypeCreditNote
}

func (h *CreditNoteHandler) SourceService() reconciliation.Service {
	return reconciliation.ServiceOrderManagement
}

func (h *CreditNoteHandler) TargetService() reconciliation.Service {
	return reconciliation.ServiceAccounting
}

func (h *CreditNoteHandler) Prepare(ctx context.Context) error {
	return h.ledger.prepare(ctx)
}

func (h *CreditNoteHandler) Fetch(ctx context.Context, cursor string, limit *int) ([]reconciliation.RemoteObject, error) {
	sinceID, err := parseSinceID(h.ObjectType(), cursor)
	if err != nil {
		return nil, err
	}

	search := reconciliation.NewPaginatedSearch(
		func(ctx context.Context, page int) ([]reconciliation.CreditNote, error) {
			return h.orders.ListCreditNotes(ctx, sinceID, page)
		},
		func(cn reconciliation.CreditNote) string { return cn.CreditNoteNumber },
	)
	notes := search.Take(ctx, limitOf(limit))
	if err := search.Err(); err != nil && len(notes) == 0 {
		return nil, fmt.Errorf("failed to list credit notes: %w", err)
	}

	sort.SliceStable(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	objects := make([]reconciliation.RemoteObject, len(notes))
	for i := range notes {
		objects[i] = &notes[i]
	}
	return objects, nil
}

func (h *CreditNoteHandler) Get(ctx context.Context, id string) (reconciliation.RemoteObject, error) {
	noteID, err := parseObjectID("id", id)
	if err != nil {
		return nil, err
	}
	cn, err := h.orders.GetCreditNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return cn, nil
}

func (h *CreditNoteHandler) Decode(payload []byte) (reconciliation.RemoteObject, error) {
	return h.orders.Decode(reconciliation.ObjectTypeCreditNote, payload)
}

// translate negates the credit note and books it like an invoice
func (h *CreditNoteHandler) translate(ctx context.Context, obj reconciliation.RemoteObject) (reconciliation.SaleEntry, error) {
	cn, ok := obj.(*reconciliation.CreditNote)
	if !ok {
		return reconciliation.SaleEntry{}, unexpectedObject("credit note", obj)
	}
	inv := cn.Negated().AsInvoice()
	return h.ledger.translate(ctx, inv, "Credit note "+cn.CreditNoteNumber)
}

func (h *CreditNoteHandler) Create(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	entry, err := h.translate(ctx, obj)
	if err != nil {
		return "", err
	}
	return h.accounting.CreateSaleEntry(ctx, entry)
}

func (h *CreditNoteHandler) Update(ctx context.Context, obj reconciliation.RemoteObject, targetID string) error {
	entry, err := h.translate(ctx, obj)
	if err != nil {
		return err
	}
	return h.accounting.UpdateSaleEntry(ctx, targetID, entry)
}

func (h *CreditNoteHandler) Delete(ctx context.Context, targetID string) error {
	return h.accounting.DeleteSaleEntry(ctx, targetID)
}

func (h *CreditNoteHandler) ObjectURL(objectID string) string {
	return h.opts.objectURL("credit-notes", objectID)
}

func (h *CreditNoteHandler) NextCursor(obj reconciliation.RemoteObject) string {
	return obj.SourceID()
}

var _ Handler = (*CreditNoteHandler)(nil)
