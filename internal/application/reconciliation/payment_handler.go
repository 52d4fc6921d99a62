package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// paymentMethodBankTransfer is reported for payments received on the debtor account
const paymentMethodBankTransfer = "bank_transfer"

type paymentState struct {
	debtorAccountID string
	invoices        *reconciliation.PaginatedSearch[reconciliation.Invoice]
}

// PaymentHandler registers payments received in the accounting system on the
// matching order-management invoice. It runs against the usual direction:
// accounting is the source and order management the target.
type PaymentHandler struct {
	accounting reconciliation.AccountingGateway
	orders     reconciliation.OrderManagementGateway
	config     *ConfigurationService
	opts       handlerOptions

	state atomic.Pointer[paymentState]
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	accounting reconciliation.AccountingGateway,
	orders reconciliation.OrderManagementGateway,
	config *ConfigurationService,
	opts ...HandlerOption,
) *PaymentHandler {
	o := defaultHandlerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PaymentHandler{
		accounting: accounting,
		orders:     orders,
		config:     config,
		opts:       o,
	}
}

func (h *PaymentHandler) ObjectType() reconciliation.ObjectType {
	return reconciliation.ObjectTypePayment
}

func (h *PaymentHandler) SourceService() reconciliation.Service {
	return reconciliation.ServiceAccounting
}

func (h *PaymentHandler) TargetService() reconciliation.Service {
	return reconciliation.ServiceOrderManagement
}

// Prepare resolves the debtor ledger account and starts a fresh invoice search
func (h *PaymentHandler) Prepare(ctx context.Context) error {
	code, err := h.config.DebtorLedgerCode(ctx)
	if err != nil {
		return err
	}
	accounts, err := h.accounting.ListLedgerAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledger accounts: %w", err)
	}

	accountID := ""
	for _, a := range accounts {
		if a.Number == code {
			accountID = a.ID
			break
		}
	}
	if accountID == "" {
		return reconciliation.NewConfigurationError(reconciliation.SettingDebtorLedgerCode, reconciliation.ErrSettingInvalid,
			fmt.Sprintf("ledger account %d does not exist", code))
	}

	if err := selectOrganisation(ctx, h.config, h.orders); err != nil {
		return err
	}

	h.state.Store(&paymentState{
		debtorAccountID: accountID,
		invoices: reconciliation.NewPaginatedSearch(
			func(ctx context.Context, page int) ([]reconciliation.Invoice, error) {
				return h.orders.ListInvoices(ctx, 0, page)
			},
			func(inv reconciliation.Invoice) string { return inv.InvoiceNumber },
		),
	})
	return nil
}

// Fetch lists negative debtor mutations past the cursor, oldest first.
// The accounting API does not order them, so sorting happens here. Mutations
// sharing a timestamp are ordered by id, which the cursor carries as well.
func (h *PaymentHandler) Fetch(ctx context.Context, cursor string, limit *int) ([]reconciliation.RemoteObject, error) {
	state := h.state.Load()
	if state == nil {
		return nil, reconciliation.ErrSynchronizerNotPrepared
	}
	since, err := parsePaymentCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit != nil && *limit == 0 {
		return nil, nil
	}

	mutations, err := h.accounting.ListLedgerMutations(ctx, reconciliation.LedgerMutationFilter{
		LedgerAccountID: state.debtorAccountID,
		NegativeOnly:    true,
	}, since.modifiedOn)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger mutations: %w", err)
	}

	fresh := mutations[:0]
	for _, m := range mutations {
		if since.precedes(m) {
			fresh = append(fresh, m)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool { return mutationBefore(fresh[i], fresh[j]) })
	fresh = truncateObjects(fresh, limit)

	objects := make([]reconciliation.RemoteObject, len(fresh))
	for i := range fresh {
		objects[i] = &fresh[i]
	}
	return objects, nil
}

func (h *PaymentHandler) Get(ctx context.Context, id string) (reconciliation.RemoteObject, error) {
	m, err := h.accounting.GetLedgerMutation(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Decode is not supported: the accounting system does not deliver webhooks
func (h *PaymentHandler) Decode(payload []byte) (reconciliation.RemoteObject, error) {
	return nil, fmt.Errorf("%w: payments are not delivered by webhook", reconciliation.ErrOperationNotSupported)
}

// Create finds the invoice the payment refers to and registers the payment on it
func (h *PaymentHandler) Create(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	m, ok := obj.(*reconciliation.LedgerMutation)
	if !ok {
		return "", unexpectedObject("ledger mutation", obj)
	}
	state := h.state.Load()
	if state == nil {
		return "", reconciliation.ErrSynchronizerNotPrepared
	}

	number := strings.TrimSpace(m.InvoiceNumber)
	if number == "" {
		return "", reconciliation.NewTranslationError("invoice_number", reconciliation.ErrMissingField,
			"mutation "+m.ID+" does not reference an invoice")
	}

	invoice, found := state.invoices.Search(ctx, number)
	if !found {
		if err := state.invoices.Err(); err != nil {
			return "", fmt.Errorf("failed to search invoice %s: %w", number, err)
		}
		return "", reconciliation.NewTranslationError("invoice_number", reconciliation.ErrInvoiceNotFound, number)
	}

	date := m.Date
	if date.IsZero() {
		date = m.ModifiedOn
	}
	paymentID, err := h.orders.AddPayment(ctx, reconciliation.PaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    reconciliation.RoundCents(m.Amount.Abs()),
		Date:      date,
		Reference: m.ID,
		Method:    paymentMethodBankTransfer,
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(paymentID, 10), nil
}

func (h *PaymentHandler) Update(ctx context.Context, obj reconciliation.RemoteObject, targetID string) error {
	return fmt.Errorf("%w: payments cannot be updated", reconciliation.ErrOperationNotSupported)
}

func (h *PaymentHandler) Delete(ctx context.Context, targetID string) error {
	return fmt.Errorf("%w: payments cannot be deleted", reconciliation.ErrOperationNotSupported)
}

func (h *PaymentHandler) ObjectURL(objectID string) string {
	return h.opts.objectURL("mutations", objectID)
}

// NextCursor is "<modification time>|<mutation id>"
func (h *PaymentHandler) NextCursor(obj reconciliation.RemoteObject) string {
	if m, ok := obj.(*reconciliation.LedgerMutation); ok {
		return m.ModifiedOn.UTC().Format(time.RFC3339Nano) + paymentCursorSep + m.ID
	}
	return ""
}

const paymentCursorSep = "|"

// paymentCursor marks the last attempted mutation. An empty id (a cursor
// written as a bare timestamp) keeps every mutation at modifiedOn; the
// audit and mapping checks skip the ones already synchronized.
type paymentCursor struct {
	modifiedOn time.Time
	id         string
}

func (c paymentCursor) precedes(m reconciliation.LedgerMutation) bool {
	switch {
	case m.ModifiedOn.After(c.modifiedOn):
		return true
	case m.ModifiedOn.Equal(c.modifiedOn):
		return c.id == "" || m.ID > c.id
	}
	return false
}

func mutationBefore(a, b reconciliation.LedgerMutation) bool {
	if !a.ModifiedOn.Equal(b.ModifiedOn) {
		return a.ModifiedOn.Before(b.ModifiedOn)
	}
	return a.ID < b.ID
}

func parsePaymentCursor(cursor string) (paymentCursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return paymentCursor{}, nil
	}
	stamp, id, _ := strings.Cut(cursor, paymentCursorSep)
	since, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return paymentCursor{}, reconciliation.NewConfigurationError(reconciliation.CursorKey(reconciliation.ObjectTypePayment),
			reconciliation.ErrSettingInvalid, fmt.Sprintf("cursor %q is not a timestamp", cursor))
	}
	return paymentCursor{modifiedOn: since, id: strings.TrimSpace(id)}, nil
}

var _ Handler = (*PaymentHandler)(nil)
