// Package ordermgmt implements the order-management gateway over its REST API.
package ordermgmt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/httpclient"
)

const (
	apiKeyHeader       = "X-Api-Key"
	organisationHeader = "X-Organisation-Id"
)

// ErrEmptyPayload indicates a webhook delivery without a body
var ErrEmptyPayload = errors.New("ordermgmt: empty payload")

// Adapter implements reconciliation.OrderManagementGateway
type Adapter struct {
	config *Config
	client *resty.Client
	logger *zap.Logger

	mu           sync.RWMutex
	organisation string
}

// NewAdapter creates a new order-management adapter with the given configuration
func NewAdapter(config *Config, logger *zap.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := httpclient.New(*config.clientConfig(), logger)
	if err != nil {
		return nil, err
	}
	client.SetHeader(apiKeyHeader, config.APIKey)

	return &Adapter{
		config: config,
		client: client,
		logger: logger.Named("ordermgmt"),
	}, nil
}

// request starts a request carrying the active organisation, if any
func (a *Adapter) request(ctx context.Context) *resty.Request {
	req := a.client.R().SetContext(ctx)
	a.mu.RLock()
	if a.organisation != "" {
		req.SetHeader(organisationHeader, a.organisation)
	}
	a.mu.RUnlock()
	return req
}

func (a *Adapter) check(resp *resty.Response, err error) error {
	return httpclient.CheckResponse(reconciliation.ServiceOrderManagement, resp, err)
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func (a *Adapter) pageParams(sinceID int64, page int) map[string]string {
	if page < 1 {
		page = 1
	}
	return map[string]string{
		"since_id": strconv.FormatInt(sinceID, 10),
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(a.config.PageSize),
	}
}

// ListInvoices returns one page of invoices with an id greater than sinceID
func (a *Adapter) ListInvoices(ctx context.Context, sinceID int64, page int) ([]reconciliation.Invoice, error) {
	var body listResponse[invoiceDTO]
	resp, err := a.request(ctx).
		SetQueryParams(a.pageParams(sinceID, page)).
		SetResult(&body).
		Get("/invoices")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]reconciliation.Invoice, len(body.Data))
	for i, d := range body.Data {
		invoices[i] = d.toDomain()
	}
	return invoices, nil
}

// ListCreditNotes returns one page of credit notes with an id greater than sinceID
func (a *Adapter) ListCreditNotes(ctx context.Context, sinceID int64, page int) ([]reconciliation.CreditNote, error) {
	var body listResponse[creditNoteDTO]
	resp, err := a.request(ctx).
		SetQueryParams(a.pageParams(sinceID, page)).
		SetResult(&body).
		Get("/credit-notes")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list credit notes: %w", err)
	}

	notes := make([]reconciliation.CreditNote, len(body.Data))
	for i, d := range body.Data {
		notes[i] = d.toDomain()
	}
	return notes, nil
}

// ListPickTickets returns pick-tickets with an id greater than sinceID.
// The endpoint is not paginated.
func (a *Adapter) ListPickTickets(ctx context.Context, sinceID int64) ([]reconciliation.PickTicket, error) {
	var body listResponse[pickTicketDTO]
	resp, err := a.request(ctx).
		SetQueryParam("since_id", strconv.FormatInt(sinceID, 10)).
		SetResult(&body).
		Get("/pick-tickets")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list pick-tickets: %w", err)
	}

	tickets := make([]reconciliation.PickTicket, len(body.Data))
	for i, d := range body.Data {
		tickets[i] = d.toDomain()
	}
	return tickets, nil
}

// ---------------------------------------------------------------------------
// Single records
// ---------------------------------------------------------------------------

// GetInvoice fetches one invoice
func (a *Adapter) GetInvoice(ctx context.Context, id int64) (*reconciliation.Invoice, error) {
	var d invoiceDTO
	resp, err := a.request(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&d).
		Get("/invoices/{id}")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	inv := d.toDomain()
	return &inv, nil
}

// GetCreditNote fetches one credit note
func (a *Adapter) GetCreditNote(ctx context.Context, id int64) (*reconciliation.CreditNote, error) {
	var d creditNoteDTO
	resp, err := a.request(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&d).
		Get("/credit-notes/{id}")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get credit note %d: %w", id, err)
	}
	note := d.toDomain()
	return &note, nil
}

// GetPickTicket fetches one pick-ticket
func (a *Adapter) GetPickTicket(ctx context.Context, id int64) (*reconciliation.PickTicket, error) {
	var d pickTicketDTO
	resp, err := a.request(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&d).
		Get("/pick-tickets/{id}")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get pick-ticket %d: %w", id, err)
	}
	pt := d.toDomain()
	return &pt, nil
}

// GetCustomer fetches one customer
func (a *Adapter) GetCustomer(ctx context.Context, id int64) (*reconciliation.Customer, error) {
	var d customerDTO
	resp, err := a.request(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&d).
		Get("/customers/{id}")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get customer %d: %w", id, err)
	}
	return &reconciliation.Customer{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		VATNumber: d.VATNumber,
		Address:   d.Address.toDomain(),
	}, nil
}

// GetOrder looks an order up by its order number
func (a *Adapter) GetOrder(ctx context.Context, orderNumber string) (*reconciliation.Order, error) {
	var body listResponse[orderDTO]
	resp, err := a.request(ctx).
		SetQueryParam("order_number", orderNumber).
		SetResult(&body).
		Get("/orders")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderNumber, err)
	}

	for _, d := range body.Data {
		if d.OrderNumber == orderNumber {
			return &reconciliation.Order{
				ID:          d.ID,
				OrderNumber: d.OrderNumber,
				CustomerID:  d.CustomerID,
				Email:       d.Email,
				Phone:       d.Phone,
			}, nil
		}
	}
	return nil, reconciliation.NewRemoteAPIError(reconciliation.ServiceOrderManagement, 404,
		fmt.Sprintf("order %s not found", orderNumber))
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// AddPayment registers a payment against an invoice and returns its id
func (a *Adapter) AddPayment(ctx context.Context, payment reconciliation.PaymentRequest) (int64, error) {
	var created createdDTO
	resp, err := a.request(ctx).
		SetPathParam("id", strconv.FormatInt(payment.InvoiceID, 10)).
		SetBody(paymentDTO{
			Amount:    payment.Amount.StringFixed(2),
			Date:      payment.Date.Format("2006-01-02"),
			Reference: payment.Reference,
			Method:    payment.Method,
		}).
		SetResult(&created).
		Post("/invoices/{id}/payments")
	if err := a.check(resp, err); err != nil {
		return 0, fmt.Errorf("failed to add payment to invoice %d: %w", payment.InvoiceID, err)
	}
	if created.ID == 0 {
		return 0, reconciliation.NewRemoteAPIError(reconciliation.ServiceOrderManagement, resp.StatusCode(),
			"payment response without id")
	}
	return created.ID, nil
}

// SetActiveOrganisation verifies the organisation exists and sends its id
// with every following request
func (a *Adapter) SetActiveOrganisation(ctx context.Context, organisationID int64) error {
	id := strconv.FormatInt(organisationID, 10)
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/organisations/{id}")
	if err := a.check(resp, err); err != nil {
		return err
	}

	a.mu.Lock()
	a.organisation = id
	a.mu.Unlock()
	a.logger.Debug("Active organisation selected", zap.String("organisation_id", id))
	return nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// Decode converts a webhook payload into a typed record. Payloads are
// accepted bare or wrapped in a {"data": ...} envelope.
func (a *Adapter) Decode(t reconciliation.ObjectType, payload []byte) (reconciliation.RemoteObject, error) {
	payload = unwrap(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	switch t {
	case reconciliation.ObjectTypeInvoice:
		var d invoiceDTO
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("failed to decode invoice payload: %w", err)
		}
		inv := d.toDomain()
		return &inv, nil
	case reconciliation.ObjectTypeCreditNote:
		var d creditNoteDTO
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("failed to decode credit note payload: %w", err)
		}
		note := d.toDomain()
		return &note, nil
	case reconciliation.ObjectTypePickTicket:
		var d pickTicketDTO
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("failed to decode pick-ticket payload: %w", err)
		}
		pt := d.toDomain()
		return &pt, nil
	default:
		return nil, fmt.Errorf("%w: %s webhooks", reconciliation.ErrOperationNotSupported, t)
	}
}

func unwrap(payload []byte) []byte {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &env) == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		return env.Data
	}
	return []byte(trimmed)
}

// Ensure Adapter implements reconciliation.OrderManagementGateway
var _ reconciliation.OrderManagementGateway = (*Adapter)(nil)
