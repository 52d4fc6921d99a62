// Package accounting implements the accounting gateway over the bookkeeping
// system's REST API using OAuth client credentials.
package accounting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/httpclient"
)

// Adapter implements reconciliation.AccountingGateway
type Adapter struct {
	config *Config
	client *resty.Client
	tokens *httpclient.TokenSource
	logger *zap.Logger
}

// NewAdapter creates a new accounting adapter with the given configuration
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
	tokenClient, err := httpclient.New(*config.tokenClientConfig(), logger)
	if err != nil {
		return nil, err
	}
	tokens, err := httpclient.NewTokenSource(tokenClient, reconciliation.ServiceAccounting,
		config.TokenPath, config.ClientID, config.ClientSecret)
	if err != nil {
		return nil, err
	}
	tokens.Authenticate(client)

	return &Adapter{
		config: config,
		client: client,
		tokens: tokens,
		logger: logger.Named("accounting"),
	}, nil
}

func (a *Adapter) request(ctx context.Context) *resty.Request {
	return a.client.R().SetContext(ctx)
}

func (a *Adapter) check(resp *resty.Response, err error) error {
	return httpclient.CheckResponse(reconciliation.ServiceAccounting, resp, err)
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// ListLedgerAccounts returns the chart of accounts
func (a *Adapter) ListLedgerAccounts(ctx context.Context) ([]reconciliation.LedgerAccount, error) {
	var body listResponse[ledgerAccountDTO]
	resp, err := a.request(ctx).SetResult(&body).Get("/ledger-accounts")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list ledger accounts: %w", err)
	}

	accounts := make([]reconciliation.LedgerAccount, len(body.Data))
	for i, d := range body.Data {
		accounts[i] = reconciliation.LedgerAccount(d)
	}
	return accounts, nil
}

// ListTaxRates returns every published tax rate, current or not
func (a *Adapter) ListTaxRates(ctx context.Context) ([]reconciliation.TaxRate, error) {
	var body listResponse[taxRateDTO]
	resp, err := a.request(ctx).SetResult(&body).Get("/tax-rates")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list tax rates: %w", err)
	}

	rates := make([]reconciliation.TaxRate, len(body.Data))
	for i, d := range body.Data {
		rates[i] = reconciliation.TaxRate(d)
	}
	return rates, nil
}

// ---------------------------------------------------------------------------
// Relations
// ---------------------------------------------------------------------------

// ListRelations returns relations matching the filter
func (a *Adapter) ListRelations(ctx context.Context, filter reconciliation.RelationFilter) ([]reconciliation.Relation, error) {
	req := a.request(ctx)
	if filter.Name != "" {
		req.SetQueryParam("name", filter.Name)
	}
	if filter.Email != "" {
		req.SetQueryParam("email", filter.Email)
	}

	var body listResponse[relationDTO]
	resp, err := req.SetResult(&body).Get("/relations")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}

	relations := make([]reconciliation.Relation, len(body.Data))
	for i, d := range body.Data {
		relations[i] = d.toDomain()
	}
	return relations, nil
}

// CreateRelation creates a relation and returns it as stored
func (a *Adapter) CreateRelation(ctx context.Context, relation reconciliation.NewRelation) (*reconciliation.Relation, error) {
	payload := relationDTO{
		Name:      relation.Name,
		Email:     relation.Email,
		Phone:     relation.Phone,
		VATNumber: relation.VATNumber,
	}
	if relation.Address != (reconciliation.Address{}) {
		addr := addressDTO(relation.Address)
		payload.Address = &addr
	}

	var created relationDTO
	resp, err := a.request(ctx).SetBody(payload).SetResult(&created).Post("/relations")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to create relation %q: %w", relation.Name, err)
	}
	if created.ID == "" {
		return nil, reconciliation.NewRemoteAPIError(reconciliation.ServiceAccounting, resp.StatusCode(),
			"relation response without id")
	}

	a.logger.Info("Relation created", zap.String("relation_id", created.ID), zap.String("name", created.Name))
	r := created.toDomain()
	return &r, nil
}

// ---------------------------------------------------------------------------
// Sales entries
// ---------------------------------------------------------------------------

// CreateSaleEntry books a sales entry and returns its id
func (a *Adapter) CreateSaleEntry(ctx context.Context, entry reconciliation.SaleEntry) (string, error) {
	var created createdDTO
	resp, err := a.request(ctx).
		SetBody(newSaleEntryDTO(entry)).
		SetResult(&created).
		Post("/sales-entries")
	if err := a.check(resp, err); err != nil {
		return "", fmt.Errorf("failed to create sales entry %s: %w", entry.InvoiceNumber, err)
	}
	if created.ID == "" {
		return "", reconciliation.NewRemoteAPIError(reconciliation.ServiceAccounting, resp.StatusCode(),
			"sales entry response without id")
	}
	return created.ID, nil
}

// UpdateSaleEntry replaces a sales entry
func (a *Adapter) UpdateSaleEntry(ctx context.Context, id string, entry reconciliation.SaleEntry) error {
	resp, err := a.request(ctx).
		SetPathParam("id", id).
		SetBody(newSaleEntryDTO(entry)).
		Put("/sales-entries/{id}")
	if err := a.check(resp, err); err != nil {
		return fmt.Errorf("failed to update sales entry %s: %w", id, err)
	}
	return nil
}

// DeleteSaleEntry removes a sales entry
func (a *Adapter) DeleteSaleEntry(ctx context.Context, id string) error {
	resp, err := a.request(ctx).SetPathParam("id", id).Delete("/sales-entries/{id}")
	if err := a.check(resp, err); err != nil {
		return fmt.Errorf("failed to delete sales entry %s: %w", id, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Ledger mutations
// ---------------------------------------------------------------------------

// ListLedgerMutations returns mutations matching the filter modified since the given time
func (a *Adapter) ListLedgerMutations(ctx context.Context, filter reconciliation.LedgerMutationFilter, since time.Time) ([]reconciliation.LedgerMutation, error) {
	req := a.request(ctx).SetQueryParam("negative_only", strconv.FormatBool(filter.NegativeOnly))
	if filter.LedgerAccountID != "" {
		req.SetQueryParam("ledger_account_id", filter.LedgerAccountID)
	}
	if !since.IsZero() {
		req.SetQueryParam("modified_since", since.UTC().Format(time.RFC3339))
	}

	var body listResponse[ledgerMutationDTO]
	resp, err := req.SetResult(&body).Get("/ledger-mutations")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list ledger mutations: %w", err)
	}

	mutations := make([]reconciliation.LedgerMutation, len(body.Data))
	for i, d := range body.Data {
		mutations[i] = d.toDomain()
	}
	return mutations, nil
}

// GetLedgerMutation fetches one ledger mutation
func (a *Adapter) GetLedgerMutation(ctx context.Context, id string) (*reconciliation.LedgerMutation, error) {
	var d ledgerMutationDTO
	resp, err := a.request(ctx).SetPathParam("id", id).SetResult(&d).Get("/ledger-mutations/{id}")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to get ledger mutation %s: %w", id, err)
	}
	m := d.toDomain()
	return &m, nil
}

// Ensure Adapter implements reconciliation.AccountingGateway
var _ reconciliation.AccountingGateway = (*Adapter)(nil)
