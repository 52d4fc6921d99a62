package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// salesLedgerState is resolved once per run by prepare
type salesLedgerState struct {
	taxes *reconciliation.TaxTranslator
}

// salesLedger translates order-management invoices into accounting sale
// entries. Invoices and credit notes share it.
type salesLedger struct {
	orders     reconciliation.OrderManagementGateway
	accounting reconciliation.AccountingGateway
	config     *ConfigurationService
	opts       handlerOptions

	state atomic.Pointer[salesLedgerState]
}

func newSalesLedger(
	orders reconciliation.OrderManagementGateway,
	accounting reconciliation.AccountingGateway,
	config *ConfigurationService,
	opts handlerOptions,
) *salesLedger {
	return &salesLedger{
		orders:     orders,
		accounting: accounting,
		config:     config,
		opts:       opts,
	}
}

// prepare loads ledger codes, tax rates and the chart of accounts and selects
// the active organisation
func (l *salesLedger) prepare(ctx context.Context) error {
	codes, err := l.config.LedgerCodes(ctx)
	if err != nil {
		return err
	}
	accounts, err := l.accounting.ListLedgerAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledger accounts: %w", err)
	}
	rates, err := l.accounting.ListTaxRates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tax rates: %w", err)
	}
	taxes, err := reconciliation.NewTaxTranslator(rates, accounts, codes, l.opts.now())
	if err != nil {
		return err
	}

	if err := selectOrganisation(ctx, l.config, l.orders); err != nil {
		return err
	}

	l.state.Store(&salesLedgerState{taxes: taxes})
	return nil
}

// translate builds the sale entry for an invoice. Tax resolution runs before
// the relation lookup so that nothing is created in the accounting system for
// an invoice that cannot be booked.
func (l *salesLedger) translate(ctx context.Context, inv *reconciliation.Invoice, description string) (reconciliation.SaleEntry, error) {
	state := l.state.Load()
	if state == nil {
		return reconciliation.SaleEntry{}, reconciliation.ErrSynchronizerNotPrepared
	}

	lines := make([]reconciliation.SaleEntryLine, 0, len(inv.LineItems))
	taxes := make([]reconciliation.TaxAmount, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		bracket, err := state.taxes.Resolve(item.TaxLevel)
		if err != nil {
			return reconciliation.SaleEntry{}, err
		}
		lines = append(lines, reconciliation.SaleEntryLine{
			LedgerAccountID: bracket.LedgerAccountID,
			Description:     lineDescription(item),
			Amount:          reconciliation.RoundCents(item.Amount()),
			TaxBracket:      bracket.Name,
		})
		taxes = append(taxes, reconciliation.TaxAmount{Bracket: bracket.Name, Amount: item.TaxAmount()})
	}

	term, err := reconciliation.PaymentTermDays(inv.DueDate, inv.IssuedAt, l.opts.now())
	if err != nil {
		return reconciliation.SaleEntry{}, err
	}

	relation, err := l.resolveRelation(ctx, inv.CustomerID)
	if err != nil {
		return reconciliation.SaleEntry{}, err
	}

	return reconciliation.SaleEntry{
		InvoiceNumber:   inv.InvoiceNumber,
		RelationID:      relation.ID,
		Date:            inv.IssuedAt,
		PaymentTermDays: term,
		Description:     description,
		Lines:           lines,
		TaxLines:        reconciliation.GroupTaxLines(taxes),
		NetTotal:        reconciliation.RoundCents(inv.ItemsTotal),
		Total:           reconciliation.RoundCents(inv.GrandTotal),
	}, nil
}

// resolveRelation finds the accounting relation of a customer, creating it
// when no relation matches by email or name
func (l *salesLedger) resolveRelation(ctx context.Context, customerID int64) (*reconciliation.Relation, error) {
	customer, err := l.orders.GetCustomer(ctx, customerID)
	if err != nil {
		var remoteErr *reconciliation.RemoteAPIError
		if errors.As(err, &remoteErr) && remoteErr.IsNotFound() {
			return nil, reconciliation.NewTranslationError("customer_id", reconciliation.ErrRelationNotFound,
				"customer "+strconv.FormatInt(customerID, 10)+" does not exist")
		}
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, reconciliation.NewTranslationError("customer_name", reconciliation.ErrMissingField,
			"customer "+strconv.FormatInt(customerID, 10)+" has no name")
	}

	filters := []reconciliation.RelationFilter{{Name: customer.Name}}
	if customer.Email != "" {
		filters = append([]reconciliation.RelationFilter{{Email: customer.Email}}, filters...)
	}
	for _, filter := range filters {
		relations, err := l.accounting.ListRelations(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list relations: %w", err)
		}
		for i := range relations {
			if matchesCustomer(relations[i], customer) {
				return &relations[i], nil
			}
		}
	}

	relation, err := l.accounting.CreateRelation(ctx, reconciliation.NewRelation{
		Name:      reconciliation.DisplayName(customer.Name),
		Email:     customer.Email,
		Phone:     customer.Phone,
		VATNumber: customer.VATNumber,
		Address:   customer.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relation: %w", err)
	}
	return relation, nil
}

func matchesCustomer(r reconciliation.Relation, c *reconciliation.Customer) bool {
	if c.Email != "" && strings.EqualFold(strings.TrimSpace(r.Email), strings.TrimSpace(c.Email)) {
		return true
	}
	return reconciliation.SameName(r.Name, c.Name)
}

func lineDescription(item reconciliation.LineItem) string {
	desc := item.ProductName
	if item.SKU != "" {
		desc += " (" + item.SKU + ")"
	}
	return fmt.Sprintf("%d x %s", item.TotalQuantity(), desc)
}

// selectOrganisation switches the order-management session to the configured organisation
func selectOrganisation(ctx context.Context, config *ConfigurationService, orders reconciliation.OrderManagementGateway) error {
	orgID, ok, err := config.OrganisationID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := orders.SetActiveOrganisation(ctx, orgID); err != nil {
		return fmt.Errorf("failed to select organisation %d: %w", orgID, err)
	}
	return nil
}
