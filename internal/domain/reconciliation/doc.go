// Package reconciliation contains the domain model for keeping sales invoices,
// credit notes, pick-tickets and payments consistent across the accounting
// back-end, the order-management system and the shipping carrier.
//
// The package is organised around a few concepts:
//
//   - Typed remote records (Invoice, CreditNote, PickTicket, LedgerMutation)
//     produced by the gateway adapters.
//   - IdentityMapping, the authoritative signal that a create already
//     succeeded for an (object type, source, target, source id) tuple.
//   - SynchronizedObjectRecord, the append-only audit trail of attempts.
//   - TaxTranslator, which turns a tax percentage into a ledger account and
//     a named tax bracket.
//   - PaginatedSearch, a lazy walker over remote listings that lack a
//     server-side lookup.
//
// Gateways, repositories and the settings store are declared here as ports
// and implemented in the infrastructure layer.
package reconciliation
