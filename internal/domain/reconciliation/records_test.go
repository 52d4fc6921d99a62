package reconciliation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineItem_Amount(t *testing.T) {
	li := LineItem{
		UnitPrice: d("12.50"),
		UnitTax:   d("2.625"),
		Quantities: []LineQuantity{
			{Size: "S", Quantity: 2},
			{Size: "M", Quantity: 3},
		},
	}
	assert.Equal(t, int64(5), li.TotalQuantity())
	assert.True(t, li.Amount().Equal(d("62.5")))
	assert.True(t, li.TaxAmount().Equal(d("13.125")))
}

func TestCreditNote_Negated(t *testing.T) {
	cn := &CreditNote{
		ID:             3,
		ItemsTotal:     d("80.00"),
		ItemsTax:       d("16.80"),
		GrandTotal:     d("96.80"),
		FreeformAmount: d("10"),
		FreeformTax:    d("2.10"),
		LineItems: []LineItem{
			{UnitPrice: d("40"), UnitTax: d("8.4"), OriginalPrice: d("50"), Quantities: []LineQuantity{{Quantity: 2}}},
		},
	}

	neg := cn.Negated()
	assert.Equal(t, "-80.00", neg.ItemsTotal.StringFixed(2))
	assert.True(t, neg.GrandTotal.Equal(d("-96.80")))
	assert.True(t, neg.FreeformTax.Equal(d("-2.10")))
	assert.True(t, neg.LineItems[0].UnitPrice.Equal(d("-40")))
	assert.True(t, neg.LineItems[0].OriginalPrice.Equal(d("-50")))

	back := neg.Negated()
	assert.Equal(t, "80.00", back.ItemsTotal.StringFixed(2))
	assert.True(t, back.LineItems[0].UnitTax.Equal(d("8.4")))

	// the source is left untouched
	assert.True(t, cn.ItemsTotal.Equal(d("80.00")))
	assert.True(t, cn.LineItems[0].UnitPrice.Equal(d("40")))
}

func TestCreditNote_AsInvoice(t *testing.T) {
	t.Run("injects freeform line", func(t *testing.T) {
		cn := &CreditNote{
			ID:               9,
			CreditNoteNumber: "CN-9",
			FreeformAmount:   d("-50"),
			FreeformTax:      d("-10.50"),
		}
		inv := cn.AsInvoice()
		require.Len(t, inv.LineItems, 1)
		line := inv.LineItems[0]
		assert.Equal(t, "21", line.TaxLevel.String())
		assert.True(t, line.Amount().Equal(d("-50")))
		assert.Equal(t, "CN-9", inv.InvoiceNumber)
		assert.Equal(t, "9", inv.SourceID())
	})

	t.Run("no freeform line when both are zero", func(t *testing.T) {
		cn := &CreditNote{LineItems: []LineItem{{ProductName: "Shirt"}}}
		assert.Len(t, cn.AsInvoice().LineItems, 1)
	})
}

func TestPickTicket_Shippable(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{"ready_to_ship", true},
		{"SHIPPED", true},
		{"draft", false},
		{"cancelled", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			p := &PickTicket{Status: tc.status}
			assert.Equal(t, tc.expected, p.Shippable())
		})
	}
}

func TestPaymentTermDays(t *testing.T) {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		due     string
		want    int
		wantErr bool
	}{
		{name: "future due date", due: "2024-03-31", want: 21},
		{name: "rfc3339", due: "2024-03-20T00:00:00Z", want: 10},
		{name: "overdue clamps to zero", due: "2024-03-05", want: 0},
		{name: "due today", due: "2024-03-10", want: 0},
		{name: "before issue date", due: "2024-02-28", wantErr: true},
		{name: "unparseable", due: "next tuesday", wantErr: true},
		{name: "empty", due: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PaymentTermDays(tc.due, issued, now)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDueDate)
				var te *TranslationError
				assert.True(t, errors.As(err, &te))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.True(t, SameName("Café  Noir", "CAFÉ NOIR"))
	assert.False(t, SameName("Acme", "Acme Ltd"))
	assert.Equal(t, "Acme Outfitters", DisplayName("  acme   outfitters "))
}

func TestSynchronizedObjectRecord(t *testing.T) {
	r := NewSynchronizedObjectRecord("12", ObjectTypeInvoice, TriggerCron, MethodCreate)
	assert.Error(t, r.Validate())

	r.MarkSucceeded(OutcomeCreated)
	require.NoError(t, r.Validate())

	r.MarkFailed(errors.New(""))
	assert.False(t, r.Succeeded)
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, "unknown error", r.ErrorMessage)
	require.NoError(t, r.Validate())

	r.Succeeded = true
	assert.ErrorIs(t, r.Validate(), ErrInvalidRecord)
}

func TestSyncRun_Complete(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []Outcome
		skips    int
		expected RunStatus
	}{
		{name: "empty", expected: RunStatusSuccess},
		{name: "all created", outcomes: []Outcome{OutcomeCreated, OutcomeSkipped}, expected: RunStatusSuccess},
		{name: "some failed", outcomes: []Outcome{OutcomeCreated, OutcomeFailed}, expected: RunStatusPartial},
		{name: "failed with audit skip", outcomes: []Outcome{OutcomeFailed}, skips: 1, expected: RunStatusPartial},
		{name: "all failed", outcomes: []Outcome{OutcomeFailed, OutcomeFailed}, expected: RunStatusFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			run := NewSyncRun(ObjectTypeInvoice, TriggerCron)
			run.Start()
			for _, o := range tc.outcomes {
				run.Record(o)
			}
			for i := 0; i < tc.skips; i++ {
				run.Skip()
			}
			run.Complete()
			assert.Equal(t, tc.expected, run.Status)
			assert.Equal(t, len(tc.outcomes)+tc.skips, run.Total)
			assert.True(t, run.Status.IsTerminal())
			assert.GreaterOrEqual(t, run.Duration().Nanoseconds(), int64(0))
		})
	}
}

func TestSettingKeys(t *testing.T) {
	assert.Equal(t, "sync.pick_ticket.enabled", EnabledKey(ObjectTypePickTicket))
	assert.Equal(t, "sync.invoice.cursor", CursorKey(ObjectTypeInvoice))
	assert.Equal(t, "sync.payment.max_batch_size", MaxBatchSizeKey(ObjectTypePayment))

	name, ok := LedgerCodeBracket(LedgerCodeKey("High"))
	assert.True(t, ok)
	assert.Equal(t, "high", name)
	_, ok = LedgerCodeBracket("sync.ledger_code.")
	assert.False(t, ok)

	assert.True(t, IsSecretSetting(SettingWebhookSecret))
	assert.False(t, IsSecretSetting(SettingOrganisationID))
}
