package reconciliation

import (
	"context"
	"strings"
	"time"
)

// Setting keys. Per-type keys are built with the helpers below.
const (
	SettingWebhookSecret    = "sync.webhook_secret"
	SettingDebtorLedgerCode = "sync.debtor_ledger_code"
	SettingShippingMethodID = "sync.shipping_method_id"
	SettingOrganisationID   = "sync.organisation_id"

	settingPrefix           = "sync."
	settingLedgerCodePrefix = "sync.ledger_code."
)

// EnabledKey is the setting that switches a synchronizer on or off
func EnabledKey(t ObjectType) string {
	return settingPrefix + string(t) + ".enabled"
}

// CursorKey is the setting holding the last processed source id of a type
func CursorKey(t ObjectType) string {
	return settingPrefix + string(t) + ".cursor"
}

// MaxBatchSizeKey is the setting bounding one batch of a type
func MaxBatchSizeKey(t ObjectType) string {
	return settingPrefix + string(t) + ".max_batch_size"
}

// LedgerCodeKey is the setting holding the ledger account number of a tax bracket
func LedgerCodeKey(bracket string) string {
	return settingLedgerCodePrefix + strings.ToLower(bracket)
}

// LedgerCodeBracket extracts the bracket name from a ledger code key
func LedgerCodeBracket(key string) (string, bool) {
	if !strings.HasPrefix(key, settingLedgerCodePrefix) {
		return "", false
	}
	name := strings.TrimPrefix(key, settingLedgerCodePrefix)
	return name, name != ""
}

// IsSecretSetting reports whether a setting must be masked when displayed
func IsSecretSetting(key string) bool {
	return key == SettingWebhookSecret || strings.HasSuffix(key, "_secret") || strings.HasSuffix(key, "_token")
}

// Setting is one stored key/value pair
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SettingsStore is the key/value store behind the configuration service
type SettingsStore interface {
	// Get returns the value and whether the key is set
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]Setting, error)
}

// Cursor is the per-type batch position. MaxBatchSize nil means unbounded.
type Cursor struct {
	LastProcessedSourceID string
	MaxBatchSize          *int
}

// PayloadArchive stores full webhook and fetch payloads referenced by audit records
type PayloadArchive interface {
	Store(ctx context.Context, key string, payload []byte) error
}
