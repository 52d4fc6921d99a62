package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// ConfigurationService exposes typed synchronization settings. Values in the
// settings store win over the defaults seeded from the config file.
type ConfigurationService struct {
	store    reconciliation.SettingsStore
	defaults map[string]string
}

// NewConfigurationService creates a new ConfigurationService
func NewConfigurationService(store reconciliation.SettingsStore, defaults map[string]string) *ConfigurationService {
	copied := make(map[string]string, len(defaults))
	for k, v := range defaults {
		copied[k] = v
	}
	return &ConfigurationService{
		store:    store,
		defaults: copied,
	}
}

// lookup returns the stored value, falling back to the default
func (s *ConfigurationService) lookup(ctx context.Context, key string) (string, bool, error) {
	value, found, err := s.store.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if found {
		return strings.TrimSpace(value), true, nil
	}
	value, found = s.defaults[key]
	return strings.TrimSpace(value), found, nil
}

func (s *ConfigurationService) requireInt(ctx context.Context, key string) (int, error) {
	value, found, err := s.lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found || value == "" {
		return 0, reconciliation.NewConfigurationError(key, reconciliation.ErrSettingMissing, "")
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "not an integer")
	}
	return n, nil
}

// Enabled reports whether the synchronizer of a type is switched on
func (s *ConfigurationService) Enabled(ctx context.Context, t reconciliation.ObjectType) (bool, error) {
	key := reconciliation.EnabledKey(t)
	value, found, err := s.lookup(ctx, key)
	if err != nil {
		return false, err
	}
	if !found || value == "" {
		return false, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "not a boolean")
	}
	return enabled, nil
}

// Cursor returns the batch position of a type
func (s *ConfigurationService) Cursor(ctx context.Context, t reconciliation.ObjectType) (reconciliation.Cursor, error) {
	var cursor reconciliation.Cursor

	last, _, err := s.lookup(ctx, reconciliation.CursorKey(t))
	if err != nil {
		return cursor, err
	}
	cursor.LastProcessedSourceID = last

	key := reconciliation.MaxBatchSizeKey(t)
	size, found, err := s.lookup(ctx, key)
	if err != nil {
		return cursor, err
	}
	if found && size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 0 {
			return cursor, reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "must be a non-negative integer")
		}
		cursor.MaxBatchSize = &n
	}
	return cursor, nil
}

// AdvanceCursor stores the last processed source id of a type
func (s *ConfigurationService) AdvanceCursor(ctx context.Context, t reconciliation.ObjectType, lastProcessed string) error {
	if err := s.store.Set(ctx, reconciliation.CursorKey(t), lastProcessed); err != nil {
		return fmt.Errorf("failed to advance %s cursor: %w", t, err)
	}
	return nil
}

// LedgerCodes returns the ledger account number configured per tax bracket
func (s *ConfigurationService) LedgerCodes(ctx context.Context) (reconciliation.LedgerCodes, error) {
	settings, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	codes := make(reconciliation.LedgerCodes)
	for _, setting := range settings {
		bracket, ok := reconciliation.LedgerCodeBracket(setting.Key)
		if !ok || strings.TrimSpace(setting.Value) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(setting.Value))
		if err != nil {
			return nil, reconciliation.NewConfigurationError(setting.Key, reconciliation.ErrSettingInvalid, "not an integer")
		}
		codes[bracket] = n
	}
	if len(codes) == 0 {
		return nil, reconciliation.NewConfigurationError(reconciliation.LedgerCodeKey("*"), reconciliation.ErrSettingMissing,
			"no ledger code configured for any tax bracket")
	}
	return codes, nil
}

// DebtorLedgerCode returns the ledger account number payments are booked on
func (s *ConfigurationService) DebtorLedgerCode(ctx context.Context) (int, error) {
	return s.requireInt(ctx, reconciliation.SettingDebtorLedgerCode)
}

// ShippingMethodID returns the carrier service used for new parcels
func (s *ConfigurationService) ShippingMethodID(ctx context.Context) (int, error) {
	return s.requireInt(ctx, reconciliation.SettingShippingMethodID)
}

// OrganisationID returns the order-management organisation to act on, if configured
func (s *ConfigurationService) OrganisationID(ctx context.Context) (int64, bool, error) {
	key := reconciliation.SettingOrganisationID
	value, found, err := s.lookup(ctx, key)
	if err != nil || !found || value == "" {
		return 0, false, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "not an integer")
	}
	return id, true, nil
}

// WebhookSecret returns the shared secret webhook deliveries must present
func (s *ConfigurationService) WebhookSecret(ctx context.Context) (string, error) {
	key := reconciliation.SettingWebhookSecret
	value, found, err := s.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !found || value == "" {
		return "", reconciliation.NewConfigurationError(key, reconciliation.ErrSettingMissing, "")
	}
	return value, nil
}

// Set validates and stores a setting
func (s *ConfigurationService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if err := validateSetting(key, value); err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// All returns defaults merged with stored settings, sorted by key
func (s *ConfigurationService) All(ctx context.Context) ([]reconciliation.Setting, error) {
	stored, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	merged := make(map[string]reconciliation.Setting, len(stored)+len(s.defaults))
	for k, v := range s.defaults {
		merged[k] = reconciliation.Setting{Key: k, Value: v}
	}
	for _, setting := range stored {
		merged[setting.Key] = setting
	}

	result := make([]reconciliation.Setting, 0, len(merged))
	for _, setting := range merged {
		result = append(result, setting)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// validateSetting rejects unknown keys and values of the wrong shape
func validateSetting(key, value string) error {
	if !strings.HasPrefix(key, "sync.") {
		return reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "unknown setting")
	}

	switch key {
	case reconciliation.SettingWebhookSecret:
		if value == "" {
			return reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "must not be empty")
		}
		return nil
	case reconciliation.SettingDebtorLedgerCode, reconciliation.SettingShippingMethodID, reconciliation.SettingOrganisationID:
		return requireNonNegativeInt(key, value)
	}

	if _, ok := reconciliation.LedgerCodeBracket(key); ok {
		return requireNonNegativeInt(key, value)
	}

	for _, t := range reconciliation.AllObjectTypes() {
		switch key {
		case reconciliation.EnabledKey(t):
			if _, err := strconv.ParseBool(value); err != nil {
				return reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "not a boolean")
			}
			return nil
		case reconciliation.MaxBatchSizeKey(t):
			if value == "" {
				return nil
			}
			return requireNonNegativeInt(key, value)
		case reconciliation.CursorKey(t):
			return nil
		}
	}
	return reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "unknown setting")
}

func requireNonNegativeInt(key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "must be a non-negative integer")
	}
	return nil
}
