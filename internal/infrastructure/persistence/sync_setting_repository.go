package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/persistence/models"
)

// GormSettingsStore implements reconciliation.SettingsStore on the sync_settings table
type GormSettingsStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSettingsStore creates a new GormSettingsStore
func NewGormSettingsStore(db *gorm.DB) *GormSettingsStore {
	return &GormSettingsStore{db: db, now: time.Now}
}

// Get returns the value and whether the key is set
func (s *GormSettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var model models.SyncSettingModel
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.Value, true, nil
}

// Set inserts or replaces the value of a key
func (s *GormSettingsStore) Set(ctx context.Context, key, value string) error {
	model := &models.SyncSettingModel{Key: key, Value: value, UpdatedAt: s.now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(model).Error
}

// All returns every stored setting ordered by key
func (s *GormSettingsStore) All(ctx context.Context) ([]reconciliation.Setting, error) {
	var rows []models.SyncSettingModel
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	settings := make([]reconciliation.Setting, len(rows))
	for i := range rows {
		settings[i] = rows[i].ToDomain()
	}
	return settings, nil
}

var _ reconciliation.SettingsStore = (*GormSettingsStore)(nil)
