package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/persistence/models"
)

// GormAuditLogRepository implements reconciliation.AuditLogRepository using GORM.
// Rows are only ever inserted.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append validates and inserts a record
func (r *GormAuditLogRepository) Append(ctx context.Context, record *reconciliation.SynchronizedObjectRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(models.SynchronizedObjectModelFromDomain(record)).Error; err != nil {
		return fmt.Errorf("failed to append audit record for %s %s: %w", record.Type, record.ObjectID, err)
	}
	return nil
}

// HasSucceeded reports whether a non-skipped attempt with the method succeeded
func (r *GormAuditLogRepository) HasSucceeded(ctx context.Context, t reconciliation.ObjectType, objectID string, method reconciliation.Method) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SynchronizedObjectModel{}).
		Where("type = ? AND object_id = ? AND method = ? AND succeeded = ? AND outcome <> ?",
			t, objectID, method, true, reconciliation.OutcomeSkipped).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByID returns a record or ErrRecordNotFound
func (r *GormAuditLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*reconciliation.SynchronizedObjectRecord, error) {
	var model models.SynchronizedObjectModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reconciliation.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormAuditLogRepository) applyFilter(db *gorm.DB, filter reconciliation.AuditFilter) *gorm.DB {
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.ObjectID != "" {
		db = db.Where("object_id = ?", filter.ObjectID)
	}
	if filter.Succeeded != nil {
		db = db.Where("succeeded = ?", *filter.Succeeded)
	}
	if filter.Source != "" {
		db = db.Where("source = ?", filter.Source)
	}
	if filter.Method != "" {
		db = db.Where("method = ?", filter.Method)
	}
	return db
}

// List returns records matching the filter, newest first
func (r *GormAuditLogRepository) List(ctx context.Context, filter reconciliation.AuditFilter) ([]reconciliation.SynchronizedObjectRecord, error) {
	var rows []models.SynchronizedObjectModel
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SynchronizedObjectModel{}), filter).
		Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]reconciliation.SynchronizedObjectRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}

// Count returns the number of records matching the filter
func (r *GormAuditLogRepository) Count(ctx context.Context, filter reconciliation.AuditFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SynchronizedObjectModel{}), filter).Count(&count).Error
	return count, err
}

var _ reconciliation.AuditLogRepository = (*GormAuditLogRepository)(nil)
