package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/persistence/models"
)

const defaultRecentRuns = 20

// GormSyncRunRepository implements reconciliation.SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save inserts or updates a run summary
func (r *GormSyncRunRepository) Save(ctx context.Context, run *reconciliation.SyncRun) error {
	return r.db.WithContext(ctx).Save(models.SyncRunModelFromDomain(run)).Error
}

// FindByID returns a run or ErrRunNotFound
func (r *GormSyncRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*reconciliation.SyncRun, error) {
	var model models.SyncRunModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reconciliation.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListRecent returns the latest runs, optionally restricted to one type
func (r *GormSyncRunRepository) ListRecent(ctx context.Context, t reconciliation.ObjectType, limit int) ([]reconciliation.SyncRun, error) {
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	query := r.db.WithContext(ctx).Model(&models.SyncRunModel{})
	if t != "" {
		query = query.Where("type = ?", t)
	}

	var rows []models.SyncRunModel
	if err := query.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	runs := make([]reconciliation.SyncRun, len(rows))
	for i := range rows {
		runs[i] = *rows[i].ToDomain()
	}
	return runs, nil
}

var _ reconciliation.SyncRunRepository = (*GormSyncRunRepository)(nil)
