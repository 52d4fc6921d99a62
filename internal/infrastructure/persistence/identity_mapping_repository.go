package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/persistence/models"
)

// GormIdentityMappingRepository implements reconciliation.IdentityMappingRepository using GORM
type GormIdentityMappingRepository struct {
	db *gorm.DB
}

// NewGormIdentityMappingRepository creates a new GormIdentityMappingRepository
func NewGormIdentityMappingRepository(db *gorm.DB) *GormIdentityMappingRepository {
	return &GormIdentityMappingRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormIdentityMappingRepository) WithTx(tx *gorm.DB) *GormIdentityMappingRepository {
	return &GormIdentityMappingRepository{db: tx}
}

func whereKey(db *gorm.DB, key reconciliation.MappingKey) *gorm.DB {
	return db.Where("type = ? AND source_service = ? AND target_service = ? AND source_object_id = ?",
		key.Type, key.SourceService, key.TargetService, key.SourceObjectID)
}

// Get returns the target object id for the key and whether it exists
func (r *GormIdentityMappingRepository) Get(ctx context.Context, key reconciliation.MappingKey) (string, bool, error) {
	var model models.IdentityMappingModel
	err := whereKey(r.db.WithContext(ctx), key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.TargetObjectID, true, nil
}

// Put inserts the mapping unless one exists for the same key. The insert is
// a single conditional statement, so concurrent creators cannot both win.
func (r *GormIdentityMappingRepository) Put(ctx context.Context, mapping *reconciliation.IdentityMapping) error {
	if err := mapping.MappingKey.Validate(); err != nil {
		return err
	}
	if mapping.TargetObjectID == "" {
		return reconciliation.ErrInvalidMapping
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "type"},
				{Name: "source_service"},
				{Name: "target_service"},
				{Name: "source_object_id"},
			},
			DoNothing: true,
		}).
		Create(models.IdentityMappingModelFromDomain(mapping))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return reconciliation.NewMappingError(mapping.MappingKey, reconciliation.ErrAlreadyMapped)
	}
	return nil
}

// Delete removes the mapping for the key. Deleting a missing mapping is a no-op.
func (r *GormIdentityMappingRepository) Delete(ctx context.Context, key reconciliation.MappingKey) error {
	return whereKey(r.db.WithContext(ctx), key).Delete(&models.IdentityMappingModel{}).Error
}

func (r *GormIdentityMappingRepository) applyFilter(db *gorm.DB, filter reconciliation.IdentityMappingFilter) *gorm.DB {
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.SourceService != "" {
		db = db.Where("source_service = ?", filter.SourceService)
	}
	if filter.TargetService != "" {
		db = db.Where("target_service = ?", filter.TargetService)
	}
	if filter.SourceObjectID != "" {
		db = db.Where("source_object_id = ?", filter.SourceObjectID)
	}
	if filter.TargetObjectID != "" {
		db = db.Where("target_object_id = ?", filter.TargetObjectID)
	}
	return db
}

// List returns mappings matching the filter, newest first
func (r *GormIdentityMappingRepository) List(ctx context.Context, filter reconciliation.IdentityMappingFilter) ([]reconciliation.IdentityMapping, error) {
	var rows []models.IdentityMappingModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.IdentityMappingModel{}), filter)
	if err := query.Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	mappings := make([]reconciliation.IdentityMapping, len(rows))
	for i := range rows {
		mappings[i] = rows[i].ToDomain()
	}
	return mappings, nil
}

// Count returns the number of mappings matching the filter
func (r *GormIdentityMappingRepository) Count(ctx context.Context, filter reconciliation.IdentityMappingFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.IdentityMappingModel{}), filter).Count(&count).Error
	return count, err
}

// Ensure GormIdentityMappingRepository implements the domain interface
var _ reconciliation.IdentityMappingRepository = (*GormIdentityMappingRepository)(nil)
