package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

func TestGormIdentityMappingRepository_Put_Postgres(t *testing.T) {
	ctx := context.Background()

	t.Run("uses a conditional insert", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		repo := NewGormIdentityMappingRepository(db.DB)

		mock.ExpectQuery(`INSERT INTO "identity_mappings" .* ON CONFLICT \("type","source_service","target_service","source_object_id"\) DO NOTHING RETURNING "id"`).
			WithArgs("invoice", "order_management", "accounting", "1001", "se-77", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		mapping, err := reconciliation.NewIdentityMapping(invoiceKey("1001"), "se-77")
		require.NoError(t, err)
		require.NoError(t, repo.Put(ctx, mapping))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict reports already mapped", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		repo := NewGormIdentityMappingRepository(db.DB)

		mock.ExpectQuery(`INSERT INTO "identity_mappings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		mapping, _ := reconciliation.NewIdentityMapping(invoiceKey("1001"), "se-78")
		err := repo.Put(ctx, mapping)
		assert.ErrorIs(t, err, reconciliation.ErrAlreadyMapped)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database errors are returned", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		repo := NewGormIdentityMappingRepository(db.DB)

		mock.ExpectQuery(`INSERT INTO "identity_mappings"`).
			WillReturnError(errors.New("connection reset"))

		mapping, _ := reconciliation.NewIdentityMapping(invoiceKey("1001"), "se-79")
		err := repo.Put(ctx, mapping)
		require.Error(t, err)
		assert.NotErrorIs(t, err, reconciliation.ErrAlreadyMapped)
	})
}

func TestGormSettingsStore_Set_Postgres(t *testing.T) {
	db, mock := newMockDatabase(t)
	store := NewGormSettingsStore(db.DB)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO "sync_settings" \("key","value","updated_at"\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \("key"\) DO UPDATE SET "value"="excluded"."value","updated_at"="excluded"."updated_at"`).
		WithArgs("shipping.method_id", "8", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "shipping.method_id", "8"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
