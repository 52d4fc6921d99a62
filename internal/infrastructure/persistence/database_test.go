package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erp/syncengine/internal/infrastructure/config"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return &Database{DB: db, Driver: "postgres"}, mock
}

func TestNewDatabase(t *testing.T) {
	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, nil)
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, "sqlite", db.Driver)
		require.NoError(t, db.AutoMigrate())

		for _, table := range []string{"identity_mappings", "synchronized_objects", "sync_settings", "sync_runs"} {
			assert.True(t, db.DB.Migrator().HasTable(table), "missing table %s", table)
		}
		assert.True(t, db.DB.Migrator().HasIndex("identity_mappings", "idx_identity_mappings_key"))

		pool, err := db.DB.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, pool.Stats().MaxOpenConnections)
		assert.NoError(t, db.Ping(context.Background()))
	})

	t.Run("unsupported driver", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestDatabase_PingAndClose(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	mock.ExpectClose()

	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
