package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/persistence/models"
)

// Database is the gorm connection holding the sync ledger
type Database struct {
	DB     *gorm.DB
	Driver string
}

// NewDatabase connects to the configured database and verifies the connection.
// A nil gormLogger silences gorm.
func NewDatabase(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = logger.Discard
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != "sqlite",
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	d := &Database{DB: db, Driver: cfg.Driver}

	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer; more connections only produce SQLITE_BUSY
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}
	return d, nil
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return pool, nil
}

// AutoMigrate creates the ledger tables from the gorm models. Used for sqlite;
// postgres deployments run the versioned migrations.
func (d *Database) AutoMigrate() error {
	return AutoMigrate(d.DB)
}

// AutoMigrate creates the ledger tables on db
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.IdentityMappingModel{},
		&models.SynchronizedObjectModel{},
		&models.SyncSettingModel{},
		&models.SyncRunModel{},
	)
	if err != nil {
		return fmt.Errorf("migrate sync tables: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// Close closes the connection pool
func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}
