// Package migration applies the versioned postgres schema with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/erp/syncengine/migrations"
)

// Migrator moves a postgres schema between versions
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New returns a Migrator over the migrations embedded in the binary
func New(db *sql.DB, log *zap.Logger) (*Migrator, error) {
	return NewWithSource(db, migrations.FS, log)
}

// NewWithSource returns a Migrator over the *.sql files at the root of source
func NewWithSource(db *sql.DB, source fs.FS, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return &Migrator{m: m, log: log.Named("migrate")}, nil
}

// apply runs op and logs the resulting version. An up-to-date schema is not an error.
func (m *Migrator) apply(name string, op func() error) error {
	m.log.Info("Applying migrations", zap.String("op", name))
	if err := op(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info("Schema already up to date", zap.String("op", name))
			return nil
		}
		return fmt.Errorf("migrate %s: %w", name, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Info("Migrations applied",
		zap.String("op", name),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.m.Up)
}

// Down reverts every applied migration
func (m *Migrator) Down() error {
	return m.apply("down", m.m.Down)
}

// Steps applies n migrations forward, or -n backward when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %+d", n), func() error { return m.m.Steps(n) })
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.m.Migrate(version) })
}

// Version reports the applied version. An empty schema is version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without running SQL
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table in the schema, including the sync ledger.
func (m *Migrator) Drop() error {
	m.log.Warn("Dropping all sync tables")
	if err := m.m.Drop(); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// List returns the up migration names in source, oldest first
func List(source fs.FS) ([]string, error) {
	files, err := fs.Glob(source, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(f, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}
