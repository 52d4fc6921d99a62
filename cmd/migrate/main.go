// Command migrate manages the versioned postgres schema of the sync engine.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/infrastructure/migration"
	"github.com/erp/syncengine/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the sync engine postgres schema",
		Long: `Apply and inspect versioned schema migrations.

The database is read from the same configuration as the server
(config.toml, .env and SYNC_DATABASE_* variables). SQLite databases
are migrated by the server on startup and are not supported here.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// with opens a migrator for the configured database and closes it after fn.
	with := func(fn func(*migration.Migrator, *zap.Logger) error) error {
		log, err := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stderr"})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("driver %q is not supported; versioned migrations target postgres", cfg.Database.Driver)
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		m, err := migration.New(db, log)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m, log)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return with(func(m *migration.Migrator, _ *zap.Logger) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return with(func(m *migration.Migrator, _ *zap.Logger) error { return m.Down() })
			},
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations; a negative n reverts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return with(func(m *migration.Migrator, _ *zap.Logger) error { return m.Steps(n) })
			},
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 0)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return with(func(m *migration.Migrator, _ *zap.Logger) error { return m.GoTo(uint(v)) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return with(func(m *migration.Migrator, _ *zap.Logger) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					suffix := ""
					if dirty {
						suffix = " (dirty)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d%s\n", version, suffix)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return with(func(m *migration.Migrator, _ *zap.Logger) error { return m.Force(v) })
			},
		},
		newDropCommand(with),
		&cobra.Command{
			Use:   "list",
			Short: "List the migrations compiled into this binary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := migration.List(migrations.FS)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			},
		},
	)
	return root
}

func newDropCommand(with func(func(*migration.Migrator, *zap.Logger) error) error) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table, including the sync ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to drop without --confirm")
			}
			return with(func(m *migration.Migrator, log *zap.Logger) error {
				if err := m.Drop(); err != nil {
					return err
				}
				log.Info("Schema dropped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the drop")
	return cmd
}
