// Package cli implements syncctl, the operator command line for the sync engine.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/bootstrap"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/logger"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Dispatcher runs synchronizers
type Dispatcher interface {
	RunScheduled(ctx context.Context, trigger reconciliation.TriggerSource) ([]*appreconciliation.RunReport, error)
	RunType(ctx context.Context, t reconciliation.ObjectType, trigger reconciliation.TriggerSource) (*appreconciliation.RunReport, error)
	Retry(ctx context.Context, objectID string, t reconciliation.ObjectType, method reconciliation.Method) (*appreconciliation.Result, error)
}

// Queries reads the audit trail
type Queries interface {
	ListRecords(ctx context.Context, filter appreconciliation.RecordListFilter) ([]appreconciliation.RecordResponse, int64, error)
	ListRuns(ctx context.Context, objectType string, limit int) ([]appreconciliation.RunResponse, error)
}

// Settings reads and writes engine settings
type Settings interface {
	All(ctx context.Context) ([]reconciliation.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// Services are the engine services the commands drive
type Services struct {
	Dispatcher Dispatcher
	Queries    Queries
	Settings   Settings
	Close      func() error
}

// RootOptions holds global flags and the hooks used to build services
type RootOptions struct {
	Format   string
	LogLevel string

	// LoadConfig defaults to config.Load
	LoadConfig func() (*config.Config, error)
	// OpenServices defaults to a bootstrap.Engine built from the configuration
	OpenServices func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Services, error)
}

// NewRootCommand creates the syncctl root command
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command with injected hooks
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.OpenServices == nil {
		opts.OpenServices = openEngine
	}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Operate the sync engine",
		Long: `syncctl runs synchronizers, retries single objects and inspects the audit
trail of the sync engine. It reads the same configuration as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRetryCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// withServices loads configuration, opens the engine and runs fn against it
func (o *RootOptions) withServices(cmd *cobra.Command, fn func(ctx context.Context, s *Services) error) error {
	cfg, err := o.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	log, err := logger.New(config.LogConfig{Level: o.LogLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	services, err := o.OpenServices(ctx, cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open sync engine", err)
	}
	if services.Close != nil {
		defer func() {
			if err := services.Close(); err != nil {
				log.Warn("Error closing sync engine", zap.Error(err))
			}
		}()
	}
	return fn(logger.WithContext(ctx, log), services)
}

func openEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Services, error) {
	e, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Services{
		Dispatcher: e.Dispatcher,
		Queries:    e.Queries,
		Settings:   e.Settings,
		Close:      e.Close,
	}, nil
}
