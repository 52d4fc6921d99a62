package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
)

// NewSettingsCommand creates the settings command group
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change engine settings",
	}
	cmd.AddCommand(newSettingsListCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

func newSettingsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List effective settings",
		Long:  `List prints every setting with its effective value. Secrets are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				settings, err := s.Settings.All(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list settings", err)
				}
				resp := make([]appreconciliation.SettingResponse, 0, len(settings))
				table := Table{Header: []string{"KEY", "VALUE"}}
				for _, setting := range settings {
					r := appreconciliation.ToSettingResponse(setting)
					resp = append(resp, r)
					table.Rows = append(table.Rows, []string{r.Key, r.Value})
				}
				return rootOpts.formatter(cmd).Success(resp, table)
			})
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change a setting",
		Example: `  syncctl settings set sync.invoice.enabled false`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				if err := s.Settings.Set(ctx, key, value); err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("failed to set %s", key), err)
				}
				return rootOpts.formatter(cmd).Success(map[string]string{"key": key}, fmt.Sprintf("%s updated", key))
			})
		},
	}
}
