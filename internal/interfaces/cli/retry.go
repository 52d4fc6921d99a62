package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// NewRetryCommand creates the retry command
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <type> <id> <method>",
		Short: "Retry one object",
		Long: `Retry fetches one object fresh from its source system and synchronizes it
with the given method (create, update or delete). The enabled flag of the
type is ignored.`,
		Example: `  syncctl retry invoice 0d4c3e1a create
  syncctl retry pick_ticket 8812 delete`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectType, err := reconciliation.ParseObjectType(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid object type", err)
			}
			method, err := reconciliation.ParseMethod(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid method", err)
			}
			objectID := args[1]

			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				result, err := s.Dispatcher.Retry(ctx, objectID, objectType, method)
				if err != nil {
					return WrapExitError(ExitFailure, "retry failed", err)
				}
				resp := appreconciliation.ToResultResponse(result)
				if err := rootOpts.formatter(cmd).Success(resp, fmt.Sprintf("%s %s: %s", resp.Type, resp.ObjectID, resp.Outcome)); err != nil {
					return err
				}
				if result.Outcome == reconciliation.OutcomeFailed {
					return WrapExitError(ExitFailure, "retry failed", result.Failure())
				}
				return nil
			})
		},
	}
}
