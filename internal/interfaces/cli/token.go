package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/erp/syncengine/internal/infrastructure/auth"
)

// NewTokenCommand creates the token command. It only needs the JWT
// configuration and never opens the database.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an admin API token",
		Example: `  syncctl token ops@example.com --scope sync:write --ttl 24h
  syncctl token dashboard --scope sync:read`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, scope := range scopes {
				if scope != auth.ScopeRead && scope != auth.ScopeWrite {
					return WrapExitError(ExitCommandError, fmt.Sprintf("unknown scope %q", scope), nil)
				}
			}

			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			svc, err := auth.NewJWTService(cfg.JWT)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create token service", err)
			}
			token, err := svc.GenerateToken(args[0], scopes, ttl)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to issue token", err)
			}
			return rootOpts.formatter(cmd).Success(token, token.AccessToken)
		},
	}

	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeRead}, "granted scopes (sync:read, sync:write)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: jwt.expiration)")

	return cmd
}
