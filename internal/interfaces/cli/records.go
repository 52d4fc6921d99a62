package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// RecordsOutput is the JSON payload of the records command
type RecordsOutput struct {
	Records []appreconciliation.RecordResponse `json:"records"`
	Total   int64                              `json:"total"`
}

// RunsOutput is the JSON payload of the runs command
type RunsOutput struct {
	Runs []appreconciliation.RunResponse `json:"runs"`
}

type recordsOptions struct {
	objectType string
	objectID   string
	failed     bool
	page       int
	pageSize   int
}

// NewRecordsCommand creates the records command
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &recordsOptions{}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List audit records",
		Long:  `Records lists synchronization attempts, newest first.`,
		Example: `  syncctl records --failed
  syncctl records --type invoice --object-id 0d4c3e1a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := appreconciliation.RecordListFilter{
				ObjectID: opts.objectID,
				Page:     opts.page,
				PageSize: opts.pageSize,
			}
			if opts.objectType != "" {
				t, err := reconciliation.ParseObjectType(opts.objectType)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid object type", err)
				}
				filter.Type = t.String()
			}
			if opts.failed {
				succeeded := false
				filter.Succeeded = &succeeded
			}

			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				records, total, err := s.Queries.ListRecords(ctx, filter)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list records", err)
				}
				table := Table{Header: []string{"CREATED", "TYPE", "OBJECT", "METHOD", "OUTCOME", "ERROR"}}
				for _, r := range records {
					table.Rows = append(table.Rows, []string{
						r.CreatedAt.Format(time.RFC3339), r.Type, r.ObjectID, r.Method, r.Outcome, r.ErrorMessage,
					})
				}
				return rootOpts.formatter(cmd).Success(RecordsOutput{Records: records, Total: total}, table)
			})
		},
	}

	cmd.Flags().StringVar(&opts.objectType, "type", "", "filter by object type")
	cmd.Flags().StringVar(&opts.objectID, "object-id", "", "filter by source object id")
	cmd.Flags().BoolVar(&opts.failed, "failed", false, "only failed attempts")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 20, "records per page")

	return cmd
}

// NewRunsCommand creates the runs command
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		objectType string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent synchronizer runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if objectType != "" {
				if _, err := reconciliation.ParseObjectType(objectType); err != nil {
					return WrapExitError(ExitCommandError, "invalid object type", err)
				}
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				runs, err := s.Queries.ListRuns(ctx, objectType, limit)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list runs", err)
				}
				table := Table{Header: []string{"STARTED", "TYPE", "TRIGGER", "STATUS", "TOTAL", "FAILED"}}
				for _, r := range runs {
					table.Rows = append(table.Rows, []string{
						r.StartedAt.Format(time.RFC3339), r.Type, r.Trigger, r.Status,
						strconv.Itoa(r.Total), strconv.Itoa(r.Failed),
					})
				}
				return rootOpts.formatter(cmd).Success(RunsOutput{Runs: runs}, table)
			})
		},
	}

	cmd.Flags().StringVar(&objectType, "type", "", "filter by object type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	return cmd
}
