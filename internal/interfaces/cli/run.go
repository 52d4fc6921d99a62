package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// RunOutput is the JSON payload of the run command
type RunOutput struct {
	Runs []RunResult `json:"runs"`
}

// RunResult is one synchronizer run with its attempts
type RunResult struct {
	Run     appreconciliation.RunResponse      `json:"run"`
	Results []appreconciliation.ResultResponse `json:"results"`
}

// NewRunCommand creates the run command
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [type]",
		Short: "Run synchronizers once",
		Long: `Run pulls pending objects from the source systems and pushes them to
their targets. Without a type every synchronizer runs in order. Disabled types record
a disabled run and touch nothing.

Exits with code 1 when any object failed to synchronize.`,
		Example: `  syncctl run
  syncctl run invoice --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var objectType reconciliation.ObjectType
			if len(args) == 1 {
				t, err := reconciliation.ParseObjectType(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid object type", err)
				}
				objectType = t
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				return runSync(ctx, rootOpts.formatter(cmd), s.Dispatcher, objectType)
			})
		},
	}
}

func runSync(ctx context.Context, out *OutputFormatter, d Dispatcher, objectType reconciliation.ObjectType) error {
	var reports []*appreconciliation.RunReport
	if objectType != "" {
		report, err := d.RunType(ctx, objectType, reconciliation.TriggerManual)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			_ = writeRuns(out, reports)
			return WrapExitError(ExitFailure, fmt.Sprintf("%s run failed", objectType), err)
		}
	} else {
		var err error
		reports, err = d.RunScheduled(ctx, reconciliation.TriggerManual)
		if err != nil {
			_ = writeRuns(out, reports)
			return WrapExitError(ExitFailure, "sync run failed", err)
		}
	}

	if err := writeRuns(out, reports); err != nil {
		return err
	}
	if failed := countFailed(reports); failed > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d object(s) failed to synchronize", failed), nil)
	}
	return nil
}

func countFailed(reports []*appreconciliation.RunReport) int {
	failed := 0
	for _, report := range reports {
		for _, r := range report.Results {
			if r.Outcome == reconciliation.OutcomeFailed {
				failed++
			}
		}
	}
	return failed
}

func writeRuns(out *OutputFormatter, reports []*appreconciliation.RunReport) error {
	data := RunOutput{Runs: make([]RunResult, 0, len(reports))}
	table := Table{Header: []string{"TYPE", "STATUS", "TOTAL", "SUCCEEDED", "FAILED", "SKIPPED"}}
	for _, report := range reports {
		if report == nil || report.Run == nil {
			continue
		}
		result := RunResult{
			Run:     appreconciliation.ToRunResponse(report.Run),
			Results: make([]appreconciliation.ResultResponse, 0, len(report.Results)),
		}
		for _, r := range report.Results {
			result.Results = append(result.Results, appreconciliation.ToResultResponse(r))
		}
		data.Runs = append(data.Runs, result)

		run := result.Run
		status := run.Status
		if run.Disabled {
			status = "disabled"
		}
		table.Rows = append(table.Rows, []string{
			run.Type, status,
			strconv.Itoa(run.Total), strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed), strconv.Itoa(run.Skipped),
		})
	}
	return out.Success(data, table)
}
