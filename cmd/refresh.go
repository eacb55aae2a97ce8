package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/refresh"
)

var (
	refreshLimit       int
	refreshConcurrency int
	refreshWait        bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Start one stale-report refresh run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Temporal.TaskQueue == "" {
			return eris.New("temporal.task_queue is required")
		}

		tc, err := dialTemporal()
		if err != nil {
			return err
		}
		defer tc.Close()

		limit := refreshLimit
		if limit <= 0 {
			limit = cfg.Temporal.RefreshBatch
		}
		run, err := refresh.Start(ctx, tc, cfg.Temporal.TaskQueue, refresh.RefreshInput{
			Limit:       limit,
			Concurrency: refreshConcurrency,
		})
		if err != nil {
			return err
		}
		zap.L().Info("refresh started",
			zap.String("workflow_id", run.GetID()),
			zap.String("run_id", run.GetRunID()),
		)

		if !refreshWait {
			fmt.Fprintf(cmd.OutOrStdout(), "started %s (%s)\n", run.GetID(), run.GetRunID())
			return nil
		}

		var result refresh.RefreshResult
		if err := run.Get(ctx, &result); err != nil {
			return eris.Wrap(err, "refresh: wait for workflow")
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "max stale entries to refresh (default from temporal.refresh_batch)")
	refreshCmd.Flags().IntVar(&refreshConcurrency, "concurrency", 0, "max concurrent refreshes (default 4)")
	refreshCmd.Flags().BoolVar(&refreshWait, "wait", false, "wait for the run and print its result")
	rootCmd.AddCommand(refreshCmd)
}
