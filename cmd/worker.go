package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/refresh"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker that refreshes stale reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initReportEnv(cmd.Context(), "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		tc, err := dialTemporal()
		if err != nil {
			return err
		}
		defer tc.Close()

		w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
		refresh.Register(w, &refresh.Activities{Lister: env.Cache, Refresher: env.Service})

		zap.L().Info("starting refresh worker",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.String("namespace", cfg.Temporal.Namespace),
		)
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "worker: run")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
