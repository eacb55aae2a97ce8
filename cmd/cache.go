package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/cache"
	"github.com/sells-group/sales-intel/internal/store"
)

var cacheStaleLimit int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Report cache maintenance",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete entries past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "cache")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		removed, err := newCache(st).SweepExpired(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("cache sweep complete", zap.Int("removed", removed))
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
		return nil
	},
}

var cacheStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List entries past their freshness window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "cache")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := newCache(st).ListStale(ctx, cacheStaleLimit)
		if err != nil {
			return err
		}

		type staleRow struct {
			Subject   string    `json:"subject"`
			Kind      string    `json:"kind"`
			TenantID  string    `json:"tenant_id,omitempty"`
			ExpiresAt time.Time `json:"expires_at"`
		}
		rows := make([]staleRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, staleRow{
				Subject:   e.SubjectKey,
				Kind:      string(e.Kind),
				TenantID:  e.TenantID,
				ExpiresAt: e.ExpiresAt,
			})
		}
		return writeJSON(cmd.OutOrStdout(), rows)
	},
}

func newCache(st store.Store) *cache.Cache {
	return cache.New(st,
		cache.WithTTL(time.Duration(cfg.Cache.TTLDays)*24*time.Hour),
		cache.WithRetention(time.Duration(cfg.Cache.RetentionDays)*24*time.Hour),
	)
}

func init() {
	cacheStaleCmd.Flags().IntVar(&cacheStaleLimit, "limit", 100, "max entries to list")
	cacheCmd.AddCommand(cacheSweepCmd, cacheStaleCmd)
	rootCmd.AddCommand(cacheCmd)
}
