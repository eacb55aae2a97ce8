// Package refresh regenerates stale report cache entries in the background
// as a Temporal workflow. Stale entries are never refreshed implicitly by
// the report service; this workflow is the scheduled path.
package refresh

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/sales-intel/internal/model"
)

const (
	// WorkflowName is the registered name of RefreshStaleWorkflow.
	WorkflowName = "RefreshStaleWorkflow"

	defaultLimit       = 50
	defaultConcurrency = 4

	listTimeout    = 30 * time.Second
	refreshTimeout = 3 * time.Minute
)

// RefreshInput configures one refresh run.
type RefreshInput struct {
	// Limit caps how many stale entries are refreshed. Default: 50.
	Limit int `json:"limit"`
	// Concurrency caps in-flight refresh activities. Default: 4.
	Concurrency int `json:"concurrency"`
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Listed    int      `json:"listed"`
	Refreshed int      `json:"refreshed"`
	Failed    int      `json:"failed"`
	Subjects  []string `json:"subjects"`
}

// StaleEntry identifies one cache entry to refresh.
type StaleEntry struct {
	TenantID       string           `json:"tenant_id"`
	Subject        string           `json:"subject"`
	Kind           model.ReportKind `json:"kind"`
	LinkedEntityID string           `json:"linked_entity_id"`
}

// RefreshStaleWorkflow lists stale cache entries and regenerates each one.
// A failed entry is counted and does not fail the run.
func RefreshStaleWorkflow(ctx workflow.Context, in RefreshInput) (RefreshResult, error) {
	logger := workflow.GetLogger(ctx)
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var a *Activities

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: listTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	var entries []StaleEntry
	if err := workflow.ExecuteActivity(listCtx, a.ListStale, limit).Get(ctx, &entries); err != nil {
		return RefreshResult{}, err
	}

	result := RefreshResult{Listed: len(entries), Subjects: []string{}}
	refreshCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: refreshTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    2,
		},
	})

	for i := 0; i < len(entries); i += concurrency {
		end := min(i+concurrency, len(entries))
		futures := make([]workflow.Future, 0, end-i)
		for _, e := range entries[i:end] {
			futures = append(futures, workflow.ExecuteActivity(refreshCtx, a.RefreshReport, e))
		}
		for idx, f := range futures {
			e := entries[i+idx]
			if err := f.Get(ctx, nil); err != nil {
				result.Failed++
				logger.Warn("refresh: entry failed", "subject", e.Subject, "kind", string(e.Kind), "error", err)
				continue
			}
			result.Refreshed++
			result.Subjects = append(result.Subjects, e.Subject)
		}
	}

	logger.Info("refresh: run complete",
		"listed", result.Listed,
		"refreshed", result.Refreshed,
		"failed", result.Failed,
	)
	return result, nil
}
