package refresh

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/cache"
	"github.com/sells-group/sales-intel/internal/intel"
	"github.com/sells-group/sales-intel/internal/model"
)

// StaleLister lists cache entries past their freshness window.
type StaleLister interface {
	ListStale(ctx context.Context, limit int) ([]model.CacheEntry, error)
}

// Refresher regenerates and persists one report.
type Refresher interface {
	Refresh(ctx context.Context, key cache.Key, accountID string) (*intel.Response, error)
}

// Activities are the refresh workflow's activities.
type Activities struct {
	Lister    StaleLister
	Refresher Refresher
}

// ListStale returns up to limit stale entries.
func (a *Activities) ListStale(ctx context.Context, limit int) ([]StaleEntry, error) {
	entries, err := a.Lister.ListStale(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "refresh: list stale")
	}
	out := make([]StaleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, StaleEntry{
			TenantID:       e.TenantID,
			Subject:        e.SubjectKey,
			Kind:           e.Kind,
			LinkedEntityID: e.LinkedEntityID,
		})
	}
	return out, nil
}

// RefreshReport regenerates one entry. A generation failure is not retried
// by the workflow: external calls were already retried inside the pipeline,
// and the entry stays stale for the next run.
func (a *Activities) RefreshReport(ctx context.Context, e StaleEntry) error {
	key := cache.Key{TenantID: e.TenantID, Subject: e.Subject, Kind: e.Kind}
	if _, err := a.Refresher.Refresh(ctx, key, e.LinkedEntityID); err != nil {
		zap.L().Warn("refresh: report regeneration failed",
			zap.String("subject", e.Subject),
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
		return temporal.NewNonRetryableApplicationError(err.Error(), "RefreshFailed", err)
	}
	return nil
}
