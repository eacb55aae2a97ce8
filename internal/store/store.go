// Package store persists report cache rows and the accounts they attach to.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-intel/internal/model"
)

// Store defines the persistence interface for the report cache and its
// linked accounts.
type Store interface {
	// Report cache
	GetReportCache(ctx context.Context, tenantID, subjectKey string, kind model.ReportKind) (*model.CacheEntry, error)
	UpsertReportCache(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error)
	TouchReportCache(ctx context.Context, id string, at time.Time) error
	DeleteReportCacheBefore(ctx context.Context, cutoff time.Time) (int, error)
	ListStaleReportCache(ctx context.Context, now time.Time, limit int) ([]model.CacheEntry, error)

	// Accounts
	CreateAccount(ctx context.Context, acct *model.Account) (*model.Account, error)
	GetAccount(ctx context.Context, tenantID, id string) (*model.Account, error)
	AccountExists(ctx context.Context, tenantID, id string) (bool, error)
	SaveAccountIntel(ctx context.Context, tenantID, id string, intel *model.CachedArtifact) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrAccountNotFound is returned when an account row does not exist for the
// tenant.
var ErrAccountNotFound = eris.New("account not found")

const defaultStaleLimit = 100

func staleLimit(limit int) int {
	if limit <= 0 {
		return defaultStaleLimit
	}
	return limit
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
