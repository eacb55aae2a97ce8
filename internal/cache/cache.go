// Package cache is the persistent report cache: one entry per tenant,
// subject and report kind, fresh for a fixed window and then served stale
// until a maintenance sweep removes it.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/model"
	"github.com/sells-group/sales-intel/internal/store"
)

const (
	// DefaultTTL is the freshness window reset by every write.
	DefaultTTL = 30 * 24 * time.Hour
	// DefaultRetention is how long past expiry an entry survives the sweep.
	DefaultRetention = 60 * 24 * time.Hour
)

// ErrOrphanCacheWrite is returned when an upsert references a linked
// account that no longer exists for the tenant. Nothing is written.
var ErrOrphanCacheWrite = eris.New("cache: linked entity does not exist")

// Key identifies one cache entry. Subject is normalized on use.
type Key struct {
	TenantID string
	Subject  string
	Kind     model.ReportKind
}

func (k Key) normalized() Key {
	k.Subject = model.NormalizeSubject(k.Subject)
	if !k.Kind.Valid() {
		k.Kind = model.ReportKindComprehensive
	}
	return k
}

// Hit is a cache read result.
type Hit struct {
	Entry model.CacheEntry
	Stale bool
}

// Artifact decodes the hit's payload.
func (h *Hit) Artifact() (*model.CachedArtifact, error) {
	var a model.CachedArtifact
	if err := json.Unmarshal(h.Entry.Payload, &a); err != nil {
		return nil, eris.Wrap(err, "cache: decode payload")
	}
	return &a, nil
}

// Cache reads and writes report cache entries through a Store.
type Cache struct {
	store     store.Store
	now       func() time.Time
	ttl       time.Duration
	retention time.Duration
	log       *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRetention overrides how long stale entries are kept.
func WithRetention(retention time.Duration) Option {
	return func(c *Cache) {
		if retention > 0 {
			c.retention = retention
		}
	}
}

// WithLogger sets the logger used for guard and touch events.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Cache over st.
func New(st store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:     st,
		now:       time.Now,
		ttl:       DefaultTTL,
		retention: DefaultRetention,
		log:       zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Now returns the cache's current time.
func (c *Cache) Now() time.Time {
	return c.now().UTC()
}

// Get returns the entry for key, or nil when absent. A hit past its expiry
// is returned with Stale set. Every hit bumps the entry's last access time;
// a failed bump is logged and does not fail the read.
func (c *Cache) Get(ctx context.Context, key Key) (*Hit, error) {
	key = key.normalized()
	entry, err := c.store.GetReportCache(ctx, key.TenantID, key.Subject, key.Kind)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: get %s", key.Subject)
	}
	if entry == nil {
		return nil, nil
	}

	now := c.Now()
	if err := c.store.TouchReportCache(ctx, entry.ID, now); err != nil {
		c.log.Warn("cache: touch failed",
			zap.String("subject", key.Subject),
			zap.String("entry_id", entry.ID),
			zap.Error(err),
		)
	} else {
		entry.LastAccessedAt = now
	}

	return &Hit{Entry: *entry, Stale: entry.StaleAt(now)}, nil
}

// Upsert creates or replaces the entry for key with payload and resets its
// freshness window. When linkedEntityID is set and no longer exists for the
// tenant, nothing is written and ErrOrphanCacheWrite is returned.
func (c *Cache) Upsert(ctx context.Context, key Key, payload any, linkedEntityID string) (*model.CacheEntry, error) {
	key = key.normalized()

	if linkedEntityID != "" {
		ok, err := c.store.AccountExists(ctx, key.TenantID, linkedEntityID)
		if err != nil {
			return nil, eris.Wrapf(err, "cache: check linked entity %s", linkedEntityID)
		}
		if !ok {
			c.log.Error("cache: orphan write dropped",
				zap.String("subject", key.Subject),
				zap.String("tenant_id", key.TenantID),
				zap.String("linked_entity_id", linkedEntityID),
			)
			return nil, ErrOrphanCacheWrite
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "cache: encode payload")
	}

	now := c.Now()
	entry, err := c.store.UpsertReportCache(ctx, &model.CacheEntry{
		SubjectKey:     key.Subject,
		Kind:           key.Kind,
		TenantID:       key.TenantID,
		Payload:        raw,
		LinkedEntityID: linkedEntityID,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(c.ttl),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "cache: upsert %s", key.Subject)
	}
	return entry, nil
}

// SweepExpired deletes entries whose expiry is older than the retention
// window. It is the only path that deletes entries.
func (c *Cache) SweepExpired(ctx context.Context) (int, error) {
	cutoff := c.Now().Add(-c.retention)
	n, err := c.store.DeleteReportCacheBefore(ctx, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "cache: sweep")
	}
	c.log.Info("cache: swept expired entries",
		zap.Int("deleted", n),
		zap.Time("cutoff", cutoff),
	)
	return n, nil
}

// ListStale returns up to limit entries that are past their freshness window.
func (c *Cache) ListStale(ctx context.Context, limit int) ([]model.CacheEntry, error) {
	entries, err := c.store.ListStaleReportCache(ctx, c.Now(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "cache: list stale")
	}
	return entries, nil
}
