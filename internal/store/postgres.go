package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-intel/internal/db"
	"github.com/sells-group/sales-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	selectReportCache = `SELECT id, tenant_id, subject_key, report_kind, payload, linked_entity_id, created_at, last_accessed_at, expires_at
		FROM report_cache`

	upsertReportCache = `INSERT INTO report_cache
		(id, tenant_id, subject_key, report_kind, payload, linked_entity_id, created_at, last_accessed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, subject_key, report_kind) DO UPDATE SET
		  payload = EXCLUDED.payload,
		  linked_entity_id = EXCLUDED.linked_entity_id,
		  created_at = EXCLUDED.created_at,
		  last_accessed_at = EXCLUDED.last_accessed_at,
		  expires_at = EXCLUDED.expires_at
		RETURNING id`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id  TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL DEFAULT '',
	intel      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_accounts_tenant ON accounts(tenant_id);

CREATE TABLE IF NOT EXISTS report_cache (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id        TEXT NOT NULL DEFAULT '',
	subject_key      TEXT NOT NULL,
	report_kind      TEXT NOT NULL CHECK (report_kind IN ('basic', 'comprehensive')),
	payload          JSONB NOT NULL,
	linked_entity_id TEXT REFERENCES accounts(id) ON DELETE SET NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (tenant_id, subject_key, report_kind)
);

CREATE INDEX IF NOT EXISTS idx_report_cache_expires_at ON report_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetReportCache(ctx context.Context, tenantID, subjectKey string, kind model.ReportKind) (*model.CacheEntry, error) {
	row := s.pool.QueryRow(ctx,
		selectReportCache+` WHERE tenant_id = $1 AND subject_key = $2 AND report_kind = $3`,
		tenantID, subjectKey, string(kind),
	)
	e, err := scanPostgresEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get report cache %s", subjectKey)
	}
	return e, nil
}

func (s *PostgresStore) UpsertReportCache(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	out := *entry
	if out.ID == "" {
		out.ID = uuid.New().String()
	}

	err := s.pool.QueryRow(ctx, upsertReportCache,
		out.ID, out.TenantID, out.SubjectKey, string(out.Kind), []byte(out.Payload),
		nullable(out.LinkedEntityID), out.CreatedAt, out.LastAccessedAt, out.ExpiresAt,
	).Scan(&out.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert report cache %s", out.SubjectKey)
	}
	return &out, nil
}

func (s *PostgresStore) TouchReportCache(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE report_cache SET last_accessed_at = $1 WHERE id = $2`,
		at, id,
	)
	return eris.Wrapf(err, "postgres: touch report cache %s", id)
}

func (s *PostgresStore) DeleteReportCacheBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM report_cache WHERE expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired report cache")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListStaleReportCache(ctx context.Context, now time.Time, limit int) ([]model.CacheEntry, error) {
	rows, err := s.pool.Query(ctx,
		selectReportCache+` WHERE expires_at < $1 ORDER BY last_accessed_at DESC LIMIT $2`,
		now, staleLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stale report cache")
	}
	defer rows.Close()

	var entries []model.CacheEntry
	for rows.Next() {
		e, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report cache")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list stale report cache iterate")
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct *model.Account) (*model.Account, error) {
	out := *acct
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, tenant_id, name, domain, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		out.ID, out.TenantID, out.Name, out.Domain, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert account")
	}
	return &out, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, tenantID, id string) (*model.Account, error) {
	var a model.Account
	var intel []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, domain, intel, created_at, updated_at FROM accounts WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&a.ID, &a.TenantID, &a.Name, &a.Domain, &intel, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrAccountNotFound, "postgres: get account %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get account %s", id)
	}
	if len(intel) > 0 {
		a.Intel = &model.CachedArtifact{}
		if err := json.Unmarshal(intel, a.Intel); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal account intel")
		}
	}
	return &a, nil
}

func (s *PostgresStore) AccountExists(ctx context.Context, tenantID, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE tenant_id = $1 AND id = $2)`,
		tenantID, id,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: account exists %s", id)
	}
	return exists, nil
}

func (s *PostgresStore) SaveAccountIntel(ctx context.Context, tenantID, id string, intel *model.CachedArtifact) error {
	intelJSON, err := json.Marshal(intel)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal account intel")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET intel = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`,
		intelJSON, time.Now().UTC(), tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save account intel %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrAccountNotFound, "postgres: save account intel %s", id)
	}
	return nil
}

func scanPostgresEntry(row pgx.Row) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var kind string
	var payload []byte
	var linked *string
	if err := row.Scan(&e.ID, &e.TenantID, &e.SubjectKey, &kind, &payload, &linked,
		&e.CreatedAt, &e.LastAccessedAt, &e.ExpiresAt); err != nil {
		return nil, err
	}
	e.Kind = model.ReportKind(kind)
	e.Payload = payload
	e.LinkedEntityID = deref(linked)
	return &e, nil
}
