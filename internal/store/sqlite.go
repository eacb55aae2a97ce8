package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sales-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// orders them chronologically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeFormat, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", s)
	}
	return t, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL DEFAULT '',
	intel      TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_tenant ON accounts(tenant_id);

CREATE TABLE IF NOT EXISTS report_cache (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL DEFAULT '',
	subject_key      TEXT NOT NULL,
	report_kind      TEXT NOT NULL CHECK (report_kind IN ('basic', 'comprehensive')),
	payload          TEXT NOT NULL,
	linked_entity_id TEXT,
	created_at       TEXT NOT NULL,
	last_accessed_at TEXT NOT NULL,
	expires_at       TEXT NOT NULL,
	UNIQUE (tenant_id, subject_key, report_kind)
);

CREATE INDEX IF NOT EXISTS idx_report_cache_expires_at ON report_cache(expires_at);
`

const sqliteSelectReportCache = `SELECT id, tenant_id, subject_key, report_kind, payload, linked_entity_id, created_at, last_accessed_at, expires_at
	FROM report_cache`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetReportCache(ctx context.Context, tenantID, subjectKey string, kind model.ReportKind) (*model.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		sqliteSelectReportCache+` WHERE tenant_id = ? AND subject_key = ? AND report_kind = ?`,
		tenantID, subjectKey, string(kind),
	)
	e, err := scanSQLiteEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get report cache %s", subjectKey)
	}
	return e, nil
}

func (s *SQLiteStore) UpsertReportCache(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	out := *entry
	if out.ID == "" {
		out.ID = uuid.New().String()
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO report_cache
		 (id, tenant_id, subject_key, report_kind, payload, linked_entity_id, created_at, last_accessed_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, subject_key, report_kind) DO UPDATE SET
		   payload = excluded.payload,
		   linked_entity_id = excluded.linked_entity_id,
		   created_at = excluded.created_at,
		   last_accessed_at = excluded.last_accessed_at,
		   expires_at = excluded.expires_at
		 RETURNING id`,
		out.ID, out.TenantID, out.SubjectKey, string(out.Kind), string(out.Payload),
		nullable(out.LinkedEntityID), sqliteTime(out.CreatedAt), sqliteTime(out.LastAccessedAt), sqliteTime(out.ExpiresAt),
	).Scan(&out.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert report cache %s", out.SubjectKey)
	}
	return &out, nil
}

func (s *SQLiteStore) TouchReportCache(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE report_cache SET last_accessed_at = ? WHERE id = ?`,
		sqliteTime(at), id,
	)
	return eris.Wrapf(err, "sqlite: touch report cache %s", id)
}

func (s *SQLiteStore) DeleteReportCacheBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM report_cache WHERE expires_at < ?`,
		sqliteTime(cutoff),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired report cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) ListStaleReportCache(ctx context.Context, now time.Time, limit int) ([]model.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteSelectReportCache+` WHERE expires_at < ? ORDER BY last_accessed_at DESC LIMIT ?`,
		sqliteTime(now), staleLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stale report cache")
	}
	defer rows.Close() //nolint:errcheck

	var entries []model.CacheEntry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report cache")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list stale report cache iterate")
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, acct *model.Account) (*model.Account, error) {
	out := *acct
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, tenant_id, name, domain, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		out.ID, out.TenantID, out.Name, out.Domain, sqliteTime(now), sqliteTime(now),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert account")
	}
	return &out, nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, tenantID, id string) (*model.Account, error) {
	var a model.Account
	var intel sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, domain, intel, created_at, updated_at FROM accounts WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&a.ID, &a.TenantID, &a.Name, &a.Domain, &intel, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrAccountNotFound, "sqlite: get account %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get account %s", id)
	}
	if a.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}
	if intel.Valid && intel.String != "" {
		a.Intel = &model.CachedArtifact{}
		if err := json.Unmarshal([]byte(intel.String), a.Intel); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal account intel")
		}
	}
	return &a, nil
}

func (s *SQLiteStore) AccountExists(ctx context.Context, tenantID, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE tenant_id = ? AND id = ?)`,
		tenantID, id,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: account exists %s", id)
	}
	return exists, nil
}

func (s *SQLiteStore) SaveAccountIntel(ctx context.Context, tenantID, id string, intel *model.CachedArtifact) error {
	intelJSON, err := json.Marshal(intel)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal account intel")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET intel = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		string(intelJSON), sqliteTime(time.Now()), tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save account intel %s", id)
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrAccountNotFound, "sqlite: account %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row scannable) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var kind, payload string
	var linked sql.NullString
	var createdAt, accessedAt, expiresAt string
	if err := row.Scan(&e.ID, &e.TenantID, &e.SubjectKey, &kind, &payload, &linked,
		&createdAt, &accessedAt, &expiresAt); err != nil {
		return nil, err
	}
	e.Kind = model.ReportKind(kind)
	e.Payload = json.RawMessage(payload)
	e.LinkedEntityID = linked.String

	var err error
	if e.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if e.LastAccessedAt, err = parseSQLiteTime(accessedAt); err != nil {
		return nil, err
	}
	if e.ExpiresAt, err = parseSQLiteTime(expiresAt); err != nil {
		return nil, err
	}
	return &e, nil
}
