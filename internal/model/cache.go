package model

import (
	"encoding/json"
	"time"
)

// CacheEntry is one persisted report cache row. At most one entry exists per
// (TenantID, SubjectKey, Kind).
type CacheEntry struct {
	ID             string          `json:"id"`
	SubjectKey     string          `json:"subject_key"`
	Kind           ReportKind      `json:"report_kind"`
	TenantID       string          `json:"tenant_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	LinkedEntityID string          `json:"linked_entity_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// StaleAt reports whether the entry is past its freshness window at now.
func (e *CacheEntry) StaleAt(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// CachedArtifact is the payload stored in a cache entry.
type CachedArtifact struct {
	Report   ResearchReport `json:"report"`
	Scores   ScoreSet       `json:"scores"`
	Fallback bool           `json:"fallback"`
}
