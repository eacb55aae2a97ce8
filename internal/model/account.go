package model

import "time"

// Account is the tenant-scoped entity a cached report is linked to (a lead or
// target account in the CRM). Research attaches its latest report here.
type Account struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain"`
	Intel     *CachedArtifact `json:"intel,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
