package model

import "math"

// ReportKind selects how much research a report carries.
type ReportKind string

const (
	ReportKindBasic         ReportKind = "basic"
	ReportKindComprehensive ReportKind = "comprehensive"
)

// Valid reports whether k is a known report kind.
func (k ReportKind) Valid() bool {
	return k == ReportKindBasic || k == ReportKindComprehensive
}

// ParseReportKind maps a user-supplied string to a ReportKind, defaulting to
// comprehensive for empty or unknown values.
func ParseReportKind(s string) ReportKind {
	k := ReportKind(s)
	if k.Valid() {
		return k
	}
	return ReportKindComprehensive
}

// DecisionMaker is an inferred buying-committee role at the target company.
type DecisionMaker struct {
	Title      string `json:"title" yaml:"title"`
	Department string `json:"department" yaml:"department"`
	Influence  string `json:"influence" yaml:"influence"` // "high", "medium", "low"
}

// CompanyProfile describes the target company itself.
type CompanyProfile struct {
	Name          string `json:"name" yaml:"name"`
	Industry      string `json:"industry" yaml:"industry"`
	SizeBand      string `json:"size_band" yaml:"size_band"` // "smb", "mid-market", "enterprise"
	EmployeeRange string `json:"employee_range" yaml:"employee_range"`
	Headquarters  string `json:"headquarters" yaml:"headquarters"`
	Founded       string `json:"founded" yaml:"founded"`
	Description   string `json:"description" yaml:"description"`
}

// GoToMarket describes how the target company sells.
type GoToMarket struct {
	Channels       []string `json:"channels" yaml:"channels"`
	TargetSegments []string `json:"target_segments" yaml:"target_segments"`
	SalesMotion    string   `json:"sales_motion" yaml:"sales_motion"`
}

// Operations holds integrated business planning (IBP) maturity signals.
type Operations struct {
	Processes             []string `json:"processes" yaml:"processes"`
	DataCentralizationPct float64  `json:"data_centralization_pct" yaml:"data_centralization_pct"`
	AdvancedAnalytics     bool     `json:"advanced_analytics" yaml:"advanced_analytics"`
	ForecastAccuracyPct   float64  `json:"forecast_accuracy_pct" yaml:"forecast_accuracy_pct"`
}

// Engagement holds first-party intent and engagement metrics for the target.
type Engagement struct {
	SiteVisits       int     `json:"site_visits" yaml:"site_visits"`
	ContentDownloads int     `json:"content_downloads" yaml:"content_downloads"`
	EmailOpenRate    float64 `json:"email_open_rate" yaml:"email_open_rate"`
	EmailClickRate   float64 `json:"email_click_rate" yaml:"email_click_rate"`
	EventsAttended   int     `json:"events_attended" yaml:"events_attended"`
}

// Active reports whether any engagement or intent metric is positive.
// NaN and infinite rates count as absent.
func (e Engagement) Active() bool {
	return e.SiteVisits > 0 || e.ContentDownloads > 0 || e.EventsAttended > 0 ||
		finitePositive(e.EmailOpenRate) || finitePositive(e.EmailClickRate)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// ResearchReport is the composite output of the research pipeline: one field
// per stage plus a generated summary. Collections are never nil after
// Normalize.
type ResearchReport struct {
	Subject        string          `json:"subject" yaml:"subject"`
	Kind           ReportKind      `json:"kind" yaml:"kind"`
	Competitors    []string        `json:"competitors" yaml:"competitors"`
	TechStack      []string        `json:"tech_stack" yaml:"tech_stack"`
	DecisionMakers []DecisionMaker `json:"decision_makers" yaml:"decision_makers"`
	PainPoints     []string        `json:"pain_points" yaml:"pain_points"`
	MarketTrends   []string        `json:"market_trends" yaml:"market_trends"`
	CompanyProfile CompanyProfile  `json:"company_profile" yaml:"company_profile"`
	GoToMarket     GoToMarket      `json:"go_to_market" yaml:"go_to_market"`
	Operations     Operations      `json:"operations" yaml:"operations"`
	BuyingSignals  []string        `json:"buying_signals" yaml:"buying_signals"`
	Engagement     Engagement      `json:"engagement" yaml:"engagement"`
	Summary        string          `json:"summary" yaml:"summary"`
	Degraded       []string        `json:"degraded_stages" yaml:"degraded_stages"`
}

// SalesMotionUnknown is the go-to-market default when nothing was inferred.
const SalesMotionUnknown = "unknown"

// NewReport returns an empty, normalized report for subject.
func NewReport(subject string, kind ReportKind) *ResearchReport {
	r := &ResearchReport{Subject: subject, Kind: kind}
	r.Normalize()
	return r
}

// Normalize replaces nil collections with empty ones and fills string
// defaults so consumers never branch on missing keys.
func (r *ResearchReport) Normalize() {
	r.Competitors = nonNil(r.Competitors)
	r.TechStack = nonNil(r.TechStack)
	r.PainPoints = nonNil(r.PainPoints)
	r.MarketTrends = nonNil(r.MarketTrends)
	r.BuyingSignals = nonNil(r.BuyingSignals)
	r.Degraded = nonNil(r.Degraded)
	r.GoToMarket.Channels = nonNil(r.GoToMarket.Channels)
	r.GoToMarket.TargetSegments = nonNil(r.GoToMarket.TargetSegments)
	r.Operations.Processes = nonNil(r.Operations.Processes)
	if r.DecisionMakers == nil {
		r.DecisionMakers = []DecisionMaker{}
	}
	if r.GoToMarket.SalesMotion == "" {
		r.GoToMarket.SalesMotion = SalesMotionUnknown
	}
	if r.CompanyProfile.Name == "" {
		r.CompanyProfile.Name = DisplayName(r.Subject)
	}
	if !r.Kind.Valid() {
		r.Kind = ReportKindComprehensive
	}
}

// FallbackSummary is the fixed summary carried by fallback reports.
const FallbackSummary = "Research for this company is temporarily unavailable; showing a placeholder report."

// FallbackReport returns the deterministic report served when generation
// fails. It is schema-valid and identical for identical inputs.
func FallbackReport(subject string, kind ReportKind) *ResearchReport {
	r := NewReport(subject, kind)
	r.Summary = FallbackSummary
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
