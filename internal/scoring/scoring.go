// Package scoring rates a research report for sales prioritization. Every
// function here is total: any report, including an empty or fallback one,
// yields scores in [0, 10].
package scoring

import (
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/sells-group/sales-intel/internal/config"
	"github.com/sells-group/sales-intel/internal/model"
)

const (
	maxScore = 10.0

	icpWeight     = 0.4
	ibpWeight     = 0.3
	triggerWeight = 0.3

	highThreshold   = 8.0
	mediumThreshold = 6.0
)

// knownSizeBands are the size bands the company-profile stage emits.
var knownSizeBands = map[string]bool{
	"smb":        true,
	"mid-market": true,
	"enterprise": true,
}

// DefaultConfig returns a ScoringConfig with sensible defaults.
// Weights sum to 100.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		TargetIndustries:   []string{"manufacturing", "distribution", "consumer goods", "retail"},
		PreferredSizeBands: []string{"mid-market", "enterprise"},

		IndustryWeight:   20,
		SizeWeight:       20,
		TechWeight:       15,
		IBPWeight:        20,
		PainWeight:       15,
		EngagementWeight: 10,
	}
}

// Score computes all sub-scores, the weighted total and the priority tier.
func Score(r *model.ResearchReport, cfg config.ScoringConfig) model.ScoreSet {
	s := model.ScoreSet{
		ICPFit:       ICPFit(r, cfg),
		IBPMaturity:  IBPMaturity(r),
		SalesTrigger: SalesTrigger(r),
	}
	s.Total = finish(icpWeight*s.ICPFit + ibpWeight*s.IBPMaturity + triggerWeight*s.SalesTrigger)
	s.Priority = PriorityFor(s.Total)
	return s
}

// PriorityFor maps a total score to its priority tier.
func PriorityFor(total float64) model.Priority {
	switch {
	case total >= highThreshold:
		return model.PriorityHigh
	case total >= mediumThreshold:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// ICPFit rates how closely the company matches the ideal customer profile
// as a weighted mean of six sub-signals, each scored 0-10.
func ICPFit(r *model.ResearchReport, cfg config.ScoringConfig) float64 {
	if r == nil {
		return 0
	}
	if cfg.WeightSum() <= 0 {
		cfg = withDefaultWeights(cfg)
	}

	signals := []struct {
		weight float64
		score  float64
	}{
		{cfg.IndustryWeight, industrySignal(r.CompanyProfile.Industry, cfg.TargetIndustries)},
		{cfg.SizeWeight, sizeSignal(r.CompanyProfile.SizeBand, cfg.PreferredSizeBands)},
		{cfg.TechWeight, techSignal(len(r.TechStack))},
		{cfg.IBPWeight, IBPMaturity(r)},
		{cfg.PainWeight, math.Min(2*float64(len(r.PainPoints)), maxScore)},
		{cfg.EngagementWeight, engagementSignal(r.Engagement)},
	}

	var total, weights float64
	for _, s := range signals {
		w := sanitize(s.weight)
		total += w * s.score
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return finish(total / weights)
}

// IBPMaturity rates the company's integrated business planning maturity
// from its operations signals.
func IBPMaturity(r *model.ResearchReport) float64 {
	if r == nil {
		return 0
	}
	ops := r.Operations
	score := math.Min(0.8*float64(len(ops.Processes)), 4)

	switch dc := sanitize(ops.DataCentralizationPct); {
	case dc >= 80:
		score += 3
	case dc >= 50:
		score += 2
	case dc >= 20:
		score++
	}
	if ops.AdvancedAnalytics {
		score += 1.5
	}
	switch fa := sanitize(ops.ForecastAccuracyPct); {
	case fa >= 85:
		score += 1.5
	case fa >= 70:
		score += 0.75
	}
	return finish(score)
}

// SalesTrigger rates how actively the company is showing buying intent.
func SalesTrigger(r *model.ResearchReport) float64 {
	if r == nil {
		return 0
	}
	e := r.Engagement
	score := math.Min(1.5*float64(len(r.BuyingSignals)), 4)

	switch {
	case e.SiteVisits >= 20:
		score += 1.5
	case e.SiteVisits >= 5:
		score += 0.75
	}
	switch {
	case e.ContentDownloads >= 3:
		score += 1.5
	case e.ContentDownloads >= 1:
		score += 0.75
	}
	switch open := sanitize(e.EmailOpenRate); {
	case open >= 0.40:
		score++
	case open >= 0.20:
		score += 0.5
	}
	switch click := sanitize(e.EmailClickRate); {
	case click >= 0.10:
		score++
	case click >= 0.05:
		score += 0.5
	}
	if e.EventsAttended >= 1 {
		score++
	}
	return finish(score)
}

// industrySignal matches when some target's words appear as a contiguous
// run of whole words in the industry.
func industrySignal(industry string, targets []string) float64 {
	words := industryWords(industry)
	if len(words) == 0 {
		return 0
	}
	if len(targets) == 0 {
		return maxScore
	}
	for _, t := range targets {
		if containsRun(words, industryWords(t)) {
			return maxScore
		}
	}
	return 0
}

func industryWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsRun(words, run []string) bool {
	if len(run) == 0 {
		return false
	}
	for i := 0; i+len(run) <= len(words); i++ {
		if slices.Equal(words[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

func sizeSignal(band string, preferred []string) float64 {
	band = normalizeBand(band)
	if !knownSizeBands[band] {
		return 0
	}
	for i, p := range preferred {
		if normalizeBand(p) != band {
			continue
		}
		if i == 0 {
			return maxScore
		}
		return 7
	}
	return 3
}

func normalizeBand(band string) string {
	b := strings.ToLower(strings.TrimSpace(band))
	b = strings.NewReplacer(" ", "-", "_", "-").Replace(b)
	if b == "midmarket" {
		return "mid-market"
	}
	return b
}

func techSignal(n int) float64 {
	switch {
	case n >= 10:
		return maxScore
	case n >= 5:
		return 7
	case n >= 1:
		return 4
	default:
		return 0
	}
}

func engagementSignal(e model.Engagement) float64 {
	if e.Active() {
		return maxScore
	}
	return 0
}

func withDefaultWeights(cfg config.ScoringConfig) config.ScoringConfig {
	d := DefaultConfig()
	cfg.IndustryWeight = d.IndustryWeight
	cfg.SizeWeight = d.SizeWeight
	cfg.TechWeight = d.TechWeight
	cfg.IBPWeight = d.IBPWeight
	cfg.PainWeight = d.PainWeight
	cfg.EngagementWeight = d.EngagementWeight
	return cfg
}

// sanitize treats NaN, infinities and negatives as absent.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// finish clamps to [0, 10] and rounds to one decimal.
func finish(v float64) float64 {
	v = sanitize(v)
	if v > maxScore {
		v = maxScore
	}
	return math.Round(v*10) / 10
}
