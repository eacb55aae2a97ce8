package model

// Priority is the sales priority tier derived from the total score.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ScoreSet holds the three bounded sub-scores and their weighted total.
type ScoreSet struct {
	ICPFit       float64  `json:"icp_fit" yaml:"icp_fit"`
	IBPMaturity  float64  `json:"ibp_maturity" yaml:"ibp_maturity"`
	SalesTrigger float64  `json:"sales_trigger" yaml:"sales_trigger"`
	Total        float64  `json:"total" yaml:"total"`
	Priority     Priority `json:"priority" yaml:"priority"`
}

// FallbackScores is the score set paired with a fallback report.
func FallbackScores() ScoreSet {
	return ScoreSet{Priority: PriorityLow}
}
