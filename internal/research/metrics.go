package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeLive     = "live"
	outcomeStatic   = "static"
	outcomeDegraded = "degraded"
)

var stageResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sales_intel",
	Name:      "stage_results_total",
	Help:      "Research stage results by stage and outcome (live, static, degraded)",
}, []string{"stage", "outcome"})
