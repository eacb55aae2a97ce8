package intel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheLookups counts report cache reads by outcome (fresh, stale, miss, error).
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sales_intel",
		Name:      "cache_lookups_total",
		Help:      "Report cache lookups by outcome",
	}, []string{"outcome"})

	// generations counts pipeline runs by result (success, fallback, refresh_failed).
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sales_intel",
		Name:      "generations_total",
		Help:      "Report generations by result",
	}, []string{"result"})

	generationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sales_intel",
		Name:      "generation_seconds",
		Help:      "Report generation duration in seconds, including scoring",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s to ~2m
	})
)
